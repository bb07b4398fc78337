package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/expflowgo/internal/compiler"
	"github.com/vk/expflowgo/internal/ctxlog"
	"github.com/vk/expflowgo/internal/fsutil"
)

// expExtension is the experiment definition file extension.
const expExtension = ".exp.hcl"

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if cfg.TargetVersion != "" && cfg.TargetVersion != Version {
		a.logger.Warn("Requested target version differs from this toolchain; compiling anyway.",
			"requested", cfg.TargetVersion, "toolchain", Version)
	}

	if cfg.DevicesPath != "" {
		if err := a.loader.LoadDevices(ctx, cfg.DevicesPath); err != nil {
			return fmt.Errorf("loading devices: %w", err)
		}
		a.logger.Debug("Device configuration loaded.", "labels", a.registry.Devices.Labels())
	}

	inputs, err := a.resolveInputs(cfg.InPath)
	if err != nil {
		return err
	}
	if len(inputs) > 1 && cfg.OutPath != "" {
		return fmt.Errorf("-o cannot be combined with a directory of experiments")
	}

	for _, in := range inputs {
		out := cfg.OutPath
		if out == "" {
			out = strings.TrimSuffix(in, expExtension) + ".py"
		}
		if err := a.compileOne(ctx, in, out); err != nil {
			return err
		}
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// resolveInputs expands a directory input into its experiment files.
func (a *App) resolveInputs(inPath string) ([]string, error) {
	info, err := os.Stat(inPath)
	if err != nil {
		return nil, fmt.Errorf("input path: %w", err)
	}
	if !info.IsDir() {
		return []string{inPath}, nil
	}
	files, err := fsutil.FindFilesByExtension(inPath, expExtension)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", inPath, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found under %s", expExtension, inPath)
	}
	return files, nil
}

func (a *App) compileOne(ctx context.Context, in, out string) error {
	exp, err := a.loader.LoadExperiment(ctx, in)
	if err != nil {
		return fmt.Errorf("loading %s: %w", in, err)
	}

	target, err := compiler.TargetForPath(out)
	if err != nil {
		return err
	}
	scripts, err := a.compiler.Compile(ctx, exp, target)
	if err != nil {
		return err
	}
	written, err := compiler.WriteFiles(out, scripts)
	if err != nil {
		return err
	}
	for _, path := range written {
		a.logger.Info("Wrote script.", "experiment", exp.Name, "path", filepath.Clean(path))
	}
	return nil
}
