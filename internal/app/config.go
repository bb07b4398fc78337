package app

import "errors"

// Version is the toolchain version stamped into generated scripts and
// compared against --target-version requests.
const Version = "1.2.0"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// InPath is a single .exp.hcl file or a directory of them.
	InPath string
	// OutPath is the output script path; empty means "input path with the
	// extension replaced by .py". A .js extension selects the web target.
	OutPath string
	// DevicesPath optionally names a device configuration file.
	DevicesPath string
	// TargetVersion is the runtime version the user asked to compile for.
	TargetVersion string

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.InPath == "" {
		return nil, errors.New("InPath is a required configuration field and cannot be empty")
	}
	if cfg.OutPath != "" && cfg.InPath == cfg.OutPath {
		return nil, errors.New("output path must differ from the input path")
	}
	return &cfg, nil
}
