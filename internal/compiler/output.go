package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/expflowgo/internal/dialect"
)

// utf8BOM prefixes every generated script so runtimes that sniff
// encodings read the file as UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TargetForPath maps an output path to a compile target by extension.
func TargetForPath(outPath string) (string, error) {
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".py":
		return dialect.PsychoPy, nil
	case ".js":
		return dialect.PsychoJS, nil
	default:
		return "", fmt.Errorf("cannot infer a compile target from output path %q (use .py or .js)", outPath)
	}
}

// WriteFiles writes each rendered script to disk, inserting its file
// suffix before the extension ("stroop.js", "stroop-legacy-browsers.js").
// It returns the written paths.
func WriteFiles(outPath string, scripts []Rendered) ([]string, error) {
	ext := filepath.Ext(outPath)
	stem := strings.TrimSuffix(outPath, ext)
	var written []string
	for _, s := range scripts {
		path := stem + s.FileSuffix + ext
		data := append(append([]byte(nil), utf8BOM...), []byte(s.Source)...)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
