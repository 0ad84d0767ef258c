package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed templates/config.yaml
var template []byte

// Template returns the commented starter config written by `enricher init`.
func Template() []byte {
	out := make([]byte, len(template))
	copy(out, template)
	return out
}

// WriteTemplate writes the starter config to path. Existing files are kept
// unless force is set.
func WriteTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
		}
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, template, 0o600); err != nil {
		return fmt.Errorf("write configuration file: %w", err)
	}
	return nil
}
