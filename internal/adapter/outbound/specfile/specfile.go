// Package specfile reads and writes spec files, picking JSON or YAML from
// the file extension.
package specfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/i2y/orchestrate/internal/domain"
)

type Files struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Files {
	return &Files{logger: logger.With("component", "spec_files")}
}

// Read returns the file content and its format.
func (f *Files) Read(path string) ([]byte, domain.SpecFormat, error) {
	format, err := domain.FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		f.logger.Error("Failed to read spec file", slog.String("path", path), slog.Any("error", err))
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, format, nil
}

// Write renders v in the format of path and creates parent directories as needed.
func (f *Files) Write(path string, v any) error {
	format, err := domain.FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := domain.MarshalSpec(v, format)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		f.logger.Error("Failed to write spec file", slog.String("path", path), slog.Any("error", err))
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	f.logger.Info("Wrote spec file", slog.String("path", path), slog.String("format", string(format)))
	return nil
}
