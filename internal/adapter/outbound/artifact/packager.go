// Package artifact builds the zip files uploaded with python tools and
// toolkits.
package artifact

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// RequirementsFile is the name the runtime expects for python dependencies.
const RequirementsFile = "requirements.txt"

var defaultExcludes = []string{"__pycache__", "*.pyc", ".git", ".venv", "venv", ".DS_Store", "node_modules", "*.zip"}

// Packager zips tool sources. Entries carry no timestamps, so the same
// input always produces the same bytes.
type Packager struct {
	excludes []glob.Glob
	logger   *slog.Logger
}

// New creates a packager. excludes are glob patterns matched against every
// path component; the defaults skip caches, virtualenvs and VCS metadata.
func New(logger *slog.Logger, excludes ...string) (*Packager, error) {
	p := &Packager{logger: logger.With("component", "artifact_packager")}
	for _, pattern := range append(append([]string{}, defaultExcludes...), excludes...) {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		p.excludes = append(p.excludes, g)
	}
	return p, nil
}

func (p *Packager) excluded(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, g := range p.excludes {
			if g.Match(part) {
				return true
			}
		}
	}
	return false
}

// PythonTool zips the module file and, when requirementsFile is set, its
// requirements stored as requirements.txt. The archive is named after the module.
func (p *Packager) PythonTool(file, requirementsFile string) (string, []byte, error) {
	entries := map[string]string{filepath.Base(file): file}
	names := []string{filepath.Base(file)}
	if requirementsFile != "" {
		entries[RequirementsFile] = requirementsFile
		names = append(names, RequirementsFile)
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		if err := addFile(w, name, entries[name]); err != nil {
			return "", nil, err
		}
	}
	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	filename := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + ".zip"
	p.logger.Info("Packaged python tool", slog.String("file", file), slog.String("artifact", filename), slog.Int("size", buf.Len()))
	return filename, buf.Bytes(), nil
}

// Directory zips every file under root that no exclude pattern matches. An
// existing .zip file is returned unchanged.
func (p *Packager) Directory(root string) (string, []byte, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", nil, fmt.Errorf("package root %s: %w", root, err)
	}
	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(root), ".zip") {
			return "", nil, fmt.Errorf("package root %s must be a directory or a .zip file", root)
		}
		data, err := os.ReadFile(root)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read %s: %w", root, err)
		}
		return filepath.Base(root), data, nil
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	count := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		if p.excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		count++
		return addFile(w, filepath.ToSlash(rel), path)
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to package %s: %w", root, err)
	}
	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	filename := filepath.Base(filepath.Clean(root)) + ".zip"
	p.logger.Info("Packaged directory", slog.String("root", root), slog.Int("files", count), slog.Int("size", buf.Len()))
	return filename, buf.Bytes(), nil
}

func addFile(w *zip.Writer, name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	dst, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
