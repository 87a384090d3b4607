package artifact_test

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/orchestrate/internal/adapter/outbound/artifact"
)

func newPackager(t *testing.T, excludes ...string) *artifact.Packager {
	t.Helper()
	p, err := artifact.New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})), excludes...)
	require.NoError(t, err)
	return p
}

func write(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func entries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = string(content)
	}
	return out
}

func TestPackager_PythonTool(t *testing.T) {
	dir := t.TempDir()
	module := write(t, dir, "weather.py", "def get_weather(): pass\n")
	reqs := write(t, dir, "deps/reqs.in", "requests\n")

	tests := []struct {
		name         string
		requirements string
		want         map[string]string
	}{
		{
			name: "module only",
			want: map[string]string{"weather.py": "def get_weather(): pass\n"},
		},
		{
			name:         "module and requirements",
			requirements: reqs,
			want: map[string]string{
				"weather.py":       "def get_weather(): pass\n",
				"requirements.txt": "requests\n",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filename, data, err := newPackager(t).PythonTool(module, tt.requirements)
			require.NoError(t, err)
			assert.Equal(t, "weather.zip", filename)
			assert.Equal(t, tt.want, entries(t, data))
		})
	}
}

func TestPackager_PythonTool_Deterministic(t *testing.T) {
	module := write(t, t.TempDir(), "tool.py", "x = 1\n")
	p := newPackager(t)
	_, first, err := p.PythonTool(module, "")
	require.NoError(t, err)
	_, second, err := p.PythonTool(module, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPackager_Directory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "server")
	write(t, root, "main.py", "print('hi')\n")
	write(t, root, "pkg/util.py", "u = 1\n")
	write(t, root, "pkg/__pycache__/util.cpython-312.pyc", "bytecode")
	write(t, root, ".git/HEAD", "ref")
	write(t, root, "notes.md", "skip me")

	filename, data, err := newPackager(t, "*.md").Directory(root)
	require.NoError(t, err)
	assert.Equal(t, "server.zip", filename)
	assert.Equal(t, map[string]string{
		"main.py":     "print('hi')\n",
		"pkg/util.py": "u = 1\n",
	}, entries(t, data))
}

func TestPackager_Directory_ExistingZip(t *testing.T) {
	path := write(t, t.TempDir(), "bundle.zip", "PK-prebuilt")
	filename, data, err := newPackager(t).Directory(path)
	require.NoError(t, err)
	assert.Equal(t, "bundle.zip", filename)
	assert.Equal(t, []byte("PK-prebuilt"), data)

	_, _, err = newPackager(t).Directory(write(t, t.TempDir(), "plain.txt", "x"))
	assert.Error(t, err)
}
