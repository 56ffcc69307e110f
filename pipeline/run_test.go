package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "sub/b.rpy", "return\n")
	a := writeFile(t, dir, "a.rpy", "return\n")
	r := writeFile(t, dir, "logic_ren.py", "\"\"\"renpy\nlabel start:\n\"\"\"\nreturn\n")
	writeFile(t, dir, "notes.txt", "not a script\n")

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{a, r, b}, files)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	messy := writeFile(t, dir, "messy.rpy", "e   \"Hi.\"\n")
	clean := writeFile(t, dir, "clean.rpy", "return\n")
	broken := writeFile(t, dir, "broken.rpy", "label:\n")

	result := Run(context.Background(), []string{messy, clean, broken}, Options{MaxParallel: 2})

	assert.True(t, strings.HasPrefix(result.RunID, "fmt_"))
	require.Len(t, result.Files, 3)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, 1, result.Failed)

	assert.True(t, result.Files[0].Changed)
	assert.Equal(t, "e \"Hi.\"\n", result.Files[0].Output)

	assert.False(t, result.Files[1].Changed)
	require.NoError(t, result.Files[1].Err)

	require.Error(t, result.Files[2].Err)

	// without Write the files are untouched
	content, err := os.ReadFile(messy)
	require.NoError(t, err)
	assert.Equal(t, "e   \"Hi.\"\n", string(content))
}

func TestRunWrite(t *testing.T) {
	dir := t.TempDir()
	messy := writeFile(t, dir, "messy.rpy", "e   \"Hi.\"\n")

	result := Run(context.Background(), []string{messy}, Options{Write: true})
	require.NoError(t, result.Files[0].Err)
	assert.Equal(t, 1, result.Changed)

	content, err := os.ReadFile(messy)
	require.NoError(t, err)
	assert.Equal(t, "e \"Hi.\"\n", string(content))
}

func TestRunIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"a.rpy", "b.rpy", "c.rpy", "d.rpy"} {
		files = append(files, writeFile(t, dir, name, "return\n"))
	}
	files = append(files, filepath.Join(dir, "missing.rpy"))

	result := Run(context.Background(), files, Options{MaxParallel: 8})
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Changed)

	for _, fr := range result.Files[:4] {
		assert.NoError(t, fr.Err, fr.Path)
	}
	assert.Error(t, result.Files[4].Err)
}

func TestRunDefaultsParallelism(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.rpy", "return\n")

	result := Run(context.Background(), []string{path}, Options{})
	require.Len(t, result.Files, 1)
	assert.NoError(t, result.Files[0].Err)
}
