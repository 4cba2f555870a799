package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsLibraryFiles(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 16)

	w, err := NewWatcher(dir, func(path string) error {
		changed <- path
		return nil
	})
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	writeFile(t, dir, "notes.txt", "ignored")
	path := writeFile(t, dir, "html_text.block.yaml", textBlockYAML)

	select {
	case got := <-changed:
		assert.Equal(t, filepath.Base(path), filepath.Base(got))
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), func(string) error { return nil })
	require.NoError(t, err)
	w.Start()

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), func(string) error { return nil })
	assert.Error(t, err)
}
