package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/librarian/internal/store"
)

// execute runs the CLI with args against an isolated store and config,
// returning combined output.
func execute(t *testing.T, storeDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LIBRARIAN_LOG_FILE", filepath.Join(t.TempDir(), "librarian.log"))

	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append(args, "--store", storeDir))

	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeBook(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "librarian")
	assert.Contains(t, out, "dev")
}

func TestVersionCommand_JSON(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
}

func TestIndexCommand_Directory(t *testing.T) {
	books := t.TempDir()
	writeBook(t, books, "rivers.txt", "A long meditation on rivers, their sources and their deltas.")
	writeBook(t, books, "broken.fb2", "<FictionBook><body>truncated")

	out, err := execute(t, t.TempDir(), "index", books)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 1 book(s), 1 failed, 0 skipped")
}

func TestIndexCommand_MissingPath(t *testing.T) {
	_, err := execute(t, t.TempDir(), "index", filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestSearchCommand_EmptyStore(t *testing.T) {
	out, err := execute(t, t.TempDir(), "search", "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "No matches")
}

func TestIndexThenSearchAndStats(t *testing.T) {
	books := t.TempDir()
	writeBook(t, books, "whales.txt",
		"The whaling ship chased the great white whale across the ocean for many days.")
	writeBook(t, books, "garden.txt",
		"Notes on planting a kitchen garden: beds, seeds, and the first harvest.")
	storeDir := t.TempDir()

	_, err := execute(t, storeDir, "index", books)
	require.NoError(t, err)

	out, err := execute(t, storeDir, "search", "chasing a white whale at sea")
	require.NoError(t, err)
	assert.Contains(t, out, "whales.txt")

	out, err = execute(t, storeDir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "2 book(s)")
	assert.Contains(t, out, "garden.txt")
}

func TestSearchCommand_JSON(t *testing.T) {
	books := t.TempDir()
	writeBook(t, books, "moon.txt", "A voyage to the moon in a cannon shell, as imagined long ago.")
	storeDir := t.TempDir()

	_, err := execute(t, storeDir, "index", books)
	require.NoError(t, err)

	out, err := execute(t, storeDir, "search", "--format", "json", "voyage to the moon")
	require.NoError(t, err)

	var books2 []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &books2))
	require.NotEmpty(t, books2)
	assert.Equal(t, "moon.txt", books2[0]["filename"])
}

func TestCommandsReleaseStoreLock(t *testing.T) {
	storeDir := t.TempDir()

	_, err := execute(t, storeDir, "stats")
	require.NoError(t, err)

	// A fresh open must not find the lock held.
	st, err := store.Open(context.Background(), storeDir, store.Options{LockTimeout: 2 * time.Second})
	require.NoError(t, err)
	require.NoError(t, st.Close())
}
