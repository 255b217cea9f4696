package components

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	for _, dir := range []string{"Shows", ".cache"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, dir), 0o755))
	}
	for _, name := range []string{"b.mkv", "A.mp4", "notes.txt", ".hidden.webm"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o644))
	}
	return root
}

func names(entries []FileEntry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestReadDirFiltered(t *testing.T) {
	root := makeTree(t)

	entries, err := readDirFiltered(root, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shows", "A.mp4", "b.mkv"}, names(entries))
	assert.True(t, entries[0].IsDir)

	entries, err = readDirFiltered(root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{".cache", "Shows", ".hidden.webm", "A.mp4", "b.mkv"}, names(entries))

	_, err = readDirFiltered(filepath.Join(root, "missing"), false)
	assert.Error(t, err)
}

func TestBrowser_OpenFileAndParent(t *testing.T) {
	root := makeTree(t)

	b := NewBrowser(root)
	b.SetSize(30, 10)
	b, _ = b.Update(b.Init()())
	require.Equal(t, root, b.CurrentDir())

	b.Focus()
	b, _ = b.Update(tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, "A.mp4", b.SelectedEntry().Name)

	_, cmd := b.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, FileSelectedMsg{Path: filepath.Join(root, "A.mp4")}, cmd())

	// Enter the directory, then come back to it.
	b, _ = b.Update(tea.KeyMsg{Type: tea.KeyUp})
	b, cmd = b.Update(tea.KeyMsg{Type: tea.KeyEnter})
	b, _ = b.Update(cmd())
	assert.Equal(t, filepath.Join(root, "Shows"), b.CurrentDir())
	assert.Contains(t, b.View(), "(no videos)")

	b, cmd = b.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	b, _ = b.Update(cmd())
	assert.Equal(t, root, b.CurrentDir())
	assert.Equal(t, "Shows", b.SelectedEntry().Name)
}

func TestFitName(t *testing.T) {
	assert.Equal(t, "short", fitName("short", 10, false))
	assert.Equal(t, "a-very...", fitName("a-very-long-name", 9, false))
	assert.Equal(t, "...g-name", fitName("a-very-long-name", 9, true))
}

func TestConstrainToHeight(t *testing.T) {
	assert.Equal(t, "a\nb", constrainToHeight("a\nb\nc\n", 2))
	assert.Equal(t, "a\n\n", constrainToHeight("a", 3))
	assert.Equal(t, "a", constrainToHeight("a", 0))
}
