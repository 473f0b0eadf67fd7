package testhelpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WorkspaceBuilder creates an isolated on-disk workspace for a test.
type WorkspaceBuilder struct {
	t        testing.TB
	files    map[string][]byte
	order    []string
	dirs     []string
	symlinks map[string]string
	modes    map[string]os.FileMode
}

// Workspace is a built workspace rooted in a per-test temporary directory.
type Workspace struct {
	t    testing.TB
	Root string
}

// NewWorkspace starts a workspace description. Nothing touches the disk until Build.
func NewWorkspace(t testing.TB) *WorkspaceBuilder {
	t.Helper()
	return &WorkspaceBuilder{
		t:        t,
		files:    make(map[string][]byte),
		symlinks: make(map[string]string),
		modes:    make(map[string]os.FileMode),
	}
}

// File adds a text file at the slash-separated relative path.
func (b *WorkspaceBuilder) File(rel, content string) *WorkspaceBuilder {
	return b.Bytes(rel, []byte(content))
}

// Bytes adds a file with raw content.
func (b *WorkspaceBuilder) Bytes(rel string, content []byte) *WorkspaceBuilder {
	if _, ok := b.files[rel]; !ok {
		b.order = append(b.order, rel)
	}
	b.files[rel] = content
	return b
}

// Dir adds an empty directory.
func (b *WorkspaceBuilder) Dir(rel string) *WorkspaceBuilder {
	b.dirs = append(b.dirs, rel)
	return b
}

// Symlink adds a symbolic link at rel pointing to target, relative to the link.
func (b *WorkspaceBuilder) Symlink(rel, target string) *WorkspaceBuilder {
	b.symlinks[rel] = target
	return b
}

// Mode sets the permission bits of a previously added file or directory.
func (b *WorkspaceBuilder) Mode(rel string, mode os.FileMode) *WorkspaceBuilder {
	b.modes[rel] = mode
	return b
}

// Build writes the workspace to disk. Permission changes are undone during
// cleanup so the temporary directory can be removed.
func (b *WorkspaceBuilder) Build() *Workspace {
	b.t.Helper()
	ws := &Workspace{t: b.t, Root: b.t.TempDir()}

	for _, rel := range b.dirs {
		require.NoError(b.t, os.MkdirAll(ws.Path(rel), 0o755))
	}
	for _, rel := range b.order {
		ws.Write(rel, string(b.files[rel]))
	}
	for rel, target := range b.symlinks {
		path := ws.Path(rel)
		require.NoError(b.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(b.t, os.Symlink(target, path))
	}
	for rel, mode := range b.modes {
		path := ws.Path(rel)
		require.NoError(b.t, os.Chmod(path, mode))
		b.t.Cleanup(func() { _ = os.Chmod(path, 0o755) })
	}
	return ws
}

// Path converts a slash-separated relative path to an absolute one.
func (w *Workspace) Path(rel string) string {
	return filepath.Join(w.Root, filepath.FromSlash(rel))
}

// Write creates or replaces a file, creating parent directories as needed.
func (w *Workspace) Write(rel, content string) {
	w.t.Helper()
	path := w.Path(rel)
	require.NoError(w.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(w.t, os.WriteFile(path, []byte(content), 0o644))
}

// Remove deletes a file or directory tree.
func (w *Workspace) Remove(rel string) {
	w.t.Helper()
	require.NoError(w.t, os.RemoveAll(w.Path(rel)))
}

// SampleProject builds the workspace used by the end-to-end search tests: a
// single project whose only file containing "hel" is fizz.txt.
func SampleProject(t testing.TB) *Workspace {
	t.Helper()
	return NewWorkspace(t).
		File("project/fizz.txt", "hello world\n").
		File("project/folder/space.txt", "lightyear\nto infinity\n").
		File("project/page.html", "<html>\n<body>amber&sand</body>\n<script>myFunc(one, two)</script>\n</html>\n").
		File("project/notes/readme.md", "wide web of worlds\n").
		Build()
}
