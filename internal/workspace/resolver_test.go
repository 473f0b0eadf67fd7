package workspace

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/filesearch/internal/errors"
	"github.com/standardbeagle/filesearch/testhelpers"
)

func newResolver(t *testing.T, ws *testhelpers.Workspace) *Resolver {
	t.Helper()
	r, err := NewResolver(ws.Root, "")
	require.NoError(t, err)
	return r
}

func evalPath(t *testing.T, p string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return resolved
}

func TestResolve(t *testing.T) {
	ws := testhelpers.NewWorkspace(t).
		File("project/fizz.txt", "hello").
		Dir("my project/src").
		Build()
	r := newResolver(t, ws)

	tests := []struct {
		location string
		want     string
	}{
		{"", ws.Root},
		{"/file", ws.Root},
		{"/file/", ws.Root},
		{"/file/project", ws.Path("project")},
		{"/file/project/", ws.Path("project")},
		{"/file/my%20project/src", ws.Path("my project/src")},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			got, err := r.Resolve(tt.location)
			require.NoError(t, err)
			assert.Equal(t, evalPath(t, tt.want), got)
		})
	}
}

func TestResolve_ScopeErrors(t *testing.T) {
	ws := testhelpers.NewWorkspace(t).File("project/fizz.txt", "hello").Build()
	r := newResolver(t, ws)

	for _, location := range []string{
		"/file/missing",
		"/file/project/fizz.txt",
		"/file/../..",
		"/file/project/../../etc",
		"/filesystem/project",
		"/workspace/project",
		"/file/bad%zzescape",
	} {
		t.Run(location, func(t *testing.T) {
			_, err := r.Resolve(location)
			require.Error(t, err)
			assert.True(t, errors.IsScopeError(err))
		})
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	outside := testhelpers.NewWorkspace(t).Dir("secret").Build()
	ws := testhelpers.NewWorkspace(t).Symlink("escape", outside.Path("secret")).Build()
	r := newResolver(t, ws)

	_, err := r.Resolve("/file/escape")
	assert.True(t, errors.IsScopeError(err))
}

func TestNewResolver(t *testing.T) {
	ws := testhelpers.NewWorkspace(t).File("file.txt", "x").Build()

	_, err := NewResolver(ws.Path("file.txt"), "")
	assert.True(t, errors.IsScopeError(err))
	_, err = NewResolver(ws.Path("missing"), "")
	assert.True(t, errors.IsScopeError(err))

	r, err := NewResolver(ws.Root, "content/")
	require.NoError(t, err)
	assert.Equal(t, "/content", r.FileRoot())
}

func TestLocate(t *testing.T) {
	ws := testhelpers.NewWorkspace(t).Dir("my project").Build()
	r := newResolver(t, ws)

	assert.Equal(t, "/file/project/fizz.txt", r.Locate("project/fizz.txt"))
	assert.Equal(t, "/file/my%20project/a%3Fb.txt", r.Locate("my project/a?b.txt"))
	assert.Equal(t, "/file", r.Locate("."))

	dir, err := r.Resolve(r.Locate("my project"))
	require.NoError(t, err)
	assert.Equal(t, "my project", r.Relative(dir))
}
