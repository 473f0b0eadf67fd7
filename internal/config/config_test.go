package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/standardbeagle/filesearch/internal/errors"
)

// isolateHome points the global config lookup at an empty directory.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Workspace.Root)
	assert.Equal(t, "/file", cfg.Workspace.FileRoot)
	assert.Equal(t, 10*MB, cfg.Search.MaxFileSize)
	assert.Positive(t, cfg.Search.Workers)
	assert.Equal(t, 100, cfg.Search.DefaultRows)
	assert.True(t, cfg.Search.SkipBinary)
	assert.Contains(t, cfg.Exclude, "**/.git")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ProjectKDL(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ws"), 0o755))
	writeFile(t, dir, KDLFileName, `
workspace {
    root "ws"
    file_root "/content"
}
search {
    max_file_size "2MB"
    workers 3
    default_rows 5
    max_rows 50
    skip_binary false
    follow_symlinks true
    timeout_ms 1500
}
server {
    addr ":9000"
}
exclude {
    "**/node_modules"
    "**/dist"
}
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "ws"), cfg.Workspace.Root)
	assert.Equal(t, "/content", cfg.Workspace.FileRoot)
	assert.Equal(t, 2*MB, cfg.Search.MaxFileSize)
	assert.Equal(t, 3, cfg.Search.Workers)
	assert.Equal(t, 5, cfg.Search.DefaultRows)
	assert.Equal(t, 50, cfg.Search.MaxRows)
	assert.False(t, cfg.Search.SkipBinary)
	assert.True(t, cfg.Search.FollowSymlinks)
	assert.Equal(t, int64(1500), cfg.Search.Timeout().Milliseconds())
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"**/.git", "**/.hg", "**/.svn", "**/node_modules", "**/dist"}, cfg.Exclude)
}

func TestLoad_GlobalThenProject(t *testing.T) {
	home := isolateHome(t)
	writeFile(t, home, KDLFileName, `
workspace { root "/somewhere/else"; }
search { default_rows 7; max_rows 70; }
exclude "**/global"
`)
	dir := t.TempDir()
	writeFile(t, dir, KDLFileName, `
search { max_rows 700; }
exclude "**/project"
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Workspace.Root, "the global file never picks the workspace")
	assert.Equal(t, 7, cfg.Search.DefaultRows)
	assert.Equal(t, 700, cfg.Search.MaxRows)
	assert.Contains(t, cfg.Exclude, "**/global")
	assert.Contains(t, cfg.Exclude, "**/project")
}

func TestLoad_ProjectTOML(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	writeFile(t, dir, TOMLFileName, `
exclude = ["**/vendor"]

[search]
max_file_size = "512KB"
default_rows = 20
max_rows = 200
respect_gitignore = true
`)
	writeFile(t, dir, ".gitignore", "# build output\n/build/\n*.log\n!keep.log\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Workspace.Root)
	assert.Equal(t, 512*KB, cfg.Search.MaxFileSize)
	assert.Equal(t, 20, cfg.Search.DefaultRows)
	assert.True(t, cfg.Search.SkipBinary, "absent keys keep their defaults")
	assert.Equal(t, []string{"**/.git", "**/.hg", "**/.svn", "**/vendor", "build", "**/*.log"}, cfg.Exclude)
}

func TestLoad_KDLWinsOverTOML(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	writeFile(t, dir, KDLFileName, `search { default_rows 11; max_rows 110; }`)
	writeFile(t, dir, TOMLFileName, "[search]\ndefault_rows = 22\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 11, cfg.Search.DefaultRows)
}

func TestLoad_Errors(t *testing.T) {
	isolateHome(t)

	dir := t.TempDir()
	writeFile(t, dir, KDLFileName, `search { max_file_size "lots"; }`)
	_, err := Load(dir)
	assert.Error(t, err)

	dir = t.TempDir()
	writeFile(t, dir, KDLFileName, `search { unterminated`)
	_, err = Load(dir)
	assert.Error(t, err)

	dir = t.TempDir()
	writeFile(t, dir, TOMLFileName, "[search]\nno_such_key = 1\n")
	_, err = Load(dir)
	assert.Error(t, err)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Default("/ws")
	cfg.Workspace.FileRoot = "file"
	cfg.Search.MaxFileSize = 0
	cfg.Search.Workers = -1
	cfg.Search.DefaultRows = 10
	cfg.Search.MaxRows = 5
	cfg.Exclude = append(cfg.Exclude, "[unclosed")

	err := cfg.Validate()
	require.Error(t, err)

	var multi *fserrors.MultiError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 5)

	var ce *fserrors.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "workspace.file_root", ce.Field)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{"10MB", 10 * MB},
		{"10mb", 10 * MB},
		{"1GB", GB},
		{"512KB", 512 * KB},
		{"100B", 100},
		{"4096", 4096},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseSize("ten")
	assert.Error(t, err)

	assert.Equal(t, "10MB", (10 * MB).String())
	assert.Equal(t, "1536KB", (1536 * KB).String())
	assert.Equal(t, "100B", ByteSize(100).String())
}

func TestConfigTOMLRoundTrip(t *testing.T) {
	cfg := Default("/ws")
	cfg.Search.TimeoutMs = 250

	out, err := cfg.TOML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "max_file_size")
	assert.Contains(t, string(out), "10MB")

	var back Config
	require.NoError(t, toml.Unmarshal(out, &back))
	assert.Equal(t, *cfg, back)
}

func TestKDLTemplateLoads(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	writeFile(t, dir, KDLFileName, KDLTemplate())

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Workspace.Root)
	assert.Contains(t, cfg.Exclude, "**/node_modules")
	assert.NoError(t, cfg.Validate())
}

func TestConvertGitignoreLine(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{"", "", false},
		{"# comment", "", false},
		{"!important.log", "", false},
		{"*.log", "**/*.log", true},
		{"node_modules/", "**/node_modules", true},
		{"/build/", "build", true},
		{"docs/generated", "docs/generated", true},
		{"**/tmp", "**/tmp", true},
	}
	for _, tt := range tests {
		got, ok := convertGitignoreLine(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}
