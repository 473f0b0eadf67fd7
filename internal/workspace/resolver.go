// Package workspace maps search Locations to directories inside the
// workspace root and workspace-relative paths back to Locations.
package workspace

import (
	stderrors "errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/filesearch/internal/errors"
	"github.com/standardbeagle/filesearch/pkg/pathutil"
)

// DefaultFileRoot prefixes every Location.
const DefaultFileRoot = "/file"

var (
	errOutsideWorkspace = stderrors.New("outside the workspace")
	errNotDirectory     = stderrors.New("not a directory")
	errForeignLocation  = stderrors.New("not under the file root")
)

// Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	root     string
	fileRoot string
}

// NewResolver resolves root to an absolute, symlink-free directory.
func NewResolver(root, fileRoot string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.NewScopeError(root, root, err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.NewScopeError(root, abs, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.NewScopeError(root, abs, err)
	}
	if !info.IsDir() {
		return nil, errors.NewScopeError(root, abs, errNotDirectory)
	}

	if fileRoot == "" {
		fileRoot = DefaultFileRoot
	}
	fileRoot = "/" + strings.Trim(fileRoot, "/")

	return &Resolver{root: abs, fileRoot: fileRoot}, nil
}

// Root returns the absolute workspace directory.
func (r *Resolver) Root() string {
	return r.root
}

// FileRoot returns the Location prefix, for example "/file".
func (r *Resolver) FileRoot() string {
	return r.fileRoot
}

// Resolve maps a Location such as "/file/project/src" to a directory inside
// the workspace. An empty Location or the bare file root is the workspace
// itself. Locations are percent-decoded per path segment.
func (r *Resolver) Resolve(location string) (string, error) {
	if location == "" {
		return r.root, nil
	}

	rest, ok := strings.CutPrefix(location, r.fileRoot)
	if !ok || (rest != "" && rest[0] != '/') {
		return "", errors.NewScopeError(location, "", errForeignLocation)
	}

	rel, err := url.PathUnescape(strings.Trim(rest, "/"))
	if err != nil {
		return "", errors.NewScopeError(location, "", err)
	}

	target := pathutil.FromSlashRelative(r.root, rel)
	if !pathutil.IsWithin(target, r.root) {
		return "", errors.NewScopeError(location, target, errOutsideWorkspace)
	}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", errors.NewScopeError(location, target, err)
	}
	if !pathutil.IsWithin(resolved, r.root) {
		return "", errors.NewScopeError(location, resolved, errOutsideWorkspace)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", errors.NewScopeError(location, resolved, err)
	}
	if !info.IsDir() {
		return "", errors.NewScopeError(location, resolved, errNotDirectory)
	}
	return resolved, nil
}

// Locate builds the Location of a workspace-relative, slash-separated path.
func (r *Resolver) Locate(rel string) string {
	if rel == "" || rel == "." {
		return r.fileRoot
	}
	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return r.fileRoot + "/" + strings.Join(segments, "/")
}

// Relative converts an absolute path inside the workspace to its
// workspace-relative form.
func (r *Resolver) Relative(abs string) string {
	return pathutil.ToRelative(abs, r.root)
}
