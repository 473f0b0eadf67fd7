// Package walk enumerates the files and directories under a search scope.
package walk

import (
	"context"
	stderrors "errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/filesearch/internal/debug"
	"github.com/standardbeagle/filesearch/internal/errors"
)

// Candidate is one filesystem entry found under the scope.
type Candidate struct {
	AbsolutePath string
	// RelativePath is slash-separated and relative to the workspace root.
	RelativePath string
	Name         string
	IsDirectory  bool
	Size         int64
}

// Options controls what the walker skips.
type Options struct {
	// WorkspaceRoot anchors RelativePath. Defaults to the walk root.
	WorkspaceRoot string
	// ExcludeNames are literal base names; excluded directories are not entered.
	ExcludeNames []string
	// IgnorePatterns are doublestar globs over the workspace-relative path.
	IgnorePatterns []string
	// FollowSymlinks emits symlinked regular files. Symlinked directories are
	// never followed.
	FollowSymlinks bool
}

// Walker performs a depth-first, lexically ordered traversal of one root.
// A Walker holds no state between walks.
type Walker struct {
	root string
	opts Options
}

// errStop ends a walk early without reporting an error.
var errStop = stderrors.New("walk stopped")

// New creates a walker for root.
func New(root string, opts Options) *Walker {
	if opts.WorkspaceRoot == "" {
		opts.WorkspaceRoot = root
	}
	return &Walker{root: root, opts: opts}
}

// Root returns the directory being walked.
func (w *Walker) Root() string {
	return w.root
}

// Walk calls fn for every entry below the root, excluding the root itself.
// Walking stops at the first error returned by fn or when ctx is done.
func (w *Walker) Walk(ctx context.Context, fn func(Candidate) error) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return errors.NewScopeError(w.root, w.root, err)
	}
	if !info.IsDir() {
		return errors.NewScopeError(w.root, w.root, stderrors.New("not a directory"))
	}

	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			if path == w.root {
				return errors.NewScopeError(w.root, path, walkErr)
			}
			debug.LogWalk("skipping %s: %v\n", path, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == w.root {
			return nil
		}

		rel := w.relative(path)
		if w.excluded(d.Name(), rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		cand := Candidate{
			AbsolutePath: path,
			RelativePath: rel,
			Name:         d.Name(),
			IsDirectory:  d.IsDir(),
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !w.opts.FollowSymlinks {
				return nil
			}
			target, err := os.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
			cand.Size = target.Size()
			return fn(cand)
		}

		if !d.IsDir() {
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				debug.LogWalk("skipping %s: %v\n", path, err)
				return nil
			}
			cand.Size = info.Size()
		}
		return fn(cand)
	})
	if stderrors.Is(err, errStop) {
		return nil
	}
	return err
}

// Enumerate returns the traversal as a lazy sequence. Each iteration performs
// a fresh walk. A non-nil error is yielded once, as the last element.
func (w *Walker) Enumerate(ctx context.Context) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		err := w.Walk(ctx, func(c Candidate) error {
			if !yield(c, nil) {
				return errStop
			}
			return nil
		})
		if err != nil {
			yield(Candidate{}, err)
		}
	}
}

// Excludes reports whether a walk would skip path, an absolute path below the
// root. Only the entry itself is checked, not its ancestors.
func (w *Walker) Excludes(path string) bool {
	return w.excluded(filepath.Base(path), w.relative(path))
}

// Relative returns path relative to the workspace root, slash-separated.
func (w *Walker) Relative(path string) string {
	return w.relative(path)
}

func (w *Walker) relative(path string) string {
	rel, err := filepath.Rel(w.opts.WorkspaceRoot, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Walker) excluded(name, rel string) bool {
	if slices.Contains(w.opts.ExcludeNames, name) {
		return true
	}
	for _, pattern := range w.opts.IgnorePatterns {
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			// bad patterns are rejected by config validation
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
