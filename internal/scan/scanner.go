// Package scan decides whether a single walked file satisfies a query.
package scan

import (
	"context"
	"io"
	"os"

	"github.com/standardbeagle/filesearch/internal/errors"
	"github.com/standardbeagle/filesearch/internal/match"
	"github.com/standardbeagle/filesearch/internal/query"
	"github.com/standardbeagle/filesearch/internal/walk"
)

// DefaultMaxFileSize bounds how much of a file is read.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Options bounds content reads.
type Options struct {
	// MaxFileSize is the number of leading bytes searched in each file.
	MaxFileSize int64
	// SkipBinary drops files detected as binary without matching them.
	SkipBinary bool
}

// Scanner holds the matchers compiled for one request. It is safe for
// concurrent use by the request's workers.
type Scanner struct {
	content *match.Matcher
	name    *match.Matcher
	opts    Options
}

// New compiles the query's matchers. An invalid regular expression is
// reported here, before any file is touched.
func New(q *query.Query, opts Options) (*Scanner, error) {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	filters := q.Filters()
	s := &Scanner{opts: opts}

	if filters.NameFilter != nil {
		m, err := match.Compile(*filters.NameFilter, filters, match.TargetName)
		if err != nil {
			return nil, err
		}
		s.name = m
		if q.NameOnly() {
			return s, nil
		}
	}

	m, err := match.Compile(q.Text(), filters, match.TargetContent)
	if err != nil {
		return nil, err
	}
	s.content = m
	return s, nil
}

// NameOnly reports whether file content is never read.
func (s *Scanner) NameOnly() bool {
	return s.content == nil
}

// Scan reports whether cand matches. Directories never match. A read
// failure is returned as a *errors.ScanError and concerns this file only.
func (s *Scanner) Scan(ctx context.Context, cand walk.Candidate) (bool, error) {
	if cand.IsDirectory {
		return false, nil
	}
	if s.name != nil && !s.name.MatchString(cand.Name) {
		return false, nil
	}
	if s.content == nil || s.content.Mode() == match.ModeAll {
		return true, nil
	}
	if s.opts.SkipBinary && IsBinaryName(cand.Name) {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	content, err := s.read(cand.AbsolutePath)
	if err != nil {
		return false, err
	}
	if s.opts.SkipBinary && IsBinaryContent(content) {
		return false, nil
	}
	return s.content.Match(content), nil
}

func (s *Scanner) read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewScanError("open", path, err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, s.opts.MaxFileSize))
	if err != nil {
		return nil, errors.NewScanError("read", path, err)
	}
	return content, nil
}
