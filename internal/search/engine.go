// Package search runs one file search request end to end: parse, resolve the
// scope, walk, scan in parallel, then sort and window the matches.
package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/filesearch/internal/config"
	"github.com/standardbeagle/filesearch/internal/debug"
	"github.com/standardbeagle/filesearch/internal/errors"
	"github.com/standardbeagle/filesearch/internal/query"
	"github.com/standardbeagle/filesearch/internal/results"
	"github.com/standardbeagle/filesearch/internal/scan"
	"github.com/standardbeagle/filesearch/internal/walk"
)

// Resolver maps Locations to directories and workspace-relative paths back
// to Locations.
type Resolver interface {
	Root() string
	Resolve(location string) (string, error)
	Locate(rel string) string
}

// Request is one search. Rows below zero selects the configured default.
type Request struct {
	Query string
	Sort  string
	Rows  int
	Start int
}

// Response is the result page of a search.
type Response struct {
	Body ResponseBody `json:"response"`

	// Diagnostics holds the files that matched the walk but could not be
	// read. They never fail the request.
	Diagnostics []error `json:"-"`
	// Ignored lists unrecognized filters dropped from the query.
	Ignored []query.IgnoredFilter `json:"-"`
	Sort    results.Sort          `json:"-"`
	Elapsed time.Duration         `json:"-"`
}

// ResponseBody is the page nested under "response" in the served document.
type ResponseBody struct {
	NumFound int                `json:"numFound"`
	Start    int                `json:"start"`
	Docs     []results.Document `json:"docs"`
}

// Engine is stateless between requests and safe for concurrent use.
type Engine struct {
	cfg      config.Search
	exclude  []string
	resolver Resolver
}

// NewEngine creates an engine for cfg's search settings.
func NewEngine(cfg *config.Config, resolver Resolver) *Engine {
	s := cfg.Search
	if s.Workers <= 0 {
		s.Workers = 1
	}
	if s.DefaultRows <= 0 {
		s.DefaultRows = config.Default("").Search.DefaultRows
	}
	return &Engine{
		cfg:      s,
		exclude:  cfg.Exclude,
		resolver: resolver,
	}
}

// Search executes req. It fails with *errors.ParseError for a malformed
// query, sort or window, *errors.ScopeError for an unusable Location, and the
// context's error when ctx ends before the page is complete.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()
	if timeout := e.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rows, err := e.rows(req)
	if err != nil {
		return nil, err
	}
	q, err := query.Parse(req.Query)
	if err != nil {
		return nil, err
	}
	order, err := results.ParseSort(req.Sort)
	if err != nil {
		return nil, err
	}
	scanner, err := scan.New(q, scan.Options{
		MaxFileSize: int64(e.cfg.MaxFileSize),
		SkipBinary:  e.cfg.SkipBinary,
	})
	if err != nil {
		return nil, err
	}

	filters := q.Filters()
	root, err := e.resolver.Resolve(filters.LocationPrefix)
	if err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(req)
	debug.LogSearch("[%016x] q=%q root=%s sort=%s rows=%d start=%d\n",
		fingerprint, req.Query, root, order, rows, req.Start)

	walker := walk.New(root, walk.Options{
		WorkspaceRoot:  e.resolver.Root(),
		ExcludeNames:   filters.ExcludeNames,
		IgnorePatterns: e.exclude,
		FollowSymlinks: e.cfg.FollowSymlinks,
	})

	matches, diagnostics, err := e.collect(ctx, walker, scanner)
	if err != nil {
		debug.LogSearch("[%016x] aborted: %v\n", fingerprint, err)
		return nil, err
	}

	page := results.Collect(matches, order, req.Start, rows, e.resolver.Locate)
	resp := &Response{
		Body: ResponseBody{
			NumFound: page.NumFound,
			Start:    page.Start,
			Docs:     page.Docs,
		},
		Diagnostics: diagnostics,
		Ignored:     q.Ignored(),
		Sort:        order,
		Elapsed:     time.Since(started),
	}
	debug.LogSearch("[%016x] found=%d returned=%d unreadable=%d in %v\n",
		fingerprint, page.NumFound, len(page.Docs), len(diagnostics), resp.Elapsed)
	return resp, nil
}

// collect walks on the calling goroutine and scans candidates on a bounded
// pool. Matches are only read after every scan has finished.
func (e *Engine) collect(ctx context.Context, walker *walk.Walker, scanner *scan.Scanner) ([]string, []error, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	var (
		mu          sync.Mutex
		matches     []string
		diagnostics []error
	)

	walkErr := walker.Walk(gctx, func(cand walk.Candidate) error {
		if cand.IsDirectory {
			return nil
		}
		g.Go(func() error {
			ok, err := scanner.Scan(gctx, cand)
			if err != nil {
				var se *errors.ScanError
				if stderrors.As(err, &se) {
					debug.LogSearch("unreadable %s: %v\n", cand.RelativePath, err)
					mu.Lock()
					diagnostics = append(diagnostics, err)
					mu.Unlock()
					return nil
				}
				return err
			}
			if !ok {
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			mu.Lock()
			matches = append(matches, cand.RelativePath)
			mu.Unlock()
			return nil
		})
		return nil
	})

	waitErr := g.Wait()
	if walkErr != nil {
		return nil, nil, walkErr
	}
	if waitErr != nil {
		return nil, nil, waitErr
	}
	// a cancelled request never produces a page, even if every task finished
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return matches, diagnostics, nil
}

// Scope returns the directory a query searches, resolving its Location filter.
func (e *Engine) Scope(raw string) (string, error) {
	q, err := query.Parse(raw)
	if err != nil {
		return "", err
	}
	return e.resolver.Resolve(q.Filters().LocationPrefix)
}

// Root returns the workspace root.
func (e *Engine) Root() string {
	return e.resolver.Root()
}

// Exclude returns the configured ignore globs.
func (e *Engine) Exclude() []string {
	return e.exclude
}

func (e *Engine) rows(req Request) (int, error) {
	if req.Start < 0 {
		return 0, errors.NewParseError("start", fmt.Sprint(req.Start), stderrors.New("must not be negative"))
	}
	rows := req.Rows
	if rows < 0 {
		rows = e.cfg.DefaultRows
	}
	if e.cfg.MaxRows > 0 && rows > e.cfg.MaxRows {
		rows = e.cfg.MaxRows
	}
	return rows, nil
}

// Fingerprint identifies a request in logs and watch output.
func Fingerprint(req Request) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(req.Query)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(req.Sort)
	_, _ = fmt.Fprintf(d, "\x00%d\x00%d", req.Rows, req.Start)
	return d.Sum64()
}
