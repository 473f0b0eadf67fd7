// Package results orders, counts and windows the matches of one search.
package results

import (
	"cmp"
	stderrors "errors"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/standardbeagle/filesearch/internal/errors"
)

// SortField names a sortable document attribute.
type SortField string

const (
	SortPath      SortField = "Path"
	SortNameLower SortField = "NameLower"
)

// Sort is a parsed sort specification such as "Path asc".
type Sort struct {
	Field SortField
	Desc  bool
}

// DefaultSort orders by path, ascending.
var DefaultSort = Sort{Field: SortPath}

func (s Sort) String() string {
	if s.Desc {
		return string(s.Field) + " desc"
	}
	return string(s.Field) + " asc"
}

// ParseSort parses "<Field> [asc|desc]". An empty string yields DefaultSort.
// "Name" is accepted as an alias of NameLower.
func ParseSort(raw string) (Sort, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return DefaultSort, nil
	}
	if len(fields) > 2 {
		return Sort{}, errors.NewParseError("sort", raw, stderrors.New("expected <field> [asc|desc]"))
	}

	var s Sort
	switch strings.ToLower(fields[0]) {
	case "path":
		s.Field = SortPath
	case "namelower", "name":
		s.Field = SortNameLower
	default:
		return Sort{}, errors.NewParseError("sort", raw, stderrors.New("unknown sort field "+fields[0]))
	}

	if len(fields) == 2 {
		switch strings.ToLower(fields[1]) {
		case "asc":
		case "desc":
			s.Desc = true
		default:
			return Sort{}, errors.NewParseError("sort", raw, stderrors.New("unknown sort direction "+fields[1]))
		}
	}
	return s, nil
}

// ParsePagination parses the rows and start request parameters. Empty values
// take defaults; rows is capped at maxRows when maxRows is positive.
func ParsePagination(rows, start string, defaultRows, maxRows int) (int, int, error) {
	r, err := parseNonNegative("rows", rows, defaultRows)
	if err != nil {
		return 0, 0, err
	}
	s, err := parseNonNegative("start", start, 0)
	if err != nil {
		return 0, 0, err
	}
	if maxRows > 0 && r > maxRows {
		r = maxRows
	}
	return r, s, nil
}

func parseNonNegative(key, raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewParseError(key, raw, err)
	}
	if n < 0 {
		return 0, errors.NewParseError(key, raw, stderrors.New("must not be negative"))
	}
	return n, nil
}

// Document describes one matching file in a result page.
type Document struct {
	Location string `json:"Location"`
	Name     string `json:"Name"`
	Path     string `json:"Path"`
}

// Page is one window of an ordered result set.
type Page struct {
	Docs []Document
	// NumFound counts every match, not just the ones in Docs.
	NumFound int
	Start    int
	Rows     int
}

// Locator builds the externally addressable location of a workspace-relative path.
type Locator func(relPath string) string

// Collect sorts the workspace-relative paths of all matches and returns the
// window [start, start+rows). paths is not modified. A start beyond the end
// yields an empty page with the full count.
func Collect(paths []string, sort Sort, start, rows int, locate Locator) *Page {
	ordered := slices.Clone(paths)
	slices.SortStableFunc(ordered, compareFunc(sort))

	n := len(ordered)
	lo := min(max(start, 0), n)
	hi := min(lo+max(rows, 0), n)

	page := &Page{
		Docs:     make([]Document, 0, hi-lo),
		NumFound: n,
		Start:    start,
		Rows:     rows,
	}
	for _, rel := range ordered[lo:hi] {
		doc := Document{Name: path.Base(rel), Path: rel}
		if locate != nil {
			doc.Location = locate(rel)
		}
		page.Docs = append(page.Docs, doc)
	}
	return page
}

func compareFunc(s Sort) func(a, b string) int {
	var by func(a, b string) int
	switch s.Field {
	case SortNameLower:
		by = func(a, b string) int {
			if c := cmp.Compare(strings.ToLower(path.Base(a)), strings.ToLower(path.Base(b))); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		}
	default:
		by = cmp.Compare[string]
	}
	if s.Desc {
		return func(a, b string) int { return by(b, a) }
	}
	return by
}
