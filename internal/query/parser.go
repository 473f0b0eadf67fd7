package query

import (
	"strconv"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/filesearch/internal/debug"
	"github.com/standardbeagle/filesearch/internal/errors"
)

// maxSuggestionDistance bounds the edit distance for did-you-mean hints.
const maxSuggestionDistance = 2

// Parse parses an already-decoded compound query string.
//
// Segments are separated by whitespace. A '+' also separates segments when
// the text after it begins a filter, so "hello+Location:/file/ws" and
// "hello Location:/file/ws" are equivalent while "C++" stays literal.
// Parse fails only when a recognized key carries a value of the wrong type.
func Parse(raw string) (*Query, error) {
	p := &parser{}
	for _, seg := range splitSegments(raw) {
		if err := p.segment(seg); err != nil {
			return nil, err
		}
	}

	q := &Query{
		raw:     raw,
		filters: p.filters,
		ignored: p.ignored,
	}
	if len(p.text) > 0 {
		q.terms = []Term{NewTerm(strings.Join(p.text, " "))}
	}
	return q, nil
}

type parser struct {
	text    []string
	filters FilterSet
	ignored []IgnoredFilter
}

func (p *parser) segment(seg string) error {
	key, value, ok := splitFilter(seg)
	if !ok {
		p.text = append(p.text, seg)
		return nil
	}

	switch LookupKey(key) {
	case KeyLocation:
		p.filters.LocationPrefix = strings.TrimRight(value, "*")
	case KeyExclude:
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				p.filters.ExcludeNames = append(p.filters.ExcludeNames, name)
			}
		}
	case KeyName:
		t := NewTerm(value)
		p.filters.NameFilter = &t
		p.filters.NameLower = false
	case KeyNameLower:
		t := NewTerm(value)
		p.filters.NameFilter = &t
		p.filters.NameLower = true
	case KeyCaseSensitive:
		return parseBool(key, value, &p.filters.CaseSensitive)
	case KeyWholeWord:
		return parseBool(key, value, &p.filters.WholeWord)
	case KeyRegEx:
		return parseBool(key, value, &p.filters.UseRegex)
	default:
		ignored := IgnoredFilter{Key: key, Value: value, Suggestion: suggestKey(key)}
		p.ignored = append(p.ignored, ignored)
		if ignored.Suggestion != "" {
			debug.LogSearch("ignoring unknown filter %s:%s (did you mean %s?)\n", key, value, ignored.Suggestion)
		} else {
			debug.LogSearch("ignoring unknown filter %s:%s\n", key, value)
		}
	}
	return nil
}

func parseBool(key, value string, dst *bool) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return errors.NewParseError(key, value, err)
	}
	*dst = b
	return nil
}

// splitFilter splits a Key:Value segment. Keys start with an upper-case ASCII
// letter followed by ASCII letters or digits; the value must be non-empty and
// must not start with ':'.
func splitFilter(seg string) (key, value string, ok bool) {
	n := filterKeyLen(seg)
	if n == 0 || n+1 >= len(seg) {
		return "", "", false
	}
	return seg[:n], seg[n+1:], true
}

// filterKeyLen returns the length of the key when s starts with "Key:x",
// otherwise 0. A value starting with ':' keeps "Foo::bar" a search term.
func filterKeyLen(s string) int {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return 0
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ':':
			if i+1 < len(s) && s[i+1] != ':' {
				return i
			}
			return 0
		case isASCIILetter(c) || (c >= '0' && c <= '9'):
		default:
			return 0
		}
	}
	return 0
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func splitSegments(raw string) []string {
	var out []string
	for _, field := range strings.Fields(raw) {
		start := 0
		for i := 0; i < len(field); i++ {
			if field[i] != '+' || filterKeyLen(field[i+1:]) == 0 {
				continue
			}
			if i > start {
				out = append(out, field[start:i])
			}
			start = i + 1
		}
		if start < len(field) {
			out = append(out, field[start:])
		}
	}
	return out
}

func suggestKey(key string) string {
	best, bestDist := "", maxSuggestionDistance+1
	lower := strings.ToLower(key)
	for _, candidate := range RecognizedKeys() {
		d := edlib.LevenshteinDistance(lower, strings.ToLower(candidate))
		if d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
