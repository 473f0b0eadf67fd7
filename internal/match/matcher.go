// Package match compiles a query term and its filter flags into a predicate
// over file names or file content.
package match

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/filesearch/internal/errors"
	"github.com/standardbeagle/filesearch/internal/query"
)

// Target selects what a Matcher is applied to.
type Target int

const (
	// TargetContent matches anywhere inside file content.
	TargetContent Target = iota
	// TargetName matches file names; wildcard terms must match the whole name.
	TargetName
)

func (t Target) String() string {
	if t == TargetName {
		return "name"
	}
	return "content"
}

// Mode is the matching strategy chosen for a term.
type Mode int

const (
	ModeAll Mode = iota
	ModeRegex
	ModeWildcard
	ModeWholeWord
	ModeSubstring
)

var modeNames = [...]string{"all", "regex", "wildcard", "whole-word", "substring"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

const (
	// phraseGap separates the words of a phrase.
	phraseGap = `[ \t]+`
	nonWord   = `[^A-Za-z0-9_]`
)

// Matcher is a compiled, immutable predicate. It is safe for concurrent use.
type Matcher struct {
	term   query.Term
	target Target
	mode   Mode

	re      *regexp.Regexp
	literal []byte
	glob    string
	fold    bool
}

// Compile builds the predicate for term under fs. Precedence is regex, then
// wildcard, then whole word, then plain substring. Name targets use the
// name-specific case rule of fs (NameLower forces case-insensitivity).
func Compile(term query.Term, fs query.FilterSet, target Target) (*Matcher, error) {
	caseSensitive := fs.CaseSensitive
	if target == TargetName {
		caseSensitive = fs.NameCaseSensitive()
	}

	m := &Matcher{term: term, target: target, fold: !caseSensitive}

	switch {
	case term.IsEmpty():
		m.mode = ModeAll
		return m, nil

	case fs.UseRegex:
		m.mode = ModeRegex
		re, err := compileRegexp(term.Text, caseSensitive, fs.WholeWord)
		if err != nil {
			return nil, errors.NewParseError("RegEx", term.Text, err)
		}
		m.re = re

	case term.HasWildcard:
		m.mode = ModeWildcard
		if target == TargetName {
			m.glob = escapeGlob(term.Text)
			if m.fold {
				m.glob = strings.ToLower(m.glob)
			}
			if !doublestar.ValidatePattern(m.glob) {
				return nil, errors.NewParseError("Name", term.Text, doublestar.ErrBadPattern)
			}
			return m, nil
		}
		re, err := compileRegexp(globToRegexp(term.Text), caseSensitive, fs.WholeWord)
		if err != nil {
			return nil, errors.NewParseError("q", term.Text, err)
		}
		m.re = re

	case fs.WholeWord:
		m.mode = ModeWholeWord
		if caseSensitive && !term.IsPhrase {
			m.literal = []byte(term.Text)
			return m, nil
		}
		re, err := compileRegexp(literalToRegexp(term.Text), caseSensitive, true)
		if err != nil {
			return nil, errors.NewParseError("q", term.Text, err)
		}
		m.re = re

	default:
		m.mode = ModeSubstring
		if caseSensitive && !term.IsPhrase {
			m.literal = []byte(term.Text)
			return m, nil
		}
		re, err := compileRegexp(literalToRegexp(term.Text), caseSensitive, false)
		if err != nil {
			return nil, errors.NewParseError("q", term.Text, err)
		}
		m.re = re
	}
	return m, nil
}

// Mode returns the strategy the matcher was compiled with.
func (m *Matcher) Mode() Mode {
	return m.mode
}

// Target returns what the matcher applies to.
func (m *Matcher) Target() Target {
	return m.target
}

// Term returns the term the matcher was compiled from.
func (m *Matcher) Term() query.Term {
	return m.term
}

// Match reports whether text satisfies the term. It stops at the first
// satisfying occurrence.
func (m *Matcher) Match(text []byte) bool {
	switch {
	case m.mode == ModeAll:
		return true
	case m.glob != "":
		return m.matchGlob(string(text))
	case m.re != nil:
		return m.re.Match(text)
	case m.mode == ModeWholeWord:
		return ContainsWholeWord(text, m.literal)
	default:
		return bytes.Contains(text, m.literal)
	}
}

// MatchString is Match for strings.
func (m *Matcher) MatchString(text string) bool {
	switch {
	case m.mode == ModeAll:
		return true
	case m.glob != "":
		return m.matchGlob(text)
	case m.re != nil:
		return m.re.MatchString(text)
	case m.mode == ModeWholeWord:
		return ContainsWholeWord([]byte(text), m.literal)
	default:
		return strings.Contains(text, string(m.literal))
	}
}

func (m *Matcher) matchGlob(name string) bool {
	if m.fold {
		name = strings.ToLower(name)
	}
	ok, err := doublestar.Match(m.glob, name)
	return err == nil && ok
}

func compileRegexp(pattern string, caseSensitive, wholeWord bool) (*regexp.Regexp, error) {
	if wholeWord {
		pattern = `(?:^|` + nonWord + `)(?:` + pattern + `)(?:$|` + nonWord + `)`
	}
	if !caseSensitive {
		pattern = `(?i)` + pattern
	}
	return regexp.Compile(pattern)
}

// literalToRegexp quotes text and lets the words of a phrase be separated by
// any run of spaces or tabs.
func literalToRegexp(text string) string {
	words := strings.Split(text, " ")
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, phraseGap)
}

// globToRegexp converts a glob where only '*' is special into an unanchored
// regular expression. '*' matches any run of characters within a line.
func globToRegexp(text string) string {
	parts := strings.Split(text, "*")
	for i, p := range parts {
		parts[i] = literalToRegexp(p)
	}
	return strings.Join(parts, ".*")
}

// escapeGlob escapes every doublestar metacharacter except '*'.
func escapeGlob(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '\\', '?', '[', ']', '{', '}':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
