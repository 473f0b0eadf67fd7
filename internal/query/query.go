// Package query turns a compound search string into a free-text term and a
// strongly typed FilterSet.
//
// A compound query mixes free text with Key:Value filters, for example
//
//	hello world Location:/file/project Exclude:node_modules,dist CaseSensitive:true
//
// Only the keys in the closed FilterKey enumeration are interpreted; any other
// Key:Value segment is discarded. A parsed Query is never modified afterwards
// and may be shared by any number of goroutines.
package query

import (
	"slices"
	"strings"
)

// Term is a single free-text search term.
type Term struct {
	Text string
	// IsPhrase is set when Text holds more than one word; the words must then
	// occur contiguously and in order.
	IsPhrase bool
	// HasWildcard is set when Text starts or ends with '*'.
	HasWildcard bool
}

// NewTerm classifies text without altering it.
func NewTerm(text string) Term {
	return Term{
		Text:        text,
		IsPhrase:    strings.Contains(text, " "),
		HasWildcard: strings.HasPrefix(text, "*") || strings.HasSuffix(text, "*"),
	}
}

// IsEmpty reports whether the term has no text.
func (t Term) IsEmpty() bool {
	return t.Text == ""
}

// Words splits a phrase into its words.
func (t Term) Words() []string {
	return strings.Split(t.Text, " ")
}

// FilterKey enumerates the recognized filter keys.
type FilterKey int

const (
	KeyUnknown FilterKey = iota
	KeyLocation
	KeyExclude
	KeyName
	KeyNameLower
	KeyCaseSensitive
	KeyWholeWord
	KeyRegEx
)

var filterKeys = map[string]FilterKey{
	"Location":      KeyLocation,
	"Exclude":       KeyExclude,
	"Name":          KeyName,
	"NameLower":     KeyNameLower,
	"CaseSensitive": KeyCaseSensitive,
	"WholeWord":     KeyWholeWord,
	"RegEx":         KeyRegEx,
}

// LookupKey maps a filter key as written in a query to its FilterKey.
func LookupKey(name string) FilterKey {
	if k, ok := filterKeys[name]; ok {
		return k
	}
	return KeyUnknown
}

// String returns the key as written in a query.
func (k FilterKey) String() string {
	for name, key := range filterKeys {
		if key == k {
			return name
		}
	}
	return "Unknown"
}

// RecognizedKeys returns the recognized filter keys in a stable order.
func RecognizedKeys() []string {
	keys := make([]string, 0, len(filterKeys))
	for name := range filterKeys {
		keys = append(keys, name)
	}
	slices.Sort(keys)
	return keys
}

// FilterSet holds the structured scoping and behavior flags of a query.
type FilterSet struct {
	// LocationPrefix is the requested scope, empty for the whole workspace.
	LocationPrefix string
	// ExcludeNames are literal file or directory names to skip.
	ExcludeNames []string
	// NameFilter restricts matching to file names when set.
	NameFilter *Term
	// NameLower forces case-insensitive matching of NameFilter.
	NameLower     bool
	CaseSensitive bool
	WholeWord     bool
	UseRegex      bool
}

// HasLocation reports whether a scope was requested.
func (f FilterSet) HasLocation() bool {
	return f.LocationPrefix != ""
}

// Excludes reports whether name is one of the excluded literal names.
func (f FilterSet) Excludes(name string) bool {
	return slices.Contains(f.ExcludeNames, name)
}

// NameCaseSensitive reports whether the name filter is matched case-sensitively.
func (f FilterSet) NameCaseSensitive() bool {
	return f.CaseSensitive && !f.NameLower
}

func (f FilterSet) clone() FilterSet {
	out := f
	out.ExcludeNames = slices.Clone(f.ExcludeNames)
	if f.NameFilter != nil {
		nf := *f.NameFilter
		out.NameFilter = &nf
	}
	return out
}

// IgnoredFilter records an unrecognized Key:Value segment that was dropped.
type IgnoredFilter struct {
	Key   string
	Value string
	// Suggestion is the closest recognized key, if any is close enough.
	Suggestion string
}

// Query is the parsed form of a compound query string.
type Query struct {
	raw     string
	terms   []Term
	filters FilterSet
	ignored []IgnoredFilter
}

// Raw returns the string the query was parsed from.
func (q *Query) Raw() string {
	return q.raw
}

// Terms returns the free-text terms in order.
func (q *Query) Terms() []Term {
	return slices.Clone(q.terms)
}

// Text returns the free-text term, or an empty term when the query has none.
func (q *Query) Text() Term {
	if len(q.terms) == 0 {
		return Term{}
	}
	return q.terms[0]
}

// Filters returns a copy of the query's filters.
func (q *Query) Filters() FilterSet {
	return q.filters.clone()
}

// Ignored returns the unrecognized filters that were dropped during parsing.
func (q *Query) Ignored() []IgnoredFilter {
	return slices.Clone(q.ignored)
}

// NameOnly reports whether the query is answered from file names alone: a
// name filter is set and there is no content term.
func (q *Query) NameOnly() bool {
	return q.filters.NameFilter != nil && q.Text().IsEmpty()
}
