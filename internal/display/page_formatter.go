// Package display renders search result pages for the terminal.
package display

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/standardbeagle/filesearch/internal/results"
	"github.com/standardbeagle/filesearch/internal/search"
)

// PageFormatter formats search responses for display
type PageFormatter struct {
	options FormatterOptions
}

// FormatterOptions controls page formatting
type FormatterOptions struct {
	Format       string // "text", "json", "compact"
	ShowLocation bool   // Print the Location next to each file
	ShowElapsed  bool   // Include the search time in the header
	Indent       string // Indentation string
}

// NewPageFormatter creates a new page formatter
func NewPageFormatter(options FormatterOptions) *PageFormatter {
	if options.Indent == "" {
		options.Indent = "  "
	}
	return &PageFormatter{options: options}
}

// Format formats one response
func (pf *PageFormatter) Format(resp *search.Response) string {
	if resp == nil {
		return "No results"
	}

	switch pf.options.Format {
	case "json":
		return pf.formatJSON(resp)
	case "compact":
		return pf.formatCompact(resp)
	default:
		return pf.formatText(resp)
	}
}

// formatJSON emits the same document the HTTP endpoint returns
func (pf *PageFormatter) formatJSON(resp *search.Response) string {
	data, err := json.MarshalIndent(resp, "", pf.options.Indent)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data) + "\n"
}

// formatCompact prints one workspace-relative path per line
func (pf *PageFormatter) formatCompact(resp *search.Response) string {
	var sb strings.Builder
	for _, doc := range resp.Body.Docs {
		sb.WriteString(doc.Path)
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatText groups the page by directory, keeping result order
func (pf *PageFormatter) formatText(resp *search.Response) string {
	var sb strings.Builder

	body := resp.Body
	if body.NumFound == 0 {
		sb.WriteString("No matching files")
	} else if len(body.Docs) == 0 {
		sb.WriteString(fmt.Sprintf("%d matching files, none at offset %d", body.NumFound, body.Start))
	} else {
		sb.WriteString(fmt.Sprintf("Showing %d-%d of %d matching files",
			body.Start+1, body.Start+len(body.Docs), body.NumFound))
	}
	sb.WriteString(fmt.Sprintf(" (sorted by %s)", resp.Sort))
	if pf.options.ShowElapsed {
		sb.WriteString(fmt.Sprintf(" in %v", resp.Elapsed.Round(time.Millisecond)))
	}
	sb.WriteString("\n")

	for _, f := range resp.Ignored {
		if f.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("Ignored unknown filter %s:%s (did you mean %s?)\n", f.Key, f.Value, f.Suggestion))
		} else {
			sb.WriteString(fmt.Sprintf("Ignored unknown filter %s:%s\n", f.Key, f.Value))
		}
	}
	if len(body.Docs) > 0 {
		sb.WriteString("\n")
	}

	groups := groupByDir(body.Docs)
	for _, g := range groups {
		dir := g.dir
		if dir == "." {
			dir = "(root)"
		}
		sb.WriteString(dir + "/\n")
		for i, doc := range g.docs {
			branch := "├─ "
			if i == len(g.docs)-1 {
				branch = "└─ "
			}
			sb.WriteString(pf.options.Indent)
			sb.WriteString(branch)
			sb.WriteString(doc.Name)
			if pf.options.ShowLocation {
				sb.WriteString(" [" + doc.Location + "]")
			}
			sb.WriteString("\n")
		}
	}

	if n := len(resp.Diagnostics); n > 0 {
		sb.WriteString(fmt.Sprintf("\n%d files could not be read\n", n))
	}
	return sb.String()
}

type dirGroup struct {
	dir  string
	docs []results.Document
}

// groupByDir starts a new group whenever the directory changes, so a sort by
// name can list the same directory more than once.
func groupByDir(docs []results.Document) []dirGroup {
	var groups []dirGroup
	for _, doc := range docs {
		dir := path.Dir(doc.Path)
		if n := len(groups); n > 0 && groups[n-1].dir == dir {
			groups[n-1].docs = append(groups[n-1].docs, doc)
			continue
		}
		groups = append(groups, dirGroup{dir: dir, docs: []results.Document{doc}})
	}
	return groups
}
