// internal/output/markdown.go
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianshen/repowiki/internal/wiki"
)

// MarkdownFormatter outputs a Wiki as a single Markdown document.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format renders the Wiki as Markdown: a header, a table of contents and
// every page in structure order, each with an anchor for cross links.
func (f *MarkdownFormatter) Format(w *Wiki) ([]byte, error) {
	var b strings.Builder

	title := w.Title
	if title == "" {
		title = "Wiki Documentation"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if w.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", w.Description)
	}
	if w.RepoURL != "" {
		fmt.Fprintf(&b, "Repository: %s\n\n", w.RepoURL)
	}
	if !w.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated on: %s\n\n", w.GeneratedAt.UTC().Format(time.RFC3339))
	}

	b.WriteString("## Table of Contents\n\n")
	for _, p := range w.Pages {
		fmt.Fprintf(&b, "- [%s](#%s)\n", p.Title, p.ID)
	}
	b.WriteString("\n")

	titles := make(map[string]string, len(w.Pages))
	for _, p := range w.Pages {
		titles[p.ID] = p.Title
	}

	for _, p := range w.Pages {
		fmt.Fprintf(&b, "<a id='%s'></a>\n\n", p.ID)
		fmt.Fprintf(&b, "## %s\n\n", p.Title)
		if p.Importance != "" {
			fmt.Fprintf(&b, "*Importance: %s*\n\n", p.Importance)
		}
		if links := relatedLinks(p, titles); len(links) > 0 {
			fmt.Fprintf(&b, "Related topics: %s\n\n", strings.Join(links, ", "))
		}
		if len(p.FilePaths) > 0 {
			b.WriteString("<details>\n<summary>Relevant source files</summary>\n\n")
			for _, fp := range p.FilePaths {
				fmt.Fprintf(&b, "- %s\n", fp)
			}
			b.WriteString("\n</details>\n\n")
		}
		b.WriteString(strings.TrimRight(p.Content, "\n"))
		b.WriteString("\n\n---\n\n")
	}

	return []byte(b.String()), nil
}

func (f *MarkdownFormatter) Extension() string { return "md" }

// relatedLinks links related pages that exist; dangling ids are dropped.
func relatedLinks(p wiki.Page, titles map[string]string) []string {
	var links []string
	for _, id := range p.RelatedPages {
		if t, ok := titles[id]; ok {
			links = append(links, fmt.Sprintf("[%s](#%s)", t, id))
		}
	}
	return links
}
