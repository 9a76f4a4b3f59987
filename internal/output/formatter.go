// internal/output/formatter.go
package output

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianshen/repowiki/internal/wiki"
)

// ErrNothingToExport is returned when a wiki has no generated page content.
var ErrNothingToExport = errors.New("no wiki content to export")

// Wiki is a generated wiki ready for export. Every page of the structure
// is present; pages without content carry wiki.NotGeneratedContent.
type Wiki struct {
	RepoURL     string      `json:"repo_url"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Pages       []wiki.Page `json:"pages"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// NewWiki assembles an export from a structure and its page contents.
// Pages missing from contents, or whose content is empty, get the
// not-generated placeholder.
func NewWiki(repoURL string, s *wiki.Structure, contents map[string]string, at time.Time) *Wiki {
	w := &Wiki{
		RepoURL:     repoURL,
		Title:       s.Title,
		Description: s.Description,
		GeneratedAt: at,
	}
	for _, p := range s.Pages {
		c := contents[p.ID]
		if c == "" || c == wiki.LoadingContent {
			c = wiki.NotGeneratedContent
		}
		p.Content = c
		w.Pages = append(w.Pages, p)
	}
	return w
}

// HasContent reports whether at least one page has generated content.
func (w *Wiki) HasContent() bool {
	for _, p := range w.Pages {
		if p.Content != "" && p.Content != wiki.NotGeneratedContent {
			return true
		}
	}
	return false
}

// Formatter formats a Wiki into output bytes.
type Formatter interface {
	Format(w *Wiki) ([]byte, error)
	// Extension is the file extension without the dot.
	Extension() string
}

// NewFormatter returns the formatter for "markdown", "json" or "html".
func NewFormatter(format string) (Formatter, error) {
	switch format {
	case "markdown", "md":
		return NewMarkdownFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "html":
		return NewHTMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// Filename is the download name for a repository's export.
func Filename(repo string, f Formatter) string {
	return repo + "_wiki." + f.Extension()
}
