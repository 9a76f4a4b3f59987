// internal/output/html.go
package output

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// HTMLFormatter renders the Markdown export as a standalone HTML page.
type HTMLFormatter struct {
	md       *MarkdownFormatter
	markdown goldmark.Markdown
}

// NewHTMLFormatter creates a new HTMLFormatter.
func NewHTMLFormatter() *HTMLFormatter {
	return &HTMLFormatter{
		md: NewMarkdownFormatter(),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			// Page anchors and <details> blocks are raw HTML.
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

// Format converts the Markdown export to HTML.
func (f *HTMLFormatter) Format(w *Wiki) ([]byte, error) {
	src, err := f.md.Format(w)
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	if err := f.markdown.Convert(src, &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(w.Title))
	out.WriteString("</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

func (f *HTMLFormatter) Extension() string { return "html" }
