package wiki

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync/atomic"
)

// Completer issues a single generation call and returns the fully drained
// response text.
type Completer interface {
	Send(ctx context.Context, req ChatRequest) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req ChatRequest) (string, error)

// Send calls f(ctx, req).
func (f CompleterFunc) Send(ctx context.Context, req ChatRequest) (string, error) {
	return f(ctx, req)
}

var structureBlock = regexp.MustCompile(`(?s)<wiki_structure>.*?</wiki_structure>`)

// Resolver asks the model for a page structure and parses the markup it
// returns. Only one resolution runs at a time.
type Resolver struct {
	llm      Completer
	inFlight atomic.Bool
}

// NewResolver creates a Resolver that sends prompts through llm.
func NewResolver(llm Completer) *Resolver {
	return &Resolver{llm: llm}
}

// InFlight reports whether a resolution is currently running.
func (r *Resolver) InFlight() bool {
	return r.inFlight.Load()
}

// Resolve builds the structure-discovery prompt, sends it, and parses the
// response. A call made while another is running returns
// ErrResolutionInFlight without contacting the model.
func (r *Resolver) Resolve(ctx context.Context, fileTree, readme string, repo RepoIdentity, creds Credentials, language string) (*Structure, error) {
	if !repo.Complete() {
		return nil, &ValidationError{Msg: "invalid repository information: owner and repo name are required"}
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		return nil, ErrResolutionInFlight
	}
	defer r.inFlight.Store(false)

	prompt, err := BuildStructurePrompt(repo, fileTree, readme, language)
	if err != nil {
		return nil, err
	}

	response, err := r.llm.Send(ctx, NewUserRequest(repo, creds, language, prompt))
	if err != nil {
		return nil, fmt.Errorf("determining wiki structure: %w", err)
	}

	return ParseStructure(response)
}

// ---------- markup parsing ----------

type xmlStructure struct {
	Title       *string
	Description *string
	Pages       []xmlPage
}

type xmlPage struct {
	ID           string
	Title        *string
	Description  *string
	Importance   *string
	FilePaths    []string
	RelatedPages []string
}

// decodeStructure walks the block token by token. Page, file_path and
// related elements are collected at any depth, so wrapper elements are
// optional. The first title, description or importance in scope wins.
func decodeStructure(block string) (*xmlStructure, error) {
	dec := xml.NewDecoder(strings.NewReader(block))
	var (
		raw       xmlStructure
		page      *xmlPage
		depth     int
		pageDepth int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if name == "page" {
				if page != nil {
					raw.Pages = append(raw.Pages, *page)
				}
				page = &xmlPage{ID: attr(t, "id")}
				depth++
				pageDepth = depth
				continue
			}

			var target **string
			var list *[]string
			if page != nil {
				switch name {
				case "title":
					target = &page.Title
				case "description":
					target = &page.Description
				case "importance":
					target = &page.Importance
				case "file_path":
					list = &page.FilePaths
				case "related":
					list = &page.RelatedPages
				}
			} else {
				switch name {
				case "title":
					target = &raw.Title
				case "description":
					target = &raw.Description
				}
			}
			if target == nil && list == nil {
				depth++
				continue
			}

			var text string
			if err := dec.DecodeElement(&text, &t); err != nil {
				return nil, err
			}
			if list != nil {
				*list = append(*list, text)
			} else if *target == nil {
				*target = &text
			}

		case xml.EndElement:
			if page != nil && depth == pageDepth {
				raw.Pages = append(raw.Pages, *page)
				page = nil
			}
			depth--
		}
	}
	if page != nil {
		raw.Pages = append(raw.Pages, *page)
	}
	return &raw, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// ParseStructure extracts the first <wiki_structure> block from response
// and parses it. Enclosing code fences are stripped first.
func ParseStructure(response string) (*Structure, error) {
	text := StripFences(strings.TrimSpace(response), "xml")

	block := structureBlock.FindString(text)
	if block == "" {
		return nil, &NoStructureFoundError{Excerpt: excerpt(text, 200)}
	}

	raw, err := decodeStructure(block)
	if err != nil {
		return nil, &MalformedStructureError{Err: err}
	}

	s := &Structure{
		Title:       deref(raw.Title),
		Description: deref(raw.Description),
		Pages:       make([]Page, 0, len(raw.Pages)),
	}
	seen := make(map[string]bool, len(raw.Pages))
	for i, rp := range raw.Pages {
		id := strings.TrimSpace(rp.ID)
		if id == "" || seen[id] {
			id = placeholderID(i+1, seen)
		}
		seen[id] = true

		importance := ImportanceMedium
		if rp.Importance != nil {
			importance = ParseImportance(*rp.Importance)
		}

		s.Pages = append(s.Pages, Page{
			ID:           id,
			Title:        deref(rp.Title),
			Description:  deref(rp.Description),
			FilePaths:    nonEmpty(rp.FilePaths),
			Importance:   importance,
			RelatedPages: nonEmpty(rp.RelatedPages),
		})
	}
	return s, nil
}

// placeholderID returns page-N, bumping N until it is unused.
func placeholderID(n int, seen map[string]bool) string {
	for {
		id := fmt.Sprintf("page-%d", n)
		if !seen[id] {
			return id
		}
		n++
	}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
