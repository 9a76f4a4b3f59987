package site

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/julianshen/repowiki/internal/wiki"
)

// Config controls how the site renderer writes output files.
type Config struct {
	Format    string // "raw-md", "hugo", or "docusaurus"
	OutputDir string // root output directory
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Format:    "raw-md",
		OutputDir: "docs/wiki",
	}
}

// Document is one file of the rendered site.
type Document struct {
	Path    string // relative to the content root
	Title   string
	Content string
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Documents lays out a wiki as an index page followed by one document per
// page, in structure order.
func Documents(s *wiki.Structure, pages []wiki.Page) []Document {
	var index strings.Builder
	fmt.Fprintf(&index, "# %s\n\n", s.Title)
	if s.Description != "" {
		fmt.Fprintf(&index, "%s\n\n", s.Description)
	}
	for _, p := range pages {
		fmt.Fprintf(&index, "- [%s](%s)\n", p.Title, pageFile(p))
	}

	docs := []Document{{Path: "index.md", Title: s.Title, Content: index.String()}}
	for _, p := range pages {
		docs = append(docs, Document{Path: pageFile(p), Title: p.Title, Content: p.Content})
	}
	return docs
}

func pageFile(p wiki.Page) string {
	name := strings.Trim(unsafeChars.ReplaceAllString(p.ID, "-"), "-")
	if name == "" {
		name = "page"
	}
	return name + ".md"
}

// Render writes the given documents to disk in the configured format.
func Render(documents []Document, cfg Config) error {
	switch cfg.Format {
	case "raw-md":
		return renderRawMarkdown(documents, cfg)
	case "hugo":
		return renderHugo(documents, cfg)
	case "docusaurus":
		return renderDocusaurus(documents, cfg)
	default:
		return fmt.Errorf("unsupported render format: %s", cfg.Format)
	}
}

func renderRawMarkdown(documents []Document, cfg Config) error {
	for _, doc := range documents {
		path := filepath.Join(cfg.OutputDir, doc.Path)
		if err := writeDoc(path, doc.Content); err != nil {
			return err
		}
	}
	return nil
}

type hugoFrontMatter struct {
	Title  string `yaml:"title"`
	Weight int    `yaml:"weight"`
}

// renderHugo writes documents with YAML front matter under OutputDir/content/
// and generates a config.toml at OutputDir/config.toml.
func renderHugo(documents []Document, cfg Config) error {
	for i, doc := range documents {
		fm, err := frontMatter(hugoFrontMatter{Title: doc.Title, Weight: i + 1})
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.OutputDir, "content", doc.Path)
		if err := writeDoc(path, fm+doc.Content); err != nil {
			return err
		}
	}

	configContent := `baseURL = "/"
languageCode = "en-us"
title = "Project Wiki"
theme = "hugo-book"

[markup.goldmark.renderer]
unsafe = true
`
	return writeDoc(filepath.Join(cfg.OutputDir, "config.toml"), configContent)
}

type docusaurusFrontMatter struct {
	SidebarPosition int    `yaml:"sidebar_position"`
	SidebarLabel    string `yaml:"sidebar_label"`
}

// renderDocusaurus writes documents with YAML front matter under
// OutputDir/docs/ and generates OutputDir/docusaurus.config.js.
func renderDocusaurus(documents []Document, cfg Config) error {
	for i, doc := range documents {
		fm, err := frontMatter(docusaurusFrontMatter{SidebarPosition: i + 1, SidebarLabel: doc.Title})
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.OutputDir, "docs", doc.Path)
		if err := writeDoc(path, fm+doc.Content); err != nil {
			return err
		}
	}

	configContent := `// @ts-check

/** @type {import('@docusaurus/types').Config} */
const config = {
  title: 'Project Wiki',
  url: 'https://your-project-url.example.com',
  baseUrl: '/',
  themes: ['@docusaurus/theme-mermaid'],
  markdown: {
    mermaid: true,
  },
  presets: [
    [
      'classic',
      /** @type {import('@docusaurus/preset-classic').Options} */
      ({
        docs: {
          routeBasePath: '/',
        },
      }),
    ],
  ],
};

module.exports = config;
`
	return writeDoc(filepath.Join(cfg.OutputDir, "docusaurus.config.js"), configContent)
}

func frontMatter(v any) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	buf.WriteString("---\n\n")
	return buf.String(), nil
}

// writeDoc creates parent directories and writes content to the given path.
func writeDoc(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
