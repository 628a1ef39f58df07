// Package parser reads content items from Markdown files with YAML frontmatter.
package parser

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Meta is the frontmatter of a content item.
type Meta struct {
	ID         string    `yaml:"id"`
	Type       string    `yaml:"type"`
	Title      string    `yaml:"title"`
	Slug       string    `yaml:"slug"`
	Parent     string    `yaml:"parent"`
	MenuOrder  int       `yaml:"menu_order"`
	Status     string    `yaml:"status"`
	Date       time.Time `yaml:"date"`
	Categories []string  `yaml:"categories"`
	URL        string    `yaml:"url"`
}

// Result holds the output of parsing one content file.
type Result struct {
	Meta Meta
	Body string
}

// Parse extracts the frontmatter and body from raw Markdown bytes. name is the
// file path relative to the site root; it supplies the id and slug when the
// frontmatter leaves them out. A file without frontmatter is a page whose title
// is its first H1 heading.
func Parse(name string, data []byte) (*Result, error) {
	block, body, ok := splitFrontmatter(data)

	var meta Meta
	if ok {
		if err := yaml.Unmarshal(block, &meta); err != nil {
			return nil, fmt.Errorf("parser: %s: frontmatter: %w", name, err)
		}
	}

	stem := strings.TrimSuffix(path.Base(name), ".md")
	if meta.ID == "" {
		meta.ID = strings.TrimSuffix(name, ".md")
	}
	if meta.Slug == "" {
		meta.Slug = stem
	}
	if meta.Type == "" {
		meta.Type = "page"
	}
	if meta.Status == "" {
		meta.Status = "publish"
	}
	if meta.Title == "" {
		meta.Title = deriveTitle(body)
	}
	if meta.Title == "" {
		meta.Title = stem
	}
	meta.Categories = dedupe(meta.Categories)

	return &Result{Meta: meta, Body: body}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. ok is false when there is no frontmatter.
func splitFrontmatter(data []byte) (block []byte, body string, ok bool) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), false
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), false
	}

	afterDelim := rest[idx+1+len(delim):]
	return rest[:idx], strings.TrimLeft(string(afterDelim), "\n\r"), true
}

// deriveTitle returns the first H1 heading of body, or "".
func deriveTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
