package content

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
	"github.com/topwebdesignco/advanced-schema-manager/internal/parser"
)

// Options configures how items are addressed and named.
type Options struct {
	Name      string
	BaseURL   string
	HomeLabel string
	FrontPage string
	PostsPage string
	// Types maps a content type to its archive label.
	Types map[string]string
	// Terms maps a term slug to its display name.
	Terms map[string]string
}

// catalog is an immutable snapshot of the site's content.
type catalog struct {
	opts        Options
	base        string
	fingerprint string
	items       map[string]*Item
	sorted      []*Item // by type, then title
	children    map[string][]*Item
	views       map[string]models.View
}

func buildCatalog(opts Options, fingerprint string, results []*parser.Result) *catalog {
	c := &catalog{
		opts:        opts,
		base:        strings.TrimRight(opts.BaseURL, "/"),
		fingerprint: fingerprint,
		items:       make(map[string]*Item, len(results)),
		children:    make(map[string][]*Item),
		views:       make(map[string]models.View),
	}
	metas := make(map[string]parser.Meta, len(results))
	for _, r := range results {
		m := r.Meta
		if _, dup := c.items[m.ID]; dup {
			continue
		}
		metas[m.ID] = m
		c.items[m.ID] = &Item{
			ID:        m.ID,
			Type:      m.Type,
			Title:     m.Title,
			Slug:      m.Slug,
			ParentID:  m.Parent,
			MenuOrder: m.MenuOrder,
			Status:    m.Status,
			Date:      m.Date,
			Terms:     m.Categories,
		}
	}

	for id, it := range c.items {
		if u := metas[id].URL; u != "" {
			it.URL = u
		} else {
			it.URL = c.base + c.itemPath(it)
		}
		c.sorted = append(c.sorted, it)
		if it.ParentID != "" && it.Published() {
			c.children[it.ParentID] = append(c.children[it.ParentID], it)
		}
	}
	sort.Slice(c.sorted, func(i, j int) bool {
		a, b := c.sorted[i], c.sorted[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return lessTitle(a, b)
	})
	for _, kids := range c.children {
		sort.Slice(kids, func(i, j int) bool {
			if kids[i].MenuOrder != kids[j].MenuOrder {
				return kids[i].MenuOrder < kids[j].MenuOrder
			}
			return lessTitle(kids[i], kids[j])
		})
	}
	c.indexViews()
	return c
}

func lessTitle(a, b *Item) bool {
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ID < b.ID
}

// itemPath returns the URL path of an item. Pages nest under their ancestors'
// slugs, posts sit at the root and custom types under their type name.
func (c *catalog) itemPath(it *Item) string {
	switch {
	case it.ID == c.opts.FrontPage:
		return "/"
	case it.Type == models.PageType:
		slugs := []string{it.Slug}
		seen := map[string]struct{}{it.ID: {}}
		for p := c.items[it.ParentID]; p != nil; p = c.items[p.ParentID] {
			if _, loop := seen[p.ID]; loop {
				break
			}
			seen[p.ID] = struct{}{}
			slugs = append([]string{p.Slug}, slugs...)
		}
		return "/" + strings.Join(slugs, "/") + "/"
	case it.Type == "post":
		return "/" + it.Slug + "/"
	default:
		return "/" + it.Type + "/" + it.Slug + "/"
	}
}

func (c *catalog) indexViews() {
	hasTypes := make(map[string]struct{})
	hasTerms := make(map[string]struct{})
	for _, it := range c.sorted {
		if !it.Published() {
			continue
		}
		kind := models.ViewSinglePost
		if it.Type == models.PageType {
			kind = models.ViewSinglePage
		}
		if it.ID == c.opts.PostsPage {
			c.views[urlPath(it.URL)] = models.View{Kind: models.ViewHome}
			continue
		}
		c.views[urlPath(it.URL)] = models.View{Kind: kind, ItemID: it.ID}
		if it.Type != models.PageType && it.Type != "post" {
			hasTypes[it.Type] = struct{}{}
		}
		for _, term := range it.Terms {
			hasTerms[term] = struct{}{}
		}
	}
	if _, ok := c.views["/"]; !ok {
		c.views["/"] = models.View{Kind: models.ViewHome}
	}
	for t := range hasTypes {
		c.views["/"+t+"/"] = models.View{Kind: models.ViewArchive, ContentType: t}
	}
	for term := range hasTerms {
		c.views["/category/"+term+"/"] = models.View{Kind: models.ViewArchive, ContentType: "post", Term: term}
	}
}

// urlPath strips scheme and host from u and normalises slashes.
func urlPath(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		rest := u[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			u = rest[j:]
		} else {
			u = "/"
		}
	}
	return normalizePath(u)
}

func normalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = "/" + strings.Trim(p, "/")
	if p != "/" {
		p += "/"
	}
	return p
}

func (c *catalog) collection(view models.View) (Collection, bool) {
	switch view.Kind {
	case models.ViewHome:
		if p, ok := c.items[c.opts.PostsPage]; ok {
			return Collection{Name: p.Title, URL: p.URL}, true
		}
		return Collection{Name: c.typeLabel("post"), URL: c.base + "/"}, true
	case models.ViewArchive:
		if view.Term != "" {
			name := c.opts.Terms[view.Term]
			if name == "" {
				name = titleize(view.Term)
			}
			return Collection{Name: name, URL: c.base + "/category/" + view.Term + "/"}, true
		}
		if view.ContentType == "" {
			return Collection{}, false
		}
		return Collection{Name: c.typeLabel(view.ContentType), URL: c.base + "/" + view.ContentType + "/"}, true
	}
	return Collection{}, false
}

func (c *catalog) typeLabel(t string) string {
	if l := c.opts.Types[t]; l != "" {
		return l
	}
	if t == "post" {
		return "Posts"
	}
	return titleize(t)
}

// titleize turns a slug such as "case-studies" into "Case Studies".
func titleize(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
