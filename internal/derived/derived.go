// Package derived builds BreadcrumbList and ItemList structured data from the
// site's content hierarchy. Nothing here is persisted; lists are recomputed on
// every render.
package derived

import (
	"context"
	"errors"
	"log/slog"

	"github.com/topwebdesignco/advanced-schema-manager/internal/apperr"
	"github.com/topwebdesignco/advanced-schema-manager/internal/content"
	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
)

const schemaContext = "https://schema.org"

// ListItem is one element of a BreadcrumbList or ItemList. Breadcrumb
// elements link through Item, item list elements through URL.
type ListItem struct {
	Type     string `json:"@type"`
	Position int    `json:"position"`
	Name     string `json:"name"`
	Item     string `json:"item,omitempty"`
	URL      string `json:"url,omitempty"`
}

// List is a schema.org BreadcrumbList or ItemList. Field order is the
// emitted key order.
type List struct {
	Context  string     `json:"@context"`
	Type     string     `json:"@type"`
	Elements []ListItem `json:"itemListElement"`
}

// Result is the derived structured data for one view. Either list is nil
// when it would have no elements.
type Result struct {
	Breadcrumb *List
	ItemList   *List
}

// Generator derives lists from a content repository.
type Generator struct {
	repo   content.Repository
	logger *slog.Logger
}

// New returns a Generator over repo.
func New(repo content.Repository, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{repo: repo, logger: logger}
}

// Generate returns the derived lists for view. Single posts and utility views
// get nothing, as does a view whose item or collection is unknown.
func (g *Generator) Generate(ctx context.Context, view models.View) Result {
	switch view.Kind {
	case models.ViewSinglePage:
		return g.page(ctx, view.ItemID)
	case models.ViewArchive:
		contentType := view.ContentType
		if contentType == "" {
			if view.Term == "" {
				return Result{}
			}
			// Terms are post categories.
			contentType = "post"
		}
		return g.listing(ctx, view, contentType, view.Term)
	case models.ViewHome:
		return g.listing(ctx, view, "post", "")
	}
	return Result{}
}

func (g *Generator) page(ctx context.Context, id string) Result {
	item, err := g.repo.Item(ctx, id)
	if err != nil {
		g.lookupFailed(id, err)
		return Result{}
	}
	if !item.Published() {
		return Result{}
	}

	trail := []content.Item{}
	if item.ID != g.repo.Site().FrontPageID {
		trail = append(g.ancestors(ctx, item), item)
	}
	res := Result{Breadcrumb: g.breadcrumb(trail)}

	kids, err := g.repo.Children(ctx, item.ID)
	if err != nil {
		g.logger.Warn("derived: children lookup failed", slog.String("id", item.ID), slog.String("error", err.Error()))
		return res
	}
	res.ItemList = itemList(kids)
	return res
}

func (g *Generator) listing(ctx context.Context, view models.View, contentType, term string) Result {
	coll, ok := g.repo.Collection(ctx, view)
	if !ok {
		return Result{}
	}
	crumb := content.Item{Title: coll.Name, URL: coll.URL}
	res := Result{Breadcrumb: g.breadcrumb([]content.Item{crumb})}

	items, err := g.repo.Published(ctx, contentType, term)
	if err != nil {
		g.logger.Warn("derived: listing lookup failed",
			slog.String("type", contentType),
			slog.String("term", term),
			slog.String("error", err.Error()))
		return res
	}
	res.ItemList = itemList(items)
	return res
}

// ancestors walks parent links from item up to the root and returns the
// published ones root first. The walk stops at the first repeated or unknown id.
func (g *Generator) ancestors(ctx context.Context, item content.Item) []content.Item {
	var chain []content.Item
	seen := map[string]struct{}{item.ID: {}}
	for parentID := item.ParentID; parentID != ""; {
		if _, loop := seen[parentID]; loop {
			g.logger.Warn("derived: parent cycle", slog.String("id", item.ID), slog.String("at", parentID))
			break
		}
		seen[parentID] = struct{}{}
		parent, err := g.repo.Item(ctx, parentID)
		if err != nil {
			g.lookupFailed(parentID, err)
			break
		}
		if parent.Published() {
			chain = append(chain, parent)
		}
		parentID = parent.ParentID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// breadcrumb prefixes trail with the home crumb.
func (g *Generator) breadcrumb(trail []content.Item) *List {
	site := g.repo.Site()
	list := &List{Context: schemaContext, Type: "BreadcrumbList"}
	list.Elements = append(list.Elements, ListItem{Type: "ListItem", Position: 1, Name: site.HomeLabel, Item: site.URL})
	for _, it := range trail {
		list.Elements = append(list.Elements, ListItem{
			Type:     "ListItem",
			Position: len(list.Elements) + 1,
			Name:     it.Title,
			Item:     it.URL,
		})
	}
	return list
}

func itemList(items []content.Item) *List {
	if len(items) == 0 {
		return nil
	}
	list := &List{Context: schemaContext, Type: "ItemList", Elements: make([]ListItem, len(items))}
	for i, it := range items {
		list.Elements[i] = ListItem{Type: "ListItem", Position: i + 1, Name: it.Title, URL: it.URL}
	}
	return list
}

func (g *Generator) lookupFailed(id string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		g.logger.Debug("derived: unknown item", slog.String("id", id))
		return
	}
	g.logger.Warn("derived: item lookup failed", slog.String("id", id), slog.String("error", err.Error()))
}
