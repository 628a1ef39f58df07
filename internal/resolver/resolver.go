// Package resolver decides which stored schema records apply to a view.
package resolver

import (
	"context"
	"fmt"

	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
)

// Lister is the slice of the record store the resolver reads from.
type Lister interface {
	ListByTarget(ctx context.Context, sel models.Selector) ([]models.SchemaRecord, error)
}

// Matches holds the records applying to one view, grouped by how they matched.
type Matches struct {
	// AllPages are records bound to every page.
	AllPages []models.SchemaRecord
	// Item are records bound to the viewed item's id.
	Item []models.SchemaRecord
}

// All returns the matches in emission order: all-pages records first, then
// item records, each group in insertion order.
func (m Matches) All() []models.SchemaRecord {
	out := make([]models.SchemaRecord, 0, len(m.AllPages)+len(m.Item))
	out = append(out, m.AllPages...)
	return append(out, m.Item...)
}

// Len returns the total number of matched records.
func (m Matches) Len() int { return len(m.AllPages) + len(m.Item) }

// Resolver maps views to stored records.
type Resolver struct {
	store Lister
}

// New returns a Resolver reading from store.
func New(store Lister) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the records applying to view. Only single page and single
// post views consult the store.
func (r *Resolver) Resolve(ctx context.Context, view models.View) (Matches, error) {
	var m Matches
	switch view.Kind {
	case models.ViewSinglePage:
		recs, err := r.store.ListByTarget(ctx, models.AllOfTypeSelector(models.PageType))
		if err != nil {
			return Matches{}, fmt.Errorf("resolver: all pages: %w", err)
		}
		m.AllPages = recs
	case models.ViewSinglePost:
	default:
		return m, nil
	}

	if view.ItemID == "" {
		return m, nil
	}
	recs, err := r.store.ListByTarget(ctx, models.ItemSelector(view.ItemID))
	if err != nil {
		return Matches{}, fmt.Errorf("resolver: item %s: %w", view.ItemID, err)
	}
	m.Item = recs
	return m, nil
}
