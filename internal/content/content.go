// Package content is the site's content repository: pages, posts and custom
// type entries read from Markdown files, with their hierarchy, taxonomy terms
// and canonical URLs.
package content

import (
	"context"
	"time"

	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
)

// Item statuses.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
	StatusPrivate = "private"
)

// Item is one content item.
type Item struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	ParentID  string    `json:"parent_id,omitempty"`
	MenuOrder int       `json:"menu_order"`
	Status    string    `json:"status"`
	Date      time.Time `json:"date"`
	Terms     []string  `json:"terms,omitempty"`
	URL       string    `json:"url"`
}

// Published reports whether the item is publicly visible.
func (i Item) Published() bool { return i.Status == StatusPublish }

// HasTerm reports whether the item is filed under term.
func (i Item) HasTerm(term string) bool {
	for _, t := range i.Terms {
		if t == term {
			return true
		}
	}
	return false
}

// Collection is the display name and URL of an archive or the posts index.
type Collection struct {
	Name string
	URL  string
}

// Site describes the site as a whole.
type Site struct {
	Name        string
	URL         string
	HomeLabel   string
	FrontPageID string
	PostsPageID string
}

// Repository is the read-only view of site content used at render time.
type Repository interface {
	Site() Site
	// Item returns any item by id regardless of status, or apperr.ErrNotFound.
	Item(ctx context.Context, id string) (Item, error)
	// Children returns the published direct children of parentID in menu order.
	Children(ctx context.Context, parentID string) ([]Item, error)
	// Published returns published items of contentType, optionally filed under
	// term, newest first.
	Published(ctx context.Context, contentType, term string) ([]Item, error)
	// Items returns the published items of contentType sorted by title, for
	// selection controls.
	Items(ctx context.Context, contentType string) ([]Item, error)
	// Collection names the archive or posts index shown by an Archive or Home view.
	Collection(ctx context.Context, view models.View) (Collection, bool)
	// ViewForPath maps a URL path to the view rendered there.
	ViewForPath(ctx context.Context, path string) (models.View, bool)
}
