// Package models defines the domain types for the schema manager.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// PageType is the content type whose items can be targeted all at once.
const PageType = "page"

// SelectorAll is the stored sentinel for "every item of the record's content type".
const SelectorAll = "all"

// legacySentinels are the "All Pages" encodings written by earlier releases.
var legacySentinels = map[string]struct{}{"-1": {}, "pages": {}}

// SelectorKind distinguishes the variants of a Selector.
type SelectorKind int

const (
	// SelectorItem targets one content item by id.
	SelectorItem SelectorKind = iota
	// SelectorAllOfType targets every item of a content type.
	SelectorAllOfType
)

// Selector is the decoded target of a SchemaRecord.
type Selector struct {
	Kind   SelectorKind
	ItemID string // set when Kind == SelectorItem
	Type   string // set when Kind == SelectorAllOfType
}

// ItemSelector returns a selector for a single content item.
func ItemSelector(id string) Selector {
	return Selector{Kind: SelectorItem, ItemID: id}
}

// AllOfTypeSelector returns a selector for every item of contentType.
func AllOfTypeSelector(contentType string) Selector {
	return Selector{Kind: SelectorAllOfType, Type: contentType}
}

// ParseSelector decodes the stored selector column. contentType is the
// record's target type, which scopes the sentinel. An empty raw value yields
// the zero Selector with an empty ItemID; callers validate that separately.
func ParseSelector(raw, contentType string) Selector {
	raw = strings.TrimSpace(raw)
	if raw == SelectorAll {
		return AllOfTypeSelector(contentType)
	}
	if _, ok := legacySentinels[raw]; ok {
		return AllOfTypeSelector(contentType)
	}
	return ItemSelector(raw)
}

// String returns the stored form of the selector.
func (s Selector) String() string {
	if s.Kind == SelectorAllOfType {
		return SelectorAll
	}
	return s.ItemID
}

// MarshalJSON encodes the selector in its stored form.
func (s Selector) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// IsZero reports whether the selector targets nothing.
func (s Selector) IsZero() bool {
	return s.Kind == SelectorItem && s.ItemID == ""
}

// SchemaRecord is a stored JSON-LD document bound to a target.
type SchemaRecord struct {
	ID         int64     `json:"id"`
	TargetType string    `json:"target_type"`
	Target     Selector  `json:"target"`
	Label      string    `json:"label"`
	Document   string    `json:"document"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Labels is the closed set of schema labels offered to authors. A label is
// used for organisation only and never constrains the document.
var Labels = []string{
	"Action", "Article", "Book", "BreadcrumbList", "Course", "CreativeWork",
	"Dataset", "Event", "FAQ", "HowTo", "JobPosting", "LocalBusiness",
	"MediaObject", "MusicRecording", "NewsArticle", "Offer", "Organization",
	"Person", "Place", "Product", "Recipe", "Review", "Service",
	"SoftwareApplication", "SpeakableSpecification", "VideoObject",
}

// IsLabel reports whether s is one of Labels.
func IsLabel(s string) bool {
	for _, l := range Labels {
		if l == s {
			return true
		}
	}
	return false
}
