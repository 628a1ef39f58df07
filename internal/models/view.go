package models

// ViewKind classifies what a rendered document shows.
type ViewKind string

const (
	ViewSinglePage ViewKind = "page"
	ViewSinglePost ViewKind = "single"
	ViewArchive    ViewKind = "archive"
	ViewHome       ViewKind = "home"
	// ViewOther covers utility views (search, 404, feeds) that get no schema.
	ViewOther ViewKind = "other"
)

// ParseViewKind maps a query value to a ViewKind; unknown values are ViewOther.
func ParseViewKind(s string) ViewKind {
	switch ViewKind(s) {
	case ViewSinglePage, ViewSinglePost, ViewArchive, ViewHome:
		return ViewKind(s)
	case "post":
		return ViewSinglePost
	}
	return ViewOther
}

// View describes the document being rendered. It is passed explicitly to
// every stage of the injection pipeline.
type View struct {
	Kind ViewKind `json:"kind"`
	// ItemID is the content item for single views.
	ItemID string `json:"item_id,omitempty"`
	// ContentType is the type listed by an archive view ("post" or a custom type).
	ContentType string `json:"content_type,omitempty"`
	// Term narrows an archive to a taxonomy term slug.
	Term string `json:"term,omitempty"`
}

// FileMeta is the metadata for one content source file.
type FileMeta struct {
	Path     string
	Checksum string
}
