package api

import (
	"time"

	"github.com/topwebdesignco/advanced-schema-manager/internal/inject"
	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
	"github.com/topwebdesignco/advanced-schema-manager/internal/schemaservice"
)

// SchemaRequest is the request body for adding or editing a schema record.
// Target is a content item id, or "all" for every page.
type SchemaRequest = schemaservice.Input

// SchemaRecord is the record response type (aliased from the domain layer).
type SchemaRecord = models.SchemaRecord

// SchemaListResponse wraps record listings.
type SchemaListResponse struct {
	Schemas []SchemaRecord `json:"schemas" validate:"required"`
	Total   int            `json:"total" example:"3" validate:"required"`
}

// SchemaPreview is the preview response type (aliased from the domain layer).
type SchemaPreview = schemaservice.Preview

// NonceResponse carries an action token.
type NonceResponse struct {
	Action    string    `json:"action" example:"delete_schema_7" validate:"required"`
	Nonce     string    `json:"nonce" validate:"required"`
	ExpiresAt time.Time `json:"expires_at" validate:"required"`
}

// LabelsResponse lists the recognized schema labels.
type LabelsResponse struct {
	Labels []string `json:"labels" validate:"required"`
}

// ContentOption is one entry of the target selection control.
type ContentOption struct {
	Value string `json:"value" example:"42" validate:"required"`
	Title string `json:"title" example:"About us" validate:"required"`
	URL   string `json:"url,omitempty" example:"https://example.com/about/"`
}

// ContentResponse lists selectable targets for a content type.
type ContentResponse struct {
	Type    string          `json:"type" example:"page" validate:"required"`
	Options []ContentOption `json:"options" validate:"required"`
}

// RenderResponse is the structured form of a head fragment.
type RenderResponse struct {
	View   models.View    `json:"view"`
	Emits  bool           `json:"emits"`
	Blocks []inject.Block `json:"blocks" validate:"required"`
	HTML   string         `json:"html"`
}
