package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/topwebdesignco/advanced-schema-manager/internal/auth"
	"github.com/topwebdesignco/advanced-schema-manager/internal/content"
	"github.com/topwebdesignco/advanced-schema-manager/internal/inject"
	"github.com/topwebdesignco/advanced-schema-manager/internal/schemaservice"
)

// Deps are the collaborators of the admin API.
type Deps struct {
	Schemas    *schemaservice.Service
	Content    content.Repository
	Pipeline   *inject.Pipeline
	Authorizer *auth.Authorizer
	Nonces     *auth.Nonces
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
}

// NewRouter creates a chi router with all admin routes; mount it under /api.
// Every route requires the edit_content capability.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d.Schemas, d.Content, d.Pipeline, d.Nonces)

	r := chi.NewRouter()
	r.Use(RequireCapability(d.Authorizer, auth.CapEditContent))

	// Schema records.
	r.Get("/schemas", h.ListSchemas)
	r.Post("/schemas", h.CreateSchema)
	r.Get("/schemas/{id}", h.GetSchema)
	r.Get("/schemas/{id}/preview", h.PreviewSchema)
	r.Put("/schemas/{id}", h.UpdateSchema)
	r.Delete("/schemas/{id}", h.DeleteSchema)

	// Authoring helpers.
	r.Get("/nonces", h.IssueNonce)
	r.Get("/labels", h.Labels)
	r.Get("/content", h.ContentOptions)
	r.Get("/render", h.RenderPreview)

	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}
