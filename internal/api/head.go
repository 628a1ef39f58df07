package api

import (
	"net/http"
	"strings"

	"github.com/topwebdesignco/advanced-schema-manager/internal/checksum"
	"github.com/topwebdesignco/advanced-schema-manager/internal/content"
	"github.com/topwebdesignco/advanced-schema-manager/internal/inject"
	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
)

// viewFromQuery builds the view a request asks about. A path parameter is
// resolved through the content repository; an unknown path is an Other view.
func viewFromQuery(r *http.Request, repo content.Repository) models.View {
	q := r.URL.Query()
	if p := q.Get("path"); p != "" {
		if v, ok := repo.ViewForPath(r.Context(), p); ok {
			return v
		}
		return models.View{Kind: models.ViewOther}
	}
	return models.View{
		Kind:        models.ParseViewKind(q.Get("kind")),
		ItemID:      q.Get("id"),
		ContentType: q.Get("type"),
		Term:        q.Get("term"),
	}
}

// HeadHandler serves the rendered head fragment for a view (GET /head).
type HeadHandler struct {
	pipeline *inject.Pipeline
	repo     content.Repository
}

// NewHeadHandler creates a HeadHandler.
func NewHeadHandler(pipeline *inject.Pipeline, repo content.Repository) *HeadHandler {
	return &HeadHandler{pipeline: pipeline, repo: repo}
}

// ServeHTTP handles GET /head.
//
//	@Summary		Render the JSON-LD head fragment for a view
//	@Tags			render
//	@Produce		html
//	@Param			path	query	string	false	"URL path; overrides the other parameters"
//	@Param			kind	query	string	false	"View kind"	Enums(page, single, archive, home, other)
//	@Param			id		query	string	false	"Item id"
//	@Param			type	query	string	false	"Archive content type"
//	@Param			term	query	string	false	"Archive term"
//	@Success		200		"Head fragment"
//	@Success		304		"Not modified"
//	@Router			/head [get]
func (h *HeadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := h.pipeline.RenderHTML(r.Context(), viewFromQuery(r, h.repo))
	etag := checksum.ETag([]byte(body))

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// etagMatches reports whether an If-None-Match header lists etag.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
