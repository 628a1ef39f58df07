package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/topwebdesignco/advanced-schema-manager/internal/apperr"
	"github.com/topwebdesignco/advanced-schema-manager/internal/auth"
	"github.com/topwebdesignco/advanced-schema-manager/internal/content"
	"github.com/topwebdesignco/advanced-schema-manager/internal/inject"
	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
	"github.com/topwebdesignco/advanced-schema-manager/internal/schemaservice"
)

// AllPagesLabel is the display title of the "every page" target option.
const AllPagesLabel = "All Pages"

// Handler holds API route handlers.
type Handler struct {
	svc      *schemaservice.Service
	repo     content.Repository
	pipeline *inject.Pipeline
	nonces   *auth.Nonces
}

// NewHandler creates a new Handler.
func NewHandler(svc *schemaservice.Service, repo content.Repository, pipeline *inject.Pipeline, nonces *auth.Nonces) *Handler {
	return &Handler{svc: svc, repo: repo, pipeline: pipeline, nonces: nonces}
}

// recordID parses the {id} URL parameter, writing 400 when it is not a
// positive integer.
func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid schema id"))
		return 0, false
	}
	return id, true
}

func decodeSchemaRequest(w http.ResponseWriter, r *http.Request) (SchemaRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return req, false
	}
	return req, true
}

// ListSchemas handles GET /api/schemas.
//
//	@Summary		List schema records
//	@Tags			schemas
//	@Produce		json
//	@Param			sort	query		string	false	"Sort field, prefix with - for descending"	Enums(id, -id, created_at, -created_at, updated_at, -updated_at, label, -label, target)
//	@Success		200		{object}	SchemaListResponse
//	@Security		BearerAuth
//	@Router			/schemas [get]
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(r.Context(), r.URL.Query().Get("sort"))
	if err != nil {
		slog.Error("list schemas failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SchemaListResponse{Schemas: recs, Total: len(recs)})
}

// GetSchema handles GET /api/schemas/{id}.
//
//	@Summary		Get a schema record
//	@Tags			schemas
//	@Produce		json
//	@Param			id	path		int	true	"Record id"
//	@Success		200	{object}	SchemaRecord
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/schemas/{id} [get]
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeLookupError(w, "get schema", id, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// PreviewSchema handles GET /api/schemas/{id}/preview.
//
//	@Summary		Get a schema record with its document pretty-printed
//	@Tags			schemas
//	@Produce		json
//	@Param			id	path		int	true	"Record id"
//	@Success		200	{object}	SchemaPreview
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/schemas/{id}/preview [get]
func (h *Handler) PreviewSchema(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Preview(r.Context(), id)
	if err != nil {
		writeLookupError(w, "preview schema", id, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateSchema handles POST /api/schemas.
//
//	@Summary		Add a schema record
//	@Tags			schemas
//	@Accept			json
//	@Produce		json
//	@Param			X-ASM-Nonce	header		string			true	"Token for action add_schema"
//	@Param			body		body		SchemaRequest	true	"Record to add"
//	@Success		201			{object}	SchemaRecord
//	@Failure		400			{object}	errResponse
//	@Failure		403			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/schemas [post]
func (h *Handler) CreateSchema(w http.ResponseWriter, r *http.Request) {
	if !h.checkNonce(w, r, auth.ActionAdd) {
		return
	}
	req, ok := decodeSchemaRequest(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Create(r.Context(), req)
	if err != nil {
		if writeValidation(w, err) {
			return
		}
		slog.Error("create schema failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateSchema handles PUT /api/schemas/{id}.
//
//	@Summary		Replace a schema record
//	@Tags			schemas
//	@Accept			json
//	@Produce		json
//	@Param			id			path		int				true	"Record id"
//	@Param			X-ASM-Nonce	header		string			true	"Token for action edit_schema_{id}"
//	@Param			body		body		SchemaRequest	true	"New record contents"
//	@Success		200			{object}	SchemaRecord
//	@Failure		400			{object}	errResponse
//	@Failure		403			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/schemas/{id} [put]
func (h *Handler) UpdateSchema(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if !h.checkNonce(w, r, auth.EditAction(id)) {
		return
	}
	req, ok := decodeSchemaRequest(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		if writeValidation(w, err) {
			return
		}
		writeLookupError(w, "update schema", id, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteSchema handles DELETE /api/schemas/{id}.
//
//	@Summary		Delete a schema record
//	@Tags			schemas
//	@Param			id			path	int		true	"Record id"
//	@Param			X-ASM-Nonce	header	string	true	"Token for action delete_schema_{id}"
//	@Success		204			"Record deleted"
//	@Failure		403			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/schemas/{id} [delete]
func (h *Handler) DeleteSchema(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if !h.checkNonce(w, r, auth.DeleteAction(id)) {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("failed to delete schema"))
			return
		}
		slog.Error("delete schema failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var nonceAction = regexp.MustCompile(`^(add_schema|(edit|delete)_schema_[1-9][0-9]*)$`)

// IssueNonce handles GET /api/nonces.
//
//	@Summary		Issue a request token for one action
//	@Tags			auth
//	@Produce		json
//	@Param			action	query		string	true	"add_schema, edit_schema_{id} or delete_schema_{id}"
//	@Success		200		{object}	NonceResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nonces [get]
func (h *Handler) IssueNonce(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if !nonceAction.MatchString(action) {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown action"))
		return
	}
	tok, exp, err := h.nonces.Issue(action)
	if err != nil {
		slog.Error("issue nonce failed", slog.String("action", action), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, NonceResponse{Action: action, Nonce: tok, ExpiresAt: exp})
}

// Labels handles GET /api/labels.
//
//	@Summary		List recognized schema labels
//	@Tags			schemas
//	@Produce		json
//	@Success		200	{object}	LabelsResponse
//	@Security		BearerAuth
//	@Router			/labels [get]
func (h *Handler) Labels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LabelsResponse{Labels: models.Labels})
}

// ContentOptions handles GET /api/content.
//
//	@Summary		List selectable targets for a content type
//	@Tags			content
//	@Produce		json
//	@Param			type	query		string	true	"Content type"
//	@Success		200		{object}	ContentResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/content [get]
func (h *Handler) ContentOptions(w http.ResponseWriter, r *http.Request) {
	contentType := r.URL.Query().Get("type")
	if contentType == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'type' is required"))
		return
	}
	items, err := h.repo.Items(r.Context(), contentType)
	if err != nil {
		slog.Error("list content failed", slog.String("type", contentType), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Type: contentType, Options: contentOptions(contentType, items)})
}

func contentOptions(contentType string, items []content.Item) []ContentOption {
	opts := make([]ContentOption, 0, len(items)+1)
	if contentType == models.PageType {
		opts = append(opts, ContentOption{Value: models.SelectorAll, Title: AllPagesLabel})
	}
	for _, it := range items {
		opts = append(opts, ContentOption{Value: it.ID, Title: it.Title, URL: it.URL})
	}
	return opts
}

// RenderPreview handles GET /api/render.
//
//	@Summary		Preview the head fragment for a view
//	@Tags			render
//	@Produce		json
//	@Param			path	query		string	false	"URL path; overrides the other parameters"
//	@Param			kind	query		string	false	"View kind"	Enums(page, single, archive, home, other)
//	@Param			id		query		string	false	"Item id"
//	@Param			type	query		string	false	"Archive content type"
//	@Param			term	query		string	false	"Archive term"
//	@Success		200		{object}	RenderResponse
//	@Security		BearerAuth
//	@Router			/render [get]
func (h *Handler) RenderPreview(w http.ResponseWriter, r *http.Request) {
	view := viewFromQuery(r, h.repo)
	blocks := h.pipeline.Blocks(r.Context(), view)
	if blocks == nil {
		blocks = []inject.Block{}
	}
	resp := RenderResponse{View: view, Emits: inject.Emits(view), Blocks: blocks}
	if resp.Emits {
		resp.HTML = inject.Fragment(blocks)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeLookupError(w http.ResponseWriter, op string, id int64, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	slog.Error(op+" failed", slog.Int64("id", id), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
