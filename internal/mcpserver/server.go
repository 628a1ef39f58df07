// Package mcpserver provides an MCP (Model Context Protocol) server that lets
// LLM clients manage schema records over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/topwebdesignco/advanced-schema-manager/internal/apperr"
	"github.com/topwebdesignco/advanced-schema-manager/internal/content"
	"github.com/topwebdesignco/advanced-schema-manager/internal/inject"
	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
	"github.com/topwebdesignco/advanced-schema-manager/internal/schemaservice"
)

// LabelsURI is the resource holding the authoring guide and label list.
const LabelsURI = "asm://labels"

// Server wraps the MCP server with schema tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *schemaservice.Service
	repo     content.Repository
	pipeline *inject.Pipeline
}

// New creates a new MCP server with all tools registered.
func New(svc *schemaservice.Service, repo content.Repository, pipeline *inject.Pipeline) *Server {
	s := &Server{svc: svc, repo: repo, pipeline: pipeline}

	s.mcp = server.NewMCPServer(
		"Advanced Schema Manager",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_schemas",
		mcp.WithDescription("List stored schema records."),
		mcp.WithString("sort", mcp.Description("Sort field: id, created_at, updated_at, label or target; prefix with - for descending")),
	), s.listSchemas)

	s.mcp.AddTool(mcp.NewTool("get_schema",
		mcp.WithDescription("Read one schema record including its JSON-LD document."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Record id")),
	), s.getSchema)

	s.mcp.AddTool(mcp.NewTool("create_schema",
		mcp.WithDescription("Store a JSON-LD document and bind it to a content item, or to every page. "+
			"Read the authoring guide first via the "+LabelsURI+" resource or list_labels."),
		mcp.WithString("target_type", mcp.Required(), mcp.Description("Content type of the target: page, post or a custom type")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Content item id, or \"all\" for every page")),
		mcp.WithString("label", mcp.Required(), mcp.Description("One of the recognized schema labels")),
		mcp.WithString("document", mcp.Required(), mcp.Description("JSON-LD document")),
	), s.createSchema)

	s.mcp.AddTool(mcp.NewTool("update_schema",
		mcp.WithDescription("Replace every field of an existing schema record."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Record id")),
		mcp.WithString("target_type", mcp.Required(), mcp.Description("Content type of the target")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Content item id, or \"all\" for every page")),
		mcp.WithString("label", mcp.Required(), mcp.Description("One of the recognized schema labels")),
		mcp.WithString("document", mcp.Required(), mcp.Description("JSON-LD document")),
	), s.updateSchema)

	s.mcp.AddTool(mcp.NewTool("delete_schema",
		mcp.WithDescription("Delete a schema record."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Record id")),
	), s.deleteSchema)

	s.mcp.AddTool(mcp.NewTool("list_labels",
		mcp.WithDescription("Returns the recognized schema labels and the authoring guide."),
	), s.listLabels)

	s.mcp.AddTool(mcp.NewTool("list_content",
		mcp.WithDescription("List published content items of a type that a schema can target."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Content type, e.g. page or post")),
	), s.listContent)

	s.mcp.AddTool(mcp.NewTool("render_head",
		mcp.WithDescription("Render the JSON-LD head fragment a page would receive."),
		mcp.WithString("path", mcp.Description("URL path of the page, e.g. /about/team/")),
		mcp.WithString("kind", mcp.Description("View kind when no path is given: page, single, archive, home or other")),
		mcp.WithString("id", mcp.Description("Content item id for page and single views")),
		mcp.WithString("type", mcp.Description("Content type for archive views")),
		mcp.WithString("term", mcp.Description("Category term for archive views")),
	), s.renderHead)

	s.mcp.AddResource(
		mcp.NewResource(LabelsURI, "Schema labels and authoring guide",
			mcp.WithResourceDescription("Recognized schema labels and how records are bound to content."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLabelsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// errorResult renders service errors for the model: validation failures list
// each field, lookups name the missing record.
func errorResult(id int64, err error) *mcp.CallToolResult {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		fields := make([]string, 0, len(verrs))
		for name, ferr := range verrs {
			fields = append(fields, fmt.Sprintf("%s: %s", name, ferr.Error()))
		}
		sort.Strings(fields)
		return mcp.NewToolResultError("validation failed\n" + strings.Join(fields, "\n"))
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("schema %d not found", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func requireID(req mcp.CallToolRequest) (int64, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return int64(id), nil
}

func schemaInput(req mcp.CallToolRequest) (schemaservice.Input, error) {
	var in schemaservice.Input
	var err error
	if in.TargetType, err = req.RequireString("target_type"); err != nil {
		return in, err
	}
	if in.Target, err = req.RequireString("target"); err != nil {
		return in, err
	}
	if in.Label, err = req.RequireString("label"); err != nil {
		return in, err
	}
	if in.Document, err = req.RequireString("document"); err != nil {
		return in, err
	}
	return in, nil
}

func (s *Server) listSchemas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.svc.List(ctx, req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(recs), nil
}

func (s *Server) getSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Get(ctx, id)
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) createSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := schemaInput(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Create(ctx, in)
	if err != nil {
		return errorResult(0, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %d", rec.ID)), nil
}

func (s *Server) updateSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in, err := schemaInput(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Update(ctx, id, in); err != nil {
		return errorResult(id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %d", id)), nil
}

func (s *Server) deleteSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		return errorResult(id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %d", id)), nil
}

func (s *Server) listLabels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(AuthoringGuide()), nil
}

func (s *Server) listContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contentType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.repo.Items(ctx, contentType)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var b strings.Builder
	if contentType == models.PageType {
		b.WriteString("all\tAll Pages\n")
	}
	for _, it := range items {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", it.ID, it.Title, it.URL)
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("no content found"), nil
	}
	return mcp.NewToolResultText(strings.TrimSuffix(b.String(), "\n")), nil
}

func (s *Server) renderHead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var view models.View
	if p := req.GetString("path", ""); p != "" {
		v, ok := s.repo.ViewForPath(ctx, p)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no content at path: %s", p)), nil
		}
		view = v
	} else {
		view = models.View{
			Kind:        models.ParseViewKind(req.GetString("kind", "")),
			ItemID:      req.GetString("id", ""),
			ContentType: req.GetString("type", ""),
			Term:        req.GetString("term", ""),
		}
	}
	html := s.pipeline.RenderHTML(ctx, view)
	if html == "" {
		return mcp.NewToolResultText(fmt.Sprintf("no structured data for %s views", view.Kind)), nil
	}
	return mcp.NewToolResultText(html), nil
}

func (s *Server) readLabelsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LabelsURI,
			MIMEType: "text/markdown",
			Text:     AuthoringGuide(),
		},
	}, nil
}
