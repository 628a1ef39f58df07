package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/topwebdesignco/advanced-schema-manager/internal/content"
	"github.com/topwebdesignco/advanced-schema-manager/internal/derived"
	"github.com/topwebdesignco/advanced-schema-manager/internal/inject"
	"github.com/topwebdesignco/advanced-schema-manager/internal/resolver"
	"github.com/topwebdesignco/advanced-schema-manager/internal/schemaservice"
	"github.com/topwebdesignco/advanced-schema-manager/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	db := testutil.TestDB(t)
	_, fs := testutil.TestSite(t, testutil.SampleSite)
	lib := content.NewLibrary(fs, content.Options{BaseURL: "https://example.com", FrontPage: "1", PostsPage: "20"}, quiet)
	if _, err := lib.Reload(); err != nil {
		t.Fatal(err)
	}
	svc := schemaservice.New(db, nil, schemaservice.Config{}, quiet)
	pipeline := inject.New(resolver.New(db), derived.New(lib, quiet), nil)
	return New(svc, lib, pipeline)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so dispatch to the handlers directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_schemas":
		result, err = srv.listSchemas(ctx, req)
	case "get_schema":
		result, err = srv.getSchema(ctx, req)
	case "create_schema":
		result, err = srv.createSchema(ctx, req)
	case "update_schema":
		result, err = srv.updateSchema(ctx, req)
	case "delete_schema":
		result, err = srv.deleteSchema(ctx, req)
	case "list_labels":
		result, err = srv.listLabels(ctx, req)
	case "list_content":
		result, err = srv.listContent(ctx, req)
	case "render_head":
		result, err = srv.renderHead(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

var articleArgs = map[string]any{
	"target_type": "post",
	"target":      "42",
	"label":       "Article",
	"document":    `{"@type":"Article","headline":"x"}`,
}

func TestCreateGetAndRender(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_schema", articleArgs)
	if text := resultText(r); text != "created: 1" {
		t.Fatalf("create result = %q", text)
	}

	r = callTool(t, srv, "get_schema", map[string]any{"id": float64(1)})
	if r.IsError || !strings.Contains(resultText(r), `"label": "Article"`) {
		t.Errorf("get result = %q", resultText(r))
	}

	r = callTool(t, srv, "render_head", map[string]any{"path": "/hello/"})
	text := resultText(r)
	if !strings.HasPrefix(text, inject.Marker) || !strings.Contains(text, `{"@type":"Article","headline":"x"}`) {
		t.Errorf("render = %q", text)
	}
}

func TestCreateSchema_ValidationError(t *testing.T) {
	srv := testServer(t)
	args := map[string]any{"target_type": "post", "target": "all", "label": "Nope", "document": "{}"}
	r := callTool(t, srv, "create_schema", args)
	text := resultText(r)
	if !r.IsError || !strings.Contains(text, "label:") || !strings.Contains(text, "target:") {
		t.Errorf("result = %q", text)
	}
}

func TestCreateSchema_MissingArgument(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_schema", map[string]any{"target_type": "post"})
	if !r.IsError {
		t.Error("expected error for missing arguments")
	}
}

func TestUpdateAndDeleteSchema(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_schema", articleArgs)

	update := map[string]any{"id": float64(1)}
	for k, v := range articleArgs {
		update[k] = v
	}
	update["label"] = "NewsArticle"
	if r := callTool(t, srv, "update_schema", update); r.IsError {
		t.Fatalf("update failed: %s", resultText(r))
	}

	r := callTool(t, srv, "list_schemas", map[string]any{})
	if !strings.Contains(resultText(r), "NewsArticle") {
		t.Errorf("list = %q", resultText(r))
	}

	if r := callTool(t, srv, "delete_schema", map[string]any{"id": float64(1)}); resultText(r) != "deleted: 1" {
		t.Errorf("delete = %q", resultText(r))
	}
	r = callTool(t, srv, "delete_schema", map[string]any{"id": float64(1)})
	if !r.IsError || resultText(r) != "schema 1 not found" {
		t.Errorf("second delete = %q", resultText(r))
	}
}

func TestGetSchema_BadID(t *testing.T) {
	srv := testServer(t)
	for _, args := range []map[string]any{{}, {"id": float64(0)}, {"id": float64(9)}} {
		if r := callTool(t, srv, "get_schema", args); !r.IsError {
			t.Errorf("args %v: expected error", args)
		}
	}
}

func TestListLabels(t *testing.T) {
	srv := testServer(t)
	text := resultText(callTool(t, srv, "list_labels", nil))
	for _, l := range []string{"- Action\n", "- VideoObject\n", "`all`"} {
		if !strings.Contains(text, l) {
			t.Errorf("guide missing %q", l)
		}
	}
}

func TestListContent(t *testing.T) {
	srv := testServer(t)

	pages := resultText(callTool(t, srv, "list_content", map[string]any{"type": "page"}))
	if !strings.HasPrefix(pages, "all\tAll Pages\n") || !strings.Contains(pages, "12\tAudits\thttps://example.com/services/seo/audits/") {
		t.Errorf("pages = %q", pages)
	}

	posts := resultText(callTool(t, srv, "list_content", map[string]any{"type": "post"}))
	if strings.Contains(posts, "All Pages") {
		t.Error("All Pages offered for posts")
	}

	if text := resultText(callTool(t, srv, "list_content", map[string]any{"type": "event"})); text != "no content found" {
		t.Errorf("empty type = %q", text)
	}
}

func TestRenderHead_OtherView(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "render_head", map[string]any{"kind": "other"})
	if resultText(r) != "no structured data for other views" {
		t.Errorf("result = %q", resultText(r))
	}
	r = callTool(t, srv, "render_head", map[string]any{"path": "/missing/"})
	if !r.IsError {
		t.Error("expected error for unknown path")
	}
}

func TestLabelsResource(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readLabelsResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != LabelsURI || !strings.Contains(tc.Text, "- BreadcrumbList") {
		t.Errorf("resource = %+v", contents[0])
	}
}
