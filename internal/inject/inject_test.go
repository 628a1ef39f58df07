package inject

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/topwebdesignco/advanced-schema-manager/internal/content"
	"github.com/topwebdesignco/advanced-schema-manager/internal/derived"
	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
	"github.com/topwebdesignco/advanced-schema-manager/internal/resolver"
	"github.com/topwebdesignco/advanced-schema-manager/internal/store"
	"github.com/topwebdesignco/advanced-schema-manager/internal/testutil"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingObserver struct {
	skipped  []string
	rendered []string
	failures int
}

func (o *recordingObserver) Skipped(_ models.View, rec models.SchemaRecord, reason string) {
	o.skipped = append(o.skipped, rec.Label+":"+reason)
}

func (o *recordingObserver) Rendered(source string) {
	o.rendered = append(o.rendered, source)
}

func (o *recordingObserver) ResolveFailed(models.View, error) {
	o.failures++
}

type noDerived struct{}

func (noDerived) Generate(context.Context, models.View) derived.Result { return derived.Result{} }

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, models.View) (resolver.Matches, error) {
	return resolver.Matches{}, errors.New("database is locked")
}

func seedDB(t *testing.T, recs ...models.SchemaRecord) *store.DB {
	t.Helper()
	db := testutil.TestDB(t)
	for _, rec := range recs {
		if _, err := db.Create(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
	return db
}

func sampleGenerator(t *testing.T) *derived.Generator {
	t.Helper()
	_, fs := testutil.TestSite(t, testutil.SampleSite)
	lib := content.NewLibrary(fs, content.Options{BaseURL: "https://example.com", FrontPage: "1", PostsPage: "20"}, quiet)
	if _, err := lib.Reload(); err != nil {
		t.Fatal(err)
	}
	return derived.New(lib, quiet)
}

func script(inner string) string {
	return `<script type="application/ld+json">` + inner + `</script>`
}

func TestRender_EndToEnd(t *testing.T) {
	db := seedDB(t, models.SchemaRecord{
		TargetType: "page",
		Target:     models.ItemSelector("42"),
		Label:      "Article",
		Document:   `{"@type": "Article", "headline": "x"}`,
	})
	p := New(resolver.New(db), noDerived{}, nil)

	out := p.Render(context.Background(), models.View{Kind: models.ViewSinglePage, ItemID: "42"})
	if len(out) != 2 {
		t.Fatalf("got %d parts: %q", len(out), out)
	}
	if out[0] != Marker {
		t.Errorf("first part = %q", out[0])
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(out[1], `<script type="application/ld+json">`), `</script>`)
	var doc map[string]string
	if err := json.Unmarshal([]byte(inner), &doc); err != nil {
		t.Fatalf("block is not JSON: %v", err)
	}
	if doc["@type"] != "Article" || doc["headline"] != "x" || len(doc) != 2 {
		t.Errorf("unexpected document %v", doc)
	}
}

func TestRender_InvalidJSONSkipped(t *testing.T) {
	db := seedDB(t,
		models.SchemaRecord{TargetType: "page", Target: models.ItemSelector("10"), Label: "FAQ", Document: `{not valid json`},
		models.SchemaRecord{TargetType: "page", Target: models.ItemSelector("10"), Label: "Service", Document: `{"@type":"Service"}`},
	)
	obs := &recordingObserver{}
	p := New(resolver.New(db), noDerived{}, obs)

	out := p.Render(context.Background(), models.View{Kind: models.ViewSinglePage, ItemID: "10"})
	want := []string{Marker, script(`{"@type":"Service"}`)}
	if strings.Join(out, "\n") != strings.Join(want, "\n") {
		t.Errorf("got %q\nwant %q", out, want)
	}
	if len(obs.skipped) != 1 || obs.skipped[0] != "FAQ:"+ReasonInvalidJSON {
		t.Errorf("skips = %v", obs.skipped)
	}
}

func TestBlocks_Order(t *testing.T) {
	db := seedDB(t,
		models.SchemaRecord{TargetType: "page", Target: models.ItemSelector("10"), Label: "Service", Document: `{"@type":"Service"}`},
		models.SchemaRecord{TargetType: "page", Target: models.AllOfTypeSelector("page"), Label: "Organization", Document: `{"@type":"Organization"}`},
	)
	obs := &recordingObserver{}
	p := New(resolver.New(db), sampleGenerator(t), obs)

	blocks := p.Blocks(context.Background(), models.View{Kind: models.ViewSinglePage, ItemID: "10"})
	var sources []string
	for _, b := range blocks {
		sources = append(sources, b.Source)
	}
	want := []string{SourceAllPages, SourceItem, SourceBreadcrumb, SourceItemList}
	if strings.Join(sources, ",") != strings.Join(want, ",") {
		t.Errorf("sources = %v, want %v", sources, want)
	}
	if !strings.HasPrefix(blocks[2].JSON, `{"@context":"https://schema.org","@type":"BreadcrumbList"`) {
		t.Errorf("breadcrumb json = %s", blocks[2].JSON)
	}
	if len(obs.rendered) != 4 {
		t.Errorf("rendered events = %v", obs.rendered)
	}
}

func TestRender_OtherViewsEmitNothing(t *testing.T) {
	p := New(failingResolver{}, noDerived{}, nil)
	view := models.View{Kind: models.ViewOther}
	if out := p.Render(context.Background(), view); out != nil {
		t.Errorf("Render = %q", out)
	}
	if html := p.RenderHTML(context.Background(), view); html != "" {
		t.Errorf("RenderHTML = %q", html)
	}
}

func TestRender_MarkerOnlyWithoutMatches(t *testing.T) {
	p := New(resolver.New(seedDB(t)), noDerived{}, nil)
	html := p.RenderHTML(context.Background(), models.View{Kind: models.ViewSinglePost, ItemID: "42"})
	if html != Marker+"\n" {
		t.Errorf("RenderHTML = %q", html)
	}
}

func TestRender_ResolveFailureKeepsDerived(t *testing.T) {
	obs := &recordingObserver{}
	p := New(failingResolver{}, sampleGenerator(t), obs)

	blocks := p.Blocks(context.Background(), models.View{Kind: models.ViewSinglePage, ItemID: "12"})
	if obs.failures != 1 {
		t.Errorf("resolve failures = %d", obs.failures)
	}
	if len(blocks) != 1 || blocks[0].Source != SourceBreadcrumb {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestCompact(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"key order kept", `{"b":1,"a":2}`, `{"b":1,"a":2}`},
		{"whitespace removed", "{\n  \"@type\": \"Thing\",\n  \"name\": \"a b\"\n}", `{"@type":"Thing","name":"a b"}`},
		{"slashes unescaped", `{"url":"https://example.com/a/"}`, `{"url":"https://example.com/a/"}`},
		{"script close escaped", `{"name":"</script><b>&"}`, `{"name":"\u003c/script\u003e\u003cb\u003e\u0026"}`},
		{"array", `[{"@type":"Thing"}]`, `[{"@type":"Thing"}]`},
		{"escaped slashes normalised", `{"url":"https:\/\/example.com\/a"}`, `{"url":"https://example.com/a"}`},
		{"duplicate key keeps last value", `{"a":1,"b":2,"a":3}`, `{"a":3,"b":2}`},
		{"unicode escapes decoded", `{"name":"caf\u00e9 \u003cb\u003e"}`, `{"name":"café \u003cb\u003e"}`},
		{"numbers verbatim", `{"price":1.50,"big":1e3,"ok":true,"none":null}`, `{"price":1.50,"big":1e3,"ok":true,"none":null}`},
		{"nested", `{"a":[1,{"b":"x\/y"}],"c":{}}`, `{"a":[1,{"b":"x/y"}],"c":{}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Compact(tc.in)
			if !ok {
				t.Fatal("rejected valid JSON")
			}
			if got != tc.want {
				t.Errorf("got  %s\nwant %s", got, tc.want)
			}
		})
	}

	for _, bad := range []string{"", "{not valid json", `{"a":}`, `{"a":1}}`} {
		if _, ok := Compact(bad); ok {
			t.Errorf("Compact(%q) accepted malformed JSON", bad)
		}
	}
}

func TestPretty(t *testing.T) {
	got, ok := Pretty(`{"@type":"Thing","name":"x"}`)
	if !ok {
		t.Fatal("rejected valid JSON")
	}
	if !strings.Contains(got, "\n  \"@type\": \"Thing\"") {
		t.Errorf("not indented: %q", got)
	}
}
