// Package inject renders the JSON-LD head fragment for a view: stored schema
// records that apply to it followed by derived breadcrumb and item lists.
package inject

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/topwebdesignco/advanced-schema-manager/internal/derived"
	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
	"github.com/topwebdesignco/advanced-schema-manager/internal/resolver"
)

// Marker precedes the blocks of every rendered fragment.
const Marker = "<!-- Schema structured data added by Advanced Schema Manager -->"

// Block sources.
const (
	SourceAllPages   = "all_pages"
	SourceItem       = "item"
	SourceBreadcrumb = "breadcrumb"
	SourceItemList   = "item_list"
)

// Skip reasons.
const (
	ReasonInvalidJSON = "invalid_json"
	ReasonEncode      = "encode_error"
)

// Resolver finds the stored records applying to a view.
type Resolver interface {
	Resolve(ctx context.Context, view models.View) (resolver.Matches, error)
}

// Generator derives breadcrumb and item lists for a view.
type Generator interface {
	Generate(ctx context.Context, view models.View) derived.Result
}

// Observer is told about everything the pipeline drops silently.
type Observer interface {
	Skipped(view models.View, rec models.SchemaRecord, reason string)
	Rendered(source string)
	ResolveFailed(view models.View, err error)
}

// Block is one compact JSON-LD document ready for a script element.
type Block struct {
	Source   string `json:"source"`
	RecordID int64  `json:"record_id,omitempty"`
	Label    string `json:"label,omitempty"`
	JSON     string `json:"json"`
}

// Script wraps the block in its script element.
func (b Block) Script() string {
	return `<script type="application/ld+json">` + b.JSON + `</script>`
}

// Pipeline assembles head fragments.
type Pipeline struct {
	resolver  Resolver
	generator Generator
	observer  Observer
}

// New returns a Pipeline. A nil observer discards events.
func New(r Resolver, g Generator, o Observer) *Pipeline {
	if o == nil {
		o = nopObserver{}
	}
	return &Pipeline{resolver: r, generator: g, observer: o}
}

// Emits reports whether view gets a head fragment at all.
func Emits(view models.View) bool {
	switch view.Kind {
	case models.ViewSinglePage, models.ViewSinglePost, models.ViewArchive, models.ViewHome:
		return true
	}
	return false
}

// Blocks returns the JSON-LD blocks for view in emission order: all-pages
// records, item records, breadcrumb, item list. Records holding malformed
// JSON are skipped and reported to the observer.
func (p *Pipeline) Blocks(ctx context.Context, view models.View) []Block {
	if !Emits(view) {
		return nil
	}
	var blocks []Block

	matches, err := p.resolver.Resolve(ctx, view)
	if err != nil {
		p.observer.ResolveFailed(view, err)
	}
	blocks = p.appendRecords(blocks, view, SourceAllPages, matches.AllPages)
	blocks = p.appendRecords(blocks, view, SourceItem, matches.Item)

	res := p.generator.Generate(ctx, view)
	blocks = p.appendList(blocks, view, SourceBreadcrumb, res.Breadcrumb)
	blocks = p.appendList(blocks, view, SourceItemList, res.ItemList)
	return blocks
}

// Render returns the marker followed by one script element per block.
// Views that get no fragment yield nil.
func (p *Pipeline) Render(ctx context.Context, view models.View) []string {
	if !Emits(view) {
		return nil
	}
	blocks := p.Blocks(ctx, view)
	out := make([]string, 0, len(blocks)+1)
	out = append(out, Marker)
	for _, b := range blocks {
		out = append(out, b.Script())
	}
	return out
}

// RenderHTML joins Render's output with newlines.
func (p *Pipeline) RenderHTML(ctx context.Context, view models.View) string {
	if !Emits(view) {
		return ""
	}
	return Fragment(p.Blocks(ctx, view))
}

// Fragment renders the marker and blocks one per line.
func Fragment(blocks []Block) string {
	var b strings.Builder
	b.WriteString(Marker)
	b.WriteByte('\n')
	for _, blk := range blocks {
		b.WriteString(blk.Script())
		b.WriteByte('\n')
	}
	return b.String()
}

func (p *Pipeline) appendRecords(blocks []Block, view models.View, source string, recs []models.SchemaRecord) []Block {
	for _, rec := range recs {
		doc, ok := Compact(rec.Document)
		if !ok {
			p.observer.Skipped(view, rec, ReasonInvalidJSON)
			continue
		}
		blocks = append(blocks, Block{Source: source, RecordID: rec.ID, Label: rec.Label, JSON: doc})
		p.observer.Rendered(source)
	}
	return blocks
}

func (p *Pipeline) appendList(blocks []Block, view models.View, source string, list *derived.List) []Block {
	if list == nil {
		return blocks
	}
	data, err := json.Marshal(list)
	if err != nil {
		p.observer.Skipped(view, models.SchemaRecord{Label: list.Type}, ReasonEncode)
		return blocks
	}
	blocks = append(blocks, Block{Source: source, JSON: string(data)})
	p.observer.Rendered(source)
	return blocks
}

// Compact validates doc and re-encodes it minified with the author's key
// order kept. A repeated key keeps its first position and its last value.
// String escapes are normalised: slashes come out bare while '<', '>' and '&'
// are escaped so the result can sit inside a script element. Number text is
// kept verbatim. ok is false for malformed JSON.
func Compact(doc string) (string, bool) {
	if !gjson.Valid(doc) {
		return "", false
	}
	var buf bytes.Buffer
	encodeValue(&buf, gjson.Parse(doc))
	return buf.String(), true
}

func encodeValue(buf *bytes.Buffer, v gjson.Result) {
	switch {
	case v.IsObject():
		encodeObject(buf, v)
	case v.IsArray():
		buf.WriteByte('[')
		first := true
		v.ForEach(func(_, el gjson.Result) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			encodeValue(buf, el)
			return true
		})
		buf.WriteByte(']')
	case v.Type == gjson.String:
		encodeString(buf, v.String())
	default:
		buf.WriteString(strings.TrimSpace(v.Raw))
	}
}

func encodeObject(buf *bytes.Buffer, v gjson.Result) {
	var keys []string
	values := map[string]gjson.Result{}
	v.ForEach(func(k, val gjson.Result) bool {
		key := k.String()
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = val
		return true
	})

	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodeString(buf, key)
		buf.WriteByte(':')
		encodeValue(buf, values[key])
	}
	buf.WriteByte('}')
}

// encodeString writes s as a JSON string with HTML-sensitive characters
// escaped. encoding/json never escapes '/'.
func encodeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// Pretty returns doc indented for display, or ok false for malformed JSON.
func Pretty(doc string) (string, bool) {
	if !gjson.Valid(doc) {
		return "", false
	}
	return string(pretty.PrettyOptions([]byte(doc), &pretty.Options{Width: 80, Indent: "  "})), true
}

type nopObserver struct{}

func (nopObserver) Skipped(models.View, models.SchemaRecord, string) {}
func (nopObserver) Rendered(string)                                  {}
func (nopObserver) ResolveFailed(models.View, error)                 {}
