package mcpserver

import (
	"strings"

	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
)

const guideIntro = `# Schema Authoring Guide

Each schema record binds one JSON-LD document to a target.

## Targets

- ` + "`target_type`" + ` is the content type: ` + "`page`" + `, ` + "`post`" + ` or a custom type name
  (lowercase letters, digits, ` + "`-`" + ` and ` + "`_`" + `).
- ` + "`target`" + ` is a content item id (see the ` + "`list_content`" + ` tool), or ` + "`all`" + ` to
  apply the document to every page. ` + "`all`" + ` is only valid when ` + "`target_type`" + ` is ` + "`page`" + `.

## Documents

- The document is stored exactly as given.
- It must be well-formed JSON to be rendered. Malformed documents are kept but
  skipped silently when pages are rendered; check with ` + "`render_head`" + `.
- Include ` + "`\"@context\": \"https://schema.org\"`" + ` and an ` + "`@type`" + `.
- Do not add BreadcrumbList or ItemList for page hierarchies or archives. They
  are generated automatically from the content tree.

## Labels

The label organises records and must be one of:

`

// AuthoringGuide returns the guide followed by the recognized labels.
func AuthoringGuide() string {
	var b strings.Builder
	b.WriteString(guideIntro)
	for _, l := range models.Labels {
		b.WriteString("- ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
