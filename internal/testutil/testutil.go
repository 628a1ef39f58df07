// Package testutil provides shared test helpers for setting up sites and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/topwebdesignco/advanced-schema-manager/internal/storage"
	"github.com/topwebdesignco/advanced-schema-manager/internal/store"
)

// TestDB creates a temporary installed SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "asm-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSite creates a temporary site directory holding files (relative path to
// contents) and returns it with a storage.Provider.
func TestSite(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	siteDir := t.TempDir()
	for rel, body := range files {
		WriteFile(t, siteDir, rel, body)
	}
	fs, err := storage.NewFS(siteDir)
	if err != nil {
		t.Fatal(err)
	}
	return siteDir, fs
}

// WriteFile writes body to rel under dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, body string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// SampleSite is a small site used across packages: a front page, a page
// hierarchy three levels deep, a posts index, two posts and a custom type entry.
var SampleSite = map[string]string{
	"home.md":                "---\nid: \"1\"\ntitle: Home\n---\nWelcome.\n",
	"services.md":            "---\nid: \"10\"\ntitle: Services\nmenu_order: 2\n---\n",
	"services/seo.md":        "---\nid: \"11\"\nparent: \"10\"\ntitle: SEO\nmenu_order: 1\n---\n",
	"services/seo/audits.md": "---\nid: \"12\"\nparent: \"11\"\ntitle: Audits\n---\n",
	"services/design.md":     "---\nid: \"13\"\nparent: \"10\"\ntitle: Design\nmenu_order: 1\n---\n",
	"services/draft.md":      "---\nid: \"14\"\nparent: \"10\"\ntitle: Upcoming\nstatus: draft\n---\n",
	"blog.md":                "---\nid: \"20\"\ntitle: Blog\nmenu_order: 3\n---\n",
	"posts/hello.md":         "---\nid: \"42\"\ntype: post\ntitle: Hello\ndate: 2024-03-01\ncategories: [news]\n---\n",
	"posts/older.md":         "---\nid: \"43\"\ntype: post\ntitle: Older\ndate: 2023-01-01\ncategories: [news, tips]\n---\n",
	"case-studies/acme.md":   "---\nid: \"50\"\ntype: case-study\ntitle: Acme\ndate: 2024-01-01\n---\n",
}
