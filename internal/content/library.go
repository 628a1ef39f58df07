package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/topwebdesignco/advanced-schema-manager/internal/apperr"
	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
	"github.com/topwebdesignco/advanced-schema-manager/internal/parser"
	"github.com/topwebdesignco/advanced-schema-manager/internal/storage"
)

// Library is a Repository backed by Markdown files. Readers see a consistent
// snapshot; Reload swaps in a new one atomically.
type Library struct {
	store  storage.Provider
	opts   Options
	logger *slog.Logger
	cur    atomic.Pointer[catalog]
}

var _ Repository = (*Library)(nil)

// NewLibrary returns an empty library. Call Reload to populate it.
func NewLibrary(store storage.Provider, opts Options, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Library{store: store, opts: opts, logger: logger}
	l.cur.Store(buildCatalog(opts, "", nil))
	return l
}

// Reload re-reads every content file. It reports whether the content changed
// since the previous load. Files that fail to parse are skipped with a warning.
func (l *Library) Reload() (bool, error) {
	metas, err := l.store.List("")
	if err != nil {
		return false, fmt.Errorf("content: list: %w", err)
	}

	h := sha256.New()
	for _, m := range metas {
		fmt.Fprintf(h, "%s\x00%s\n", m.Path, m.Checksum)
	}
	fp := hex.EncodeToString(h.Sum(nil))
	if prev := l.cur.Load(); prev != nil && prev.fingerprint == fp {
		return false, nil
	}

	results := make([]*parser.Result, 0, len(metas))
	for _, m := range metas {
		data, readErr := l.store.Read(m.Path)
		if readErr != nil {
			l.logger.Warn("content: read failed", slog.String("path", m.Path), slog.String("error", readErr.Error()))
			continue
		}
		res, parseErr := parser.Parse(m.Path, data)
		if parseErr != nil {
			l.logger.Warn("content: parse failed", slog.String("path", m.Path), slog.String("error", parseErr.Error()))
			continue
		}
		results = append(results, res)
	}

	l.cur.Store(buildCatalog(l.opts, fp, results))
	l.logger.Info("content: loaded", slog.Int("items", len(results)))
	return true, nil
}

func (l *Library) snapshot() *catalog { return l.cur.Load() }

func (l *Library) Site() Site {
	c := l.snapshot()
	label := l.opts.HomeLabel
	if label == "" {
		label = "Home"
	}
	return Site{
		Name:        l.opts.Name,
		URL:         c.base + "/",
		HomeLabel:   label,
		FrontPageID: l.opts.FrontPage,
		PostsPageID: l.opts.PostsPage,
	}
}

func (l *Library) Item(_ context.Context, id string) (Item, error) {
	it, ok := l.snapshot().items[id]
	if !ok {
		return Item{}, fmt.Errorf("content: item %q: %w", id, apperr.ErrNotFound)
	}
	return *it, nil
}

func (l *Library) Children(_ context.Context, parentID string) ([]Item, error) {
	return copyItems(l.snapshot().children[parentID]), nil
}

func (l *Library) Published(_ context.Context, contentType, term string) ([]Item, error) {
	var out []Item
	for _, it := range l.snapshot().sorted {
		if !it.Published() || it.Type != contentType {
			continue
		}
		if term != "" && !it.HasTerm(term) {
			continue
		}
		out = append(out, *it)
	}
	sortNewest(out)
	return out, nil
}

func (l *Library) Items(_ context.Context, contentType string) ([]Item, error) {
	var out []Item
	for _, it := range l.snapshot().sorted {
		if it.Published() && it.Type == contentType {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (l *Library) Collection(_ context.Context, view models.View) (Collection, bool) {
	return l.snapshot().collection(view)
}

func (l *Library) ViewForPath(_ context.Context, path string) (models.View, bool) {
	v, ok := l.snapshot().views[normalizePath(path)]
	return v, ok
}

func copyItems(src []*Item) []Item {
	out := make([]Item, len(src))
	for i, it := range src {
		out[i] = *it
	}
	return out
}
