package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/topwebdesignco/advanced-schema-manager/internal/apperr"
	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
)

const table = "schemas"

var columns = []string{
	"id", "target_type", "target_selector", "schema_label", "schema_document", "created_at", "updated_at",
}

// sortColumns whitelists the columns List may order by.
var sortColumns = map[string]string{
	"id":         "id",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"label":      "schema_label",
	"target":     "target_selector",
}

// schemaRow mirrors one row of the schemas table.
type schemaRow struct {
	ID             int64     `db:"id"`
	TargetType     string    `db:"target_type"`
	TargetSelector string    `db:"target_selector"`
	SchemaLabel    string    `db:"schema_label"`
	SchemaDocument string    `db:"schema_document"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r schemaRow) record() models.SchemaRecord {
	return models.SchemaRecord{
		ID:         r.ID,
		TargetType: r.TargetType,
		Target:     models.ParseSelector(r.TargetSelector, r.TargetType),
		Label:      r.SchemaLabel,
		Document:   r.SchemaDocument,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// checkWritable rejects records that would persist an empty binding.
func checkWritable(rec models.SchemaRecord) error {
	switch {
	case rec.Target.IsZero():
		return fmt.Errorf("store: target selector is required")
	case strings.TrimSpace(rec.Label) == "":
		return fmt.Errorf("store: schema label is required")
	case strings.TrimSpace(rec.Document) == "":
		return fmt.Errorf("store: schema document is required")
	}
	return nil
}

// Create inserts rec and returns the assigned id.
func (db *DB) Create(ctx context.Context, rec models.SchemaRecord) (int64, error) {
	if err := checkWritable(rec); err != nil {
		return 0, err
	}
	now := db.now()
	query, args, err := sq.Insert(table).
		Columns("target_type", "target_selector", "schema_label", "schema_document", "created_at", "updated_at").
		Values(rec.TargetType, rec.Target.String(), rec.Label, rec.Document, now, now).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("store: build insert: %w", err)
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("store: insert schema: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: insert id: %w", err)
	}
	return id, nil
}

// Update replaces the target, label and document of record id.
func (db *DB) Update(ctx context.Context, id int64, rec models.SchemaRecord) error {
	if err := checkWritable(rec); err != nil {
		return err
	}
	query, args, err := sq.Update(table).
		Set("target_type", rec.TargetType).
		Set("target_selector", rec.Target.String()).
		Set("schema_label", rec.Label).
		Set("schema_document", rec.Document).
		Set("updated_at", db.now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build update: %w", err)
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: update schema %d: %w", id, err)
	}
	return expectRow(res.RowsAffected())
}

// Delete removes record id. Deleting an absent id returns apperr.ErrNotFound.
func (db *DB) Delete(ctx context.Context, id int64) error {
	query, args, err := sq.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("store: build delete: %w", err)
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: delete schema %d: %w", id, err)
	}
	return expectRow(res.RowsAffected())
}

func expectRow(n int64, err error) error {
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Get returns record id or apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, id int64) (*models.SchemaRecord, error) {
	query, args, err := sq.Select(columns...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build select: %w", err)
	}
	var row schemaRow
	if err := sqlscan.Get(ctx, db.conn, &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get schema %d: %w", id, err)
	}
	rec := row.record()
	return &rec, nil
}

// List returns every record ordered by orderBy (see parseSortClause).
func (db *DB) List(ctx context.Context, orderBy string) ([]models.SchemaRecord, error) {
	return db.selectRecords(ctx, sq.Select(columns...).From(table).OrderBy(parseSortClause(orderBy)))
}

// ListByTarget returns the records bound to sel in insertion order.
func (db *DB) ListByTarget(ctx context.Context, sel models.Selector) ([]models.SchemaRecord, error) {
	qb := sq.Select(columns...).From(table).OrderBy("id ASC")
	switch sel.Kind {
	case models.SelectorAllOfType:
		qb = qb.Where(sq.Eq{
			"target_selector": []string{models.SelectorAll, "-1", "pages"},
			"target_type":     sel.Type,
		})
	default:
		qb = qb.Where(sq.Eq{"target_selector": sel.ItemID})
	}
	return db.selectRecords(ctx, qb)
}

func (db *DB) selectRecords(ctx context.Context, qb sq.SelectBuilder) ([]models.SchemaRecord, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build select: %w", err)
	}
	var rows []schemaRow
	if err := sqlscan.Select(ctx, db.conn, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("store: list schemas: %w", err)
	}
	out := make([]models.SchemaRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

// parseSortClause maps "field" / "-field" to a safe ORDER BY clause,
// defaulting to insertion order.
func parseSortClause(s string) string {
	dir := "ASC"
	if strings.HasPrefix(s, "-") {
		dir = "DESC"
		s = s[1:]
	}
	col, ok := sortColumns[s]
	if !ok {
		return "id ASC"
	}
	if col == "id" {
		return "id " + dir
	}
	return col + " " + dir + ", id ASC"
}
