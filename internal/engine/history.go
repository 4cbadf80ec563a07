package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/dialect"
	"github.com/hlop3z/hisdb/internal/store"
)

// History table schema:
// CREATE TABLE __migration_history (
//     Id        VARCHAR(255) NOT NULL PRIMARY KEY,
//     Name      VARCHAR(255) NOT NULL,
//     AppliedAt TIMESTAMP    NOT NULL  -- UTC
// )

const (
	// DefaultHistoryTable is the name of the history table.
	DefaultHistoryTable = "__migration_history"

	// BootstrapID identifies the implicit migration that creates the history
	// table. Every registry ID must sort after it.
	BootstrapID = "00000000000000_history"
)

// sqliteTimeFormat keeps AppliedAt sortable as text.
const sqliteTimeFormat = "2006-01-02 15:04:05.000000"

// execer is satisfied by both store.Store and store.Tx.
type execer interface {
	Exec(ctx context.Context, stmt string, args ...any) (int64, error)
}

// History manages the table that records applied migrations.
type History struct {
	store   store.Store
	dialect dialect.Dialect
	table   string
}

// NewHistory creates a History over the named table.
func NewHistory(s store.Store, table string) *History {
	return &History{
		store:   s,
		dialect: s.Dialect(),
		table:   table,
	}
}

// Table returns the history table name.
func (h *History) Table() string {
	return h.table
}

// Bootstrap returns the implicit migration that creates the history table.
func (h *History) Bootstrap() Migration {
	return Migration{
		ID:   BootstrapID,
		Name: "history",
		Up:   []ast.Operation{h.tableDef()},
		Down: []ast.Operation{&ast.DropTable{Name: h.table}},
	}
}

func (h *History) tableDef() *ast.CreateTable {
	return &ast.CreateTable{TableDef: ast.TableDef{
		Name: h.table,
		Columns: []*ast.ColumnDef{
			{Name: "Id", Type: ast.TypeString, MaxLength: 255},
			{Name: "Name", Type: ast.TypeString, MaxLength: 255},
			{Name: "AppliedAt", Type: ast.TypeDateTime},
		},
		PrimaryKey: []string{"Id"},
	}}
}

// EnsureTable creates the history table if it doesn't exist.
func (h *History) EnsureTable(ctx context.Context) error {
	stmt, err := h.dialect.CreateTableIfNotExistsSQL(h.tableDef())
	if err != nil {
		return err
	}
	if _, err := h.store.Exec(ctx, stmt); err != nil {
		return store.WrapError(err, stmt).
			WithMigration(BootstrapID, 0).
			WithTable(h.table)
	}
	return nil
}

// Exists reports whether the history table exists. It never creates it.
func (h *History) Exists(ctx context.Context) (bool, error) {
	return tableExists(ctx, h.store, h.table)
}

// tableExists looks the table up in the catalog of the store's dialect.
func tableExists(ctx context.Context, s store.Store, table string) (bool, error) {
	var query string
	switch s.Dialect().Name() {
	case "postgres":
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
	case "mysql":
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	default:
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}

	var n int
	if _, err := store.QueryValue(ctx, s, &n, query, table); err != nil {
		return false, store.WrapError(err, query).WithTable(table)
	}
	return n > 0, nil
}

// Applied returns all history records in ascending byte-wise ID order.
// A missing history table yields no records.
func (h *History) Applied(ctx context.Context) ([]MigrationRecord, error) {
	exists, err := h.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}

	q := h.dialect.QuoteIdent
	query := fmt.Sprintf("SELECT %s, %s, %s FROM %s",
		q("Id"), q("Name"), q("AppliedAt"), q(h.table))

	rows, err := h.store.Query(ctx, query)
	if err != nil {
		return nil, store.WrapError(err, query)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var rec MigrationRecord
		var appliedAt any

		if err := rows.Scan(&rec.ID, &rec.Name, &appliedAt); err != nil {
			return nil, alerr.Wrap(alerr.ErrStore, err, "failed to scan history row")
		}
		rec.AppliedAt = parseAppliedAt(appliedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, alerr.Wrap(alerr.ErrStore, err, "error iterating history rows")
	}

	// Collations may not compare byte-wise, so order here.
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// parseAppliedAt converts the stored timestamp to UTC time.Time.
func parseAppliedAt(val any) time.Time {
	switch t := val.(type) {
	case time.Time:
		return t.UTC()
	case string:
		// SQLite stores timestamps as text
		formats := []string{
			sqliteTimeFormat,
			time.RFC3339Nano,
			"2006-01-02 15:04:05.999999999-07:00",
			"2006-01-02 15:04:05",
		}
		for _, format := range formats {
			if parsed, err := time.Parse(format, t); err == nil {
				return parsed.UTC()
			}
		}
		return time.Time{}
	case []byte:
		return parseAppliedAt(string(t))
	default:
		return time.Time{}
	}
}

// Record inserts a history row. Pass the migration's transaction as ex so
// the row commits with the migration's statements.
func (h *History) Record(ctx context.Context, ex execer, rec MigrationRecord) error {
	q := h.dialect.QuoteIdent
	query := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (%s, %s, %s)",
		q(h.table), q("Id"), q("Name"), q("AppliedAt"),
		h.dialect.Placeholder(1), h.dialect.Placeholder(2), h.dialect.Placeholder(3))

	if _, err := ex.Exec(ctx, query, rec.ID, rec.Name, h.timeArg(rec.AppliedAt)); err != nil {
		return store.WrapError(err, query).With("migration", rec.ID)
	}
	return nil
}

// Remove deletes the history row of a reverted migration.
func (h *History) Remove(ctx context.Context, ex execer, id string) error {
	q := h.dialect.QuoteIdent
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", q(h.table), q("Id"), h.dialect.Placeholder(1))

	n, err := ex.Exec(ctx, query, id)
	if err != nil {
		return store.WrapError(err, query).With("migration", id)
	}
	if n == 0 {
		return alerr.New(alerr.ErrMigrationNotFound, "migration not found in history table").
			With("migration", id)
	}
	return nil
}

func (h *History) timeArg(t time.Time) any {
	t = t.UTC()
	if h.dialect.Name() == "sqlite" {
		return t.Format(sqliteTimeFormat)
	}
	return t
}
