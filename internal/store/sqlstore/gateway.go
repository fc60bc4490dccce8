package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"clinic/backend/internal/store"
)

// Row is one result row keyed by lower-cased column name. Both backends
// produce the same shape.
type Row map[string]any

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func (r Row) Int64(col string) int64 {
	n, _ := toInt64(r[col])
	return n
}

// OptInt returns nil for NULL or non-numeric values.
func (r Row) OptInt(col string) *int {
	n, ok := toInt64(r[col])
	if !ok {
		return nil
	}
	v := int(n)
	return &v
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	case []byte:
		i, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// Gateway executes statements written with bun's "?" placeholders against
// whichever backend db was opened on.
type Gateway struct {
	db      bun.IDB
	backend Backend
}

func NewGateway(db *bun.DB, backend Backend) *Gateway {
	return &Gateway{db: db, backend: backend}
}

func (g *Gateway) Backend() Backend {
	return g.backend
}

// DB exposes the underlying handle for model queries.
func (g *Gateway) DB() bun.IDB {
	return g.db
}

// Exec applies a mutating statement and returns the number of rows affected.
func (g *Gateway) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := g.db.NewRaw(query, args...).Exec(ctx)
	if err != nil {
		return 0, storageError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// FetchOne returns the first row, or nil when the statement yields none.
func (g *Gateway) FetchOne(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := g.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (g *Gateway) FetchAll(ctx context.Context, query string, args ...any) ([]Row, error) {
	var raw []map[string]interface{}
	if err := g.db.NewRaw(query, args...).Scan(ctx, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Row{}, nil
		}
		return nil, storageError(err)
	}

	out := make([]Row, 0, len(raw))
	for _, m := range raw {
		out = append(out, normalizeRow(m))
	}
	return out, nil
}

// RunInTx runs fn inside a transaction. Nested calls reuse the outer one.
func (g *Gateway) RunInTx(ctx context.Context, fn func(ctx context.Context, gw *Gateway) error) error {
	if _, ok := g.db.(bun.Tx); ok {
		return fn(ctx, g)
	}
	return g.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Gateway{db: tx, backend: g.backend})
	})
}

func normalizeRow(m map[string]interface{}) Row {
	row := make(Row, len(m))
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[strings.ToLower(k)] = v
	}
	return row
}

func storageError(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(sqliteErr.Error(), "UNIQUE")
		}
	}
	return false
}
