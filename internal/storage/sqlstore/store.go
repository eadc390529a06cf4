// Package sqlstore holds the queries shared by the SQLite and PostgreSQL stores.
// Statements are written with "?" placeholders and rebound for the dialect.
package sqlstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/pacewise/internal/migration"
	"github.com/julianstephens/pacewise/internal/storage"
)

type Queries struct {
	db      *sql.DB
	dialect migration.Dialect
}

func New(db *sql.DB, dialect migration.Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

func (q *Queries) DB() *sql.DB {
	return q.db
}

func (q *Queries) exec(query string, args ...any) (sql.Result, error) {
	return q.db.Exec(q.dialect.Rebind(query), args...)
}

func (q *Queries) query(query string, args ...any) (*sql.Rows, error) {
	return q.db.Query(q.dialect.Rebind(query), args...)
}

func (q *Queries) queryRow(query string, args ...any) *sql.Row {
	return q.db.QueryRow(q.dialect.Rebind(query), args...)
}

// tx wraps a transaction so statements are rebound like the top-level helpers.
type tx struct {
	*sql.Tx
	dialect migration.Dialect
}

func (q *Queries) begin() (*tx, error) {
	t, err := q.db.Begin()
	if err != nil {
		return nil, err
	}
	return &tx{Tx: t, dialect: q.dialect}, nil
}

func (t *tx) exec(query string, args ...any) (sql.Result, error) {
	return t.Exec(t.dialect.Rebind(query), args...)
}

func (t *tx) queryRow(query string, args ...any) *sql.Row {
	return t.QueryRow(t.dialect.Rebind(query), args...)
}

// dateRange appends optional inclusive date bounds to a WHERE clause.
func dateRange(base string, args []any, from, to string) (string, []any) {
	var b strings.Builder
	b.WriteString(base)
	if from != "" {
		b.WriteString(" AND date >= ?")
		args = append(args, from)
	}
	if to != "" {
		b.WriteString(" AND date <= ?")
		args = append(args, to)
	}
	return b.String(), args
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), storage.ErrNotFound)
	}
	return err
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshal(data string, v any) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", v, err)
	}
	return t, nil
}
