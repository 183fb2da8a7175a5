// Package postgres loads record collections from PostgreSQL tables.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"record-linkage/internal/fileio"
)

// Query selects one collection: an id column and the compared column of a
// table, restricted to values starting with Prefix.
type Query struct {
	Table   string
	ID      string
	Column  string // compared column, exposed under Field
	Field   string
	Prefix  string
	Null    []string // columns that must be NULL
	NotNull []string // columns that must be NOT NULL
}

// Build renders the SELECT with PostgreSQL placeholders.
func (q Query) Build() (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(sb.As(q.ID, "id"), sb.As(q.Column, "value"))
	sb.From(q.Table)

	conds := []string{sb.Like(q.Column, q.Prefix+"%")}
	for _, c := range q.Null {
		conds = append(conds, sb.IsNull(c))
	}
	for _, c := range q.NotNull {
		conds = append(conds, sb.IsNotNull(c))
	}
	sb.Where(conds...)
	sb.OrderBy(q.ID)
	return sb.Build()
}

type row struct {
	ID    string         `db:"id"`
	Value sql.NullString `db:"value"`
}

// Source reads tables through one connection pool.
type Source struct {
	db  *sqlx.DB
	log zerolog.Logger
}

func Open(ctx context.Context, dsn string, log zerolog.Logger) (*Source, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	return &Source{db: db, log: log}, nil
}

func (s *Source) Close() error { return s.db.Close() }

// Load runs q and returns the rows as a table with the columns "id" and
// q.Field, ready for fileio.ToCollection. NULL values stay empty.
func (s *Source) Load(ctx context.Context, q Query) (*fileio.Table, error) {
	query, args := q.Build()
	s.log.Debug().Str("query", query).Interface("args", args).Msg("postgres select")

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "select from %s", q.Table)
	}
	t := toTable(q, rows)
	s.log.Info().Str("table", q.Table).Int("records", len(t.Rows)).Msg("postgres records loaded")
	return t, nil
}

func toTable(q Query, rows []row) *fileio.Table {
	t := &fileio.Table{Name: q.Table, Header: []string{"id", q.Field}}
	for _, r := range rows {
		t.Rows = append(t.Rows, map[string]string{"id": r.ID, q.Field: r.Value.String})
	}
	return t
}

// DSN builds a lib/pq connection string.
func DSN(host string, port int, name, user, password, sslmode string) string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		host, strconv.Itoa(port), name, user, quote(password), sslmode)
}

// quote wraps a value in single quotes, escaping as lib/pq expects.
func quote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}
