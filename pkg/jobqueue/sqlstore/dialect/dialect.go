// Package dialect translates the `?` placeholder style used throughout
// sqlstore into whatever the underlying driver expects.
package dialect

import (
	"strconv"
	"strings"
)

// Dialect identifies the SQL database backing a Store.
type Dialect string

const (
	// SQLite is the default dialect.
	SQLite Dialect = "sqlite"
	// Postgres is the optional dialect (spec.md §4.1 "dual-dialect").
	Postgres Dialect = "postgres"
)

// Rebind converts `?` placeholders to `$1, $2, ...` for Postgres. SQLite
// queries pass through unchanged. There's only one correct way to do this
// rewrite byte-by-byte; it isn't specific to this store.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var buf strings.Builder
	buf.Grow(len(query) + 10)

	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			buf.WriteByte('$')
			buf.WriteString(strconv.Itoa(n))
			n++
		} else {
			buf.WriteByte(query[i])
		}
	}
	return buf.String()
}

// UpsertInto returns the dialect's INSERT-or-update-on-conflict syntax for
// a single-row upsert keyed on conflictCol.
func (d Dialect) UpsertInto(table, columns, placeholders, conflictCol, updateExpr string) string {
	switch d {
	case Postgres:
		return "INSERT INTO " + table + "(" + columns + ") VALUES(" + d.Rebind(placeholders) + ") " +
			"ON CONFLICT (" + conflictCol + ") DO UPDATE SET " + updateExpr
	default:
		return "INSERT INTO " + table + "(" + columns + ") VALUES(" + placeholders + ") " +
			"ON CONFLICT (" + conflictCol + ") DO UPDATE SET " + updateExpr
	}
}

func (d Dialect) IsPostgres() bool { return d == Postgres }
func (d Dialect) IsSQLite() bool   { return d == "" || d == SQLite }

func (d Dialect) GooseDialect() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}
