package sqldb

import (
	"strconv"
	"strings"
)

// Dialect captures the differences between the SQLite and PostgreSQL
// flavors of the ledger schema: placeholder style and auto-increment
// primary key syntax. Everything else is shared SQL.
type Dialect interface {
	// Name identifies the dialect ("sqlite" or "postgres").
	Name() string

	// Rebind rewrites ?-style placeholders into the dialect's native form.
	Rebind(query string) string

	// AutoIncrementPK returns the column definition for a 64-bit
	// auto-incrementing primary key named "id".
	AutoIncrementPK() string
}

// SQLite is the Dialect for mattn/go-sqlite3 connections.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

// Rebind is the identity for SQLite, which accepts ? placeholders natively.
func (SQLite) Rebind(query string) string { return query }

func (SQLite) AutoIncrementPK() string { return "id INTEGER PRIMARY KEY AUTOINCREMENT" }

// Postgres is the Dialect for pgx stdlib connections.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

// Rebind rewrites each ? placeholder into $1, $2, ... positional form.
func (Postgres) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

func (Postgres) AutoIncrementPK() string { return "id BIGSERIAL PRIMARY KEY" }
