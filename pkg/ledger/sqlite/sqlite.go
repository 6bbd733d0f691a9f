// Package sqlite provides a SQLite-backed ledger driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/ambient/pkg/ledger/sqldb"
)

// Driver implements ledger.Driver using SQLite via the shared sqldb store.
type Driver struct {
	*sqldb.Store
}

// NewDriver creates a new SQLite-backed ledger store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// _loc=UTC keeps stored timestamps uniform so range comparisons hold.
	db, err := sql.Open("sqlite3", dbPath+"?_loc=UTC&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Two processes share one ledger file; WAL keeps readers unblocked
	// while the other process writes.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	store, err := sqldb.NewStore(ctx, db, sqldb.SQLite{})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Store: store}, nil
}
