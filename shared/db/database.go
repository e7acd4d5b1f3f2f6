package db

import (
	"context"
	"database/sql"
)

// Database is a database/sql backed store with a managed connection lifecycle.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}

// Pinger reports whether a store is reachable. Both the SQLite and PostgreSQL
// backends implement it for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}
