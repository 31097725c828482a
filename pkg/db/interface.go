package db

import (
	"database/sql"
	"errors"
)

// DBProvider is an interface for database clients that provide access to a sql.DB handle.
// This allows both PostgresClient and SupabaseClient to be used interchangeably.
type DBProvider interface {
	DB() *sql.DB
}

// ErrNotConnected is returned when a repository has no usable handle.
var ErrNotConnected = errors.New("database not connected")

// ErrNotFound is returned when a row to update does not exist or is not owned by the caller.
var ErrNotFound = errors.New("record not found")
