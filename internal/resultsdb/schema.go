// Package resultsdb persists reported cases in a DuckDB database.
package resultsdb

import (
	"database/sql"
	_ "embed"
	"errors"
)

// schemaDDL holds the results database schema.
//
//go:embed schema.sql
var schemaDDL string

// SchemaDDL returns the schema DDL used for initializing result databases.
func SchemaDDL() string {
	return schemaDDL
}

// EnsureSchema applies the schema DDL to the provided database connection.
func EnsureSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("resultsdb: db is nil")
	}
	_, err := db.Exec(schemaDDL)
	return err
}
