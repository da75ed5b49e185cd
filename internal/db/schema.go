package db

import "strings"

// rootColumns is the column order used by every SELECT on roots
var rootColumns = []string{"path", "name", "favorite", "active", "added_at", "last_used"}

// BuildRootsTableSQL returns the DDL for the persisted root table
func BuildRootsTableSQL() string {
	return `
CREATE TABLE IF NOT EXISTS roots (
	path      VARCHAR PRIMARY KEY,
	name      VARCHAR NOT NULL,
	favorite  BOOLEAN NOT NULL DEFAULT false,
	active    BOOLEAN NOT NULL DEFAULT false,
	added_at  TIMESTAMP NOT NULL,
	last_used TIMESTAMP NOT NULL
)`
}

func selectRoots(where, orderBy string) string {
	q := "SELECT " + strings.Join(rootColumns, ", ") + " FROM roots"
	if where != "" {
		q += " WHERE " + where
	}
	if orderBy != "" {
		q += " ORDER BY " + orderBy
	}
	return q
}
