package database

import "errors"

var (
	// ErrSearchNotFound is returned when a search ID does not exist.
	ErrSearchNotFound = errors.New("search not found")

	// ErrDatabaseNotFound is returned by Open when the database does not
	// exist and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")
)
