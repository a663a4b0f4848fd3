package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// ErrForeignKey is returned when a write references a row that no longer
// exists, e.g. a comment insert racing a ticket delete.
var ErrForeignKey = errors.New("referenced record missing")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// classify translates driver-level constraint violations into store
// sentinels so no pq error leaks past this package.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrDuplicate
		case pqForeignKeyViolation:
			return ErrForeignKey
		}
	}
	return err
}
