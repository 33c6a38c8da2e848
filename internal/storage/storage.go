// Package storage provides the object-store surface the backup core depends
// on: stat, get, and delete keyed by document references, plus the accountant
// that turns reference sets into byte totals and deletion reports.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a referenced object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Object is a downloaded document.
type Object struct {
	Data        []byte
	ContentType string
}

// ObjectStore is the minimal contract against document storage. References
// are raw strings as extracted from step data; implementations resolve both
// tenant-scoped keys and legacy URLs.
type ObjectStore interface {
	// Stat returns the object size in bytes, or ErrNotFound.
	Stat(ctx context.Context, ref string) (int64, error)
	// Get downloads the object, or returns ErrNotFound.
	Get(ctx context.Context, ref string) (*Object, error)
	// Delete removes the object.
	Delete(ctx context.Context, ref string) error
}
