// Package photostore keeps plant photos outside the database. Plants refer
// to a photo by URI; the store maps its own keys to and from those URIs.
package photostore

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when no photo exists for a key.
	ErrNotFound = errors.New("photo not found")
	// ErrForeignURI is returned by KeyFromURI for references the store does
	// not manage. Such photos are never read or deleted through the store.
	ErrForeignURI = errors.New("photo uri not managed by this store")
)

type PhotoStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
	URI(storageKey string) string
	KeyFromURI(uri string) (string, error)
}
