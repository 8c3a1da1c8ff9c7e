// Package blobstore abstracts where vocabulary and database files live: on
// the local file system, in memory, or in an S3-compatible object store.
// Blobs are written and read as sequential streams, which matches how the
// persisted formats are produced and consumed.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a named blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
// The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store is a named-blob store. Writes become visible atomically: a blob
// created with Create appears under its name only once the returned writer
// is closed without error.
type Store interface {
	// Open opens a blob for sequential reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Create starts a new blob. Closing the writer publishes it.
	Create(ctx context.Context, name string) (io.WriteCloser, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
