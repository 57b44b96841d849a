// Package storage persists uploaded objects and their rendered HTML views.
//
// Backends are required to be able to store both HTML and raw objects. HTML
// must end up served as text/html; raw objects are served with whatever safe
// mimetype the upload pipeline decided on. Some backends can control the
// mimetype per object (S3), some can't (local disk), which is why the two
// kinds are stored through separate methods.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"github.com/spf13/viper"
)

// Object is a single named byte stream to persist, together with everything
// a backend may want to annotate it with.
type Object struct {
	// Key is the storage name, e.g. "xb3dk...s9.html". Always a bare file
	// name, never a path.
	Key                string
	MIMEType           string
	ContentDisposition string

	// Links holds the URLs of every object produced by the same request,
	// including this one, so backends can cross-reference siblings.
	Links []string
	// MetadataURL points at the metadata object of the batch.
	MetadataURL string

	Reader io.ReadSeeker
}

// Validate rejects keys that could escape the storage root.
func (o Object) Validate() error {
	if o.Key == "" {
		return errors.New("key must not be empty")
	}
	if filepath.Base(o.Key) != o.Key || o.Key == "." || o.Key == ".." {
		return errors.New("key contains invalid characters")
	}
	return nil
}

// Backend stores objects. Implementations must be safe for concurrent use
// and idempotent on retry; destination paths never need pre-creation by the
// caller.
type Backend interface {
	StoreObject(ctx context.Context, obj Object) error
	StoreHTML(ctx context.Context, obj Object) error
}

// New builds the backend selected by storage.type. Called once at startup;
// the returned backend is shared by all requests.
func New() (Backend, error) {
	switch viper.GetString("storage.type") {
	case "s3":
		return NewS3Backend()
	case "local":
		return NewLocalBackend(
			viper.GetString("storage.object_path"),
			viper.GetString("storage.html_path"),
		)
	default:
		return nil, errors.New("invalid storage type provided")
	}
}
