package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LocalBackend stores objects and HTML views on the local disk, under two
// separate roots so a reverse proxy can serve the HTML root with a fixed
// text/html content type.
type LocalBackend struct {
	ObjectRoot string
	HTMLRoot   string
}

func NewLocalBackend(objectRoot, htmlRoot string) (*LocalBackend, error) {
	for _, root := range []string{objectRoot, htmlRoot} {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage root, %w", err)
		}
	}

	zap.L().Info("Using local storage backend",
		zap.String("object_root", objectRoot),
		zap.String("html_root", htmlRoot),
	)

	return &LocalBackend{
		ObjectRoot: objectRoot,
		HTMLRoot:   htmlRoot,
	}, nil
}

func (b *LocalBackend) store(root string, obj Object) error {
	if err := obj.Validate(); err != nil {
		return fmt.Errorf("invalid object, %w", err)
	}

	// Write to a temporary file first so a retried store never leaves a
	// half-written object visible under its final name.
	tmp, err := os.CreateTemp(root, ".store-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file, %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, obj.Reader); err != nil {
		return fmt.Errorf("failed to write object, %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file, %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(root, obj.Key)); err != nil {
		return fmt.Errorf("failed to move object into place, %w", err)
	}
	return nil
}

func (b *LocalBackend) StoreObject(ctx context.Context, obj Object) error {
	return b.store(b.ObjectRoot, obj)
}

func (b *LocalBackend) StoreHTML(ctx context.Context, obj Object) error {
	return b.store(b.HTMLRoot, obj)
}
