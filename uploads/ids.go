// Package uploads contains the domain objects of an upload or paste request:
// validated files, their derived names and mimetypes, and the metadata object
// describing the batch.
package uploads

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Object keys deliberately skip vowels and 0/1-style lookalikes: IDs are the
// sole access control for stored objects, and we'd rather they never spell
// words or get mistyped.
const (
	idLength   = 32
	idAlphabet = "bcdfghjklmnpqrstvwxzBCDFGHJKLMNPQRSTVWXZ0123456789"
)

// NewID returns a random unique object ID. There is no collision check
// against existing storage; the keyspace makes collisions negligible.
func NewID() (string, error) {
	return gonanoid.Generate(idAlphabet, idLength)
}
