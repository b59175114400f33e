// Package storage persists rendered images in a flat namespace keyed by
// file reference. References are always reduced to their base name, so a
// stored reference can never address anything outside the namespace.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when no object exists for a reference.
	ErrNotFound = errors.New("storage: object not found")
	// ErrExists is returned by Put when the reference is already taken.
	ErrExists = errors.New("storage: object already exists")
	// ErrInvalidName is returned for references with no usable base name.
	ErrInvalidName = errors.New("storage: invalid object name")
)

// Object is an open stored image. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// Store is the file capability the generator writes through and the
// download path reads from.
type Store interface {
	// Put writes data under name and fails with ErrExists rather than
	// overwrite.
	Put(ctx context.Context, name string, data []byte, contentType string) error
	// Open returns the object for name or ErrNotFound.
	Open(ctx context.Context, name string) (*Object, error)
	// Backend names the implementation for logs and metrics.
	Backend() string
}

// BaseName strips any directory components from a reference, accepting
// both slash styles. It returns ErrInvalidName when nothing usable remains.
func BaseName(ref string) (string, error) {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), `\`, "/")
	base := path.Base(ref)
	switch base {
	case "", ".", "..", "/":
		return "", ErrInvalidName
	}
	return base, nil
}
