//go:build !cgo

package embeddings

import (
	"context"
	"errors"
)

// ErrFastEmbedNotAvailable is returned when fastembed is not available
// (requires CGO).
var ErrFastEmbedNotAvailable = errors.New("fastembed: not available (binary built without CGO support)")

// FastEmbedBackend is a stub for non-CGO builds.
type FastEmbedBackend struct{}

// NewFastEmbedBackend returns an error when CGO is not available.
func NewFastEmbedBackend(_ Config) (*FastEmbedBackend, error) {
	return nil, ErrFastEmbedNotAvailable
}

// Embed returns an error when CGO is not available.
func (b *FastEmbedBackend) Embed(_ context.Context, _ []string) (*Tensor, error) {
	return nil, ErrFastEmbedNotAvailable
}

// ModelID returns an empty string when CGO is not available.
func (b *FastEmbedBackend) ModelID() string {
	return ""
}

// Dimension returns 0 when CGO is not available.
func (b *FastEmbedBackend) Dimension() int {
	return 0
}

// Close is a no-op when CGO is not available.
func (b *FastEmbedBackend) Close() error {
	return nil
}
