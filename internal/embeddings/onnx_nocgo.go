//go:build !cgo

package embeddings

import (
	"context"
	"errors"
)

// ErrONNXNotAvailable is returned when the onnx provider is not
// available (requires CGO).
var ErrONNXNotAvailable = errors.New("onnx: not available (binary built without CGO support)")

// ONNXBackend is a stub for non-CGO builds.
type ONNXBackend struct{}

// NewONNXBackend returns an error when CGO is not available.
func NewONNXBackend(_ Config) (*ONNXBackend, error) {
	return nil, ErrONNXNotAvailable
}

// Embed returns an error when CGO is not available.
func (b *ONNXBackend) Embed(_ context.Context, _ []string) (*Tensor, error) {
	return nil, ErrONNXNotAvailable
}

// ModelID returns an empty string when CGO is not available.
func (b *ONNXBackend) ModelID() string {
	return ""
}

// Dimension returns 0 when CGO is not available.
func (b *ONNXBackend) Dimension() int {
	return 0
}

// Close is a no-op when CGO is not available.
func (b *ONNXBackend) Close() error {
	return nil
}
