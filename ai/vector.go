package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/crossmodal/core"
)

// PrepareVector checks that v has dim entries and returns it L2-normalized.
// A zero vector cannot be normalized and is rejected.
func PrepareVector(v []float32, dim int) ([]float32, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", core.ErrEmbeddingFailure)
	}
	if len(v) != dim {
		return nil, fmt.Errorf("%w: %w: got %d, want %d", core.ErrEmbeddingFailure, core.ErrDimensionMismatch, len(v), dim)
	}
	if core.IsNormalized(v) {
		return v, nil
	}
	out := core.Normalize(append([]float32(nil), v...))
	if !core.IsNormalized(out) {
		return nil, fmt.Errorf("%w: zero-length embedding", core.ErrEmbeddingFailure)
	}
	return out, nil
}

// EmbeddingError normalizes an embedder failure so callers can match it with
// errors.Is(err, core.ErrEmbeddingFailure). Unsupported modalities and
// context errors are returned unchanged.
func EmbeddingError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrEmbeddingFailure),
		errors.Is(err, core.ErrUnsupportedModality),
		errors.Is(err, core.ErrEmptyContent),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", core.ErrEmbeddingFailure, err)
	}
}
