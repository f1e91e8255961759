package ai

import (
	"context"
	"fmt"

	"github.com/poiesic/crossmodal/core"
)

// Router is an Embedder that dispatches each content to the embedder
// registered for its modality, falling back to a default.
type Router struct {
	fallback Embedder
	routes   map[core.Modality]Embedder
}

var _ Embedder = (*Router)(nil)

// NewRouter creates a Router. fallback may be nil, in which case unrouted
// modalities fail with core.ErrUnsupportedModality.
func NewRouter(fallback Embedder) *Router {
	return &Router{
		fallback: fallback,
		routes:   make(map[core.Modality]Embedder),
	}
}

// Route sends content of modality m to e.
func (r *Router) Route(m core.Modality, e Embedder) *Router {
	r.routes[m] = e
	return r
}

// Embed delegates to the embedder for content's modality.
func (r *Router) Embed(ctx context.Context, content core.Content) ([]float32, error) {
	if content == nil {
		return nil, core.ErrEmptyContent
	}
	if e, ok := r.routes[content.Modality()]; ok {
		return e.Embed(ctx, content)
	}
	if r.fallback == nil {
		return nil, fmt.Errorf("%w: no embedder for %s", core.ErrUnsupportedModality, content.Modality())
	}
	return r.fallback.Embed(ctx, content)
}
