package clip

import (
	"log/slog"

	"github.com/poiesic/crossmodal/ai"
)

// Provider implements ai.AIProvider with a CLIP embedder.
type Provider struct {
	embedder *Embedder
	logger   *slog.Logger
}

// NewProvider creates a provider around a CLIP embedder.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction.
func NewProvider(config *ai.Config, opts ...Option) (ai.AIProvider, error) {
	embedder, err := newEmbedder(config, opts...)
	if err != nil {
		return nil, err
	}
	return &Provider{
		embedder: embedder,
		logger:   embedder.logger,
	}, nil
}

// Embedder returns the CLIP embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close releases idle HTTP connections.
func (p *Provider) Close() error {
	p.logger.Debug("closing CLIP provider")
	p.embedder.client.CloseIdleConnections()
	return nil
}
