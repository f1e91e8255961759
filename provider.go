package crossmodal

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/crossmodal/ai"
	"github.com/poiesic/crossmodal/ai/clip"
	"github.com/poiesic/crossmodal/ai/openai"
	"github.com/poiesic/crossmodal/core"
)

// NewProvider builds the embedding provider for cfg. When cfg names a text
// service, text is routed to it and every other modality stays on the main
// backend.
func NewProvider(cfg *ai.Config, logger *slog.Logger) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		base ai.AIProvider
		err  error
	)
	switch cfg.Backend {
	case ai.BackendOpenAI:
		base, err = openai.NewProvider(cfg)
	case ai.BackendCLIP:
		base, err = clip.NewProvider(cfg, clip.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.TextHost == "" {
		return base, nil
	}

	text, err := openai.NewTextEmbedder(cfg)
	if err != nil {
		base.Close()
		return nil, err
	}
	router := ai.NewRouter(base.Embedder()).Route(core.ModalityText, text)
	logger.Debug("routing text embeddings", "host", cfg.TextHost, "model", cfg.TextModel)
	return &routedProvider{base: base, router: router}, nil
}

// routedProvider serves a Router over a base provider it owns.
type routedProvider struct {
	base   ai.AIProvider
	router *ai.Router
}

func (p *routedProvider) Embedder() ai.Embedder {
	return p.router
}

func (p *routedProvider) Close() error {
	return p.base.Close()
}
