package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/crossmodal/ai"
	"github.com/poiesic/crossmodal/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder for text using OpenAI-compatible embedding
// APIs. Image and audio content is rejected.
type Embedder struct {
	embedder embeddings.Embedder
	dim      int
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(host, model string, dim int) (*Embedder, error) {
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		dim:      dim,
		logger:   slog.Default().With("component", "openai-embedder", "model", model),
	}, nil
}

// NewEmbedder creates an embedder for the configured embedding host and model.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newEmbedder(config.EmbeddingHost, config.EmbeddingModel, config.Dimensions)
}

// NewTextEmbedder creates an embedder for the configured text service,
// used when text is routed away from the main backend.
func NewTextEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.TextHost == "" {
		return nil, fmt.Errorf("ai config: TextHost is required for a text embedder")
	}
	return newEmbedder(config.TextHost, config.TextModel, config.Dimensions)
}

// Embed generates a vector embedding for text content.
func (e *Embedder) Embed(ctx context.Context, content core.Content) ([]float32, error) {
	if err := core.ValidateContent(content); err != nil {
		return nil, err
	}
	text, ok := content.(core.TextContent)
	if !ok {
		return nil, fmt.Errorf("%w: %s embeddings not supported", core.ErrUnsupportedModality, content.Modality())
	}

	e.logger.Debug("generating embedding for text", "length", len(text.Text))

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text.Text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingFailure, err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: embedder returned empty result", core.ErrEmbeddingFailure)
	}
	return ai.PrepareVector(vectors[0], e.dim)
}
