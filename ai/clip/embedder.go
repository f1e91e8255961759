package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/poiesic/crossmodal/ai"
	"github.com/poiesic/crossmodal/core"
)

// maxErrorBody caps how much of a failed response is echoed into errors.
const maxErrorBody = 512

// Embedder implements ai.Embedder over the CLIP HTTP protocol.
type Embedder struct {
	endpoint string
	dim      int
	client   *http.Client
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// Option configures an Embedder.
type Option func(*Embedder)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Embedder) {
		if client != nil {
			e.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func newEmbedder(config *ai.Config, opts ...Option) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	e := &Embedder{
		endpoint: config.EmbeddingHost + "/embed",
		dim:      config.Dimensions,
		client:   &http.Client{Timeout: config.Timeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "clip-embedder")
	return e, nil
}

// NewEmbedder creates a CLIP embedder.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config, opts ...Option) (ai.Embedder, error) {
	return newEmbedder(config, opts...)
}

type embedRequest struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
	Audio string `json:"audio,omitempty"`
}

// Embed sends content to the service and returns the normalized vector.
func (e *Embedder) Embed(ctx context.Context, content core.Content) ([]float32, error) {
	if err := core.ValidateContent(content); err != nil {
		return nil, err
	}

	var req embedRequest
	switch c := content.(type) {
	case core.TextContent:
		req.Text = c.Text
	case core.ImageContent:
		req.Image = base64.StdEncoding.EncodeToString(c.Data)
	case core.AudioContent:
		req.Audio = base64.StdEncoding.EncodeToString(c.Data)
	default:
		return nil, core.ErrUnsupportedModality
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingFailure, err)
	}

	e.logger.Debug("requesting embedding", "modality", content.Modality(), "bytes", len(content.Bytes()))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingFailure, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		e.logger.Error("embedding request failed", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", core.ErrEmbeddingFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: status %d: %s", core.ErrEmbeddingFailure, resp.StatusCode, respBody)
	}

	vec, err := parseEmbedding(respBody)
	if err != nil {
		return nil, err
	}
	return ai.PrepareVector(vec, e.dim)
}

// parseEmbedding decodes [[f...]] or [f...] and returns the first vector.
func parseEmbedding(body []byte) ([]float32, error) {
	var nested [][]float32
	if err := json.Unmarshal(body, &nested); err != nil {
		var flat []float32
		if flatErr := json.Unmarshal(body, &flat); flatErr != nil {
			return nil, fmt.Errorf("%w: parse response: %w", core.ErrEmbeddingFailure, err)
		}
		nested = [][]float32{flat}
	}
	if len(nested) == 0 || len(nested[0]) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", core.ErrEmbeddingFailure)
	}
	return nested[0], nil
}
