package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/crossmodal/ai"
	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/search"
	"github.com/poiesic/crossmodal/storage"
	"golang.org/x/sync/singleflight"
)

// DefaultNeighborCount is the number of neighbors a submission is linked to.
const DefaultNeighborCount = 5

// Connector is the write side of the relevance graph.
type Connector interface {
	Connect(ctx context.Context, source core.ID, sourceModality core.Modality, neighbors []core.Neighbor) error
}

// SubmitMonitor observes completed submissions.
type SubmitMonitor interface {
	Submitted(modality core.Modality, created bool, elapsed time.Duration, err error)
}

type noopSubmitMonitor struct{}

func (noopSubmitMonitor) Submitted(core.Modality, bool, time.Duration, error) {}

// SubmitResult describes a completed submission.
type SubmitResult struct {
	Key       core.ID
	Neighbors []core.Neighbor
	// Created is false when identical content was already stored.
	Created bool
}

// Submitter stores content and links it into the relevance graph.
type Submitter struct {
	store     storage.VectorStore
	graph     Connector
	gateway   *search.Gateway
	embedder  ai.Embedder
	uploads   storage.UploadStore
	neighbors int
	monitor   SubmitMonitor
	logger    *slog.Logger
	// inflight collapses concurrent stores of the same content address.
	inflight singleflight.Group
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter) error

// WithSubmitLogger sets a custom logger.
// Default is slog.Default().
func WithSubmitLogger(logger *slog.Logger) SubmitterOption {
	return func(s *Submitter) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithUploadStore sets where image and audio bytes are written.
func WithUploadStore(uploads storage.UploadStore) SubmitterOption {
	return func(s *Submitter) error {
		s.uploads = uploads
		return nil
	}
}

// WithNeighborCount sets how many neighbors each submission is linked to.
// Default is DefaultNeighborCount.
func WithNeighborCount(k int) SubmitterOption {
	return func(s *Submitter) error {
		if k < 1 {
			return fmt.Errorf("neighbor count must be positive, got %d", k)
		}
		s.neighbors = k
		return nil
	}
}

// WithSubmitMonitor installs a monitor notified after every submission.
func WithSubmitMonitor(monitor SubmitMonitor) SubmitterOption {
	return func(s *Submitter) error {
		if monitor == nil {
			monitor = noopSubmitMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewSubmitter creates a new submitter.
func NewSubmitter(
	store storage.VectorStore,
	graph Connector,
	provider ai.AIProvider,
	opts ...SubmitterOption,
) (*Submitter, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if graph == nil {
		return nil, ErrGraphRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	gateway, err := search.NewGateway(store)
	if err != nil {
		return nil, err
	}

	s := &Submitter{
		store:     store,
		graph:     graph,
		gateway:   gateway,
		embedder:  provider.Embedder(),
		neighbors: DefaultNeighborCount,
		monitor:   noopSubmitMonitor{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "submitter")
	return s, nil
}

// Submit stores content (unless identical content already exists), finds
// its balanced neighbors and connects them in the relevance graph.
func (s *Submitter) Submit(ctx context.Context, content core.Content) (result *SubmitResult, err error) {
	if err := core.ValidateContent(content); err != nil {
		return nil, err
	}
	started := time.Now()
	modality := content.Modality()
	defer func() {
		s.monitor.Submitted(modality, result != nil && result.Created, time.Since(started), err)
	}()

	key := core.Identify(content)
	logger := s.logger.With("key", key, "modality", modality.String())

	vector, created, err := s.ensureDocument(ctx, logger, key, content)
	if err != nil {
		return nil, err
	}

	candidates, err := s.gateway.KNN(ctx, vector, s.neighbors, search.BalancedOversample, key)
	if err != nil {
		logger.Error("error querying neighbors", "err", err)
		return nil, err
	}
	neighbors := search.Balance(candidates, modality, s.neighbors)

	if err := s.graph.Connect(ctx, key, modality, neighbors); err != nil {
		logger.Error("error updating relevance graph", "err", err)
		return nil, err
	}

	logger.Debug("submission linked", "created", created, "neighbors", len(neighbors))
	return &SubmitResult{Key: key, Neighbors: neighbors, Created: created}, nil
}

// ensureDocument returns the stored vector for key, embedding and storing
// content first if it is new. Concurrent calls for the same key share one
// lookup and store; only the caller that performed the store reports created.
func (s *Submitter) ensureDocument(ctx context.Context, logger *slog.Logger, key core.ID, content core.Content) ([]float32, bool, error) {
	var (
		ran     bool
		created bool
	)
	v, err, _ := s.inflight.Do(string(key), func() (any, error) {
		ran = true
		vector, stored, err := s.storeDocument(ctx, logger, key, content)
		created = stored
		return vector, err
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]float32), ran && created, nil
}

func (s *Submitter) storeDocument(ctx context.Context, logger *slog.Logger, key core.ID, content core.Content) ([]float32, bool, error) {
	existing, err := s.store.GetDocument(ctx, key)
	switch {
	case err == nil:
		logger.Debug("content already stored, skipping embedding")
		return existing.Vector, false, nil
	case !errors.Is(err, storage.ErrNotFound):
		logger.Error("error looking up document", "err", err)
		return nil, false, fmt.Errorf("%w: lookup %s: %w", core.ErrVectorStoreFailure, key, err)
	}

	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		logger.Error("error generating embedding", "err", err)
		return nil, false, ai.EmbeddingError(err)
	}

	payload, uploaded, err := s.payload(ctx, key, content)
	if err != nil {
		logger.Error("error saving upload", "err", err)
		return nil, false, err
	}

	doc := &core.Document{
		Id:         key,
		Modality:   content.Modality(),
		Payload:    payload,
		Vector:     vector,
		Normalized: core.IsNormalized(vector),
		InsertedAt: time.Now().UTC(),
	}
	if err := s.store.Upsert(ctx, doc); err != nil {
		logger.Error("error storing document", "err", err)
		if uploaded {
			if rmErr := s.uploads.Remove(ctx, payload); rmErr != nil {
				logger.Warn("error removing orphaned upload", "ref", payload, "err", rmErr)
			}
		}
		return nil, false, fmt.Errorf("%w: upsert %s: %w", core.ErrVectorStoreFailure, key, err)
	}
	return vector, true, nil
}

// payload is the text itself for text content and the upload reference for
// files. uploaded reports whether a file was written.
func (s *Submitter) payload(ctx context.Context, key core.ID, content core.Content) (ref string, uploaded bool, err error) {
	if text, ok := content.(core.TextContent); ok {
		return text.Text, false, nil
	}
	if s.uploads == nil {
		return "", false, ErrUploadStoreRequired
	}
	ref, err = s.uploads.Save(ctx, key, core.FileExtension(content), content.Bytes())
	if err != nil {
		return "", false, fmt.Errorf("%w: save upload %s: %w", core.ErrVectorStoreFailure, key, err)
	}
	return ref, true, nil
}
