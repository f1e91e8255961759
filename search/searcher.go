package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/crossmodal/ai"
	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTopK is the number of results returned by a search.
	DefaultTopK = 12
	// DefaultDepth is the number of frontier records expanded per search.
	DefaultDepth = 3
)

// Mode selects how the first-stage candidates are ranked.
type Mode string

const (
	// ModeBalanced keeps an even split of same- and cross-modality hits.
	ModeBalanced Mode = "balanced"
	// ModeHybrid fuses vector similarity with exact keyword matches.
	ModeHybrid Mode = "hybrid"
)

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBalanced, "":
		return ModeBalanced, nil
	case ModeHybrid:
		return ModeHybrid, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// RelevanceGraph is the part of the relevance graph a Searcher reads and,
// for query linking, writes.
type RelevanceGraph interface {
	GraphReader
	Connect(ctx context.Context, source core.ID, sourceModality core.Modality, neighbors []core.Neighbor) error
}

// Params controls a single search.
type Params struct {
	TopK   int
	Mode   Mode
	Expand bool
	Depth  int
	Alpha  float64
}

func (p Params) validate() error {
	if p.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidParameter, p.TopK)
	}
	if p.Depth < 0 {
		return fmt.Errorf("%w: depth must not be negative, got %d", ErrInvalidParameter, p.Depth)
	}
	if p.Alpha < 0 || p.Alpha > 1 {
		return fmt.Errorf("%w: alpha must be within [0,1], got %v", ErrInvalidParameter, p.Alpha)
	}
	if p.Mode != ModeBalanced && p.Mode != ModeHybrid {
		return fmt.Errorf("%w: %q", ErrInvalidMode, p.Mode)
	}
	return nil
}

// Searcher runs cross-modal queries against the document store, optionally
// expanding results through the relevance graph.
type Searcher struct {
	store       storage.VectorStore
	graph       RelevanceGraph
	gateway     *Gateway
	embedder    ai.Embedder
	defaults    Params
	linkQueries bool
	monitor     SearchMonitor
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithTopK sets the default number of results.
func WithTopK(k int) Option {
	return func(s *Searcher) error {
		if k <= 0 {
			return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidParameter, k)
		}
		s.defaults.TopK = k
		return nil
	}
}

// WithDepth sets the default expansion depth.
func WithDepth(depth int) Option {
	return func(s *Searcher) error {
		if depth < 0 {
			return fmt.Errorf("%w: depth must not be negative, got %d", ErrInvalidParameter, depth)
		}
		s.defaults.Depth = depth
		return nil
	}
}

// WithAlpha sets the default hybrid fusion weight.
func WithAlpha(alpha float64) Option {
	return func(s *Searcher) error {
		if alpha < 0 || alpha > 1 {
			return fmt.Errorf("%w: alpha must be within [0,1], got %v", ErrInvalidParameter, alpha)
		}
		s.defaults.Alpha = alpha
		return nil
	}
}

// WithMode sets the default search mode.
func WithMode(mode Mode) Option {
	return func(s *Searcher) error {
		if mode != ModeBalanced && mode != ModeHybrid {
			return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
		}
		s.defaults.Mode = mode
		return nil
	}
}

// WithExpansion enables or disables graph expansion by default.
func WithExpansion(enabled bool) Option {
	return func(s *Searcher) error {
		s.defaults.Expand = enabled
		return nil
	}
}

// WithQueryLinking controls whether a query's content address is connected
// to the results it retrieved.
func WithQueryLinking(enabled bool) Option {
	return func(s *Searcher) error {
		s.linkQueries = enabled
		return nil
	}
}

// WithMonitor installs a monitor that observes every search.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	store storage.VectorStore,
	graph RelevanceGraph,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if graph == nil {
		return nil, ErrGraphRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	gateway, err := NewGateway(store)
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		store:    store,
		graph:    graph,
		gateway:  gateway,
		embedder: provider.Embedder(),
		defaults: Params{
			TopK:   DefaultTopK,
			Mode:   ModeBalanced,
			Expand: true,
			Depth:  DefaultDepth,
			Alpha:  DefaultAlpha,
		},
		linkQueries: true,
		monitor:     &noopMonitor{},
		logger:      slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Defaults returns the parameters Search uses.
func (s *Searcher) Defaults() Params {
	return s.defaults
}

// Search runs query with the searcher's default parameters.
func (s *Searcher) Search(ctx context.Context, query core.Content) ([]core.Neighbor, error) {
	return s.SearchWithParams(ctx, query, s.defaults)
}

// SearchWithParams embeds query, ranks the nearest documents according to
// p.Mode and, when p.Expand is set, propagates scores through the relevance
// graph. At most p.TopK records are returned, ordered by descending score.
func (s *Searcher) SearchWithParams(ctx context.Context, query core.Content, p Params) (results []core.Neighbor, err error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateContent(query); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID, "modality", query.Modality().String(), "mode", string(p.Mode))
	started := time.Now()
	s.monitor.Start(requestID, query.Modality(), p.Mode)
	defer func() {
		s.monitor.Finish(results, time.Since(started), err)
	}()

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Error("error generating embedding for query", "err", err)
		return nil, ai.EmbeddingError(err)
	}
	queryID := core.Identify(query)

	var ranked []core.Neighbor
	switch p.Mode {
	case ModeHybrid:
		ranked, err = s.hybrid(ctx, logger, query, vector, queryID, p)
	default:
		ranked, err = s.balanced(ctx, query, vector, queryID, p)
	}
	if err != nil {
		logger.Error("error ranking candidates", "err", err)
		return nil, err
	}
	s.monitor.AfterRanking(ranked)

	if s.linkQueries && len(ranked) > 0 {
		if err := s.graph.Connect(ctx, queryID, query.Modality(), ranked); err != nil {
			logger.Error("error linking query into relevance graph", "query_id", queryID, "err", err)
			return nil, err
		}
	}

	results = ranked
	if p.Expand && p.Depth > 0 {
		results, err = Expand(ctx, ranked, s.graph, s.store, p.Depth, p.TopK)
		if err != nil {
			logger.Error("error expanding results", "err", err)
			return nil, err
		}
		s.monitor.AfterExpansion(results)
	}

	logger.Debug("search complete", "results", len(results), "elapsed", time.Since(started))
	return results, nil
}

func (s *Searcher) balanced(ctx context.Context, query core.Content, vector []float32, queryID core.ID, p Params) ([]core.Neighbor, error) {
	candidates, err := s.gateway.KNN(ctx, vector, p.TopK, BalancedOversample, queryID)
	if err != nil {
		return nil, err
	}
	s.monitor.AfterVectorSearch(candidates)
	return Balance(candidates, query.Modality(), p.TopK), nil
}

// hybrid runs the vector and keyword legs concurrently and fuses them.
func (s *Searcher) hybrid(ctx context.Context, logger *slog.Logger, query core.Content, vector []float32, queryID core.ID, p Params) ([]core.Neighbor, error) {
	keywords := keywordQuery(core.KeywordText(query))

	var (
		candidates []core.Neighbor
		hits       []core.ID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidates, err = s.gateway.KNN(gctx, vector, p.TopK, HybridOversample, queryID)
		return err
	})
	if keywords != "" {
		g.Go(func() error {
			var err error
			hits, err = s.store.KeywordSearch(gctx, keywords, p.TopK*HybridOversample)
			if err != nil {
				return fmt.Errorf("%w: keyword search: %w", core.ErrVectorStoreFailure, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.monitor.AfterVectorSearch(candidates)

	if keywords == "" {
		if len(candidates) > p.TopK {
			candidates = candidates[:p.TopK]
		}
		return candidates, nil
	}
	s.monitor.AfterKeywordSearch(hits)
	logger.Debug("hybrid legs complete", "vector_hits", len(candidates), "keyword_hits", len(hits))

	fused := Fuse(candidates, hits, p.Alpha, p.TopK)
	return s.hydrateFused(ctx, fused, candidates)
}

// hydrateFused fills modality and payload for fused records, reading from the
// store only for keyword-only hits.
func (s *Searcher) hydrateFused(ctx context.Context, fused, candidates []core.Neighbor) ([]core.Neighbor, error) {
	known := make(map[core.ID]core.Neighbor, len(candidates))
	for _, c := range candidates {
		known[c.Id] = c
	}
	var missing []core.ID
	for _, f := range fused {
		if _, ok := known[f.Id]; !ok {
			missing = append(missing, f.Id)
		}
	}
	if len(missing) > 0 {
		docs, err := s.store.GetDocuments(ctx, missing...)
		if err != nil {
			return nil, fmt.Errorf("%w: hydrate keyword hits: %w", core.ErrVectorStoreFailure, err)
		}
		for _, d := range docs {
			known[d.Id] = core.Neighbor{Id: d.Id, Modality: d.Modality, Payload: d.Payload}
		}
	}

	out := make([]core.Neighbor, 0, len(fused))
	for _, f := range fused {
		n, ok := known[f.Id]
		if !ok {
			continue
		}
		n.Score = f.Score
		out = append(out, n)
	}
	return out, nil
}
