// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package crossmodal is a multimodal retrieval engine. Text, images and audio
// share one embedding space; every submission is linked into a persistent
// relevance graph that later searches expand through.
package crossmodal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/crossmodal/ai"
	"github.com/poiesic/crossmodal/config"
	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/graph"
	"github.com/poiesic/crossmodal/ingestion"
	"github.com/poiesic/crossmodal/metrics"
	"github.com/poiesic/crossmodal/repair"
	"github.com/poiesic/crossmodal/search"
	"github.com/poiesic/crossmodal/storage"
	"github.com/poiesic/crossmodal/storage/badger"
	"github.com/poiesic/crossmodal/storage/file"
	"github.com/poiesic/crossmodal/storage/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

// ErrConfigRequired indicates Open was called without a configuration.
var ErrConfigRequired = errors.New("configuration is required")

// Database ties the document store, relevance graph, embedders and upload
// store together behind the submit and search operations.
type Database struct {
	config    *config.Config
	store     storage.VectorStore
	graph     *graph.Graph
	uploads   storage.UploadStore
	provider  ai.AIProvider
	searcher  *search.Searcher
	submitter *ingestion.Submitter
	collector *metrics.Collector
	closers   []io.Closer
	base      *slog.Logger
	logger    *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	provider   ai.AIProvider
	fs         afero.Fs
	registerer prometheus.Registerer
	logger     *slog.Logger
}

// WithProvider uses provider instead of building one from the embedding
// configuration. The Database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithFs sets the filesystem holding uploads and the snapshot file.
// Default is the OS filesystem.
func WithFs(fs afero.Fs) DatabaseOption {
	return func(o *databaseOptions) {
		o.fs = fs
	}
}

// WithMetrics registers search, submission and graph metrics with reg.
func WithMetrics(reg prometheus.Registerer) DatabaseOption {
	return func(o *databaseOptions) {
		o.registerer = reg
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// Open builds a Database from cfg. The vector index is created if missing and
// the relevance graph is restored from its last snapshot.
func Open(ctx context.Context, cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &databaseOptions{
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	db := &Database{
		config: cfg,
		base:   options.logger,
		logger: options.logger.With("component", "database"),
	}
	if err := db.open(ctx, options); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			db.logger.Error("error releasing resources after failed open", "err", closeErr)
		}
		return nil, err
	}
	return db, nil
}

func (db *Database) open(ctx context.Context, options *databaseOptions) error {
	cfg := db.config
	logger := options.logger

	store, snapshots, err := db.openStores(ctx, options)
	if err != nil {
		return err
	}
	db.store = store

	if err := store.EnsureIndex(ctx, cfg.Embedding.Dimensions); err != nil {
		return fmt.Errorf("%w: ensure index: %w", core.ErrVectorStoreFailure, err)
	}

	db.graph, err = graph.Open(ctx, snapshots, graph.WithLogger(logger))
	if err != nil {
		// graph.Open does not take ownership on failure
		db.closers = append(db.closers, snapshots)
		return fmt.Errorf("failed to load relevance graph: %w", err)
	}
	db.closers = append(db.closers, db.graph)

	db.uploads, err = file.NewUploadStore(options.fs, cfg.Storage.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to create upload store: %w", err)
	}

	db.provider = options.provider
	if db.provider == nil {
		db.provider, err = NewProvider(cfg.AIConfig(), logger)
		if err != nil {
			return fmt.Errorf("failed to create embedding provider: %w", err)
		}
	}
	db.closers = append(db.closers, db.provider)

	if options.registerer != nil {
		db.collector = metrics.NewCollector(metrics.DefaultNamespace, options.registerer)
		if err := db.collector.RegisterGraph(db.graph); err != nil {
			return fmt.Errorf("failed to register graph metrics: %w", err)
		}
	}

	mode, err := search.ParseMode(cfg.Search.Mode)
	if err != nil {
		return err
	}
	searchOpts := []search.Option{
		search.WithLogger(logger),
		search.WithTopK(cfg.Search.TopK),
		search.WithDepth(cfg.Search.Depth),
		search.WithAlpha(cfg.Search.Alpha),
		search.WithMode(mode),
		search.WithExpansion(cfg.Search.Expand),
		search.WithQueryLinking(cfg.Search.LinkQueries),
	}
	submitOpts := []ingestion.SubmitterOption{
		ingestion.WithSubmitLogger(logger),
		ingestion.WithUploadStore(db.uploads),
		ingestion.WithNeighborCount(cfg.Submit.Neighbors),
	}
	if db.collector != nil {
		searchOpts = append(searchOpts, search.WithMonitor(db.collector))
		submitOpts = append(submitOpts, ingestion.WithSubmitMonitor(db.collector))
	}

	db.searcher, err = search.NewSearcher(store, db.graph, db.provider, searchOpts...)
	if err != nil {
		return err
	}
	db.submitter, err = ingestion.NewSubmitter(store, db.graph, db.provider, submitOpts...)
	return err
}

// openStores opens the document store and the snapshot store for the
// configured backend. Both are registered for Close.
func (db *Database) openStores(ctx context.Context, options *databaseOptions) (storage.VectorStore, storage.SnapshotStore, error) {
	cfg := db.config.Storage

	var (
		store     storage.VectorStore
		snapshots storage.SnapshotStore
	)
	switch cfg.Backend {
	case config.StorageRedis:
		client, err := redis.NewClient(ctx, redis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, nil, err
		}
		redisOpts := []redis.Option{redis.WithLogger(options.logger)}
		if cfg.Redis.IndexName != "" {
			redisOpts = append(redisOpts, redis.WithIndexName(cfg.Redis.IndexName))
		}
		if cfg.Redis.KeyPrefix != "" {
			redisOpts = append(redisOpts, redis.WithKeyPrefix(cfg.Redis.KeyPrefix))
		}
		if cfg.Redis.SnapshotKey != "" {
			redisOpts = append(redisOpts, redis.WithSnapshotKey(cfg.Redis.SnapshotKey))
		}
		// The document store owns the shared client.
		store, err = redis.NewVectorStore(client, append(redisOpts, redis.WithOwnedClient())...)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		db.closers = append(db.closers, store)
		if cfg.SnapshotFile == "" {
			snapshots, err = redis.NewSnapshotStore(client, redisOpts...)
			if err != nil {
				return nil, nil, err
			}
		}
	default:
		var (
			stores *badger.Stores
			err    error
		)
		if cfg.InMemory {
			stores, err = badger.NewMemoryStores(badger.WithLogger(options.logger))
		} else {
			stores, err = badger.OpenStores(cfg.Path, badger.WithLogger(options.logger))
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open badger storage: %w", err)
		}
		db.closers = append(db.closers, stores)
		store = stores.Documents
		if cfg.SnapshotFile == "" {
			snapshots = stores.Snapshots
		}
	}

	if snapshots == nil {
		var err error
		snapshots, err = file.NewSnapshotStore(options.fs, cfg.SnapshotFile)
		if err != nil {
			return nil, nil, err
		}
	}
	return store, snapshots, nil
}

// Close releases the provider, graph and stores in reverse opening order.
// It is safe to call on a partially opened Database.
func (db *Database) Close() error {
	var errs []error
	for i := len(db.closers) - 1; i >= 0; i-- {
		if err := db.closers[i].Close(); err != nil {
			db.logger.Error("error closing resource", "err", err)
			errs = append(errs, err)
		}
	}
	db.closers = nil
	return errors.Join(errs...)
}

// Submit stores content and links it into the relevance graph.
// Submitting identical content again returns the same key with Created false.
func (db *Database) Submit(ctx context.Context, content core.Content) (*ingestion.SubmitResult, error) {
	return db.submitter.Submit(ctx, content)
}

// Search runs query with the configured search defaults.
func (db *Database) Search(ctx context.Context, query core.Content) ([]core.Neighbor, error) {
	return db.searcher.Search(ctx, query)
}

// SearchWithParams runs query with explicit parameters.
func (db *Database) SearchWithParams(ctx context.Context, query core.Content, p search.Params) ([]core.Neighbor, error) {
	return db.searcher.SearchWithParams(ctx, query, p)
}

// SearchDefaults returns the parameters Search uses.
func (db *Database) SearchDefaults() search.Params {
	return db.searcher.Defaults()
}

// OpenUpload reads back the bytes of an image or audio payload.
func (db *Database) OpenUpload(ctx context.Context, ref string) ([]byte, error) {
	return db.uploads.Open(ctx, ref)
}

// NewBulkPipeline creates a pipeline submitting many contents concurrently.
// The caller must Release it.
func (db *Database) NewBulkPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	defaults := []ingestion.Option{ingestion.WithLogger(db.base)}
	if size := db.config.Submit.PoolSize; size > 0 {
		defaults = append(defaults, ingestion.WithPoolSize(size))
	}
	return ingestion.NewPipeline(db.submitter, append(defaults, opts...)...)
}

// NewRepairer creates a repairer relinking stored documents that have no
// graph node. A nil cfg uses repair.DefaultConfig with the configured
// neighbor count.
func (db *Database) NewRepairer(cfg *repair.Config, progress io.Writer, opts ...repair.Option) (*repair.Repairer, error) {
	if cfg == nil {
		cfg = repair.DefaultConfig()
		cfg.NeighborCount = db.config.Submit.Neighbors
	}
	opts = append([]repair.Option{repair.WithLogger(db.base)}, opts...)
	return repair.NewRepairer(db.store, db.graph, cfg, progress, opts...)
}

// Stats reports the document count and the graph size.
func (db *Database) Stats(ctx context.Context) (*Stats, error) {
	count, err := db.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count: %w", core.ErrVectorStoreFailure, err)
	}
	return &Stats{
		Documents: count,
		Nodes:     db.graph.NodeCount(),
		Edges:     db.graph.EdgeCount(),
	}, nil
}

// Stats summarizes the stored state.
type Stats struct {
	Documents int `json:"documents"`
	Nodes     int `json:"nodes"`
	Edges     int `json:"edges"`
}
