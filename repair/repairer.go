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

package repair

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/search"
	"github.com/poiesic/crossmodal/storage"
)

// Config holds configuration for a repair run.
type Config struct {
	// BatchSize is the number of documents loaded at a time
	BatchSize int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per document
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// NeighborCount is how many neighbors a relinked document gets
	NeighborCount int

	// RelinkAll relinks every document, not only those missing from the graph
	RelinkAll bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		NeighborCount:  5,
	}
}

// Stats summarizes a repair run.
type Stats struct {
	Scanned  int
	Relinked int
	Elapsed  time.Duration
}

// Repairer walks the document store and relinks documents into the graph.
type Repairer struct {
	config    *Config
	progress  io.Writer
	iterator  *DocumentIterator
	processor *BatchProcessor
	logger    *slog.Logger
}

// Option configures a Repairer.
type Option func(*Repairer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repairer) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRepairer creates a new repairer.
// progress: where to write progress output (typically os.Stderr)
func NewRepairer(store storage.VectorStore, graph Graph, config *Config, progress io.Writer, opts ...Option) (*Repairer, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if graph == nil {
		return nil, ErrGraphRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if config.NeighborCount <= 0 {
		config.NeighborCount = DefaultConfig().NeighborCount
	}
	if progress == nil {
		progress = io.Discard
	}

	gateway, err := search.NewGateway(store)
	if err != nil {
		return nil, err
	}

	r := &Repairer{
		config:    config,
		progress:  progress,
		iterator:  NewDocumentIterator(store, config.BatchSize),
		processor: NewBatchProcessor(gateway, graph, config.NeighborCount, config.RelinkAll, config.MaxRetries, config.RetryDelay),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "repair")
	return r, nil
}

// Run scans every stored document and relinks those that need it.
// Progress is reported to the configured writer.
func (r *Repairer) Run(ctx context.Context) (*Stats, error) {
	ids, err := r.iterator.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	stats := &Stats{}
	if len(ids) == 0 {
		fmt.Fprintf(r.progress, "No documents found in store (0 documents)\n")
		return stats, nil
	}

	fmt.Fprintf(r.progress, "Scanning %d documents (batch size: %d)\n", len(ids), r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, len(ids), r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, ids, func(docs []*core.Document) error {
		linked, err := r.processor.Process(ctx, docs)
		stats.Scanned += len(docs)
		stats.Relinked += linked
		tracker.Advance(len(docs), linked)
		return err
	})
	stats.Elapsed = tracker.Elapsed()
	if err != nil {
		r.logger.Error("repair aborted", "scanned", stats.Scanned, "relinked", stats.Relinked, "err", err)
		return stats, err
	}

	tracker.Finish()
	r.logger.Info("repair complete", "scanned", stats.Scanned, "relinked", stats.Relinked, "elapsed", stats.Elapsed)
	fmt.Fprintf(r.progress, "Repair complete. Scanned %d documents, relinked %d in %v\n",
		stats.Scanned, stats.Relinked, stats.Elapsed.Round(time.Millisecond))

	return stats, nil
}
