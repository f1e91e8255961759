package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/crossmodal/core"
)

// Outcome is the result of one submission in a batch.
type Outcome struct {
	Content core.Content
	Result  *SubmitResult
	Err     error
}

// Pipeline submits many contents concurrently on a bounded worker pool.
// Graph updates remain serialized by the graph itself.
type Pipeline struct {
	submitter *Submitter
	pool      *ants.Pool
	released  atomic.Bool
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new bulk submission pipeline.
func NewPipeline(submitter *Submitter, opts ...Option) (*Pipeline, error) {
	if submitter == nil {
		return nil, ErrSubmitterRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		submitter: submitter,
		pool:      pool,
		logger:    slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// SubmitAll submits every content and waits for all of them to finish.
// Outcomes are returned in input order; a failed submission does not stop
// the others.
func (p *Pipeline) SubmitAll(ctx context.Context, contents []core.Content) ([]Outcome, error) {
	if p.released.Load() {
		return nil, ErrPipelineReleased
	}

	outcomes := make([]Outcome, len(contents))
	var wg sync.WaitGroup
	for i, content := range contents {
		outcomes[i].Content = content
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return
			}
			outcomes[i].Result, outcomes[i].Err = p.submitter.Submit(ctx, content)
		})
		if err != nil {
			wg.Done()
			outcomes[i].Err = err
		}
	}
	wg.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	p.logger.Info("batch submitted", "total", len(contents), "failed", failed)
	return outcomes, nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.released.Swap(true) {
		return
	}
	if p.pool != nil {
		p.pool.Release()
	}
}
