package repair

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/search"
)

// Graph is the part of the relevance graph a repair reads and writes.
type Graph interface {
	Contains(id core.ID) bool
	Connect(ctx context.Context, source core.ID, sourceModality core.Modality, neighbors []core.Neighbor) error
}

// BatchProcessor relinks batches of documents into the relevance graph.
type BatchProcessor struct {
	gateway        *search.Gateway
	graph          Graph
	neighbors      int
	relinkAll      bool
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// neighbors: how many balanced neighbors each document is linked to
// relinkAll: relink documents that are already graph nodes as well
// maxRetries: maximum number of attempts per document
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(gateway *search.Gateway, graph Graph, neighbors int, relinkAll bool, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		gateway:        gateway,
		graph:          graph,
		neighbors:      neighbors,
		relinkAll:      relinkAll,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process relinks every document of the batch that needs it and returns how
// many were linked. The stored vector is reused, nothing is re-embedded.
func (bp *BatchProcessor) Process(ctx context.Context, docs []*core.Document) (int, error) {
	linked := 0
	for _, doc := range docs {
		if !bp.relinkAll && bp.graph.Contains(doc.Id) {
			continue
		}
		err := RetryWithBackoff(ctx, func() error {
			return bp.relink(ctx, doc)
		}, bp.maxRetries, bp.retryBaseDelay)
		if err != nil {
			return linked, fmt.Errorf("failed to relink %s after %d attempts: %w", doc.Id, bp.maxRetries, err)
		}
		linked++
	}
	return linked, nil
}

func (bp *BatchProcessor) relink(ctx context.Context, doc *core.Document) error {
	candidates, err := bp.gateway.KNN(ctx, doc.Vector, bp.neighbors, search.BalancedOversample, doc.Id)
	if err != nil {
		return err
	}
	neighbors := search.Balance(candidates, doc.Modality, bp.neighbors)
	return bp.graph.Connect(ctx, doc.Id, doc.Modality, neighbors)
}
