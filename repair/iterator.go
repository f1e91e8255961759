package repair

import (
	"context"
	"fmt"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage"
)

const (
	// DefaultBatchSize is the default number of documents to fetch in each batch
	DefaultBatchSize = 100
)

// DocumentIterator iterates over all stored documents in batches.
type DocumentIterator struct {
	store     storage.VectorStore
	batchSize int
}

// NewDocumentIterator creates a new document iterator.
// batchSize: number of documents to fetch in each batch (must be > 0)
func NewDocumentIterator(store storage.VectorStore, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &DocumentIterator{
		store:     store,
		batchSize: batchSize,
	}
}

// IDs lists every stored document id.
func (it *DocumentIterator) IDs(ctx context.Context) ([]core.ID, error) {
	var ids []core.ID
	err := it.store.ForEachDocument(ctx, func(doc *core.Document) error {
		ids = append(ids, doc.Id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %w", core.ErrVectorStoreFailure, err)
	}
	return ids, nil
}

// ForEach loads documents batchSize at a time and calls fn for each batch.
// Iteration stops on the first error from fn. Context cancellation is
// checked between batches. Documents deleted since ids were listed are
// skipped.
func (it *DocumentIterator) ForEach(ctx context.Context, ids []core.ID, fn func([]*core.Document) error) error {
	for i := 0; i < len(ids); i += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(i+it.batchSize, len(ids))

		docs, err := it.store.GetDocuments(ctx, ids[i:end]...)
		if err != nil {
			return fmt.Errorf("%w: load batch: %w", core.ErrVectorStoreFailure, err)
		}
		if err := fn(docs); err != nil {
			return err
		}
	}
	return nil
}
