package storage

import (
	"context"

	"github.com/poiesic/crossmodal/core"
)

// Hit is a raw vector store match. Distance is the cosine distance to the
// query vector (0 = identical direction).
type Hit struct {
	Id       core.ID
	Modality core.Modality
	Payload  string
	Distance float64
}

// VectorStore holds embedded documents and answers approximate nearest
// neighbor and keyword queries over them.
type VectorStore interface {
	// EnsureIndex creates the vector index for the given dimension if it does
	// not already exist. It is idempotent.
	EnsureIndex(ctx context.Context, dim int) error

	// Upsert writes a document, replacing any previous value under the same ID.
	Upsert(ctx context.Context, doc *core.Document) error

	// Exists reports whether a document with the given ID is stored.
	Exists(ctx context.Context, id core.ID) (bool, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents),
	// in the order the IDs were given.
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// KNN returns up to k documents closest to vector, ordered by ascending distance.
	KNN(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// KeywordSearch returns up to limit IDs of text documents whose payload
	// contains text.
	KeywordSearch(ctx context.Context, text string, limit int) ([]core.ID, error)

	// ForEachDocument calls fn for every stored document. Iteration stops at
	// the first error returned by fn.
	ForEachDocument(ctx context.Context, fn func(*core.Document) error) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close closes the store and releases resources.
	Close() error
}

// SnapshotStore persists the relevance graph as a whole.
type SnapshotStore interface {
	// SaveSnapshot atomically replaces the stored snapshot.
	SaveSnapshot(ctx context.Context, snapshot *core.GraphSnapshot) error

	// LoadSnapshot returns the stored snapshot, or nil with no error when
	// nothing has been saved yet.
	LoadSnapshot(ctx context.Context) (*core.GraphSnapshot, error)

	// Close closes the store and releases resources.
	Close() error
}

// UploadStore keeps the raw bytes of image and audio submissions.
type UploadStore interface {
	// Save writes data under the name <id><ext> and returns the reference
	// used as the document payload. Saving an existing name overwrites it.
	Save(ctx context.Context, id core.ID, ext string, data []byte) (string, error)

	// Open reads back the bytes behind a reference returned by Save.
	Open(ctx context.Context, ref string) ([]byte, error)

	// Remove deletes the upload behind ref. Removing a missing upload is
	// not an error.
	Remove(ctx context.Context, ref string) error
}
