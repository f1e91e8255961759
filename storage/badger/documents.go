package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage"
)

// DocumentStore implements storage.VectorStore on BadgerDB.
// KNN is an exhaustive cosine scan over every stored vector.
type DocumentStore struct {
	backend *Backend
	owned   bool
}

var _ storage.VectorStore = (*DocumentStore)(nil)

// NewDocumentStore opens a BadgerDB directory and returns a VectorStore that
// owns it.
func NewDocumentStore(path string, opts ...BackendOption) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false, opts...)
	if err != nil {
		return nil, err
	}
	return &DocumentStore{backend: backend, owned: true}, nil
}

// newDocumentStore creates a DocumentStore on a shared backend. The caller
// keeps ownership of the backend.
func newDocumentStore(backend *Backend) *DocumentStore {
	return &DocumentStore{backend: backend}
}

// Close releases the backend if this store opened it.
func (s *DocumentStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.backend.Close()
}

// EnsureIndex records the vector dimension. Calling it again with the same
// dimension is a no-op; a different dimension is rejected.
func (s *DocumentStore) EnsureIndex(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", storage.ErrInvalidQuery, dim)
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		current, err := readIndexDim(tx)
		if err != nil {
			return err
		}
		if current == dim {
			return nil
		}
		if current != 0 {
			return fmt.Errorf("%w: index has %d dimensions, requested %d", core.ErrDimensionMismatch, current, dim)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(dim))
		if err := tx.Set([]byte(indexDimKey), buf); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Upsert writes a document, replacing any previous value under the same ID.
func (s *DocumentStore) Upsert(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		dim, err := readIndexDim(tx)
		if err != nil {
			return err
		}
		if dim == 0 {
			return storage.ErrIndexMissing
		}
		if len(doc.Vector) != dim {
			return fmt.Errorf("%w: got %d, index has %d", core.ErrDimensionMismatch, len(doc.Vector), dim)
		}
		if err := tx.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Exists reports whether a document is stored under id.
func (s *DocumentStore) Exists(ctx context.Context, id core.ID) (bool, error) {
	found := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeDocumentKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// GetDocument retrieves a single document by ID.
func (s *DocumentStore) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetDocuments retrieves the documents that exist among ids, in order.
func (s *DocumentStore) GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error) {
	var result []*core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if doc != nil {
				result = append(result, doc)
			}
		}
		return nil
	}, false)
	return result, err
}

// KNN scans every document and returns the k closest by cosine distance.
func (s *DocumentStore) KNN(ctx context.Context, vector []float32, k int) ([]storage.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	var hits []storage.Hit
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		dim, err := readIndexDim(tx)
		if err != nil {
			return err
		}
		if dim == 0 {
			return storage.ErrIndexMissing
		}
		if len(vector) != dim {
			return fmt.Errorf("%w: query has %d, index has %d", core.ErrDimensionMismatch, len(vector), dim)
		}
		return scanDocuments(ctx, tx, func(doc *core.Document) error {
			distance, err := core.CosineDistance(vector, doc.Vector)
			if err != nil {
				return err
			}
			hits = append(hits, storage.Hit{
				Id:       doc.Id,
				Modality: doc.Modality,
				Payload:  doc.Payload,
				Distance: distance,
			})
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(hits, func(a, b storage.Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return strings.Compare(string(a.Id), string(b.Id))
		}
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// KeywordSearch returns text documents containing every term of text,
// compared case-insensitively on word boundaries.
func (s *DocumentStore) KeywordSearch(ctx context.Context, text string, limit int) ([]core.ID, error) {
	terms := tokenize(text)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	var ids []core.ID
	errLimit := errors.New("limit reached")
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return scanDocuments(ctx, tx, func(doc *core.Document) error {
			if doc.Modality != core.ModalityText {
				return nil
			}
			words := tokenize(doc.Payload)
			for _, term := range terms {
				if !slices.Contains(words, term) {
					return nil
				}
			}
			ids = append(ids, doc.Id)
			if len(ids) >= limit {
				return errLimit
			}
			return nil
		})
	}, false)
	if err != nil && !errors.Is(err, errLimit) {
		return nil, err
	}
	return ids, nil
}

// ForEachDocument calls fn for every stored document in key order.
func (s *DocumentStore) ForEachDocument(ctx context.Context, fn func(*core.Document) error) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		return scanDocuments(ctx, tx, fn)
	}, false)
}

// Count returns the number of stored documents.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

func scanDocuments(ctx context.Context, tx *badger.Txn, fn func(*core.Document) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(documentPrefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var doc *core.Document
		err := iter.Item().Value(func(val []byte) error {
			var err error
			doc, err = storage.UnmarshalDocument(val)
			return err
		})
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}

func readIndexDim(tx *badger.Txn) (int, error) {
	item, err := tx.Get([]byte(indexDimKey))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var dim int
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return storage.ErrTruncatedData
		}
		dim = int(binary.BigEndian.Uint64(val))
		return nil
	})
	return dim, err
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
