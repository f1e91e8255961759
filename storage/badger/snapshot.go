package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage"
)

// SnapshotStore implements storage.SnapshotStore as a single BadgerDB key.
type SnapshotStore struct {
	backend *Backend
	owned   bool
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore opens a BadgerDB directory for graph snapshots.
// Writes are synced so a returned SaveSnapshot is durable.
func NewSnapshotStore(path string, opts ...BackendOption) (storage.SnapshotStore, error) {
	opts = append(opts, WithSyncWrites(true))
	backend, err := OpenBackend(path, false, opts...)
	if err != nil {
		return nil, err
	}
	return &SnapshotStore{backend: backend, owned: true}, nil
}

func newSnapshotStore(backend *Backend) *SnapshotStore {
	return &SnapshotStore{backend: backend}
}

// Close releases the backend if this store opened it.
func (s *SnapshotStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.backend.Close()
}

// SaveSnapshot replaces the stored snapshot in one transaction.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snapshot *core.GraphSnapshot) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(snapshotKey), storage.MarshalSnapshot(snapshot)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadSnapshot returns nil, nil if no snapshot exists.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context) (*core.GraphSnapshot, error) {
	var snapshot *core.GraphSnapshot
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(snapshotKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			snapshot, unmarshalErr = storage.UnmarshalSnapshot(val)
			return unmarshalErr
		})
	}, false)
	return snapshot, err
}
