package badger

import "github.com/poiesic/crossmodal/storage"

// Stores bundles a document store and a snapshot store sharing one backend.
type Stores struct {
	Documents storage.VectorStore
	Snapshots storage.SnapshotStore
	Backend   *Backend
}

// OpenStores opens one BadgerDB directory holding both documents and the
// graph snapshot. Writes are synced.
func OpenStores(path string, opts ...BackendOption) (*Stores, error) {
	opts = append(opts, WithSyncWrites(true))
	backend, err := OpenBackend(path, false, opts...)
	if err != nil {
		return nil, err
	}
	return newStores(backend), nil
}

func newStores(backend *Backend) *Stores {
	return &Stores{
		Documents: newDocumentStore(backend),
		Snapshots: newSnapshotStore(backend),
		Backend:   backend,
	}
}

// Close closes the shared backend.
func (s *Stores) Close() error {
	return s.Backend.Close()
}
