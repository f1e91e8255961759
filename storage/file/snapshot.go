// Package file implements snapshot and upload storage on a filesystem.
//
// Every store takes an afero.Fs. Use afero.NewOsFs() for real filesystem
// operations, or afero.NewMemMapFs() for testing.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage"
	"github.com/spf13/afero"
)

// SnapshotStore keeps the graph snapshot in one zstd-compressed file.
// Saves write a temporary sibling file and rename it over the target.
type SnapshotStore struct {
	fs   afero.Fs
	path string

	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore creates a SnapshotStore writing to path on fs.
func NewSnapshotStore(fs afero.Fs, path string) (storage.SnapshotStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: snapshot path is empty", storage.ErrInvalidQuery)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &SnapshotStore{fs: fs, path: path, enc: enc, dec: dec}, nil
}

// Close releases the codec resources.
func (s *SnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return nil
	}
	err := s.enc.Close()
	s.dec.Close()
	s.enc, s.dec = nil, nil
	return err
}

// SaveSnapshot replaces the snapshot file atomically.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snapshot *core.GraphSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return storage.ErrStorageClosed
	}

	data := s.enc.EncodeAll(storage.MarshalSnapshot(snapshot), nil)

	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := writeSynced(s.fs, tmp, data); err != nil {
		s.fs.Remove(tmp)
		return err
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		s.fs.Remove(tmp)
		return err
	}
	return nil
}

// LoadSnapshot returns nil, nil when the file doesn't exist.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context) (*core.GraphSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dec == nil {
		return nil, storage.ErrStorageClosed
	}

	compressed, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	data, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return storage.UnmarshalSnapshot(data)
}

func writeSynced(fs afero.Fs, name string, data []byte) error {
	f, err := fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
