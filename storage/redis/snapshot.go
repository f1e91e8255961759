package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage"
	goredis "github.com/redis/go-redis/v9"
)

const defaultSnapshotKey = "crossmodal:graph"

// SnapshotStore implements storage.SnapshotStore as one Redis string key.
type SnapshotStore struct {
	client *goredis.Client
	key    string
	owned  bool
	logger *slog.Logger
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore creates a SnapshotStore over an existing client.
func NewSnapshotStore(client *goredis.Client, opts ...Option) (storage.SnapshotStore, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &SnapshotStore{
		client: client,
		key:    o.snapshotKey,
		owned:  o.owned,
		logger: o.logger.With("component", "redis-snapshot-store"),
	}, nil
}

// Close closes the client if the store owns it.
func (s *SnapshotStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

// SaveSnapshot overwrites the snapshot key with a single SET.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snapshot *core.GraphSnapshot) error {
	if err := s.client.Set(ctx, s.key, storage.MarshalSnapshot(snapshot), 0).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns nil, nil when the key doesn't exist.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context) (*core.GraphSnapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return storage.UnmarshalSnapshot(data)
}
