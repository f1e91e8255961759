package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage"
	"github.com/poiesic/crossmodal/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStores(t *testing.T) *badger.Stores {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	require.NoError(t, stores.Documents.EnsureIndex(context.Background(), 2))
	return stores
}

func putDoc(t *testing.T, store storage.VectorStore, content core.Content, payload string, vec ...float32) core.ID {
	t.Helper()
	id := core.Identify(content)
	doc := &core.Document{
		Id:         id,
		Modality:   content.Modality(),
		Payload:    payload,
		Vector:     core.Normalize(append([]float32(nil), vec...)),
		Normalized: true,
		InsertedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Upsert(context.Background(), doc))
	return id
}

type failingStore struct {
	storage.VectorStore
	err error
}

func (s *failingStore) KNN(context.Context, []float32, int) ([]storage.Hit, error) {
	return nil, s.err
}

func (s *failingStore) KeywordSearch(context.Context, string, int) ([]core.ID, error) {
	return nil, s.err
}

func TestNewGateway_RequiresStore(t *testing.T) {
	_, err := NewGateway(nil)
	assert.Equal(t, ErrVectorStoreRequired, err)
}

func TestGateway_KNN(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()
	near := putDoc(t, stores.Documents, core.TextContent{Text: "near"}, "near", 1, 0)
	far := putDoc(t, stores.Documents, core.TextContent{Text: "far"}, "far", 0, 1)

	gw, err := NewGateway(stores.Documents)
	require.NoError(t, err)

	result, err := gw.KNN(ctx, []float32{1, 0}, 1, BalancedOversample, "")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, near, result[0].Id)
	assert.InDelta(t, 1.0, result[0].Score, 1e-6)
	assert.Equal(t, far, result[1].Id)
	assert.InDelta(t, 0.0, result[1].Score, 1e-6)
	assert.Equal(t, "near", result[0].Payload)
}

func TestGateway_SelfMatchScoresOne(t *testing.T) {
	stores := setupStores(t)
	self := putDoc(t, stores.Documents, core.TextContent{Text: "self"}, "self", 0.6, 0.8)
	putDoc(t, stores.Documents, core.TextContent{Text: "other"}, "other", 0.8, 0.6)

	gw, err := NewGateway(stores.Documents)
	require.NoError(t, err)

	// Query with a vector that is not identical to the stored one.
	result, err := gw.KNN(context.Background(), core.Normalize([]float32{0.8, 0.6}), 2, 1, self)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, self, result[0].Id)
	assert.Equal(t, 1.0, result[0].Score)
}

func TestGateway_KNNLimit(t *testing.T) {
	stores := setupStores(t)
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		putDoc(t, stores.Documents, core.TextContent{Text: text}, text, 1, float32(len(text)))
	}
	gw, err := NewGateway(stores.Documents)
	require.NoError(t, err)

	result, err := gw.KNN(context.Background(), []float32{1, 0}, 2, 2, "")
	require.NoError(t, err)
	assert.Len(t, result, 4)

	result, err = gw.KNN(context.Background(), []float32{1, 0}, 0, 2, "")
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestGateway_StoreFailure(t *testing.T) {
	gw, err := NewGateway(&failingStore{err: errors.New("connection reset")})
	require.NoError(t, err)

	_, err = gw.KNN(context.Background(), []float32{1, 0}, 3, 6, "")
	assert.ErrorIs(t, err, core.ErrVectorStoreFailure)
}
