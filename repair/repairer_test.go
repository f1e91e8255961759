package repair

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/graph"
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

func seedDocuments(t *testing.T, store storage.VectorStore, n int) []core.ID {
	t.Helper()
	ids := make([]core.ID, 0, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("note %d", i)
		modality := core.ModalityText
		if i%3 == 0 {
			modality = core.ModalityImage
		}
		doc := &core.Document{
			Id:         core.IDFromContent(text),
			Modality:   modality,
			Payload:    text,
			Vector:     core.Normalize([]float32{1, float32(i)}),
			Normalized: true,
			InsertedAt: time.Now().UTC(),
		}
		require.NoError(t, store.Upsert(context.Background(), doc))
		ids = append(ids, doc.Id)
	}
	return ids
}

func testConfig() *Config {
	return &Config{
		BatchSize:      3,
		ReportInterval: 3,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		NeighborCount:  4,
	}
}

type flakyGraph struct {
	*graph.Graph
	failures int
	calls    int
}

func (g *flakyGraph) Connect(ctx context.Context, source core.ID, m core.Modality, ns []core.Neighbor) error {
	g.calls++
	if g.calls <= g.failures {
		return fmt.Errorf("%w: disk busy", core.ErrPersistenceFailure)
	}
	return g.Graph.Connect(ctx, source, m, ns)
}

func TestNewRepairer(t *testing.T) {
	stores := setupStores(t)
	g, err := graph.New(stores.Snapshots)
	require.NoError(t, err)

	_, err = NewRepairer(nil, g, nil, nil)
	assert.Equal(t, ErrVectorStoreRequired, err)

	_, err = NewRepairer(stores.Documents, nil, nil, nil)
	assert.Equal(t, ErrGraphRequired, err)

	_, err = NewRepairer(stores.Documents, g, &Config{MaxRetries: 0}, nil)
	assert.Equal(t, ErrInvalidMaxAttempts, err)

	r, err := NewRepairer(stores.Documents, g, nil, nil, WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, r.iterator.batchSize)
}

func TestRepairer_RelinksMissingDocuments(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()
	ids := seedDocuments(t, stores.Documents, 10)
	g, err := graph.New(stores.Snapshots)
	require.NoError(t, err)

	var buf bytes.Buffer
	r, err := NewRepairer(stores.Documents, g, testConfig(), &buf)
	require.NoError(t, err)

	stats, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Scanned)
	// Linking a document also adds its neighbors as nodes, so later
	// documents of the scan may already be present.
	assert.GreaterOrEqual(t, stats.Relinked, 1)
	assert.LessOrEqual(t, stats.Relinked, 10)
	for _, id := range ids {
		assert.True(t, g.Contains(id))
		assert.NotEmpty(t, g.NeighborsOf(id))
	}
	assert.Contains(t, buf.String(), "10/10")
	assert.Contains(t, buf.String(), fmt.Sprintf("relinked %d", stats.Relinked))

	// The graph survives a reload.
	reloaded, err := graph.Open(ctx, stores.Snapshots)
	require.NoError(t, err)
	assert.Equal(t, g.Snapshot(), reloaded.Snapshot())

	stats, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Scanned)
	assert.Zero(t, stats.Relinked)
}

func TestRepairer_RelinkAll(t *testing.T) {
	stores := setupStores(t)
	seedDocuments(t, stores.Documents, 4)
	g, err := graph.New(stores.Snapshots)
	require.NoError(t, err)

	config := testConfig()
	config.RelinkAll = true
	r, err := NewRepairer(stores.Documents, g, config, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		stats, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Relinked)
	}
}

func TestRepairer_EmptyStore(t *testing.T) {
	stores := setupStores(t)
	g, err := graph.New(stores.Snapshots)
	require.NoError(t, err)

	var buf bytes.Buffer
	r, err := NewRepairer(stores.Documents, g, testConfig(), &buf)
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Scanned)
	assert.Contains(t, buf.String(), "0 documents")
}

func TestRepairer_RetriesTransientFailures(t *testing.T) {
	stores := setupStores(t)
	seedDocuments(t, stores.Documents, 2)
	inner, err := graph.New(stores.Snapshots)
	require.NoError(t, err)
	g := &flakyGraph{Graph: inner, failures: 1}

	r, err := NewRepairer(stores.Documents, g, testConfig(), nil)
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	// The first document's links make the second one a node.
	assert.Equal(t, 1, stats.Relinked)
	assert.Equal(t, 2, g.calls)
	assert.Equal(t, 2, g.NodeCount())
}

func TestRepairer_GivesUp(t *testing.T) {
	stores := setupStores(t)
	seedDocuments(t, stores.Documents, 2)
	inner, err := graph.New(stores.Snapshots)
	require.NoError(t, err)
	g := &flakyGraph{Graph: inner, failures: 100}

	r, err := NewRepairer(stores.Documents, g, testConfig(), nil)
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrPersistenceFailure)
	assert.Zero(t, stats.Relinked)
	assert.Equal(t, 2, g.calls)
}

func TestDocumentIterator_Batches(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()
	seedDocuments(t, stores.Documents, 7)

	it := NewDocumentIterator(stores.Documents, 3)
	ids, err := it.IDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 7)

	var sizes []int
	err = it.ForEach(ctx, ids, func(docs []*core.Document) error {
		sizes = append(sizes, len(docs))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 1}, sizes)
}

func TestDocumentIterator_StopsOnError(t *testing.T) {
	stores := setupStores(t)
	seedDocuments(t, stores.Documents, 5)
	it := NewDocumentIterator(stores.Documents, 0)
	assert.Equal(t, DefaultBatchSize, it.batchSize)

	ids, err := it.IDs(context.Background())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = it.ForEach(context.Background(), ids, func([]*core.Document) error { return boom })
	assert.Equal(t, boom, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = it.ForEach(ctx, ids, func([]*core.Document) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
