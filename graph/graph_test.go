package graph

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory SnapshotStore that can be told to fail.
type memStore struct {
	mu       sync.Mutex
	snapshot *core.GraphSnapshot
	saves    int
	fail     bool
}

func (s *memStore) SaveSnapshot(ctx context.Context, snapshot *core.GraphSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	s.saves++
	s.snapshot = snapshot
	return nil
}

func (s *memStore) LoadSnapshot(ctx context.Context) (*core.GraphSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, nil
}

func (s *memStore) Close() error { return nil }

func neighbor(id string, m core.Modality, score float64) core.Neighbor {
	return core.Neighbor{Id: core.ID(id), Modality: m, Score: score}
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrSnapshotStoreRequired)
}

func TestEdgeWeight(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		src, dst core.Modality
		want     float64
	}{
		{"cross-modal boosted", 0.5, core.ModalityText, core.ModalityImage, 0.8},
		{"cross-modal above floor kept", 0.93, core.ModalityAudio, core.ModalityText, 0.93},
		{"same-modal unchanged", 0.5, core.ModalityText, core.ModalityText, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EdgeWeight(tt.score, tt.src, tt.dst))
		})
	}
}

func TestConnect_Weights(t *testing.T) {
	store := &memStore{}
	g, err := New(store)
	require.NoError(t, err)
	ctx := context.Background()

	err = g.Connect(ctx, "s", core.ModalityText, []core.Neighbor{
		neighbor("img", core.ModalityImage, 0.5),
		neighbor("txt", core.ModalityText, 0.5),
	})
	require.NoError(t, err)

	edges := g.NeighborsOf("s")
	require.Len(t, edges, 2)
	assert.Equal(t, core.ID("img"), edges[0].Other("s"))
	assert.Equal(t, 0.8, edges[0].Score)
	assert.Equal(t, core.ID("txt"), edges[1].Other("s"))
	assert.Equal(t, 0.5, edges[1].Score)

	// Undirected.
	back := g.NeighborsOf("img")
	require.Len(t, back, 1)
	assert.Equal(t, core.ID("s"), back[0].Other("img"))

	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())
}

func TestConnect_NoSelfLoops(t *testing.T) {
	g, err := New(&memStore{})
	require.NoError(t, err)

	err = g.Connect(context.Background(), "s", core.ModalityText, []core.Neighbor{
		neighbor("s", core.ModalityText, 1.0),
		neighbor("o", core.ModalityText, 0.7),
	})
	require.NoError(t, err)

	for _, e := range g.Snapshot().Edges {
		assert.NotEqual(t, e.A, e.B)
	}
	assert.Len(t, g.NeighborsOf("s"), 1)
}

func TestConnect_EmptyNeighborsCreatesNode(t *testing.T) {
	store := &memStore{}
	g, err := New(store)
	require.NoError(t, err)

	require.NoError(t, g.Connect(context.Background(), "lonely", core.ModalityAudio, nil))

	assert.True(t, g.Contains("lonely"))
	assert.Empty(t, g.NeighborsOf("lonely"))
	assert.Equal(t, []core.ID{"lonely"}, store.snapshot.Nodes)
}

func TestConnect_OverwritesEdge(t *testing.T) {
	store := &memStore{}
	g, err := New(store)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, g.Connect(ctx, "a", core.ModalityText, []core.Neighbor{neighbor("b", core.ModalityText, 0.4)}))
	require.NoError(t, g.Connect(ctx, "b", core.ModalityText, []core.Neighbor{neighbor("a", core.ModalityText, 0.6)}))

	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 0.6, g.NeighborsOf("a")[0].Score)

	// Re-asserting the same state doesn't write another snapshot.
	require.NoError(t, g.Connect(ctx, "b", core.ModalityText, []core.Neighbor{neighbor("a", core.ModalityText, 0.6)}))
	assert.Equal(t, 2, store.saves)
}

func TestConnect_RollbackOnPersistFailure(t *testing.T) {
	store := &memStore{}
	g, err := New(store)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, g.Connect(ctx, "a", core.ModalityText, []core.Neighbor{neighbor("b", core.ModalityText, 0.4)}))
	before := g.Snapshot()

	store.fail = true
	err = g.Connect(ctx, "a", core.ModalityText, []core.Neighbor{
		neighbor("b", core.ModalityText, 0.9),
		neighbor("c", core.ModalityImage, 0.1),
	})
	assert.ErrorIs(t, err, core.ErrPersistenceFailure)

	assert.Equal(t, before, g.Snapshot())
	assert.False(t, g.Contains("c"))
	assert.Equal(t, 0.4, g.NeighborsOf("a")[0].Score)
	assert.Equal(t, 1, g.EdgeCount())
}

func TestEnsureNode(t *testing.T) {
	store := &memStore{}
	g, err := New(store)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, g.EnsureNode(ctx, "n"))
	require.NoError(t, g.EnsureNode(ctx, "n"))
	assert.True(t, g.Contains("n"))
	assert.Equal(t, 1, store.saves)

	assert.ErrorIs(t, g.EnsureNode(ctx, ""), core.ErrEmptyID)

	store.fail = true
	err = g.EnsureNode(ctx, "m")
	assert.ErrorIs(t, err, core.ErrPersistenceFailure)
	assert.False(t, g.Contains("m"))
}

func TestSnapshotRoundTrip_ThroughStore(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()
	ctx := context.Background()

	g, err := Open(ctx, stores.Snapshots)
	require.NoError(t, err)
	require.NoError(t, g.Connect(ctx, "a", core.ModalityText, []core.Neighbor{
		neighbor("b", core.ModalityImage, 0.3),
		neighbor("c", core.ModalityText, 0.77),
	}))
	require.NoError(t, g.Connect(ctx, "d", core.ModalityAudio, []core.Neighbor{neighbor("c", core.ModalityText, 0.91)}))

	reloaded, err := Open(ctx, stores.Snapshots)
	require.NoError(t, err)

	assert.Equal(t, g.Snapshot(), reloaded.Snapshot())
	assert.Equal(t, g.EdgeCount(), reloaded.EdgeCount())
	assert.Equal(t, g.NeighborsOf("c"), reloaded.NeighborsOf("c"))
}

func TestLoad_DropsInvalidEdges(t *testing.T) {
	store := &memStore{snapshot: &core.GraphSnapshot{
		Nodes: []core.ID{"a", "b"},
		Edges: []core.Edge{
			{A: "a", B: "a", Score: 1},
			{A: "b", B: "a", Score: 0.5},
		},
	}}
	g, err := Open(context.Background(), store)
	require.NoError(t, err)

	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []core.Edge{{A: "a", B: "b", Score: 0.5}}, g.Snapshot().Edges)
}

func TestWalk(t *testing.T) {
	g, err := New(&memStore{})
	require.NoError(t, err)
	require.NoError(t, g.Connect(context.Background(), "a", core.ModalityText, []core.Neighbor{neighbor("b", core.ModalityText, 0.5)}))

	g.Walk(func(v View) {
		assert.True(t, v.Contains("a"))
		assert.False(t, v.Contains("z"))
		assert.Len(t, v.NeighborsOf("b"), 1)
	})
}

func TestConcurrentConnect(t *testing.T) {
	store := &memStore{}
	g, err := New(store)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := core.IDFromContent(string(rune('a' + i)))
			_ = g.Connect(ctx, src, core.ModalityText, []core.Neighbor{neighbor("hub", core.ModalityImage, 0.1)})
			_ = g.NeighborsOf("hub")
		}(i)
	}
	wg.Wait()

	assert.Len(t, g.NeighborsOf("hub"), 20)
	assert.Equal(t, 20, store.saves)
	assert.Len(t, store.snapshot.Edges, 20)
}

func TestWalk_HoldsOffWriters(t *testing.T) {
	g, err := New(&memStore{})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, g.Connect(ctx, "a", core.ModalityText, []core.Neighbor{neighbor("b", core.ModalityText, 0.5)}))

	done := make(chan struct{})
	g.Walk(func(v View) {
		go func() {
			defer close(done)
			assert.NoError(t, g.Connect(ctx, "a", core.ModalityText, []core.Neighbor{neighbor("c", core.ModalityText, 0.7)}))
		}()
		time.Sleep(20 * time.Millisecond)
		assert.Len(t, v.NeighborsOf("a"), 1)
		assert.False(t, v.Contains("c"))
	})
	<-done
	assert.True(t, g.Contains("c"))
}
