package ingestion

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/crossmodal/ai/mock"
	"github.com/poiesic/crossmodal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipeline(t *testing.T) {
	f := setupFixture(t)

	t.Run("nil submitter", func(t *testing.T) {
		_, err := NewPipeline(nil)
		assert.Equal(t, ErrSubmitterRequired, err)
	})

	t.Run("with options", func(t *testing.T) {
		p, err := NewPipeline(f.submitter(t), WithPoolSize(0), WithLogger(nil))
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, 1, p.pool.Cap())
	})
}

func TestPipeline_SubmitAll(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	p, err := NewPipeline(f.submitter(t), WithPoolSize(4))
	require.NoError(t, err)
	defer p.Release()

	contents := make([]core.Content, 0, 20)
	for i := 0; i < 20; i++ {
		contents = append(contents, core.TextContent{Text: fmt.Sprintf("document %d", i)})
	}
	contents = append(contents, core.TextContent{})

	outcomes, err := p.SubmitAll(ctx, contents)
	require.NoError(t, err)
	require.Len(t, outcomes, 21)

	for i, o := range outcomes[:20] {
		require.NoError(t, o.Err)
		assert.True(t, o.Result.Created)
		assert.Equal(t, core.Identify(contents[i]), o.Result.Key)
	}
	assert.ErrorIs(t, outcomes[20].Err, core.ErrEmptyContent)

	count, err := f.stores.Documents.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
	assert.Equal(t, 20, f.graph.NodeCount())

	snap, err := f.stores.Snapshots.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 20)
}

func TestPipeline_CanceledContext(t *testing.T) {
	f := setupFixture(t)
	p, err := NewPipeline(f.submitter(t), WithPoolSize(2))
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes, err := p.SubmitAll(ctx, []core.Content{core.TextContent{Text: "late"}})
	require.NoError(t, err)
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
}

func TestPipeline_Released(t *testing.T) {
	f := setupFixture(t)
	p, err := NewPipeline(f.submitter(t))
	require.NoError(t, err)
	p.Release()
	p.Release()

	_, err = p.SubmitAll(context.Background(), []core.Content{core.TextContent{Text: "x"}})
	assert.Equal(t, ErrPipelineReleased, err)
}

func TestPipeline_SubmitAllDuplicates(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.embedder.WithEmbedFunc(func(_ context.Context, content core.Content) ([]float32, error) {
		time.Sleep(20 * time.Millisecond)
		return []float32{1, 0}, nil
	})
	store := &countingStore{VectorStore: f.stores.Documents}
	submitter, err := NewSubmitter(store, f.graph, mock.NewMockProviderWithEmbedder(f.embedder))
	require.NoError(t, err)
	p, err := NewPipeline(submitter, WithPoolSize(4))
	require.NoError(t, err)
	defer p.Release()

	contents := make([]core.Content, 4)
	for i := range contents {
		contents[i] = core.TextContent{Text: "same"}
	}
	outcomes, err := p.SubmitAll(ctx, contents)
	require.NoError(t, err)

	created := 0
	for _, o := range outcomes {
		require.NoError(t, o.Err)
		assert.Equal(t, core.Identify(contents[0]), o.Result.Key)
		if o.Result.Created {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, f.embedder.CallCount())
	assert.Equal(t, int32(1), store.upserts.Load())
	assert.Equal(t, 1, f.graph.NodeCount())
}
