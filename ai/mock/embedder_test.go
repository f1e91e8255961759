package mock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/crossmodal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.Embed(ctx, core.TextContent{Text: "hello"})
	require.NoError(t, err)
	b, err := m.Embed(ctx, core.TextContent{Text: "hello"})
	require.NoError(t, err)
	c, err := m.Embed(ctx, core.ImageContent{Data: []byte("hello")})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.Len(t, a, DefaultDimensions)
	assert.True(t, core.IsNormalized(a))
	assert.Equal(t, 3, m.CallCount())
}

func TestMockEmbedder_Scripted(t *testing.T) {
	m := NewMockEmbedderWithDimensions(2).WithVector(core.TextContent{Text: "x"}, 3, 4)

	v, err := m.Embed(context.Background(), core.TextContent{Text: "x"})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, v, 1e-6)
}

func TestMockEmbedder_EmbedFuncAndReset(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockEmbedder().WithEmbedFunc(func(context.Context, core.Content) ([]float32, error) {
		return nil, boom
	})

	_, err := m.Embed(context.Background(), core.TextContent{Text: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []core.ID{core.IDFromContent("x")}, m.Calls())

	m.Reset()
	assert.Zero(t, m.CallCount())
	_, err = m.Embed(context.Background(), core.TextContent{Text: "x"})
	assert.NoError(t, err)
}

func TestMockEmbedder_RejectsEmpty(t *testing.T) {
	_, err := NewMockEmbedder().Embed(context.Background(), core.TextContent{})
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestMockEmbedder_Concurrent(t *testing.T) {
	m := NewMockEmbedder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Embed(context.Background(), core.TextContent{Text: "x"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, m.CallCount())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProviderWithEmbedder(NewMockEmbedder())
	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
