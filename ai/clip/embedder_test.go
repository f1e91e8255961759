package clip

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/crossmodal/ai"
	"github.com/poiesic/crossmodal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(req embedRequest) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		status, body := handler(req)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbedder(t *testing.T, host string) ai.Embedder {
	t.Helper()
	e, err := NewEmbedder(ai.NewConfig(ai.WithEmbeddingHost(host+"/"), ai.WithDimensions(2)))
	require.NoError(t, err)
	return e
}

func TestEmbed_Text(t *testing.T) {
	srv := newTestServer(t, func(req embedRequest) (int, string) {
		assert.Equal(t, "a photo of a dog", req.Text)
		assert.Empty(t, req.Image)
		return http.StatusOK, "[[3, 4]]"
	})

	vec, err := newTestEmbedder(t, srv.URL).Embed(context.Background(), core.TextContent{Text: "a photo of a dog"})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, vec, 1e-6)
}

func TestEmbed_ImageAndAudio(t *testing.T) {
	data := []byte{0xff, 0xd8, 0xff}
	var seen []embedRequest
	srv := newTestServer(t, func(req embedRequest) (int, string) {
		seen = append(seen, req)
		return http.StatusOK, "[1, 0]"
	})
	e := newTestEmbedder(t, srv.URL)
	ctx := context.Background()

	_, err := e.Embed(ctx, core.ImageContent{Data: data, Filename: "x.jpg"})
	require.NoError(t, err)
	_, err = e.Embed(ctx, core.AudioContent{Data: data, Filename: "x.wav"})
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), seen[0].Image)
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), seen[1].Audio)
}

func TestEmbed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, "boom", core.ErrEmbeddingFailure},
		{"bad json", http.StatusOK, "{not json", core.ErrEmbeddingFailure},
		{"empty embedding", http.StatusOK, "[[]]", core.ErrEmbeddingFailure},
		{"wrong dimension", http.StatusOK, "[[1, 0, 0]]", core.ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(embedRequest) (int, string) { return tt.status, tt.body })

			_, err := newTestEmbedder(t, srv.URL).Embed(context.Background(), core.TextContent{Text: "x"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEmbed_EmptyContent(t *testing.T) {
	e := newTestEmbedder(t, "http://127.0.0.1:1")
	_, err := e.Embed(context.Background(), core.ImageContent{})
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestEmbed_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	_, err := newTestEmbedder(t, host).Embed(context.Background(), core.TextContent{Text: "x"})
	assert.ErrorIs(t, err, core.ErrEmbeddingFailure)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ai.DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, p.Embedder())
	assert.NoError(t, p.Close())

	_, err = NewProvider(ai.NewConfig(ai.WithDimensions(0)))
	assert.Error(t, err)
}
