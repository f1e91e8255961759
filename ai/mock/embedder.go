package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/poiesic/crossmodal/ai"
	"github.com/poiesic/crossmodal/core"
)

// DefaultDimensions is the vector length produced by NewMockEmbedder.
const DefaultDimensions = 8

// MockEmbedder is a test double for ai.Embedder.
// It is safe for concurrent use.
type MockEmbedder struct {
	// EmbedFunc is called by Embed if set.
	// If nil, scripted vectors are used, then the deterministic default.
	EmbedFunc func(ctx context.Context, content core.Content) ([]float32, error)

	dim       int
	mu        sync.Mutex
	scripted  map[core.ID][]float32
	callCount int
	calls     []core.ID
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder with default deterministic behavior
// and DefaultDimensions-length vectors.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder() *MockEmbedder {
	return NewMockEmbedderWithDimensions(DefaultDimensions)
}

// NewMockEmbedderWithDimensions creates a mock embedder producing dim-length vectors.
func NewMockEmbedderWithDimensions(dim int) *MockEmbedder {
	return &MockEmbedder{
		dim:      dim,
		scripted: make(map[core.ID][]float32),
	}
}

// WithEmbedFunc sets a custom embed function.
func (m *MockEmbedder) WithEmbedFunc(fn func(ctx context.Context, content core.Content) ([]float32, error)) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmbedFunc = fn
	return m
}

// WithVector makes Embed return vec (normalized) for content.
func (m *MockEmbedder) WithVector(content core.Content, vec ...float32) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted[core.Identify(content)] = core.Normalize(append([]float32(nil), vec...))
	return m
}

// Embed returns the scripted vector for content, or a deterministic
// vector derived from its bytes.
func (m *MockEmbedder) Embed(ctx context.Context, content core.Content) ([]float32, error) {
	if err := core.ValidateContent(content); err != nil {
		return nil, err
	}
	id := core.Identify(content)

	m.mu.Lock()
	m.callCount++
	m.calls = append(m.calls, id)
	fn := m.EmbedFunc
	vec, ok := m.scripted[id]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, content)
	}
	if ok {
		return append([]float32(nil), vec...), nil
	}
	return generateDeterministicVector(content.Bytes(), m.dim), nil
}

// CallCount returns the number of times Embed was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Calls returns the content IDs Embed was called with, in order.
func (m *MockEmbedder) Calls() []core.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.ID(nil), m.calls...)
}

// Reset clears the call count, recorded calls, scripted vectors and EmbedFunc.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.calls = nil
	m.EmbedFunc = nil
	m.scripted = make(map[core.ID][]float32)
}

// generateDeterministicVector creates a unit vector from data.
// It uses FNV hash to ensure the same bytes always produce the same vector.
func generateDeterministicVector(data []byte, dim int) []float32 {
	h := fnv.New32a()
	h.Write(data)
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 + 0.001
	}
	return core.Normalize(vector)
}
