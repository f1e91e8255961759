// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"context"

	"github.com/poiesic/crossmodal/core"
)

// Embedder converts content into a fixed-dimension embedding vector.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// Embed generates an L2-normalized embedding for content.
	// Failures wrap core.ErrEmbeddingFailure. Content of a modality the
	// embedder cannot handle fails with core.ErrUnsupportedModality.
	Embed(ctx context.Context, content core.Content) ([]float32, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
