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


// Package ai provides abstractions for the embedding services used by crossmodal.
//
// This package defines the interfaces the retrieval engine depends on, so the
// core logic never talks to a concrete model server.
//
// # Design Principles
//
//   - Embedder: Converts text, image or audio content into a normalized vector
//   - AIProvider: Aggregates AI services for convenient initialization
//   - Router: Dispatches content to a per-modality Embedder
//
// # Implementation Packages
//
//   - ai/clip: Multimodal embeddings from a CLIP HTTP service
//   - ai/openai: Text embeddings from OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (clip.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types to enforce abstraction and prevent accidental coupling to
// concrete implementations.
//
//	provider, err := clip.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors (mock.NewMockEmbedder) return CONCRETE types to
// enable test assertions and behavior injection via the mock's public methods
// (CallCount, WithEmbedFunc, Reset, etc.).
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := clip.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().Embed(ctx, core.ImageContent{Data: png, Filename: "cat.png"})
//
// # Thread Safety
//
// All interface implementations must be safe for concurrent use by multiple
// goroutines.
package ai
