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


// Package mock provides test doubles for the ai package interfaces.
//
// The mocks return concrete types so tests can inject behavior and assert on
// calls:
//
//	embedder := mock.NewMockEmbedder().
//	    WithVector(core.TextContent{Text: "cat"}, 1, 0, 0, 0, 0, 0, 0, 0)
//
//	embedder.WithEmbedFunc(func(ctx context.Context, c core.Content) ([]float32, error) {
//	    return nil, core.ErrEmbeddingFailure
//	})
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors derived from the content bytes
//   - MockProvider: Wraps a MockEmbedder
package mock
