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


// Package storage provides the storage abstraction layer for crossmodal.
//
// This package defines store interfaces that decouple storage implementation
// from the retrieval engine. Three concerns are kept apart:
//
//   - VectorStore: embedded documents, KNN and keyword lookups
//   - SnapshotStore: the relevance graph, saved and loaded as one snapshot
//   - UploadStore: raw bytes of image and audio submissions
//
// # Constructor Return Type Pattern
//
// Public constructors return the interface, not the concrete type:
//
//	docs, err := badger.NewDocumentStore(path)  // returns storage.VectorStore
//
// Internal constructors (newBackend, etc.) may return concrete types since
// they're only used within the implementation package.
//
// # Backends
//
//   - storage/badger: embedded BadgerDB; brute-force cosine KNN
//   - storage/redis: Redis with RediSearch vector and text indexes
//   - storage/file: afero-backed snapshot files and upload directory
//
// Use in tests with in-memory storage:
//
//	stores, err := badger.NewMemoryStores()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stores.Close()
//
// # Thread Safety
//
// All store implementations must be safe for concurrent use.
package storage
