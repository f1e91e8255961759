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


package core

import "errors"

// Domain errors
var (
	// ErrUnsupportedModality indicates a content variant outside text, image and audio.
	ErrUnsupportedModality = errors.New("unsupported modality")

	// ErrEmptyContent indicates a submission or query carried no payload.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmbeddingFailure indicates the embedder could not produce a vector.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrVectorStoreFailure indicates the vector store rejected a write or query.
	ErrVectorStoreFailure = errors.New("vector store failure")

	// ErrPersistenceFailure indicates the graph snapshot could not be written.
	ErrPersistenceFailure = errors.New("graph persistence failure")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidEdge indicates an Edge failed validation.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrDimensionMismatch indicates two vectors of different length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyID indicates a document ID was empty.
	ErrEmptyID = errors.New("id cannot be empty")
)
