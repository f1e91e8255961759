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

package ingestion

import "errors"

var (
	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrGraphRequired is returned when a relevance graph is not provided.
	ErrGraphRequired = errors.New("relevance graph required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrSubmitterRequired is returned when a pipeline is created without a submitter.
	ErrSubmitterRequired = errors.New("submitter required")

	// ErrUploadStoreRequired is returned when file content is submitted
	// without an upload store to keep its bytes.
	ErrUploadStoreRequired = errors.New("upload store required for file content")

	// ErrPipelineReleased is returned when submitting to a released pipeline.
	ErrPipelineReleased = errors.New("pipeline released")
)
