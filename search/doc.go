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

// Package search implements cross-modal retrieval over the document store
// and the relevance graph.
//
// A query runs through several stages:
//   - The Gateway turns a KNN query into similarity-scored Neighbors
//   - Balance keeps an even split of same- and cross-modality hits
//   - Fuse blends vector similarity with exact keyword matches (hybrid mode)
//   - Expand propagates scores outward through the relevance graph
//
// The Searcher wires the stages together and, unless disabled, links each
// query's content address to the results it retrieved so later expansions
// can follow co-retrieval paths.
package search
