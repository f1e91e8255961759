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


// Package graph maintains the relevance graph: an undirected, weighted graph
// whose nodes are document IDs and whose edges link documents found to be
// related by similarity search.
//
// The graph is owned by a single Graph value. All mutations hold its write
// lock and end with a synchronous snapshot write; if that write fails the
// mutation is rolled back, so memory never runs ahead of the persisted state.
//
// Cross-modal edges get a floor weight of CrossModalFloor so that expansion
// reaches other modalities even when raw similarity between them is low.
package graph
