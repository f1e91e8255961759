package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage"
)

const (
	// BalancedOversample is the candidate multiplier used before balancing.
	BalancedOversample = 6
	// HybridOversample is the candidate multiplier used before fusion.
	HybridOversample = 3
)

// Gateway issues nearest-neighbor queries against a vector store and turns
// cosine distances into similarity scores.
type Gateway struct {
	store storage.VectorStore
}

// NewGateway creates a gateway over store.
func NewGateway(store storage.VectorStore) (*Gateway, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	return &Gateway{store: store}, nil
}

// KNN returns up to k*oversample neighbors of vector, ordered by descending
// score. A hit whose id equals selfID always scores exactly 1.0.
func (g *Gateway) KNN(ctx context.Context, vector []float32, k, oversample int, selfID core.ID) ([]core.Neighbor, error) {
	if k <= 0 {
		return []core.Neighbor{}, nil
	}
	if oversample < 1 {
		oversample = 1
	}

	hits, err := g.store.KNN(ctx, vector, k*oversample)
	if err != nil {
		return nil, fmt.Errorf("%w: knn: %w", core.ErrVectorStoreFailure, err)
	}

	neighbors := make([]core.Neighbor, 0, len(hits))
	for _, hit := range hits {
		score := 1 - hit.Distance
		if selfID != "" && hit.Id == selfID {
			score = 1.0
		}
		neighbors = append(neighbors, core.Neighbor{
			Id:       hit.Id,
			Modality: hit.Modality,
			Payload:  hit.Payload,
			Score:    score,
		})
	}
	sortNeighbors(neighbors)
	return neighbors, nil
}

// sortNeighbors orders by descending score, breaking ties by id so results
// are stable across runs.
func sortNeighbors(ns []core.Neighbor) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].Score != ns[j].Score {
			return ns[i].Score > ns[j].Score
		}
		return ns[i].Id < ns[j].Id
	})
}
