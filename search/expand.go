package search

import (
	"context"
	"fmt"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/graph"
)

// DecayFactor attenuates a score each time it is propagated across an edge.
const DecayFactor = 0.9

// GraphReader is the read side of the relevance graph used by expansion.
// Walk must hold off writers until fn returns.
type GraphReader interface {
	Walk(fn func(v graph.View))
}

// DocumentSource hydrates graph nodes into documents.
type DocumentSource interface {
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)
}

// Expand propagates seed scores through the relevance graph.
//
// Each of the depth rounds removes exactly one record from the front of a
// FIFO frontier, so depth counts expanded nodes rather than hops. Every
// neighbor not seen before receives origin.Score * edge weight * DecayFactor.
// Neighbors without a stored document (for example the address of an earlier
// query) are not returned but still enter the frontier, letting expansion
// cross co-retrieval links. The top k records by score are returned.
//
// The traversal runs inside a single Walk, so it sees one graph state even
// while submissions are connecting new nodes; documents are hydrated after
// the walk ends.
func Expand(ctx context.Context, seed []core.Neighbor, g GraphReader, docs DocumentSource, depth, k int) ([]core.Neighbor, error) {
	results := make(map[core.ID]core.Neighbor, len(seed))
	seen := make(map[core.ID]struct{}, len(seed))
	frontier := make([]core.Neighbor, 0, len(seed))
	for _, s := range seed {
		if _, ok := seen[s.Id]; ok {
			continue
		}
		seen[s.Id] = struct{}{}
		results[s.Id] = s
		frontier = append(frontier, s)
	}

	var (
		reached []core.Neighbor
		err     error
	)
	if depth > 0 && len(frontier) > 0 {
		g.Walk(func(v graph.View) {
			reached, err = traverse(ctx, v, frontier, seen, depth)
		})
		if err != nil {
			return nil, err
		}
	}

	if len(reached) > 0 {
		hydrated, err := hydrate(ctx, docs, reached)
		if err != nil {
			return nil, err
		}
		for _, n := range reached {
			if doc, ok := hydrated[n.Id]; ok {
				n.Modality = doc.Modality
				n.Payload = doc.Payload
				results[n.Id] = n
			}
		}
	}

	out := make([]core.Neighbor, 0, len(results))
	for _, n := range results {
		out = append(out, n)
	}
	sortNeighbors(out)
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// traverse pops depth records off the frontier and returns every node newly
// reached, in discovery order.
func traverse(ctx context.Context, v graph.View, frontier []core.Neighbor, seen map[core.ID]struct{}, depth int) ([]core.Neighbor, error) {
	var reached []core.Neighbor
	for round := 0; round < depth && len(frontier) > 0; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		origin := frontier[0]
		frontier = frontier[1:]

		for _, edge := range v.NeighborsOf(origin.Id) {
			other := edge.Other(origin.Id)
			if _, ok := seen[other]; ok {
				continue
			}
			seen[other] = struct{}{}
			n := core.Neighbor{
				Id:    other,
				Score: origin.Score * edge.Score * DecayFactor,
			}
			reached = append(reached, n)
			frontier = append(frontier, n)
		}
	}
	return reached, nil
}

func hydrate(ctx context.Context, docs DocumentSource, ns []core.Neighbor) (map[core.ID]*core.Document, error) {
	ids := make([]core.ID, len(ns))
	for i, n := range ns {
		ids[i] = n.Id
	}
	found, err := docs.GetDocuments(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("%w: hydrate neighbors: %w", core.ErrVectorStoreFailure, err)
	}
	byID := make(map[core.ID]*core.Document, len(found))
	for _, d := range found {
		if d != nil {
			byID[d.Id] = d
		}
	}
	return byID, nil
}
