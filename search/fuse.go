package search

import "github.com/poiesic/crossmodal/core"

// DefaultAlpha weights vector similarity against keyword matches.
const DefaultAlpha = 0.7

// Fuse blends vector similarity with binary keyword matches:
// alpha*vector + (1-alpha)*keyword, where a keyword hit counts as 1.0 and a
// missing signal as 0. The returned records carry only Id and Score, callers
// hydrate them afterwards.
func Fuse(vector []core.Neighbor, keyword []core.ID, alpha float64, k int) []core.Neighbor {
	vecScores := make(map[core.ID]float64, len(vector))
	for _, n := range vector {
		if prev, ok := vecScores[n.Id]; !ok || n.Score > prev {
			vecScores[n.Id] = n.Score
		}
	}
	kwHits := make(map[core.ID]struct{}, len(keyword))
	for _, id := range keyword {
		kwHits[id] = struct{}{}
	}

	combined := make(map[core.ID]float64, len(vecScores)+len(kwHits))
	for id, s := range vecScores {
		combined[id] = alpha * s
	}
	for id := range kwHits {
		combined[id] += 1 - alpha
	}

	out := make([]core.Neighbor, 0, len(combined))
	for id, s := range combined {
		out = append(out, core.Neighbor{Id: id, Score: s})
	}
	sortNeighbors(out)
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
