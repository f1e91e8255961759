package search

import "github.com/poiesic/crossmodal/core"

// Balance splits candidates into same- and cross-modality partitions relative
// to queryModality and keeps the best k/2 (rounded down) of each. Partitions
// are never padded from one another, so the result can be shorter than k.
func Balance(candidates []core.Neighbor, queryModality core.Modality, k int) []core.Neighbor {
	half := k / 2
	if half <= 0 {
		return []core.Neighbor{}
	}

	var same, cross []core.Neighbor
	for _, c := range candidates {
		if c.Modality == queryModality {
			same = append(same, c)
		} else {
			cross = append(cross, c)
		}
	}
	sortNeighbors(same)
	sortNeighbors(cross)

	result := make([]core.Neighbor, 0, 2*half)
	result = append(result, same[:min(half, len(same))]...)
	result = append(result, cross[:min(half, len(cross))]...)
	sortNeighbors(result)
	if len(result) > k {
		result = result[:k]
	}
	return result
}
