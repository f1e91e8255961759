package search

import (
	"time"

	"github.com/poiesic/crossmodal/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(requestID string, modality core.Modality, mode Mode)
	AfterVectorSearch(candidates []core.Neighbor)
	AfterKeywordSearch(ids []core.ID)
	AfterRanking(results []core.Neighbor)
	AfterExpansion(results []core.Neighbor)
	Finish(results []core.Neighbor, elapsed time.Duration, err error)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.Modality, _ Mode)           {}
func (n *noopMonitor) AfterVectorSearch(_ []core.Neighbor)               {}
func (n *noopMonitor) AfterKeywordSearch(_ []core.ID)                    {}
func (n *noopMonitor) AfterRanking(_ []core.Neighbor)                    {}
func (n *noopMonitor) AfterExpansion(_ []core.Neighbor)                  {}
func (n *noopMonitor) Finish(_ []core.Neighbor, _ time.Duration, _ error) {}
