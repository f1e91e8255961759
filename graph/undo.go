package graph

import "github.com/poiesic/crossmodal/core"

// undoLog applies changes to a graph while recording how to revert them.
// The graph's write lock must be held for the log's whole lifetime.
type undoLog struct {
	g       *Graph
	steps   []func()
	touched bool
}

func (g *Graph) newUndoLog() *undoLog {
	return &undoLog{g: g}
}

func (u *undoLog) ensureNode(id core.ID) {
	if _, ok := u.g.adjacency[id]; ok {
		return
	}
	u.g.ensureNodeLocked(id)
	u.touched = true
	u.steps = append(u.steps, func() { delete(u.g.adjacency, id) })
}

func (u *undoLog) setEdge(a, b core.ID, weight float64) {
	prev, existed := u.g.adjacency[a][b]
	if existed && prev == weight {
		return
	}
	u.g.setEdgeLocked(a, b, weight)
	u.touched = true
	if existed {
		u.steps = append(u.steps, func() { u.g.setEdgeLocked(a, b, prev) })
	} else {
		u.steps = append(u.steps, func() { u.g.removeEdgeLocked(a, b) })
	}
}

func (u *undoLog) changed() bool {
	return u.touched
}

// rollback reverts recorded steps newest first.
func (u *undoLog) rollback() {
	for i := len(u.steps) - 1; i >= 0; i-- {
		u.steps[i]()
	}
	u.steps = nil
}
