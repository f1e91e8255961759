package graph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage"
)

// CrossModalFloor is the minimum weight of an edge between documents of
// different modalities.
const CrossModalFloor = 0.8

// EdgeWeight returns the weight of an edge from a source of modality src to a
// neighbor of modality dst found with the given similarity score.
func EdgeWeight(score float64, src, dst core.Modality) float64 {
	if src != dst {
		return max(score, CrossModalFloor)
	}
	return score
}

// Graph is the relevance graph. It is safe for concurrent use.
type Graph struct {
	mu        sync.RWMutex
	adjacency map[core.ID]map[core.ID]float64
	edgeCount int
	store     storage.SnapshotStore
	logger    *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// New creates an empty graph persisting to store. Call Load to restore a
// previously saved state.
func New(store storage.SnapshotStore, opts ...Option) (*Graph, error) {
	if store == nil {
		return nil, ErrSnapshotStoreRequired
	}
	g := &Graph{
		adjacency: make(map[core.ID]map[core.ID]float64),
		store:     store,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	g.logger = g.logger.With("component", "graph")
	return g, nil
}

// Open creates a graph and loads its saved state.
func Open(ctx context.Context, store storage.SnapshotStore, opts ...Option) (*Graph, error) {
	g, err := New(store, opts...)
	if err != nil {
		return nil, err
	}
	if err := g.Load(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// Load replaces the in-memory state with the stored snapshot. A missing
// snapshot yields an empty graph. Self-loops and invalid edges in the
// snapshot are dropped.
func (g *Graph) Load(ctx context.Context) error {
	snapshot, err := g.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("%w: load: %w", core.ErrPersistenceFailure, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.adjacency = make(map[core.ID]map[core.ID]float64)
	g.edgeCount = 0
	if snapshot == nil {
		g.logger.Info("no graph snapshot found, starting empty")
		return nil
	}
	for _, id := range snapshot.Nodes {
		g.ensureNodeLocked(id)
	}
	dropped := 0
	for _, e := range snapshot.Edges {
		e = core.NewEdge(e.A, e.B, e.Score)
		if core.ValidateEdge(e) != nil {
			dropped++
			continue
		}
		g.setEdgeLocked(e.A, e.B, e.Score)
	}
	if dropped > 0 {
		g.logger.Warn("dropped invalid edges from snapshot", "count", dropped)
	}
	g.logger.Info("loaded graph snapshot", "nodes", len(g.adjacency), "edges", g.edgeCount)
	return nil
}

// EnsureNode adds id as an isolated node if it is not present and persists
// the change.
func (g *Graph) EnsureNode(ctx context.Context, id core.ID) error {
	if id == "" {
		return core.ErrEmptyID
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.adjacency[id]; ok {
		return nil
	}
	g.ensureNodeLocked(id)
	if err := g.persistLocked(ctx); err != nil {
		delete(g.adjacency, id)
		return err
	}
	return nil
}

// Connect links source to each neighbor, then persists a snapshot. Neighbors
// with the source's own ID are skipped. Edge weights follow EdgeWeight, and
// an existing edge between the same pair is overwritten.
//
// If the snapshot cannot be written, every change made by this call is
// undone and the returned error wraps core.ErrPersistenceFailure.
func (g *Graph) Connect(ctx context.Context, source core.ID, sourceModality core.Modality, neighbors []core.Neighbor) error {
	if source == "" {
		return core.ErrEmptyID
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	undo := g.newUndoLog()
	undo.ensureNode(source)
	for _, n := range neighbors {
		if n.Id == source || n.Id == "" {
			continue
		}
		undo.ensureNode(n.Id)
		undo.setEdge(source, n.Id, EdgeWeight(n.Score, sourceModality, n.Modality))
	}

	if !undo.changed() {
		return nil
	}
	if err := g.persistLocked(ctx); err != nil {
		undo.rollback()
		return err
	}
	return nil
}

// Contains reports whether id is a node.
func (g *Graph) Contains(id core.ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.adjacency[id]
	return ok
}

// NeighborsOf returns the edges incident to id, strongest first, ties broken
// by neighbor ID. Each edge's Other(id) is the neighbor.
func (g *Graph) NeighborsOf(id core.ID) []core.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.neighborsLocked(id)
}

// Walk runs fn under the read lock with a view of the graph, so that a
// multi-step traversal sees one consistent state.
func (g *Graph) Walk(fn func(v View)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn(lockedView{g})
}

// View is a read-only view of the graph valid only inside Walk.
type View interface {
	Contains(id core.ID) bool
	NeighborsOf(id core.ID) []core.Edge
}

type lockedView struct{ g *Graph }

func (v lockedView) Contains(id core.ID) bool {
	_, ok := v.g.adjacency[id]
	return ok
}

func (v lockedView) NeighborsOf(id core.ID) []core.Edge {
	return v.g.neighborsLocked(id)
}

// Snapshot returns a copy of the current state with nodes sorted and edges
// in canonical order.
func (g *Graph) Snapshot() *core.GraphSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked()
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.adjacency)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgeCount
}

// Close closes the snapshot store.
func (g *Graph) Close() error {
	return g.store.Close()
}

func (g *Graph) ensureNodeLocked(id core.ID) {
	if _, ok := g.adjacency[id]; !ok {
		g.adjacency[id] = make(map[core.ID]float64)
	}
}

func (g *Graph) setEdgeLocked(a, b core.ID, weight float64) {
	g.ensureNodeLocked(a)
	g.ensureNodeLocked(b)
	if _, ok := g.adjacency[a][b]; !ok {
		g.edgeCount++
	}
	g.adjacency[a][b] = weight
	g.adjacency[b][a] = weight
}

func (g *Graph) removeEdgeLocked(a, b core.ID) {
	if _, ok := g.adjacency[a][b]; !ok {
		return
	}
	delete(g.adjacency[a], b)
	delete(g.adjacency[b], a)
	g.edgeCount--
}

func (g *Graph) neighborsLocked(id core.ID) []core.Edge {
	adj := g.adjacency[id]
	if len(adj) == 0 {
		return nil
	}
	edges := make([]core.Edge, 0, len(adj))
	for other, w := range adj {
		edges = append(edges, core.NewEdge(id, other, w))
	}
	slices.SortFunc(edges, func(a, b core.Edge) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(string(a.Other(id)), string(b.Other(id)))
		}
	})
	return edges
}

func (g *Graph) snapshotLocked() *core.GraphSnapshot {
	snapshot := &core.GraphSnapshot{
		Nodes: make([]core.ID, 0, len(g.adjacency)),
		Edges: make([]core.Edge, 0, g.edgeCount),
	}
	for id, adj := range g.adjacency {
		snapshot.Nodes = append(snapshot.Nodes, id)
		for other, w := range adj {
			if id < other {
				snapshot.Edges = append(snapshot.Edges, core.Edge{A: id, B: other, Score: w})
			}
		}
	}
	slices.Sort(snapshot.Nodes)
	slices.SortFunc(snapshot.Edges, func(a, b core.Edge) int {
		if c := strings.Compare(string(a.A), string(b.A)); c != 0 {
			return c
		}
		return strings.Compare(string(a.B), string(b.B))
	})
	return snapshot
}

func (g *Graph) persistLocked(ctx context.Context) error {
	if err := g.store.SaveSnapshot(ctx, g.snapshotLocked()); err != nil {
		g.logger.Error("failed to persist graph snapshot", "error", err)
		return fmt.Errorf("%w: %w", core.ErrPersistenceFailure, err)
	}
	return nil
}
