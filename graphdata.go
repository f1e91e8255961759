package crossmodal

import (
	"context"
	"fmt"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/repair"
)

// GraphNode is a stored document as shown in a graph export.
type GraphNode struct {
	ID   core.ID `json:"id"`
	Data string  `json:"data"`
	Type string  `json:"type"`
}

// GraphEdge is a relevance link between two exported nodes.
type GraphEdge struct {
	From  core.ID `json:"from"`
	To    core.ID `json:"to"`
	Score float64 `json:"score"`
}

// GraphData is a renderable view of the relevance graph.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphData exports the graph restricted to nodes backed by a stored
// document. Query nodes and edges touching them are left out.
func (db *Database) GraphData(ctx context.Context) (*GraphData, error) {
	snapshot := db.graph.Snapshot()

	data := &GraphData{
		Nodes: make([]GraphNode, 0, len(snapshot.Nodes)),
		Edges: make([]GraphEdge, 0, len(snapshot.Edges)),
	}
	valid := make(map[core.ID]bool, len(snapshot.Nodes))
	for start := 0; start < len(snapshot.Nodes); start += repair.DefaultBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+repair.DefaultBatchSize, len(snapshot.Nodes))
		docs, err := db.store.GetDocuments(ctx, snapshot.Nodes[start:end]...)
		if err != nil {
			return nil, fmt.Errorf("%w: graph export: %w", core.ErrVectorStoreFailure, err)
		}
		for _, doc := range docs {
			valid[doc.Id] = true
			data.Nodes = append(data.Nodes, GraphNode{
				ID:   doc.Id,
				Data: doc.Payload,
				Type: doc.Modality.String(),
			})
		}
	}

	for _, e := range snapshot.Edges {
		if valid[e.A] && valid[e.B] {
			data.Edges = append(data.Edges, GraphEdge{From: e.A, To: e.B, Score: e.Score})
		}
	}
	return data, nil
}
