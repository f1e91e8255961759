package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is the content address of a document.
// It is the lowercase hex BLAKE2b-256 digest of the raw content, so identical
// content always produces an identical ID.
type ID string

// idSize is the digest size in bytes (BLAKE2b-256).
const idSize = 32

// IDFromBytes generates a deterministic ID from raw bytes.
func IDFromBytes(data []byte) ID {
	h, _ := blake2b.New(idSize, nil)
	h.Write(data)
	return ID(hex.EncodeToString(h.Sum(nil)))
}

// IDFromContent generates a deterministic ID from text content.
// Text is hashed on its UTF-8 bytes, so IDFromContent(s) == IDFromBytes([]byte(s)).
func IDFromContent(text string) ID {
	return IDFromBytes([]byte(text))
}

// Identify returns the content address of a submission or query.
func Identify(content Content) ID {
	return IDFromBytes(content.Bytes())
}

// String returns the hex form of the ID.
func (id ID) String() string {
	return string(id)
}

// Document is a stored, embedded item. Documents are immutable once created.
type Document struct {
	Id         ID
	Modality   Modality
	Payload    string    // Text for text documents, a file reference otherwise
	Vector     []float32 // L2-normalized embedding
	Normalized bool
	InsertedAt time.Time
}

// Neighbor is a ranked retrieval result. Score is a similarity (1 - distance)
// or a propagated/fused score; scores are comparable across records.
type Neighbor struct {
	Id       ID
	Modality Modality
	Payload  string
	Score    float64
}

// Edge is an undirected, weighted relevance link between two documents.
// Endpoints are canonicalized so that A < B.
type Edge struct {
	A     ID
	B     ID
	Score float64
}

// NewEdge builds an Edge with canonical endpoint order.
func NewEdge(a, b ID, score float64) Edge {
	if b < a {
		a, b = b, a
	}
	return Edge{A: a, B: b, Score: score}
}

// Other returns the endpoint opposite to id.
func (e Edge) Other(id ID) ID {
	if e.A == id {
		return e.B
	}
	return e.A
}

// GraphSnapshot is the full persisted state of the relevance graph.
type GraphSnapshot struct {
	Nodes []ID
	Edges []Edge
}
