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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/crossmodal/core"
)

// formatVersion prefixes every encoded record.
const formatVersion byte = 1

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, ord.String.Size(string(id)))
	ord.String.Marshal(string(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	s, _, err := ord.String.Unmarshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(s), nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	size := 1 +
		ord.String.Size(string(doc.Id)) +
		varint.Int.Size(int(doc.Modality)) +
		ord.String.Size(doc.Payload) +
		varint.Int.Size(len(doc.Vector)) +
		ord.Bool.Size(doc.Normalized) +
		varint.Int64.Size(doc.InsertedAt.UnixMicro())
	for _, f := range doc.Vector {
		size += raw.Float32.Size(f)
	}

	buf := make([]byte, size)
	buf[0] = formatVersion
	n := 1
	n += ord.String.Marshal(string(doc.Id), buf[n:])
	n += varint.Int.Marshal(int(doc.Modality), buf[n:])
	n += ord.String.Marshal(doc.Payload, buf[n:])
	n += varint.Int.Marshal(len(doc.Vector), buf[n:])
	for _, f := range doc.Vector {
		n += raw.Float32.Marshal(f, buf[n:])
	}
	n += ord.Bool.Marshal(doc.Normalized, buf[n:])
	varint.Int64.Marshal(doc.InsertedAt.UnixMicro(), buf[n:])
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	d, err := newDecoder(data)
	if err != nil {
		return nil, err
	}
	doc := &core.Document{
		Id:       core.ID(d.string()),
		Modality: core.Modality(d.int()),
		Payload:  d.string(),
	}
	count := d.length()
	if count > 0 {
		doc.Vector = make([]float32, count)
		for i := range doc.Vector {
			doc.Vector[i] = d.float32()
		}
	}
	doc.Normalized = d.bool()
	doc.InsertedAt = time.UnixMicro(d.int64()).UTC()
	if d.err != nil {
		return nil, d.err
	}
	return doc, nil
}

// MarshalSnapshot serializes a GraphSnapshot to bytes.
func MarshalSnapshot(snapshot *core.GraphSnapshot) []byte {
	size := 1 + varint.Int.Size(len(snapshot.Nodes)) + varint.Int.Size(len(snapshot.Edges))
	for _, id := range snapshot.Nodes {
		size += ord.String.Size(string(id))
	}
	for _, e := range snapshot.Edges {
		size += ord.String.Size(string(e.A)) + ord.String.Size(string(e.B)) + raw.Float64.Size(e.Score)
	}

	buf := make([]byte, size)
	buf[0] = formatVersion
	n := 1
	n += varint.Int.Marshal(len(snapshot.Nodes), buf[n:])
	for _, id := range snapshot.Nodes {
		n += ord.String.Marshal(string(id), buf[n:])
	}
	n += varint.Int.Marshal(len(snapshot.Edges), buf[n:])
	for _, e := range snapshot.Edges {
		n += ord.String.Marshal(string(e.A), buf[n:])
		n += ord.String.Marshal(string(e.B), buf[n:])
		n += raw.Float64.Marshal(e.Score, buf[n:])
	}
	return buf
}

// UnmarshalSnapshot deserializes a GraphSnapshot from bytes.
func UnmarshalSnapshot(data []byte) (*core.GraphSnapshot, error) {
	d, err := newDecoder(data)
	if err != nil {
		return nil, err
	}
	snapshot := &core.GraphSnapshot{}
	if count := d.length(); count > 0 {
		snapshot.Nodes = make([]core.ID, count)
		for i := range snapshot.Nodes {
			snapshot.Nodes[i] = core.ID(d.string())
		}
	}
	if count := d.length(); count > 0 {
		snapshot.Edges = make([]core.Edge, count)
		for i := range snapshot.Edges {
			snapshot.Edges[i] = core.Edge{
				A:     core.ID(d.string()),
				B:     core.ID(d.string()),
				Score: d.float64(),
			}
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return snapshot, nil
}

// decoder reads a sequence of mus-encoded fields, keeping the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func newDecoder(data []byte) (*decoder, error) {
	if len(data) == 0 {
		return nil, ErrTruncatedData
	}
	if data[0] != formatVersion {
		return nil, fmt.Errorf("%w: unknown format version %d", ErrSerializationFailed, data[0])
	}
	return &decoder{bs: data, n: 1}, nil
}

func (d *decoder) fail(err error) {
	if d.err == nil && err != nil {
		d.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.n:])
	d.n += n
	d.fail(err)
	return v
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(d.bs[d.n:])
	d.n += n
	d.fail(err)
	return v
}

// length reads a collection length and rejects values the remaining bytes
// cannot possibly hold.
func (d *decoder) length() int {
	v := d.int()
	if d.err != nil {
		return 0
	}
	if v < 0 || v > len(d.bs)-d.n {
		d.err = ErrTruncatedData
		return 0
	}
	return v
}

func (d *decoder) int64() int64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.fail(err)
	return v
}

func (d *decoder) bool() bool {
	if d.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(d.bs[d.n:])
	d.n += n
	d.fail(err)
	return v
}

func (d *decoder) float32() float32 {
	if d.err != nil {
		return 0
	}
	v, n, err := raw.Float32.Unmarshal(d.bs[d.n:])
	d.n += n
	d.fail(err)
	return v
}

func (d *decoder) float64() float64 {
	if d.err != nil {
		return 0
	}
	v, n, err := raw.Float64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.fail(err)
	return v
}
