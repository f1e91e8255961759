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


package core

import (
	"fmt"
	"time"
)

// ValidateContent checks that a submission or query is a known variant with a payload.
func ValidateContent(content Content) error {
	if content == nil {
		return fmt.Errorf("%w: content is nil", ErrEmptyContent)
	}
	if !content.Modality().IsValid() {
		return ErrUnsupportedModality
	}
	if len(content.Bytes()) == 0 {
		return ErrEmptyContent
	}
	return nil
}

// ValidateDocument validates a Document before it is written to a store.
//
// Validation rules:
//   - Id must not be empty
//   - Modality must be valid
//   - Vector must not be empty
//   - InsertedAt must not be in the future
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if doc.Id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyID)
	}
	if !doc.Modality.IsValid() {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrUnsupportedModality)
	}
	if len(doc.Vector) == 0 {
		return fmt.Errorf("%w: vector is empty", ErrInvalidDocument)
	}
	if !IsValidTimestamp(doc.InsertedAt) {
		return fmt.Errorf("%w: insertion time is in the future", ErrInvalidDocument)
	}
	return nil
}

// ValidateEdge rejects self-loops, empty endpoints and non-canonical order.
func ValidateEdge(e Edge) error {
	if e.A == "" || e.B == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEdge, ErrEmptyID)
	}
	if e.A == e.B {
		return fmt.Errorf("%w: self-loop on %s", ErrInvalidEdge, e.A)
	}
	if e.B < e.A {
		return fmt.Errorf("%w: endpoints not canonical", ErrInvalidEdge)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
