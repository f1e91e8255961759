package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDocument(t *testing.T) {
	validTime := time.Now().Add(-1 * time.Hour)
	futureTime := time.Now().Add(1 * time.Hour)

	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc: &Document{
				Id:         IDFromContent("hello"),
				Modality:   ModalityText,
				Payload:    "hello",
				Vector:     []float32{1, 0},
				InsertedAt: validTime,
			},
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name: "empty id",
			doc: &Document{
				Modality:   ModalityText,
				Vector:     []float32{1},
				InsertedAt: validTime,
			},
			wantErr: ErrEmptyID,
		},
		{
			name: "bad modality",
			doc: &Document{
				Id:         "x",
				Modality:   Modality(42),
				Vector:     []float32{1},
				InsertedAt: validTime,
			},
			wantErr: ErrUnsupportedModality,
		},
		{
			name: "missing vector",
			doc: &Document{
				Id:         "x",
				Modality:   ModalityImage,
				InsertedAt: validTime,
			},
			wantErr: ErrInvalidDocument,
		},
		{
			name: "future timestamp",
			doc: &Document{
				Id:         "x",
				Modality:   ModalityAudio,
				Vector:     []float32{1},
				InsertedAt: futureTime,
			},
			wantErr: ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateContent(t *testing.T) {
	if err := ValidateContent(TextContent{Text: "hi"}); err != nil {
		t.Errorf("ValidateContent() unexpected error: %v", err)
	}
	if err := ValidateContent(TextContent{}); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("ValidateContent() error = %v, want %v", err, ErrEmptyContent)
	}
	if err := ValidateContent(ImageContent{Filename: "x.png"}); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("ValidateContent() error = %v, want %v", err, ErrEmptyContent)
	}
	if err := ValidateContent(nil); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("ValidateContent() error = %v, want %v", err, ErrEmptyContent)
	}
}

func TestValidateEdge(t *testing.T) {
	if err := ValidateEdge(NewEdge("b", "a", 0.9)); err != nil {
		t.Errorf("ValidateEdge() unexpected error: %v", err)
	}
	if err := ValidateEdge(Edge{A: "a", B: "a"}); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("ValidateEdge() self-loop error = %v", err)
	}
	if err := ValidateEdge(Edge{A: "b", B: "a"}); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("ValidateEdge() order error = %v", err)
	}
	if err := ValidateEdge(Edge{A: "", B: "a"}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("ValidateEdge() empty error = %v", err)
	}
}

func TestIsValidTimestamp(t *testing.T) {
	if !IsValidTimestamp(time.Now().Add(-time.Minute)) {
		t.Error("past timestamp should be valid")
	}
	if IsValidTimestamp(time.Now().Add(time.Hour)) {
		t.Error("future timestamp should be invalid")
	}
}
