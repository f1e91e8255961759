package core

import (
	"path/filepath"
	"strings"
)

// Content is a submission or query payload. It is a closed set of variants,
// one per modality, each carrying its own typed payload.
type Content interface {
	// Modality reports which variant this is.
	Modality() Modality
	// Bytes returns the raw bytes the content address is computed from.
	Bytes() []byte
	isContent()
}

// TextContent is a text submission or query.
type TextContent struct {
	Text string
}

// ImageContent is an image file.
type ImageContent struct {
	Data     []byte
	Filename string // Original name, used only for its extension
}

// AudioContent is an audio file.
type AudioContent struct {
	Data     []byte
	Filename string
}

var (
	_ Content = TextContent{}
	_ Content = ImageContent{}
	_ Content = AudioContent{}
)

func (TextContent) Modality() Modality  { return ModalityText }
func (ImageContent) Modality() Modality { return ModalityImage }
func (AudioContent) Modality() Modality { return ModalityAudio }

func (c TextContent) Bytes() []byte  { return []byte(c.Text) }
func (c ImageContent) Bytes() []byte { return c.Data }
func (c AudioContent) Bytes() []byte { return c.Data }

func (TextContent) isContent()  {}
func (ImageContent) isContent() {}
func (AudioContent) isContent() {}

// NewFileContent wraps raw file bytes in the variant matching modality.
func NewFileContent(modality Modality, data []byte, filename string) (Content, error) {
	switch modality {
	case ModalityImage:
		return ImageContent{Data: data, Filename: filename}, nil
	case ModalityAudio:
		return AudioContent{Data: data, Filename: filename}, nil
	case ModalityText:
		return TextContent{Text: string(data)}, nil
	default:
		return nil, ErrUnsupportedModality
	}
}

// FileExtension returns the lowercased extension of a file content's original
// name (including the dot), or "" for text and unnamed files.
func FileExtension(c Content) string {
	var name string
	switch v := c.(type) {
	case ImageContent:
		name = v.Filename
	case AudioContent:
		name = v.Filename
	}
	return strings.ToLower(filepath.Ext(name))
}

// KeywordText returns the text usable for exact keyword matching.
// Only text content has keyword text.
func KeywordText(c Content) string {
	if t, ok := c.(TextContent); ok {
		return t.Text
	}
	return ""
}
