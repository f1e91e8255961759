package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			assert.Equal(t, id1, id2)
			assert.Len(t, id1.String(), 64)
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	assert.NotEqual(t, IDFromContent("content1"), IDFromContent("content2"))
}

func TestIdentify_MatchesRawBytes(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}

	assert.Equal(t, IDFromBytes(data), Identify(ImageContent{Data: data, Filename: "a.png"}))
	assert.Equal(t, IDFromContent("hello"), Identify(TextContent{Text: "hello"}))
}

func TestIdentify_IgnoresFilename(t *testing.T) {
	data := []byte("same bytes")

	a := Identify(ImageContent{Data: data, Filename: "one.png"})
	b := Identify(ImageContent{Data: data, Filename: "two.jpg"})

	assert.Equal(t, a, b)
}

func TestNewEdge_Canonical(t *testing.T) {
	e1 := NewEdge("b", "a", 0.5)
	e2 := NewEdge("a", "b", 0.5)

	assert.Equal(t, e1, e2)
	assert.Equal(t, ID("a"), e1.A)
	assert.Equal(t, ID("b"), e1.Other("a"))
	assert.Equal(t, ID("a"), e1.Other("b"))
}

func TestModality_RoundTrip(t *testing.T) {
	for _, m := range Modalities {
		t.Run(m.String(), func(t *testing.T) {
			parsed, err := ParseModality(m.String())
			require.NoError(t, err)
			assert.Equal(t, m, parsed)
			assert.True(t, m.IsValid())
		})
	}
}

func TestParseModality_Unknown(t *testing.T) {
	_, err := ParseModality("video")
	assert.ErrorIs(t, err, ErrUnsupportedModality)
	assert.False(t, Modality(0).IsValid())
}

func TestNewFileContent(t *testing.T) {
	c, err := NewFileContent(ModalityAudio, []byte("riff"), "Clip.WAV")
	require.NoError(t, err)
	assert.Equal(t, ModalityAudio, c.Modality())
	assert.Equal(t, ".wav", FileExtension(c))
	assert.Empty(t, KeywordText(c))

	_, err = NewFileContent(Modality(9), nil, "")
	assert.ErrorIs(t, err, ErrUnsupportedModality)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.True(t, IsNormalized(v))

	zero := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
	assert.False(t, IsNormalized(zero))
}

func TestCosineDistance(t *testing.T) {
	d, err := CosineDistance([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, d, 1e-9)

	d, err = CosineDistance([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d, 1e-9)

	_, err = CosineDistance([]float32{1}, []float32{1, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
