package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestDocumentInput_DocumentID(t *testing.T) {
	a := DocumentInput{Filename: "a.md", Content: "same"}
	b := DocumentInput{Filename: "b.md", Content: "same"}
	c := DocumentInput{Filename: "a.md", Content: "same"}

	if a.DocumentID() == b.DocumentID() {
		t.Errorf("DocumentID() should differ when filenames differ")
	}
	if a.DocumentID() != c.DocumentID() {
		t.Errorf("DocumentID() should be stable for identical documents")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"héllo wörld", 3}, // 11 runes
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestMetadata_With(t *testing.T) {
	var m Metadata
	m2 := m.With("k", "v")
	if m != nil {
		t.Errorf("With() mutated the receiver")
	}
	if m2["k"] != "v" {
		t.Errorf("With() did not set key")
	}

	m3 := m2.With("k2", "v2")
	if _, ok := m2["k2"]; ok {
		t.Errorf("With() mutated the receiver")
	}
	if len(m3) != 2 {
		t.Errorf("With() len = %d, want 2", len(m3))
	}
}

func TestCheckpoint_Partial(t *testing.T) {
	cp := &Checkpoint{
		DocumentID: "doc",
		Filename:   "a.md",
		Chunks:     []TextChunk{{Index: 0}, {Index: 1}},
		Embeddings: []EmbeddingResult{{ID: "x"}},
	}

	partial := cp.Partial()
	if partial.DocumentID != "doc" || len(partial.Chunks) != 2 || len(partial.Embeddings) != 1 {
		t.Errorf("Partial() = %+v", partial)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors similarity = %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors similarity = %f", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("zero vector similarity = %f", got)
	}
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	if v[0] != 0.6 || v[1] != 0.8 {
		t.Errorf("NormalizeVector() = %v", v)
	}
	z := NormalizeVector([]float32{0, 0, 0})
	if len(z) != 3 || z[0] != 0 {
		t.Errorf("NormalizeVector(zero) = %v", z)
	}
}
