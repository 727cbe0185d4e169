package vectorstore

import (
	"context"
	"math"
)

// HashEmbedder derives deterministic unit vectors from text content. It is
// the built-in fallback when no model-backed Embedder is configured: identical
// strings embed identically and shared characters produce related vectors, so
// recall works on lexical overlap rather than semantics.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of the given
// dimension. Values below 2 fall back to 64.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims < 2 {
		dims = 64
	}
	return &HashEmbedder{dims: dims}
}

// Embed implements Embedder.
func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dims)
	for idx, r := range text {
		vec[(int(r)+idx)%e.dims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
