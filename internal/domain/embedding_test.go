package domain

import (
	"math"
	"testing"
)

func TestEncodeDecodeVector(t *testing.T) {
	in := []float32{0, 1, -1, 0.5, math.MaxFloat32, float32(math.Inf(1))}
	b := EncodeVector(in)
	if len(b) != 4*len(in) {
		t.Fatalf("blob len = %d; want %d", len(b), 4*len(in))
	}
	out := DecodeVector(b, len(in))
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("component %d = %v; want %v", i, out[i], in[i])
		}
	}
}

func TestDecodeVector_ClampsToDims(t *testing.T) {
	b := EncodeVector([]float32{1, 2, 3})
	if got := DecodeVector(b, 2); len(got) != 2 {
		t.Fatalf("len = %d; want 2", len(got))
	}
	// Truncated blob decodes whole components only.
	if got := DecodeVector(b[:7], 3); len(got) != 1 {
		t.Fatalf("len = %d; want 1", len(got))
	}
	e := BookEmbedding{Vector: b, Dimensions: 3}
	if v := e.Values(); len(v) != 3 || v[2] != 3 {
		t.Fatalf("Values() = %v", v)
	}
}
