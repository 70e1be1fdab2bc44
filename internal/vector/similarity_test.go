package vector

import (
	"errors"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1},
		{"near", []float32{1, 0}, []float32{0.9, 0.1}, 0.9 / math.Sqrt(0.82)},
		{"zero magnitude left", []float32{0, 0}, []float32{1, 0}, 0},
		{"zero magnitude right", []float32{1, 0}, []float32{0, 0}, 0},
		{"empty", []float32{}, []float32{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCosineSimilarity_Symmetry(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {4, 5, 6}},
		{{-1, 0.5, 2}, {0.3, -0.7, 1}},
		{{0.1, 0.1, 0.1}, {10, -10, 3}},
	}
	for _, p := range pairs {
		ab, _ := CosineSimilarity(p[0], p[1])
		ba, _ := CosineSimilarity(p[1], p[0])
		if ab != ba {
			t.Errorf("not symmetric: %v vs %v", ab, ba)
		}
		self, _ := CosineSimilarity(p[0], p[0])
		if math.Abs(self-1) > 1e-9 {
			t.Errorf("self similarity = %v, want 1", self)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	v := []float32{1.5, -2, 0, 3.25}
	got, err := Decode(Encode(v))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(v) {
		t.Fatalf("length = %d, want %d", len(got), len(v))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("index %d: got %v want %v", i, got[i], v[i])
		}
	}
	if empty, err := Decode(nil); err != nil || empty != nil {
		t.Errorf("Decode(nil) = %v, %v", empty, err)
	}
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated encoding")
	}
}
