package embedding

import (
	"math"
	"testing"
)

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float32{0.5, 0.5, 0.7}

	sim, err := CosineSimilarity(v, v)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("got %f, want 1.0", sim)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0, 0}, []float32{0, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sim) > 1e-9 {
		t.Errorf("got %f, want 0", sim)
	}
}

func TestCosineSimilarityOpposite(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sim+1.0) > 1e-9 {
		t.Errorf("got %f, want -1", sim)
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	if _, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); err == nil {
		t.Error("dimension mismatch not rejected")
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if sim != 0 {
		t.Errorf("got %f for zero vector", sim)
	}
}

func TestRankBySimilaritySortsDescending(t *testing.T) {
	query := []float32{1, 0, 0}
	corpus := [][]float32{
		{0, 1, 0},       // orthogonal
		{1, 0, 0},       // identical
		{0.7, 0.7, 0},   // diagonal
		{-1, 0, 0},      // opposite
	}

	results := RankBySimilarity(query, corpus)
	if len(results) != 4 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Index != 1 {
		t.Errorf("best index %d, want 1", results[0].Index)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Errorf("results not sorted at %d: %f > %f", i, results[i].Similarity, results[i-1].Similarity)
		}
	}
	if results[len(results)-1].Index != 3 {
		t.Errorf("worst index %d, want 3", results[len(results)-1].Index)
	}
}

func TestRankBySimilaritySkipsMismatchedVectors(t *testing.T) {
	query := []float32{1, 0, 0}
	corpus := [][]float32{
		{1, 0, 0},
		{1, 0}, // wrong dimension
		{0, 1, 0},
	}

	results := RankBySimilarity(query, corpus)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Index == 1 {
			t.Error("mismatched vector not skipped")
		}
	}
}

func TestNewEngineDisabledProvider(t *testing.T) {
	engine, err := NewEngine(Config{Provider: "none"})
	if err != nil {
		t.Fatal(err)
	}
	if engine != nil {
		t.Error("provider none should return nil engine")
	}
}

func TestNewEngineUnknownProvider(t *testing.T) {
	if _, err := NewEngine(Config{Provider: "carrier-pigeon"}); err == nil {
		t.Error("unknown provider accepted")
	}
}
