package catalog

import (
	"math"
	"testing"
)

func TestSimilarityRatioIdentical(t *testing.T) {
	if got := SimilarityRatio("how do i add judges?", "how do i add judges?"); got != 1.0 {
		t.Errorf("identical strings: got %v, want 1.0", got)
	}
}

func TestSimilarityRatioEmpty(t *testing.T) {
	if got := SimilarityRatio("", ""); got != 1.0 {
		t.Errorf("both empty: got %v, want 1.0", got)
	}
	if got := SimilarityRatio("abc", ""); got != 0.0 {
		t.Errorf("one empty: got %v, want 0.0", got)
	}
}

func TestSimilarityRatioDisjoint(t *testing.T) {
	if got := SimilarityRatio("aaaa", "bbbb"); got != 0.0 {
		t.Errorf("disjoint strings: got %v, want 0.0", got)
	}
}

func TestSimilarityRatioKnownValue(t *testing.T) {
	// "abcd" vs "bcde": longest block "bcd" (3 chars), T=8, ratio=2*3/8.
	got := SimilarityRatio("abcd", "bcde")
	want := 0.75
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSimilarityRatioNearDuplicate(t *testing.T) {
	a := "how do i add judges to my hackathon?"
	b := "how do i add judges to my hackathon"
	if got := SimilarityRatio(a, b); got <= 0.85 {
		t.Errorf("near duplicates should exceed 0.85, got %v", got)
	}
}

func TestSimilarityRatioBounds(t *testing.T) {
	pairs := [][2]string{
		{"judging criteria", "scoring rubric"},
		{"a", "aaaa"},
		{"hello world", "world hello"},
	}
	for _, p := range pairs {
		got := SimilarityRatio(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("SimilarityRatio(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
		}
	}
}
