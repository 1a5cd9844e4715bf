package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testCorpus() *Corpus {
	return NewFromSnippets([]Snippet{
		{Source: "judging.md", Text: "Judges are invited by email from the judging tab. Each judge gets a personal link."},
		{Source: "judging.md", Text: "Judging criteria are weighted and each judge scores every submission against them."},
		{Source: "results.md", Text: "Results are published from the results page once all scores are in."},
	})
}

func TestSearchRanksByKeywordOverlap(t *testing.T) {
	c := testCorpus()

	hits := c.Search("how do I invite judges", 3)
	if len(hits) == 0 {
		t.Fatal("no hits")
	}
	if !strings.Contains(hits[0], "invited by email") {
		t.Errorf("top hit %q", hits[0])
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	c := testCorpus()

	hits := c.Search("judges judging scores", 1)
	if len(hits) != 1 {
		t.Errorf("got %d hits, want 1", len(hits))
	}
}

func TestSearchNoOverlapReturnsNothing(t *testing.T) {
	c := testCorpus()

	if hits := c.Search("xyzzy frobnicate", 3); len(hits) != 0 {
		t.Errorf("got %v for unrelated query", hits)
	}
}

func TestSearchStopwordOnlyQuery(t *testing.T) {
	c := testCorpus()

	if hits := c.Search("how do I", 3); hits != nil {
		t.Errorf("got %v for stopword-only query", hits)
	}
}

func TestLoadMissingDirIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 {
		t.Errorf("corpus has %d snippets", c.Len())
	}
}

func TestLoadSplitsParagraphsAndSkipsFragments(t *testing.T) {
	dir := t.TempDir()
	doc := "# Judging\n\n" +
		"Judges are invited by email from the judging tab in the dashboard.\n\n" +
		"tiny\n\n" +
		"Judging criteria are weighted and every judge scores each submission."
	if err := os.WriteFile(filepath.Join(dir, "judging.md"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.json"), []byte(`{"not": "docs"}`), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Errorf("got %d snippets, want 2", c.Len())
	}
}
