// Package knowledge holds the general documentation corpus: free-text
// platform docs loaded from files at startup and searched by keyword. It
// backs the hybrid, reasoning and basic plans when the scenario catalog
// alone is not enough.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"askbot/internal/logging"
)

// Snippet is one searchable chunk of documentation with its provenance.
type Snippet struct {
	Source string // file the chunk came from
	Text   string
}

// Corpus is an in-memory chunked documentation store. Read-only after Load.
type Corpus struct {
	snippets []Snippet
}

// stopwords excluded from keyword scoring.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "is": true,
	"are": true, "to": true, "of": true, "in": true, "on": true, "for": true,
	"do": true, "does": true, "how": true, "what": true, "can": true, "i": true,
	"my": true, "me": true, "it": true, "with": true, "about": true,
}

// Load reads every .md and .txt file under dir and splits each into
// paragraph-level snippets. A missing directory yields an empty corpus, not
// an error.
func Load(dir string) (*Corpus, error) {
	c := &Corpus{}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logging.Knowledge("docs directory %s not found, corpus empty", dir)
		return c, nil
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		rel, _ := filepath.Rel(dir, path)
		for _, chunk := range splitChunks(string(data)) {
			c.snippets = append(c.snippets, Snippet{Source: rel, Text: chunk})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load docs corpus: %w", err)
	}

	logging.Knowledge("loaded %d documentation snippets from %s", len(c.snippets), dir)
	return c, nil
}

// NewFromSnippets builds a corpus directly, for tests and ingestion output.
func NewFromSnippets(snippets []Snippet) *Corpus {
	return &Corpus{snippets: snippets}
}

// Len returns the snippet count.
func (c *Corpus) Len() int { return len(c.snippets) }

// Search returns up to limit snippet texts ranked by keyword overlap with
// the query. Snippets with no overlapping terms are never returned.
func (c *Corpus) Search(query string, limit int) []string {
	if limit <= 0 {
		limit = 3
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil
	}

	type scored struct {
		idx   int
		score int
	}
	var hits []scored

	for i, s := range c.snippets {
		textLower := strings.ToLower(s.Text)
		score := 0
		for _, term := range terms {
			score += strings.Count(textLower, term)
		}
		if score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = c.snippets[h.idx].Text
	}

	logging.Knowledge("keyword search %q matched %d snippets", query, len(out))
	return out
}

// splitChunks breaks a document into paragraph snippets, dropping tiny
// fragments.
func splitChunks(text string) []string {
	var chunks []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if len(para) < 40 {
			continue
		}
		chunks = append(chunks, para)
	}
	return chunks
}

// queryTerms extracts significant lower-cased terms from a query.
func queryTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,!?;:'\"")
		if len(w) < 3 || stopwords[w] {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}
