// Package semantic ranks catalog scenarios against a query by embedding
// similarity. Canonical phrasings and titles are embedded once at load time;
// only the incoming query is embedded per request.
package semantic

import (
	"context"
	"fmt"

	"askbot/internal/catalog"
	"askbot/internal/embedding"
	"askbot/internal/logging"
)

// Matcher holds precomputed embeddings for every canonical phrasing and
// scenario title, with a mapping from embedding index back to the owning
// scenario. Read-only after construction.
type Matcher struct {
	engine  engineAPI
	catalog *catalog.Catalog

	texts   []string
	owners  []string // scenario id per embedding index
	vectors [][]float32
}

// engineAPI is the slice of embedding.Engine the matcher needs. Kept small
// so tests can substitute a deterministic fake.
type engineAPI interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// NewMatcher embeds every canonical phrasing and title in the catalog.
// A nil engine yields a matcher whose Match always returns an empty list;
// callers then rely on the lexical scorer alone.
//
// Embeddings are frozen at construction. Scenarios added by a catalog hot
// reload stay invisible to the semantic tier until the matcher is rebuilt;
// they are still reachable through the lexical scorer, and scenarios removed
// by a reload are skipped at lookup time.
func NewMatcher(ctx context.Context, engine engineAPI, cat *catalog.Catalog) (*Matcher, error) {
	m := &Matcher{engine: engine, catalog: cat}
	if engine == nil {
		logging.Matcher("no embedding engine; semantic matching disabled")
		return m, nil
	}

	for _, s := range cat.All() {
		for _, q := range s.CanonicalQuestions {
			m.texts = append(m.texts, q)
			m.owners = append(m.owners, s.ScenarioID)
		}
		if s.Title != "" {
			m.texts = append(m.texts, s.Title)
			m.owners = append(m.owners, s.ScenarioID)
		}
	}

	if len(m.texts) == 0 {
		logging.Get(logging.CategoryMatcher).Warn("no canonical questions found in catalog")
		return m, nil
	}

	timer := logging.StartTimer(logging.CategoryMatcher, fmt.Sprintf("embed %d phrasings", len(m.texts)))
	vectors, err := engine.EmbedBatch(ctx, m.texts)
	timer.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to embed canonical questions: %w", err)
	}
	m.vectors = vectors

	logging.Matcher("computed embeddings for %d canonical phrasings", len(m.texts))
	return m, nil
}

// Match returns up to topK scenarios ranked by cosine similarity to the
// query, deduplicated by scenario id (keeping each scenario's best score)
// and cut off below the similarity threshold. Returns an empty list when the
// matcher has no embeddings.
func (m *Matcher) Match(ctx context.Context, query string, topK int, threshold float64) ([]catalog.ScoredScenario, error) {
	if m.engine == nil || len(m.vectors) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = 3
	}

	queryVec, err := m.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	ranked := embedding.RankBySimilarity(queryVec, m.vectors)

	var matches []catalog.ScoredScenario
	seen := make(map[string]bool)

	for _, r := range ranked {
		if r.Similarity < threshold {
			break // sorted descending; nothing below will qualify
		}

		id := m.owners[r.Index]
		if seen[id] {
			continue
		}

		s, ok := m.catalog.ByID(id)
		if !ok {
			continue // scenario removed by a hot reload since embedding
		}

		seen[id] = true
		matches = append(matches, catalog.ScoredScenario{Scenario: s, Score: r.Similarity})

		if len(matches) >= topK {
			break
		}
	}

	logging.Matcher("query matched %d scenarios (top score %.3f)", len(matches), topScore(matches))
	return matches, nil
}

func topScore(matches []catalog.ScoredScenario) float64 {
	if len(matches) == 0 {
		return 0
	}
	return matches[0].Score
}
