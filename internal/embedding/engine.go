// Package embedding provides vector embedding generation for semantic
// scenario matching. Supports two backends: Ollama (local) and Google GenAI
// (cloud).
package embedding

import (
	"context"
	"fmt"
	"math"

	"askbot/internal/logging"
)

// =============================================================================
// EMBEDDING ENGINE INTERFACE
// =============================================================================

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings
	Dimensions() int

	// Name returns the engine name
	Name() string
}

// =============================================================================
// CONFIGURATION / FACTORY
// =============================================================================

// Config holds embedding engine configuration.
type Config struct {
	// Provider: "ollama", "genai" or "none"
	Provider string

	OllamaEndpoint string
	OllamaModel    string

	GenAIAPIKey string
	GenAIModel  string

	// CachePath is an optional SQLite file caching embeddings across
	// restarts. Empty disables the cache.
	CachePath string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:       "ollama",
		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "embeddinggemma",
		GenAIModel:     "gemini-embedding-001",
	}
}

// NewEngine creates an embedding engine based on configuration. Provider
// "none" returns (nil, nil): the semantic tier degrades to lexical scoring.
func NewEngine(cfg Config) (Engine, error) {
	logging.Embedding("creating embedding engine with provider=%s", cfg.Provider)

	var engine Engine
	var err error

	switch cfg.Provider {
	case "ollama":
		engine, err = NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel)
	case "genai":
		engine, err = NewGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel)
	case "none", "":
		logging.Embedding("embedding disabled; semantic matching will be lexical only")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'ollama', 'genai' or 'none')", cfg.Provider)
	}

	if err != nil {
		return nil, err
	}

	if cfg.CachePath != "" {
		cached, cerr := NewCachedEngine(engine, cfg.CachePath)
		if cerr != nil {
			logging.Get(logging.CategoryEmbedding).Warn("embedding cache unavailable, running without: %v", cerr)
		} else {
			engine = cached
		}
	}

	logging.Embedding("embedding engine ready: name=%s, dimensions=%d", engine.Name(), engine.Dimensions())
	return engine, nil
}

// =============================================================================
// COSINE SIMILARITY
// =============================================================================

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i] * b[i])
		aMag += float64(a[i] * a[i])
		bMag += float64(b[i] * b[i])
	}

	if aMag == 0 || bMag == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}

// SimilarityResult represents a similarity search result.
type SimilarityResult struct {
	Index      int
	Similarity float64
}

// RankBySimilarity computes cosine similarity of the query against every
// corpus vector and returns all results sorted descending. Vectors with a
// dimension mismatch are skipped.
func RankBySimilarity(query []float32, corpus [][]float32) []SimilarityResult {
	results := make([]SimilarityResult, 0, len(corpus))
	skipped := 0

	for i, vec := range corpus {
		sim, err := CosineSimilarity(query, vec)
		if err != nil {
			skipped++
			continue
		}
		results = append(results, SimilarityResult{Index: i, Similarity: sim})
	}

	if skipped > 0 {
		logging.Get(logging.CategoryEmbedding).Warn("RankBySimilarity: skipped %d vectors due to dimension mismatch", skipped)
	}

	// Insertion sort: corpora here are tens of vectors, not thousands.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Similarity > results[j-1].Similarity; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}

	return results
}
