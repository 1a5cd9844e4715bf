package embedding

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"askbot/internal/logging"

	_ "modernc.org/sqlite"
)

// =============================================================================
// SQLITE EMBEDDING CACHE
// =============================================================================

// CachedEngine wraps an Engine with a persistent SQLite cache so canonical
// phrasings are not re-embedded on every startup. Cache keys include the
// engine name, so switching providers invalidates naturally.
type CachedEngine struct {
	inner Engine
	db    *sql.DB
	mu    sync.Mutex
}

// NewCachedEngine opens (or creates) the cache database at path.
func NewCachedEngine(inner Engine, path string) (*CachedEngine, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		engine TEXT NOT NULL,
		text_hash TEXT NOT NULL,
		dims INTEGER NOT NULL,
		vector BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (engine, text_hash)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
	}

	return &CachedEngine{inner: inner, db: db}, nil
}

// Embed returns the cached vector when present, otherwise delegates and
// stores the result. Cache write failures are logged, never surfaced.
func (c *CachedEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	key := hashText(text)

	if vec, ok := c.lookup(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.store(key, vec)
	return vec, nil
}

// EmbedBatch serves cache hits locally and delegates only the misses in one
// batch call.
func (c *CachedEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if vec, ok := c.lookup(hashText(text)); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}
	logging.EmbeddingDebug("embedding cache: %d hits, %d misses", len(texts)-len(missTexts), len(missTexts))

	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("engine returned %d embeddings for %d texts", len(fresh), len(missTexts))
	}

	for j, vec := range fresh {
		out[missIdx[j]] = vec
		c.store(hashText(missTexts[j]), vec)
	}

	return out, nil
}

// Dimensions returns the inner engine's dimensionality.
func (c *CachedEngine) Dimensions() int { return c.inner.Dimensions() }

// Name returns the inner engine's name.
func (c *CachedEngine) Name() string { return c.inner.Name() }

// Close closes the cache database.
func (c *CachedEngine) Close() error { return c.db.Close() }

func (c *CachedEngine) lookup(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var blob []byte
	var dims int
	err := c.db.QueryRow(
		`SELECT dims, vector FROM embeddings WHERE engine = ? AND text_hash = ?`,
		c.inner.Name(), key,
	).Scan(&dims, &blob)
	if err != nil {
		return nil, false
	}

	vec, err := decodeVector(blob, dims)
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Warn("corrupt cache entry for %s: %v", key, err)
		return nil, false
	}
	return vec, true
}

func (c *CachedEngine) store(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO embeddings (engine, text_hash, dims, vector) VALUES (?, ?, ?, ?)`,
		c.inner.Name(), key, len(vec), encodeVector(vec),
	)
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Warn("failed to cache embedding: %v", err)
	}
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != dims*4 {
		return nil, fmt.Errorf("vector blob is %d bytes, want %d", len(blob), dims*4)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
