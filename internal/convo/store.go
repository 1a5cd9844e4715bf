package convo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"askbot/internal/logging"

	_ "modernc.org/sqlite"
)

const shardCount = 16

// StoreConfig configures the context store.
type StoreConfig struct {
	DatabasePath  string
	SaveInterval  time.Duration // time-based flush threshold
	SaveEvery     int           // interaction-count flush threshold
	HistoryWindow int
}

// Store is the per-user context registry. Lookups are sharded so different
// users never contend on one lock; persistence is batched, never synchronous
// per turn.
type Store struct {
	shards [shardCount]shard
	db     *sql.DB
	cfg    StoreConfig

	pending atomic.Int64 // interactions since the last flush

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type shard struct {
	mu       sync.RWMutex
	contexts map[string]*Context
}

// NewStore opens the context database and starts the background flusher.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = 5 * time.Minute
	}
	if cfg.SaveEvery <= 0 {
		cfg.SaveEvery = 50
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 10
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create context directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open context database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS contexts (
		user_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize context database: %w", err)
	}

	s := &Store{
		db:   db,
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i].contexts = make(map[string]*Context)
	}

	go s.flushLoop()

	logging.Convo("context store opened at %s (flush every %v or %d interactions)",
		cfg.DatabasePath, cfg.SaveInterval, cfg.SaveEvery)
	return s, nil
}

func shardFor(userID string) int {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return int(h.Sum32() % shardCount)
}

// Get returns the user's context, loading it from disk on first sight and
// creating a fresh one when none exists.
func (s *Store) Get(userID string) *Context {
	sh := &s.shards[shardFor(userID)]

	sh.mu.RLock()
	if c, ok := sh.contexts[userID]; ok {
		sh.mu.RUnlock()
		return c
	}
	sh.mu.RUnlock()

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if c, ok := sh.contexts[userID]; ok {
		return c
	}

	c := NewContext(userID, s.cfg.HistoryWindow)
	if r, ok := s.load(userID); ok {
		c.restore(r)
		logging.ConvoDebug("restored context for user %s (%d turns)", userID, len(r.History))
	}
	sh.contexts[userID] = c
	return c
}

// TurnRecorded notifies the store that a turn finished, triggering a flush
// once the interaction-count threshold is reached.
func (s *Store) TurnRecorded() {
	if s.pending.Add(1) >= int64(s.cfg.SaveEvery) {
		s.pending.Store(0)
		go func() {
			if err := s.FlushAll(context.Background()); err != nil {
				logging.Get(logging.CategoryConvo).Error("threshold flush failed: %v", err)
			}
		}()
	}
}

// FlushAll persists every dirty context in one transaction.
func (s *Store) FlushAll(ctx context.Context) error {
	var records []record
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for _, c := range sh.contexts {
			if r, ok := c.snapshot(); ok {
				records = append(records, r)
			}
		}
		sh.mu.RUnlock()
	}

	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin flush transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO contexts (user_id, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`)
	if err != nil {
		return fmt.Errorf("failed to prepare flush statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			logging.Get(logging.CategoryConvo).Error("failed to marshal context for %s: %v", r.UserID, err)
			continue
		}
		if _, err := stmt.ExecContext(ctx, r.UserID, string(data)); err != nil {
			return fmt.Errorf("failed to persist context for %s: %w", r.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flush: %w", err)
	}

	logging.Convo("flushed %d contexts", len(records))
	return nil
}

// Close flushes the last batch and stops the background flusher.
func (s *Store) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})

	flushErr := s.FlushAll(context.Background())
	closeErr := s.db.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (s *Store) flushLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.FlushAll(context.Background()); err != nil {
				logging.Get(logging.CategoryConvo).Error("periodic flush failed: %v", err)
			}
		case <-s.stop:
			return
		}
	}
}

func (s *Store) load(userID string) (record, bool) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM contexts WHERE user_id = ?`, userID).Scan(&data)
	if err != nil {
		return record{}, false
	}

	var r record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		logging.Get(logging.CategoryConvo).Warn("corrupt context record for %s: %v", userID, err)
		return record{}, false
	}
	return r, true
}
