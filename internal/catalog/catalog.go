package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"askbot/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Catalog is the read-mostly scenario collection. The snapshot (slice +
// index) is swapped atomically on reload; readers never see a partially
// loaded catalog.
type Catalog struct {
	path     string
	snapshot atomic.Pointer[snapshot]

	// hot reload
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	watching bool
}

type snapshot struct {
	scenarios []Scenario
	index     map[string]*Scenario
}

// Load reads the scenario catalog from a JSON file. A missing file yields an
// empty catalog rather than an error, matching the knowledge-store contract.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromScenarios builds a catalog directly from records (used by tests and
// the validate subcommand).
func NewFromScenarios(scenarios []Scenario) (*Catalog, error) {
	c := &Catalog{}
	if err := c.install(scenarios); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) reload() error {
	timer := logging.StartTimer(logging.CategoryCatalog, "catalog load")
	defer timer.Stop()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Get(logging.CategoryCatalog).Warn("scenarios file not found: %s", c.path)
			return c.install(nil)
		}
		return fmt.Errorf("failed to read scenarios: %w", err)
	}

	scenarios, err := ParseScenarios(data)
	if err != nil {
		return err
	}

	logging.Catalog("loaded %d scenarios from %s", len(scenarios), c.path)
	return c.install(scenarios)
}

func (c *Catalog) install(scenarios []Scenario) error {
	snap := &snapshot{
		scenarios: scenarios,
		index:     make(map[string]*Scenario, len(scenarios)),
	}
	for i := range scenarios {
		s := &scenarios[i]
		if _, dup := snap.index[s.ScenarioID]; dup {
			return fmt.Errorf("duplicate scenario_id %q", s.ScenarioID)
		}
		snap.index[s.ScenarioID] = s
	}
	c.snapshot.Store(snap)
	return nil
}

// All returns the current scenario snapshot. Callers must not mutate it.
func (c *Catalog) All() []Scenario {
	return c.snapshot.Load().scenarios
}

// Len returns the number of scenarios.
func (c *Catalog) Len() int {
	return len(c.snapshot.Load().scenarios)
}

// ByID looks up a scenario by id. Unknown ids return ok=false, never panic.
func (c *Catalog) ByID(id string) (Scenario, bool) {
	s, ok := c.snapshot.Load().index[id]
	if !ok {
		return Scenario{}, false
	}
	return *s, true
}

// Related resolves a scenario's related_scenarios references through the
// index. Dangling ids are skipped.
func (c *Catalog) Related(id string) []Scenario {
	s, ok := c.ByID(id)
	if !ok {
		return nil
	}
	var related []Scenario
	for _, rid := range s.RelatedScenarios {
		if r, ok := c.ByID(rid); ok {
			related = append(related, r)
		}
	}
	return related
}

// FindByTitleIn scans text for a case-insensitive occurrence of any scenario
// title and returns the first hit. Used for follow-up re-anchoring against
// the last delivered answer.
func (c *Catalog) FindByTitleIn(text string) (Scenario, bool) {
	lower := strings.ToLower(text)
	for _, s := range c.All() {
		if s.Title != "" && strings.Contains(lower, strings.ToLower(s.Title)) {
			return s, true
		}
	}
	return Scenario{}, false
}

// =============================================================================
// HOT RELOAD - atomic snapshot swap on file change
// =============================================================================

// WatchForChanges starts watching the scenarios file and reloads the catalog
// on modification. Reload failures keep the previous snapshot. Non-blocking.
func (c *Catalog) WatchForChanges() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watching {
		return nil
	}
	if c.path == "" {
		return fmt.Errorf("catalog has no backing file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", c.path, err)
	}

	c.watcher = watcher
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.watching = true

	go c.watchLoop()
	logging.Catalog("hot reload enabled for %s", c.path)
	return nil
}

func (c *Catalog) watchLoop() {
	defer close(c.doneCh)

	// Debounce rapid saves from editors
	var pending <-chan time.Time

	for {
		select {
		case <-c.stopCh:
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(c.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(500 * time.Millisecond)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryCatalog).Warn("watcher error: %v", err)
		case <-pending:
			pending = nil
			if err := c.reload(); err != nil {
				logging.Get(logging.CategoryCatalog).Error("reload failed, keeping previous snapshot: %v", err)
			}
		}
	}
}

// StopWatching stops the hot reload watcher.
func (c *Catalog) StopWatching() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.watching {
		return
	}
	close(c.stopCh)
	c.watcher.Close()
	<-c.doneCh
	c.watching = false
}
