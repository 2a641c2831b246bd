package geocache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/couchcryptid/berlin-events-service/internal/domain"
	"github.com/couchcryptid/berlin-events-service/internal/observability"
)

// Cache is a write-through, file-backed coordinate cache. It implements
// domain.CoordinateCache.
//
// The file is a JSON object keyed by the exact query string. A value is
// either {"lat": .., "lon": ..} or null for a query known to be unresolvable.
// Every mutation rewrites the whole file while holding the lock.
type Cache struct {
	path    string
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	entries map[string]*domain.Coordinate
}

// Entry is a snapshot of one cache entry. Coord is nil for negative entries.
type Entry struct {
	Query string
	Coord *domain.Coordinate
}

// Open loads the cache file at path. A missing, unreadable or malformed file
// yields an empty cache; the latter two are logged.
func Open(path string, logger *slog.Logger, metrics *observability.Metrics) *Cache {
	c := &Cache{
		path:    path,
		logger:  logger,
		metrics: metrics,
		entries: make(map[string]*domain.Coordinate),
	}
	c.load()
	c.metrics.CacheEntries.Set(float64(len(c.entries)))
	return c
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("geocache unreadable, starting empty", "path", c.path, "error", err)
		}
		return
	}

	var entries map[string]*domain.Coordinate
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("geocache malformed, starting empty", "path", c.path, "error", err)
		return
	}
	if entries != nil {
		c.entries = entries
	}
	c.logger.Info("geocache loaded", "path", c.path, "entries", len(c.entries))
}

// Get looks up the exact query string.
func (c *Cache) Get(query string) (domain.Coordinate, domain.CacheState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	coord, ok := c.entries[query]
	switch {
	case !ok:
		return domain.Coordinate{}, domain.CacheMiss
	case coord == nil:
		return domain.Coordinate{}, domain.CacheNegative
	default:
		return *coord, domain.CacheHit
	}
}

// Put stores coord under query and persists the cache. A nil coord records
// a negative entry. The in-memory update is kept even if persisting fails;
// the next mutation rewrites the file.
func (c *Cache) Put(query string, coord *domain.Coordinate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stored *domain.Coordinate
	if coord != nil {
		v := *coord
		stored = &v
	}
	c.entries[query] = stored
	c.metrics.CacheEntries.Set(float64(len(c.entries)))

	return c.persistLocked()
}

// Delete removes query from the cache and persists the change. It reports
// whether the entry existed.
func (c *Cache) Delete(query string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[query]; !ok {
		return false, nil
	}
	delete(c.entries, query)
	c.metrics.CacheEntries.Set(float64(len(c.entries)))

	return true, c.persistLocked()
}

// Flush writes the current contents to disk.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocked()
}

// Len returns the number of entries, negative ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns a snapshot of all entries sorted by query.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for q, coord := range c.entries {
		e := Entry{Query: q}
		if coord != nil {
			v := *coord
			e.Coord = &v
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Query < out[j].Query })
	return out
}

// persistLocked writes the map to a temp file next to the target and renames
// it into place, so readers never see a partial file. Callers hold c.mu.
func (c *Cache) persistLocked() error {
	if err := c.writeFile(); err != nil {
		c.metrics.CachePersistErrors.Inc()
		c.logger.Warn("geocache persist failed", "path", c.path, "error", err)
		return err
	}
	return nil
}

func (c *Cache) writeFile() error {
	data, err := json.MarshalIndent(c.entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encode geocache: %w", err)
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp geocache: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp geocache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp geocache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp geocache: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace geocache: %w", err)
	}
	return nil
}
