package respcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"cratedig/internal/logging"
)

// Entry is one cached service response. Entries never expire; stale data is
// removed only by an explicit Clear.
type Entry struct {
	Key      string    `json:"key"`
	Service  string    `json:"service"`
	Payload  string    `json:"payload"`
	CachedAt time.Time `json:"cached_at"`
}

// Cache provides thread-safe access to the on-disk response cache. A file
// lock guards writes so concurrent batch invocations do not clobber each
// other's entries.
type Cache struct {
	path    string
	logger  *slog.Logger
	lock    *flock.Flock
	mu      sync.RWMutex
	entries map[string]Entry
}

// Key derives the cache key for a service request. The same service and
// request text always map to the same key.
func Key(service, request string) string {
	sum := sha256.Sum256([]byte(service + "\x00" + request))
	return hex.EncodeToString(sum[:])
}

// New creates a cache backed by the given file. An empty path yields a
// non-functional cache where every operation is a no-op. The cache file is
// created lazily on first Put.
func New(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "respcache")

	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}

	if path == "" {
		return c
	}
	c.lock = flock.New(path + ".lock")

	if err := c.load(); err != nil {
		logger.Warn("failed to load response cache",
			logging.Error(err),
			logging.String("path", path))
	}

	return c
}

// Get returns the cached payload for a service request if present.
func (c *Cache) Get(service, request string) (string, bool) {
	if c.path == "" {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[Key(service, request)]
	if !found {
		return "", false
	}
	return entry.Payload, true
}

// Put stores a service response and persists the cache to disk.
func (c *Cache) Put(service, request, payload string) error {
	if strings.TrimSpace(service) == "" {
		return errors.New("service name cannot be empty")
	}
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(service, request)
	c.entries[key] = Entry{
		Key:      key,
		Service:  service,
		Payload:  payload,
		CachedAt: time.Now().UTC(),
	}

	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached service response",
		logging.String(logging.FieldSource, service),
		logging.String("key", key))
	return nil
}

// Clear removes all entries and persists the empty cache.
func (c *Cache) Clear() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)

	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cleared response cache")
	return nil
}

// Count returns the number of cached responses.
func (c *Cache) Count() int {
	if c.path == "" {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// load reads the cache from disk into memory.
func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}

	c.entries = make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry.Key) != "" {
			c.entries[entry.Key] = entry
		}
	}

	c.logger.Debug("loaded response cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

// save writes the cache to disk atomically, serialized across processes via
// the file lock.
func (c *Cache) save() error {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}

	// Sort for deterministic output
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	if c.lock != nil {
		if err := c.lock.Lock(); err != nil {
			return fmt.Errorf("acquire cache lock: %w", err)
		}
		defer func() { _ = c.lock.Unlock() }()
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
