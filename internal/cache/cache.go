// Package cache memoizes remote listing responses on disk.
//
// A Cache maps an endpoint string (query parameters included) to the verbatim
// body of the last successful fetch and the time it was fetched. A lookup
// younger than the refresh window is served from memory; anything else goes to
// the caller's FetchFunc. The map is loaded once at construction and written
// back as one JSON document on Flush or Close.
//
// A Cache is not synchronized. One process, one caller.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// FetchFunc performs the remote call for an endpoint
type FetchFunc = func(ctx context.Context, endpoint string) ([]byte, error)

// Entry is one cached response
type Entry struct {
	FetchedAt time.Time `json:"fetched_at"`
	Payload   string    `json:"payload"`
}

// Stats reports cache effectiveness for the current process
type Stats struct {
	Hits    int
	Misses  int
	Entries int
}

// Listing describes one cached endpoint
type Listing struct {
	Endpoint  string
	FetchedAt time.Time
	Size      int
}

// Cache is a TTL-bounded response cache persisted to a JSON file
type Cache struct {
	path         string
	refresh      time.Duration
	maxAge       time.Duration
	forceRefresh bool

	entries map[string]Entry
	hits    int
	misses  int

	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMaxAge discards entries older than d when the file is loaded.
// Zero keeps everything.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) {
		c.maxAge = d
	}
}

// WithLogger sets the cache logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New loads the cache file at path. A missing or unreadable file yields an
// empty cache; it is never an error. An empty path keeps the cache in memory.
func New(path string, refresh time.Duration, opts ...Option) *Cache {
	c := &Cache{
		path:    path,
		refresh: refresh,
		entries: make(map[string]Entry),
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.load()
	return c
}

func (c *Cache) load() {
	if c.path == "" {
		return
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("path", c.path).Msg("cache file unreadable, starting empty")
		return
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn().Err(err).Str("path", c.path).Msg("cache file corrupt, starting empty")
		return
	}

	now := c.now()
	expired := 0
	for endpoint, entry := range entries {
		if c.maxAge > 0 && now.Sub(entry.FetchedAt) >= c.maxAge {
			expired++
			continue
		}
		c.entries[endpoint] = entry
	}

	c.logger.Debug().
		Int("entries", len(c.entries)).
		Int("expired", expired).
		Str("path", c.path).
		Msg("cache loaded")
}

// Get returns the payload for endpoint, calling fetch when there is no fresh
// entry. A failed fetch leaves any existing entry untouched.
func (c *Cache) Get(ctx context.Context, endpoint string, fetch FetchFunc) ([]byte, error) {
	now := c.now()

	if entry, ok := c.entries[endpoint]; ok && !c.forceRefresh && now.Sub(entry.FetchedAt) < c.refresh {
		c.hits++
		c.logger.Debug().Str("endpoint", endpoint).Msg("cache hit")
		return []byte(entry.Payload), nil
	}

	c.misses++
	c.logger.Debug().Str("endpoint", endpoint).Bool("forced", c.forceRefresh).Msg("cache miss")

	payload, err := fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	c.entries[endpoint] = Entry{FetchedAt: now, Payload: string(payload)}
	return payload, nil
}

// SetForceRefresh makes every Get a miss while on
func (c *Cache) SetForceRefresh(force bool) {
	c.forceRefresh = force
}

// Stats returns the hit and miss counters since construction
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}

// Entries lists the cached endpoints sorted by name
func (c *Cache) Entries() []Listing {
	out := make([]Listing, 0, len(c.entries))
	for endpoint, entry := range c.entries {
		out = append(out, Listing{Endpoint: endpoint, FetchedAt: entry.FetchedAt, Size: len(entry.Payload)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Endpoint < out[j].Endpoint
	})
	return out
}

// Clear drops every entry. The file is rewritten on the next Flush.
func (c *Cache) Clear() {
	c.entries = make(map[string]Entry)
}

// Flush writes the whole cache to a temp file in the same directory and
// renames it over the cache file.
func (c *Cache) Flush() error {
	if c.path == "" {
		return nil
	}

	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}

	c.logger.Debug().Int("entries", len(c.entries)).Str("path", c.path).Msg("cache written")
	return nil
}

// Close persists the cache
func (c *Cache) Close() error {
	return c.Flush()
}
