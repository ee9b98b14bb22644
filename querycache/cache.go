// Package querycache is a small keyed cache for remote query results. Data
// fetchers attach a stale time to each key; Invalidate marks keys stale by
// prefix so the next Fetch goes back to the server, and Clear drops everything
// on logout.
package querycache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a query, e.g. Key{"dashboard", "overview"}.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether every segment of prefix matches the start of k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// EntryStatus describes a key's cache state.
type EntryStatus struct {
	HasData   bool
	Fetching  bool
	Stale     bool
	FetchedAt time.Time
	Err       error // last fetch error, cleared by a successful fetch
}

type entry struct {
	key       Key
	value     any
	hasData   bool
	fetchedAt time.Time
	stale     bool
	err       error
	fetching  int
}

type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	flight     singleflight.Group
	generation uint64
	nowFunc    func() time.Time
}

type Option func(*Cache)

func WithNowFunc(now func() time.Time) Option {
	return func(c *Cache) {
		c.nowFunc = now
	}
}

func New(options ...Option) *Cache {
	c := &Cache{entries: make(map[string]*entry)}
	for _, opt := range options {
		opt(c)
	}
	if c.nowFunc == nil {
		c.nowFunc = time.Now
	}
	return c
}

// Fetch returns the cached value for key if it is younger than staleTime and
// not invalidated, otherwise runs fn. Concurrent fetches of one key share a
// single fn call. A failed fetch keeps the previous value.
func Fetch[T any](ctx context.Context, c *Cache, key Key, staleTime time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	id := key.String()

	c.mu.Lock()
	if e, ok := c.entries[id]; ok && e.hasData && !e.stale && c.nowFunc().Sub(e.fetchedAt) < staleTime {
		value, _ := e.value.(T)
		c.mu.Unlock()
		return value, nil
	}
	c.mu.Unlock()

	v, err, _ := c.flight.Do(id, func() (interface{}, error) {
		generation := c.begin(key)
		value, err := fn(ctx)
		c.settle(key, generation, value, err)
		return value, err
	})
	if err != nil {
		return zero, err
	}
	value, _ := v.(T)
	return value, nil
}

func (c *Cache) begin(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	e.fetching++
	return c.generation
}

func (c *Cache) settle(key Key, generation uint64, value any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return // cleared while fetching
	}
	e := c.entryLocked(key)
	e.fetching--
	if err != nil {
		e.err = err
		return
	}
	e.value = value
	e.hasData = true
	e.fetchedAt = c.nowFunc()
	e.stale = false
	e.err = nil
}

func (c *Cache) entryLocked(key Key) *entry {
	id := key.String()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: append(Key(nil), key...)}
		c.entries[id] = e
	}
	return e
}

// Peek returns the cached value for key without fetching.
func Peek[T any](c *Cache, key Key) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return zero, false
	}
	value, ok := e.value.(T)
	return value, ok
}

func (c *Cache) Status(key Key) EntryStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return EntryStatus{}
	}
	return EntryStatus{
		HasData:   e.hasData,
		Fetching:  e.fetching > 0,
		Stale:     e.stale,
		FetchedAt: e.fetchedAt,
		Err:       e.err,
	}
}

// Invalidate marks every key starting with prefix as stale and returns how many
// entries were affected.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.stale = true
			n++
		}
	}
	return n
}

// Clear drops every entry. Fetches still running when Clear is called do not
// repopulate the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.entries {
		c.flight.Forget(id)
	}
	c.entries = make(map[string]*entry)
	c.generation++
}
