package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL matches the lifetime of cached user analytics
const DefaultTTL = 2 * time.Hour

// Status is the lifecycle state of a query result
type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	}
	return "unknown"
}

// Activation gates fetching. Inactive fetches never reach the backend.
type Activation bool

const (
	Inactive Activation = false
	Active   Activation = true
)

// Result is what a caller sees for one key
type Result[T any] struct {
	Status    Status
	Data      T
	Err       error
	UpdatedAt time.Time
}

// Persistence is a durable second level behind the in-memory entries
type Persistence interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Recorder observes cache outcomes
type Recorder interface {
	CacheResult(name, outcome string)
}

type entry struct {
	data      any
	updatedAt time.Time
}

// Options configures a Client
type Options struct {
	TTL         time.Duration
	Persistence Persistence
	Recorder    Recorder
	Logger      *slog.Logger
}

// Client caches remote query results by key and collapses concurrent fetches
// of one key into a single call.
type Client struct {
	mu       sync.Mutex
	entries  map[string]entry
	inflight map[string]int
	group    singleflight.Group

	ttl         time.Duration
	persistence Persistence
	recorder    Recorder
	logger      *slog.Logger
	now         func() time.Time
}

func NewClient(opts Options) *Client {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		entries:     make(map[string]entry),
		inflight:    make(map[string]int),
		ttl:         ttl,
		persistence: opts.Persistence,
		recorder:    opts.Recorder,
		logger:      logger,
		now:         time.Now,
	}
}

func (c *Client) record(name, outcome string) {
	if c.recorder != nil {
		c.recorder.CacheResult(name, outcome)
	}
}

// lookup returns a fresh entry for id. Expired entries are dropped.
func (c *Client) lookup(id string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return entry{}, false
	}
	if c.now().Sub(e.updatedAt) >= c.ttl {
		delete(c.entries, id)
		return entry{}, false
	}
	return e, true
}

func (c *Client) store(id string, data any) entry {
	e := entry{data: data, updatedAt: c.now()}
	c.mu.Lock()
	c.entries[id] = e
	c.mu.Unlock()
	return e
}

func (c *Client) begin(id string) {
	c.mu.Lock()
	c.inflight[id]++
	c.mu.Unlock()
}

func (c *Client) end(id string) {
	c.mu.Lock()
	c.inflight[id]--
	if c.inflight[id] <= 0 {
		delete(c.inflight, id)
	}
	c.mu.Unlock()
}

func (c *Client) loading(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[id] > 0
}

// PurgeExpired removes every expired entry and reports how many were removed
func (c *Client) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	now := c.now()
	for id, e := range c.entries {
		if now.Sub(e.updatedAt) >= c.ttl {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Fetch returns the result for key, calling fn only when no fresh value is
// cached in memory or in the persistence layer. An inactive fetch reports Idle
// and never calls fn. Failures are not cached and report Error without data.
func Fetch[T any](ctx context.Context, c *Client, key Key, active Activation, fn func(context.Context) (T, error)) Result[T] {
	if !active {
		return Result[T]{Status: Idle}
	}

	id := key.String()
	if e, ok := c.lookup(id); ok {
		if data, ok := e.data.(T); ok {
			c.record(key.Name, "hit")
			return Result[T]{Status: Ready, Data: data, UpdatedAt: e.updatedAt}
		}
	}

	c.begin(id)
	defer c.end(id)

	// The shared call outlives any one caller: it runs detached from the
	// leader's cancellation and every caller waits on its own context.
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (any, error) {
		// a call that finished while this one was queued may have filled the entry
		if e, ok := c.lookup(id); ok {
			return e, nil
		}
		if data, ok := loadPersisted[T](detached, c, id); ok {
			c.record(key.Name, "persisted")
			return c.store(id, data), nil
		}

		c.record(key.Name, "miss")
		data, err := fn(detached)
		if err != nil {
			return nil, err
		}
		e := c.store(id, data)
		savePersisted(detached, c, id, data)
		return e, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Result[T]{Status: Error, Err: ctx.Err()}
	}
	if res.Shared {
		c.record(key.Name, "shared")
	}
	if res.Err != nil {
		c.logger.WarnContext(ctx, "Query failed", "query", key.Name, "key", id, "error", res.Err)
		return Result[T]{Status: Error, Err: res.Err}
	}

	e := res.Val.(entry)
	data, ok := e.data.(T)
	if !ok {
		return Result[T]{Status: Error, Err: fmt.Errorf("cached value for %s has type %T", key.Name, e.data)}
	}
	return Result[T]{Status: Ready, Data: data, UpdatedAt: e.updatedAt}
}

// Peek reports the cached state of key without issuing a request: Ready with
// data when a fresh entry exists, Loading while a fetch is in flight, Idle
// otherwise.
func Peek[T any](c *Client, key Key) Result[T] {
	id := key.String()
	if e, ok := c.lookup(id); ok {
		if data, ok := e.data.(T); ok {
			return Result[T]{Status: Ready, Data: data, UpdatedAt: e.updatedAt}
		}
	}
	if c.loading(id) {
		return Result[T]{Status: Loading}
	}
	return Result[T]{Status: Idle}
}

func loadPersisted[T any](ctx context.Context, c *Client, id string) (T, bool) {
	var data T
	if c.persistence == nil {
		return data, false
	}
	raw, found, err := c.persistence.Load(ctx, id)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to read persisted query result", "key", id, "error", err)
		return data, false
	}
	if !found {
		return data, false
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		c.logger.WarnContext(ctx, "Discarding undecodable persisted query result", "key", id, "error", err)
		return data, false
	}
	return data, true
}

func savePersisted(ctx context.Context, c *Client, id string, data any) {
	if c.persistence == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to encode query result", "key", id, "error", err)
		return
	}
	if err := c.persistence.Save(ctx, id, raw, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "Failed to persist query result", "key", id, "error", err)
	}
}
