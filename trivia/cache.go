package trivia

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Source produces a schedule snapshot.
type Source interface {
	Fetch(ctx context.Context) (*Table, error)
}

// CachedSource keeps the scrape off the request path: a snapshot is reused
// until it goes stale, and when a refresh fails the last-known-good snapshot
// keeps serving.
type CachedSource struct {
	src    Source
	ttl    time.Duration
	logger *slog.Logger
	nowFn  func() time.Time

	mu        sync.Mutex
	table     *Table
	fetchedAt time.Time
}

type CachedSourceOptions struct {
	Source Source
	TTL    time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

func NewCachedSource(opts CachedSourceOptions) *CachedSource {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &CachedSource{
		src:    opts.Source,
		ttl:    ttl,
		logger: logger,
		nowFn:  nowFn,
	}
}

// Table returns a fresh-enough snapshot, refreshing if needed. It only
// fails with ErrUnavailable when there is no snapshot at all.
func (c *CachedSource) Table(ctx context.Context) (*Table, error) {
	if c == nil || c.src == nil {
		return nil, ErrUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFn()
	if c.table != nil && now.Sub(c.fetchedAt) < c.ttl {
		return c.table, nil
	}

	table, err := c.src.Fetch(ctx)
	if err != nil {
		if c.table != nil {
			c.logger.Warn("trivia refresh failed, serving stale snapshot",
				"error", err, "age", now.Sub(c.fetchedAt).String())
			return c.table, nil
		}
		return nil, err
	}

	c.table = table
	c.fetchedAt = now
	return c.table, nil
}
