// Package cache keeps fetched time tables on disk, keyed by location and
// period, and refetches them when they stop being fresh.
package cache

import (
	"context"
	"sync"
	"time"

	appLog "vakit/internal/log"
	"vakit/internal/model"
	"vakit/internal/source"
)

// Entry is one stored table and when it was fetched.
type Entry struct {
	Location  model.Location  `json:"location"`
	Period    model.Period    `json:"period"`
	FetchedAt time.Time       `json:"fetched_at"`
	Table     model.TimeTable `json:"table"`
}

// Key is the store key of the entry.
func (e Entry) Key() string { return Key(e.Location, e.Period) }

// Key builds "<location>_<period>", e.g. "istanbul_2024-06".
func Key(loc model.Location, p model.Period) string {
	return model.Slug(loc.ID) + "_" + p.Key()
}

// Options tunes a Cache.
type Options struct {
	// MaxAge bounds how long an entry of the current period is served
	// without asking the source again. Zero means until the period ends.
	MaxAge time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Cache sits in front of a source. It never serves an entry it considers
// stale; callers that want stale data ask for it with Peek.
type Cache struct {
	src   source.Source
	store Store
	now   func() time.Time

	mu     sync.Mutex
	maxAge time.Duration

	// keys serialises Get per entry key, from the store lookup through the
	// save, so an older fetch can never overwrite a newer one.
	keysMu sync.Mutex
	keys   map[string]*sync.Mutex
}

func New(src source.Source, store Store, opts Options) *Cache {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{src: src, store: store, now: now, maxAge: opts.MaxAge, keys: make(map[string]*sync.Mutex)}
}

// SetMaxAge updates the refresh interval, usually from user settings.
func (c *Cache) SetMaxAge(d time.Duration) {
	c.mu.Lock()
	c.maxAge = d
	c.mu.Unlock()
}

// PeriodFor is the source's period containing t.
func (c *Cache) PeriodFor(t time.Time) model.Period { return c.src.PeriodFor(t) }

// Get returns the table of (loc, p). A fresh stored entry is returned as
// is unless force is set; otherwise the source is asked and its answer
// replaces the entry. When the source fails the stored entry is left
// untouched and the error matches source.ErrSourceUnavailable.
func (c *Cache) Get(ctx context.Context, loc model.Location, p model.Period, force bool) (model.TimeTable, error) {
	key := Key(loc, p)
	unlock := c.lock(key)
	defer unlock()

	if !force {
		e, ok, err := c.store.Load(key)
		if err != nil {
			appLog.Error("cache load failed; refetching", err, "key", key)
		}
		if ok && c.Fresh(e) {
			appLog.Debug("cache hit", "key", key, "fetched_at", e.FetchedAt.Format(time.RFC3339))
			return e.Table, nil
		}
		if ok {
			appLog.Info("cache stale", "key", key, "fetched_at", e.FetchedAt.Format(time.RFC3339))
		} else {
			appLog.Debug("cache miss", "key", key)
		}
	}

	table, err := c.src.Fetch(ctx, loc, p)
	if err != nil {
		return model.TimeTable{}, err
	}
	table.Location = loc
	table.Period = p

	e := Entry{Location: loc, Period: p, FetchedAt: c.now(), Table: table}
	if err := c.store.Save(e); err != nil {
		// The caller still gets the fresh table; the next tick fetches again.
		appLog.Error("cache save failed", err, "key", key)
	}
	appLog.Info("cache refreshed", "key", key, "source", c.src.Name(), "days", table.Len(), "forced", force)
	return table, nil
}

func (c *Cache) lock(key string) func() {
	c.keysMu.Lock()
	l, ok := c.keys[key]
	if !ok {
		l = &sync.Mutex{}
		c.keys[key] = l
	}
	c.keysMu.Unlock()
	l.Lock()
	return l.Unlock
}

// Peek returns whatever is stored for (loc, p), fresh or not.
func (c *Cache) Peek(loc model.Location, p model.Period) (Entry, bool) {
	e, ok, err := c.store.Load(Key(loc, p))
	if err != nil {
		appLog.Error("cache peek failed", err, "key", Key(loc, p))
		return Entry{}, false
	}
	return e, ok
}

// Fresh reports whether e may be served for now. The entry's period must
// still be current (or lie in the future, as for tomorrow's slice at the
// end of a month) and, with a MaxAge set, be younger than it.
func (c *Cache) Fresh(e Entry) bool {
	now := c.now()
	current := c.src.PeriodFor(now)
	if e.Period.Kind != current.Kind || e.Period.Before(current) {
		return false
	}
	c.mu.Lock()
	maxAge := c.maxAge
	c.mu.Unlock()
	if maxAge > 0 && now.Sub(e.FetchedAt) >= maxAge {
		return false
	}
	return true
}
