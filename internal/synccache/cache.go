// Package synccache keeps an in-memory mirror of one user's collections,
// fed by document store watches. Readers get the current snapshot without
// touching the store; subscribers get the new full result set pushed after
// every change.
package synccache

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rentledger/rentledger/internal/docstore"
)

// watched lists the collections mirrored for a session and the query each
// one is mirrored under. Rooms read naturally in id order; contracts are
// wanted newest first.
var watched = []struct {
	collection string
	query      docstore.Query
}{
	{docstore.CollectionRooms, docstore.Query{OrderBy: "id"}},
	{docstore.CollectionContracts, docstore.Query{OrderBy: "createdAt", Desc: true}},
}

// entry is the cached state of one collection.
type entry struct {
	snapshot []docstore.Document
	subs     map[int]chan []docstore.Document
}

// Cache mirrors one user's collections. Create with New, arm with Start,
// tear down with Close. All methods are safe for concurrent use.
type Cache struct {
	uid   string
	store docstore.Store

	mu       sync.Mutex
	entries  map[string]*entry
	releases []func()
	nextSub  int
	closed   bool

	closeOnce sync.Once
}

// New returns an unstarted cache for uid.
func New(uid string, store docstore.Store) *Cache {
	entries := make(map[string]*entry, len(watched))
	for _, w := range watched {
		entries[w.collection] = &entry{
			snapshot: []docstore.Document{},
			subs:     make(map[int]chan []docstore.Document),
		}
	}
	return &Cache{uid: uid, store: store, entries: entries}
}

// Start opens a watch per mirrored collection. The initial snapshots are in
// place when Start returns; on error every watch opened so far is released
// and the cache is unusable.
func (c *Cache) Start(ctx context.Context) error {
	for _, w := range watched {
		collection := w.collection
		release, err := c.store.Watch(ctx, c.uid, collection, w.query, func(docs []docstore.Document) {
			c.apply(collection, docs)
		})
		if err != nil {
			c.Close()
			return fmt.Errorf("watch %s: %w", collection, err)
		}

		c.mu.Lock()
		c.releases = append(c.releases, release)
		c.mu.Unlock()
	}

	log.Debug().Str("user_id", c.uid).Msg("Collection cache started")
	return nil
}

// apply installs a new snapshot and fans it out to subscribers. Sends
// conflate: a subscriber that has not drained the previous push only ever
// sees the latest result set.
func (c *Cache) apply(collection string, docs []docstore.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	e := c.entries[collection]
	if e == nil {
		return
	}
	e.snapshot = docs

	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		ch <- docs
	}
}

// Snapshot returns the current cached result set for a collection. Before
// Start, and after Close, the snapshot is empty. The returned slice is
// shared; callers must not mutate it.
func (c *Cache) Snapshot(collection string) []docstore.Document {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entries[collection]
	if e == nil {
		return nil
	}
	return e.snapshot
}

// Subscribe returns the current snapshot plus a channel that carries the
// full new result set after every change. The channel conflates: only the
// latest set is pending at any time. The returned func cancels the
// subscription; calling it more than once is safe.
func (c *Cache) Subscribe(collection string) ([]docstore.Document, <-chan []docstore.Document, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entries[collection]
	if e == nil || c.closed {
		ch := make(chan []docstore.Document)
		close(ch)
		return nil, ch, func() {}
	}

	c.nextSub++
	id := c.nextSub
	ch := make(chan []docstore.Document, 1)
	e.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(ch)
			}
		})
	}
	return e.snapshot, ch, cancel
}

// Close releases the watches, clears every snapshot and closes all
// subscriber channels. Safe to call more than once; later calls are no-ops.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		releases := c.releases
		c.releases = nil
		for _, e := range c.entries {
			e.snapshot = []docstore.Document{}
			for id, ch := range e.subs {
				delete(e.subs, id)
				close(ch)
			}
		}
		c.mu.Unlock()

		for _, release := range releases {
			release()
		}

		log.Debug().Str("user_id", c.uid).Msg("Collection cache closed")
	})
}
