//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package memcache implements the in-process half of the two-tier cache:
// a map from structural IDs to reference-counted records. Its job is to
// deduplicate in-flight work on the same key, keep recently finished
// results resident up to a byte budget, and release them under LRU
// pressure.
//
// Records whose reference count is zero sit on an eviction list in
// least-recently-released order; referenced records are never evicted.
// State and progress are atomics and may be polled without the cache
// mutex, but any decision based on them must recheck under the lock
// before touching other fields.
package memcache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"trpc.group/trpc-go/cradle-go/dynamic"
	"trpc.group/trpc-go/cradle-go/identity"
)

// State describes where a record is in its lifecycle.
type State int32

// Record states.
const (
	// Loading means the datum isn't available yet but is somewhere in
	// the process of being computed or retrieved; it will transition to
	// Ready without further intervention.
	Loading State = iota
	// Ready means the datum is available.
	Ready
	// Failed means the datum failed to compute. It could be retried
	// through external means.
	Failed
)

// progressNone is the encoded form of "no progress reported".
const progressNone = -1

// progressMax is the encoded form of progress 1.0.
const progressMax = 1000

// encodeProgress stores a fraction in [0, 1] as an integer so that it
// can be read atomically.
func encodeProgress(progress float64) int32 {
	switch {
	case progress < 0:
		return 0
	case progress > 1:
		return progressMax
	default:
		return int32(progress * progressMax)
	}
}

// decodeProgress reverses encodeProgress; ok is false when no progress
// has been reported.
func decodeProgress(encoded int32) (float64, bool) {
	if encoded < 0 {
		return 0, false
	}
	return float64(encoded) / progressMax, true
}

// Loader is the handle a record keeps on the background work producing
// its datum. Cancel tells the work its result is no longer wanted.
type Loader interface {
	Cancel()
}

// Watcher observes a record's lifecycle. Callbacks are invoked outside
// the cache mutex and may re-enter the cache.
type Watcher interface {
	// OnProgress reports loading progress in [0, 1].
	OnProgress(progress float64)
	// OnReady delivers the datum. It fires at most once per attachment of
	// the watcher.
	OnReady(datum *dynamic.Immutable)
	// OnFailure reports that the loader failed. It fires at most once.
	OnFailure()
}

// record is the cache's per-key struct.
type record struct {
	owner *Cache
	key   identity.Captured

	// state and progress may be polled without the cache mutex. Before
	// acting on them, recheck under the lock.
	state    atomic.Int32
	progress atomic.Int32

	// Everything below is guarded by the owning cache's mutex.

	// refCount counts live handles. When zero, the record sits on the
	// eviction list and evictionElement is non-nil.
	refCount        int
	evictionElement *list.Element

	// loader is kept until the record is Ready, at which point it is
	// dropped to release upstream resources.
	loader Loader

	// datum is valid iff state is Ready; size is its deep size.
	datum *dynamic.Immutable
	size  int64

	watchers []Watcher
}

// Config configures a memory cache.
type Config struct {
	// UnusedSizeLimit is the byte budget for unreferenced entries.
	UnusedSizeLimit int64
}

// Cache is the in-memory cache. A single mutex guards the record map,
// the eviction list, and each record's non-atomic fields.
type Cache struct {
	mu      sync.Mutex
	config  Config
	records map[string]*record

	// evictionList holds *record values for every unreferenced record,
	// oldest first; evictionTotal is the sum of their sizes.
	evictionList  list.List
	evictionTotal int64
}

// New creates a memory cache.
func New(config Config) *Cache {
	return &Cache{
		config:  config,
		records: make(map[string]*record),
	}
}

// Acquire returns a handle on the record for key, creating the record
// (and invoking createLoader exactly once to start the backing work) if
// none exists. createLoader runs with the cache mutex held; it may post
// background jobs but must not touch this cache.
//
// watcher, if non-nil, is attached to the record for the life of the
// handle. A watcher attached to an already-Ready or already-Failed
// record is notified immediately.
func (c *Cache) Acquire(key identity.ID, createLoader func() Loader, watcher Watcher) *Handle {
	var notify func()

	c.mu.Lock()
	r, ok := c.records[key.String()]
	if !ok {
		r = &record{owner: c, key: identity.Capture(key)}
		r.progress.Store(progressNone)
		c.records[key.String()] = r
		if createLoader != nil {
			r.loader = createLoader()
		}
	}
	r.refCount++
	if r.evictionElement != nil {
		c.removeFromEvictionListLocked(r)
	}
	if watcher != nil {
		r.watchers = append(r.watchers, watcher)
		switch State(r.state.Load()) {
		case Ready:
			datum := r.datum
			notify = func() { watcher.OnReady(datum) }
		case Failed:
			notify = func() { watcher.OnFailure() }
		}
	}
	c.mu.Unlock()

	if notify != nil {
		notify()
	}
	return &Handle{record: r, watcher: watcher}
}

// SetReady transitions the record for key from Loading to Ready and
// stores its datum. It is a no-op if the key is gone (evicted between
// the loader finishing and reporting). The loader handle is dropped;
// watchers are notified outside the mutex.
func (c *Cache) SetReady(key identity.ID, datum *dynamic.Immutable) {
	c.mu.Lock()
	r, ok := c.records[key.String()]
	if !ok {
		c.mu.Unlock()
		return
	}
	r.datum = datum
	r.size = int64(datum.DeepSize())
	if r.evictionElement != nil {
		c.evictionTotal += r.size
	}
	r.state.Store(int32(Ready))
	// The work is done; keeping the loader would only pin its resources.
	r.loader = nil
	watchers := append([]Watcher(nil), r.watchers...)
	c.mu.Unlock()

	for _, w := range watchers {
		w.OnReady(datum)
	}
	c.reduceTo(c.config.UnusedSizeLimit)
}

// ReportProgress updates the record's progress. A no-op if the key is
// gone.
func (c *Cache) ReportProgress(key identity.ID, progress float64) {
	c.mu.Lock()
	r, ok := c.records[key.String()]
	if !ok {
		c.mu.Unlock()
		return
	}
	r.progress.Store(int32(encodeProgress(progress)))
	watchers := append([]Watcher(nil), r.watchers...)
	c.mu.Unlock()

	for _, w := range watchers {
		w.OnProgress(progress)
	}
}

// ReportFailure transitions the record for key to Failed. A no-op if
// the key is gone.
func (c *Cache) ReportFailure(key identity.ID) {
	c.mu.Lock()
	r, ok := c.records[key.String()]
	if !ok {
		c.mu.Unlock()
		return
	}
	r.state.Store(int32(Failed))
	r.loader = nil
	watchers := append([]Watcher(nil), r.watchers...)
	c.mu.Unlock()

	for _, w := range watchers {
		w.OnFailure()
	}
}

// ReduceTo evicts unreferenced records, oldest first, until their total
// deep size is at most targetBytes.
func (c *Cache) ReduceTo(targetBytes int64) {
	c.reduceTo(targetBytes)
}

func (c *Cache) reduceTo(targetBytes int64) {
	// Evicted loaders must be dropped outside the mutex: cancelling one
	// may recursively release other records in this cache.
	var evictedLoaders []Loader

	c.mu.Lock()
	for c.evictionTotal > targetBytes && c.evictionList.Len() > 0 {
		front := c.evictionList.Front()
		r := front.Value.(*record)
		c.removeFromEvictionListLocked(r)
		delete(c.records, r.key.ID().String())
		if r.loader != nil {
			evictedLoaders = append(evictedLoaders, r.loader)
			r.loader = nil
		}
	}
	c.mu.Unlock()

	for _, loader := range evictedLoaders {
		loader.Cancel()
	}
}

// UnusedSize returns the total deep size of unreferenced records.
func (c *Cache) UnusedSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictionTotal
}

// EntryCount returns the number of records, referenced or not.
func (c *Cache) EntryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func (c *Cache) addToEvictionListLocked(r *record) {
	r.evictionElement = c.evictionList.PushBack(r)
	if r.datum != nil {
		c.evictionTotal += r.size
	}
}

func (c *Cache) removeFromEvictionListLocked(r *record) {
	c.evictionList.Remove(r.evictionElement)
	r.evictionElement = nil
	if r.datum != nil {
		c.evictionTotal -= r.size
	}
}

// release drops one reference. At zero the record joins the eviction
// list; if its loader is still pending, the loader is cancelled.
func (c *Cache) release(r *record, watcher Watcher) {
	var pendingLoader Loader

	c.mu.Lock()
	if watcher != nil {
		for i, w := range r.watchers {
			if w == watcher {
				r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
				break
			}
		}
	}
	r.refCount--
	if r.refCount == 0 {
		c.addToEvictionListLocked(r)
		if State(r.state.Load()) == Loading && r.loader != nil {
			pendingLoader = r.loader
		}
	}
	c.mu.Unlock()

	if pendingLoader != nil {
		pendingLoader.Cancel()
	}
	c.reduceTo(c.config.UnusedSizeLimit)
}
