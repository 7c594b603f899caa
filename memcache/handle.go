//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package memcache

import (
	"trpc.group/trpc-go/cradle-go/dynamic"
	"trpc.group/trpc-go/cradle-go/identity"
)

// Handle represents one party's interest in a cached datum. It keeps the
// record referenced (and so exempt from eviction) until released.
//
// Handles offer both polling (State/Progress/Datum) and the watcher
// attached at Acquire time. A Handle is not safe for concurrent use by
// multiple goroutines; acquire one per party instead.
type Handle struct {
	record  *record
	watcher Watcher
	released bool
}

// Key returns the ID the handle was acquired under.
func (h *Handle) Key() identity.ID {
	return h.record.key.ID()
}

// State polls the record's state without locking.
func (h *Handle) State() State {
	return State(h.record.state.Load())
}

// IsReady reports whether the datum is available.
func (h *Handle) IsReady() bool { return h.State() == Ready }

// IsLoading reports whether the datum is still being produced.
func (h *Handle) IsLoading() bool { return h.State() == Loading }

// IsFailed reports whether the loader failed.
func (h *Handle) IsFailed() bool { return h.State() == Failed }

// Progress polls the loading progress; ok is false when none has been
// reported.
func (h *Handle) Progress() (float64, bool) {
	return decodeProgress(h.record.progress.Load())
}

// Datum returns the record's datum. The state is rechecked under the
// cache mutex before the datum is read; nil is returned unless the
// record is Ready.
func (h *Handle) Datum() *dynamic.Immutable {
	c := h.record.owner
	c.mu.Lock()
	defer c.mu.Unlock()
	if State(h.record.state.Load()) != Ready {
		return nil
	}
	return h.record.datum
}

// Clone acquires an additional handle on the same record, duplicating
// this handle's watcher attachment.
func (h *Handle) Clone() *Handle {
	return h.record.owner.Acquire(h.record.key.ID(), nil, h.watcher)
}

// Release drops the handle's reference and detaches its watcher.
// Releasing the last handle moves the record onto the eviction list and
// cancels its loader if the work is still pending. Release is
// idempotent.
func (h *Handle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.record.owner.release(h.record, h.watcher)
}
