//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package requests

import (
	"fmt"
	"hash/crc32"
	"os"
	"sync"

	"trpc.group/trpc-go/cradle-go/background"
	"trpc.group/trpc-go/cradle-go/dynamic"
	"trpc.group/trpc-go/cradle-go/encoding"
	"trpc.group/trpc-go/cradle-go/identity"
	"trpc.group/trpc-go/cradle-go/log"
	"trpc.group/trpc-go/cradle-go/memcache"
)

// Cached builds a request that resolves inner at most once per id. The
// memory cache is the deduplication point: concurrent Cached requests on
// the same id share one record and one loader. With a disk cache tier
// configured, results that are dynamic values are read from and written
// back to disk, keyed by the id's canonical string.
func Cached(id identity.ID, inner Request) Request {
	return &cachedRequest{id: id, inner: inner}
}

type cachedRequest struct {
	id    identity.ID
	inner Request
}

// Dispatch implements Request.
func (r *cachedRequest) Dispatch(ctx Context) {
	system := ctx.System
	watcher := &cachedWatcher{ctx: ctx}
	handle := system.memCache.Acquire(r.id, func() memcache.Loader {
		return system.startLoader(r.id, r.inner)
	}, watcher)
	watcher.setHandle(handle)
}

// startLoader begins the work backing a cache record. With a disk tier,
// a disk-read job checks it first and only a miss posts the compute job;
// otherwise the compute job is posted directly. The returned controller
// is that of the first job posted: with a disk tier, cancelling it stops
// the disk-read job but not a compute job the disk-read job has already
// posted.
func (s *System) startLoader(id identity.ID, inner Request) memcache.Loader {
	if s.diskCache != nil {
		return s.pools.DiskRead.AddJob(background.JobFunc(
			func(checkIn background.CheckIn, report background.ProgressReporter) error {
				if s.loadFromDisk(id) {
					return nil
				}
				checkIn()
				s.postComputeJob(id, inner, true)
				return nil
			}), 0, 0)
	}
	return s.postComputeJob(id, inner, false)
}

// postComputeJob posts the job that resolves inner and publishes its
// result into the caches.
func (s *System) postComputeJob(id identity.ID, inner Request, writeBack bool) *background.Controller {
	return s.pools.CPU.AddJob(background.JobFunc(
		func(checkIn background.CheckIn, report background.ProgressReporter) error {
			checkIn()
			Post(s, inner,
				func(v any) {
					s.memCache.SetReady(id, dynamic.MakeImmutable(v))
					if writeBack {
						s.postWriteBackJob(id, v)
					}
				},
				func(err error) {
					log.Warnf("cached request %s failed: %v", id, err)
					s.memCache.ReportFailure(id)
				})
			return nil
		}), 0, 0)
}

// cachedWatcher forwards record transitions to the request's context and
// releases the handle once the outcome is known, so finished results
// fall under the eviction budget instead of being pinned forever.
type cachedWatcher struct {
	ctx Context

	mu       sync.Mutex
	handle   *memcache.Handle
	finished bool
	// deliver is set when a transition arrived before the handle did
	// (the record was already ready at acquire time).
	deliver func()
}

func (w *cachedWatcher) setHandle(handle *memcache.Handle) {
	w.mu.Lock()
	w.handle = handle
	deliver := w.deliver
	w.deliver = nil
	w.mu.Unlock()
	if deliver != nil {
		handle.Release()
		deliver()
	}
}

// finish runs outcome exactly once, releasing the handle first.
func (w *cachedWatcher) finish(outcome func()) {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return
	}
	w.finished = true
	handle := w.handle
	if handle == nil {
		w.deliver = outcome
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()
	handle.Release()
	outcome()
}

// OnProgress implements memcache.Watcher.
func (w *cachedWatcher) OnProgress(progress float64) {}

// OnReady implements memcache.Watcher.
func (w *cachedWatcher) OnReady(datum *dynamic.Immutable) {
	w.finish(func() { w.ctx.ReportValue(datum.Value()) })
}

// OnFailure implements memcache.Watcher.
func (w *cachedWatcher) OnFailure() {
	w.finish(func() {
		w.ctx.ReportFailure(fmt.Errorf(
			"cached computation failed"))
	})
}

// externalStorageThreshold is the inline/external split for disk
// write-backs: values larger than this go to an external file.
const externalStorageThreshold = 4096

// loadFromDisk tries to satisfy id from the disk tier. Any failure is a
// miss.
func (s *System) loadFromDisk(id identity.ID) bool {
	key := id.String()
	entry, err := s.diskCache.Find(key)
	if err != nil {
		log.Warnf("disk cache read for %s: %v", key, err)
		return false
	}
	if entry == nil {
		return false
	}

	var data []byte
	if entry.InDB {
		data = entry.Value
	} else {
		data, err = os.ReadFile(s.diskCache.PathForID(entry.ID))
		if err != nil {
			log.Warnf("disk cache file for %s: %v", key, err)
			return false
		}
		if crc32.ChecksumIEEE(data) != entry.CRC32 {
			log.Warnf("disk cache file for %s: checksum mismatch", key)
			return false
		}
	}

	value, err := encoding.DecodeMsgpack(data)
	if err != nil {
		log.Warnf("disk cache decode for %s: %v", key, err)
		return false
	}

	s.diskCache.RecordUsage(entry.ID)
	s.memCache.SetReady(id, dynamic.MakeImmutable(value))
	return true
}

// postWriteBackJob persists a computed value to the disk tier. Only
// dynamic values have a defined serialization; anything else stays
// memory-only.
func (s *System) postWriteBackJob(id identity.ID, v any) {
	value, ok := v.(dynamic.Value)
	if !ok {
		return
	}
	s.pools.DiskWrite.AddJob(background.JobFunc(
		func(checkIn background.CheckIn, report background.ProgressReporter) error {
			data, err := encoding.EncodeMsgpack(value)
			if err != nil {
				return fmt.Errorf("encoding cached value %s: %w", id, err)
			}
			checkIn()
			if err := s.writeBack(id.String(), data); err != nil {
				log.Warnf("disk cache write for %s: %v", id, err)
				return err
			}
			s.diskCache.DoIdleProcessing()
			return nil
		}), background.JobHidden, 0)
}

func (s *System) writeBack(key string, data []byte) error {
	if len(data) <= externalStorageThreshold {
		return s.diskCache.Insert(key, data, 0)
	}
	rowID, err := s.diskCache.InitiateInsert(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.diskCache.PathForID(rowID), data, 0o644); err != nil {
		return err
	}
	return s.diskCache.FinishInsert(rowID, crc32.ChecksumIEEE(data), 0)
}
