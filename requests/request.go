//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package requests implements the request graph and its resolution.
//
// A request is a node describing how to produce a value: a literal, a
// function application (inline or on the CPU pool), a request that
// yields another request, a cache consultation, or an outbound HTTP
// call. Resolution chains continuations: a composite hands each of its
// argument requests a per-slot callback and fires its reducer exactly
// once, on the transition to fully-ready. Nothing in the package blocks;
// all waiting happens in the background pools.
package requests

import (
	"context"
	"sync"

	"trpc.group/trpc-go/cradle-go/background"
	"trpc.group/trpc-go/cradle-go/config"
	"trpc.group/trpc-go/cradle-go/diskcache"
	"trpc.group/trpc-go/cradle-go/httpx"
	"trpc.group/trpc-go/cradle-go/log"
	"trpc.group/trpc-go/cradle-go/memcache"
	"trpc.group/trpc-go/cradle-go/telemetry/trace"
)

// Request is a node in the resolution graph.
type Request interface {
	// Dispatch starts resolving the request. The result (or failure) is
	// delivered through ctx exactly once, possibly before Dispatch
	// returns and possibly on another goroutine.
	Dispatch(ctx Context)
}

// Context carries the resolution system and the completion callbacks a
// request reports through.
type Context struct {
	System    *System
	onValue   func(any)
	onFailure func(error)
}

// ReportValue completes the request with a value.
func (ctx Context) ReportValue(v any) {
	ctx.onValue(v)
}

// ReportFailure completes the request with a failure.
func (ctx Context) ReportFailure(err error) {
	if ctx.onFailure != nil {
		ctx.onFailure(err)
	} else {
		log.Errorf("unhandled request failure: %v", err)
	}
}

// Post dispatches a request against a system. onValue is invoked with
// the result; onFailure (optional) with the error if resolution fails.
// Exactly one of the two fires, once.
func Post(system *System, request Request, onValue func(any), onFailure func(error)) {
	_, span := trace.Tracer.Start(context.Background(), "resolve_request")
	var once sync.Once
	end := func() { once.Do(func() { span.End() }) }
	request.Dispatch(Context{
		System: system,
		onValue: func(v any) {
			end()
			onValue(v)
		},
		onFailure: func(err error) {
			end()
			if onFailure != nil {
				onFailure(err)
			} else {
				log.Errorf("unhandled request failure: %v", err)
			}
		},
	})
}

// System owns everything request resolution needs: the memory cache, the
// background pools, the HTTP connection, and optionally a disk cache as
// the second cache tier.
type System struct {
	memCache   *memcache.Cache
	diskCache  *diskcache.Cache
	pools      *background.System
	connection httpx.Connection
}

// Option configures a System.
type Option func(*systemOptions)

type systemOptions struct {
	connection httpx.Connection
	useDisk    bool
}

// WithConnection substitutes the HTTP connection implementation.
func WithConnection(connection httpx.Connection) Option {
	return func(opts *systemOptions) {
		opts.connection = connection
	}
}

// WithDiskCache layers the persistent cache under the memory cache:
// cached requests with serializable (dynamic) values then survive
// process restarts.
func WithDiskCache() Option {
	return func(opts *systemOptions) {
		opts.useDisk = true
	}
}

// NewSystem creates a resolution system from a configuration.
func NewSystem(cfg config.Config, opts ...Option) (*System, error) {
	options := systemOptions{connection: httpx.NewConnection()}
	for _, opt := range opts {
		opt(&options)
	}

	pools, err := background.NewSystem(background.Config{
		CPUWorkers:       cfg.Pools.CPU.Workers,
		HTTPWorkers:      cfg.Pools.HTTP.Workers,
		DiskReadWorkers:  cfg.Pools.DiskRead.Workers,
		DiskWriteWorkers: cfg.Pools.DiskWrite.Workers,
	})
	if err != nil {
		return nil, err
	}

	s := &System{
		memCache: memcache.New(memcache.Config{
			UnusedSizeLimit: cfg.MemoryCache.UnusedSizeLimit,
		}),
		pools:      pools,
		connection: options.connection,
	}

	if options.useDisk {
		disk, err := diskcache.Open(diskcache.Config{
			Directory: cfg.DiskCache.Directory,
			SizeLimit: cfg.DiskCache.SizeLimit,
		})
		if err != nil {
			pools.ShutDown()
			return nil, err
		}
		s.diskCache = disk
	}
	return s, nil
}

// MemoryCache exposes the memory cache for inspection.
func (s *System) MemoryCache() *memcache.Cache { return s.memCache }

// DiskCache exposes the disk cache tier; nil unless configured.
func (s *System) DiskCache() *diskcache.Cache { return s.diskCache }

// Pools exposes the background pools.
func (s *System) Pools() *background.System { return s.pools }

// ShutDown stops the pools and closes the disk cache. In-flight
// resolutions are cancelled cooperatively; their callbacks may never
// fire.
func (s *System) ShutDown() {
	s.pools.ShutDown()
	if s.diskCache != nil {
		s.diskCache.Close()
	}
}
