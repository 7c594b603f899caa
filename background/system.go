//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package background

import (
	"runtime"
)

// Default worker counts for the standard pools.
const (
	defaultHTTPWorkers      = 24
	defaultDiskReadWorkers  = 2
	defaultDiskWriteWorkers = 2
)

// Config sizes the standard pools. Zero fields take defaults: the CPU
// pool matches hardware concurrency, HTTP gets 24 workers and the two
// disk pools 2 each.
type Config struct {
	CPUWorkers       int
	HTTPWorkers      int
	DiskReadWorkers  int
	DiskWriteWorkers int
}

// System bundles the standard pools the computation core runs on: a CPU
// pool for apply/async/cached production, an HTTP pool for outbound
// requests, and two small pools for disk cache I/O. Work never migrates
// between pools.
type System struct {
	CPU       *Pool
	HTTP      *Pool
	DiskRead  *Pool
	DiskWrite *Pool
}

// NewSystem creates the standard pools.
func NewSystem(config Config) (*System, error) {
	sizeOr := func(configured, fallback int) int {
		if configured > 0 {
			return configured
		}
		return fallback
	}

	var s System
	var err error
	if s.CPU, err = NewPool("cpu",
		sizeOr(config.CPUWorkers, runtime.NumCPU())); err != nil {
		return nil, err
	}
	if s.HTTP, err = NewPool("http",
		sizeOr(config.HTTPWorkers, defaultHTTPWorkers)); err != nil {
		s.ShutDown()
		return nil, err
	}
	if s.DiskRead, err = NewPool("disk-read",
		sizeOr(config.DiskReadWorkers, defaultDiskReadWorkers)); err != nil {
		s.ShutDown()
		return nil, err
	}
	if s.DiskWrite, err = NewPool("disk-write",
		sizeOr(config.DiskWriteWorkers, defaultDiskWriteWorkers)); err != nil {
		s.ShutDown()
		return nil, err
	}
	return &s, nil
}

// ShutDown stops every pool, dropping pending jobs and cancelling
// running ones.
func (s *System) ShutDown() {
	for _, pool := range []*Pool{s.CPU, s.HTTP, s.DiskRead, s.DiskWrite} {
		if pool != nil {
			pool.ShutDown()
		}
	}
}
