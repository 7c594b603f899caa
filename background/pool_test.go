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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	p, err := NewPool("test", size)
	require.NoError(t, err)
	t.Cleanup(p.ShutDown)
	return p
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestJobRunsToCompletion(t *testing.T) {
	p := newTestPool(t, 2)

	done := make(chan struct{})
	ctrl := p.AddJob(JobFunc(func(checkIn CheckIn, report ProgressReporter) error {
		report(0.5)
		close(done)
		return nil
	}), 0, 0)

	<-done
	waitFor(t, ctrl.IsFinished, "job never finished")
	assert.Equal(t, StateCompleted, ctrl.State())
	progress, ok := ctrl.Progress()
	require.True(t, ok)
	assert.InDelta(t, 0.5, progress, 0.001)
}

func TestPriorityOrdering(t *testing.T) {
	p := newTestPool(t, 1)

	// Block the single worker so submissions below queue up.
	release := make(chan struct{})
	blocked := make(chan struct{})
	p.AddJob(JobFunc(func(CheckIn, ProgressReporter) error {
		close(blocked)
		<-release
		return nil
	}), 0, 0)
	<-blocked

	var mu sync.Mutex
	var order []int
	jobAppending := func(n int) Job {
		return JobFunc(func(CheckIn, ProgressReporter) error {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return nil
		})
	}
	p.AddJob(jobAppending(1), 0, 1)
	p.AddJob(jobAppending(3), 0, 3)
	p.AddJob(jobAppending(2), 0, 2)

	close(release)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, "queued jobs never drained")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3, 2, 1}, order, "higher priority runs sooner")
}

func TestCooperativeCancellation(t *testing.T) {
	p := newTestPool(t, 1)

	started := make(chan struct{})
	ctrl := p.AddJob(JobFunc(func(checkIn CheckIn, report ProgressReporter) error {
		close(started)
		for {
			checkIn()
			time.Sleep(100 * time.Microsecond)
		}
	}), 0, 0)

	<-started
	ctrl.Cancel()
	waitFor(t, ctrl.IsFinished, "cancelled job never stopped")
	assert.Equal(t, StateCanceled, ctrl.State())
	// Cancellation is not a failure.
	assert.Empty(t, p.FailedJobs())
}

func TestCancelBeforeDequeue(t *testing.T) {
	p := newTestPool(t, 1)

	release := make(chan struct{})
	blocked := make(chan struct{})
	p.AddJob(JobFunc(func(CheckIn, ProgressReporter) error {
		close(blocked)
		<-release
		return nil
	}), 0, 0)
	<-blocked

	var ran atomic.Bool
	ctrl := p.AddJob(JobFunc(func(CheckIn, ProgressReporter) error {
		ran.Store(true)
		return nil
	}), 0, 0)
	ctrl.Cancel()
	close(release)

	waitFor(t, ctrl.IsFinished, "job never reached a terminal state")
	assert.Equal(t, StateCanceled, ctrl.State())
	assert.False(t, ran.Load(), "a job cancelled while queued must not run")
}

func TestFailedJobRecorded(t *testing.T) {
	p := newTestPool(t, 1)

	ctrl := p.AddJob(JobFunc(func(CheckIn, ProgressReporter) error {
		return errors.New("boom")
	}), 0, 0)

	waitFor(t, ctrl.IsFinished, "job never finished")
	assert.Equal(t, StateFailed, ctrl.State())
	failed := p.FailedJobs()
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Message)
}

func TestHiddenJobsNotReported(t *testing.T) {
	p := newTestPool(t, 1)

	release := make(chan struct{})
	blocked := make(chan struct{})
	p.AddJob(JobFunc(func(CheckIn, ProgressReporter) error {
		close(blocked)
		<-release
		return nil
	}), JobHidden, 0)
	<-blocked

	p.AddJob(JobFunc(func(CheckIn, ProgressReporter) error { return nil }),
		JobHidden, 0)
	assert.Zero(t, p.QueueSize())

	p.AddJob(JobFunc(func(CheckIn, ProgressReporter) error { return nil }), 0, 0)
	assert.Equal(t, 1, p.QueueSize())
	close(release)
}

func TestSkipQueueGrowsPool(t *testing.T) {
	p := newTestPool(t, 1)

	// Occupy the only worker.
	release := make(chan struct{})
	blocked := make(chan struct{})
	p.AddJob(JobFunc(func(CheckIn, ProgressReporter) error {
		close(blocked)
		<-release
		return nil
	}), 0, 0)
	<-blocked
	defer close(release)

	// A skip-queue job must still get picked up promptly.
	done := make(chan struct{})
	p.AddJob(JobFunc(func(CheckIn, ProgressReporter) error {
		close(done)
		return nil
	}), JobSkipQueue, 0)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("skip-queue job starved behind a busy worker")
	}
}

func TestVersionCounterAdvances(t *testing.T) {
	p := newTestPool(t, 1)
	before := p.Version()
	ctrl := p.AddJob(JobFunc(func(CheckIn, ProgressReporter) error { return nil }), 0, 0)
	waitFor(t, ctrl.IsFinished, "job never finished")
	assert.Greater(t, p.Version(), before)
}

func TestSystemPools(t *testing.T) {
	s, err := NewSystem(Config{CPUWorkers: 2, HTTPWorkers: 2,
		DiskReadWorkers: 1, DiskWriteWorkers: 1})
	require.NoError(t, err)

	done := make(chan struct{})
	s.CPU.AddJob(JobFunc(func(CheckIn, ProgressReporter) error {
		close(done)
		return nil
	}), 0, 0)
	<-done

	s.ShutDown()
}
