//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package background implements the job execution layer: pools of worker
// goroutines draining priority queues of jobs, with cooperative
// cancellation and atomic progress reporting.
package background

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// State describes where a job is in its lifecycle.
type State int32

// Job states.
const (
	StateQueued State = iota
	StateRunning
	StateCompleted
	StateCanceled
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCanceled:
		return "canceled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Flags modify how a job is queued.
type Flags uint32

const (
	// JobHidden excludes the job from the queue's reported size and info
	// map. Internal housekeeping jobs use it.
	JobHidden Flags = 1 << iota
	// JobSkipQueue asks the pool to make sure an idle worker exists to
	// pick the job up, growing the pool if needed.
	JobSkipQueue
)

// CheckIn is handed to an executing job. The job must call it
// periodically: if the job has been cancelled, the call panics with an
// internal marker that the worker loop absorbs, unwinding the job body
// silently. Jobs that never check in run to completion even after
// cancellation.
type CheckIn func()

// ProgressReporter is handed to an executing job to report progress in
// [0, 1].
type ProgressReporter func(progress float64)

// Job is a unit of background work.
type Job interface {
	Execute(checkIn CheckIn, report ProgressReporter) error
}

// JobFunc adapts a function to the Job interface.
type JobFunc func(checkIn CheckIn, report ProgressReporter) error

// Execute implements Job.
func (f JobFunc) Execute(checkIn CheckIn, report ProgressReporter) error {
	return f(checkIn, report)
}

// Info describes a job for observers.
type Info struct {
	ID          uuid.UUID
	Description string
}

// Describer lets a job supply its own Info description.
type Describer interface {
	Description() string
}

// canceledMarker is what CheckIn panics with; the worker loop recovers
// it and marks the job canceled. It never escapes the pool.
type canceledMarker struct{}

// progressNone / progressMax: progress is stored as an integer in
// [0, 1000] so it can be read atomically; -1 means not reported.
const (
	progressNone = -1
	progressMax  = 1000
)

// jobData is the pool's per-job bookkeeping.
type jobData struct {
	id       uuid.UUID
	job      Job
	flags    Flags
	priority int

	state    atomic.Int32
	cancel   atomic.Bool
	progress atomic.Int32

	// seq breaks priority ties by submission order in the heap. The
	// queue discipline does not guarantee FIFO among equal priorities,
	// but the heap needs a total order.
	seq uint64
}

func newJobData(job Job, flags Flags, priority int) *jobData {
	d := &jobData{
		id:       uuid.New(),
		job:      job,
		flags:    flags,
		priority: priority,
	}
	d.progress.Store(progressNone)
	return d
}

func (d *jobData) checkIn() {
	if d.cancel.Load() {
		panic(canceledMarker{})
	}
}

func (d *jobData) reportProgress(progress float64) {
	switch {
	case progress < 0:
		d.progress.Store(0)
	case progress > 1:
		d.progress.Store(progressMax)
	default:
		d.progress.Store(int32(progress * progressMax))
	}
}

// Controller monitors and cancels one job. It does not own the job and
// may be discarded freely; a job that is no longer wanted should be
// cancelled first.
type Controller struct {
	data *jobData
}

// ID returns the job's id.
func (c *Controller) ID() uuid.UUID { return c.data.id }

// State polls the job's state.
func (c *Controller) State() State { return State(c.data.state.Load()) }

// Progress polls the job's progress; ok is false when none has been
// reported.
func (c *Controller) Progress() (float64, bool) {
	encoded := c.data.progress.Load()
	if encoded < 0 {
		return 0, false
	}
	return float64(encoded) / progressMax, true
}

// IsFinished reports whether the job has reached a terminal state.
func (c *Controller) IsFinished() bool {
	switch c.State() {
	case StateCompleted, StateCanceled, StateFailed:
		return true
	default:
		return false
	}
}

// Cancel asks the job to stop. A queued job is dropped when dequeued; a
// running job stops at its next check-in.
func (c *Controller) Cancel() {
	c.data.cancel.Store(true)
}
