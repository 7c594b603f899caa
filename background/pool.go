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
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/cradle-go/log"
	"trpc.group/trpc-go/cradle-go/telemetry/trace"
)

// growthCapFor bounds how far a pool may grow beyond its initial size
// when JobSkipQueue submissions demand extra workers.
func growthCapFor(size int) int {
	return size*4 + 16
}

// Pool combines a priority queue of jobs with a set of workers executing
// them. Workers run as long-lived tasks on a capped ants goroutine pool,
// which also absorbs on-demand growth.
type Pool struct {
	name    string
	queue   *jobQueue
	workers *ants.Pool
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given number of initial workers.
func NewPool(name string, size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool %q needs a positive worker count", name)
	}
	workers, err := ants.NewPool(growthCapFor(size), ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("creating worker pool %q: %w", name, err)
	}
	p := &Pool{
		name:    name,
		queue:   newJobQueue(),
		workers: workers,
	}
	for i := 0; i < size; i++ {
		p.addWorker()
	}
	return p, nil
}

// addWorker spawns one more worker loop, subject to the ants cap.
func (p *Pool) addWorker() {
	p.wg.Add(1)
	if err := p.workers.Submit(p.workerLoop); err != nil {
		p.wg.Done()
		log.Debugf("pool %s: not growing: %v", p.name, err)
	}
}

// AddJob submits a job for execution. Higher priorities run sooner;
// negative priorities are fine and 0 is neutral. The returned Controller
// can be used to monitor and cancel the job; it may be discarded if not
// useful.
func (p *Pool) AddJob(job Job, flags Flags, priority int) *Controller {
	d := newJobData(job, flags, priority)
	q := p.queue

	grow := false
	q.mu.Lock()
	q.pushLocked(d)
	// If requested, ensure that there will be an idle worker to pick up
	// the new job.
	if flags&JobSkipQueue != 0 && q.idleWorkers < len(q.jobs) {
		grow = true
	}
	q.mu.Unlock()

	if grow {
		p.addWorker()
	}
	q.cond.Signal()

	return &Controller{data: d}
}

// workerLoop is the body of each worker.
func (p *Pool) workerLoop() {
	defer p.wg.Done()
	q := p.queue
	for {
		q.mu.Lock()
		q.version++
		q.idleWorkers++
		for !q.terminating && len(q.jobs) == 0 {
			q.cond.Wait()
		}
		if q.terminating {
			q.idleWorkers--
			q.mu.Unlock()
			return
		}
		d := q.popLocked()
		q.idleWorkers--
		// If it's already been instructed to cancel, cancel it.
		if d.cancel.Load() {
			d.state.Store(int32(StateCanceled))
			delete(q.jobInfo, d.id)
			q.mu.Unlock()
			continue
		}
		q.activeJobs[d.id] = d
		q.mu.Unlock()

		p.runJob(d)

		q.mu.Lock()
		delete(q.activeJobs, d.id)
		delete(q.jobInfo, d.id)
		q.version++
		q.mu.Unlock()
	}
}

// runJob executes one job, translating check-in panics into the
// canceled state and errors into the failed-job list.
func (p *Pool) runJob(d *jobData) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(canceledMarker); ok {
				d.state.Store(int32(StateCanceled))
				return
			}
			d.state.Store(int32(StateFailed))
			message := fmt.Sprintf("job panic: %v", r)
			log.Errorf("pool %s: %s", p.name, message)
			q := p.queue
			q.mu.Lock()
			q.recordFailureLocked(d, message, false)
			q.mu.Unlock()
		}
	}()

	_, span := trace.Tracer.Start(context.Background(), "background_job "+p.name)
	defer span.End()

	d.state.Store(int32(StateRunning))
	err := d.job.Execute(d.checkIn, d.reportProgress)
	if err != nil {
		d.state.Store(int32(StateFailed))
		q := p.queue
		q.mu.Lock()
		q.recordFailureLocked(d, err.Error(), false)
		q.mu.Unlock()
		return
	}
	d.state.Store(int32(StateCompleted))
}

// ShutDown marks the queue terminating, wakes all waiters and waits for
// the workers to exit. Pending jobs are dropped; running jobs are asked
// to cancel.
func (p *Pool) ShutDown() {
	q := p.queue
	q.mu.Lock()
	q.terminating = true
	q.version++
	for _, d := range q.jobs {
		d.cancel.Store(true)
	}
	for _, d := range q.activeJobs {
		d.cancel.Store(true)
	}
	q.jobs = nil
	q.reportedSize = 0
	q.mu.Unlock()

	q.cond.Broadcast()
	p.wg.Wait()
	p.workers.Release()
}

// IsIdle reports whether every worker is waiting and the queue is empty.
func (p *Pool) IsIdle() bool {
	q := p.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) == 0 && q.idleWorkers == p.workers.Running()
}

// Version returns the queue's change counter. Observers can compare
// versions to detect mutations without holding the lock for long.
func (p *Pool) Version() uint64 {
	q := p.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.version
}

// QueueSize returns the number of queued, non-hidden jobs.
func (p *Pool) QueueSize() int {
	q := p.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.reportedSize
}

// IdleWorkers returns the number of workers waiting for work.
func (p *Pool) IdleWorkers() int {
	q := p.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.idleWorkers
}

// FailedJobs returns a copy of the failed-job list.
func (p *Pool) FailedJobs() []FailedJob {
	q := p.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]FailedJob(nil), q.failedJobs...)
}

// JobInfos returns descriptions of the queued and running non-hidden
// jobs.
func (p *Pool) JobInfos() []Info {
	q := p.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	infos := make([]Info, 0, len(q.jobInfo))
	for _, info := range q.jobInfo {
		infos = append(infos, info)
	}
	return infos
}
