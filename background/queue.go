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
	"container/heap"
	"sync"

	"github.com/google/uuid"
)

// jobHeap is a max-heap of jobs by priority.
type jobHeap []*jobData

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(*jobData)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// FailedJob records a job that returned an error.
type FailedJob struct {
	Info Info
	// Transient indicates whether retrying the job is worthwhile.
	Transient bool
	Message   string
}

// jobQueue is the shared state between a pool's workers and submitters.
type jobQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	// version increments on every queue mutation so observers can
	// detect change cheaply.
	version uint64

	jobs    jobHeap
	nextSeq uint64

	// jobInfo describes queued and running non-hidden jobs.
	jobInfo map[uuid.UUID]Info
	// activeJobs tracks jobs currently executing on a worker.
	activeJobs map[uuid.UUID]*jobData
	// reportedSize is the number of queued jobs not marked hidden.
	reportedSize int

	failedJobs []FailedJob

	idleWorkers int
	terminating bool
}

func newJobQueue() *jobQueue {
	q := &jobQueue{
		jobInfo:    make(map[uuid.UUID]Info),
		activeJobs: make(map[uuid.UUID]*jobData),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func describeJob(d *jobData) Info {
	info := Info{ID: d.id}
	if describer, ok := d.job.(Describer); ok {
		info.Description = describer.Description()
	}
	return info
}

// pushLocked enqueues a job. Caller must hold q.mu.
func (q *jobQueue) pushLocked(d *jobData) {
	q.version++
	d.seq = q.nextSeq
	q.nextSeq++
	if d.flags&JobHidden == 0 {
		q.jobInfo[d.id] = describeJob(d)
		q.reportedSize++
	}
	heap.Push(&q.jobs, d)
}

// popLocked removes the top-priority job. Caller must hold q.mu and have
// checked that the heap is non-empty.
func (q *jobQueue) popLocked() *jobData {
	q.version++
	d := heap.Pop(&q.jobs).(*jobData)
	if d.flags&JobHidden == 0 {
		q.reportedSize--
	}
	return d
}

func (q *jobQueue) recordFailureLocked(d *jobData, message string, transient bool) {
	q.version++
	q.failedJobs = append(q.failedJobs, FailedJob{
		Info:      describeJob(d),
		Transient: transient,
		Message:   message,
	})
}
