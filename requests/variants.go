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
	"sync"

	"trpc.group/trpc-go/cradle-go/background"
)

// Function is the reducer applied by Apply and Async requests once all
// argument values are in.
type Function func(args []any) (any, error)

// valueRequest completes synchronously with a literal.
type valueRequest struct {
	value any
}

// Value builds a request that completes immediately with value.
func Value(value any) Request {
	return &valueRequest{value: value}
}

// Dispatch implements Request.
func (r *valueRequest) Dispatch(ctx Context) {
	ctx.ReportValue(r.value)
}

// invokingRequest is the shared machinery of Apply and Async: argument
// requests resolve in parallel into slots; a ready counter triggers the
// reducer on the transition to fully-ready. All state lives on the heap
// and is kept alive by the per-slot callbacks; completions arriving in
// any order are fine, and the reducer fires exactly once.
type invokingRequest struct {
	function Function
	args     []Request
	execute  func(ctx Context, function Function, values []any)

	mu     sync.Mutex
	values []any
	ready  int
	failed bool
}

// Dispatch implements Request.
func (r *invokingRequest) Dispatch(ctx Context) {
	if len(r.args) == 0 {
		r.execute(ctx, r.function, nil)
		return
	}
	r.values = make([]any, len(r.args))
	for i, arg := range r.args {
		slot := i
		Post(ctx.System, arg,
			func(v any) {
				if r.fillSlot(slot, v) {
					r.execute(ctx, r.function, r.values)
				}
			},
			func(err error) {
				r.mu.Lock()
				alreadyFailed := r.failed
				r.failed = true
				r.mu.Unlock()
				if !alreadyFailed {
					ctx.ReportFailure(err)
				}
			})
	}
}

// fillSlot stores an argument value and reports whether this completion
// was the full-ready transition.
func (r *invokingRequest) fillSlot(slot int, v any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed {
		return false
	}
	r.values[slot] = v
	r.ready++
	return r.ready == len(r.args)
}

// Apply builds a request that resolves args in parallel and, when all
// are ready, invokes function inline on the thread that delivered the
// last argument.
func Apply(function Function, args ...Request) Request {
	return &invokingRequest{
		function: function,
		args:     args,
		execute: func(ctx Context, function Function, values []any) {
			result, err := function(values)
			if err != nil {
				ctx.ReportFailure(err)
				return
			}
			ctx.ReportValue(result)
		},
	}
}

// Async builds a request like Apply, except that the function runs as a
// job on the CPU pool.
func Async(function Function, args ...Request) Request {
	return &invokingRequest{
		function: function,
		args:     args,
		execute: func(ctx Context, function Function, values []any) {
			ctx.System.pools.CPU.AddJob(background.JobFunc(
				func(checkIn background.CheckIn, report background.ProgressReporter) error {
					result, err := function(values)
					if err != nil {
						ctx.ReportFailure(err)
						return err
					}
					ctx.ReportValue(result)
					return nil
				}), 0, 0)
		},
	}
}

// Meta builds a request that resolves inner, expects the result to be a
// Request, and forwards that request's own result.
func Meta(inner Request) Request {
	return &metaRequest{inner: inner}
}

type metaRequest struct {
	inner Request
}

// Dispatch implements Request.
func (r *metaRequest) Dispatch(ctx Context) {
	Post(ctx.System, r.inner,
		func(generated any) {
			next, ok := generated.(Request)
			if !ok {
				ctx.ReportFailure(fmt.Errorf(
					"meta request produced %T, want a Request", generated))
				return
			}
			// Continue with the generated request on the same context.
			next.Dispatch(ctx)
		},
		ctx.onFailure)
}
