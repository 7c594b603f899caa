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

	"trpc.group/trpc-go/cradle-go/background"
	"trpc.group/trpc-go/cradle-go/httpx"
)

// HTTP builds a request that resolves inner to an httpx.Request and
// performs it on the HTTP pool. Completion yields the httpx.Response;
// transport failures and non-2xx statuses complete as failures carrying
// the attempted request.
func HTTP(inner Request) Request {
	return &httpRequest{inner: inner}
}

type httpRequest struct {
	inner Request
}

// Dispatch implements Request.
func (r *httpRequest) Dispatch(ctx Context) {
	Post(ctx.System, r.inner,
		func(v any) {
			webReq, ok := v.(httpx.Request)
			if !ok {
				ctx.ReportFailure(fmt.Errorf(
					"http request node produced %T, want httpx.Request", v))
				return
			}
			ctx.System.pools.HTTP.AddJob(background.JobFunc(
				func(checkIn background.CheckIn, report background.ProgressReporter) error {
					response, err := ctx.System.connection.PerformRequest(
						checkIn, report, webReq)
					if err != nil {
						ctx.ReportFailure(err)
						return err
					}
					ctx.ReportValue(response)
					return nil
				}), 0, 0)
		},
		ctx.onFailure)
}
