//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package httpx models the outbound HTTP traffic the computation core
// consumes: plain request/response values, a synchronous Connection
// interface with cooperative cancellation, and a default implementation
// over net/http with verified TLS and persistent connections.
package httpx

import (
	"fmt"

	"trpc.group/trpc-go/cradle-go/dynamic"
	"trpc.group/trpc-go/cradle-go/encoding"
)

// Method is an HTTP request method.
type Method string

// Supported methods.
const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
	MethodHead   Method = "HEAD"
)

// Headers maps HTTP header field names to values.
type Headers map[string]string

// Request is an outbound HTTP request.
type Request struct {
	Method  Method
	URL     string
	Headers Headers
	Body    dynamic.Blob
	// Socket, when non-empty, routes the request over a Unix-domain
	// socket instead of TCP.
	Socket string
}

// Response is the result of performing a Request.
type Response struct {
	StatusCode int
	Headers    Headers
	Body       dynamic.Blob
}

// NewGetRequest constructs a GET request.
func NewGetRequest(url string, headers Headers) Request {
	return Request{Method: MethodGet, URL: url, Headers: headers}
}

// NewRequest constructs a general request.
func NewRequest(method Method, url string, headers Headers, body dynamic.Blob) Request {
	return Request{Method: method, URL: url, Headers: headers, Body: body}
}

// Redact returns a copy of the request safe for logging: credential
// header values are replaced.
func (r Request) Redact() Request {
	redacted := r
	redacted.Headers = make(Headers, len(r.Headers))
	for name, value := range r.Headers {
		switch name {
		case "Authorization", "Cookie":
			redacted.Headers[name] = "[redacted]"
		default:
			redacted.Headers[name] = value
		}
	}
	return redacted
}

// ParseJSONResponse parses a response body as JSON into a dynamic value.
func ParseJSONResponse(response Response) (dynamic.Value, error) {
	return encoding.DecodeJSON(response.Body.Bytes())
}

// ParseMsgpackResponse parses a response body as MessagePack into a
// dynamic value.
func ParseMsgpackResponse(response Response) (dynamic.Value, error) {
	return encoding.DecodeMsgpack(response.Body.Bytes())
}

// Make200Response builds a successful response with the given body,
// mostly for tests and stub connections.
func Make200Response(body string) Response {
	return Response{
		StatusCode: 200,
		Headers:    Headers{},
		Body:       dynamic.MakeBlob([]byte(body)),
	}
}

// RequestError reports a transport-level failure: the request could not
// be performed at all (connection refused, DNS failure, TLS error).
type RequestError struct {
	Request Request
	Msg     string
	Err     error
}

// Error implements error.
func (e *RequestError) Error() string {
	return fmt.Sprintf("HTTP %s %s: %s", e.Request.Method, e.Request.URL, e.Msg)
}

// Unwrap exposes the underlying error.
func (e *RequestError) Unwrap() error { return e.Err }

// StatusError reports a response with a status code outside the 2xx
// range. The full response is retained.
type StatusError struct {
	Request  Request
	Response Response
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %s %s: bad status %d",
		e.Request.Method, e.Request.URL, e.Response.StatusCode)
}

// Transient reports whether the status-code family suggests the request
// is worth retrying. The core itself never retries; this classification
// is for callers that do.
func (e *StatusError) Transient() bool {
	switch {
	case e.Response.StatusCode >= 500:
		return true
	case e.Response.StatusCode == 408 || e.Response.StatusCode == 429:
		return true
	default:
		return false
	}
}
