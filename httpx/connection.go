//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package httpx

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"sync"

	"trpc.group/trpc-go/cradle-go/background"
	"trpc.group/trpc-go/cradle-go/dynamic"
)

// Connection performs HTTP requests synchronously. Since a request may
// take a long time, monitoring is provided: the connection calls checkIn
// at cancellation points and reports download progress when the server
// supplies a response size.
type Connection interface {
	PerformRequest(
		checkIn background.CheckIn,
		report background.ProgressReporter,
		request Request,
	) (Response, error)
}

// The transport is process-wide state whose lifetime dominates all
// connections; it pools persistent connections across requests. TLS peer
// verification stays on, using the platform certificate bundle.
var (
	transportOnce sync.Once
	sharedTCP     *http.Transport

	socketMu         sync.Mutex
	socketTransports map[string]*http.Transport
)

func tcpTransport() *http.Transport {
	transportOnce.Do(func() {
		sharedTCP = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			MaxIdleConnsPerHost: 8,
			ForceAttemptHTTP2:   true,
		}
	})
	return sharedTCP
}

func socketTransport(socket string) *http.Transport {
	socketMu.Lock()
	defer socketMu.Unlock()
	if socketTransports == nil {
		socketTransports = make(map[string]*http.Transport)
	}
	if t, ok := socketTransports[socket]; ok {
		return t
	}
	t := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		},
	}
	socketTransports[socket] = t
	return t
}

// NetConnection is the default Connection over net/http.
type NetConnection struct{}

// NewConnection returns a connection backed by the shared transport.
func NewConnection() *NetConnection {
	return &NetConnection{}
}

// progressReadChunk sizes the read loop; each chunk is a cancellation
// and progress point.
const progressReadChunk = 32 * 1024

// PerformRequest implements Connection.
func (c *NetConnection) PerformRequest(
	checkIn background.CheckIn,
	report background.ProgressReporter,
	request Request,
) (Response, error) {
	checkIn()

	httpReq, err := http.NewRequest(
		string(request.Method), request.URL,
		bytes.NewReader(request.Body.Bytes()))
	if err != nil {
		return Response{}, &RequestError{
			Request: request.Redact(), Msg: "invalid request", Err: err}
	}
	for name, value := range request.Headers {
		httpReq.Header.Set(name, value)
	}

	client := http.Client{Transport: tcpTransport()}
	if request.Socket != "" {
		client.Transport = socketTransport(request.Socket)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return Response{}, &RequestError{
			Request: request.Redact(), Msg: "transport failure", Err: err}
	}
	defer httpResp.Body.Close()

	checkIn()

	body, err := readBodyWithProgress(
		checkIn, report, httpResp.Body, httpResp.ContentLength)
	if err != nil {
		return Response{}, &RequestError{
			Request: request.Redact(), Msg: "reading response body", Err: err}
	}

	response := Response{
		StatusCode: httpResp.StatusCode,
		Headers:    make(Headers, len(httpResp.Header)),
		Body:       dynamic.MakeBlob(body),
	}
	for name := range httpResp.Header {
		response.Headers[name] = httpResp.Header.Get(name)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return Response{}, &StatusError{
			Request: request.Redact(), Response: response}
	}
	return response, nil
}

// readBodyWithProgress drains the body in chunks, checking in between
// chunks. Accurate progress relies on the server sending a length.
func readBodyWithProgress(
	checkIn background.CheckIn,
	report background.ProgressReporter,
	body io.Reader,
	contentLength int64,
) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, progressReadChunk)
	for {
		n, err := body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			checkIn()
			if contentLength > 0 {
				report(float64(buf.Len()) / float64(contentLength))
			}
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
