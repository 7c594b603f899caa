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
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/cradle-go/dynamic"
)

func noCheckIn()           {}
func noProgress(_ float64) {}

func TestPerformRequestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "navy", r.URL.Query().Get("color"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"args": {"color": "navy"}}`))
		}))
	defer server.Close()

	conn := NewConnection()
	resp, err := conn.PerformRequest(noCheckIn, noProgress,
		NewGetRequest(server.URL+"/get?color=navy", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	parsed, err := ParseJSONResponse(resp)
	require.NoError(t, err)
	m, err := parsed.AsMap()
	require.NoError(t, err)
	args, err := dynamic.GetField(m, "args")
	require.NoError(t, err)
	argsMap, err := args.AsMap()
	require.NoError(t, err)
	color, err := dynamic.GetField(argsMap, "color")
	require.NoError(t, err)
	assert.True(t, color.Equal(dynamic.NewString("navy")))
}

func TestPerformRequestBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
	defer server.Close()

	conn := NewConnection()
	request := NewGetRequest(server.URL+"/status/404", nil)
	_, err := conn.PerformRequest(noCheckIn, noProgress, request)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.Response.StatusCode)
	assert.Equal(t, request.URL, statusErr.Request.URL)
	assert.False(t, statusErr.Transient())
}

func TestPerformRequestTransportFailure(t *testing.T) {
	conn := NewConnection()
	request := NewGetRequest("http://127.0.0.1:1/unreachable", nil)
	_, err := conn.PerformRequest(noCheckIn, noProgress, request)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, request.URL, reqErr.Request.URL)
}

func TestPerformRequestPostBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			body := make([]byte, r.ContentLength)
			r.Body.Read(body)
			assert.Equal(t, "payload", string(body))
			w.WriteHeader(http.StatusOK)
		}))
	defer server.Close()

	conn := NewConnection()
	_, err := conn.PerformRequest(noCheckIn, noProgress, NewRequest(
		MethodPost, server.URL, Headers{"Content-Type": "text/plain"},
		dynamic.MakeBlob([]byte("payload"))))
	require.NoError(t, err)
}

func TestProgressReported(t *testing.T) {
	payload := make([]byte, 256*1024)
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			w.Write(payload)
		}))
	defer server.Close()

	var reports []float64
	conn := NewConnection()
	resp, err := conn.PerformRequest(noCheckIn,
		func(p float64) { reports = append(reports, p) },
		NewGetRequest(server.URL, nil))
	require.NoError(t, err)
	assert.Equal(t, len(payload), resp.Body.Size())
	require.NotEmpty(t, reports)
	assert.InDelta(t, 1.0, reports[len(reports)-1], 0.001)
}

func TestTransientClassification(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
	}{
		{404, false}, {400, false}, {500, true}, {503, true},
		{408, true}, {429, true},
	}
	for _, c := range cases {
		e := &StatusError{Response: Response{StatusCode: c.status}}
		assert.Equal(t, c.transient, e.Transient(), "status %d", c.status)
	}
}

func TestRedact(t *testing.T) {
	request := NewGetRequest("http://x", Headers{
		"Authorization": "Bearer secret",
		"Accept":        "application/json",
	})
	redacted := request.Redact()
	assert.Equal(t, "[redacted]", redacted.Headers["Authorization"])
	assert.Equal(t, "application/json", redacted.Headers["Accept"])
	// The original is untouched.
	assert.Equal(t, "Bearer secret", request.Headers["Authorization"])
}
