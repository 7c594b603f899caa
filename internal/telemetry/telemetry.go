//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the shared identity and plumbing for the
// observability layer.
package telemetry

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Service identity reported with every span.
const (
	ServiceName      = "cradle"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go-cradle"
	InstrumentName   = "trpc.cradle.go"
)

// NewConn dials the OTLP collector endpoint ("host:port", no scheme).
func NewConn(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
