//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package log

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)

	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{LevelInfo, zapcore.InfoLevel},
		{LevelWarn, zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{LevelFatal, zapcore.FatalLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, c := range cases {
		SetLevel(c.level)
		require.Equal(t, c.want, zapLevel.Level(), "level %q", c.level)
	}
}

type capturingLogger struct {
	Logger
	messages []string
}

func (c *capturingLogger) Infof(format string, args ...any) {
	c.messages = append(c.messages, format)
}

func TestDefaultIsReplaceable(t *testing.T) {
	saved := Default
	defer func() { Default = saved }()

	capture := &capturingLogger{Logger: saved}
	Default = capture
	Infof("hello %s", "world")
	require.Equal(t, []string{"hello %s"}, capture.messages)
}
