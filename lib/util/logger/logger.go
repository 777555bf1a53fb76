// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// testLogBuffer mirrors everything the gate logs into both the test output and
// an in-memory buffer, so tests can assert on what was logged.
type testLogBuffer struct {
	testing.TB
	sync.Mutex
	buf bytes.Buffer
}

func (t *testLogBuffer) Write(b []byte) (int, error) {
	t.Lock()
	defer t.Unlock()
	t.Logf("%s", b)
	return t.buf.Write(b)
}

func (t *testLogBuffer) String() string {
	t.Lock()
	defer t.Unlock()
	return t.buf.String()
}

// CreateLoggerForTest returns a logger named after the test and a Stringer
// holding everything it has written so far.
func CreateLoggerForTest(tb testing.TB) (*zap.Logger, fmt.Stringer) {
	log := &testLogBuffer{TB: tb}
	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(log),
		zap.InfoLevel,
	)).Named(tb.Name()), log
}
