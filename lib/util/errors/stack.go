// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
	"io"
	"runtime"
)

const defaultStackDepth = 32

var (
	_ error         = &Error{}
	_ fmt.Formatter = &Error{}
)

// Error wraps an error with the stacktrace captured at wrapping time.
type Error struct {
	err   error
	trace []uintptr
}

// WithStack wraps an error with its stacktrace. Wrapping nil yields nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	e := &Error{
		err:   err,
		trace: make([]uintptr, defaultStackDepth),
	}
	e.trace = e.trace[:runtime.Callers(2, e.trace)]
	return e
}

// Format implements fmt.Formatter. %v and %+v append the stacktrace, %s does not.
func (e *Error) Format(st fmt.State, verb rune) {
	switch verb {
	case 'v':
		fmt.Fprintf(st, "%v", e.err)
		e.formatTrace(st)
	case 's':
		fmt.Fprintf(st, "%s", e.err)
	}
}

func (e *Error) formatTrace(st fmt.State) {
	frames := runtime.CallersFrames(e.trace)
	for {
		fr, more := frames.Next()
		fn := fr.Function
		if fn == "" {
			fn = "unknown"
		}
		io.WriteString(st, "\n")
		io.WriteString(st, fn)
		io.WriteString(st, "\n\t")
		fmt.Fprintf(st, "%s:%d", fr.File, fr.Line)
		if !more {
			break
		}
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s", e)
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.err, target)
}

func (e *Error) As(target interface{}) bool {
	return errors.As(e.err, target)
}

func (e *Error) Unwrap() error {
	return e.err
}
