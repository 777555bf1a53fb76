// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
)

var _ error = &WError{}

// WError pairs a cause error (the error kind, matched by Is) with an
// underlying error carrying the detail message (returned by Unwrap).
type WError struct {
	uerr error
	cerr error
}

func (e *WError) Format(st fmt.State, verb rune) {
	switch verb {
	case 'v':
		if st.Flag('+') {
			fmt.Fprintf(st, "%+v: %+v", e.cerr, e.uerr)
		} else {
			fmt.Fprintf(st, "%v: %v", e.cerr, e.uerr)
		}
	case 's':
		fmt.Fprintf(st, "%s: %s", e.cerr, e.uerr)
	}
}

func (e *WError) Error() string {
	return fmt.Sprintf("%s", e)
}

func (e *WError) Is(s error) bool {
	return errors.Is(e.cerr, s)
}

func (e *WError) Unwrap() error {
	return e.uerr
}

// Wrap attaches the kind cerr to uerr so that `Is(err, cerr)` holds while
// `Unwrap(err) == uerr`. Wrapping a nil cause yields nil.
func Wrap(cerr error, uerr error) error {
	if cerr == nil {
		return nil
	}
	return &WError{
		uerr: uerr,
		cerr: cerr,
	}
}

// Wrapf is like Wrap, with the underlying error built from `fmt.Errorf()`.
func Wrapf(cerr error, msg string, args ...interface{}) error {
	if cerr == nil {
		return nil
	}
	return &WError{
		uerr: fmt.Errorf(msg, args...),
		cerr: cerr,
	}
}
