// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	kind := New("quota exceeded")
	err := Wrapf(kind, "value %d exceeds limit %d", 12, 10)
	require.True(t, Is(err, kind))
	require.Equal(t, "quota exceeded: value 12 exceeds limit 10", err.Error())
	require.Equal(t, "value 12 exceeds limit 10", Unwrap(err).Error())

	require.NoError(t, Wrapf(nil, "nothing"))
	require.NoError(t, Wrap(nil, kind))
}

func TestWithStack(t *testing.T) {
	require.NoError(t, WithStack(nil))

	inner := New("boom")
	err := WithStack(inner)
	require.True(t, Is(err, inner))
	require.Equal(t, "boom", fmt.Sprintf("%s", err))
	require.Contains(t, fmt.Sprintf("%v", err), "errors.TestWithStack")
}
