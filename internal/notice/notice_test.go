// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notice

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "success", LevelSuccess.String())
	assert.Equal(t, "error", LevelError.String())
}

func TestBoard_LatestAndDrain(t *testing.T) {
	b := NewBoard(0)

	_, ok := b.Latest()
	assert.False(t, ok)
	assert.Nil(t, b.Drain())

	b.Notify(Success("Welcome back, Bob!"))
	b.Notify(Error("Failed to check user. Please try again."))

	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, LevelError, latest.Level)

	drained := b.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "Welcome back, Bob!", drained[0].Text)
	assert.Nil(t, b.Drain(), "second drain should be empty")

	b.Notify(Info("hello"))
	drained = b.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, "hello", drained[0].Text)
}

func TestBoard_Bounded(t *testing.T) {
	b := NewBoard(3)
	for i := 0; i < 5; i++ {
		b.Notify(Info(fmt.Sprintf("n%d", i)))
	}
	assert.Equal(t, 3, b.Len())

	all := b.All()
	assert.Equal(t, "n2", all[0].Text)
	assert.Equal(t, "n4", all[2].Text)
	assert.Len(t, b.Drain(), 3)
}

func TestBoard_FillsTimestamp(t *testing.T) {
	b := NewBoard(1)
	b.Notify(Notice{Text: "x"})
	n, _ := b.Latest()
	assert.False(t, n.At.IsZero())
}

func TestNotice_Expired(t *testing.T) {
	n := Info("x")
	assert.False(t, n.Expired(n.At.Add(time.Second), 5*time.Second))
	assert.True(t, n.Expired(n.At.Add(6*time.Second), 5*time.Second))
}

func TestNotifierFunc(t *testing.T) {
	var got []string
	var n Notifier = NotifierFunc(func(x Notice) { got = append(got, x.Text) })
	n.Notify(Info("a"))
	Discard.Notify(Info("dropped"))
	assert.Equal(t, []string{"a"}, got)
}
