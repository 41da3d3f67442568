package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUpToLimitPerWindow(t *testing.T) {
	now := time.Now()
	l := newRateLimiter(3, time.Second)
	l.nowFn = func() time.Time { return now }

	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.True(t, l.Allow())
	assert.False(t, l.Allow(), "4th dispatch in the same window must be refused")
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	now := time.Now()
	l := newRateLimiter(1, time.Second)
	l.nowFn = func() time.Time { return now }

	require.True(t, l.Allow())
	require.False(t, l.Allow())

	now = now.Add(2 * time.Second)
	assert.True(t, l.Allow(), "dispatch must be allowed again once the window rolls over")
}

func TestRateLimiterDrainsWaitingFIFO(t *testing.T) {
	l := newRateLimiter(1, 10*time.Millisecond)
	require.True(t, l.Allow())

	var order []int
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		i := i
		l.NotifyWhenAvailable(func() {
			order = append(order, i)
			done <- struct{}{}
		})
	}

	for i := 0; i < 3; i++ {
		<-done
	}
	assert.Equal(t, []int{0, 1, 2}, order)
}
