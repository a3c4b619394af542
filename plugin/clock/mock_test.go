package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClock_AdvanceFiresDueWaiters(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	clk := NewMockClock(start)

	short := clk.After(5 * time.Second)
	long := clk.After(time.Minute)
	require.Equal(t, 2, clk.Waiters())

	clk.Advance(10 * time.Second)

	select {
	case fired := <-short:
		assert.Equal(t, start.Add(10*time.Second), fired)
	default:
		t.Fatal("expected short waiter to fire")
	}
	select {
	case <-long:
		t.Fatal("long waiter fired early")
	default:
	}
	assert.Equal(t, 1, clk.Waiters())
	assert.Equal(t, 10*time.Second, clk.Since(start))
}

func TestMockClock_BlockUntil(t *testing.T) {
	clk := NewMockClock(time.Unix(0, 0))
	done := make(chan struct{})

	go func() {
		<-clk.After(time.Second)
		close(done)
	}()

	clk.BlockUntil(1)
	clk.Advance(time.Second)
	<-done
}

func TestMockClock_NonPositiveDurationFiresImmediately(t *testing.T) {
	clk := NewMockClock(time.Unix(0, 0))
	select {
	case <-clk.After(0):
	default:
		t.Fatal("expected immediate fire")
	}
}
