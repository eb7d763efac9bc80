package cli

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitShutdown(t *testing.T, h *SignalHandler) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("shutdown did not complete in time")
	}
}

func TestSignalHandler_CancelsContextAndRunsCallbacks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := NewSignalHandler(cancel, nil)

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		handler.OnShutdown(func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
		})
	}

	handler.StartWithNotify(false)
	defer handler.Stop()

	handler.signals <- syscall.SIGINT
	waitShutdown(t, handler)

	require.ErrorIs(t, ctx.Err(), context.Canceled)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestSignalHandler_WaitBlocksUntilSignal(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := NewSignalHandler(cancel, nil)
	handler.StartWithNotify(false)
	defer handler.Stop()

	released := make(chan struct{})
	go func() {
		handler.Wait()
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("Wait returned before a signal")
	case <-time.After(50 * time.Millisecond):
	}

	handler.signals <- syscall.SIGTERM

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after shutdown")
	}
}

func TestSignalHandler_StopWithoutSignal(t *testing.T) {
	called := false
	handler := NewSignalHandler(nil, nil)
	handler.OnShutdown(func() { called = true })
	handler.StartWithNotify(false)

	handler.Stop()
	handler.Stop()

	assert.False(t, called)
	select {
	case <-handler.Done():
		t.Fatal("shutdown should not be signalled")
	default:
	}
}
