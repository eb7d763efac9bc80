package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// SignalHandler turns SIGINT/SIGTERM into a session cancel or a server
// shutdown. Callbacks run once, in registration order.
type SignalHandler struct {
	signals    chan os.Signal
	shutdown   chan struct{}
	stopCh     chan struct{} // closed by Stop to signal goroutine to exit
	done       chan struct{} // closed when goroutine exits
	stopOnce   sync.Once
	cancel     context.CancelFunc
	logger     *zap.Logger
	onShutdown []func()
	mu         sync.Mutex
}

// NewSignalHandler creates a signal handler with the given context cancel
func NewSignalHandler(cancel context.CancelFunc, logger *zap.Logger) *SignalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalHandler{
		signals:    make(chan os.Signal, 1),
		shutdown:   make(chan struct{}),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
		cancel:     cancel,
		logger:     logger,
		onShutdown: make([]func(), 0),
	}
}

// Start begins listening for signals
func (h *SignalHandler) Start() {
	h.StartWithNotify(true)
}

// StartWithNotify begins listening for signals, optionally registering with OS signal handling.
// Pass false for notify in unit tests to avoid global signal state interactions.
func (h *SignalHandler) StartWithNotify(notify bool) {
	if notify {
		signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM)
	}

	started := make(chan struct{})
	go func() {
		defer close(h.done)
		close(started)

		select {
		case sig := <-h.signals:
			h.logger.Info("received signal", zap.String("signal", sig.String()))

			if h.cancel != nil {
				h.cancel()
			}

			h.mu.Lock()
			callbacks := make([]func(), len(h.onShutdown))
			copy(callbacks, h.onShutdown)
			h.mu.Unlock()

			for _, fn := range callbacks {
				fn()
			}

			close(h.shutdown)
		case <-h.stopCh:
			return
		}
	}()

	<-started
}

// OnShutdown registers a callback to run on shutdown
func (h *SignalHandler) OnShutdown(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onShutdown = append(h.onShutdown, fn)
}

// Done is closed once a signal has been handled
func (h *SignalHandler) Done() <-chan struct{} {
	return h.shutdown
}

// Wait blocks until shutdown is triggered
func (h *SignalHandler) Wait() {
	<-h.shutdown
}

// Stop stops the signal handler and cleans up
func (h *SignalHandler) Stop() {
	signal.Stop(h.signals)
	h.stopOnce.Do(func() {
		close(h.stopCh)
	})
	// A handler mid-callback may take a moment; do not block on it.
	select {
	case <-h.done:
	case <-time.After(100 * time.Millisecond):
	}
}
