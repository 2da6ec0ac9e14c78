package app

import (
	"sync"
	"time"

	"github.com/bft-labs/feedship/internal/domain"
)

// tracker counts fire-and-forget goroutines so a host can drain them before
// exiting. Unlike sync.WaitGroup it allows new work to start while another
// goroutine is waiting.
type tracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

// Go runs fn in a new tracked goroutine.
func (t *tracker) Go(fn func()) {
	t.mu.Lock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
	t.mu.Unlock()

	go func() {
		defer t.done()
		fn()
	}()
}

func (t *tracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
}

// Active returns the number of running goroutines.
func (t *tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Wait blocks until no tracked goroutine is running.
// Returns ErrShutdownTimeout if the timeout expires first.
func (t *tracker) Wait(timeout time.Duration) error {
	t.mu.Lock()
	if t.n == 0 {
		t.mu.Unlock()
		return nil
	}
	idle := t.idle
	t.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-idle:
		return nil
	case <-timer.C:
		return domain.ErrShutdownTimeout
	}
}
