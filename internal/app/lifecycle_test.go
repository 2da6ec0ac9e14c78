package app

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/pkg/log"
)

// stateLog records every change a Lifecycle reports.
type stateLog struct {
	mu      sync.Mutex
	changes []string
}

func (s *stateLog) OnStateChange(previous, current State, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, fmt.Sprintf("%s->%s (%s)", previous, current, reason))
}

func (s *stateLog) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.changes...)
}

type step struct {
	to     State
	reason string
}

func walk(t *testing.T, l *Lifecycle, steps ...step) {
	t.Helper()
	for _, s := range steps {
		if err := l.TransitionTo(s.to, s.reason); err != nil {
			t.Fatalf("TransitionTo(%s) from %s: %v", s.to, l.State(), err)
		}
	}
}

func TestLifecycle_LaunchThenShutdown(t *testing.T) {
	states := &stateLog{}
	l := NewLifecycle(log.NewNoopLogger(), states)
	if l.State() != StateStopped {
		t.Fatalf("new lifecycle in %s, want Stopped", l.State())
	}

	walk(t, l,
		step{StateStarting, "application launch"},
		step{StateRunning, "launch sequence issued"},
		step{StateStopping, "Shutdown() called"},
		step{StateStopped, "graceful shutdown"},
	)

	want := []string{
		"Stopped->Starting (application launch)",
		"Starting->Running (launch sequence issued)",
		"Running->Stopping (Shutdown() called)",
		"Stopping->Stopped (graceful shutdown)",
	}
	if got := states.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("changes = %v, want %v", got, want)
	}
}

func TestLifecycle_PluginFailureThenRelaunch(t *testing.T) {
	l := NewLifecycle(nil, nil)
	walk(t, l,
		step{StateStarting, "application launch"},
		step{StateCrashed, "plugin init failed: watcher"},
	)
	if !l.CanStart() || l.CanStop() {
		t.Errorf("crashed: CanStart=%t CanStop=%t, want true false", l.CanStart(), l.CanStop())
	}

	// Shutdown has nothing to stop, but the next launch may try again.
	if err := l.TransitionTo(StateStopping, "Shutdown() called"); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("Stopping from Crashed = %v, want ErrNotRunning", err)
	}
	walk(t, l, step{StateStarting, "application launch"}, step{StateRunning, "launch sequence issued"})
}

func TestLifecycle_ShutdownDuringLaunch(t *testing.T) {
	l := NewLifecycle(nil, nil)
	walk(t, l, step{StateStarting, "application launch"})
	if !l.CanStop() {
		t.Fatal("CanStop() = false while starting")
	}
	walk(t, l, step{StateStopping, "Shutdown() called"}, step{StateStopped, "graceful shutdown"})
}

func TestLifecycle_ShutdownTimeoutCrashes(t *testing.T) {
	l := NewLifecycle(nil, nil)
	walk(t, l,
		step{StateStarting, "application launch"},
		step{StateRunning, "launch sequence issued"},
		step{StateStopping, "Shutdown() called"},
		step{StateCrashed, "shutdown timeout"},
	)
	if l.State() != StateCrashed {
		t.Errorf("state = %s, want Crashed", l.State())
	}
}

func TestLifecycle_RejectedMoves(t *testing.T) {
	tests := []struct {
		from, to State
		want     error
	}{
		{StateStopped, StateRunning, domain.ErrNotRunning},
		{StateStopped, StateStopping, domain.ErrNotRunning},
		{StateCrashed, StateStopped, domain.ErrNotRunning},
		{StateStarting, StateStarting, domain.ErrAlreadyRunning},
		{StateRunning, StateStarting, domain.ErrAlreadyRunning},
		{StateRunning, StateStopped, domain.ErrAlreadyRunning},
		{StateStopping, StateStarting, domain.ErrAlreadyRunning},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			states := &stateLog{}
			l := NewLifecycle(nil, states)
			l.state = tt.from

			if err := l.TransitionTo(tt.to, "rejected"); !errors.Is(err, tt.want) {
				t.Errorf("TransitionTo() = %v, want %v", err, tt.want)
			}
			if l.State() != tt.from {
				t.Errorf("state = %s after rejected move, want %s", l.State(), tt.from)
			}
			if got := states.list(); len(got) != 0 {
				t.Errorf("rejected move reported %v", got)
			}
		})
	}
}

func TestLifecycle_SingleLaunchWins(t *testing.T) {
	l := NewLifecycle(nil, nil)

	var (
		wg  sync.WaitGroup
		won = make(chan struct{}, 8)
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TransitionTo(StateStarting, "application launch") == nil {
				won <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(won)

	n := 0
	for range won {
		n++
	}
	if n != 1 {
		t.Errorf("%d concurrent launches succeeded, want 1", n)
	}
}

func TestState_String(t *testing.T) {
	if got := StateStopping.String(); got != "Stopping" {
		t.Errorf("StateStopping = %q", got)
	}
	if got := State(42).String(); got != "Unknown" {
		t.Errorf("State(42) = %q, want Unknown", got)
	}
	if got := State(-1).String(); got != "Unknown" {
		t.Errorf("State(-1) = %q, want Unknown", got)
	}
}
