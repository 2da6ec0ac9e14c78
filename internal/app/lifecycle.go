package app

import (
	"slices"
	"sync"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/pkg/log"
)

// State is where a feedship instance is between launch and shutdown.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

var stateNames = [...]string{
	StateStopped:  "Stopped",
	StateStarting: "Starting",
	StateRunning:  "Running",
	StateStopping: "Stopping",
	StateCrashed:  "Crashed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// next lists the states reachable from each state. A launch may be
// interrupted by Shutdown, and a crashed instance may be launched again.
var allowedNext = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// idle reports whether nothing has been launched in state s.
func (s State) idle() bool {
	return s == StateStopped || s == StateCrashed
}

// StateListener is told about every accepted state change.
type StateListener interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle guards the state of a feedship instance.
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	logger   log.Logger
	listener StateListener
}

// NewLifecycle returns a lifecycle in StateStopped. listener may be nil.
func NewLifecycle(logger log.Logger, listener StateListener) *Lifecycle {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Lifecycle{logger: logger, listener: listener}
}

func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to state to. A move the state table does not allow
// leaves the state unchanged and fails with ErrNotRunning from an idle state
// or ErrAlreadyRunning otherwise.
func (l *Lifecycle) TransitionTo(to State, reason string) error {
	l.mu.Lock()
	from := l.state
	if !slices.Contains(allowedNext[from], to) {
		l.mu.Unlock()
		if from.idle() {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}
	l.state = to
	l.mu.Unlock()

	l.logger.Info("state transition",
		log.String("from", from.String()),
		log.String("to", to.String()),
		log.String("reason", reason),
	)
	if l.listener != nil {
		l.listener.OnStateChange(from, to, reason)
	}
	return nil
}

// CanStart reports whether a launch may begin.
func (l *Lifecycle) CanStart() bool {
	return l.State().idle()
}

// CanStop reports whether Shutdown has anything to stop.
func (l *Lifecycle) CanStop() bool {
	s := l.State()
	return s == StateStarting || s == StateRunning
}
