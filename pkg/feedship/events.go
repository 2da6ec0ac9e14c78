package feedship

import (
	"time"

	"github.com/bft-labs/feedship/internal/app"
	"github.com/bft-labs/feedship/internal/domain"
)

// StateChangeEvent is emitted when the instance changes lifecycle state.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// StepEvent is emitted after each synchronous launch step.
type StepEvent struct {
	// Step is one of read_settings, apply_endpoint, route_initial,
	// clear_credentials, finish_first_launch or session_check.
	Step  string
	Error error
}

// TokenRefreshEvent is emitted when a background token refresh completes.
type TokenRefreshEvent struct {
	Error    error
	Duration time.Duration
}

// FeedIDEvent is emitted when a feed id resolution completes.
type FeedIDEvent struct {
	Policy   string
	FeedID   string
	Error    error
	Duration time.Duration
}

// UploadEvent is emitted once per category upload.
type UploadEvent struct {
	Category string
	FeedID   string
	Items    int
	Error    error
	Duration time.Duration
}

// EventHandler receives notifications about launch and sync progress.
// Methods are called from background goroutines and must return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnStep(StepEvent)
	OnTokenRefresh(TokenRefreshEvent)
	OnFeedIDResolved(FeedIDEvent)
	OnUpload(UploadEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)   {}
func (BaseEventHandler) OnStep(StepEvent)                 {}
func (BaseEventHandler) OnTokenRefresh(TokenRefreshEvent) {}
func (BaseEventHandler) OnFeedIDResolved(FeedIDEvent)     {}
func (BaseEventHandler) OnUpload(UploadEvent)             {}

// eventEmitterWrapper adapts EventHandler to the internal observer interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnStep(step app.Step, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnStep(StepEvent{Step: string(step), Error: err})
}

func (e *eventEmitterWrapper) OnTokenRefresh(err error, d time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnTokenRefresh(TokenRefreshEvent{Error: err, Duration: d})
}

func (e *eventEmitterWrapper) OnFeedIDResolved(policy domain.ResolutionPolicy, id domain.FeedID, err error, d time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnFeedIDResolved(FeedIDEvent{
		Policy:   policy.String(),
		FeedID:   id.String(),
		Error:    err,
		Duration: d,
	})
}

func (e *eventEmitterWrapper) OnUpload(o domain.UploadOutcome, d time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnUpload(UploadEvent{
		Category: string(o.Category),
		FeedID:   o.FeedID.String(),
		Items:    o.Items,
		Error:    o.Err,
		Duration: d,
	})
}
