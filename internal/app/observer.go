package app

import (
	"time"

	"github.com/bft-labs/feedship/internal/domain"
)

// Step names a synchronous step of the launch sequence.
type Step string

const (
	StepReadSettings      Step = "read_settings"
	StepApplyEndpoint     Step = "apply_endpoint"
	StepRouteInitial      Step = "route_initial"
	StepClearCredentials  Step = "clear_credentials"
	StepFinishFirstLaunch Step = "finish_first_launch"
	StepSessionCheck      Step = "session_check"
)

// Observer is notified of launch progress. Calls arrive from whichever
// goroutine produced the result, so implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	// OnStep is called after a synchronous step. err is nil on success.
	OnStep(step Step, err error)

	// OnTokenRefresh is called when a token refresh completes.
	OnTokenRefresh(err error, duration time.Duration)

	// OnFeedIDResolved is called when a feed id resolution completes.
	OnFeedIDResolved(policy domain.ResolutionPolicy, id domain.FeedID, err error, duration time.Duration)

	// OnUpload is called once per category upload.
	OnUpload(outcome domain.UploadOutcome, duration time.Duration)
}

// NoopObserver ignores every notification.
type NoopObserver struct{}

func (NoopObserver) OnStep(Step, error) {}

func (NoopObserver) OnTokenRefresh(error, time.Duration) {}

func (NoopObserver) OnFeedIDResolved(domain.ResolutionPolicy, domain.FeedID, error, time.Duration) {}

func (NoopObserver) OnUpload(domain.UploadOutcome, time.Duration) {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (os Observers) OnStep(step Step, err error) {
	for _, o := range os {
		o.OnStep(step, err)
	}
}

func (os Observers) OnTokenRefresh(err error, d time.Duration) {
	for _, o := range os {
		o.OnTokenRefresh(err, d)
	}
}

func (os Observers) OnFeedIDResolved(policy domain.ResolutionPolicy, id domain.FeedID, err error, d time.Duration) {
	for _, o := range os {
		o.OnFeedIDResolved(policy, id, err, d)
	}
}

func (os Observers) OnUpload(outcome domain.UploadOutcome, d time.Duration) {
	for _, o := range os {
		o.OnUpload(outcome, d)
	}
}
