package app

import (
	"sync/atomic"

	"github.com/bft-labs/feedship/pkg/log"
)

// LogRouter is the Router used by headless hosts: it records that the
// initial screen was requested and logs it.
type LogRouter struct {
	logger log.Logger
	routed atomic.Int32
}

// NewLogRouter creates a headless router.
func NewLogRouter(logger log.Logger) *LogRouter {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &LogRouter{logger: logger}
}

// RouteToInitial records the request.
func (r *LogRouter) RouteToInitial() {
	r.routed.Add(1)
	r.logger.Info("routing to initial screen")
}

// Routed returns how many times the initial screen was requested.
func (r *LogRouter) Routed() int {
	return int(r.routed.Load())
}
