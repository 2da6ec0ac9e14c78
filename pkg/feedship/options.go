package feedship

import (
	"net/http"

	"github.com/bft-labs/feedship/internal/ports"
	"github.com/bft-labs/feedship/pkg/log"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Router presents the initial screen of the host application.
type Router = ports.Router

// Option configures optional behavior of Feedship.
type Option func(*options)

// options holds the optional configuration for a Feedship instance.
type options struct {
	httpClient       ports.HTTPClient
	logger           log.Logger
	router           ports.Router
	eventHandler     EventHandler
	plugins          []Plugin
	metricsNamespace string
	metrics          bool
}

// defaultOptions returns options with sensible defaults.
func defaultOptions(client *http.Client) options {
	return options{
		httpClient: client,
		logger:     log.NewNoopLogger(),
	}
}

// WithHTTPClient sets a custom HTTP client for backend communication.
// If not provided, a default client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRouter sets the router asked to present the initial screen.
// If not provided, the request is only logged.
func WithRouter(router Router) Option {
	return func(o *options) {
		o.router = router
	}
}

// WithEventHandler sets a handler for feedship events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized on the first launch.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMetrics collects Prometheus metrics under namespace (default
// "feedship"). Serve them with Feedship.MetricsHandler.
func WithMetrics(namespace string) Option {
	return func(o *options) {
		o.metrics = true
		o.metricsNamespace = namespace
	}
}
