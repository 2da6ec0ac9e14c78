package app

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/endpoint"
	"github.com/bft-labs/feedship/internal/ports"
	"github.com/bft-labs/feedship/pkg/log"
)

// Operation names carried by every launch log line.
const (
	opReadSettings      = "read_settings"
	opApplyEndpoint     = "apply_endpoint"
	opTokenRefresh      = "token_refresh"
	opRouteInitial      = "route_initial"
	opClearCredentials  = "clear_credentials"
	opFinishFirstLaunch = "finish_first_launch"
	opSessionCheck      = "session_check"
	opResolveFeedID     = "resolve_feed_id"
	opUpload            = "upload"
)

// Deps are the collaborators of the launch sequence.
type Deps struct {
	Settings    ports.SettingsStore
	Endpoint    *endpoint.Holder
	Tokens      ports.TokenService
	Router      ports.Router
	Credentials ports.CredentialStore
	Session     ports.SessionState
	Resolver    ports.FeedIDResolver
	Uploader    ports.FeedUploader

	// Optional.
	Logger   log.Logger
	Observer Observer
}

// Orchestrator runs the launch sequence and gates the upload fan-out on a
// session and a resolved feed id. No step failure aborts the launch.
type Orchestrator struct {
	settings ports.SettingsStore
	endpoint *endpoint.Holder
	tokens   ports.TokenService
	router   ports.Router
	creds    ports.CredentialStore
	session  ports.SessionState
	resolver ports.FeedIDResolver
	uploader ports.FeedUploader
	logger   log.Logger
	observer Observer

	background tracker
}

// NewOrchestrator creates an orchestrator. Every collaborator except Logger
// and Observer is required.
func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	if deps.Settings == nil || deps.Endpoint == nil || deps.Tokens == nil ||
		deps.Router == nil || deps.Credentials == nil || deps.Session == nil ||
		deps.Resolver == nil || deps.Uploader == nil {
		return nil, errors.Join(domain.ErrInvalidConfig, errors.New("orchestrator: missing collaborator"))
	}
	if deps.Logger == nil {
		deps.Logger = log.NewNoopLogger()
	}
	if deps.Observer == nil {
		deps.Observer = NoopObserver{}
	}
	return &Orchestrator{
		settings: deps.Settings,
		endpoint: deps.Endpoint,
		tokens:   deps.Tokens,
		router:   deps.Router,
		creds:    deps.Credentials,
		session:  deps.Session,
		resolver: deps.Resolver,
		uploader: deps.Uploader,
		logger:   deps.Logger,
		observer: deps.Observer,
	}, nil
}

// Run executes the launch sequence. Steps up to the session check run in
// order on the calling goroutine; token refresh, feed id resolution and the
// uploads run in the background on a context detached from ctx's
// cancellation. Run returns once the sync path has been issued.
func (o *Orchestrator) Run(ctx context.Context) {
	bg := context.WithoutCancel(ctx)

	// A failed read leaves the zero Settings: the endpoint holder keeps its
	// default and the credential clear is skipped.
	settings, err := o.settings.Settings()
	o.report(StepReadSettings, opReadSettings, domain.ErrSettingsRead, err)

	o.applyEndpoint(settings.BaseEndpoint)

	// The endpoint store above happens-before this goroutine starts.
	o.background.Go(func() { o.refreshToken(bg) })

	o.router.RouteToInitial()
	o.observer.OnStep(StepRouteInitial, nil)
	o.logger.Debug("initial route presented", log.Op(opRouteInitial))

	if settings.IsFirstLaunch {
		err := o.creds.Clear()
		o.report(StepClearCredentials, opClearCredentials, domain.ErrCredentialClear, err)
		if err == nil {
			o.logger.Info("first launch: credentials cleared", log.Op(opClearCredentials))
		}
	}

	err = o.settings.FinishFirstLaunch()
	o.report(StepFinishFirstLaunch, opFinishFirstLaunch, domain.ErrSettingsWrite, err)

	o.Sync(ctx)
}

// Sync runs the session-gated part of the launch: when a session exists it
// resolves the feed id from the network and fans out the four uploads in the
// background. It reports whether the sync path was issued.
func (o *Orchestrator) Sync(ctx context.Context) bool {
	loggedIn := o.session.IsLoggedIn()
	o.observer.OnStep(StepSessionCheck, nil)
	if !loggedIn {
		o.logger.Info("no session, skipping sync", log.Op(opSessionCheck))
		return false
	}

	bg := context.WithoutCancel(ctx)
	o.background.Go(func() { o.syncFeed(bg) })
	return true
}

// Wait blocks until background work issued by Run and Sync has finished.
// Returns ErrShutdownTimeout if the timeout expires first.
func (o *Orchestrator) Wait(timeout time.Duration) error {
	return o.background.Wait(timeout)
}

// Pending returns the number of background operations still running.
func (o *Orchestrator) Pending() int {
	return o.background.Active()
}

func (o *Orchestrator) applyEndpoint(base *url.URL) {
	if base == nil {
		o.logger.Warn("no base endpoint in settings, keeping default",
			log.Op(opApplyEndpoint),
			log.String("endpoint", o.endpoint.String()))
		o.observer.OnStep(StepApplyEndpoint, nil)
		return
	}
	o.endpoint.Set(base)
	o.observer.OnStep(StepApplyEndpoint, nil)
	o.logger.Info("endpoint configured",
		log.Op(opApplyEndpoint),
		log.String("endpoint", o.endpoint.String()))
}

func (o *Orchestrator) refreshToken(ctx context.Context) {
	start := time.Now()
	err := o.tokens.Refresh(ctx)
	d := time.Since(start)
	o.observer.OnTokenRefresh(err, d)

	switch {
	case err == nil:
		o.logger.Info("token refreshed", log.Op(opTokenRefresh), log.Duration("duration", d))
	case errors.Is(err, domain.ErrNoCredential):
		o.logger.Warn("token refresh skipped",
			log.Op(opTokenRefresh),
			log.Err(domain.NewOpError(opTokenRefresh, domain.ErrTokenRefresh, err)))
	default:
		o.logger.Error("token refresh failed",
			log.Op(opTokenRefresh),
			log.Err(domain.NewOpError(opTokenRefresh, domain.ErrTokenRefresh, err)),
			log.Duration("duration", d))
	}
}

// syncFeed resolves the feed id and, on success, issues every upload.
// It does not wait for the uploads.
func (o *Orchestrator) syncFeed(ctx context.Context) {
	start := time.Now()
	id, err := o.resolver.Resolve(ctx, domain.NetworkOnly)
	d := time.Since(start)
	o.observer.OnFeedIDResolved(domain.NetworkOnly, id, err, d)

	if err != nil {
		o.logger.Error("feed id resolution failed, skipping uploads",
			log.Op(opResolveFeedID),
			log.Err(domain.NewOpError(opResolveFeedID, domain.ErrFeedIDResolution, err)),
			log.Duration("duration", d))
		return
	}
	o.logger.Info("feed id resolved",
		log.Op(opResolveFeedID),
		log.String("feed_id", id.String()),
		log.Duration("duration", d))

	// Each upload is independent: no upload waits on or cancels another.
	for _, u := range o.uploads() {
		u := u
		o.background.Go(func() { o.upload(ctx, id, u.category, u.fn) })
	}
}

type categoryUpload struct {
	category domain.Category
	fn       func(context.Context, domain.FeedID) (int, error)
}

func (o *Orchestrator) uploads() []categoryUpload {
	return []categoryUpload{
		{domain.CategoryAssets, o.uploader.UploadAssets},
		{domain.CategoryEvents, o.uploader.UploadEvents},
		{domain.CategoryContacts, o.uploader.UploadContacts},
		{domain.CategoryReminders, o.uploader.UploadReminders},
	}
}

func (o *Orchestrator) upload(ctx context.Context, id domain.FeedID, category domain.Category, fn func(context.Context, domain.FeedID) (int, error)) {
	start := time.Now()
	n, err := fn(ctx, id)
	d := time.Since(start)

	outcome := domain.UploadOutcome{
		Category: category,
		FeedID:   id,
		Items:    n,
		Err:      domain.NewOpError(opUpload, domain.ErrUpload, err),
	}
	o.observer.OnUpload(outcome, d)

	if !outcome.Success() {
		o.logger.Error("upload failed",
			log.Op(opUpload),
			log.String("category", string(category)),
			log.Int("items", n),
			log.Err(outcome.Err),
			log.Duration("duration", d))
		return
	}
	o.logger.Info("upload complete",
		log.Op(opUpload),
		log.String("category", string(category)),
		log.Int("items", n),
		log.Duration("duration", d))
}

// report logs and observes the result of a synchronous step.
func (o *Orchestrator) report(step Step, op string, kind, err error) {
	o.observer.OnStep(step, err)
	if err == nil {
		return
	}
	o.logger.Error(string(step)+" failed",
		log.Op(op),
		log.Err(domain.NewOpError(op, kind, err)))
}
