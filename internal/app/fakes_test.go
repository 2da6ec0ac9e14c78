package app

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/endpoint"
)

// recorder keeps the order in which collaborators were called.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeSettings struct {
	rec *recorder

	mu          sync.Mutex
	settings    domain.Settings
	readErr     error
	finishErr   error
	finishCalls int
}

func (f *fakeSettings) Settings() (domain.Settings, error) {
	f.rec.add("settings")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return domain.Settings{}, f.readErr
	}
	return f.settings, nil
}

func (f *fakeSettings) FinishFirstLaunch() error {
	f.rec.add("finish_first_launch")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishCalls++
	if f.finishErr != nil {
		return f.finishErr
	}
	f.settings.IsFirstLaunch = false
	return nil
}

func (f *fakeSettings) finished() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finishCalls
}

type fakeCreds struct {
	rec *recorder

	mu         sync.Mutex
	clearErr   error
	clearCalls int
	secrets    map[string]string
}

func (f *fakeCreds) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.secrets[key]
	return v, ok, nil
}

func (f *fakeCreds) Set(key, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.secrets == nil {
		f.secrets = map[string]string{}
	}
	f.secrets[key] = secret
	return nil
}

func (f *fakeCreds) Clear() error {
	f.rec.add("clear_credentials")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.secrets = nil
	return nil
}

func (f *fakeCreds) cleared() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearCalls
}

type fakeTokens struct {
	holder *endpoint.Holder

	mu        sync.Mutex
	calls     int
	endpoints []string
	ctxErrs   []error
	err       error
	block     chan struct{}
}

func (f *fakeTokens) Refresh(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	f.endpoints = append(f.endpoints, f.holder.String())
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.err
}

func (f *fakeTokens) snapshot() (int, []string, []error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]string(nil), f.endpoints...), append([]error(nil), f.ctxErrs...)
}

type fakeRouter struct {
	rec   *recorder
	calls atomic.Int32
}

func (f *fakeRouter) RouteToInitial() {
	f.rec.add("route_initial")
	f.calls.Add(1)
}

type fakeSession struct {
	rec      *recorder
	loggedIn bool
}

func (f *fakeSession) IsLoggedIn() bool {
	f.rec.add("session_check")
	return f.loggedIn
}

type fakeResolver struct {
	holder *endpoint.Holder

	mu        sync.Mutex
	calls     int
	policies  []domain.ResolutionPolicy
	endpoints []string
	id        domain.FeedID
	err       error
	block     chan struct{}
}

func (f *fakeResolver) Resolve(ctx context.Context, policy domain.ResolutionPolicy) (domain.FeedID, error) {
	f.mu.Lock()
	f.calls++
	f.policies = append(f.policies, policy)
	f.endpoints = append(f.endpoints, f.holder.String())
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id, f.err
}

func (f *fakeResolver) snapshot() (int, []domain.ResolutionPolicy, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]domain.ResolutionPolicy(nil), f.policies...), append([]string(nil), f.endpoints...)
}

type fakeUploader struct {
	mu    sync.Mutex
	calls map[domain.Category][]domain.FeedID
	errs  map[domain.Category]error
	delay map[domain.Category]time.Duration

	// started receives each category as its upload begins; gate holds
	// every upload until it is closed.
	started chan domain.Category
	gate    chan struct{}
}

func (f *fakeUploader) record(ctx context.Context, c domain.Category, id domain.FeedID) (int, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[domain.Category][]domain.FeedID{}
	}
	f.calls[c] = append(f.calls[c], id)
	err := f.errs[c]
	d := f.delay[c]
	started, gate := f.started, f.gate
	f.mu.Unlock()

	if started != nil {
		started <- c
	}
	if gate != nil {
		<-gate
	}
	if d > 0 {
		time.Sleep(d)
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (f *fakeUploader) UploadAssets(ctx context.Context, id domain.FeedID) (int, error) {
	return f.record(ctx, domain.CategoryAssets, id)
}

func (f *fakeUploader) UploadEvents(ctx context.Context, id domain.FeedID) (int, error) {
	return f.record(ctx, domain.CategoryEvents, id)
}

func (f *fakeUploader) UploadContacts(ctx context.Context, id domain.FeedID) (int, error) {
	return f.record(ctx, domain.CategoryContacts, id)
}

func (f *fakeUploader) UploadReminders(ctx context.Context, id domain.FeedID) (int, error) {
	return f.record(ctx, domain.CategoryReminders, id)
}

func (f *fakeUploader) snapshot() map[domain.Category][]domain.FeedID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[domain.Category][]domain.FeedID, len(f.calls))
	for c, ids := range f.calls {
		out[c] = append([]domain.FeedID(nil), ids...)
	}
	return out
}

func (f *fakeUploader) total() int {
	n := 0
	for _, ids := range f.snapshot() {
		n += len(ids)
	}
	return n
}

// fakeObserver collects notifications.
type fakeObserver struct {
	mu       sync.Mutex
	steps    map[Step]error
	refresh  []error
	resolved []domain.FeedID
	outcomes []domain.UploadOutcome
}

func (f *fakeObserver) OnStep(step Step, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.steps == nil {
		f.steps = map[Step]error{}
	}
	f.steps[step] = err
}

func (f *fakeObserver) OnTokenRefresh(err error, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh = append(f.refresh, err)
}

func (f *fakeObserver) OnFeedIDResolved(_ domain.ResolutionPolicy, id domain.FeedID, _ error, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, id)
}

func (f *fakeObserver) OnUpload(o domain.UploadOutcome, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
}

func (f *fakeObserver) uploadOutcomes() []domain.UploadOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.UploadOutcome(nil), f.outcomes...)
}

func (f *fakeObserver) step(s Step) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	err, ok := f.steps[s]
	return ok, err
}

// harness wires an orchestrator to fakes.
type harness struct {
	rec      *recorder
	holder   *endpoint.Holder
	settings *fakeSettings
	creds    *fakeCreds
	tokens   *fakeTokens
	router   *fakeRouter
	session  *fakeSession
	resolver *fakeResolver
	uploader *fakeUploader
	observer *fakeObserver
	orch     *Orchestrator
}

const (
	defaultEndpoint  = "https://default.example.com"
	settingsEndpoint = "https://api.example.com"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := endpoint.ParseURL(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func newHarness(t *testing.T, loggedIn, firstLaunch bool) *harness {
	t.Helper()

	rec := &recorder{}
	holder := endpoint.New(mustURL(t, defaultEndpoint))
	h := &harness{
		rec:    rec,
		holder: holder,
		settings: &fakeSettings{rec: rec, settings: domain.Settings{
			BaseEndpoint:  mustURL(t, settingsEndpoint),
			IsFirstLaunch: firstLaunch,
		}},
		creds:    &fakeCreds{rec: rec},
		tokens:   &fakeTokens{holder: holder},
		router:   &fakeRouter{rec: rec},
		session:  &fakeSession{rec: rec, loggedIn: loggedIn},
		resolver: &fakeResolver{holder: holder, id: "42"},
		uploader: &fakeUploader{},
		observer: &fakeObserver{},
	}
	h.build(t)
	return h
}

func (h *harness) build(t *testing.T) {
	t.Helper()
	orch, err := NewOrchestrator(Deps{
		Settings:    h.settings,
		Endpoint:    h.holder,
		Tokens:      h.tokens,
		Router:      h.router,
		Credentials: h.creds,
		Session:     h.session,
		Resolver:    h.resolver,
		Uploader:    h.uploader,
		Observer:    h.observer,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	h.orch = orch
}

func (h *harness) runAndWait(t *testing.T) {
	t.Helper()
	h.orch.Run(context.Background())
	if err := h.orch.Wait(2 * time.Second); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}
