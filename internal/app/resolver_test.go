package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/feedship/internal/domain"
)

type stubSession bool

func (s stubSession) IsLoggedIn() bool { return bool(s) }

type fakeSource struct {
	calls atomic.Int32
	id    domain.FeedID
	err   error
	block chan struct{}
}

func (f *fakeSource) FetchFeedID(ctx context.Context) (domain.FeedID, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.id, f.err
}

type memCache struct {
	mu         sync.Mutex
	id         domain.FeedID
	resolvedAt time.Time
	stores     int
}

func (c *memCache) Load() (domain.FeedID, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.id.Empty() {
		return "", time.Time{}, domain.ErrCacheMiss
	}
	return c.id, c.resolvedAt, nil
}

func (c *memCache) Store(id domain.FeedID, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id, c.resolvedAt = id, at
	c.stores++
	return nil
}

func TestResolver_Resolve(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		policy      domain.ResolutionPolicy
		cached      domain.FeedID
		cachedAge   time.Duration
		sourceID    domain.FeedID
		sourceErr   error
		want        domain.FeedID
		wantErr     bool
		wantFetches int32
		wantCached  domain.FeedID
	}{
		{
			name: "cache first hit", policy: domain.CacheFirst,
			cached: "cached", cachedAge: time.Hour, sourceID: "fresh",
			want: "cached", wantFetches: 0, wantCached: "cached",
		},
		{
			name: "cache first expired", policy: domain.CacheFirst,
			cached: "cached", cachedAge: 48 * time.Hour, sourceID: "fresh",
			want: "fresh", wantFetches: 1, wantCached: "fresh",
		},
		{
			name: "cache first miss", policy: domain.CacheFirst,
			sourceID: "fresh", want: "fresh", wantFetches: 1, wantCached: "fresh",
		},
		{
			name: "network only bypasses cache", policy: domain.NetworkOnly,
			cached: "cached", cachedAge: time.Minute, sourceID: "fresh",
			want: "fresh", wantFetches: 1, wantCached: "fresh",
		},
		{
			name: "network failure keeps cache", policy: domain.NetworkOnly,
			cached: "cached", cachedAge: time.Minute, sourceErr: errors.New("timeout"),
			wantErr: true, wantFetches: 1, wantCached: "cached",
		},
		{
			name: "empty id from backend", policy: domain.NetworkOnly,
			wantErr: true, wantFetches: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &memCache{}
			if !tt.cached.Empty() {
				cache.id = tt.cached
				cache.resolvedAt = now.Add(-tt.cachedAge)
			}
			src := &fakeSource{id: tt.sourceID, err: tt.sourceErr}

			r := NewResolver(stubSession(true), src, cache, DefaultFeedIDTTL, nil)
			r.now = func() time.Time { return now }

			got, err := r.Resolve(context.Background(), tt.policy)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
			if n := src.calls.Load(); n != tt.wantFetches {
				t.Errorf("network fetches = %d, want %d", n, tt.wantFetches)
			}
			if cache.id != tt.wantCached {
				t.Errorf("cached id = %q, want %q", cache.id, tt.wantCached)
			}
		})
	}
}

func TestResolver_NotLoggedIn(t *testing.T) {
	src := &fakeSource{id: "x"}
	r := NewResolver(stubSession(false), src, nil, 0, nil)

	for _, p := range []domain.ResolutionPolicy{domain.CacheFirst, domain.NetworkOnly} {
		if _, err := r.Resolve(context.Background(), p); !errors.Is(err, domain.ErrNotLoggedIn) {
			t.Errorf("Resolve(%s) error = %v, want ErrNotLoggedIn", p, err)
		}
	}
	if n := src.calls.Load(); n != 0 {
		t.Errorf("network fetches = %d, want 0", n)
	}
}

func TestResolver_UnknownPolicy(t *testing.T) {
	r := NewResolver(stubSession(true), &fakeSource{id: "x"}, nil, 0, nil)
	if _, err := r.Resolve(context.Background(), domain.ResolutionPolicy(9)); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestResolver_NilCache(t *testing.T) {
	src := &fakeSource{id: "x"}
	r := NewResolver(stubSession(true), src, nil, 0, nil)
	for i := 0; i < 2; i++ {
		if id, err := r.Resolve(context.Background(), domain.CacheFirst); err != nil || id != "x" {
			t.Fatalf("Resolve() = %q, %v", id, err)
		}
	}
	if n := src.calls.Load(); n != 2 {
		t.Errorf("network fetches = %d, want 2 without a cache", n)
	}
}

func TestResolver_CoalescesNetworkCalls(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{id: "shared", block: release}
	r := NewResolver(stubSession(true), src, &memCache{}, 0, nil)

	var wg sync.WaitGroup
	results := make([]domain.FeedID, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := r.Resolve(context.Background(), domain.NetworkOnly)
			if err != nil {
				t.Errorf("Resolve() error = %v", err)
			}
			results[i] = id
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := src.calls.Load(); n != 1 {
		t.Errorf("network fetches = %d, want 1", n)
	}
	for i, id := range results {
		if id != "shared" {
			t.Errorf("result %d = %q, want shared", i, id)
		}
	}
}
