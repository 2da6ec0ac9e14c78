package http

import (
	"context"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/endpoint"
)

// memCreds is an in-memory ports.CredentialStore.
type memCreds struct {
	mu      sync.Mutex
	secrets map[string]string
}

func newMemCreds(kv ...string) *memCreds {
	m := &memCreds{secrets: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		m.secrets[kv[i]] = kv[i+1]
	}
	return m
}

func (m *memCreds) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.secrets[key]
	return v, ok, nil
}

func (m *memCreds) Set(key, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[key] = secret
	return nil
}

func (m *memCreds) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets = map[string]string{}
	return nil
}

// memQueue is an in-memory ports.UploadQueue.
type memQueue struct {
	mu      sync.Mutex
	nextID  uint
	records map[uint]domain.QueuedRecord
}

func newMemQueue() *memQueue {
	return &memQueue{records: map[uint]domain.QueuedRecord{}}
}

func (q *memQueue) add(category domain.Category, payload string) uint {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.records[q.nextID] = domain.QueuedRecord{ID: q.nextID, Category: category, Payload: []byte(payload)}
	return q.nextID
}

func (q *memQueue) Pending(ctx context.Context, category domain.Category, limit int) ([]domain.QueuedRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []domain.QueuedRecord
	for _, r := range q.records {
		if r.Category == category {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *memQueue) Ack(ctx context.Context, ids []uint) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range ids {
		delete(q.records, id)
	}
	return nil
}

func (q *memQueue) len(category domain.Category) int {
	recs, _ := q.Pending(context.Background(), category, 0)
	return len(recs)
}

type staticToken string

func (s staticToken) AccessToken(context.Context) string { return string(s) }

func clientConfigFor(t *testing.T, ts *httptest.Server) ClientConfig {
	t.Helper()
	h, err := endpoint.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	return ClientConfig{HTTP: ts.Client(), Endpoint: h, APIKey: "api-key"}
}
