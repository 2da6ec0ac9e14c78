package feedship_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/feedship/pkg/feedship"
)

// trackingPlugin records initialization and shutdown order.
type trackingPlugin struct {
	name    string
	order   *orderLog
	initErr error
	cfg     feedship.PluginConfig
	ctx     context.Context
}

type orderLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *orderLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, s)
}

func (l *orderLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (p *trackingPlugin) Name() string { return p.name }

func (p *trackingPlugin) Initialize(ctx context.Context, cfg feedship.PluginConfig) error {
	if p.initErr != nil {
		return p.initErr
	}
	p.cfg = cfg
	p.ctx = ctx
	p.order.add("init:" + p.name)
	return nil
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	p.order.add("shutdown:" + p.name)
	return nil
}

func TestPlugins_InitAndShutdownOrder(t *testing.T) {
	order := &orderLog{}
	a := &trackingPlugin{name: "a", order: order}
	b := &trackingPlugin{name: "b", order: order}

	f := newInstance(t, "http://127.0.0.1:1", feedship.WithPlugin(a), feedship.WithPlugin(b))

	f.OnApplicationLaunch(context.Background())
	// A second launch must not initialize plugins again.
	f.OnApplicationLaunch(context.Background())

	if a.cfg.Syncer == nil || a.cfg.QueuePath == "" || a.cfg.Logger == nil {
		t.Errorf("plugin config incomplete: %+v", a.cfg)
	}

	if err := f.Shutdown(5 * time.Second); err != nil {
		t.Fatal(err)
	}

	want := []string{"init:a", "init:b", "shutdown:b", "shutdown:a"}
	if got := order.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestPlugins_InitFailureStillLaunches(t *testing.T) {
	order := &orderLog{}
	good := &trackingPlugin{name: "good", order: order}
	bad := &trackingPlugin{name: "bad", order: order, initErr: errors.New("boom")}
	never := &trackingPlugin{name: "never", order: order}

	f := newInstance(t, "http://127.0.0.1:1",
		feedship.WithPlugin(good), feedship.WithPlugin(bad), feedship.WithPlugin(never))
	if !f.OnApplicationLaunch(context.Background()) {
		t.Fatal("OnApplicationLaunch() = false after plugin failure")
	}
	if err := f.Wait(5 * time.Second); err != nil {
		t.Fatal(err)
	}
	if f.Status() != feedship.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", f.Status())
	}

	// Plugins started before the failure are stopped again.
	want := []string{"init:good", "shutdown:good"}
	if got := order.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if good.ctx == nil || good.ctx.Err() == nil {
		t.Error("plugin context not cancelled after init failure")
	}

	info, err := f.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if info.IsFirstLaunch {
		t.Error("launch sequence did not run after plugin failure")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
