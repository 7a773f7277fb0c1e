package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emberwatt/ember-gateway/internal/infrastructure/logging"
	"github.com/emberwatt/ember-gateway/internal/listener"
)

// fakeSource is a scriptable listener.Source.
type fakeSource struct {
	name     string
	readings []*listener.Reading
	setCalls []map[string]string
	runCalls int
	closed   int
	closeErr error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Read() *listener.Reading {
	if len(f.readings) == 0 {
		return nil
	}
	r := f.readings[0]
	f.readings = f.readings[1:]
	return r
}

func (f *fakeSource) Set(values map[string]string) {
	f.setCalls = append(f.setCalls, values)
}

func (f *fakeSource) Run() { f.runCalls++ }

func (f *fakeSource) Close() error {
	f.closed++
	return f.closeErr
}

// fakePublisher records published readings and can fail on demand.
type fakePublisher struct {
	published []publishedReading
	err       error
}

type publishedReading struct {
	source  string
	reading *listener.Reading
}

func (f *fakePublisher) PublishReading(source string, r *listener.Reading) error {
	f.published = append(f.published, publishedReading{source, r})
	return f.err
}

// fakeStore is an in-memory SettingsStore.
type fakeStore struct {
	saved   map[string]map[string]string
	saveErr error
	loadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string]map[string]string)}
}

func (f *fakeStore) Save(_ context.Context, listener string, values map[string]string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved[listener] == nil {
		f.saved[listener] = make(map[string]string)
	}
	for k, v := range values {
		f.saved[listener][k] = v
	}
	return nil
}

func (f *fakeStore) LoadAll(context.Context) (map[string]map[string]string, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.saved, nil
}

func (f *fakeStore) Delete(_ context.Context, listener string) error {
	delete(f.saved, listener)
	return nil
}

func reading(node int, values ...int64) *listener.Reading {
	r := &listener.Reading{Node: node}
	for _, v := range values {
		r.Values = append(r.Values, listener.IntValue(v))
	}
	return r
}

func newTestGateway(t *testing.T, cfg Config) *Gateway {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func TestNewValidation(t *testing.T) {
	src := &fakeSource{name: "serial"}
	pub := &fakePublisher{}

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "no sources",
			cfg:     Config{Publisher: pub},
			wantErr: ErrNoSources,
		},
		{
			name:    "no publisher",
			cfg:     Config{Sources: []listener.Source{src}},
			wantErr: ErrNoPublisher,
		},
		{
			name: "duplicate names",
			cfg: Config{
				Sources:   []listener.Source{src, &fakeSource{name: "serial"}},
				Publisher: pub,
			},
			wantErr: ErrDuplicateSource,
		},
		{
			name: "valid",
			cfg: Config{
				Sources:   []listener.Source{src},
				Publisher: pub,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logger = logging.Discard()
			_, err := New(tt.cfg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("New() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPollPublishesReadings(t *testing.T) {
	src := &fakeSource{
		name:     "serial",
		readings: []*listener.Reading{reading(10, 100, 200)},
	}
	pub := &fakePublisher{}
	g := newTestGateway(t, Config{
		Sources:   []listener.Source{src},
		Publisher: pub,
	})

	g.pollSources()

	if src.runCalls != 1 {
		t.Errorf("Run() calls = %d, want 1", src.runCalls)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published = %d readings, want 1", len(pub.published))
	}
	if pub.published[0].source != "serial" {
		t.Errorf("published source = %q, want %q", pub.published[0].source, "serial")
	}
	if pub.published[0].reading.Node != 10 {
		t.Errorf("published node = %d, want 10", pub.published[0].reading.Node)
	}

	// Next tick: source drained, nothing new published.
	g.pollSources()
	if len(pub.published) != 1 {
		t.Errorf("published after drain = %d, want 1", len(pub.published))
	}
	if src.runCalls != 2 {
		t.Errorf("Run() calls = %d, want 2 (Run fires every tick)", src.runCalls)
	}
}

func TestPollSurvivesPublishFailure(t *testing.T) {
	src := &fakeSource{
		name: "serial",
		readings: []*listener.Reading{
			reading(10, 1),
			reading(11, 2),
		},
	}
	pub := &fakePublisher{err: errors.New("broker down")}
	g := newTestGateway(t, Config{
		Sources:   []listener.Source{src},
		Publisher: pub,
	})

	g.pollSources()
	g.pollSources()

	// Both readings attempted despite failures.
	if len(pub.published) != 2 {
		t.Errorf("publish attempts = %d, want 2", len(pub.published))
	}
}

func TestPollMultipleSources(t *testing.T) {
	serial := &fakeSource{name: "serial", readings: []*listener.Reading{reading(10, 1)}}
	socket := &fakeSource{name: "socket", readings: []*listener.Reading{reading(20, 2)}}
	pub := &fakePublisher{}
	g := newTestGateway(t, Config{
		Sources:   []listener.Source{serial, socket},
		Publisher: pub,
	})

	g.pollSources()

	if len(pub.published) != 2 {
		t.Fatalf("published = %d, want 2", len(pub.published))
	}
	// Sources polled in configuration order.
	if pub.published[0].source != "serial" || pub.published[1].source != "socket" {
		t.Errorf("publish order = %s, %s; want serial, socket",
			pub.published[0].source, pub.published[1].source)
	}
}

func TestApply(t *testing.T) {
	src := &fakeSource{name: "radio"}
	store := newFakeStore()
	g := newTestGateway(t, Config{
		Sources:   []listener.Source{src},
		Publisher: &fakePublisher{},
		Store:     store,
	})

	values := map[string]string{"baseid": "15", "frequency": "4"}
	if err := g.Apply(context.Background(), "radio", values); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(src.setCalls) != 1 {
		t.Fatalf("Set() calls = %d, want 1", len(src.setCalls))
	}
	if src.setCalls[0]["baseid"] != "15" {
		t.Errorf("Set() baseid = %q, want 15", src.setCalls[0]["baseid"])
	}
	if store.saved["radio"]["frequency"] != "4" {
		t.Errorf("persisted frequency = %q, want 4", store.saved["radio"]["frequency"])
	}
}

func TestApplyUnknownListener(t *testing.T) {
	g := newTestGateway(t, Config{
		Sources:   []listener.Source{&fakeSource{name: "radio"}},
		Publisher: &fakePublisher{},
	})

	err := g.Apply(context.Background(), "nope", map[string]string{"baseid": "1"})
	if !errors.Is(err, ErrUnknownListener) {
		t.Errorf("Apply() error = %v, want ErrUnknownListener", err)
	}
}

func TestApplyStoreFailureStillSets(t *testing.T) {
	src := &fakeSource{name: "radio"}
	store := newFakeStore()
	store.saveErr = errors.New("disk full")
	g := newTestGateway(t, Config{
		Sources:   []listener.Source{src},
		Publisher: &fakePublisher{},
		Store:     store,
	})

	err := g.Apply(context.Background(), "radio", map[string]string{"baseid": "1"})
	if err == nil {
		t.Error("Apply() should surface store error")
	}
	// Hardware still got the update.
	if len(src.setCalls) != 1 {
		t.Errorf("Set() calls = %d, want 1 despite store failure", len(src.setCalls))
	}
}

func TestReplaySettings(t *testing.T) {
	radio := &fakeSource{name: "radio"}
	store := newFakeStore()
	store.saved["radio"] = map[string]string{"baseid": "15"}
	store.saved["retired"] = map[string]string{"baseid": "99"}

	g := newTestGateway(t, Config{
		Sources:   []listener.Source{radio},
		Publisher: &fakePublisher{},
		Store:     store,
	})

	if err := g.ReplaySettings(context.Background()); err != nil {
		t.Fatalf("ReplaySettings() error = %v", err)
	}

	if len(radio.setCalls) != 1 {
		t.Fatalf("Set() calls = %d, want 1", len(radio.setCalls))
	}
	if radio.setCalls[0]["baseid"] != "15" {
		t.Errorf("replayed baseid = %q, want 15", radio.setCalls[0]["baseid"])
	}

	// Settings for the listener that no longer exists are pruned.
	if _, ok := store.saved["retired"]; ok {
		t.Error("settings for unconfigured listener not pruned")
	}
	if _, ok := store.saved["radio"]; !ok {
		t.Error("settings for configured listener must survive replay")
	}
}

func TestReplaySettingsNoStore(t *testing.T) {
	g := newTestGateway(t, Config{
		Sources:   []listener.Source{&fakeSource{name: "radio"}},
		Publisher: &fakePublisher{},
	})

	if err := g.ReplaySettings(context.Background()); err != nil {
		t.Errorf("ReplaySettings() without store error = %v, want nil", err)
	}
}

func TestClose(t *testing.T) {
	a := &fakeSource{name: "a"}
	b := &fakeSource{name: "b", closeErr: errors.New("port stuck")}
	g := newTestGateway(t, Config{
		Sources:   []listener.Source{a, b},
		Publisher: &fakePublisher{},
	})

	err := g.Close()
	if err == nil {
		t.Error("Close() should surface source close error")
	}
	if a.closed != 1 || b.closed != 1 {
		t.Errorf("close counts = %d, %d; want 1, 1", a.closed, b.closed)
	}

	// Second Close is a no-op returning the first result.
	err2 := g.Close()
	if a.closed != 1 || b.closed != 1 {
		t.Errorf("sources closed again: %d, %d", a.closed, b.closed)
	}
	if (err == nil) != (err2 == nil) {
		t.Errorf("repeat Close() = %v, want same as first (%v)", err2, err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{name: "serial"}
	g := newTestGateway(t, Config{
		Sources:   []listener.Source{src},
		Publisher: &fakePublisher{},
		Tick:      time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop after cancel")
	}

	if src.runCalls == 0 {
		t.Error("expected at least one tick before cancel")
	}
}
