package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emberwatt/ember-gateway/internal/infrastructure/logging"
	"github.com/emberwatt/ember-gateway/internal/listener"
)

// Publisher moves decoded readings upstream. The MQTT client satisfies
// this through the adapter in publish.go.
type Publisher interface {
	PublishReading(source string, r *listener.Reading) error
}

// Recorder persists reading values for historical queries. Recording is
// best-effort: failures are logged by the implementation, never block
// the main loop.
type Recorder interface {
	RecordReading(source string, r *listener.Reading)
}

// SettingsStore persists listener settings across restarts.
type SettingsStore interface {
	Save(ctx context.Context, listener string, values map[string]string) error
	LoadAll(ctx context.Context) (map[string]map[string]string, error)
	Delete(ctx context.Context, listener string) error
}

// Config assembles the gateway's collaborators.
type Config struct {
	// Sources are the listener sources to drive, polled in order.
	Sources []listener.Source

	// Tick is the main loop interval. Sources are polled once per tick.
	Tick time.Duration

	// Publisher receives every decoded reading. Required.
	Publisher Publisher

	// Recorder receives readings for time-series storage. Optional.
	Recorder Recorder

	// Store persists listener settings. Optional; without it settings
	// still reach the hardware but do not survive restarts.
	Store SettingsStore

	// Logger for loop events. Defaults to the package default logger.
	Logger *logging.Logger
}

// Gateway drives the configured sources and routes their readings.
type Gateway struct {
	sources []listener.Source
	byName  map[string]listener.Source
	tick    time.Duration
	pub     Publisher
	rec     Recorder
	store   SettingsStore
	log     *logging.Logger

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// defaultTick is used when Config.Tick is unset.
const defaultTick = 100 * time.Millisecond

// New validates the configuration and builds a Gateway.
//
// Returns:
//   - *Gateway: Ready to Run
//   - error: ErrNoSources, ErrNoPublisher, or ErrDuplicateSource
func New(cfg Config) (*Gateway, error) {
	if len(cfg.Sources) == 0 {
		return nil, ErrNoSources
	}
	if cfg.Publisher == nil {
		return nil, ErrNoPublisher
	}

	byName := make(map[string]listener.Source, len(cfg.Sources))
	for _, s := range cfg.Sources {
		if _, exists := byName[s.Name()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, s.Name())
		}
		byName[s.Name()] = s
	}

	tick := cfg.Tick
	if tick <= 0 {
		tick = defaultTick
	}

	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}

	return &Gateway{
		sources: cfg.Sources,
		byName:  byName,
		tick:    tick,
		pub:     cfg.Publisher,
		rec:     cfg.Recorder,
		store:   cfg.Store,
		log:     log,
	}, nil
}

// Run executes the main loop until ctx is cancelled. It returns nil on
// a clean shutdown; sources are left open for Close.
func (g *Gateway) Run(ctx context.Context) error {
	g.log.Info("gateway loop starting",
		"sources", len(g.sources),
		"tick", g.tick.String(),
	)

	ticker := time.NewTicker(g.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.log.Info("gateway loop stopping")
			return nil
		case <-ticker.C:
			g.pollSources()
		}
	}
}

// pollSources gives each source one Run slot and one Read poll.
// Serialised with Apply via the gateway mutex.
func (g *Gateway) pollSources() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, s := range g.sources {
		s.Run()

		r := s.Read()
		if r == nil {
			continue
		}
		g.dispatch(s.Name(), r)
	}
}

// dispatch routes one reading to the publisher and recorder.
// Publish failures are logged, not fatal: the loop keeps polling.
func (g *Gateway) dispatch(source string, r *listener.Reading) {
	if err := g.pub.PublishReading(source, r); err != nil {
		g.log.Warn("publishing reading failed",
			"listener", source,
			"node", r.Node,
			"error", err,
		)
	}

	if g.rec != nil {
		g.rec.RecordReading(source, r)
	}
}

// Apply dispatches a settings update to the named listener and persists
// it. The update reaches the hardware even when persistence fails; the
// store error is still returned so callers can log it.
//
// Parameters:
//   - ctx: Context for the persistence write
//   - name: Listener name from the config topic
//   - values: Setting key/value pairs to merge
//
// Returns:
//   - error: ErrUnknownListener, or a store error after a successful Set
func (g *Gateway) Apply(ctx context.Context, name string, values map[string]string) error {
	g.mu.Lock()
	s, ok := g.byName[name]
	if ok {
		s.Set(values)
	}
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownListener, name)
	}

	g.log.Info("applied listener settings", "listener", name, "keys", len(values))

	if g.store != nil {
		if err := g.store.Save(ctx, name, values); err != nil {
			return fmt.Errorf("persisting settings for %s: %w", name, err)
		}
	}
	return nil
}

// ReplaySettings pushes persisted settings back to their listeners.
// Called once at startup, before the loop, so radio hardware carries the
// stored parameters before the first frame arrives. Settings for
// listeners no longer configured are pruned from the store.
func (g *Gateway) ReplaySettings(ctx context.Context) error {
	if g.store == nil {
		return nil
	}

	all, err := g.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading persisted settings: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for name, values := range all {
		s, ok := g.byName[name]
		if !ok {
			g.log.Warn("pruning settings for unconfigured listener", "listener", name)
			if delErr := g.store.Delete(ctx, name); delErr != nil {
				g.log.Warn("pruning persisted settings failed", "listener", name, "error", delErr)
			}
			continue
		}
		s.Set(values)
		g.log.Info("replayed persisted settings", "listener", name, "keys", len(values))
	}
	return nil
}

// Close shuts down every source. Safe to call more than once; later
// calls return the first result.
func (g *Gateway) Close() error {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		defer g.mu.Unlock()

		var errs []error
		for _, s := range g.sources {
			if err := s.Close(); err != nil {
				g.log.Warn("closing source failed", "listener", s.Name(), "error", err)
				errs = append(errs, fmt.Errorf("closing %s: %w", s.Name(), err))
			}
		}
		g.closeErr = errors.Join(errs...)
	})
	return g.closeErr
}
