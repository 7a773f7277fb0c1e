package listener

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emberwatt/ember-gateway/internal/infrastructure/logging"
)

// SensorBus defaults.
const (
	// defaultSensorInterval is the poll interval when none is configured.
	// Temperature nodes report once a minute.
	defaultSensorInterval = 60

	// defaultSensorResolution is the DS18B20 conversion resolution in
	// bits when none is configured.
	defaultSensorResolution = 9
)

// dummySensor is the case-insensitive sentinel for a configured slot with
// no physical sensor behind it. The slot still emits a null value, so the
// positions of the real sensors are preserved.
const dummySensor = "dummy"

// SensorBusConfig configures a sensor bus listener.
type SensorBusConfig struct {
	// Name identifies the listener in logs and settings routing.
	Name string

	// Path is the bus root directory, one subdirectory per sensor.
	Path string

	// Node is the node ID the readings are attributed to. Must be in
	// [1, 30]: 0 and 31 are reserved on the radio network.
	Node int

	// Interval is the poll interval in seconds. Defaults to 60.
	Interval int

	// Resolution is the DS18B20 read resolution in bits, one of
	// 9, 10, 11 or 12. Defaults to 9.
	Resolution int
}

// SensorBus polls a filesystem-exposed 1-Wire temperature bus.
//
// Unlike the stream sources there is no framing: each due poll reads every
// configured sensor slot in order and emits one Reading with a textual
// temperature, or null for dummy slots and sensors that are absent or
// unreadable. Between polls Read returns nothing.
type SensorBus struct {
	name       string
	path       string
	node       int
	interval   time.Duration
	resolution int

	// sensors is the ordered slot list, rebuilt wholesale on every Set.
	sensors []string

	lastPoll time.Time

	// now is swapped out in tests.
	now func() time.Time

	log *logging.Logger
}

// NewSensorBus validates the configuration and returns a sensor bus
// listener. An unreadable path, an out-of-range node or an unsupported
// resolution wraps ErrInit.
func NewSensorBus(cfg SensorBusConfig, log *logging.Logger) (*SensorBus, error) {
	if _, err := os.ReadDir(cfg.Path); err != nil {
		return nil, fmt.Errorf("%w: sensor bus path not readable: %w", ErrInit, err)
	}
	if cfg.Node < 1 || cfg.Node > 30 {
		return nil, fmt.Errorf("%w: node must be between 1 and 30, got %d", ErrInit, cfg.Node)
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultSensorInterval
	}
	if interval < 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %d", ErrInit, cfg.Interval)
	}
	resolution := cfg.Resolution
	if resolution == 0 {
		resolution = defaultSensorResolution
	}
	switch resolution {
	case 9, 10, 11, 12:
	default:
		return nil, fmt.Errorf("%w: resolution must be 9, 10, 11 or 12, got %d", ErrInit, cfg.Resolution)
	}

	log = log.With("listener", cfg.Name)
	log.Info("initialising sensor bus listener", "path", cfg.Path, "node", cfg.Node, "interval_s", interval)

	return &SensorBus{
		name:       cfg.Name,
		path:       cfg.Path,
		node:       cfg.Node,
		interval:   time.Duration(interval) * time.Second,
		resolution: resolution,
		now:        time.Now,
		log:        log,
	}, nil
}

// Name implements Source.
func (s *SensorBus) Name() string {
	return s.name
}

// Set rebuilds the sensor slot list from keys named sensorN. Keys are
// consumed in sorted order so the same mapping always yields the same slot
// layout.
func (s *SensorBus) Set(options map[string]string) {
	keys := make([]string, 0, len(options))
	for key := range options {
		if strings.HasPrefix(key, "sensor") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	s.sensors = s.sensors[:0]
	for _, key := range keys {
		s.sensors = append(s.sensors, options[key])
	}

	s.log.Info("sensor list updated", "sensors", len(s.sensors))
	for _, id := range s.sensors {
		s.log.Debug("sensor slot", "id", id)
	}
}

// Read polls every configured sensor slot once the interval has elapsed,
// returning null entries for dummy, absent and unreadable sensors so slot
// positions always line up. Between due polls it returns nothing.
func (s *SensorBus) Read() *Reading {
	now := s.now()
	if now.Sub(s.lastPoll) <= s.interval {
		return nil
	}
	s.lastPoll = now

	s.log.Debug("polling sensor bus", "path", s.path)

	values := make([]Value, 0, len(s.sensors))
	for _, id := range s.sensors {
		values = append(values, s.readSensor(id))
	}
	return &Reading{Node: s.node, Values: values}
}

// readSensor reads one slot. I/O failure is recovered locally: it is
// logged and the slot reports null for this poll.
func (s *SensorBus) readSensor(id string) Value {
	if strings.EqualFold(id, dummySensor) {
		s.log.Debug("skipping dummy sensor")
		return NullValue()
	}

	dir := filepath.Join(s.path, id)
	if _, err := os.Stat(dir); err != nil {
		s.log.Debug("sensor not present on bus", "id", id)
		return NullValue()
	}

	path := filepath.Join(dir, "temperature"+strconv.Itoa(s.resolution))
	temperature, err := readFirstLine(path)
	if err != nil {
		s.log.Warn("unable to read temperature", "id", id, "error", err)
		return NullValue()
	}

	s.log.Debug("sensor read", "id", id, "temperature", temperature)
	return TextValue(temperature)
}

// Run implements Source. The sensor bus has no background work.
func (s *SensorBus) Run() {}

// Close implements Source. The bus holds no open resources between polls.
func (s *SensorBus) Close() error {
	return nil
}

// readFirstLine returns the first line of the file, whitespace-trimmed.
func readFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // Read-only file

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", nil
	}
	return strings.TrimSpace(scanner.Text()), nil
}
