package listener

import (
	"fmt"
	"strconv"
	"time"

	"github.com/emberwatt/ember-gateway/internal/infrastructure/logging"
)

// settingWriteDelay is the mandatory quiet period between consecutive
// configuration writes to the radio bridge. The bridge firmware needs the
// gap to latch each setting; writing faster corrupts its radio parameters.
// This is the one intentional blocking call in the whole listener layer.
const settingWriteDelay = time.Second

// radioSettings are the bridge parameters transmitted over the serial link,
// in the order they are applied, each with its command suffix character.
var radioSettings = []struct {
	key    string
	suffix string
}{
	{"baseid", "i"},
	{"frequency", "b"},
	{"sgroup", "g"},
}

// settingSendTimeInterval is the local-only setting controlling the
// periodic time broadcast. Seconds; 0 disables broadcasting.
const settingSendTimeInterval = "sendtimeinterval"

// RadioBridgeConfig configures a radio bridge listener.
type RadioBridgeConfig struct {
	// Name identifies the listener in logs and settings routing.
	Name string

	// Device is the serial device the bridge is attached to.
	Device string

	// Baud is the line rate. Defaults to 9600 when zero.
	Baud int
}

// RadioBridge listens to the radio-to-serial bridge.
//
// Inbound it is a serial listener with the paired-byte codec. Outbound it
// pushes radio settings to the bridge and periodically broadcasts the local
// time over the radio link so remote displays stay in sync.
type RadioBridge struct {
	*Serial

	// settings holds the last applied value per key, for change detection.
	settings map[string]string

	// timeInterval is the parsed sendtimeinterval, 0 meaning disabled.
	timeInterval int

	lastBroadcast time.Time

	// now and sleep are swapped out in tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewRadioBridge opens the serial device and returns a radio bridge
// listener. Failure to open the device wraps ErrInit.
func NewRadioBridge(cfg RadioBridgeConfig, log *logging.Logger) (*RadioBridge, error) {
	port, err := openSerialPort(cfg.Device, cfg.Baud, log)
	if err != nil {
		return nil, err
	}
	return newRadioBridge(cfg.Name, port, log), nil
}

// newRadioBridge assembles a radio bridge around an already-open transport.
func newRadioBridge(name string, port wire, log *logging.Logger) *RadioBridge {
	return &RadioBridge{
		Serial:   newSerial(name, port, PairedCodec{}, log),
		settings: make(map[string]string),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Set applies bridge settings.
//
// Radio parameters (baseid, frequency, sgroup) are transmitted to the
// bridge as "<value><suffix>" commands, with a full second of pacing after
// each write (see settingWriteDelay). sendtimeinterval only updates local
// state. Unknown keys are ignored and unchanged values cause no serial
// traffic at all.
func (b *RadioBridge) Set(options map[string]string) {
	for _, rs := range radioSettings {
		value, ok := options[rs.key]
		if !ok || value == b.settings[rs.key] {
			continue
		}
		b.settings[rs.key] = value
		b.log.Info("setting radio bridge", "key", rs.key, "value", value)
		if _, err := b.port.WriteString(value + rs.suffix); err != nil {
			b.log.Warn("radio bridge setting write failed", "key", rs.key, "error", err)
		}
		b.sleep(settingWriteDelay)
	}

	if value, ok := options[settingSendTimeInterval]; ok && value != b.settings[settingSendTimeInterval] {
		interval, err := strconv.Atoi(value)
		if err != nil || interval < 0 {
			b.log.Warn("invalid send time interval", "value", value)
			return
		}
		b.settings[settingSendTimeInterval] = value
		b.timeInterval = interval
		b.log.Info("setting send time interval", "seconds", interval)
	}
}

// Run broadcasts the local time over the radio link whenever the configured
// interval has elapsed. An interval of 0 disables broadcasting entirely.
func (b *RadioBridge) Run() {
	if b.timeInterval == 0 {
		return
	}
	now := b.now()
	if now.Sub(b.lastBroadcast) > time.Duration(b.timeInterval)*time.Second {
		b.sendTime(now)
		b.lastBroadcast = now
	}
}

// sendTime writes the time broadcast command to the bridge.
// Known to garble the serial link on some bridge revisions, which is why it
// is opt-in via sendtimeinterval.
func (b *RadioBridge) sendTime(now time.Time) {
	b.log.Debug("broadcasting time", "hour", now.Hour(), "minute", now.Minute())

	cmd := fmt.Sprintf("%02d,%02d,00,s", now.Hour(), now.Minute())
	if _, err := b.port.WriteString(cmd); err != nil {
		b.log.Warn("time broadcast write failed", "error", err)
	}
}
