package listener

import (
	"github.com/emberwatt/ember-gateway/internal/infrastructure/logging"
)

// RepeaterConfig configures a radio bridge repeater.
type RepeaterConfig struct {
	// Name identifies the listener in logs and settings routing.
	Name string

	// Device is the serial device the bridge is attached to.
	Device string

	// Baud is the line rate. Defaults to 9600 when zero.
	Baud int

	// Port is the TCP port accepting frames to relay onto the radio link.
	Port int
}

// Repeater is a RadioBridge with an extra ingress socket: frames received
// over TCP are relayed verbatim out the serial device onto the radio link.
//
// Read stays the inherited serial-to-reading path. The socket path is a
// write-only relay driven from Run — the extracted text is never decoded or
// re-encoded, making the repeater byte-transparent.
type Repeater struct {
	*RadioBridge
	ingress *sockIngress
}

// NewRepeater opens the serial device and the ingress socket. Failure of
// either wraps ErrInit; a partially constructed repeater is closed before
// returning.
func NewRepeater(cfg RepeaterConfig, log *logging.Logger) (*Repeater, error) {
	port, err := openSerialPort(cfg.Device, cfg.Baud, log)
	if err != nil {
		return nil, err
	}
	bridge := newRadioBridge(cfg.Name, port, log)

	ingress, err := openIngress(cfg.Port, bridge.log)
	if err != nil {
		bridge.Close() //nolint:errcheck // Construction failed, best effort release
		return nil, err
	}

	return &Repeater{RadioBridge: bridge, ingress: ingress}, nil
}

// newRepeater assembles a repeater around already-open transports; used by
// tests.
func newRepeater(bridge *RadioBridge, ingress *sockIngress) *Repeater {
	return &Repeater{RadioBridge: bridge, ingress: ingress}
}

// Run first performs the inherited time broadcast, then checks the socket
// for a pending connection and relays one complete frame, if any, straight
// to the serial device.
func (r *Repeater) Run() {
	r.RadioBridge.Run()

	r.ingress.poll()
	frame, ok := r.ingress.buf.NextFrame()
	if !ok {
		return
	}

	r.log.Info("repeating frame", "frame", frame)
	if _, err := r.port.WriteString(frame); err != nil {
		r.log.Warn("repeat write failed", "error", err)
	}
}

// Close releases the serial device and the ingress socket. Idempotent.
func (r *Repeater) Close() error {
	serialErr := r.RadioBridge.Close()
	sockErr := r.ingress.close()
	if serialErr != nil {
		return serialErr
	}
	return sockErr
}
