package listener

import (
	"fmt"

	"github.com/emberwatt/ember-gateway/internal/infrastructure/logging"
	"github.com/emberwatt/ember-gateway/internal/serialport"
)

// readChunkSize is the most bytes pulled from a transport in one tick.
const readChunkSize = 1024

// defaultBaud is the serial line rate used when none is configured.
// Matches the radio bridge hardware.
const defaultBaud = 9600

// wire is the byte-stream transport behind the serial listeners.
// serialport.Port implements it; tests substitute an in-memory fake.
type wire interface {
	ReadAvailable(p []byte) (int, error)
	WriteString(s string) (int, error)
	Close() error
}

// SerialConfig configures a plain serial listener.
type SerialConfig struct {
	// Name identifies the listener in logs and settings routing.
	Name string

	// Device is the serial device path, e.g. /dev/ttyAMA0.
	Device string

	// Baud is the line rate. Defaults to 9600 when zero.
	Baud int
}

// Serial reads plain integer frames from a serial device.
//
// Bytes are pulled non-blocking each tick and framed through a receive
// buffer, so a frame split across several reads still comes out whole.
type Serial struct {
	name  string
	port  wire
	codec Codec
	buf   lineBuffer
	log   *logging.Logger
}

// NewSerial opens the serial device and returns a plain serial listener.
// Failure to open the device wraps ErrInit.
func NewSerial(cfg SerialConfig, log *logging.Logger) (*Serial, error) {
	port, err := openSerialPort(cfg.Device, cfg.Baud, log)
	if err != nil {
		return nil, err
	}
	return newSerial(cfg.Name, port, PlainCodec{}, log), nil
}

// openSerialPort opens a serial device for a listener, mapping failures to
// ErrInit so the driver can tell fatal construction errors apart.
func openSerialPort(device string, baud int, log *logging.Logger) (*serialport.Port, error) {
	if baud == 0 {
		baud = defaultBaud
	}
	log.Debug("opening serial port", "device", device, "baud", baud)
	port, err := serialport.Open(device, baud)
	if err != nil {
		log.Error("serial port open failed", "device", device, "error", err)
		return nil, fmt.Errorf("%w: could not open serial port %s: %w", ErrInit, device, err)
	}
	return port, nil
}

// newSerial assembles a serial listener around an already-open transport.
func newSerial(name string, port wire, codec Codec, log *logging.Logger) *Serial {
	return &Serial{
		name:  name,
		port:  port,
		codec: codec,
		log:   log.With("listener", name),
	}
}

// Name implements Source.
func (s *Serial) Name() string {
	return s.name
}

// Read pulls available bytes off the serial line and returns one decoded
// Reading once a complete frame has accumulated.
func (s *Serial) Read() *Reading {
	var chunk [readChunkSize]byte
	n, err := s.port.ReadAvailable(chunk[:])
	if err != nil {
		s.log.Warn("serial read failed", "error", err)
		return nil
	}
	if n > 0 {
		s.buf.Append(chunk[:n])
	}

	frame, ok := s.buf.NextFrame()
	if !ok {
		return nil
	}
	return s.decodeFrame(frame)
}

// decodeFrame runs one extracted frame through the active codec, logging
// malformed frames as warnings.
func (s *Serial) decodeFrame(frame string) *Reading {
	s.log.Info("serial RX", "frame", frame)

	reading, err := s.codec.Decode(frame)
	if err != nil {
		s.log.Warn("misformed RX frame", "frame", frame)
		return nil
	}
	if reading == nil {
		return nil
	}

	s.log.Debug("decoded reading", "node", reading.Node, "values", reading.Values)
	return reading
}

// Set implements Source. The plain serial listener has no settings.
func (s *Serial) Set(map[string]string) {}

// Run implements Source. The plain serial listener has no background work.
func (s *Serial) Run() {}

// Close releases the serial device. Idempotent.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	s.log.Debug("closing serial port")
	return s.port.Close()
}
