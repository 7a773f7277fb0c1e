package listener

import (
	"errors"
	"testing"

	"github.com/emberwatt/ember-gateway/internal/infrastructure/logging"
)

// fakeWire is an in-memory serial transport. Each queued chunk is
// delivered by one ReadAvailable call, mimicking the non-blocking port.
type fakeWire struct {
	chunks   [][]byte
	readErr  error
	written  []string
	writeErr error
	closed   int
	closeErr error
}

func (w *fakeWire) ReadAvailable(p []byte) (int, error) {
	if w.readErr != nil {
		return 0, w.readErr
	}
	if len(w.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, w.chunks[0])
	w.chunks[0] = w.chunks[0][n:]
	if len(w.chunks[0]) == 0 {
		w.chunks = w.chunks[1:]
	}
	return n, nil
}

func (w *fakeWire) WriteString(s string) (int, error) {
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	w.written = append(w.written, s)
	return len(s), nil
}

func (w *fakeWire) Close() error {
	w.closed++
	return w.closeErr
}

func TestSerialReadAssemblesSplitFrame(t *testing.T) {
	wire := &fakeWire{chunks: [][]byte{
		[]byte("10 1"),
		[]byte("00 200\r\n"),
	}}
	s := newSerial("serial", wire, PlainCodec{}, logging.Discard())

	// First tick: partial frame only.
	if r := s.Read(); r != nil {
		t.Fatalf("Read() = %v before frame complete, want nil", r)
	}

	// Second tick completes the frame.
	r := s.Read()
	assertReading(t, r, 10, []int64{100, 200})
}

func TestSerialReadDrainsBacklogOnePerTick(t *testing.T) {
	wire := &fakeWire{chunks: [][]byte{
		[]byte("10 1 2\r\n11 3 4\r\n"),
	}}
	s := newSerial("serial", wire, PlainCodec{}, logging.Discard())

	assertReading(t, s.Read(), 10, []int64{1, 2})
	assertReading(t, s.Read(), 11, []int64{3, 4})
	if r := s.Read(); r != nil {
		t.Errorf("Read() = %v after drain, want nil", r)
	}
}

func TestSerialReadMalformedFrame(t *testing.T) {
	wire := &fakeWire{chunks: [][]byte{
		[]byte("garbage\r\n10 1 2\r\n"),
	}}
	s := newSerial("serial", wire, PlainCodec{}, logging.Discard())

	// Malformed frame is dropped; the stream keeps going.
	if r := s.Read(); r != nil {
		t.Fatalf("Read() = %v for malformed frame, want nil", r)
	}
	assertReading(t, s.Read(), 10, []int64{1, 2})
}

func TestSerialReadError(t *testing.T) {
	wire := &fakeWire{readErr: errors.New("device gone")}
	s := newSerial("serial", wire, PlainCodec{}, logging.Discard())

	if r := s.Read(); r != nil {
		t.Errorf("Read() = %v on transport error, want nil", r)
	}
}

func TestSerialIdleRead(t *testing.T) {
	s := newSerial("serial", &fakeWire{}, PlainCodec{}, logging.Discard())

	if r := s.Read(); r != nil {
		t.Errorf("Read() = %v with no data, want nil", r)
	}
}

func TestSerialName(t *testing.T) {
	s := newSerial("tty0", &fakeWire{}, PlainCodec{}, logging.Discard())
	if s.Name() != "tty0" {
		t.Errorf("Name() = %q, want %q", s.Name(), "tty0")
	}
}

func TestSerialSetAndRunNoOp(t *testing.T) {
	wire := &fakeWire{}
	s := newSerial("serial", wire, PlainCodec{}, logging.Discard())

	s.Set(map[string]string{"baseid": "15"})
	s.Run()

	if len(wire.written) != 0 {
		t.Errorf("plain serial wrote %v, want nothing", wire.written)
	}
}

func TestSerialClose(t *testing.T) {
	wire := &fakeWire{}
	s := newSerial("serial", wire, PlainCodec{}, logging.Discard())

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if wire.closed != 1 {
		t.Errorf("close calls = %d, want 1", wire.closed)
	}
}

func TestNewSerialMissingDevice(t *testing.T) {
	_, err := NewSerial(SerialConfig{
		Name:   "serial",
		Device: "/dev/does-not-exist",
	}, logging.Discard())
	if !errors.Is(err, ErrInit) {
		t.Errorf("NewSerial() error = %v, want ErrInit", err)
	}
}
