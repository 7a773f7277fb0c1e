package listener

import (
	"net"
	"testing"
	"time"

	"github.com/emberwatt/ember-gateway/internal/infrastructure/logging"
)

// testRepeater builds a repeater over a fake serial wire and an ephemeral
// loopback ingress, returning the address peers should dial.
func testRepeater(t *testing.T) (*Repeater, *fakeWire, string) {
	t.Helper()

	wire := &fakeWire{}
	bridge := newRadioBridge("repeater", wire, logging.Discard())
	bridge.sleep = func(time.Duration) {}

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("binding loopback: %v", err)
	}

	r := newRepeater(bridge, newIngress(ln, logging.Discard()))
	t.Cleanup(func() { r.Close() })
	return r, wire, ln.Addr().String()
}

// runUntilWritten ticks Run until the serial wire has seen want writes.
func runUntilWritten(t *testing.T, r *Repeater, wire *fakeWire, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.Run()
		if len(wire.written) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("serial writes = %v, want %d entries", wire.written, want)
}

func TestRepeaterRelaysFrameVerbatim(t *testing.T) {
	r, wire, addr := testRepeater(t)

	// Payload is not valid frame data. The relay must not care.
	send(t, addr, "anything at all\r\n")

	runUntilWritten(t, r, wire, 1)
	if wire.written[0] != "anything at all" {
		t.Errorf("relayed = %q, want %q", wire.written[0], "anything at all")
	}
}

func TestRepeaterRelaysOneFramePerRun(t *testing.T) {
	r, wire, addr := testRepeater(t)

	send(t, addr, "first\r\nsecond\r\n")

	runUntilWritten(t, r, wire, 1)
	if wire.written[0] != "first" {
		t.Errorf("first relay = %q, want %q", wire.written[0], "first")
	}

	// The second frame is already buffered; one more Run drains it.
	r.Run()
	if len(wire.written) != 2 || wire.written[1] != "second" {
		t.Errorf("written = %v, want [first second]", wire.written)
	}
}

func TestRepeaterRunIncludesTimeBroadcast(t *testing.T) {
	r, wire, _ := testRepeater(t)

	clock := time.Date(2026, 8, 30, 7, 30, 0, 0, time.UTC)
	r.RadioBridge.now = func() time.Time { return clock }
	r.Set(map[string]string{"sendtimeinterval": "60"})

	r.Run()
	if len(wire.written) != 1 || wire.written[0] != "07,30,00,s" {
		t.Errorf("written = %v, want time broadcast 07,30,00,s", wire.written)
	}
}

func TestRepeaterReadStillDecodes(t *testing.T) {
	r, wire, _ := testRepeater(t)

	wire.chunks = [][]byte{[]byte("1 10 0 246 255\r\n")}
	assertReading(t, r.Read(), 1, []int64{10, -10})
}

func TestRepeaterClose(t *testing.T) {
	r, wire, _ := testRepeater(t)

	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if wire.closed == 0 {
		t.Error("serial wire not closed")
	}

	// Second close is safe.
	if err := r.Close(); err != nil {
		t.Errorf("repeat Close() error = %v", err)
	}
}
