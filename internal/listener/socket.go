package listener

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/emberwatt/ember-gateway/internal/infrastructure/logging"
)

// connReadTimeout bounds how long an accepted connection may take to
// deliver its payload. Peers send one line and close, so this only trips
// on misbehaving clients.
const connReadTimeout = 200 * time.Millisecond

// acceptPollTimeout bounds the per-tick accept poll. Long enough for the
// runtime to attempt the accept, short enough that an idle tick returns
// essentially immediately.
const acceptPollTimeout = time.Millisecond

// SocketConfig configures a TCP socket listener.
type SocketConfig struct {
	// Name identifies the listener in logs and settings routing.
	Name string

	// Port is the TCP port to listen on.
	Port int
}

// Socket reads plain integer frames from one-shot TCP connections.
//
// Each tick performs a bounded accept poll: a pending peer is
// accepted, read once, and closed immediately. Bytes feed the same receive
// buffer as the serial sources, so a backlog of complete frames keeps
// draining one per tick even when no new connection arrives.
type Socket struct {
	name    string
	ingress *sockIngress
	codec   Codec
	log     *logging.Logger
}

// NewSocket opens the listening socket and returns a socket listener.
// An invalid or unbindable port wraps ErrInit.
func NewSocket(cfg SocketConfig, log *logging.Logger) (*Socket, error) {
	log = log.With("listener", cfg.Name)
	ingress, err := openIngress(cfg.Port, log)
	if err != nil {
		return nil, err
	}
	return &Socket{
		name:    cfg.Name,
		ingress: ingress,
		codec:   PlainCodec{},
		log:     log,
	}, nil
}

// Name implements Source.
func (s *Socket) Name() string {
	return s.name
}

// Read polls for a pending connection, then drains at most one buffered
// frame through the codec.
func (s *Socket) Read() *Reading {
	s.ingress.poll()

	frame, ok := s.ingress.buf.NextFrame()
	if !ok {
		return nil
	}

	s.log.Info("socket RX", "frame", frame)
	reading, err := s.codec.Decode(frame)
	if err != nil {
		s.log.Warn("misformed RX frame", "frame", frame)
		return nil
	}
	if reading != nil {
		s.log.Debug("decoded reading", "node", reading.Node, "values", reading.Values)
	}
	return reading
}

// Set implements Source. The socket listener has no settings.
func (s *Socket) Set(map[string]string) {}

// Run implements Source. The socket listener has no background work.
func (s *Socket) Run() {}

// Close releases the listening socket. Idempotent.
func (s *Socket) Close() error {
	return s.ingress.close()
}

// sockIngress is the accept-read-close ingress shared by Socket and
// Repeater: a listening TCP endpoint plus the receive buffer its one-shot
// connections feed.
type sockIngress struct {
	ln     *net.TCPListener
	buf    lineBuffer
	closed bool
	log    *logging.Logger
}

// openIngress binds the listening socket, mapping failures to ErrInit.
func openIngress(port int, log *logging.Logger) (*sockIngress, error) {
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: invalid socket port %d", ErrInit, port)
	}
	log.Debug("opening socket", "port", port)
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{Port: port})
	if err != nil {
		log.Error("socket open failed", "port", port, "error", err)
		return nil, fmt.Errorf("%w: could not open port %d: %w", ErrInit, port, err)
	}
	return &sockIngress{ln: ln, log: log}, nil
}

// newIngress wraps an existing listener; used by tests to bind an
// ephemeral port.
func newIngress(ln *net.TCPListener, log *logging.Logger) *sockIngress {
	return &sockIngress{ln: ln, log: log}
}

// poll performs the non-blocking readiness check: if a peer connection is
// pending it is accepted, read up to one chunk, closed, and the bytes are
// appended to the receive buffer. With no peer pending it returns at once.
func (in *sockIngress) poll() {
	if in.ln == nil || in.closed {
		return
	}

	// A near-immediate deadline bounds Accept to one readiness check:
	// a queued connection is accepted at once, otherwise the call gives
	// up within the millisecond. An already-expired deadline would not
	// work here — the runtime fails the accept before trying it.
	if err := in.ln.SetDeadline(time.Now().Add(acceptPollTimeout)); err != nil {
		in.log.Warn("socket poll failed", "error", err)
		return
	}

	conn, err := in.ln.AcceptTCP()
	if err != nil {
		if !errors.Is(err, os.ErrDeadlineExceeded) {
			in.log.Warn("socket accept failed", "error", err)
		}
		return
	}
	defer conn.Close() //nolint:errcheck // One-shot connection, nothing to do on close failure

	if err := conn.SetReadDeadline(time.Now().Add(connReadTimeout)); err != nil {
		in.log.Warn("socket read setup failed", "error", err)
		return
	}

	chunk := make([]byte, readChunkSize)
	n, err := conn.Read(chunk)
	if n > 0 {
		in.buf.Append(chunk[:n])
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrDeadlineExceeded) {
		in.log.Warn("socket read failed", "error", err)
	}
}

// close releases the listening socket. Idempotent.
func (in *sockIngress) close() error {
	if in.ln == nil || in.closed {
		return nil
	}
	in.closed = true
	in.log.Debug("closing socket")
	return in.ln.Close()
}
