package serialport

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrUnsupportedBaud is returned by Open when the requested baud rate has no
// corresponding termios flag.
var ErrUnsupportedBaud = errors.New("serialport: unsupported baud rate")

// Port is a raw, non-blocking Linux serial port.
//
// The port is opened with O_NONBLOCK and left in that mode: ReadAvailable
// returns immediately with whatever bytes the driver has buffered, possibly
// none. This suits a cooperative polling loop where no call may block.
//
// A Port is owned by exactly one listener; methods are not synchronised for
// concurrent use beyond Close, which is safe to call from any goroutine and
// idempotent.
type Port struct {
	fd        int
	device    string
	closeOnce sync.Once
	closeErr  error
}

// Open opens the serial device at the given baud rate in raw, non-blocking
// mode (8N1, no echo, no line discipline).
func Open(device string, baud int) (*Port, error) {
	baudFlag, err := baudToUnix(baud)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0o666)
	if err != nil {
		return nil, fmt.Errorf("serialport: opening %s: %w", device, err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd) //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("serialport: get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8

	// Baud rate
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baudFlag

	// VMIN=0, VTIME=0: a read returns immediately with whatever is available.
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		unix.Close(fd) //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("serialport: set termios: %w", err)
	}

	return &Port{fd: fd, device: device}, nil
}

// ReadAvailable reads whatever bytes are currently buffered into p without
// blocking. It returns 0 with a nil error when no data is pending.
func (p *Port) ReadAvailable(buf []byte) (int, error) {
	n, err := unix.Read(p.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return 0, nil
		}
		return 0, fmt.Errorf("serialport: reading %s: %w", p.device, err)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// WriteString writes s to the serial device.
func (p *Port) WriteString(s string) (int, error) {
	n, err := unix.Write(p.fd, []byte(s))
	if err != nil {
		return n, fmt.Errorf("serialport: writing %s: %w", p.device, err)
	}
	return n, nil
}

// Device returns the device path the port was opened with.
func (p *Port) Device() string {
	return p.device
}

// Close releases the underlying file descriptor.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		if err := unix.Close(p.fd); err != nil {
			p.closeErr = fmt.Errorf("serialport: closing %s: %w", p.device, err)
		}
	})
	return p.closeErr
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBaud, baud)
	}
}
