package listener

import "bytes"

// frameTerminator delimits frames on serial and socket streams.
const frameTerminator = "\r\n"

// lineBuffer accumulates raw bytes from a stream transport across ticks and
// yields one complete frame at a time.
//
// Each transport instance owns exactly one lineBuffer. NextFrame always
// extracts the text before the first terminator and keeps everything after
// it — including any further complete frames — for subsequent calls, so a
// backlog drains one frame per tick.
type lineBuffer struct {
	data []byte
}

// Append adds freshly received bytes to the buffer.
func (b *lineBuffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// NextFrame extracts the first complete frame, terminator stripped.
// It reports false when no terminator is present yet; the buffer keeps
// accumulating for frames that arrive in multiple I/O chunks.
func (b *lineBuffer) NextFrame() (string, bool) {
	i := bytes.Index(b.data, []byte(frameTerminator))
	if i < 0 {
		return "", false
	}
	frame := string(b.data[:i])
	b.data = b.data[i+len(frameTerminator):]
	return frame, true
}

// Len returns the number of buffered bytes awaiting a terminator.
func (b *lineBuffer) Len() int {
	return len(b.data)
}
