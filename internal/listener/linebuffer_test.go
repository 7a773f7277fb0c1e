package listener

import "testing"

func TestLineBufferSingleFrame(t *testing.T) {
	var b lineBuffer
	b.Append([]byte("10 100 200\r\n"))

	frame, ok := b.NextFrame()
	if !ok {
		t.Fatal("NextFrame() found no frame")
	}
	if frame != "10 100 200" {
		t.Errorf("frame = %q, want %q", frame, "10 100 200")
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestLineBufferPartialFrame(t *testing.T) {
	var b lineBuffer
	b.Append([]byte("10 100"))

	if _, ok := b.NextFrame(); ok {
		t.Fatal("NextFrame() returned a frame without a terminator")
	}

	// Rest of the frame arrives in a later chunk.
	b.Append([]byte(" 200\r\n"))
	frame, ok := b.NextFrame()
	if !ok {
		t.Fatal("NextFrame() found no frame after completion")
	}
	if frame != "10 100 200" {
		t.Errorf("frame = %q, want %q", frame, "10 100 200")
	}
}

func TestLineBufferRetainsRemainder(t *testing.T) {
	var b lineBuffer

	// Chunk boundaries straddle the frames: "5 1 2\r\n5 3" then "4\r\n".
	b.Append([]byte("5 1 2\r\n5 3"))
	b.Append([]byte("4\r\n"))

	frame, ok := b.NextFrame()
	if !ok || frame != "5 1 2" {
		t.Fatalf("first frame = %q, %v; want %q, true", frame, ok, "5 1 2")
	}

	frame, ok = b.NextFrame()
	if !ok || frame != "5 34" {
		t.Fatalf("second frame = %q, %v; want %q, true", frame, ok, "5 34")
	}

	if _, ok := b.NextFrame(); ok {
		t.Error("NextFrame() returned a third frame from empty buffer")
	}
}

func TestLineBufferEmptyFrame(t *testing.T) {
	var b lineBuffer
	b.Append([]byte("\r\n10 1 2\r\n"))

	// A bare terminator yields an empty frame; the codec rejects it.
	frame, ok := b.NextFrame()
	if !ok || frame != "" {
		t.Fatalf("first frame = %q, %v; want empty, true", frame, ok)
	}

	frame, ok = b.NextFrame()
	if !ok || frame != "10 1 2" {
		t.Fatalf("second frame = %q, %v; want %q, true", frame, ok, "10 1 2")
	}
}

func TestLineBufferBareLF(t *testing.T) {
	var b lineBuffer
	b.Append([]byte("10 1 2\n"))

	// Only CRLF terminates a frame.
	if _, ok := b.NextFrame(); ok {
		t.Error("NextFrame() treated bare LF as a terminator")
	}
}
