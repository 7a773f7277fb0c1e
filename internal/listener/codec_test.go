package listener

import (
	"errors"
	"testing"
)

func TestPlainCodecDecode(t *testing.T) {
	tests := []struct {
		name       string
		frame      string
		wantNode   int
		wantValues []int64
		wantErr    bool
	}{
		{
			name:       "typical frame",
			frame:      "10 100 200",
			wantNode:   10,
			wantValues: []int64{100, 200},
		},
		{
			name:       "negative values",
			frame:      "5 -12 0",
			wantNode:   5,
			wantValues: []int64{-12, 0},
		},
		{
			name:       "extra whitespace",
			frame:      "  7   1\t2  ",
			wantNode:   7,
			wantValues: []int64{1, 2},
		},
		{
			name:    "single token",
			frame:   "10",
			wantErr: true,
		},
		{
			name:    "empty frame",
			frame:   "",
			wantErr: true,
		},
		{
			name:    "non-integer token",
			frame:   "10 abc 200",
			wantErr: true,
		},
		{
			name:    "float token",
			frame:   "10 1.5",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := PlainCodec{}.Decode(tt.frame)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Fatalf("Decode(%q) error = %v, want ErrMalformedFrame", tt.frame, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) error = %v", tt.frame, err)
			}
			assertReading(t, r, tt.wantNode, tt.wantValues)
		})
	}
}

func TestPairedCodecDecode(t *testing.T) {
	tests := []struct {
		name       string
		frame      string
		wantNode   int
		wantValues []int64
		wantErr    bool
		wantNil    bool
	}{
		{
			name:       "positive and negative pairs",
			frame:      "1 10 0 246 255",
			wantNode:   1,
			wantValues: []int64{10, -10},
		},
		{
			name:       "single pair",
			frame:      "2 0 0",
			wantNode:   2,
			wantValues: []int64{0},
		},
		{
			name:     "sign boundary stays positive",
			frame:    "3 0 128",
			wantNode: 3,
			// 0 + 256*128 = 32768, not above the cutoff.
			wantValues: []int64{32768},
		},
		{
			name:       "one past boundary goes negative",
			frame:      "3 1 128",
			wantNode:   3,
			wantValues: []int64{-32767},
		},
		{
			name:       "maximum unsigned maps to -1",
			frame:      "4 255 255",
			wantNode:   4,
			wantValues: []int64{-1},
		},
		{
			name:    "informational chevron",
			frame:   "> radio up",
			wantNil: true,
		},
		{
			name:    "informational arrow",
			frame:   "-> 15i",
			wantNil: true,
		},
		{
			name:    "even token count",
			frame:   "1 10 0 246",
			wantErr: true,
		},
		{
			name:    "too few tokens",
			frame:   "1 10",
			wantErr: true,
		},
		{
			name:    "empty frame",
			frame:   "",
			wantErr: true,
		},
		{
			name:    "non-integer token",
			frame:   "1 10 xx",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := PairedCodec{}.Decode(tt.frame)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Fatalf("Decode(%q) error = %v, want ErrMalformedFrame", tt.frame, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) error = %v", tt.frame, err)
			}
			if tt.wantNil {
				if r != nil {
					t.Fatalf("Decode(%q) = %v, want silent discard", tt.frame, r)
				}
				return
			}
			assertReading(t, r, tt.wantNode, tt.wantValues)
		})
	}
}

// assertReading checks a reading's node and integer values.
func assertReading(t *testing.T, r *Reading, node int, values []int64) {
	t.Helper()

	if r == nil {
		t.Fatal("reading is nil")
	}
	if r.Node != node {
		t.Errorf("node = %d, want %d", r.Node, node)
	}
	if len(r.Values) != len(values) {
		t.Fatalf("values = %d entries, want %d", len(r.Values), len(values))
	}
	for i, want := range values {
		got, ok := r.Values[i].Int()
		if !ok {
			t.Errorf("values[%d] is not an integer", i)
			continue
		}
		if got != want {
			t.Errorf("values[%d] = %d, want %d", i, got, want)
		}
	}
}
