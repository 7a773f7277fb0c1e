package listener

import (
	"fmt"
	"strconv"
	"strings"
)

// Codec decodes one terminator-stripped text frame into a Reading.
//
// A nil Reading with a nil error means the frame was informational and is
// discarded silently. A non-nil error marks the frame as malformed; the
// transport logs it and moves on.
type Codec interface {
	Decode(frame string) (*Reading, error)
}

// PlainCodec decodes the generic frame format: whitespace-separated
// integers, first token the node ID, remaining tokens the values.
type PlainCodec struct{}

// Decode implements Codec.
func (PlainCodec) Decode(frame string) (*Reading, error) {
	tokens := strings.Fields(frame)

	// A reading is a node plus at least one value.
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedFrame, frame)
	}

	ints, err := parseInts(tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedFrame, frame)
	}

	values := make([]Value, 0, len(ints)-1)
	for _, v := range ints[1:] {
		values = append(values, IntValue(v))
	}
	return &Reading{Node: int(ints[0]), Values: values}, nil
}

// PairedCodec decodes frames from the radio bridge: the node ID followed by
// an even number of byte tokens, each consecutive (lsb, msb) pair
// recombining into one 16-bit signed value.
type PairedCodec struct{}

// signRemapCutoff is the unsigned value above which the bridge's encoding
// is read as negative. The deployed decoder uses strictly-greater-than
// 32768, one off the conventional two's-complement boundary; downstream
// consumers depend on this exact cutoff, so it is kept as-is.
const signRemapCutoff = 32768

// Decode implements Codec.
func (PairedCodec) Decode(frame string) (*Reading, error) {
	tokens := strings.Fields(frame)

	// Bridge status chatter starts with ">" or "->". Normal traffic,
	// not malformed data.
	if len(tokens) > 0 && (strings.HasPrefix(tokens[0], ">") || strings.HasPrefix(tokens[0], "->")) {
		return nil, nil
	}

	// One node token plus low/high byte pairs: odd count, at least 3.
	if len(tokens) < 3 || len(tokens)%2 == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedFrame, frame)
	}

	ints, err := parseInts(tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedFrame, frame)
	}

	values := make([]Value, 0, (len(ints)-1)/2)
	for i := 1; i+1 < len(ints); i += 2 {
		value := ints[i] + 256*ints[i+1]
		if value > signRemapCutoff {
			value -= 65536
		}
		values = append(values, IntValue(value))
	}
	return &Reading{Node: int(ints[0]), Values: values}, nil
}

// parseInts parses every token as a signed integer, failing on the first
// token that is not one.
func parseInts(tokens []string) ([]int64, error) {
	ints := make([]int64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, err
		}
		ints[i] = v
	}
	return ints, nil
}
