package listener

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Reading is one decoded record from a source: a node identifier followed by
// that node's values, in wire order. Readings are produced fresh on every
// successful decode and never mutated afterwards.
type Reading struct {
	Node   int     `json:"node"`
	Values []Value `json:"values"`
}

// valueKind discriminates the three shapes a Value can take.
type valueKind int

const (
	kindNull valueKind = iota
	kindInt
	kindText
)

// Value is one element of a Reading. Serial, radio and socket sources
// produce integer values; the sensor bus produces textual temperature
// readings, or null for dummy slots and absent or unreadable sensors.
//
// Value marshals to JSON as a number, a string, or null.
type Value struct {
	kind valueKind
	num  int64
	text string
}

// IntValue returns a numeric Value.
func IntValue(v int64) Value {
	return Value{kind: kindInt, num: v}
}

// TextValue returns a textual Value, as read off the sensor bus.
func TextValue(s string) Value {
	return Value{kind: kindText, text: s}
}

// NullValue returns the null Value used to hold a slot position open.
func NullValue() Value {
	return Value{kind: kindNull}
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == kindNull
}

// Int returns the numeric value and whether the Value is numeric.
func (v Value) Int() (int64, bool) {
	return v.num, v.kind == kindInt
}

// Float returns the value as a float64 where one can be derived: numeric
// values directly, textual values by parsing. Null values report false.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case kindInt:
		return float64(v.num), true
	case kindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String renders the value for logs: the number, the text, or "null".
func (v Value) String() string {
	switch v.kind {
	case kindInt:
		return strconv.FormatInt(v.num, 10)
	case kindText:
		return v.text
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindInt:
		return []byte(strconv.FormatInt(v.num, 10)), nil
	case kindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}
