package vm

import (
	"fmt"
	"strconv"
)

// Kind identifies the dynamic type held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindNative
)

var kindNames = map[Kind]string{
	KindNil:    "nil",
	KindBool:   "bool",
	KindNumber: "number",
	KindString: "string",
	KindNative: "native",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Value is a Lantern value.
//
// Values are small tagged structs passed by value. Numbers are float64;
// strings are immutable Go strings; natives point at the descriptor the
// host registered, which the VM never mutates.
type Value struct {
	kind   Kind
	b      bool
	num    float64
	str    string
	native *NativeFunction
}

// Pre-defined values
var (
	Nil   = Value{kind: KindNil}
	True  = Value{kind: KindBool, b: true}
	False = Value{kind: KindBool, b: false}
)

// FromBool returns True or False.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromNumber boxes a float64.
func FromNumber(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// FromString boxes a string.
func FromString(s string) Value {
	return Value{kind: KindString, str: s}
}

// FromNative wraps a native function descriptor so it can live in a global.
func FromNative(fn *NativeFunction) Value {
	return Value{kind: KindNative, native: fn}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNil() bool     { return v.kind == KindNil }
func (v Value) IsBool() bool    { return v.kind == KindBool }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsString() bool  { return v.kind == KindString }
func (v Value) IsNative() bool  { return v.kind == KindNative }
func (v Value) Bool() bool      { return v.b }
func (v Value) Number() float64 { return v.num }
func (v Value) Str() string     { return v.str }

// Native returns the descriptor of a native value, or nil.
func (v Value) Native() *NativeFunction {
	if v.kind != KindNative {
		return nil
	}
	return v.native
}

// IsFalsey reports whether v counts as false in a condition.
// Only nil and false are falsey.
func (v Value) IsFalsey() bool {
	return v.kind == KindNil || (v.kind == KindBool && !v.b)
}

// Equal compares two values structurally. Values of different kinds are
// never equal; natives compare by dispatch id.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindNative:
		return v.native.ID == o.native.ID
	}
	return false
}

// String returns the display form used by print.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	case KindNative:
		return fmt.Sprintf("<native %s/%d>", v.native.Name, v.native.Arity)
	}
	return "<?>"
}
