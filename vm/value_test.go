package vm

import (
	"math"
	"testing"
)

func TestValueString(t *testing.T) {
	desc := &NativeFunction{Name: "print", Arity: 1}
	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{True, "true"},
		{False, "false"},
		{FromNumber(3), "3"},
		{FromNumber(2.5), "2.5"},
		{FromNumber(-0.125), "-0.125"},
		{FromNumber(1e21), "1e+21"},
		{FromNumber(math.Inf(1)), "+Inf"},
		{FromString("hi"), "hi"},
		{FromNative(desc), "<native print/1>"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValueFalsey(t *testing.T) {
	falsey := []Value{Nil, False}
	truthy := []Value{True, FromNumber(0), FromString(""), FromNative(&NativeFunction{})}

	for _, v := range falsey {
		if !v.IsFalsey() {
			t.Errorf("%v should be falsey", v)
		}
	}
	for _, v := range truthy {
		if v.IsFalsey() {
			t.Errorf("%v should be truthy", v)
		}
	}
}

func TestValueEqual(t *testing.T) {
	a := &NativeFunction{Name: "a", ID: 1}
	b := &NativeFunction{Name: "a", ID: 1}
	c := &NativeFunction{Name: "c", ID: 2}

	tests := []struct {
		x, y Value
		want bool
	}{
		{Nil, Nil, true},
		{Nil, False, false},
		{FromNumber(1), FromNumber(1), true},
		{FromNumber(1), FromString("1"), false},
		{FromString("s"), FromString("s"), true},
		{FromNative(a), FromNative(b), true},
		{FromNative(a), FromNative(c), false},
		{FromNumber(math.NaN()), FromNumber(math.NaN()), false},
	}

	for _, tt := range tests {
		if got := tt.x.Equal(tt.y); got != tt.want {
			t.Errorf("%v == %v: got %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestValueNativeAccessor(t *testing.T) {
	if FromNumber(1).Native() != nil {
		t.Error("Native() on a number should be nil")
	}
	desc := &NativeFunction{Name: "f"}
	if FromNative(desc).Native() != desc {
		t.Error("Native() lost the descriptor")
	}
}
