// Package engine is the execution core: the bytecode interpreter, its
// operand-stack/local-variable frame representation, and the thread that
// drives a call stack to completion (spec §4.6).
package engine

import "github.com/daimatz/gojvm/pkg/classfile"

// ValueType tags Value's variant: spec §3's "Runtime value" sum
// `Int | Long | Float | Double | Ref | ReturnAddress | Uninitialised`,
// completed from the teacher's `pkg/vm/frame.go` which only had
// Int/Ref/Null.
type ValueType int

const (
	TypeInt ValueType = iota
	TypeLong
	TypeFloat
	TypeDouble
	TypeRef
	TypeReturnAddress
	TypeUninitialised
)

// Value is a single operand-stack or local-variable slot. Long and Double
// values occupy one Value here (unlike the two raw JVM slots they occupy in
// a real frame) but IsCategory2 lets callers account for slot width when it
// matters (e.g. local-variable indexing).
type Value struct {
	Type    ValueType
	Int     int32
	Long    int64
	Float   float32
	Double  float64
	Ref     uint32 // heap.Handle; 0 == null
	RetAddr int
}

// IsCategory2 reports whether v occupies two local-variable/stack slots in
// the original JVM layout (spec §3's double-slot rule for Long/Double).
func (v Value) IsCategory2() bool {
	return v.Type == TypeLong || v.Type == TypeDouble
}

func IntValue(i int32) Value       { return Value{Type: TypeInt, Int: i} }
func LongValue(l int64) Value      { return Value{Type: TypeLong, Long: l} }
func FloatValue(f float32) Value   { return Value{Type: TypeFloat, Float: f} }
func DoubleValue(d float64) Value  { return Value{Type: TypeDouble, Double: d} }
func RefValue(h uint32) Value      { return Value{Type: TypeRef, Ref: h} }
func NullValue() Value             { return Value{Type: TypeRef, Ref: 0} }
func ReturnAddrValue(pc int) Value { return Value{Type: TypeReturnAddress, RetAddr: pc} }

// BoolAsInt renders a boolean as the JVM's canonical int encoding.
func BoolAsInt(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

// ZeroValueFor returns the default runtime Value for a Type, used by opNew
// to fill a new object's instance fields (spec §3's default-value rule; the
// engine.Value counterpart of rt.defaultValue).
func ZeroValueFor(t classfile.Type) Value {
	switch t.Kind {
	case classfile.KindLong:
		return LongValue(0)
	case classfile.KindFloat:
		return FloatValue(0)
	case classfile.KindDouble:
		return DoubleValue(0)
	case classfile.KindInstance, classfile.KindArray:
		return NullValue()
	default:
		return IntValue(0)
	}
}
