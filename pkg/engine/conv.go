package engine

import "github.com/daimatz/gojvm/pkg/engine/heap"

// valueToSlot/slotToValue cross the engine.Value <-> heap.Slot boundary;
// the two types are intentionally identical in shape (see heap.Slot's doc
// comment) so this is a pure tag translation.
func valueToSlot(v Value) heap.Slot {
	return heap.Slot{Tag: byte(v.Type), I32: v.Int, I64: v.Long, F32: v.Float, F64: v.Double, Ref: heap.Handle(v.Ref)}
}

func slotToValue(s heap.Slot) Value {
	return Value{Type: ValueType(s.Tag), Int: s.I32, Long: s.I64, Float: s.F32, Double: s.F64, Ref: uint32(s.Ref)}
}
