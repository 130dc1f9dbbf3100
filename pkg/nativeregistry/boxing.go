package nativeregistry

import (
	"github.com/daimatz/gojvm/pkg/engine"
	"github.com/daimatz/gojvm/pkg/engine/heap"
)

// registerBoxingIntrinsics relocates the teacher's standalone NativeInteger
// box/unbox helpers (pkg/native/integer.go) into registry entries backed by
// a real heap-allocated java/lang/Integer instance rather than a bare Go
// struct, so boxed values participate in ordinary field/method resolution
// like any other object.
func registerBoxingIntrinsics(r *Registry) {
	r.Register(Key{Class: "java/lang/Integer", Name: "valueOf", Descriptor: "(I)Ljava/lang/Integer;"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		h, err := boxInt(vm, "java/lang/Integer", args[0].Int)
		if err != nil {
			return nil, err
		}
		ret := engine.RefValue(h)
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/Integer", Name: "intValue", Descriptor: "()I"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.IntValue(unboxInt(vm, args[0]))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/Long", Name: "valueOf", Descriptor: "(J)Ljava/lang/Long;"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		h, err := boxLong(vm, "java/lang/Long", args[0].Long)
		if err != nil {
			return nil, err
		}
		ret := engine.RefValue(h)
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/Long", Name: "longValue", Descriptor: "()J"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.LongValue(unboxLong(vm, args[0]))
		return &ret, nil
	})
}

// boxInt allocates an instance of className with its sole declared field
// set to v, the same shape opNew uses for ordinary `new` (spec §4.7's
// allocation path), so a boxed primitive is indistinguishable from one
// constructed by bytecode.
func boxInt(vm *engine.VM, className string, v int32) (uint32, error) {
	target, err := vm.Area.GetOrLoad(className)
	if err != nil {
		return 0, err
	}
	if err := vm.Area.EnsureInitialized(target.Handle()); err != nil {
		return 0, err
	}
	defaults := []heap.Slot{{Tag: byte(engine.TypeInt), I32: v}}
	h := vm.Heap.AllocInstance(uint32(target.Name()), defaults)
	return uint32(h), nil
}

func boxLong(vm *engine.VM, className string, v int64) (uint32, error) {
	target, err := vm.Area.GetOrLoad(className)
	if err != nil {
		return 0, err
	}
	if err := vm.Area.EnsureInitialized(target.Handle()); err != nil {
		return 0, err
	}
	defaults := []heap.Slot{{Tag: byte(engine.TypeLong), I64: v}}
	h := vm.Heap.AllocInstance(uint32(target.Name()), defaults)
	return uint32(h), nil
}

func unboxInt(vm *engine.VM, v engine.Value) int32 {
	if v.Ref == 0 {
		return 0
	}
	obj := vm.Heap.Get(vmHeapHandle(v.Ref))
	if obj.Kind != heap.KindInstance || len(obj.Fields) == 0 {
		return 0
	}
	return obj.Fields[0].I32
}

func unboxLong(vm *engine.VM, v engine.Value) int64 {
	if v.Ref == 0 {
		return 0
	}
	obj := vm.Heap.Get(vmHeapHandle(v.Ref))
	if obj.Kind != heap.KindInstance || len(obj.Fields) == 0 {
		return 0
	}
	return obj.Fields[0].I64
}
