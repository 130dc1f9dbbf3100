package nativeregistry

import (
	"math"

	"github.com/daimatz/gojvm/pkg/engine"
)

// registerLangIntrinsics relocates the java/lang.* and jdk/internal.*
// intrinsics from the teacher's executeNativeMethod switch (pkg/vm/vm.go)
// into individual registry entries.
func registerLangIntrinsics(r *Registry) {
	r.Register(Key{Class: "java/lang/Object", Name: "hashCode", Descriptor: "()I"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.IntValue(int32(args[0].Ref))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/Object", Name: "registerNatives", Descriptor: "()V"}, noop)
	r.Register(Key{Class: "java/lang/System", Name: "registerNatives", Descriptor: "()V"}, noop)
	r.Register(Key{Class: "java/lang/Thread", Name: "registerNatives", Descriptor: "()V"}, noop)
	r.Register(Key{Class: "java/lang/Class", Name: "registerNatives", Descriptor: "()V"}, noop)

	r.Register(Key{Class: "java/lang/System", Name: "nanoTime", Descriptor: "()J"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.LongValue(0)
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/System", Name: "currentTimeMillis", Descriptor: "()J"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.LongValue(0)
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/System", Name: "arraycopy", Descriptor: "(Ljava/lang/Object;ILjava/lang/Object;II)V"}, systemArraycopy)

	r.Register(Key{Class: "java/lang/Runtime", Name: "maxMemory", Descriptor: "()J"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.LongValue(1 << 30)
		return &ret, nil
	})

	r.Register(Key{Class: "java/lang/Float", Name: "floatToRawIntBits", Descriptor: "(F)I"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.IntValue(int32(math.Float32bits(args[0].Float)))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/Float", Name: "isNaN", Descriptor: "(F)Z"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.BoolAsInt(math.IsNaN(float64(args[0].Float)))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/Double", Name: "doubleToRawLongBits", Descriptor: "(D)J"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.LongValue(int64(math.Float64bits(args[0].Double)))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/Double", Name: "longBitsToDouble", Descriptor: "(J)D"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.DoubleValue(math.Float64frombits(uint64(args[0].Long)))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/Math", Name: "sqrt", Descriptor: "(D)D"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.DoubleValue(math.Sqrt(args[0].Double))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/Math", Name: "pow", Descriptor: "(DD)D"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.DoubleValue(math.Pow(args[0].Double, args[1].Double))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/Math", Name: "abs", Descriptor: "(I)I"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		v := args[0].Int
		if v < 0 {
			v = -v
		}
		ret := engine.IntValue(v)
		return &ret, nil
	})

	r.Register(Key{Class: "java/lang/Thread", Name: "currentThread", Descriptor: "()Ljava/lang/Thread;"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.NullValue()
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/Thread", Name: "setPriority", Descriptor: "(I)V"}, noop)

	r.Register(Key{Class: "jdk/internal/misc/VM", Name: "initialize", Descriptor: "()V"}, noop)
}

func noop(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
	return nil, nil
}

// systemArraycopy implements System.arraycopy over heap array objects,
// grounded on the teacher's case in executeNativeMethod (pkg/vm/vm.go).
func systemArraycopy(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
	src, srcPos, dst, dstPos, length := args[0], args[1].Int, args[2], args[3].Int, args[4].Int
	srcObj := vm.Heap.Get(vmHeapHandle(src.Ref))
	dstObj := vm.Heap.Get(vmHeapHandle(dst.Ref))
	copy(dstObj.Elements[dstPos:dstPos+length], srcObj.Elements[srcPos:srcPos+length])
	return nil, nil
}
