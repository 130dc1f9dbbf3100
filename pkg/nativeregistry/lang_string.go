package nativeregistry

import (
	"strings"

	"github.com/daimatz/gojvm/pkg/engine"
	"github.com/daimatz/gojvm/pkg/engine/heap"
)

// registerStringIntrinsics relocates the teacher's String/StringBuilder
// method bodies (pkg/vm/vm.go's executeNativeMethod string cases) into
// registry entries. Thread.CallMethod consults the registry only for
// methods whose class file declares them native, so an entry here runs
// only where the loaded String class declares that method native; a
// String method with a bytecode body runs that body instead.
func registerStringIntrinsics(r *Registry) {
	r.Register(Key{Class: "java/lang/String", Name: "length", Descriptor: "()I"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		s := textOf(vm, args[0])
		ret := engine.IntValue(int32(len([]rune(s))))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/String", Name: "isEmpty", Descriptor: "()Z"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.BoolAsInt(textOf(vm, args[0]) == "")
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/String", Name: "toUpperCase", Descriptor: "()Ljava/lang/String;"}, stringTransform(strings.ToUpper))
	r.Register(Key{Class: "java/lang/String", Name: "toLowerCase", Descriptor: "()Ljava/lang/String;"}, stringTransform(strings.ToLower))
	r.Register(Key{Class: "java/lang/String", Name: "trim", Descriptor: "()Ljava/lang/String;"}, stringTransform(strings.TrimSpace))
	r.Register(Key{Class: "java/lang/String", Name: "intern", Descriptor: "()Ljava/lang/String;"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		h := vm.Strings.GetOrNew(vm.Heap, textOf(vm, args[0]))
		ret := engine.RefValue(uint32(h))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/String", Name: "equals", Descriptor: "(Ljava/lang/Object;)Z"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		other := args[1]
		if other.Ref == 0 {
			ret := engine.BoolAsInt(false)
			return &ret, nil
		}
		ret := engine.BoolAsInt(textOf(vm, args[0]) == textOf(vm, other))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/String", Name: "concat", Descriptor: "(Ljava/lang/String;)Ljava/lang/String;"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		h := vm.Strings.GetOrNew(vm.Heap, textOf(vm, args[0])+textOf(vm, args[1]))
		ret := engine.RefValue(uint32(h))
		return &ret, nil
	})
	r.Register(Key{Class: "java/lang/String", Name: "hashCode", Descriptor: "()I"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.IntValue(javaStringHash(textOf(vm, args[0])))
		return &ret, nil
	})
}

func stringTransform(fn func(string) string) engine.NativeFunc {
	return func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		h := vm.Strings.GetOrNew(vm.Heap, fn(textOf(vm, args[0])))
		ret := engine.RefValue(uint32(h))
		return &ret, nil
	}
}

func textOf(vm *engine.VM, v engine.Value) string {
	if v.Ref == 0 {
		return ""
	}
	obj := vm.Heap.Get(vmHeapHandle(v.Ref))
	if obj.Kind != heap.KindString {
		return ""
	}
	return obj.Text
}

// javaStringHash reproduces java.lang.String.hashCode's defined recurrence
// `s[0]*31^(n-1) + ... + s[n-1]`.
func javaStringHash(s string) int32 {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	return h
}
