package nativeregistry

import (
	"fmt"

	"github.com/daimatz/gojvm/pkg/engine"
	"github.com/daimatz/gojvm/pkg/engine/heap"
)

// registerIOIntrinsics relocates PrintStream println/print behavior from
// the teacher's executeNativeMethod switch. These intrinsics are registered
// under the java/io/PrintStream class key and simply stringify their one
// argument.
func registerIOIntrinsics(r *Registry) {
	for _, desc := range []string{
		"(Ljava/lang/String;)V", "(I)V", "(J)V", "(D)V", "(F)V", "(Z)V", "(C)V", "(Ljava/lang/Object;)V",
	} {
		d := desc
		r.Register(Key{Class: "java/io/PrintStream", Name: "println", Descriptor: d}, printlnImpl(d, true))
		r.Register(Key{Class: "java/io/PrintStream", Name: "print", Descriptor: d}, printlnImpl(d, false))
	}
	r.Register(Key{Class: "java/io/PrintStream", Name: "println", Descriptor: "()V"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		fmt.Println()
		return nil, nil
	})
}

func printlnImpl(descriptor string, newline bool) engine.NativeFunc {
	return func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		// args[0] is the PrintStream receiver, args[1] the value.
		v := args[len(args)-1]
		text := stringify(vm, descriptor, v)
		if newline {
			fmt.Println(text)
		} else {
			fmt.Print(text)
		}
		return nil, nil
	}
}

func stringify(vm *engine.VM, descriptor string, v engine.Value) string {
	switch v.Type {
	case engine.TypeInt:
		return fmt.Sprintf("%d", v.Int)
	case engine.TypeLong:
		return fmt.Sprintf("%d", v.Long)
	case engine.TypeFloat:
		return fmt.Sprintf("%v", v.Float)
	case engine.TypeDouble:
		return fmt.Sprintf("%v", v.Double)
	case engine.TypeRef:
		if v.Ref == 0 {
			return "null"
		}
		obj := vm.Heap.Get(vmHeapHandle(v.Ref))
		if obj.Kind == heap.KindString {
			return obj.Text
		}
		return "<object>"
	default:
		return ""
	}
}
