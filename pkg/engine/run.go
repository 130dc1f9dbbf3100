package engine

import (
	"fmt"

	"github.com/daimatz/gojvm/pkg/classfile"
	"github.com/daimatz/gojvm/pkg/rt"
)

// RunMain loads mainClass, resolves its `public static void main(String[])`
// entry point, builds a String[] from args, and drives it to completion
// (spec §6's CLI contract).
func (vm *VM) RunMain(mainClass string, args []string) error {
	class, err := vm.Area.GetOrLoad(mainClass)
	if err != nil {
		return err
	}
	if err := vm.Area.EnsureInitialized(class.Handle()); err != nil {
		return err
	}
	method, err := vm.Area.ResolveMethod(class.Handle(), rt.MemberKey{Name: "main", Descriptor: "([Ljava/lang/String;)V"})
	if err != nil {
		return err
	}
	if !method.IsStatic() {
		return fmt.Errorf("engine: %s.main is not static", mainClass)
	}

	argsHandle := vm.buildStringArray(args)
	thread := vm.NewThread()
	_, err = thread.CallMethod(class.Handle(), method, []Value{RefValue(uint32(argsHandle))})
	return err
}

// ClinitInvoker returns the callback rt.MethodArea.EnsureInitialized uses
// to run a class's <clinit>, closing over this VM so the method area never
// has to import engine directly (see rt.ClinitInvoker's doc comment).
func (vm *VM) ClinitInvoker() rt.ClinitInvoker {
	return func(area *rt.MethodArea, class *rt.InstanceClass, clinit *rt.Method) error {
		_, err := vm.NewThread().CallMethod(class.Handle(), clinit, nil)
		return err
	}
}

func (vm *VM) buildStringArray(args []string) uint32 {
	h := vm.Heap.AllocArray(byte(classfile.KindInstance), len(args), valueToSlot(NullValue()))
	obj := vm.Heap.Get(heapHandle(uint32(h)))
	for i, a := range args {
		sh := vm.Strings.GetOrNew(vm.Heap, a)
		obj.Elements[i] = valueToSlot(RefValue(uint32(sh)))
	}
	return uint32(h)
}
