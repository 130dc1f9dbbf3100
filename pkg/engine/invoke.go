package engine

import (
	"github.com/daimatz/gojvm/internal/vmerr"
	"github.com/daimatz/gojvm/pkg/classfile"
	"github.com/daimatz/gojvm/pkg/rt"
)

// popArgs pops len(desc.Params) values off f's operand stack, in call
// order (the JVM pushes arguments left-to-right, so the last param is on
// top).
func popArgs(f *Frame, desc *classfile.MethodDescriptor) []Value {
	args := make([]Value, len(desc.Params))
	for i := len(desc.Params) - 1; i >= 0; i-- {
		args[i] = f.Pop()
	}
	return args
}

func pushResult(f *Frame, ret *Value) {
	if ret != nil {
		f.Push(*ret)
	}
}

func opInvokeStatic(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	ic, err := ownerClassFile(vm, f)
	if err != nil {
		return nil, false, err
	}
	idx := f.ReadU16()
	info, err := resolveMethodRef(vm, ic, idx)
	if err != nil {
		return nil, false, err
	}
	target, err := vm.Area.GetOrLoad(info.ClassName)
	if err != nil {
		return nil, false, err
	}
	if err := vm.Area.EnsureInitialized(target.Handle()); err != nil {
		return nil, false, err
	}
	method, err := vm.Area.ResolveMethod(target.Handle(), rt.MemberKey{Name: info.MethodName, Descriptor: info.Descriptor})
	if err != nil {
		return nil, false, err
	}
	args := popArgs(f, method.ParsedDesc)
	ret, err := t.CallMethod(target.Handle(), method, args)
	if err != nil {
		return nil, false, err
	}
	pushResult(f, ret)
	return nil, false, nil
}

func opInvokeSpecial(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	ic, err := ownerClassFile(vm, f)
	if err != nil {
		return nil, false, err
	}
	idx := f.ReadU16()
	info, err := resolveMethodRef(vm, ic, idx)
	if err != nil {
		return nil, false, err
	}
	target, err := vm.Area.GetOrLoad(info.ClassName)
	if err != nil {
		return nil, false, err
	}
	if err := vm.Area.EnsureLinked(target.Handle()); err != nil {
		return nil, false, err
	}
	method, err := vm.Area.ResolveMethod(target.Handle(), rt.MemberKey{Name: info.MethodName, Descriptor: info.Descriptor})
	if err != nil {
		return nil, false, err
	}
	args := popArgs(f, method.ParsedDesc)
	receiver := f.Pop()
	if receiver.Ref == 0 {
		return nil, false, vmerr.NewJavaException(vmerr.NullPointerException, "", "", f.Method.Name, f.PC)
	}
	full := append([]Value{receiver}, args...)
	ret, err := t.CallMethod(target.Handle(), method, full)
	if err != nil {
		return nil, false, err
	}
	pushResult(f, ret)
	return nil, false, nil
}

// opInvokeVirtual resolves against the receiver's runtime class, not the
// static type in the constant pool (JVMS §6.5's virtual dispatch), by
// re-resolving the same (name, descriptor) key starting at the receiver's
// actual class. rt.MethodArea.ResolveMethod's declared-then-inherited
// search order already yields the most-derived override when walked from
// there.
func opInvokeVirtual(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	ic, err := ownerClassFile(vm, f)
	if err != nil {
		return nil, false, err
	}
	idx := f.ReadU16()
	info, err := resolveMethodRef(vm, ic, idx)
	if err != nil {
		return nil, false, err
	}
	desc, err := classfile.ParseMethodDescriptor(info.Descriptor)
	if err != nil {
		return nil, false, err
	}
	args := popArgs(f, desc)
	receiver := f.Pop()
	if receiver.Ref == 0 {
		return nil, false, vmerr.NewJavaException(vmerr.NullPointerException, "", "", f.Method.Name, f.PC)
	}
	obj := vm.Heap.Get(heapHandle(receiver.Ref))
	receiverClassName, ok := resolveClassSymbolName(vm, obj.ClassSymbol)
	if !ok {
		return nil, false, vmerr.NewJavaException(vmerr.NullPointerException, "unresolved receiver class", "", f.Method.Name, f.PC)
	}
	receiverClass, err := vm.Area.GetOrLoad(receiverClassName)
	if err != nil {
		return nil, false, err
	}
	method, err := vm.Area.ResolveMethod(receiverClass.Handle(), rt.MemberKey{Name: info.MethodName, Descriptor: info.Descriptor})
	if err != nil {
		return nil, false, err
	}
	full := append([]Value{receiver}, args...)
	ret, err := t.CallMethod(receiverClass.Handle(), method, full)
	if err != nil {
		return nil, false, err
	}
	pushResult(f, ret)
	return nil, false, nil
}

func opInvokeInterface(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	ic, err := ownerClassFile(vm, f)
	if err != nil {
		return nil, false, err
	}
	idx := f.ReadU16()
	info, err := resolveInterfaceMethodRef(vm, ic, idx)
	if err != nil {
		return nil, false, err
	}
	f.ReadU8() // count, historical, unused by this engine
	f.ReadU8() // reserved zero byte
	desc, err := classfile.ParseMethodDescriptor(info.Descriptor)
	if err != nil {
		return nil, false, err
	}
	args := popArgs(f, desc)
	receiver := f.Pop()
	if receiver.Ref == 0 {
		return nil, false, vmerr.NewJavaException(vmerr.NullPointerException, "", "", f.Method.Name, f.PC)
	}
	obj := vm.Heap.Get(heapHandle(receiver.Ref))
	receiverClassName, ok := resolveClassSymbolName(vm, obj.ClassSymbol)
	if !ok {
		return nil, false, vmerr.NewJavaException(vmerr.NullPointerException, "unresolved receiver class", "", f.Method.Name, f.PC)
	}
	receiverClass, err := vm.Area.GetOrLoad(receiverClassName)
	if err != nil {
		return nil, false, err
	}
	method, err := vm.Area.ResolveMethod(receiverClass.Handle(), rt.MemberKey{Name: info.MethodName, Descriptor: info.Descriptor})
	if err != nil {
		return nil, false, err
	}
	full := append([]Value{receiver}, args...)
	ret, err := t.CallMethod(receiverClass.Handle(), method, full)
	if err != nil {
		return nil, false, err
	}
	pushResult(f, ret)
	return nil, false, nil
}
