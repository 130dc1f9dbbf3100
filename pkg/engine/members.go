package engine

import (
	"fmt"

	"github.com/daimatz/gojvm/internal/vmerr"
	"github.com/daimatz/gojvm/pkg/classfile"
	"github.com/daimatz/gojvm/pkg/classfile/rtpool"
	"github.com/daimatz/gojvm/pkg/rt"
)

// ownerClassFile returns the decoded classfile behind the frame's declaring
// class, used to resolve constant-pool indices embedded in its bytecode.
func ownerClassFile(vm *VM, f *Frame) (*rt.InstanceClass, error) {
	c, ok := vm.Area.ClassByHandle(f.Class)
	if !ok {
		return nil, vmerr.NewJavaException(vmerr.NullPointerException, "owning class vanished", "", f.Method.Name, f.PC)
	}
	ic, ok := c.(*rt.InstanceClass)
	if !ok {
		return nil, vmerr.NewJavaException(vmerr.NullPointerException, "owning class is not an instance class", "", f.Method.Name, f.PC)
	}
	return ic, nil
}

func resolveFieldRef(vm *VM, f *Frame) (rt.ClassHandle, *rt.Field, error) {
	ic, err := ownerClassFile(vm, f)
	if err != nil {
		return 0, nil, err
	}
	idx := f.ReadU16()
	ref, err := ic.Pool.FieldRef(idx)
	if err != nil {
		return 0, nil, err
	}
	in := vm.Area.Interner()
	target, err := vm.Area.GetOrLoad(in.MustResolve(ref.ClassName))
	if err != nil {
		return 0, nil, err
	}
	if err := vm.Area.EnsureLinked(target.Handle()); err != nil {
		return 0, nil, err
	}
	field, err := vm.Area.ResolveField(target.Handle(), rt.MemberKey{Name: in.MustResolve(ref.FieldName), Descriptor: in.MustResolve(ref.Descriptor)})
	if err != nil {
		return 0, nil, err
	}
	return target.Handle(), field, nil
}

// resolveClassName resolves a CONSTANT_Class entry at idx through ic's
// cached runtime constant pool (spec §4.3's resolver), returning the
// referenced class's binary name.
func resolveClassName(vm *VM, ic *rt.InstanceClass, idx uint16) (string, error) {
	ref, err := ic.Pool.Class(idx)
	if err != nil {
		return "", err
	}
	name, ok := vm.Area.Interner().Resolve(ref.Name)
	if !ok {
		return "", fmt.Errorf("unresolved class symbol at constant pool index %d", idx)
	}
	return name, nil
}

// resolveMethodRef and resolveInterfaceMethodRef resolve a Methodref /
// InterfaceMethodref entry through ic.Pool, translating the interned
// symbols rtpool produces back into the plain strings the method area's
// lookups key on.
func resolveMethodRef(vm *VM, ic *rt.InstanceClass, idx uint16) (*classfile.MethodRefInfo, error) {
	ref, err := ic.Pool.MethodRef(idx)
	if err != nil {
		return nil, err
	}
	return methodRefInfo(vm, ref), nil
}

func resolveInterfaceMethodRef(vm *VM, ic *rt.InstanceClass, idx uint16) (*classfile.MethodRefInfo, error) {
	ref, err := ic.Pool.InterfaceMethodRef(idx)
	if err != nil {
		return nil, err
	}
	return methodRefInfo(vm, ref), nil
}

func methodRefInfo(vm *VM, ref *rtpool.MethodRef) *classfile.MethodRefInfo {
	in := vm.Area.Interner()
	return &classfile.MethodRefInfo{
		ClassName:  in.MustResolve(ref.ClassName),
		MethodName: in.MustResolve(ref.MethodName),
		Descriptor: in.MustResolve(ref.Descriptor),
	}
}

func opGetstatic(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	holder, field, err := resolveFieldRef(vm, f)
	if err != nil {
		return nil, false, err
	}
	if err := vm.Area.EnsureInitialized(holder); err != nil {
		return nil, false, err
	}
	rv := vm.Area.StaticValue(holder, field)
	f.Push(rtValueToEngine(rv))
	return nil, false, nil
}

func opPutstatic(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	holder, field, err := resolveFieldRef(vm, f)
	if err != nil {
		return nil, false, err
	}
	if err := vm.Area.EnsureInitialized(holder); err != nil {
		return nil, false, err
	}
	v := f.Pop()
	vm.Area.SetStaticValue(holder, field, engineValueToRT(v, field.ParsedType))
	return nil, false, nil
}

func opGetfield(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	_, field, err := resolveFieldRef(vm, f)
	if err != nil {
		return nil, false, err
	}
	ref := f.Pop().Ref
	if ref == 0 {
		return nil, false, vmerr.NewJavaException(vmerr.NullPointerException, "", "", f.Method.Name, f.PC)
	}
	slot := vm.Heap.ReadField(heapHandle(ref), field.InstanceOffset)
	f.Push(slotToValue(slot))
	return nil, false, nil
}

func opPutfield(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	_, field, err := resolveFieldRef(vm, f)
	if err != nil {
		return nil, false, err
	}
	v := f.Pop()
	ref := f.Pop().Ref
	if ref == 0 {
		return nil, false, vmerr.NewJavaException(vmerr.NullPointerException, "", "", f.Method.Name, f.PC)
	}
	vm.Heap.WriteField(heapHandle(ref), field.InstanceOffset, valueToSlot(v))
	return nil, false, nil
}

// rtValueToEngine/engineValueToRT cross the rt.Value <-> engine.Value
// boundary at the method-area seam (see rt.Value's doc comment on why the
// two types don't share a definition).
func rtValueToEngine(v rt.Value) Value {
	switch v.Kind {
	case classfile.KindLong:
		return LongValue(v.I64)
	case classfile.KindFloat:
		return FloatValue(v.F32)
	case classfile.KindDouble:
		return DoubleValue(v.F64)
	case classfile.KindInstance, classfile.KindArray:
		return RefValue(v.Ref)
	default:
		return IntValue(v.I32)
	}
}

func engineValueToRT(v Value, t classfile.Type) rt.Value {
	switch t.Kind {
	case classfile.KindLong:
		return rt.Value{Kind: t.Kind, I64: v.Long}
	case classfile.KindFloat:
		return rt.Value{Kind: t.Kind, F32: v.Float}
	case classfile.KindDouble:
		return rt.Value{Kind: t.Kind, F64: v.Double}
	case classfile.KindInstance, classfile.KindArray:
		return rt.Value{Kind: t.Kind, Ref: v.Ref}
	default:
		return rt.Value{Kind: t.Kind, I32: v.Int}
	}
}
