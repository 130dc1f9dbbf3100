package engine

import (
	"fmt"

	"github.com/daimatz/gojvm/internal/intern"
	"github.com/daimatz/gojvm/internal/vmerr"
	"github.com/daimatz/gojvm/pkg/classfile"
	"github.com/daimatz/gojvm/pkg/engine/heap"
	"github.com/daimatz/gojvm/pkg/rt"
)

// newarray's atype codes (JVMS §6.5 newarray).
const (
	atBoolean = 4
	atChar    = 5
	atFloat   = 6
	atDouble  = 7
	atByte    = 8
	atShort   = 9
	atInt     = 10
	atLong    = 11
)

func opNew(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	ic, err := ownerClassFile(vm, f)
	if err != nil {
		return nil, false, err
	}
	idx := f.ReadU16()
	className, err := resolveClassName(vm, ic, idx)
	if err != nil {
		return nil, false, err
	}
	target, err := vm.Area.GetOrLoad(className)
	if err != nil {
		return nil, false, err
	}
	if err := vm.Area.EnsureInitialized(target.Handle()); err != nil {
		return nil, false, err
	}
	fields := vm.Area.AllInstanceFields(target.Handle())
	defaults := make([]heap.Slot, len(fields))
	for i, fld := range fields {
		defaults[i] = valueToSlot(ZeroValueFor(fld.ParsedType))
	}
	h := vm.Heap.AllocInstance(uint32(target.Name()), defaults)
	f.Push(RefValue(uint32(h)))
	return nil, false, nil
}

func opNewarray(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	atype := f.ReadU8()
	length := f.Pop().Int
	if length < 0 {
		return nil, false, vmerr.NewJavaException(vmerr.NegativeArraySizeException, "", "", f.Method.Name, f.PC)
	}
	kind, def := primitiveArrayKind(atype)
	h := vm.Heap.AllocArray(byte(kind), int(length), valueToSlot(def))
	f.Push(RefValue(uint32(h)))
	return nil, false, nil
}

func primitiveArrayKind(atype uint8) (classfile.TypeKind, Value) {
	switch atype {
	case atBoolean:
		return classfile.KindBoolean, IntValue(0)
	case atChar:
		return classfile.KindChar, IntValue(0)
	case atFloat:
		return classfile.KindFloat, FloatValue(0)
	case atDouble:
		return classfile.KindDouble, DoubleValue(0)
	case atByte:
		return classfile.KindByte, IntValue(0)
	case atShort:
		return classfile.KindShort, IntValue(0)
	case atLong:
		return classfile.KindLong, LongValue(0)
	default:
		return classfile.KindInt, IntValue(0)
	}
}

func opAnewarray(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	ic, err := ownerClassFile(vm, f)
	if err != nil {
		return nil, false, err
	}
	idx := f.ReadU16()
	className, err := resolveClassName(vm, ic, idx)
	if err != nil {
		return nil, false, err
	}
	length := f.Pop().Int
	if length < 0 {
		return nil, false, vmerr.NewJavaException(vmerr.NegativeArraySizeException, "", "", f.Method.Name, f.PC)
	}
	h := vm.Heap.AllocArray(byte(classfile.KindInstance), int(length), valueToSlot(NullValue()))
	_ = className // element class is synthesised lazily when the array's own rt.Class is requested
	f.Push(RefValue(uint32(h)))
	return nil, false, nil
}

func opAthrow(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	ref := f.Pop().Ref
	if ref == 0 {
		return nil, false, vmerr.NewJavaException(vmerr.NullPointerException, "", "", f.Method.Name, f.PC)
	}
	obj := vm.Heap.Get(heapHandle(ref))
	className := "java/lang/Throwable"
	if sym, ok := resolveClassSymbolName(vm, obj.ClassSymbol); ok {
		className = sym
	}
	return nil, false, fmt.Errorf("uncaught exception: %s", className)
}

func resolveClassSymbolName(vm *VM, sym uint32) (string, bool) {
	return vm.Area.Interner().Resolve(intern.Symbol(sym))
}

func opCheckcast(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	ic, err := ownerClassFile(vm, f)
	if err != nil {
		return nil, false, err
	}
	idx := f.ReadU16()
	className, err := resolveClassName(vm, ic, idx)
	if err != nil {
		return nil, false, err
	}
	v := f.Peek()
	if v.Ref == 0 {
		return nil, false, nil // null is always castable
	}
	ok, err := isInstanceOf(vm, v.Ref, className)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, vmerr.NewJavaException(vmerr.ClassCastException, className, "", f.Method.Name, f.PC)
	}
	return nil, false, nil
}

func opInstanceof(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	ic, err := ownerClassFile(vm, f)
	if err != nil {
		return nil, false, err
	}
	idx := f.ReadU16()
	className, err := resolveClassName(vm, ic, idx)
	if err != nil {
		return nil, false, err
	}
	ref := f.Pop().Ref
	if ref == 0 {
		f.Push(IntValue(0))
		return nil, false, nil
	}
	ok, err := isInstanceOf(vm, ref, className)
	if err != nil {
		return nil, false, err
	}
	f.Push(BoolAsInt(ok))
	return nil, false, nil
}

// isInstanceOf walks the object's class and its superclass/interface
// closure looking for className (spec's class-hierarchy-aware cast check).
func isInstanceOf(vm *VM, ref uint32, className string) (bool, error) {
	obj := vm.Heap.Get(heapHandle(ref))
	name, ok := resolveClassSymbolName(vm, obj.ClassSymbol)
	if !ok {
		return false, nil
	}
	if name == className {
		return true, nil
	}
	class, err := vm.Area.GetOrLoad(name)
	if err != nil {
		return false, err
	}
	return classExtendsOrImplements(vm, class, className)
}

func classExtendsOrImplements(vm *VM, c rt.Class, target string) (bool, error) {
	ic, ok := c.(*rt.InstanceClass)
	if !ok {
		return false, nil
	}
	for _, iface := range ic.Interfaces {
		if iface == target {
			return true, nil
		}
		ifaceClass, err := vm.Area.GetOrLoad(iface)
		if err == nil {
			if yes, _ := classExtendsOrImplements(vm, ifaceClass, target); yes {
				return true, nil
			}
		}
	}
	if ic.SuperName == target {
		return true, nil
	}
	if ic.SuperName == "" {
		return false, nil
	}
	super, err := vm.Area.GetOrLoad(ic.SuperName)
	if err != nil {
		return false, err
	}
	return classExtendsOrImplements(vm, super, target)
}
