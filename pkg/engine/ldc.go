package engine

import (
	"fmt"

	"github.com/daimatz/gojvm/pkg/classfile"
)

func opLdc(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	idx := uint16(f.ReadU8())
	return loadConstant(vm, f, idx)
}

func opLdcWide(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	return loadConstant(vm, f, f.ReadU16())
}

func opLdc2W(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	return loadConstant(vm, f, f.ReadU16())
}

func loadConstant(vm *VM, f *Frame, idx uint16) (*Value, bool, error) {
	ic, err := ownerClassFile(vm, f)
	if err != nil {
		return nil, false, err
	}
	entry := ic.File.ConstantPool[idx-1]
	switch c := entry.(type) {
	case *classfile.ConstantInteger:
		f.Push(IntValue(c.Value))
	case *classfile.ConstantFloat:
		f.Push(FloatValue(c.Value))
	case *classfile.ConstantLong:
		f.Push(LongValue(c.Value))
	case *classfile.ConstantDouble:
		f.Push(DoubleValue(c.Value))
	case *classfile.ConstantString:
		s, err := ic.Pool.String(idx)
		if err != nil {
			return nil, false, err
		}
		h := vm.Strings.GetOrNew(vm.Heap, s)
		f.Push(RefValue(uint32(h)))
	case *classfile.ConstantClass:
		name, err := resolveClassName(vm, ic, idx)
		if err != nil {
			return nil, false, err
		}
		class, err := vm.Area.GetOrLoad(name)
		if err != nil {
			return nil, false, err
		}
		f.Push(RefValue(uint32(class.Handle())))
	default:
		return nil, false, fmt.Errorf("ldc: unsupported constant kind at index %d", idx)
	}
	return nil, false, nil
}
