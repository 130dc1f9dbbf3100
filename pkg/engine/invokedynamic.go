package engine

import (
	"fmt"
	"strings"

	"github.com/daimatz/gojvm/pkg/classfile"
	"github.com/daimatz/gojvm/pkg/engine/heap"
)

// opInvokeDynamic handles the one bootstrap method this engine actually
// understands, `StringConcatFactory.makeConcatWithConstants` (the javac
// string-concatenation desugaring every "+" on strings compiles to since
// Java 9), adapted from the teacher's handleStringConcatFactory.
// `LambdaMetafactory.metafactory` and any other bootstrap method yield a
// plain error naming the bootstrap method rather than silently returning
// garbage.
func opInvokeDynamic(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	ic, err := ownerClassFile(vm, f)
	if err != nil {
		return nil, false, err
	}
	idx := f.ReadU16()
	f.ReadU8() // reserved
	f.ReadU8() // reserved
	pool := ic.File.ConstantPool

	invDyn, ok := pool[idx-1].(*classfile.ConstantInvokeDynamic)
	if !ok {
		return nil, false, fmt.Errorf("invokedynamic: constant %d is not InvokeDynamic", idx)
	}
	nat, ok := pool[invDyn.NameAndTypeIndex-1].(*classfile.ConstantNameAndType)
	if !ok {
		return nil, false, fmt.Errorf("invokedynamic: NameAndType missing")
	}
	descriptor, err := classfile.GetUtf8(pool, nat.DescriptorIndex)
	if err != nil {
		return nil, false, err
	}

	if int(invDyn.BootstrapMethodAttrIndex) >= len(ic.File.BootstrapMethods) {
		return nil, false, fmt.Errorf("invokedynamic: bootstrap method index %d out of range", invDyn.BootstrapMethodAttrIndex)
	}
	bsm := ic.File.BootstrapMethods[invDyn.BootstrapMethodAttrIndex]
	mh, ok := pool[bsm.MethodRef-1].(*classfile.ConstantMethodHandle)
	if !ok {
		return nil, false, fmt.Errorf("invokedynamic: bootstrap method is not a MethodHandle")
	}
	mref, ok := pool[mh.ReferenceIndex-1].(*classfile.ConstantMethodref)
	if !ok {
		return nil, false, fmt.Errorf("invokedynamic: unsupported bootstrap method reference")
	}
	bsmClass, err := classfile.GetClassName(pool, mref.ClassIndex)
	if err != nil {
		return nil, false, err
	}
	bsmNat, ok := pool[mref.NameAndTypeIndex-1].(*classfile.ConstantNameAndType)
	if !ok {
		return nil, false, fmt.Errorf("invokedynamic: bootstrap NameAndType missing")
	}
	bsmMethod, err := classfile.GetUtf8(pool, bsmNat.NameIndex)
	if err != nil {
		return nil, false, err
	}

	if bsmClass != "java/lang/invoke/StringConcatFactory" || bsmMethod != "makeConcatWithConstants" {
		return nil, false, fmt.Errorf("invokedynamic: unsupported bootstrap method %s.%s", bsmClass, bsmMethod)
	}
	return stringConcatFactory(vm, f, pool, bsm, descriptor)
}

func stringConcatFactory(vm *VM, f *Frame, pool []classfile.ConstantPoolEntry, bsm classfile.BootstrapMethod, descriptor string) (*Value, bool, error) {
	recipe := ""
	if len(bsm.BootstrapArguments) > 0 {
		if cs, ok := pool[bsm.BootstrapArguments[0]-1].(*classfile.ConstantString); ok {
			recipe, _ = classfile.GetUtf8(pool, cs.StringIndex)
		}
	}

	desc, err := classfile.ParseMethodDescriptor(descriptor)
	if err != nil {
		return nil, false, err
	}
	args := popArgs(f, desc)

	constants := make([]string, 0, len(bsm.BootstrapArguments)-1)
	for i := 1; i < len(bsm.BootstrapArguments); i++ {
		switch c := pool[bsm.BootstrapArguments[i]-1].(type) {
		case *classfile.ConstantString:
			s, _ := classfile.GetUtf8(pool, c.StringIndex)
			constants = append(constants, s)
		case *classfile.ConstantInteger:
			constants = append(constants, fmt.Sprintf("%d", c.Value))
		default:
			constants = append(constants, "")
		}
	}

	var out strings.Builder
	argIdx, constIdx := 0, 0
	for i := 0; i < len(recipe); i++ {
		switch recipe[i] {
		case '\x01':
			if argIdx < len(args) {
				out.WriteString(valueToDisplayString(vm, args[argIdx]))
				argIdx++
			}
		case '\x02':
			if constIdx < len(constants) {
				out.WriteString(constants[constIdx])
				constIdx++
			}
		default:
			out.WriteByte(recipe[i])
		}
	}

	h := vm.Strings.GetOrNew(vm.Heap, out.String())
	ret := RefValue(uint32(h))
	return &ret, false, nil
}

// valueToDisplayString renders a Value the way String.valueOf would, used
// by string-concatenation desugaring.
func valueToDisplayString(vm *VM, v Value) string {
	switch v.Type {
	case TypeInt:
		return fmt.Sprintf("%d", v.Int)
	case TypeLong:
		return fmt.Sprintf("%d", v.Long)
	case TypeFloat:
		return fmt.Sprintf("%v", v.Float)
	case TypeDouble:
		return fmt.Sprintf("%v", v.Double)
	case TypeRef:
		if v.Ref == 0 {
			return "null"
		}
		obj := vm.Heap.Get(heapHandle(v.Ref))
		if obj.Kind == heap.KindString {
			return obj.Text
		}
		return "<object>"
	default:
		return ""
	}
}
