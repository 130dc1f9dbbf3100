package engine

import (
	"math"

	"github.com/daimatz/gojvm/internal/vmerr"
	"github.com/daimatz/gojvm/pkg/engine/heap"
)

// opFunc executes one opcode against frame f, returning true when the method
// returns (with the return value, or nil for a void return), or
// (nil, false, err) on failure.
type opFunc func(vm *VM, t *Thread, f *Frame) (*Value, bool, error)

// dispatchTable holds every opcode this engine implements. An opcode
// present in opcodeNames but absent here surfaces UnimplementedOpcodeError
// (spec §4.6); genuinely unknown bytes never reach this table at all.
var dispatchTable map[byte]opFunc

func init() {
	dispatchTable = map[byte]opFunc{
		OpNop:        noop,
		OpAconstNull: func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) { f.Push(NullValue()); return nil, false, nil },
	}
	for i := OpIconstM1; i <= OpIconst5; i++ {
		v := int32(i - OpIconst0)
		dispatchTable[byte(i)] = constInt(v)
	}
	dispatchTable[OpLconst0] = constLong(0)
	dispatchTable[OpLconst1] = constLong(1)
	dispatchTable[OpFconst0] = constFloat(0)
	dispatchTable[OpFconst1] = constFloat(1)
	dispatchTable[OpFconst2] = constFloat(2)
	dispatchTable[OpDconst0] = constDouble(0)
	dispatchTable[OpDconst1] = constDouble(1)

	dispatchTable[OpBipush] = opBipush
	dispatchTable[OpSipush] = opSipush
	dispatchTable[OpLdc] = opLdc
	dispatchTable[OpLdcW] = opLdcWide
	dispatchTable[OpLdc2W] = opLdc2W

	for i, ty := range map[byte]ValueType{OpIload: TypeInt, OpLload: TypeLong, OpFload: TypeFloat, OpDload: TypeDouble, OpAload: TypeRef} {
		dispatchTable[i] = loadIndexed(ty)
	}
	for base, ty := range map[byte]ValueType{OpIload0: TypeInt, OpLload0: TypeLong, OpFload0: TypeFloat, OpDload0: TypeDouble, OpAload0: TypeRef} {
		for n := 0; n < 4; n++ {
			dispatchTable[base+byte(n)] = loadFixed(ty, n)
		}
	}
	for i, ty := range map[byte]ValueType{OpIstore: TypeInt, OpLstore: TypeLong, OpFstore: TypeFloat, OpDstore: TypeDouble, OpAstore: TypeRef} {
		dispatchTable[i] = storeIndexed(ty)
	}
	for base, ty := range map[byte]ValueType{OpIstore0: TypeInt, OpLstore0: TypeLong, OpFstore0: TypeFloat, OpDstore0: TypeDouble, OpAstore0: TypeRef} {
		for n := 0; n < 4; n++ {
			dispatchTable[base+byte(n)] = storeFixed(ty, n)
		}
	}

	dispatchTable[OpIaload] = arrayLoad(TypeInt)
	dispatchTable[OpLaload] = arrayLoad(TypeLong)
	dispatchTable[OpFaload] = arrayLoad(TypeFloat)
	dispatchTable[OpDaload] = arrayLoad(TypeDouble)
	dispatchTable[OpAaload] = arrayLoad(TypeRef)
	dispatchTable[OpBaload] = arrayLoad(TypeInt)
	dispatchTable[OpCaload] = arrayLoad(TypeInt)
	dispatchTable[OpSaload] = arrayLoad(TypeInt)
	dispatchTable[OpIastore] = arrayStore()
	dispatchTable[OpLastore] = arrayStore()
	dispatchTable[OpFastore] = arrayStore()
	dispatchTable[OpDastore] = arrayStore()
	dispatchTable[OpAastore] = arrayStore()
	dispatchTable[OpBastore] = arrayStore()
	dispatchTable[OpCastore] = arrayStore()
	dispatchTable[OpSastore] = arrayStore()
	dispatchTable[OpArraylength] = opArraylength

	dispatchTable[OpPop] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) { f.Pop(); return nil, false, nil }
	dispatchTable[OpPop2] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		v := f.Pop()
		if !v.IsCategory2() {
			f.Pop()
		}
		return nil, false, nil
	}
	dispatchTable[OpDup] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		v := f.Pop()
		f.Push(v)
		f.Push(v)
		return nil, false, nil
	}
	dispatchTable[OpDupX1] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		v1 := f.Pop()
		v2 := f.Pop()
		f.Push(v1)
		f.Push(v2)
		f.Push(v1)
		return nil, false, nil
	}
	dispatchTable[OpSwap] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		v1 := f.Pop()
		v2 := f.Pop()
		f.Push(v1)
		f.Push(v2)
		return nil, false, nil
	}

	dispatchTable[OpIadd] = intBinOp(func(a, b int32) int32 { return a + b })
	dispatchTable[OpIsub] = intBinOp(func(a, b int32) int32 { return a - b })
	dispatchTable[OpImul] = intBinOp(func(a, b int32) int32 { return a * b })
	dispatchTable[OpIdiv] = intDivOp(func(a, b int32) int32 { return a / b })
	dispatchTable[OpIrem] = intDivOp(func(a, b int32) int32 { return a % b })
	dispatchTable[OpIneg] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		f.Push(IntValue(-f.Pop().Int))
		return nil, false, nil
	}
	dispatchTable[OpIand] = intBinOp(func(a, b int32) int32 { return a & b })
	dispatchTable[OpIor] = intBinOp(func(a, b int32) int32 { return a | b })
	dispatchTable[OpIxor] = intBinOp(func(a, b int32) int32 { return a ^ b })
	dispatchTable[OpIshl] = intBinOp(func(a, b int32) int32 { return a << (uint32(b) & 31) })
	dispatchTable[OpIshr] = intBinOp(func(a, b int32) int32 { return a >> (uint32(b) & 31) })
	dispatchTable[OpIushr] = intBinOp(func(a, b int32) int32 { return int32(uint32(a) >> (uint32(b) & 31)) })

	dispatchTable[OpLadd] = longBinOp(func(a, b int64) int64 { return a + b })
	dispatchTable[OpLsub] = longBinOp(func(a, b int64) int64 { return a - b })
	dispatchTable[OpLmul] = longBinOp(func(a, b int64) int64 { return a * b })
	dispatchTable[OpLdiv] = longDivOp(func(a, b int64) int64 { return a / b })
	dispatchTable[OpLrem] = longDivOp(func(a, b int64) int64 { return a % b })
	dispatchTable[OpLneg] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		f.Push(LongValue(-f.Pop().Long))
		return nil, false, nil
	}
	dispatchTable[OpLand] = longBinOp(func(a, b int64) int64 { return a & b })
	dispatchTable[OpLor] = longBinOp(func(a, b int64) int64 { return a | b })
	dispatchTable[OpLxor] = longBinOp(func(a, b int64) int64 { return a ^ b })
	dispatchTable[OpLshl] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		shift := f.Pop().Int
		v := f.Pop().Long
		f.Push(LongValue(v << (uint32(shift) & 63)))
		return nil, false, nil
	}
	dispatchTable[OpLshr] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		shift := f.Pop().Int
		v := f.Pop().Long
		f.Push(LongValue(v >> (uint32(shift) & 63)))
		return nil, false, nil
	}
	dispatchTable[OpLcmp] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		b := f.Pop().Long
		a := f.Pop().Long
		f.Push(IntValue(cmp64(a, b)))
		return nil, false, nil
	}

	dispatchTable[OpFadd] = floatBinOp(func(a, b float32) float32 { return a + b })
	dispatchTable[OpFsub] = floatBinOp(func(a, b float32) float32 { return a - b })
	dispatchTable[OpFmul] = floatBinOp(func(a, b float32) float32 { return a * b })
	dispatchTable[OpFdiv] = floatBinOp(func(a, b float32) float32 { return a / b })
	dispatchTable[OpFneg] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		f.Push(FloatValue(-f.Pop().Float))
		return nil, false, nil
	}
	dispatchTable[OpFcmpl] = floatCmp(-1)
	dispatchTable[OpFcmpg] = floatCmp(1)

	dispatchTable[OpDadd] = doubleBinOp(func(a, b float64) float64 { return a + b })
	dispatchTable[OpDsub] = doubleBinOp(func(a, b float64) float64 { return a - b })
	dispatchTable[OpDmul] = doubleBinOp(func(a, b float64) float64 { return a * b })
	dispatchTable[OpDdiv] = doubleBinOp(func(a, b float64) float64 { return a / b })
	dispatchTable[OpDneg] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		f.Push(DoubleValue(-f.Pop().Double))
		return nil, false, nil
	}
	dispatchTable[OpDcmpl] = doubleCmp(-1)
	dispatchTable[OpDcmpg] = doubleCmp(1)

	dispatchTable[OpIinc] = opIinc

	dispatchTable[OpI2l] = conv(func(v Value) Value { return LongValue(int64(v.Int)) })
	dispatchTable[OpI2f] = conv(func(v Value) Value { return FloatValue(float32(v.Int)) })
	dispatchTable[OpI2d] = conv(func(v Value) Value { return DoubleValue(float64(v.Int)) })
	dispatchTable[OpL2i] = conv(func(v Value) Value { return IntValue(int32(v.Long)) })
	dispatchTable[OpL2f] = conv(func(v Value) Value { return FloatValue(float32(v.Long)) })
	dispatchTable[OpL2d] = conv(func(v Value) Value { return DoubleValue(float64(v.Long)) })
	dispatchTable[OpF2i] = conv(func(v Value) Value { return IntValue(int32(v.Float)) })
	dispatchTable[OpF2l] = conv(func(v Value) Value { return LongValue(int64(v.Float)) })
	dispatchTable[OpF2d] = conv(func(v Value) Value { return DoubleValue(float64(v.Float)) })
	dispatchTable[OpD2i] = conv(func(v Value) Value { return IntValue(int32(v.Double)) })
	dispatchTable[OpD2l] = conv(func(v Value) Value { return LongValue(int64(v.Double)) })
	dispatchTable[OpD2f] = conv(func(v Value) Value { return FloatValue(float32(v.Double)) })
	dispatchTable[OpI2b] = conv(func(v Value) Value { return IntValue(int32(int8(v.Int))) })
	dispatchTable[OpI2c] = conv(func(v Value) Value { return IntValue(int32(uint16(v.Int))) })
	dispatchTable[OpI2s] = conv(func(v Value) Value { return IntValue(int32(int16(v.Int))) })

	dispatchTable[OpIfeq] = branchUnary(func(v int32) bool { return v == 0 })
	dispatchTable[OpIfne] = branchUnary(func(v int32) bool { return v != 0 })
	dispatchTable[OpIflt] = branchUnary(func(v int32) bool { return v < 0 })
	dispatchTable[OpIfge] = branchUnary(func(v int32) bool { return v >= 0 })
	dispatchTable[OpIfgt] = branchUnary(func(v int32) bool { return v > 0 })
	dispatchTable[OpIfle] = branchUnary(func(v int32) bool { return v <= 0 })
	dispatchTable[OpIfIcmpeq] = branchBinary(func(a, b int32) bool { return a == b })
	dispatchTable[OpIfIcmpne] = branchBinary(func(a, b int32) bool { return a != b })
	dispatchTable[OpIfIcmplt] = branchBinary(func(a, b int32) bool { return a < b })
	dispatchTable[OpIfIcmpge] = branchBinary(func(a, b int32) bool { return a >= b })
	dispatchTable[OpIfIcmpgt] = branchBinary(func(a, b int32) bool { return a > b })
	dispatchTable[OpIfIcmple] = branchBinary(func(a, b int32) bool { return a <= b })
	dispatchTable[OpIfAcmpeq] = branchRef(func(a, b uint32) bool { return a == b })
	dispatchTable[OpIfAcmpne] = branchRef(func(a, b uint32) bool { return a != b })
	dispatchTable[OpIfnull] = branchNull(true)
	dispatchTable[OpIfnonnull] = branchNull(false)
	dispatchTable[OpGoto] = opGoto

	dispatchTable[OpIreturn] = returning(func(f *Frame) Value { return f.Pop() })
	dispatchTable[OpLreturn] = returning(func(f *Frame) Value { return f.Pop() })
	dispatchTable[OpFreturn] = returning(func(f *Frame) Value { return f.Pop() })
	dispatchTable[OpDreturn] = returning(func(f *Frame) Value { return f.Pop() })
	dispatchTable[OpAreturn] = returning(func(f *Frame) Value { return f.Pop() })
	dispatchTable[OpReturn] = func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) { return nil, true, nil }

	dispatchTable[OpGetstatic] = opGetstatic
	dispatchTable[OpPutstatic] = opPutstatic
	dispatchTable[OpGetfield] = opGetfield
	dispatchTable[OpPutfield] = opPutfield

	dispatchTable[OpInvokevirtual] = opInvokeVirtual
	dispatchTable[OpInvokespecial] = opInvokeSpecial
	dispatchTable[OpInvokestatic] = opInvokeStatic
	dispatchTable[OpInvokeinterface] = opInvokeInterface
	dispatchTable[OpInvokedynamic] = opInvokeDynamic

	dispatchTable[OpNew] = opNew
	dispatchTable[OpNewarray] = opNewarray
	dispatchTable[OpAnewarray] = opAnewarray
	dispatchTable[OpAthrow] = opAthrow
	dispatchTable[OpCheckcast] = opCheckcast
	dispatchTable[OpInstanceof] = opInstanceof
}

func noop(vm *VM, t *Thread, f *Frame) (*Value, bool, error) { return nil, false, nil }

func constInt(v int32) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) { f.Push(IntValue(v)); return nil, false, nil }
}
func constLong(v int64) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) { f.Push(LongValue(v)); return nil, false, nil }
}
func constFloat(v float32) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) { f.Push(FloatValue(v)); return nil, false, nil }
}
func constDouble(v float64) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) { f.Push(DoubleValue(v)); return nil, false, nil }
}

func opBipush(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	f.Push(IntValue(int32(f.ReadI8())))
	return nil, false, nil
}
func opSipush(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	f.Push(IntValue(int32(f.ReadI16())))
	return nil, false, nil
}

func loadIndexed(ty ValueType) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		idx := int(f.ReadU8())
		v, err := f.GetLocal(idx, ty)
		if err != nil {
			return nil, false, err
		}
		f.Push(v)
		return nil, false, nil
	}
}

func loadFixed(ty ValueType, idx int) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		v, err := f.GetLocal(idx, ty)
		if err != nil {
			return nil, false, err
		}
		f.Push(v)
		return nil, false, nil
	}
}

func storeIndexed(ty ValueType) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		idx := int(f.ReadU8())
		storeLocal(f, idx, f.Pop())
		return nil, false, nil
	}
}

func storeFixed(ty ValueType, idx int) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		storeLocal(f, idx, f.Pop())
		return nil, false, nil
	}
}

// storeLocal writes v at idx and, for a Long/Double, reserves idx+1 as its
// high slot (spec §8's double-slot local property: a subsequent read of
// that high slot must fail with a type error, not return stale data).
func storeLocal(f *Frame, idx int, v Value) {
	f.SetLocal(idx, v)
	if v.IsCategory2() {
		f.SetLocal(idx+1, Value{Type: TypeUninitialised})
	}
}

func arrayLoad(ty ValueType) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		idx := f.Pop().Int
		ref := f.Pop().Ref
		if ref == 0 {
			return nil, false, vmerr.NewJavaException(vmerr.NullPointerException, "", "", "", f.PC)
		}
		obj := vm.Heap.Get(heapHandle(ref))
		if idx < 0 || int(idx) >= len(obj.Elements) {
			return nil, false, vmerr.NewJavaException(vmerr.ArrayIndexOutOfBoundsException, "", "", "", f.PC)
		}
		f.Push(slotToValue(obj.Elements[idx]))
		return nil, false, nil
	}
}

func arrayStore() opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		v := f.Pop()
		idx := f.Pop().Int
		ref := f.Pop().Ref
		if ref == 0 {
			return nil, false, vmerr.NewJavaException(vmerr.NullPointerException, "", "", "", f.PC)
		}
		obj := vm.Heap.Get(heapHandle(ref))
		if idx < 0 || int(idx) >= len(obj.Elements) {
			return nil, false, vmerr.NewJavaException(vmerr.ArrayIndexOutOfBoundsException, "", "", "", f.PC)
		}
		obj.Elements[idx] = valueToSlot(v)
		return nil, false, nil
	}
}

func opArraylength(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	ref := f.Pop().Ref
	if ref == 0 {
		return nil, false, vmerr.NewJavaException(vmerr.NullPointerException, "", "", "", f.PC)
	}
	obj := vm.Heap.Get(heapHandle(ref))
	f.Push(IntValue(int32(len(obj.Elements))))
	return nil, false, nil
}

func intBinOp(op func(a, b int32) int32) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		b := f.Pop().Int
		a := f.Pop().Int
		f.Push(IntValue(op(a, b)))
		return nil, false, nil
	}
}

func intDivOp(op func(a, b int32) int32) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		b := f.Pop().Int
		a := f.Pop().Int
		if b == 0 {
			return nil, false, vmerr.NewJavaException(vmerr.ArithmeticException, "/ by zero", "", "", f.PC)
		}
		f.Push(IntValue(op(a, b)))
		return nil, false, nil
	}
}

func longBinOp(op func(a, b int64) int64) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		b := f.Pop().Long
		a := f.Pop().Long
		f.Push(LongValue(op(a, b)))
		return nil, false, nil
	}
}

func longDivOp(op func(a, b int64) int64) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		b := f.Pop().Long
		a := f.Pop().Long
		if b == 0 {
			return nil, false, vmerr.NewJavaException(vmerr.ArithmeticException, "/ by zero", "", "", f.PC)
		}
		f.Push(LongValue(op(a, b)))
		return nil, false, nil
	}
}

func floatBinOp(op func(a, b float32) float32) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		b := f.Pop().Float
		a := f.Pop().Float
		f.Push(FloatValue(op(a, b)))
		return nil, false, nil
	}
}

func doubleBinOp(op func(a, b float64) float64) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		b := f.Pop().Double
		a := f.Pop().Double
		f.Push(DoubleValue(op(a, b)))
		return nil, false, nil
	}
}

func cmp64(a, b int64) int32 {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func floatCmp(nanResult int32) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		b := f.Pop().Float
		a := f.Pop().Float
		if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
			f.Push(IntValue(nanResult))
			return nil, false, nil
		}
		f.Push(IntValue(cmp64(int64(sign(float64(a - b))), 0)))
		return nil, false, nil
	}
}

func doubleCmp(nanResult int32) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		b := f.Pop().Double
		a := f.Pop().Double
		if math.IsNaN(a) || math.IsNaN(b) {
			f.Push(IntValue(nanResult))
			return nil, false, nil
		}
		f.Push(IntValue(cmp64(int64(sign(a - b)), 0)))
		return nil, false, nil
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func conv(fn func(v Value) Value) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		f.Push(fn(f.Pop()))
		return nil, false, nil
	}
}

func opIinc(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	idx := int(f.ReadU8())
	delta := int32(f.ReadI8())
	v, err := f.GetLocal(idx, TypeInt)
	if err != nil {
		return nil, false, err
	}
	f.SetLocal(idx, IntValue(v.Int+delta))
	return nil, false, nil
}

func branchUnary(cond func(int32) bool) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		branchPC := f.PC - 1
		offset := f.ReadI16()
		v := f.Pop()
		if cond(v.Int) {
			f.PC = branchPC + int(offset)
		}
		return nil, false, nil
	}
}

func branchBinary(cond func(a, b int32) bool) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		branchPC := f.PC - 1
		offset := f.ReadI16()
		b := f.Pop()
		a := f.Pop()
		if cond(a.Int, b.Int) {
			f.PC = branchPC + int(offset)
		}
		return nil, false, nil
	}
}

func branchRef(cond func(a, b uint32) bool) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		branchPC := f.PC - 1
		offset := f.ReadI16()
		b := f.Pop()
		a := f.Pop()
		if cond(a.Ref, b.Ref) {
			f.PC = branchPC + int(offset)
		}
		return nil, false, nil
	}
}

func branchNull(wantNull bool) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		branchPC := f.PC - 1
		offset := f.ReadI16()
		v := f.Pop()
		if (v.Ref == 0) == wantNull {
			f.PC = branchPC + int(offset)
		}
		return nil, false, nil
	}
}

func opGoto(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
	branchPC := f.PC - 1
	offset := f.ReadI16()
	f.PC = branchPC + int(offset)
	return nil, false, nil
}

func returning(pop func(f *Frame) Value) opFunc {
	return func(vm *VM, t *Thread, f *Frame) (*Value, bool, error) {
		v := pop(f)
		return &v, true, nil
	}
}

// heapHandle narrows an engine-level ref (uint32) to a heap.Handle.
func heapHandle(ref uint32) heap.Handle { return heap.Handle(ref) }
