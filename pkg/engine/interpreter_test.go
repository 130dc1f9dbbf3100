package engine

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/daimatz/gojvm/internal/intern"
	"github.com/daimatz/gojvm/pkg/rt"
	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal rt.ClassSource backed by an in-memory map, used
// here purely to drive the interpreter end-to-end without touching disk
// (mirrors pkg/rt's own fakeSource fixture).
type fakeSource struct {
	classes map[string][]byte
}

func (s *fakeSource) LoadClassBytes(name string) ([]byte, error) {
	data, ok := s.classes[name]
	if !ok {
		return nil, fmt.Errorf("fakeSource: %s not found", name)
	}
	return data, nil
}

func u16(v uint16) []byte { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }
func u32(v uint32) []byte { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); return b }

// buildOneMethodClass assembles a classfile with a single static method
// whose Code attribute is exactly `code`, adapted from classfile_test.go's
// builder pattern (kept self-contained here rather than exported, since
// classfile's builder is a package-private test fixture).
func buildOneMethodClass(thisName, methodName, desc string, maxStack, maxLocals uint16, code []byte) []byte {
	var pool [][]byte // entries after index 0; each is {tag, data...}
	utf8 := func(s string) uint16 {
		d := make([]byte, 2+len(s))
		binary.BigEndian.PutUint16(d, uint16(len(s)))
		copy(d[2:], s)
		pool = append(pool, append([]byte{1}, d...))
		return uint16(len(pool))
	}
	class := func(nameIdx uint16) uint16 {
		pool = append(pool, append([]byte{7}, u16(nameIdx)...))
		return uint16(len(pool))
	}

	thisClassIdx := class(utf8(thisName))
	nameIdx := utf8(methodName)
	descIdx := utf8(desc)
	codeAttrNameIdx := utf8("Code")

	codeAttrData := append([]byte{}, u16(maxStack)...)
	codeAttrData = append(codeAttrData, u16(maxLocals)...)
	codeAttrData = append(codeAttrData, u32(uint32(len(code)))...)
	codeAttrData = append(codeAttrData, code...)
	codeAttrData = append(codeAttrData, u16(0)...)
	codeAttrData = append(codeAttrData, u16(0)...)

	methodInfo := append([]byte{}, u16(0x0009)...) // ACC_PUBLIC | ACC_STATIC
	methodInfo = append(methodInfo, u16(nameIdx)...)
	methodInfo = append(methodInfo, u16(descIdx)...)
	methodInfo = append(methodInfo, u16(1)...)
	methodInfo = append(methodInfo, u16(codeAttrNameIdx)...)
	methodInfo = append(methodInfo, u32(uint32(len(codeAttrData)))...)
	methodInfo = append(methodInfo, codeAttrData...)

	var out []byte
	out = append(out, u32(0xCAFEBABE)...)
	out = append(out, u16(0)...)
	out = append(out, u16(61)...)
	out = append(out, u16(uint16(len(pool)+1))...)
	for _, e := range pool {
		out = append(out, e...)
	}
	out = append(out, u16(0x0021)...)
	out = append(out, u16(thisClassIdx)...)
	out = append(out, u16(0)...)
	out = append(out, u16(0)...)
	out = append(out, u16(0)...)
	out = append(out, u16(1)...)
	out = append(out, methodInfo...)
	out = append(out, u16(0)...)
	return out
}

func newTestVM(classes map[string][]byte) (*VM, *rt.MethodArea) {
	area := rt.New(&fakeSource{classes: classes}, intern.New(), nil)
	vm := New(area, nil)
	area.SetClinitInvoker(vm.ClinitInvoker())
	return vm, area
}

func TestInterpreterRunsIaddAndReturns(t *testing.T) {
	code := []byte{0x1A, 0x1B, 0x60, 0xAC} // iload_0, iload_1, iadd, ireturn
	data := buildOneMethodClass("Add", "add", "(II)I", 2, 2, code)
	vm, area := newTestVM(map[string][]byte{"Add": data})

	class, err := area.GetOrLoad("Add")
	require.NoError(t, err)
	method, err := area.ResolveMethod(class.Handle(), rt.MemberKey{Name: "add", Descriptor: "(II)I"})
	require.NoError(t, err)

	thread := vm.NewThread()
	ret, err := thread.CallMethod(class.Handle(), method, []Value{IntValue(3), IntValue(4)})
	require.NoError(t, err)
	require.NotNil(t, ret)
	require.Equal(t, int32(7), ret.Int)
}

func TestInterpreterVoidReturnYieldsNilValue(t *testing.T) {
	code := []byte{0xB1} // return
	data := buildOneMethodClass("Noop", "run", "()V", 0, 0, code)
	vm, area := newTestVM(map[string][]byte{"Noop": data})

	class, err := area.GetOrLoad("Noop")
	require.NoError(t, err)
	method, err := area.ResolveMethod(class.Handle(), rt.MemberKey{Name: "run", Descriptor: "()V"})
	require.NoError(t, err)

	ret, err := vm.NewThread().CallMethod(class.Handle(), method, nil)
	require.NoError(t, err)
	require.Nil(t, ret)
}

func TestInterpreterDoubleSlotArgPlacesFollowingParamCorrectly(t *testing.T) {
	// static long f(long a, int b) { return a + (long) b; }
	// a occupies locals 0-1, so b lands at local 2 and the callee reads it
	// with iload_2, not iload_1.
	code := []byte{0x1E, 0x1C, 0x85, 0x61, 0xAD} // lload_0, iload_2, i2l, ladd, lreturn
	data := buildOneMethodClass("Add2", "f", "(JI)J", 4, 3, code)
	vm, area := newTestVM(map[string][]byte{"Add2": data})

	class, err := area.GetOrLoad("Add2")
	require.NoError(t, err)
	method, err := area.ResolveMethod(class.Handle(), rt.MemberKey{Name: "f", Descriptor: "(JI)J"})
	require.NoError(t, err)

	thread := vm.NewThread()
	ret, err := thread.CallMethod(class.Handle(), method, []Value{LongValue(10), IntValue(5)})
	require.NoError(t, err)
	require.NotNil(t, ret)
	require.Equal(t, int64(15), ret.Long)
}

func TestInterpreterDoubleSlotArgCrossSlotReadIsTypeError(t *testing.T) {
	// static long f(long a, long b) { <bad bytecode reading local 1 as long> }
	// a claims locals 0-1; lload_1 tries to read the reserved high half of a
	// as a Long and must fail rather than silently returning garbage.
	code := []byte{0x1F, 0x6D, 0xAD} // lload_1, l2i (unreached), lreturn (unreached)
	data := buildOneMethodClass("Bad2", "f", "(JJ)J", 4, 4, code)
	vm, area := newTestVM(map[string][]byte{"Bad2": data})

	class, err := area.GetOrLoad("Bad2")
	require.NoError(t, err)
	method, err := area.ResolveMethod(class.Handle(), rt.MemberKey{Name: "f", Descriptor: "(JJ)J"})
	require.NoError(t, err)

	_, err = vm.NewThread().CallMethod(class.Handle(), method, []Value{LongValue(1), LongValue(2)})
	require.Error(t, err)
}

func TestInterpreterUnknownOpcodeErrors(t *testing.T) {
	data := buildOneMethodClass("Bad", "bad", "()V", 0, 0, []byte{0xCA}) // breakpoint: reserved, outside the name table
	vm, area := newTestVM(map[string][]byte{"Bad": data})

	class, err := area.GetOrLoad("Bad")
	require.NoError(t, err)
	method, err := area.ResolveMethod(class.Handle(), rt.MemberKey{Name: "bad", Descriptor: "()V"})
	require.NoError(t, err)

	_, err = vm.NewThread().CallMethod(class.Handle(), method, nil)
	require.Error(t, err)
}
