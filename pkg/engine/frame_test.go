package engine

import (
	"testing"

	"github.com/daimatz/gojvm/pkg/classfile"
	"github.com/daimatz/gojvm/pkg/rt"
	"github.com/stretchr/testify/require"
)

func newTestFrame(maxStack, maxLocals uint16, code []byte) *Frame {
	method := &rt.Method{
		Name: "test",
		Body: rt.MethodBody{
			Kind: rt.BodyInterpreted,
			Code: &classfile.CodeAttribute{MaxStack: maxStack, MaxLocals: maxLocals, Code: code},
		},
	}
	return NewFrame(method, rt.ClassHandle(1))
}

func TestFramePushPopPeek(t *testing.T) {
	f := newTestFrame(2, 0, nil)
	f.Push(IntValue(1))
	f.Push(IntValue(2))
	require.Equal(t, IntValue(2), f.Peek())
	require.Equal(t, IntValue(2), f.Pop())
	require.Equal(t, IntValue(1), f.Pop())
}

func TestFramePopUnderflowPanics(t *testing.T) {
	f := newTestFrame(1, 0, nil)
	require.Panics(t, func() { f.Pop() })
}

func TestFramePushOverflowPanics(t *testing.T) {
	f := newTestFrame(1, 0, nil)
	f.Push(IntValue(1))
	require.Panics(t, func() { f.Push(IntValue(2)) })
}

func TestFrameGetLocalTypeMismatchErrors(t *testing.T) {
	f := newTestFrame(0, 2, nil)
	f.SetLocal(0, IntValue(5))

	_, err := f.GetLocal(0, TypeLong)
	require.Error(t, err)

	v, err := f.GetLocal(0, TypeInt)
	require.NoError(t, err)
	require.Equal(t, int32(5), v.Int)
}

func TestFrameReadOperands(t *testing.T) {
	f := newTestFrame(0, 0, []byte{0x12, 0x00, 0x34, 0xFF, 0xFF, 0xFF, 0xFD})
	require.Equal(t, uint8(0x12), f.ReadU8())
	require.Equal(t, uint16(0x0034), f.ReadU16())
	require.Equal(t, int32(-3), f.ReadI32())
}
