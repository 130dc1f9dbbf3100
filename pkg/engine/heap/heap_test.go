package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocInstanceCopiesDefaults(t *testing.T) {
	h := New()
	defaults := []Slot{{Tag: 0, I32: 1}, {Tag: 0, I32: 2}}
	handle := h.AllocInstance(42, defaults)

	obj := h.Get(handle)
	require.Equal(t, KindInstance, obj.Kind)
	require.Equal(t, uint32(42), obj.ClassSymbol)
	require.Equal(t, defaults, obj.Fields)

	// Mutating the caller's slice afterward must not affect the stored copy.
	defaults[0].I32 = 999
	require.Equal(t, int32(1), h.Get(handle).Fields[0].I32)
}

func TestAllocArrayFillsDefaultValue(t *testing.T) {
	h := New()
	handle := h.AllocArray(5, 3, Slot{I32: 7})

	obj := h.Get(handle)
	require.Equal(t, KindArray, obj.Kind)
	require.Len(t, obj.Elements, 3)
	for _, e := range obj.Elements {
		require.Equal(t, int32(7), e.I32)
	}
}

func TestReadWriteField(t *testing.T) {
	h := New()
	handle := h.AllocInstance(1, []Slot{{I32: 0}})

	h.WriteField(handle, 0, Slot{I32: 11})
	require.Equal(t, int32(11), h.ReadField(handle, 0).I32)
}

func TestGetInvalidHandlePanics(t *testing.T) {
	h := New()
	require.Panics(t, func() { h.Get(Handle(99)) })
	require.Panics(t, func() { h.Get(Null) })
}

func TestNullHandleIsZero(t *testing.T) {
	require.Equal(t, Handle(0), Null)
}
