package nativeregistry

import (
	"testing"

	"github.com/daimatz/gojvm/pkg/engine"
	"github.com/stretchr/testify/require"
)

func TestLookupExactMatchWinsOverAnyReceiver(t *testing.T) {
	r := New()
	var exactCalled, anyCalled bool

	r.Register(Key{Name: "foo", Descriptor: "()V"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		anyCalled = true
		return nil, nil
	})
	r.Register(Key{Class: "my/Class", Name: "foo", Descriptor: "()V"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		exactCalled = true
		return nil, nil
	})

	fn, ok := r.Lookup("my/Class", "foo", "()V")
	require.True(t, ok)
	_, err := fn(nil, nil, nil)
	require.NoError(t, err)
	require.True(t, exactCalled)
	require.False(t, anyCalled)
}

func TestLookupFallsBackToAnyReceiver(t *testing.T) {
	r := New()
	var called bool
	r.Register(Key{Name: "foo", Descriptor: "()V"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		called = true
		return nil, nil
	})

	fn, ok := r.Lookup("other/Class", "foo", "()V")
	require.True(t, ok)
	_, err := fn(nil, nil, nil)
	require.NoError(t, err)
	require.True(t, called)
}

func TestLookupMiss(t *testing.T) {
	r := New()
	_, ok := r.Lookup("my/Class", "bar", "()V")
	require.False(t, ok)
}

func TestBootstrapRegistersCoreIntrinsics(t *testing.T) {
	r := Bootstrap()
	for _, k := range []Key{
		{Class: "java/lang/Object", Name: "registerNatives", Descriptor: "()V"},
		{Class: "java/lang/String", Name: "hashCode", Descriptor: "()I"},
		{Class: "java/lang/Integer", Name: "valueOf", Descriptor: "(I)Ljava/lang/Integer;"},
		{Class: "java/util/HashMap", Name: "put", Descriptor: "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;"},
	} {
		_, ok := r.Lookup(k.Class, k.Name, k.Descriptor)
		require.True(t, ok, "expected %+v to be registered", k)
	}
}
