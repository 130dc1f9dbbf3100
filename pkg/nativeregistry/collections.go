package nativeregistry

import (
	"sync"

	"github.com/daimatz/gojvm/pkg/engine"
	"github.com/daimatz/gojvm/pkg/engine/heap"
)

// mapKey is a hashable stand-in for a boxed java/lang/Object key: strings
// compare by content (matching String.equals/hashCode), everything else by
// heap identity, the same two cases the teacher's NativeHashMap.Get/Put
// special-cased for *NativeInteger vs. arbitrary keys.
type mapKey struct {
	isString bool
	text     string
	ref      heap.Handle
}

func keyOf(vm *engine.VM, v engine.Value) mapKey {
	if v.Ref == 0 {
		return mapKey{}
	}
	h := vmHeapHandle(v.Ref)
	if obj := vm.Heap.Get(h); obj.Kind == heap.KindString {
		return mapKey{isString: true, text: obj.Text}
	}
	return mapKey{ref: h}
}

// hashMapTable holds every live java/util/HashMap's backing store, keyed by
// the instance's heap handle. A side table (rather than storage inside
// heap.Object) keeps heap.Object's shape uniform across every class instead
// of special-casing one JDK collection.
type hashMapTable struct {
	mu    sync.Mutex
	byMap map[heap.Handle]map[mapKey]engine.Value
}

func newHashMapTable() *hashMapTable {
	return &hashMapTable{byMap: make(map[heap.Handle]map[mapKey]engine.Value)}
}

func (t *hashMapTable) init(h heap.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.byMap[h] == nil {
		t.byMap[h] = make(map[mapKey]engine.Value)
	}
}

func (t *hashMapTable) put(h heap.Handle, k mapKey, v engine.Value) engine.Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.byMap[h]
	old := m[k]
	m[k] = v
	return old
}

func (t *hashMapTable) get(h heap.Handle, k mapKey) (engine.Value, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.byMap[h][k]
	return v, ok
}

func (t *hashMapTable) size(h heap.Handle) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int32(len(t.byMap[h]))
}

// registerCollectionIntrinsics relocates the teacher's NativeHashMap
// (pkg/native/hashmap.go) into registry form, backed by hashMapTable
// instead of a bare Go struct so every instance still goes through the
// ordinary heap allocation path for `new java.util.HashMap()`.
func registerCollectionIntrinsics(r *Registry) {
	table := newHashMapTable()

	r.Register(Key{Class: "java/util/HashMap", Name: "<init>", Descriptor: "()V"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		table.init(vmHeapHandle(args[0].Ref))
		return nil, nil
	})
	r.Register(Key{Class: "java/util/HashMap", Name: "put", Descriptor: "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		h := vmHeapHandle(args[0].Ref)
		old := table.put(h, keyOf(vm, args[1]), args[2])
		ret := old
		return &ret, nil
	})
	r.Register(Key{Class: "java/util/HashMap", Name: "get", Descriptor: "(Ljava/lang/Object;)Ljava/lang/Object;"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		h := vmHeapHandle(args[0].Ref)
		v, ok := table.get(h, keyOf(vm, args[1]))
		if !ok {
			v = engine.NullValue()
		}
		return &v, nil
	})
	r.Register(Key{Class: "java/util/HashMap", Name: "containsKey", Descriptor: "(Ljava/lang/Object;)Z"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		h := vmHeapHandle(args[0].Ref)
		_, ok := table.get(h, keyOf(vm, args[1]))
		ret := engine.BoolAsInt(ok)
		return &ret, nil
	})
	r.Register(Key{Class: "java/util/HashMap", Name: "size", Descriptor: "()I"}, func(vm *engine.VM, th *engine.Thread, args []engine.Value) (*engine.Value, error) {
		ret := engine.IntValue(table.size(vmHeapHandle(args[0].Ref)))
		return &ret, nil
	})
}
