// Package heap implements the execution core's heap of tagged objects and
// its string intern pool (spec §4.7), grounded directly on the original
// implementation's runtime/heap.rs and runtime/string_pool.rs.
package heap

import "fmt"

// Handle is an opaque, non-zero index into the heap. The zero Handle is
// reserved as "null".
type Handle uint32

// Null is the reserved null handle.
const Null Handle = 0

// Kind tags the variants of a heap object (spec §3's "Heap object").
type Kind int

const (
	KindInstance Kind = iota
	KindArray
	KindString
)

// Object is one allocation: `Instance{class_id, fields}`, `Array{element_type,
// length, elements}`, or `String{intern_index}`.
type Object struct {
	Kind Kind

	// Instance
	ClassSymbol uint32
	Fields      []Slot

	// Array
	ElementKind byte // classfile.TypeKind encoded as byte to avoid an import cycle
	Elements    []Slot

	// String
	Text string
}

// Slot is a typed value stored in an instance field or array element; it
// mirrors engine.Value's shape without importing the engine package (heap
// sits below engine in the dependency chain).
type Slot struct {
	Tag byte // matches engine.ValueType's encoding
	I32 int32
	I64 int64
	F32 float32
	F64 float64
	Ref Handle
}

// Heap is an append-only vector of tagged objects; a Handle is its 1-based
// index (index 0 stays permanently nil, doubling as the null handle).
type Heap struct {
	objects []*Object
}

// New creates an empty Heap.
func New() *Heap {
	return &Heap{objects: make([]*Object, 1)}
}

func (h *Heap) push(obj *Object) Handle {
	h.objects = append(h.objects, obj)
	return Handle(len(h.objects) - 1)
}

// AllocInstance allocates a new instance of classSymbol with len(fieldDefaults)
// fields, each initialised to its descriptor's default value.
func (h *Heap) AllocInstance(classSymbol uint32, fieldDefaults []Slot) Handle {
	fields := make([]Slot, len(fieldDefaults))
	copy(fields, fieldDefaults)
	return h.push(&Object{Kind: KindInstance, ClassSymbol: classSymbol, Fields: fields})
}

// AllocArray allocates a new array of length elements, each set to the
// given default slot.
func (h *Heap) AllocArray(elementKind byte, length int, defaultValue Slot) Handle {
	elems := make([]Slot, length)
	for i := range elems {
		elems[i] = defaultValue
	}
	return h.push(&Object{Kind: KindArray, ElementKind: elementKind, Elements: elems})
}

// AllocString allocates a new, un-interned String object. Callers that need
// `ldc`'s interning invariant should go through StringPool.GetOrNew instead.
func (h *Heap) AllocString(s string) Handle {
	return h.push(&Object{Kind: KindString, Text: s})
}

// Get returns the object at h, panicking on an invalid handle (mirroring
// the original implementation's `expect("heap: invalid handle")`, since an
// invalid handle here indicates a VM-internal bug, not recoverable input).
func (hp *Heap) Get(h Handle) *Object {
	if int(h) <= 0 || int(h) >= len(hp.objects) {
		panic(fmt.Sprintf("heap: invalid handle %d", h))
	}
	return hp.objects[h]
}

// ReadField returns the value of instance field slot on handle h.
func (hp *Heap) ReadField(h Handle, slot int) Slot {
	obj := hp.Get(h)
	if obj.Kind != KindInstance {
		panic("heap: ReadField on non-instance")
	}
	return obj.Fields[slot]
}

// WriteField sets the value of instance field slot on handle h.
func (hp *Heap) WriteField(h Handle, slot int, v Slot) {
	obj := hp.Get(h)
	if obj.Kind != KindInstance {
		panic("heap: WriteField on non-instance")
	}
	obj.Fields[slot] = v
}
