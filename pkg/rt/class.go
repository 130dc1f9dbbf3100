package rt

import (
	"sync"

	"github.com/daimatz/gojvm/internal/intern"
	"github.com/daimatz/gojvm/pkg/classfile"
	"github.com/daimatz/gojvm/pkg/classfile/rtpool"
)

// InitState is the class-linking/initialisation state machine (spec §4.4):
// Unlinked -> Linking -> Linked -> Initializing -> Initialized, with an
// absorbing Failed(reason) reachable from any state.
type InitState int32

const (
	Unlinked InitState = iota
	Linking
	Linked
	Initializing
	Initialized
	Failed
)

func (s InitState) String() string {
	switch s {
	case Unlinked:
		return "Unlinked"
	case Linking:
		return "Linking"
	case Linked:
		return "Linked"
	case Initializing:
		return "Initializing"
	case Initialized:
		return "Initialized"
	case Failed:
		return "Failed"
	default:
		return "?"
	}
}

// Class is implemented by every runtime class variant: ordinary instance
// classes and the two array-class shapes synthesised on demand (spec §4.4's
// "Array classes"), grounded on the original implementation's rt/mod.rs
// `JvmClass` enum.
type Class interface {
	Name() intern.Symbol
	Handle() ClassHandle
	SuperHandle() (ClassHandle, bool)
	MirrorHandle() (uint32, bool)
	SetMirrorHandle(h uint32) bool
}

// mirror is the lazily-settable, write-once heap handle to a class's
// java.lang.Class mirror object, shared by every Class variant (grounded on
// the original's OnceCell<HeapRef> mirror_ref field).
type mirror struct {
	mu    sync.Mutex
	set   bool
	value uint32
}

func (m *mirror) get() (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.set
}

func (m *mirror) trySet(v uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.set {
		return false
	}
	m.value = v
	m.set = true
	return true
}

// InstanceClass is an ordinary linked class: fields, methods, constant
// pool, and init state (spec §3's "Class record").
type InstanceClass struct {
	name    intern.Symbol
	handle  ClassHandle
	mirror  mirror

	File  *classfile.ClassFile
	Pool  *rtpool.Pool

	SuperName    string
	super        ClassHandle
	hasSuper     bool
	Interfaces   []string
	AccessFlags  uint16

	// baseInstanceOffset is the number of instance-field slots claimed by
	// the superclass chain; this class's own fields are laid out starting
	// here so a subclass object's heap.Object.Fields slice can hold every
	// ancestor's fields contiguously.
	baseInstanceOffset int

	InstanceFields []*Field
	StaticFields   []*Field
	staticValues   []StaticCell
	Methods        []*Method

	stateMu sync.Mutex
	state   InitState
	failErr error
	initOnce sync.Once
}

// StaticCell is one class-record static-field slot (spec §3: "Static field
// value types are compatible with their resolved descriptors at all times").
type StaticCell struct {
	Descriptor classfile.Type
	Value      Value
}

// Value is a typed static/instance field value; engine.Value mirrors this
// shape but lives in a higher package, so rt keeps its own minimal copy to
// avoid an import cycle (engine depends on rt, not the reverse).
type Value struct {
	Kind classfile.TypeKind
	I32  int32
	I64  int64
	F32  float32
	F64  float64
	Ref  uint32
}

func (c *InstanceClass) Name() intern.Symbol    { return c.name }
func (c *InstanceClass) Handle() ClassHandle    { return c.handle }
func (c *InstanceClass) MirrorHandle() (uint32, bool) { return c.mirror.get() }
func (c *InstanceClass) SetMirrorHandle(v uint32) bool { return c.mirror.trySet(v) }

func (c *InstanceClass) SuperHandle() (ClassHandle, bool) { return c.super, c.hasSuper }

// TotalInstanceFields returns the number of instance-field slots an object
// of this class needs, including every inherited ancestor field.
func (c *InstanceClass) TotalInstanceFields() int {
	return c.baseInstanceOffset + len(c.InstanceFields)
}

// State returns the current link/init state under lock.
func (c *InstanceClass) State() InitState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// PrimitiveArrayClass is a synthesised array class whose element type is a
// JVM primitive (e.g. `[I`), per spec §4.4's "Array classes".
type PrimitiveArrayClass struct {
	name        intern.Symbol
	handle      ClassHandle
	mirror      mirror
	ElementType classfile.Type
	super       ClassHandle // always java/lang/Object
}

func (a *PrimitiveArrayClass) Name() intern.Symbol        { return a.name }
func (a *PrimitiveArrayClass) Handle() ClassHandle        { return a.handle }
func (a *PrimitiveArrayClass) MirrorHandle() (uint32, bool) { return a.mirror.get() }
func (a *PrimitiveArrayClass) SetMirrorHandle(v uint32) bool { return a.mirror.trySet(v) }
func (a *PrimitiveArrayClass) SuperHandle() (ClassHandle, bool) { return a.super, true }

// ObjectArrayClass is a synthesised array class whose element type is a
// reference type (`[Lx;` or `[[x`), per spec §4.4's "Array classes".
type ObjectArrayClass struct {
	name          intern.Symbol
	handle        ClassHandle
	mirror        mirror
	ElementClass  ClassHandle
	super         ClassHandle // always java/lang/Object
}

func (a *ObjectArrayClass) Name() intern.Symbol        { return a.name }
func (a *ObjectArrayClass) Handle() ClassHandle        { return a.handle }
func (a *ObjectArrayClass) MirrorHandle() (uint32, bool) { return a.mirror.get() }
func (a *ObjectArrayClass) SetMirrorHandle(v uint32) bool { return a.mirror.trySet(v) }
func (a *ObjectArrayClass) SuperHandle() (ClassHandle, bool) { return a.super, true }
