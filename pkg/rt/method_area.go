package rt

import (
	"fmt"
	"strings"
	"sync"

	"github.com/daimatz/gojvm/internal/intern"
	"github.com/daimatz/gojvm/internal/vmerr"
	"github.com/daimatz/gojvm/pkg/classfile"
	"github.com/daimatz/gojvm/pkg/classfile/rtpool"
	"go.uber.org/zap"
)

// ClassSource is the external collaborator the method area loads bytecode
// through (spec §6's "Class source": `load(binary_name) -> bytes |
// NotFound`). pkg/classloader provides the two concrete implementations.
type ClassSource interface {
	LoadClassBytes(binaryName string) ([]byte, error)
}

// ClinitInvoker executes a class's <clinit>()V method to completion. The
// method area calls back into it rather than depending on the interpreter
// package directly, which would create an import cycle (spec §4.4's
// "triggers <clinit> exactly once per class via an interpreter call").
type ClinitInvoker func(area *MethodArea, class *InstanceClass, clinit *Method) error

// MethodArea owns every linked class, keyed by interned binary name
// (spec §4.4). Classes are never evicted within one VM run.
type MethodArea struct {
	log      *zap.SugaredLogger
	interner *intern.Table
	source   ClassSource
	invoker  ClinitInvoker

	mu      sync.RWMutex
	classes map[intern.Symbol]Class
	byHandle []Class
}

// New creates a MethodArea. invoker may be nil until the interpreter is
// constructed; SetClinitInvoker wires it in afterward to break the
// rt<->engine dependency cycle.
func New(source ClassSource, interner *intern.Table, log *zap.SugaredLogger) *MethodArea {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log.Debug("initializing method area")
	return &MethodArea{
		log:      log,
		interner: interner,
		source:   source,
		classes:  make(map[intern.Symbol]Class),
		byHandle: make([]Class, 1), // handle 0 reserved
	}
}

// SetClinitInvoker wires the interpreter callback used by EnsureInitialized.
func (ma *MethodArea) SetClinitInvoker(inv ClinitInvoker) { ma.invoker = inv }

func (ma *MethodArea) allocHandle(c Class) ClassHandle {
	ma.byHandle = append(ma.byHandle, c)
	return ClassHandle(len(ma.byHandle) - 1)
}

// ClassByHandle returns the class for a previously issued handle.
func (ma *MethodArea) ClassByHandle(h ClassHandle) (Class, bool) {
	ma.mu.RLock()
	defer ma.mu.RUnlock()
	if int(h) <= 0 || int(h) >= len(ma.byHandle) {
		return nil, false
	}
	return ma.byHandle[h], true
}

// GetOrLoad returns the existing class for name or loads, decodes, and
// links it via the class source (spec §4.4). Idempotent on repeated calls.
func (ma *MethodArea) GetOrLoad(name string) (Class, error) {
	sym := ma.interner.Intern(name)

	ma.mu.RLock()
	if c, ok := ma.classes[sym]; ok {
		ma.mu.RUnlock()
		return c, nil
	}
	ma.mu.RUnlock()

	if strings.HasPrefix(name, "[") {
		return ma.getOrSynthesizeArray(name, sym)
	}

	ma.log.Debugw("loading class", "name", name)
	data, err := ma.source.LoadClassBytes(name)
	if err != nil {
		return nil, &vmerr.ClassNotFoundError{Name: name}
	}
	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, &vmerr.LinkageError{Class: name, Cause: err}
	}
	return ma.addClass(sym, cf)
}

func (ma *MethodArea) addClass(sym intern.Symbol, cf *classfile.ClassFile) (Class, error) {
	ma.mu.Lock()
	if c, ok := ma.classes[sym]; ok {
		ma.mu.Unlock()
		return c, nil
	}

	ic := &InstanceClass{
		name:        sym,
		File:        cf,
		Pool:        rtpool.New(cf.ConstantPool, ma.interner),
		AccessFlags: cf.AccessFlags,
		state:       Unlinked,
	}
	ic.handle = ma.allocHandle(ic)
	ma.classes[sym] = ic
	ma.mu.Unlock()

	if err := ma.EnsureLinked(ic.handle); err != nil {
		return nil, err
	}
	ma.log.Debugw("class added", "name", ma.interner.MustResolve(sym))
	return ic, nil
}

// AddClassBytes decodes and links raw bytecode directly, bypassing the
// class source.
func (ma *MethodArea) AddClassBytes(data []byte) (Class, error) {
	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, &vmerr.LinkageError{Class: "<bytes>", Cause: err}
	}
	name, err := cf.ClassName()
	if err != nil {
		return nil, &vmerr.LinkageError{Class: "<bytes>", Cause: err}
	}
	return ma.addClass(ma.interner.Intern(name), cf)
}

func (ma *MethodArea) getOrSynthesizeArray(name string, sym intern.Symbol) (Class, error) {
	elemDescStr := name[1:]
	elemType, err := classfile.ParseTypeDescriptor(elemDescStr)
	if err != nil {
		return nil, &vmerr.LinkageError{Class: name, Cause: err}
	}

	objectHandle, err := ma.GetOrLoad("java/lang/Object")
	if err != nil {
		return nil, err
	}

	ma.mu.Lock()
	defer ma.mu.Unlock()
	if c, ok := ma.classes[sym]; ok {
		return c, nil
	}

	var c Class
	if elemType.Kind == classfile.KindInstance || elemType.Kind == classfile.KindArray {
		var elemHandle ClassHandle
		if elemType.Kind == classfile.KindInstance {
			ma.mu.Unlock()
			elemClass, err := ma.GetOrLoad(elemType.Name)
			ma.mu.Lock()
			if err != nil {
				return nil, err
			}
			elemHandle = elemClass.Handle()
		}
		arr := &ObjectArrayClass{name: sym, ElementClass: elemHandle, super: objectHandle.Handle()}
		arr.handle = ma.allocHandle(arr)
		c = arr
	} else {
		arr := &PrimitiveArrayClass{name: sym, ElementType: elemType, super: objectHandle.Handle()}
		arr.handle = ma.allocHandle(arr)
		c = arr
	}
	ma.classes[sym] = c
	return c, nil
}

// EnsureLinked idempotently transitions a class Unlinked -> Linked,
// validating constant-pool cross-references, computing field layout, and
// linking super_class first (spec §4.4).
func (ma *MethodArea) EnsureLinked(h ClassHandle) error {
	c, ok := ma.ClassByHandle(h)
	if !ok {
		return fmt.Errorf("rt: invalid class handle %d", h)
	}
	ic, ok := c.(*InstanceClass)
	if !ok {
		return nil // array classes need no structural linking
	}

	ic.stateMu.Lock()
	switch ic.state {
	case Linked, Initializing, Initialized:
		ic.stateMu.Unlock()
		return nil
	case Failed:
		err := ic.failErr
		ic.stateMu.Unlock()
		return err
	case Linking:
		ic.stateMu.Unlock()
		return nil // re-entrant linking (e.g. interface cycles) is a no-op
	}
	ic.state = Linking
	ic.stateMu.Unlock()

	if err := ma.link(ic); err != nil {
		ic.stateMu.Lock()
		ic.state = Failed
		ic.failErr = err
		ic.stateMu.Unlock()
		return err
	}

	ic.stateMu.Lock()
	ic.state = Linked
	ic.stateMu.Unlock()
	return nil
}

func (ma *MethodArea) link(ic *InstanceClass) error {
	name := ma.interner.MustResolve(ic.name)

	superName, err := ic.File.SuperClassName()
	if err != nil {
		return &vmerr.LinkageError{Class: name, Cause: err}
	}
	ic.SuperName = superName
	if superName != "" {
		superClass, err := ma.GetOrLoad(superName)
		if err != nil {
			return &vmerr.LinkageError{Class: name, Cause: err}
		}
		if err := ma.EnsureLinked(superClass.Handle()); err != nil {
			return err
		}
		ic.super = superClass.Handle()
		ic.hasSuper = true
		if superIC, ok := superClass.(*InstanceClass); ok {
			ic.baseInstanceOffset = superIC.TotalInstanceFields()
		}
	}

	for _, ifaceIdx := range ic.File.Interfaces {
		ifaceName, err := classfile.GetClassName(ic.File.ConstantPool, ifaceIdx)
		if err != nil {
			return &vmerr.LinkageError{Class: name, Cause: err}
		}
		ic.Interfaces = append(ic.Interfaces, ifaceName)
	}

	instanceOffset := ic.baseInstanceOffset
	for i := range ic.File.Fields {
		fi := &ic.File.Fields[i]
		f, err := newFieldFromInfo(ic.handle, fi)
		if err != nil {
			return &vmerr.LinkageError{Class: name, Cause: err}
		}
		if f.IsStatic() {
			f.StaticIndex = len(ic.StaticFields)
			ic.StaticFields = append(ic.StaticFields, f)
			ic.staticValues = append(ic.staticValues, StaticCell{Descriptor: f.ParsedType, Value: defaultValue(f.ParsedType)})
		} else {
			f.InstanceOffset = instanceOffset
			instanceOffset++
			ic.InstanceFields = append(ic.InstanceFields, f)
		}
	}

	for i := range ic.File.Methods {
		mi := &ic.File.Methods[i]
		m, err := newMethodFromInfo(ic.handle, mi)
		if err != nil {
			return &vmerr.LinkageError{Class: name, Cause: err}
		}
		ic.Methods = append(ic.Methods, m)
	}

	return nil
}

// defaultValue returns the zero value for t (spec §3's per-Type default).
func defaultValue(t classfile.Type) Value {
	switch t.Kind {
	case classfile.KindFloat:
		return Value{Kind: classfile.KindFloat, F32: 0}
	case classfile.KindDouble:
		return Value{Kind: classfile.KindDouble, F64: 0}
	case classfile.KindLong:
		return Value{Kind: classfile.KindLong, I64: 0}
	case classfile.KindInstance, classfile.KindArray:
		return Value{Kind: t.Kind, Ref: 0}
	default:
		return Value{Kind: t.Kind, I32: 0}
	}
}

// ResolveMethod searches holder for (name, descriptor); if absent, searches
// each interface in declaration order, then super_class transitively
// (spec §4.4).
func (ma *MethodArea) ResolveMethod(holder ClassHandle, key MemberKey) (*Method, error) {
	c, ok := ma.ClassByHandle(holder)
	if !ok {
		return nil, fmt.Errorf("rt: invalid class handle %d", holder)
	}
	ic, ok := c.(*InstanceClass)
	if !ok {
		return nil, &vmerr.NoSuchMethodError{Class: fmt.Sprintf("handle:%d", holder), Name: key.Name, Descriptor: key.Descriptor}
	}

	for _, m := range ic.Methods {
		if m.Name == key.Name && m.Descriptor == key.Descriptor {
			return m, nil
		}
	}
	for _, ifaceName := range ic.Interfaces {
		iface, err := ma.GetOrLoad(ifaceName)
		if err != nil {
			continue
		}
		if m, err := ma.ResolveMethod(iface.Handle(), key); err == nil {
			return m, nil
		}
	}
	if ic.hasSuper {
		if m, err := ma.ResolveMethod(ic.super, key); err == nil {
			return m, nil
		}
	}
	return nil, &vmerr.NoSuchMethodError{Class: ma.interner.MustResolve(ic.name), Name: key.Name, Descriptor: key.Descriptor}
}

// ResolveField searches holder for key, then superinterfaces, then
// superclass (spec §4.4).
func (ma *MethodArea) ResolveField(holder ClassHandle, key MemberKey) (*Field, error) {
	c, ok := ma.ClassByHandle(holder)
	if !ok {
		return nil, fmt.Errorf("rt: invalid class handle %d", holder)
	}
	ic, ok := c.(*InstanceClass)
	if !ok {
		return nil, &vmerr.NoSuchFieldError{Class: fmt.Sprintf("handle:%d", holder), Name: key.Name}
	}

	for _, f := range ic.InstanceFields {
		if f.Name == key.Name {
			return f, nil
		}
	}
	for _, f := range ic.StaticFields {
		if f.Name == key.Name {
			return f, nil
		}
	}
	for _, ifaceName := range ic.Interfaces {
		iface, err := ma.GetOrLoad(ifaceName)
		if err != nil {
			continue
		}
		if f, err := ma.ResolveField(iface.Handle(), key); err == nil {
			return f, nil
		}
	}
	if ic.hasSuper {
		if f, err := ma.ResolveField(ic.super, key); err == nil {
			return f, nil
		}
	}
	return nil, &vmerr.NoSuchFieldError{Class: ma.interner.MustResolve(ic.name), Name: key.Name}
}

// StaticValue reads a static field's current value.
func (ma *MethodArea) StaticValue(holder ClassHandle, f *Field) Value {
	c, _ := ma.ClassByHandle(holder)
	ic := c.(*InstanceClass)
	return ic.staticValues[f.StaticIndex].Value
}

// SetStaticValue writes a static field's current value.
func (ma *MethodArea) SetStaticValue(holder ClassHandle, f *Field, v Value) {
	c, _ := ma.ClassByHandle(holder)
	ic := c.(*InstanceClass)
	ic.staticValues[f.StaticIndex].Value = v
}

// EnsureInitialized idempotently triggers <clinit> exactly once per class,
// bracketed by the Initializing state (spec §4.4). Re-entrant
// initialisation of the same class by its own <clinit> sees Initializing
// and returns immediately without blocking (JVMS §5.5).
func (ma *MethodArea) EnsureInitialized(h ClassHandle) error {
	if err := ma.EnsureLinked(h); err != nil {
		return err
	}
	c, ok := ma.ClassByHandle(h)
	if !ok {
		return fmt.Errorf("rt: invalid class handle %d", h)
	}
	ic, ok := c.(*InstanceClass)
	if !ok {
		return nil // array classes have no <clinit>
	}

	if ic.hasSuper {
		if err := ma.EnsureInitialized(ic.super); err != nil {
			return err
		}
	}

	ic.stateMu.Lock()
	switch ic.state {
	case Initialized:
		ic.stateMu.Unlock()
		return nil
	case Initializing:
		ic.stateMu.Unlock()
		return nil // re-entrant: same thread's <clinit> calling back in
	case Failed:
		err := ic.failErr
		ic.stateMu.Unlock()
		return err
	}
	ic.state = Initializing
	ic.stateMu.Unlock()

	var clinit *Method
	for _, m := range ic.Methods {
		if m.Name == "<clinit>" && m.Descriptor == "()V" {
			clinit = m
			break
		}
	}

	var runErr error
	if clinit != nil && ma.invoker != nil {
		runErr = ma.invoker(ma, ic, clinit)
	}

	ic.stateMu.Lock()
	if runErr != nil {
		ic.state = Failed
		ic.failErr = runErr
	} else {
		ic.state = Initialized
	}
	ic.stateMu.Unlock()
	return runErr
}

// AllInstanceFields returns every instance field an object of class h
// carries, ancestors first, ordered to match TotalInstanceFields/offsets.
func (ma *MethodArea) AllInstanceFields(h ClassHandle) []*Field {
	c, ok := ma.ClassByHandle(h)
	if !ok {
		return nil
	}
	ic, ok := c.(*InstanceClass)
	if !ok {
		return nil
	}
	var fields []*Field
	if ic.hasSuper {
		fields = ma.AllInstanceFields(ic.super)
	}
	return append(fields, ic.InstanceFields...)
}

// Interner exposes the method area's shared symbol table, used by
// nativeregistry and engine to intern class/method names consistently.
func (ma *MethodArea) Interner() *intern.Table { return ma.interner }
