// Package rtpool implements the constant-pool runtime resolver (spec §4.3):
// a lazy, index-addressable cache of write-once resolution cells layered
// over a class's raw decoded constant pool.
package rtpool

import (
	"sync"

	"github.com/daimatz/gojvm/internal/intern"
	"github.com/daimatz/gojvm/internal/vmerr"
	"github.com/daimatz/gojvm/pkg/classfile"
)

// ClassRef is a resolved CONSTANT_Class entry: just the interned binary
// name. Loading the referenced class is the method area's job, not the
// resolver's (spec §4.3: "The resolver does not load referenced classes").
type ClassRef struct {
	Name intern.Symbol
}

// MethodRef is a resolved CONSTANT_Methodref/InterfaceMethodref entry.
type MethodRef struct {
	ClassName  intern.Symbol
	MethodName intern.Symbol
	Descriptor intern.Symbol
}

// FieldRef is a resolved CONSTANT_Fieldref entry.
type FieldRef struct {
	ClassName  intern.Symbol
	FieldName  intern.Symbol
	Descriptor intern.Symbol
}

// NameAndTypeRef is a resolved CONSTANT_NameAndType entry.
type NameAndTypeRef struct {
	Name       intern.Symbol
	Descriptor intern.Symbol
}

// cell is a write-once resolution slot: Empty | Resolved(value) | Poisoned
// (spec §4.3). Concurrent resolution of the same cell by two callers is
// allowed; sync.Once makes the second caller simply wait for the first.
type cell struct {
	once  sync.Once
	value any
	err   error
}

// Pool is the runtime constant pool for one class: one cell per pool index,
// layered over the structurally-decoded classfile.ConstantPoolEntry slice.
type Pool struct {
	raw     []classfile.ConstantPoolEntry
	interner *intern.Table
	cells   []cell
}

// New creates a runtime pool over raw, using interner to intern every
// symbol (class name, method name, descriptor) it produces.
func New(raw []classfile.ConstantPoolEntry, interner *intern.Table) *Pool {
	return &Pool{raw: raw, interner: interner, cells: make([]cell, len(raw))}
}

func (p *Pool) resolve(index uint16, kind string, fn func() (any, error)) (any, error) {
	if int(index) >= len(p.cells) {
		return nil, &vmerr.ConstantNotFoundError{Index: int(index)}
	}
	c := &p.cells[index]
	c.once.Do(func() {
		c.value, c.err = fn()
	})
	if c.err != nil {
		return nil, c.err
	}
	return c.value, nil
}

// Class resolves a CONSTANT_Class entry to a ClassRef.
func (p *Pool) Class(index uint16) (*ClassRef, error) {
	v, err := p.resolve(index, "Class", func() (any, error) {
		name, err := classfile.GetClassName(p.raw, index)
		if err != nil {
			return nil, err
		}
		return &ClassRef{Name: p.interner.Intern(name)}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ClassRef), nil
}

// String resolves a CONSTANT_String entry to its referenced Utf8 text.
func (p *Pool) String(index uint16) (string, error) {
	v, err := p.resolve(index, "String", func() (any, error) {
		entry, err := bounds(p.raw, index)
		if err != nil {
			return nil, err
		}
		s, ok := entry.(*classfile.ConstantString)
		if !ok {
			return nil, &vmerr.TypeError{Index: int(index), Expected: "String", Actual: "other"}
		}
		return classfile.GetUtf8(p.raw, s.StringIndex)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// NameAndType resolves a CONSTANT_NameAndType entry.
func (p *Pool) NameAndType(index uint16) (*NameAndTypeRef, error) {
	v, err := p.resolve(index, "NameAndType", func() (any, error) {
		entry, err := bounds(p.raw, index)
		if err != nil {
			return nil, err
		}
		nat, ok := entry.(*classfile.ConstantNameAndType)
		if !ok {
			return nil, &vmerr.TypeError{Index: int(index), Expected: "NameAndType", Actual: "other"}
		}
		name, err := classfile.GetUtf8(p.raw, nat.NameIndex)
		if err != nil {
			return nil, err
		}
		desc, err := classfile.GetUtf8(p.raw, nat.DescriptorIndex)
		if err != nil {
			return nil, err
		}
		return &NameAndTypeRef{Name: p.interner.Intern(name), Descriptor: p.interner.Intern(desc)}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*NameAndTypeRef), nil
}

// MethodRef resolves a CONSTANT_Methodref entry.
func (p *Pool) MethodRef(index uint16) (*MethodRef, error) {
	v, err := p.resolve(index, "Methodref", func() (any, error) {
		info, err := classfile.ResolveMethodref(p.raw, index)
		if err != nil {
			return nil, err
		}
		return &MethodRef{
			ClassName:  p.interner.Intern(info.ClassName),
			MethodName: p.interner.Intern(info.MethodName),
			Descriptor: p.interner.Intern(info.Descriptor),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*MethodRef), nil
}

// InterfaceMethodRef resolves a CONSTANT_InterfaceMethodref entry.
func (p *Pool) InterfaceMethodRef(index uint16) (*MethodRef, error) {
	v, err := p.resolve(index, "InterfaceMethodref", func() (any, error) {
		info, err := classfile.ResolveInterfaceMethodref(p.raw, index)
		if err != nil {
			return nil, err
		}
		return &MethodRef{
			ClassName:  p.interner.Intern(info.ClassName),
			MethodName: p.interner.Intern(info.MethodName),
			Descriptor: p.interner.Intern(info.Descriptor),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*MethodRef), nil
}

// FieldRef resolves a CONSTANT_Fieldref entry.
func (p *Pool) FieldRef(index uint16) (*FieldRef, error) {
	v, err := p.resolve(index, "Fieldref", func() (any, error) {
		info, err := classfile.ResolveFieldref(p.raw, index)
		if err != nil {
			return nil, err
		}
		return &FieldRef{
			ClassName:  p.interner.Intern(info.ClassName),
			FieldName:  p.interner.Intern(info.FieldName),
			Descriptor: p.interner.Intern(info.Descriptor),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*FieldRef), nil
}

// MethodDescriptor resolves and parses a method descriptor string at index
// (index must point at a Utf8 entry holding a valid descriptor).
func (p *Pool) MethodDescriptor(index uint16) (*classfile.MethodDescriptor, error) {
	v, err := p.resolve(index, "MethodDescriptor", func() (any, error) {
		s, err := classfile.GetUtf8(p.raw, index)
		if err != nil {
			return nil, err
		}
		return classfile.ParseMethodDescriptor(s)
	})
	if err != nil {
		return nil, err
	}
	return v.(*classfile.MethodDescriptor), nil
}

// TypeDescriptor resolves and parses a field-type descriptor string at index.
func (p *Pool) TypeDescriptor(index uint16) (classfile.Type, error) {
	v, err := p.resolve(index, "TypeDescriptor", func() (any, error) {
		s, err := classfile.GetUtf8(p.raw, index)
		if err != nil {
			return nil, err
		}
		return classfile.ParseTypeDescriptor(s)
	})
	if err != nil {
		return classfile.Type{}, err
	}
	return v.(classfile.Type), nil
}

func bounds(pool []classfile.ConstantPoolEntry, index uint16) (classfile.ConstantPoolEntry, error) {
	if index == 0 || int(index) >= len(pool) || pool[index] == nil {
		return nil, &vmerr.ConstantNotFoundError{Index: int(index)}
	}
	return pool[index], nil
}
