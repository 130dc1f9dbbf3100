package rt

import "github.com/daimatz/gojvm/pkg/classfile"

// BodyKind tags MethodBody's variants (spec §9: "model bodies as a tagged
// sum {Interpreted, Native, Abstract} with a single dispatch site").
type BodyKind int

const (
	BodyInterpreted BodyKind = iota
	BodyNative
	BodyAbstract
)

// MethodBody is `{ Interpreted{max_stack, max_locals, code_bytes,
// exception_table, ...}, Native, Abstract }` (spec §3).
type MethodBody struct {
	Kind BodyKind
	Code *classfile.CodeAttribute // set only when Kind == BodyInterpreted
}

// Method is `{ declaring_class_id, name, descriptor, flags, body }`
// (spec §3's "Method record").
type Method struct {
	DeclaringClass ClassHandle
	Name           string
	Descriptor     string
	ParsedDesc     *classfile.MethodDescriptor
	AccessFlags    uint16
	Body           MethodBody
}

func (m *Method) IsStatic() bool   { return m.AccessFlags&classfile.AccStatic != 0 }
func (m *Method) IsNative() bool   { return m.Body.Kind == BodyNative }
func (m *Method) IsAbstract() bool { return m.Body.Kind == BodyAbstract }

// newMethodFromInfo builds a Method record from a decoded MethodInfo,
// applying the construction rule from spec §3: abstract and native methods
// carry no Code; all others carry exactly one (guaranteed already by the
// decoder's multiple-Code-attribute rejection).
func newMethodFromInfo(owner ClassHandle, mi *classfile.MethodInfo) (*Method, error) {
	desc, err := classfile.ParseMethodDescriptor(mi.Descriptor)
	if err != nil {
		return nil, err
	}
	m := &Method{
		DeclaringClass: owner,
		Name:           mi.Name,
		Descriptor:     mi.Descriptor,
		ParsedDesc:     desc,
		AccessFlags:    mi.AccessFlags,
	}
	switch {
	case mi.IsAbstract():
		m.Body = MethodBody{Kind: BodyAbstract}
	case mi.IsNative():
		m.Body = MethodBody{Kind: BodyNative}
	default:
		m.Body = MethodBody{Kind: BodyInterpreted, Code: mi.Code}
	}
	return m, nil
}

// Field is `{ name, descriptor, flags, declaring_class }` plus, for static
// fields, the index of its StaticCell in the declaring InstanceClass.
type Field struct {
	DeclaringClass ClassHandle
	Name           string
	Descriptor     string
	ParsedType     classfile.Type
	AccessFlags    uint16
	StaticIndex    int // valid only if IsStatic()
	InstanceOffset int // valid only if !IsStatic()
}

func (f *Field) IsStatic() bool { return f.AccessFlags&classfile.AccStatic != 0 }

func newFieldFromInfo(owner ClassHandle, fi *classfile.FieldInfo) (*Field, error) {
	t, err := classfile.ParseTypeDescriptor(fi.Descriptor)
	if err != nil {
		return nil, err
	}
	return &Field{
		DeclaringClass: owner,
		Name:           fi.Name,
		Descriptor:     fi.Descriptor,
		ParsedType:     t,
		AccessFlags:    fi.AccessFlags,
	}, nil
}

// MemberKey identifies a method or field by (name, descriptor) within one
// class, per spec §4.4's lookup keys.
type MemberKey struct {
	Name       string
	Descriptor string
}
