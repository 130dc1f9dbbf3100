// Package classfile decodes the JVM classfile binary format (JVMS §4) into a
// structured, in-memory record. It performs structural parsing only: no
// cross-pool reference is resolved here (that's rtpool's job) and no class
// is linked against another (that's pkg/rt's job).
package classfile

// Access flags shared by classes, fields, and methods (JVMS §4.1, §4.5, §4.6).
// Only the subset this core inspects is named; others are preserved in the
// raw AccessFlags field untouched.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccBridge       = 0x0040
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
	AccModule       = 0x8000
)

// ClassFile is the structural decode of a .class binary.
type ClassFile struct {
	MinorVersion     uint16
	MajorVersion     uint16
	ConstantPool     []ConstantPoolEntry
	AccessFlags      uint16
	ThisClass        uint16
	SuperClass       uint16
	Interfaces       []uint16
	Fields           []FieldInfo
	Methods          []MethodInfo
	SourceFile       string
	BootstrapMethods []BootstrapMethod
	Annotations      []Annotation
}

// ConstantPoolEntry is implemented by every constant pool tagged-union
// member (spec §3's "Constant pool entry").
type ConstantPoolEntry interface {
	Tag() uint8
}

type ConstantUtf8 struct{ Value string }

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

type ConstantInteger struct{ Value int32 }

func (c *ConstantInteger) Tag() uint8 { return TagInteger }

type ConstantFloat struct{ Value float32 }

func (c *ConstantFloat) Tag() uint8 { return TagFloat }

type ConstantLong struct{ Value int64 }

func (c *ConstantLong) Tag() uint8 { return TagLong }

type ConstantDouble struct{ Value float64 }

func (c *ConstantDouble) Tag() uint8 { return TagDouble }

type ConstantClass struct{ NameIndex uint16 }

func (c *ConstantClass) Tag() uint8 { return TagClass }

type ConstantString struct{ StringIndex uint16 }

func (c *ConstantString) Tag() uint8 { return TagString }

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldref) Tag() uint8 { return TagFieldref }

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodref) Tag() uint8 { return TagMethodref }

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

// ConstantMethodHandle is CONSTANT_MethodHandle_info (JVMS §4.4.8).
// ReferenceKind is one of REF_getField(1) .. REF_invokeInterface(9).
type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandle) Tag() uint8 { return TagMethodHandle }

type ConstantMethodType struct{ DescriptorIndex uint16 }

func (c *ConstantMethodType) Tag() uint8 { return TagMethodType }

// ConstantDynamic is CONSTANT_Dynamic_info (JVMS §4.4.10).
type ConstantDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamic) Tag() uint8 { return TagDynamic }

// ConstantInvokeDynamic is CONSTANT_InvokeDynamic_info (JVMS §4.4.10).
type ConstantInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantInvokeDynamic) Tag() uint8 { return TagInvokeDynamic }

type ConstantModule struct{ NameIndex uint16 }

func (c *ConstantModule) Tag() uint8 { return TagModule }

type ConstantPackage struct{ NameIndex uint16 }

func (c *ConstantPackage) Tag() uint8 { return TagPackage }

// constantPoolPadding occupies the dummy slot following a Long or Double
// entry; it is never a valid lookup target.
type constantPoolPadding struct{}

func (c *constantPoolPadding) Tag() uint8 { return 0 }

// MethodInfo represents a method_info structure (JVMS §4.6).
type MethodInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
	Code        *CodeAttribute
}

// IsStatic reports whether ACC_STATIC is set.
func (m *MethodInfo) IsStatic() bool { return m.AccessFlags&AccStatic != 0 }

// IsNative reports whether ACC_NATIVE is set.
func (m *MethodInfo) IsNative() bool { return m.AccessFlags&AccNative != 0 }

// IsAbstract reports whether ACC_ABSTRACT is set.
func (m *MethodInfo) IsAbstract() bool { return m.AccessFlags&AccAbstract != 0 }

// FieldInfo represents a field_info structure (JVMS §4.5).
type FieldInfo struct {
	AccessFlags    uint16
	Name           string
	Descriptor     string
	Attributes     []AttributeInfo
	ConstantValue  *uint16 // pool index, set only if a ConstantValue attribute is present
}

// IsStatic reports whether ACC_STATIC is set.
func (f *FieldInfo) IsStatic() bool { return f.AccessFlags&AccStatic != 0 }

// AttributeInfo is a raw, name-resolved attribute_info. Unknown names are
// preserved opaquely in Data rather than rejected, per spec §4.2.
type AttributeInfo struct {
	Name string
	Data []byte
}

// ExceptionHandler is one entry of a Code attribute's exception_table
// (JVMS §4.7.3).
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// LineNumberEntry is one entry of a LineNumberTable attribute.
type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

// LocalVariableEntry is one entry of a LocalVariableTable attribute.
type LocalVariableEntry struct {
	StartPC    uint16
	Length     uint16
	NameIndex  uint16
	DescIndex  uint16
	Index      uint16
}

// CodeAttribute represents the Code attribute of a method (JVMS §4.7.3).
type CodeAttribute struct {
	MaxStack          uint16
	MaxLocals          uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
	LineNumbers       []LineNumberEntry
	LocalVariables    []LocalVariableEntry
}

// BootstrapMethod is one entry of the class-level BootstrapMethods
// attribute (JVMS §4.7.23), referenced by CONSTANT_Dynamic/InvokeDynamic.
type BootstrapMethod struct {
	MethodRef          uint16
	BootstrapArguments []uint16
}

// Annotation and ElementValue implement the recursive decode of
// RuntimeVisibleAnnotations (JVMS §4.7.16).
type Annotation struct {
	TypeIndex         uint16
	ElementValuePairs []ElementValuePair
}

type ElementValuePair struct {
	ElementNameIndex uint16
	Value            ElementValue
}

// ElementValue is a tagged sum over the single-byte element_value tags
// `B C D F I J S Z s e c @ [`.
type ElementValue struct {
	Tag byte

	ConstValueIndex uint16         // B C D F I J S Z s
	EnumTypeIndex   uint16         // e
	EnumConstName   uint16         // e
	ClassInfoIndex  uint16         // c
	Annotation      *Annotation    // @
	ArrayValues     []ElementValue // [
}
