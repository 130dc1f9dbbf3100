package classfile

import (
	"fmt"
	"os"

	"github.com/daimatz/gojvm/internal/bytereader"
	"github.com/daimatz/gojvm/internal/vmerr"
)

const classMagic = 0xCAFEBABE

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string) (*ClassFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a full classfile from an owned byte buffer (spec §4.2).
// Failure is never partial: the first error encountered is returned and no
// ClassFile is published.
func Parse(data []byte) (*ClassFile, error) {
	r := bytereader.New(data)
	cf := &ClassFile{}

	magic, err := r.U32()
	if err != nil {
		return nil, err
	}
	if magic != classMagic {
		return nil, &vmerr.WrongMagicError{Got: magic}
	}

	if cf.MinorVersion, err = r.U16(); err != nil {
		return nil, err
	}
	if cf.MajorVersion, err = r.U16(); err != nil {
		return nil, err
	}

	cpCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	cf.ConstantPool, err = parseConstantPool(r, cpCount)
	if err != nil {
		return nil, err
	}

	if cf.AccessFlags, err = r.U16(); err != nil {
		return nil, err
	}
	if cf.ThisClass, err = r.U16(); err != nil {
		return nil, err
	}
	if cf.SuperClass, err = r.U16(); err != nil {
		return nil, err
	}

	interfacesCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	cf.Interfaces = make([]uint16, interfacesCount)
	for i := range cf.Interfaces {
		if cf.Interfaces[i], err = r.U16(); err != nil {
			return nil, err
		}
	}

	fieldsCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	cf.Fields, err = parseFields(r, cf.ConstantPool, fieldsCount)
	if err != nil {
		return nil, err
	}

	methodsCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	cf.Methods, err = parseMethods(r, cf.ConstantPool, methodsCount)
	if err != nil {
		return nil, err
	}

	if err := cf.parseClassAttributes(r); err != nil {
		return nil, err
	}

	if !r.AtEnd() {
		return nil, &vmerr.TrailingBytesError{Remaining: r.Remaining()}
	}

	return cf, nil
}

func parseFields(r *bytereader.Reader, pool []ConstantPoolEntry, count uint16) ([]FieldInfo, error) {
	fields := make([]FieldInfo, count)
	for i := range fields {
		accessFlags, err := r.U16()
		if err != nil {
			return nil, err
		}
		nameIndex, err := r.U16()
		if err != nil {
			return nil, err
		}
		descIndex, err := r.U16()
		if err != nil {
			return nil, err
		}
		attrCount, err := r.U16()
		if err != nil {
			return nil, err
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, err
		}
		desc, err := GetUtf8(pool, descIndex)
		if err != nil {
			return nil, err
		}

		attrs, err := parseAttributeInfos(r, pool, attrCount)
		if err != nil {
			return nil, err
		}

		f := FieldInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}
		for _, attr := range attrs {
			if attr.Name == "ConstantValue" && len(attr.Data) == 2 {
				idx := uint16(attr.Data[0])<<8 | uint16(attr.Data[1])
				f.ConstantValue = &idx
			}
		}
		fields[i] = f
	}
	return fields, nil
}

func parseMethods(r *bytereader.Reader, pool []ConstantPoolEntry, count uint16) ([]MethodInfo, error) {
	methods := make([]MethodInfo, count)
	for i := range methods {
		accessFlags, err := r.U16()
		if err != nil {
			return nil, err
		}
		nameIndex, err := r.U16()
		if err != nil {
			return nil, err
		}
		descIndex, err := r.U16()
		if err != nil {
			return nil, err
		}
		attrCount, err := r.U16()
		if err != nil {
			return nil, err
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, err
		}
		desc, err := GetUtf8(pool, descIndex)
		if err != nil {
			return nil, err
		}

		attrs, err := parseAttributeInfos(r, pool, attrCount)
		if err != nil {
			return nil, err
		}

		m := MethodInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}

		codeAttrs := 0
		for _, attr := range attrs {
			if attr.Name == "Code" {
				codeAttrs++
				if codeAttrs > 1 {
					return nil, &vmerr.LinkageError{Class: "<decoding>", Cause: errAttrNotShared("Code")}
				}
				code, err := parseCodeAttribute(attr.Data)
				if err != nil {
					return nil, err
				}
				m.Code = code
			}
		}

		methods[i] = m
	}
	return methods, nil
}

type attrNotSharedError struct{ name string }

func (e *attrNotSharedError) Error() string { return "attribute " + e.name + " must not repeat" }

func errAttrNotShared(name string) error { return &attrNotSharedError{name: name} }

func parseAttributeInfos(r *bytereader.Reader, pool []ConstantPoolEntry, count uint16) ([]AttributeInfo, error) {
	attrs := make([]AttributeInfo, count)
	for i := range attrs {
		nameIndex, err := r.U16()
		if err != nil {
			return nil, err
		}
		length, err := r.U32()
		if err != nil {
			return nil, err
		}
		data, err := r.Exact(int(length))
		if err != nil {
			return nil, err
		}
		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, err
		}
		attrs[i] = AttributeInfo{Name: name, Data: append([]byte(nil), data...)}
	}
	return attrs, nil
}

func parseCodeAttribute(data []byte) (*CodeAttribute, error) {
	r := bytereader.New(data)
	maxStack, err := r.U16()
	if err != nil {
		return nil, err
	}
	maxLocals, err := r.U16()
	if err != nil {
		return nil, err
	}
	codeLength, err := r.U32()
	if err != nil {
		return nil, err
	}
	code, err := r.Exact(int(codeLength))
	if err != nil {
		return nil, err
	}
	code = append([]byte(nil), code...)

	exTableLen, err := r.U16()
	if err != nil {
		return nil, err
	}
	handlers := make([]ExceptionHandler, exTableLen)
	for i := range handlers {
		startPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		endPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		handlerPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		catchType, err := r.U16()
		if err != nil {
			return nil, err
		}
		handlers[i] = ExceptionHandler{StartPC: startPC, EndPC: endPC, HandlerPC: handlerPC, CatchType: catchType}
	}

	code_attr := &CodeAttribute{
		MaxStack:          maxStack,
		MaxLocals:         maxLocals,
		Code:              code,
		ExceptionHandlers: handlers,
	}

	// Nested attributes (LineNumberTable, LocalVariableTable, StackMapTable,
	// …) follow; all of them are skipped without decoding, so LineNumbers
	// and LocalVariables stay empty.
	attrCount, err := r.U16()
	if err != nil {
		return code_attr, nil // Code attributes from some encoders omit this tail; tolerate it.
	}
	for i := uint16(0); i < attrCount; i++ {
		nameIndex, err := r.U16()
		if err != nil {
			return code_attr, nil
		}
		_ = nameIndex
		length, err := r.U32()
		if err != nil {
			return code_attr, nil
		}
		if _, err := r.Exact(int(length)); err != nil {
			return code_attr, nil
		}
	}

	return code_attr, nil
}

func (cf *ClassFile) parseClassAttributes(r *bytereader.Reader) error {
	count, err := r.U16()
	if err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		nameIndex, err := r.U16()
		if err != nil {
			return err
		}
		length, err := r.U32()
		if err != nil {
			return err
		}
		data, err := r.Exact(int(length))
		if err != nil {
			return err
		}
		name, err := GetUtf8(cf.ConstantPool, nameIndex)
		if err != nil {
			continue
		}
		switch name {
		case "BootstrapMethods":
			cf.BootstrapMethods, err = parseBootstrapMethods(data)
			if err != nil {
				return err
			}
		case "SourceFile":
			if len(data) == 2 {
				idx := uint16(data[0])<<8 | uint16(data[1])
				cf.SourceFile, _ = GetUtf8(cf.ConstantPool, idx)
			}
		case "RuntimeVisibleAnnotations":
			cf.Annotations, err = parseAnnotations(data)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func parseBootstrapMethods(data []byte) ([]BootstrapMethod, error) {
	r := bytereader.New(data)
	numMethods, err := r.U16()
	if err != nil {
		return nil, err
	}
	methods := make([]BootstrapMethod, numMethods)
	for i := range methods {
		methodRef, err := r.U16()
		if err != nil {
			return nil, err
		}
		numArgs, err := r.U16()
		if err != nil {
			return nil, err
		}
		args := make([]uint16, numArgs)
		for j := range args {
			if args[j], err = r.U16(); err != nil {
				return nil, err
			}
		}
		methods[i] = BootstrapMethod{MethodRef: methodRef, BootstrapArguments: args}
	}
	return methods, nil
}

// parseAnnotations decodes a RuntimeVisibleAnnotations attribute body
// (JVMS §4.7.16): a u2 count followed by that many annotation structures.
func parseAnnotations(data []byte) ([]Annotation, error) {
	r := bytereader.New(data)
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := make([]Annotation, count)
	for i := range out {
		ann, err := parseAnnotation(r)
		if err != nil {
			return nil, err
		}
		out[i] = ann
	}
	return out, nil
}

// parseAnnotation decodes one annotation structure (JVMS §4.7.16): a type
// index followed by a u2 count of (name, value) element pairs.
func parseAnnotation(r *bytereader.Reader) (Annotation, error) {
	typeIndex, err := r.U16()
	if err != nil {
		return Annotation{}, err
	}
	numPairs, err := r.U16()
	if err != nil {
		return Annotation{}, err
	}
	pairs := make([]ElementValuePair, numPairs)
	for i := range pairs {
		nameIndex, err := r.U16()
		if err != nil {
			return Annotation{}, err
		}
		value, err := parseElementValue(r)
		if err != nil {
			return Annotation{}, err
		}
		pairs[i] = ElementValuePair{ElementNameIndex: nameIndex, Value: value}
	}
	return Annotation{TypeIndex: typeIndex, ElementValuePairs: pairs}, nil
}

// parseElementValue decodes one element_value structure (JVMS §4.7.16.1):
// a one-byte tag selecting which of its fields is populated. '[' and '@'
// recurse into array_value and annotation_value respectively.
func parseElementValue(r *bytereader.Reader) (ElementValue, error) {
	tag, err := r.U8()
	if err != nil {
		return ElementValue{}, err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		idx, err := r.U16()
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: tag, ConstValueIndex: idx}, nil
	case 'e':
		typeIdx, err := r.U16()
		if err != nil {
			return ElementValue{}, err
		}
		constIdx, err := r.U16()
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: tag, EnumTypeIndex: typeIdx, EnumConstName: constIdx}, nil
	case 'c':
		idx, err := r.U16()
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: tag, ClassInfoIndex: idx}, nil
	case '@':
		nested, err := parseAnnotation(r)
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: tag, Annotation: &nested}, nil
	case '[':
		numValues, err := r.U16()
		if err != nil {
			return ElementValue{}, err
		}
		values := make([]ElementValue, numValues)
		for i := range values {
			values[i], err = parseElementValue(r)
			if err != nil {
				return ElementValue{}, err
			}
		}
		return ElementValue{Tag: tag, ArrayValues: values}, nil
	default:
		return ElementValue{}, fmt.Errorf("classfile: unknown element_value tag %q", tag)
	}
}

// ClassName returns the fully qualified binary name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// SuperClassName returns the binary name of the superclass, or "" if
// SuperClass == 0 (permitted only for java/lang/Object, spec §4.2).
func (cf *ClassFile) SuperClassName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return GetClassName(cf.ConstantPool, cf.SuperClass)
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindMethodByName finds a method by name only (first match).
func (cf *ClassFile) FindMethodByName(name string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name {
			return &cf.Methods[i]
		}
	}
	return nil
}
