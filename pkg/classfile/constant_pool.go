package classfile

import (
	"github.com/daimatz/gojvm/internal/bytereader"
	"github.com/daimatz/gojvm/internal/vmerr"
)

// Constant pool tags (JVMS §4.4).
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// parseConstantPool reads constant_pool_count-1 entries from r. The returned
// slice is 1-indexed: index 0 is nil, and the second slot following every
// Long/Double entry holds a constantPoolPadding placeholder (spec §3, §4.2).
func parseConstantPool(r *bytereader.Reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)

	for i := uint16(1); i < count; i++ {
		tag, err := r.U8()
		if err != nil {
			return nil, err
		}

		switch tag {
		case TagUtf8:
			length, err := r.U16()
			if err != nil {
				return nil, err
			}
			b, err := r.Exact(int(length))
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantUtf8{Value: string(b)}

		case TagInteger:
			v, err := r.I32()
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantInteger{Value: v}

		case TagFloat:
			v, err := r.F32()
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantFloat{Value: v}

		case TagLong:
			v, err := r.I64()
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantLong{Value: v}
			i++
			if int(i) < len(pool) {
				pool[i] = &constantPoolPadding{}
			}

		case TagDouble:
			v, err := r.F64()
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantDouble{Value: v}
			i++
			if int(i) < len(pool) {
				pool[i] = &constantPoolPadding{}
			}

		case TagClass:
			nameIndex, err := r.U16()
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantClass{NameIndex: nameIndex}

		case TagString:
			stringIndex, err := r.U16()
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantString{StringIndex: stringIndex}

		case TagFieldref:
			classIndex, natIndex, err := readRef(r)
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagMethodref:
			classIndex, natIndex, err := readRef(r)
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagInterfaceMethodref:
			classIndex, natIndex, err := readRef(r)
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantInterfaceMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagNameAndType:
			nameIndex, descIndex, err := readRef(r)
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex}

		case TagMethodHandle:
			kind, err := r.U8()
			if err != nil {
				return nil, err
			}
			if kind < 1 || kind > 9 {
				return nil, &vmerr.InvalidMethodHandleKindError{Kind: kind}
			}
			refIndex, err := r.U16()
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: refIndex}

		case TagMethodType:
			descIndex, err := r.U16()
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantMethodType{DescriptorIndex: descIndex}

		case TagDynamic:
			bsmIndex, natIndex, err := readRef(r)
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantDynamic{BootstrapMethodAttrIndex: bsmIndex, NameAndTypeIndex: natIndex}

		case TagInvokeDynamic:
			bsmIndex, natIndex, err := readRef(r)
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantInvokeDynamic{BootstrapMethodAttrIndex: bsmIndex, NameAndTypeIndex: natIndex}

		case TagModule:
			nameIndex, err := r.U16()
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantModule{NameIndex: nameIndex}

		case TagPackage:
			nameIndex, err := r.U16()
			if err != nil {
				return nil, err
			}
			pool[i] = &ConstantPackage{NameIndex: nameIndex}

		default:
			return nil, &vmerr.UnknownTagError{Tag: tag, Index: int(i)}
		}
	}

	return pool, nil
}

func readRef(r *bytereader.Reader) (uint16, uint16, error) {
	a, err := r.U16()
	if err != nil {
		return 0, 0, err
	}
	b, err := r.U16()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	entry, err := lookup(pool, index)
	if err != nil {
		return "", err
	}
	utf8, ok := entry.(*ConstantUtf8)
	if !ok {
		return "", &vmerr.TypeError{Index: int(index), Expected: "Utf8", Actual: tagName(entry.Tag())}
	}
	return utf8.Value, nil
}

// GetClassName returns the binary name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	entry, err := lookup(pool, classIndex)
	if err != nil {
		return "", err
	}
	class, ok := entry.(*ConstantClass)
	if !ok {
		return "", &vmerr.TypeError{Index: int(classIndex), Expected: "Class", Actual: tagName(entry.Tag())}
	}
	return GetUtf8(pool, class.NameIndex)
}

// MethodRefInfo holds a resolved CONSTANT_Methodref/InterfaceMethodref.
type MethodRefInfo struct {
	ClassName  string
	MethodName string
	Descriptor string
}

// ResolveMethodref resolves a CONSTANT_Methodref entry structurally (name
// and descriptor strings only; no class loading happens here).
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	entry, err := lookup(pool, index)
	if err != nil {
		return nil, err
	}
	mref, ok := entry.(*ConstantMethodref)
	if !ok {
		return nil, &vmerr.TypeError{Index: int(index), Expected: "Methodref", Actual: tagName(entry.Tag())}
	}
	return resolveRef(pool, mref.ClassIndex, mref.NameAndTypeIndex)
}

// ResolveInterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func ResolveInterfaceMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	entry, err := lookup(pool, index)
	if err != nil {
		return nil, err
	}
	mref, ok := entry.(*ConstantInterfaceMethodref)
	if !ok {
		return nil, &vmerr.TypeError{Index: int(index), Expected: "InterfaceMethodref", Actual: tagName(entry.Tag())}
	}
	return resolveRef(pool, mref.ClassIndex, mref.NameAndTypeIndex)
}

func resolveRef(pool []ConstantPoolEntry, classIndex, natIndex uint16) (*MethodRefInfo, error) {
	className, err := GetClassName(pool, classIndex)
	if err != nil {
		return nil, err
	}
	natEntry, err := lookup(pool, natIndex)
	if err != nil {
		return nil, err
	}
	nat, ok := natEntry.(*ConstantNameAndType)
	if !ok {
		return nil, &vmerr.TypeError{Index: int(natIndex), Expected: "NameAndType", Actual: tagName(natEntry.Tag())}
	}
	name, err := GetUtf8(pool, nat.NameIndex)
	if err != nil {
		return nil, err
	}
	descriptor, err := GetUtf8(pool, nat.DescriptorIndex)
	if err != nil {
		return nil, err
	}
	return &MethodRefInfo{ClassName: className, MethodName: name, Descriptor: descriptor}, nil
}

// FieldRefInfo holds a resolved CONSTANT_Fieldref.
type FieldRefInfo struct {
	ClassName  string
	FieldName  string
	Descriptor string
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry structurally.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (*FieldRefInfo, error) {
	entry, err := lookup(pool, index)
	if err != nil {
		return nil, err
	}
	fref, ok := entry.(*ConstantFieldref)
	if !ok {
		return nil, &vmerr.TypeError{Index: int(index), Expected: "Fieldref", Actual: tagName(entry.Tag())}
	}
	info, err := resolveRef(pool, fref.ClassIndex, fref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	return &FieldRefInfo{ClassName: info.ClassName, FieldName: info.MethodName, Descriptor: info.Descriptor}, nil
}

func lookup(pool []ConstantPoolEntry, index uint16) (ConstantPoolEntry, error) {
	if index == 0 || int(index) >= len(pool) || pool[index] == nil {
		return nil, &vmerr.ConstantNotFoundError{Index: int(index)}
	}
	return pool[index], nil
}

func tagName(tag uint8) string {
	switch tag {
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagDynamic:
		return "Dynamic"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	case TagModule:
		return "Module"
	case TagPackage:
		return "Package"
	default:
		return "padding"
	}
}
