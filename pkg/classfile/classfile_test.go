package classfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// builder assembles a minimal but well-formed classfile byte stream in
// memory, standing in for the `.class` fixtures this teacher's tests used to
// load from disk (not present in this retrieval, per spec's exclusion of
// javac-based fixture compilation from scope).
type builder struct {
	buf  []byte
	pool []poolEntry
}

type poolEntry struct {
	tag  byte
	data []byte
}

func newBuilder() *builder {
	return &builder{pool: []poolEntry{{}}} // index 0 reserved
}

func (b *builder) utf8(s string) uint16 {
	data := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(data, uint16(len(s)))
	copy(data[2:], s)
	b.pool = append(b.pool, poolEntry{tag: TagUtf8, data: data})
	return uint16(len(b.pool) - 1)
}

func (b *builder) class(nameIdx uint16) uint16 {
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, nameIdx)
	b.pool = append(b.pool, poolEntry{tag: TagClass, data: data})
	return uint16(len(b.pool) - 1)
}

func (b *builder) nameAndType(nameIdx, descIdx uint16) uint16 {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], nameIdx)
	binary.BigEndian.PutUint16(data[2:4], descIdx)
	b.pool = append(b.pool, poolEntry{tag: TagNameAndType, data: data})
	return uint16(len(b.pool) - 1)
}

func u16(v uint16) []byte { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }
func u32(v uint32) []byte { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); return b }

// method describes one method_info to emit, with an optional Code body.
type method struct {
	accessFlags    uint16
	name, desc     string
	maxStack       uint16
	maxLocals      uint16
	code           []byte
}

// build assembles the full classfile: constant pool, a trivial class with no
// superclass/interfaces/fields, and the given methods.
func (b *builder) build(thisName string, methods []method) []byte {
	thisNameIdx := b.utf8(thisName)
	thisClassIdx := b.class(thisNameIdx)

	codeAttrNameIdx := b.utf8("Code")

	var methodInfos [][]byte
	for _, m := range methods {
		nameIdx := b.utf8(m.name)
		descIdx := b.utf8(m.desc)

		codeAttrData := append([]byte{}, u16(m.maxStack)...)
		codeAttrData = append(codeAttrData, u16(m.maxLocals)...)
		codeAttrData = append(codeAttrData, u32(uint32(len(m.code)))...)
		codeAttrData = append(codeAttrData, m.code...)
		codeAttrData = append(codeAttrData, u16(0)...) // exception_table_length = 0
		codeAttrData = append(codeAttrData, u16(0)...) // attributes_count = 0

		mi := append([]byte{}, u16(m.accessFlags)...)
		mi = append(mi, u16(nameIdx)...)
		mi = append(mi, u16(descIdx)...)
		mi = append(mi, u16(1)...) // attributes_count = 1 (Code)
		mi = append(mi, u16(codeAttrNameIdx)...)
		mi = append(mi, u32(uint32(len(codeAttrData)))...)
		mi = append(mi, codeAttrData...)

		methodInfos = append(methodInfos, mi)
	}

	var out []byte
	out = append(out, u32(classMagic)...)
	out = append(out, u16(0)...)  // minor
	out = append(out, u16(61)...) // major = Java 17

	out = append(out, u16(uint16(len(b.pool)))...) // constant_pool_count
	for i := 1; i < len(b.pool); i++ {
		out = append(out, b.pool[i].tag)
		out = append(out, b.pool[i].data...)
	}

	out = append(out, u16(AccPublic|AccSuper)...) // access_flags
	out = append(out, u16(thisClassIdx)...)       // this_class
	out = append(out, u16(0)...)                  // super_class = 0
	out = append(out, u16(0)...)                  // interfaces_count
	out = append(out, u16(0)...)                  // fields_count

	out = append(out, u16(uint16(len(methods)))...) // methods_count
	for _, mi := range methodInfos {
		out = append(out, mi...)
	}

	out = append(out, u16(0)...) // attributes_count (class level)

	return out
}

func TestParseMinimalClass(t *testing.T) {
	b := newBuilder()
	data := b.build("Main", []method{
		{accessFlags: AccPublic | AccStatic, name: "<init>", desc: "()V", maxStack: 1, maxLocals: 1, code: []byte{0xB1}},
	})

	cf, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, uint16(61), cf.MajorVersion)

	name, err := cf.ClassName()
	require.NoError(t, err)
	require.Equal(t, "Main", name)

	super, err := cf.SuperClassName()
	require.NoError(t, err)
	require.Equal(t, "", super)

	m := cf.FindMethod("<init>", "()V")
	require.NotNil(t, m)
	require.NotNil(t, m.Code)
	require.Equal(t, []byte{0xB1}, m.Code.Code)
	require.Equal(t, uint16(1), m.Code.MaxStack)
}

func TestParseTwoMethodClass(t *testing.T) {
	b := newBuilder()
	data := b.build("Add", []method{
		{accessFlags: AccPublic | AccStatic, name: "main", desc: "([Ljava/lang/String;)V", maxStack: 1, maxLocals: 1, code: []byte{0xB1}},
		{accessFlags: AccPublic | AccStatic, name: "add", desc: "(II)I", maxStack: 2, maxLocals: 2, code: []byte{0x1A, 0x1B, 0x60, 0xAC}},
	})

	cf, err := Parse(data)
	require.NoError(t, err)

	require.NotNil(t, cf.FindMethod("main", "([Ljava/lang/String;)V"))
	add := cf.FindMethod("add", "(II)I")
	require.NotNil(t, add)
	require.NotNil(t, add.Code)
}

func TestParseRejectsWrongMagic(t *testing.T) {
	_, err := Parse([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.Error(t, err)
	var magicErr interface{ Error() string }
	require.ErrorAs(t, err, &magicErr)
}

func TestParseRejectsTruncatedInput(t *testing.T) {
	for n := 0; n < 10; n++ {
		full := u32(classMagic)
		full = append(full, u16(0)...)
		full = append(full, u16(61)...)
		full = append(full, u16(1)...) // constant_pool_count
		_, err := Parse(full[:n])
		require.Errorf(t, err, "prefix of length %d should fail", n)
	}
}

func TestParseRejectsTrailingBytes(t *testing.T) {
	b := newBuilder()
	data := b.build("Main", []method{
		{accessFlags: AccPublic | AccStatic, name: "<init>", desc: "()V", maxStack: 0, maxLocals: 1, code: []byte{0xB1}},
	})
	data = append(data, 0x00)

	_, err := Parse(data)
	require.Error(t, err)
}

func TestParseIdempotentRoundTrip(t *testing.T) {
	b := newBuilder()
	data := b.build("Main", []method{
		{accessFlags: AccPublic | AccStatic, name: "<init>", desc: "()V", maxStack: 0, maxLocals: 1, code: []byte{0xB1}},
	})

	cf1, err := Parse(data)
	require.NoError(t, err)
	cf2, err := Parse(data)
	require.NoError(t, err)

	name1, _ := cf1.ClassName()
	name2, _ := cf2.ClassName()
	require.Equal(t, name1, name2)
	require.Equal(t, len(cf1.ConstantPool), len(cf2.ConstantPool))
	require.Equal(t, cf1.Methods[0].Descriptor, cf2.Methods[0].Descriptor)
}

func TestParseMultipleCodeAttributesRejected(t *testing.T) {
	b := newBuilder()
	nameIdx := b.utf8("Main")
	thisClassIdx := b.class(nameIdx)
	mNameIdx := b.utf8("<init>")
	mDescIdx := b.utf8("()V")
	codeAttrNameIdx := b.utf8("Code")

	codeAttrData := append([]byte{}, u16(1)...)
	codeAttrData = append(codeAttrData, u16(1)...)
	codeAttrData = append(codeAttrData, u32(1)...)
	codeAttrData = append(codeAttrData, 0xB1)
	codeAttrData = append(codeAttrData, u16(0)...)
	codeAttrData = append(codeAttrData, u16(0)...)

	mi := append([]byte{}, u16(uint16(AccPublic))...)
	mi = append(mi, u16(mNameIdx)...)
	mi = append(mi, u16(mDescIdx)...)
	mi = append(mi, u16(2)...) // two Code attributes: invalid
	mi = append(mi, u16(codeAttrNameIdx)...)
	mi = append(mi, u32(uint32(len(codeAttrData)))...)
	mi = append(mi, codeAttrData...)
	mi = append(mi, u16(codeAttrNameIdx)...)
	mi = append(mi, u32(uint32(len(codeAttrData)))...)
	mi = append(mi, codeAttrData...)

	var out []byte
	out = append(out, u32(classMagic)...)
	out = append(out, u16(0)...)
	out = append(out, u16(61)...)
	out = append(out, u16(uint16(len(b.pool)))...)
	for i := 1; i < len(b.pool); i++ {
		out = append(out, b.pool[i].tag)
		out = append(out, b.pool[i].data...)
	}
	out = append(out, u16(AccPublic|AccSuper)...)
	out = append(out, u16(thisClassIdx)...)
	out = append(out, u16(0)...)
	out = append(out, u16(0)...)
	out = append(out, u16(0)...)
	out = append(out, u16(1)...)
	out = append(out, mi...)
	out = append(out, u16(0)...)

	_, err := Parse(out)
	require.Error(t, err)
}

func TestParseMethodDescriptor(t *testing.T) {
	md, err := ParseMethodDescriptor("([Ljava/lang/String;)V")
	require.NoError(t, err)
	require.Len(t, md.Params, 1)
	require.Equal(t, KindArray, md.Params[0].Kind)
	require.Equal(t, KindVoid, md.Return.Kind)

	md2, err := ParseMethodDescriptor("(II)I")
	require.NoError(t, err)
	require.Len(t, md2.Params, 2)
	require.Equal(t, KindInt, md2.Params[0].Kind)
	require.Equal(t, KindInt, md2.Return.Kind)

	_, err = ParseMethodDescriptor("(V)V")
	require.Error(t, err, "void parameter must be rejected")
}
