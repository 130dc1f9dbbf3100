package rt

import (
	"encoding/binary"
	"fmt"

	"github.com/daimatz/gojvm/internal/intern"
)

// fakeSource is an in-memory rt.ClassSource keyed by binary name, standing
// in for pkg/classloader in tests that only need the method area's own
// behavior (grounded on the teacher's classloader_test.go fixtures, which
// likewise built classfiles in memory rather than reading disk fixtures).
type fakeSource struct {
	classes map[string][]byte
}

func newFakeSource() *fakeSource { return &fakeSource{classes: make(map[string][]byte)} }

func (s *fakeSource) LoadClassBytes(name string) ([]byte, error) {
	data, ok := s.classes[name]
	if !ok {
		return nil, fmt.Errorf("fakeSource: %s not found", name)
	}
	return data, nil
}

// poolEntry/builder assemble minimal classfiles in memory, mirroring
// pkg/classfile's own test builder since that one is unexported.
type poolEntry struct {
	tag  byte
	data []byte
}

type builder struct {
	pool []poolEntry
}

func newBuilder() *builder { return &builder{pool: []poolEntry{{}}} }

func u16(v uint16) []byte { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }
func u32(v uint32) []byte { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); return b }

func (b *builder) utf8(s string) uint16 {
	data := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(data, uint16(len(s)))
	copy(data[2:], s)
	b.pool = append(b.pool, poolEntry{tag: 1, data: data}) // TagUtf8 == 1
	return uint16(len(b.pool) - 1)
}

func (b *builder) class(nameIdx uint16) uint16 {
	b.pool = append(b.pool, poolEntry{tag: 7, data: u16(nameIdx)}) // TagClass == 7
	return uint16(len(b.pool) - 1)
}

type fieldSpec struct {
	accessFlags uint16
	name, desc  string
}

// build assembles a classfile with the given super class name (possibly
// "") and fields, plus a trivial <init> with a Code attribute.
func (b *builder) build(thisName, superName string, fields []fieldSpec) []byte {
	thisClassIdx := b.class(b.utf8(thisName))
	var superClassIdx uint16
	if superName != "" {
		superClassIdx = b.class(b.utf8(superName))
	}

	codeAttrNameIdx := b.utf8("Code")
	initNameIdx := b.utf8("<init>")
	initDescIdx := b.utf8("()V")

	codeAttrData := append([]byte{}, u16(1)...) // max_stack
	codeAttrData = append(codeAttrData, u16(1)...) // max_locals
	code := []byte{0xB1}                           // return
	codeAttrData = append(codeAttrData, u32(uint32(len(code)))...)
	codeAttrData = append(codeAttrData, code...)
	codeAttrData = append(codeAttrData, u16(0)...) // exception_table
	codeAttrData = append(codeAttrData, u16(0)...) // attributes_count

	initInfo := append([]byte{}, u16(1)...) // ACC_PUBLIC
	initInfo = append(initInfo, u16(initNameIdx)...)
	initInfo = append(initInfo, u16(initDescIdx)...)
	initInfo = append(initInfo, u16(1)...)
	initInfo = append(initInfo, u16(codeAttrNameIdx)...)
	initInfo = append(initInfo, u32(uint32(len(codeAttrData)))...)
	initInfo = append(initInfo, codeAttrData...)

	var fieldInfos [][]byte
	for _, f := range fields {
		nameIdx := b.utf8(f.name)
		descIdx := b.utf8(f.desc)
		fi := append([]byte{}, u16(f.accessFlags)...)
		fi = append(fi, u16(nameIdx)...)
		fi = append(fi, u16(descIdx)...)
		fi = append(fi, u16(0)...) // attributes_count
		fieldInfos = append(fieldInfos, fi)
	}

	var out []byte
	out = append(out, u32(0xCAFEBABE)...)
	out = append(out, u16(0)...)
	out = append(out, u16(61)...)

	out = append(out, u16(uint16(len(b.pool)))...)
	for i := 1; i < len(b.pool); i++ {
		out = append(out, b.pool[i].tag)
		out = append(out, b.pool[i].data...)
	}

	out = append(out, u16(0x0021)...) // ACC_PUBLIC | ACC_SUPER
	out = append(out, u16(thisClassIdx)...)
	out = append(out, u16(superClassIdx)...)
	out = append(out, u16(0)...) // interfaces_count

	out = append(out, u16(uint16(len(fieldInfos)))...)
	for _, fi := range fieldInfos {
		out = append(out, fi...)
	}

	out = append(out, u16(1)...) // methods_count: just <init>
	out = append(out, initInfo...)

	out = append(out, u16(0)...) // attributes_count (class level)

	return out
}

func newTestArea(src *fakeSource) *MethodArea {
	return New(src, intern.New(), nil)
}
