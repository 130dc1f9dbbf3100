package rtpool

import (
	"testing"

	"github.com/daimatz/gojvm/internal/intern"
	"github.com/daimatz/gojvm/pkg/classfile"
	"github.com/stretchr/testify/require"
)

// buildPool assembles a tiny constant pool by hand (rtpool consumes the
// already-decoded classfile.ConstantPoolEntry slice, so there's no need to
// go through the binary classfile format here).
func buildPool() []classfile.ConstantPoolEntry {
	pool := make([]classfile.ConstantPoolEntry, 10)
	pool[1] = &classfile.ConstantUtf8{Value: "widget/Thing"}       // 1: class name
	pool[2] = &classfile.ConstantClass{NameIndex: 1}               // 2: class
	pool[3] = &classfile.ConstantUtf8{Value: "run"}                // 3: method name
	pool[4] = &classfile.ConstantUtf8{Value: "()V"}                // 4: descriptor
	pool[5] = &classfile.ConstantNameAndType{NameIndex: 3, DescriptorIndex: 4}
	pool[6] = &classfile.ConstantMethodref{ClassIndex: 2, NameAndTypeIndex: 5}
	pool[7] = &classfile.ConstantFieldref{ClassIndex: 2, NameAndTypeIndex: 5}
	pool[8] = &classfile.ConstantUtf8{Value: "hello"}              // 8: string body
	pool[9] = &classfile.ConstantString{StringIndex: 8}            // 9: string
	return pool
}

func TestPoolClassResolvesBinaryName(t *testing.T) {
	p := New(buildPool(), intern.New())
	ref, err := p.Class(2)
	require.NoError(t, err)
	require.Equal(t, "widget/Thing", mustResolve(t, p, ref.Name))
}

func TestPoolMethodRefResolvesClassNameAndDescriptor(t *testing.T) {
	p := New(buildPool(), intern.New())
	ref, err := p.MethodRef(6)
	require.NoError(t, err)
	require.Equal(t, "widget/Thing", mustResolve(t, p, ref.ClassName))
	require.Equal(t, "run", mustResolve(t, p, ref.MethodName))
	require.Equal(t, "()V", mustResolve(t, p, ref.Descriptor))
}

func TestPoolFieldRefResolvesClassNameAndDescriptor(t *testing.T) {
	p := New(buildPool(), intern.New())
	ref, err := p.FieldRef(7)
	require.NoError(t, err)
	require.Equal(t, "widget/Thing", mustResolve(t, p, ref.ClassName))
	require.Equal(t, "run", mustResolve(t, p, ref.FieldName))
	require.Equal(t, "()V", mustResolve(t, p, ref.Descriptor))
}

func TestPoolStringResolvesReferencedUtf8(t *testing.T) {
	p := New(buildPool(), intern.New())
	s, err := p.String(9)
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestPoolMethodDescriptorParsesAtUtf8Index(t *testing.T) {
	p := New(buildPool(), intern.New())
	desc, err := p.MethodDescriptor(4)
	require.NoError(t, err)
	require.Empty(t, desc.Params)
}

func TestPoolCellIsWriteOnce(t *testing.T) {
	p := New(buildPool(), intern.New())
	first, err := p.Class(2)
	require.NoError(t, err)
	second, err := p.Class(2)
	require.NoError(t, err)
	require.Same(t, first, second, "a resolved cell must be cached, not re-resolved")
}

func TestPoolCellPoisoningCachesTheError(t *testing.T) {
	p := New(buildPool(), intern.New())
	_, err1 := p.Class(3) // index 3 is a Utf8, not a Class entry
	require.Error(t, err1)
	_, err2 := p.Class(3)
	require.Error(t, err2)
	require.Equal(t, err1.Error(), err2.Error())
}

func TestPoolOutOfBoundsIndexErrors(t *testing.T) {
	p := New(buildPool(), intern.New())
	_, err := p.Class(99)
	require.Error(t, err)
}

func mustResolve(t *testing.T, p *Pool, sym intern.Symbol) string {
	t.Helper()
	s, ok := p.interner.Resolve(sym)
	require.True(t, ok)
	return s
}
