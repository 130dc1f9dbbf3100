package rt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetOrLoadIsIdempotent(t *testing.T) {
	src := newFakeSource()
	src.classes["Main"] = newBuilder().build("Main", "", nil)
	area := newTestArea(src)

	c1, err := area.GetOrLoad("Main")
	require.NoError(t, err)
	c2, err := area.GetOrLoad("Main")
	require.NoError(t, err)
	require.Same(t, c1, c2)
	require.Equal(t, c1.Handle(), c2.Handle())
}

func TestGetOrLoadMissingClass(t *testing.T) {
	area := newTestArea(newFakeSource())
	_, err := area.GetOrLoad("DoesNotExist")
	require.Error(t, err)
}

func TestLinkComputesFieldOffsetsAcrossHierarchy(t *testing.T) {
	src := newFakeSource()
	src.classes["Base"] = newBuilder().build("Base", "", []fieldSpec{{name: "a", desc: "I"}, {name: "b", desc: "I"}})
	src.classes["Child"] = newBuilder().build("Child", "Base", []fieldSpec{{name: "c", desc: "I"}})
	area := newTestArea(src)

	childClass, err := area.GetOrLoad("Child")
	require.NoError(t, err)
	require.NoError(t, area.EnsureLinked(childClass.Handle()))

	child := childClass.(*InstanceClass)
	require.Equal(t, 2, child.baseInstanceOffset)
	require.Len(t, child.InstanceFields, 1)
	require.Equal(t, 2, child.InstanceFields[0].InstanceOffset)
	require.Equal(t, 3, child.TotalInstanceFields())

	all := area.AllInstanceFields(childClass.Handle())
	require.Len(t, all, 3)
	require.Equal(t, "a", all[0].Name)
	require.Equal(t, "b", all[1].Name)
	require.Equal(t, "c", all[2].Name)
}

func TestResolveMethodOnSubclassFindsItsOwnInit(t *testing.T) {
	src := newFakeSource()
	src.classes["Base"] = newBuilder().build("Base", "", nil)
	src.classes["Child"] = newBuilder().build("Child", "Base", nil)
	area := newTestArea(src)

	childClass, err := area.GetOrLoad("Child")
	require.NoError(t, err)

	// build() gives every class its own <init>, so Child's is found first.
	m, err := area.ResolveMethod(childClass.Handle(), MemberKey{Name: "<init>", Descriptor: "()V"})
	require.NoError(t, err)
	require.Equal(t, "<init>", m.Name)
	require.Equal(t, childClass.Handle(), m.DeclaringClass)
}

func TestResolveMethodMissReturnsNoSuchMethodError(t *testing.T) {
	src := newFakeSource()
	src.classes["Main"] = newBuilder().build("Main", "", nil)
	area := newTestArea(src)

	class, err := area.GetOrLoad("Main")
	require.NoError(t, err)

	_, err = area.ResolveMethod(class.Handle(), MemberKey{Name: "missing", Descriptor: "()V"})
	require.Error(t, err)
}

func TestEnsureInitializedWithoutClinitNeverCallsInvoker(t *testing.T) {
	src := newFakeSource()
	src.classes["Main"] = newBuilder().build("Main", "", nil)
	area := newTestArea(src)

	runs := 0
	area.SetClinitInvoker(func(a *MethodArea, c *InstanceClass, m *Method) error {
		runs++
		return nil
	})

	class, err := area.GetOrLoad("Main")
	require.NoError(t, err)

	// Main has no <clinit>, so the invoker is never called regardless.
	require.NoError(t, area.EnsureInitialized(class.Handle()))
	require.NoError(t, area.EnsureInitialized(class.Handle()))
	require.Equal(t, 0, runs)

	ic := class.(*InstanceClass)
	require.Equal(t, Initialized, ic.state)
}

func TestEnsureInitializedPropagatesClinitFailure(t *testing.T) {
	src := newFakeSource()
	b := newBuilder()
	thisClassIdx := b.class(b.utf8("WithClinit"))
	clinitNameIdx := b.utf8("<clinit>")
	clinitDescIdx := b.utf8("()V")
	codeAttrNameIdx := b.utf8("Code")

	codeAttrData := append([]byte{}, u16(0)...)
	codeAttrData = append(codeAttrData, u16(0)...)
	code := []byte{0xB1}
	codeAttrData = append(codeAttrData, u32(uint32(len(code)))...)
	codeAttrData = append(codeAttrData, code...)
	codeAttrData = append(codeAttrData, u16(0)...)
	codeAttrData = append(codeAttrData, u16(0)...)

	clinitInfo := append([]byte{}, u16(0x0008)...) // ACC_STATIC
	clinitInfo = append(clinitInfo, u16(clinitNameIdx)...)
	clinitInfo = append(clinitInfo, u16(clinitDescIdx)...)
	clinitInfo = append(clinitInfo, u16(1)...)
	clinitInfo = append(clinitInfo, u16(codeAttrNameIdx)...)
	clinitInfo = append(clinitInfo, u32(uint32(len(codeAttrData)))...)
	clinitInfo = append(clinitInfo, codeAttrData...)

	var out []byte
	out = append(out, u32(0xCAFEBABE)...)
	out = append(out, u16(0)...)
	out = append(out, u16(61)...)
	out = append(out, u16(uint16(len(b.pool)))...)
	for i := 1; i < len(b.pool); i++ {
		out = append(out, b.pool[i].tag)
		out = append(out, b.pool[i].data...)
	}
	out = append(out, u16(0x0021)...)
	out = append(out, u16(thisClassIdx)...)
	out = append(out, u16(0)...)
	out = append(out, u16(0)...)
	out = append(out, u16(0)...)
	out = append(out, u16(1)...)
	out = append(out, clinitInfo...)
	out = append(out, u16(0)...)

	src.classes["WithClinit"] = out
	area := newTestArea(src)

	wantErr := errors.New("boom")
	area.SetClinitInvoker(func(a *MethodArea, c *InstanceClass, m *Method) error {
		return wantErr
	})

	class, err := area.GetOrLoad("WithClinit")
	require.NoError(t, err)

	err = area.EnsureInitialized(class.Handle())
	require.ErrorIs(t, err, wantErr)

	// A second attempt observes the absorbing Failed state without
	// re-running the invoker.
	err = area.EnsureInitialized(class.Handle())
	require.ErrorIs(t, err, wantErr)
}

func TestGetOrLoadSynthesizesArrayClasses(t *testing.T) {
	src := newFakeSource()
	src.classes["java/lang/Object"] = newBuilder().build("java/lang/Object", "", nil)
	area := newTestArea(src)

	arr, err := area.GetOrLoad("[I")
	require.NoError(t, err)
	require.IsType(t, &PrimitiveArrayClass{}, arr)
}
