package metadata

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCodedIndexEncoding(t *testing.T) {
	v, err := TypeDefOrRef.Encode(MakeToken(TableTypeRef, 5))
	require.NoError(t, err)
	require.Equal(t, uint32(5<<2|1), v)

	v, err = HasCustomAttribute.Encode(MakeToken(TableGenericParam, 3))
	require.NoError(t, err)
	require.Equal(t, uint32(3<<5|19), v)

	v, err = CustomAttributeType.Encode(MakeToken(TableMemberRef, 7))
	require.NoError(t, err)
	require.Equal(t, uint32(7<<3|3), v)

	_, err = HasConstant.Encode(MakeToken(TableMethodDef, 1))
	require.Error(t, err)

	tok, err := ResolutionScope.Decode(4<<2 | 2)
	require.NoError(t, err)
	require.Equal(t, MakeToken(TableAssemblyRef, 4), tok)

	_, err = CustomAttributeType.Decode(1<<3 | 0)
	require.Error(t, err, "tag 0 is unused")
}

func TestCodedIndexWidthThreshold(t *testing.T) {
	var rows [NumTables]uint32
	rows[TableTypeSpec] = 1<<14 - 1
	require.False(t, TypeDefOrRef.Wide(&rows))
	rows[TableTypeSpec] = 1 << 14
	require.True(t, TypeDefOrRef.Wide(&rows))

	rows = [NumTables]uint32{}
	rows[TableMethodDef] = 1<<11 - 1
	require.False(t, HasCustomAttribute.Wide(&rows))
	rows[TableMethodDef] = 1 << 11
	require.True(t, HasCustomAttribute.Wide(&rows))

	l := NewLayout(rows, 0)
	require.Equal(t, 4+2+2, l.RowSize(TableCustomAttribute))
	require.Equal(t, 2+2+2, l.RowSize(TableMemberRef), "MemberRefParent still fits two bytes")
}

func TestSortedTablesOrderByParent(t *testing.T) {
	ts := NewTables()
	parent := func(tok Token) uint32 { return HasCustomAttribute.MustEncode(tok) }
	ctor := CustomAttributeType.MustEncode(MakeToken(TableMemberRef, 1))

	hType, _ := ts.AddSorted(TableCustomAttribute, parent(MakeToken(TableTypeDef, 2)), ctor, 10)
	hMethod, _ := ts.AddSorted(TableCustomAttribute, parent(MakeToken(TableMethodDef, 1)), ctor, 20)
	hType2, _ := ts.AddSorted(TableCustomAttribute, parent(MakeToken(TableTypeDef, 2)), ctor, 30)

	_, added := ts.AddSorted(TableInterfaceImpl, 1, TypeDefOrRef.MustEncode(MakeToken(TableTypeRef, 4)))
	require.True(t, added)
	_, added = ts.AddSorted(TableInterfaceImpl, 1, TypeDefOrRef.MustEncode(MakeToken(TableTypeRef, 4)))
	require.False(t, added, "duplicate interface impl must be skipped")

	ts.Seal()
	require.Equal(t, 1, ts.Len(TableInterfaceImpl))
	rows := ts.Rows(TableCustomAttribute)
	require.Len(t, rows, 3)
	require.Equal(t, []uint32{20, 10, 30}, []uint32{rows[0][2], rows[1][2], rows[2][2]})
	require.Equal(t, uint32(1), ts.RowOf(TableCustomAttribute, hMethod))
	require.Equal(t, uint32(2), ts.RowOf(TableCustomAttribute, hType))
	require.Equal(t, uint32(3), ts.RowOf(TableCustomAttribute, hType2))
}

func TestGenericParamSortsByOwnerThenNumber(t *testing.T) {
	ts := NewTables()
	owner := func(tok Token) uint32 { return TypeOrMethodDef.MustEncode(tok) }
	b, _ := ts.AddSorted(TableGenericParam, 1, 0, owner(MakeToken(TableTypeDef, 2)), 0)
	a, _ := ts.AddSorted(TableGenericParam, 0, 0, owner(MakeToken(TableTypeDef, 2)), 0)
	m, _ := ts.AddSorted(TableGenericParam, 0, 0, owner(MakeToken(TableMethodDef, 1)), 0)
	ts.SealTable(TableGenericParam)

	// MethodDef owners encode with tag 1, so method 1 (3) sorts before type 2 (4)
	require.Equal(t, uint32(1), ts.RowOf(TableGenericParam, m))
	require.Equal(t, uint32(2), ts.RowOf(TableGenericParam, a))
	require.Equal(t, uint32(3), ts.RowOf(TableGenericParam, b))
}

func TestHeapsDeduplicate(t *testing.T) {
	h := NewHeaps()
	a, err := h.Blobs.Add([]byte{0x20, 0x00, 0x01})
	require.NoError(t, err)
	b, err := h.Blobs.Add([]byte{0x20, 0x00, 0x01})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, uint32(1), a)
	require.Equal(t, []byte{0x00, 0x03, 0x20, 0x00, 0x01}, h.Blobs.Bytes())

	s1 := h.Strings.Add("Object")
	require.Equal(t, s1, h.Strings.Add("Object"))
	require.Equal(t, uint32(0), h.Strings.Add(""))

	us, err := h.UserStrings.Add("A'")
	require.NoError(t, err)
	require.Equal(t, uint32(1), us)
	require.Equal(t, []byte{0x00, 0x05, 'A', 0, '\'', 0, 1}, h.UserStrings.Bytes())
	got, err := UserStringAt(h.UserStrings.Bytes(), us)
	require.NoError(t, err)
	require.Equal(t, "A'", got)

	g := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	require.Equal(t, uint32(1), h.GUIDs.Add(g))
	require.Equal(t, []byte{0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66}, h.GUIDs.Bytes()[:8])
	back, err := GUIDAt(h.GUIDs.Bytes(), 1)
	require.NoError(t, err)
	require.Equal(t, g, back)
}

func TestStreamLayout(t *testing.T) {
	h := NewHeaps()
	ts := NewTables()
	ts.Add(TableModule, 0, h.Strings.Add("App.dll"), h.GUIDs.Add(uuid.New()), 0, 0)
	typeRef := ts.Add(TableTypeRef, 0, h.Strings.Add("Object"), h.Strings.Add("System"))
	ts.Add(TableTypeDef, 0, h.Strings.Add("<Module>"), 0, 0, 1, 1)
	ts.Add(TableTypeDef, 1, h.Strings.Add("Program"), h.Strings.Add("App"),
		TypeDefOrRef.MustEncode(MakeToken(TableTypeRef, typeRef)), 1, 1)
	ts.Seal()

	data, err := WriteStream(ts, h)
	require.NoError(t, err)
	require.Zero(t, len(data)%4)

	s, err := ReadStream(data)
	require.NoError(t, err)
	require.Equal(t, uint8(2), s.Major)
	require.Equal(t, uint64(1<<TableModule|1<<TableTypeRef|1<<TableTypeDef), s.Valid)
	require.Zero(t, s.Sorted)
	require.Equal(t, ts.Rows(TableTypeDef), s.Rows[TableTypeDef])

	name, err := StringAt(h.Strings.Bytes(), s.Row(TableTypeDef, 2)[1])
	require.NoError(t, err)
	require.Equal(t, "Program", name)
}

func TestWriteStreamRequiresSeal(t *testing.T) {
	_, err := WriteStream(NewTables(), NewHeaps())
	require.Error(t, err)
}

func TestRootRoundTrip(t *testing.T) {
	streams := []StreamData{
		{Name: "#~", Data: []byte{1, 2, 3, 4, 5}},
		{Name: "#Strings", Data: []byte{0, 'A', 0}},
		{Name: "#GUID", Data: make([]byte, 16)},
	}
	data := WriteRoot(DefaultVersion, streams)
	require.Zero(t, len(data)%4)

	root, err := ReadRoot(data)
	require.NoError(t, err)
	require.Equal(t, DefaultVersion, root.Version)
	require.Equal(t, []string{"#~", "#Strings", "#GUID"}, root.Order)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, root.Streams["#~"])
	require.Equal(t, []byte{0, 'A', 0, 0}, root.Streams["#Strings"])
}

func TestTokenParts(t *testing.T) {
	tok := MakeToken(TableMethodDef, 0x1234)
	require.Equal(t, Token(0x06001234), tok)
	require.Equal(t, TableMethodDef, tok.Table())
	require.Equal(t, uint32(0x1234), tok.Row())
	require.Equal(t, "MethodDef[4660] (0x06001234)", tok.String())
}
