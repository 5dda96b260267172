package debugmap

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"ilmerge/internal/emit"
	"ilmerge/internal/metadata"
)

var _ emit.SymbolWriter = (*Map)(nil)

func record(m *Map) metadata.Token {
	tok := metadata.MakeToken(metadata.TableMethodDef, 3)
	doc := m.DefineDocument("src/main.src")
	m.SetMethod(tok)
	m.OpenScope(0)
	m.DefineLocal("i", 0, []byte{0x07, 0x01, 0x08})
	m.SequencePoint(doc, 0, 10, 2)
	m.SequencePoint(doc, 6, 11, 2)
	m.OpenScope(6)
	m.CloseScope(9)
	m.CloseScope(12)
	m.CloseMethod()
	return tok
}

func TestRecordsScopesAndPoints(t *testing.T) {
	m := New()
	tok := record(m)

	require.Equal(t, 0, m.DefineDocument("src/main.src"), "documents are shared")
	mm := m.Method(tok)
	require.NotNil(t, mm)
	require.Equal(t, []Scope{{Start: 0, End: 12, Depth: 0}, {Start: 6, End: 9, Depth: 1}}, mm.Scopes)
	require.Equal(t, []Local{{Name: "i", Slot: 0, Signature: []byte{0x07, 0x01, 0x08}}}, mm.Locals)

	file, line, col, ok := m.Lookup(tok, 4)
	require.True(t, ok)
	require.Equal(t, "src/main.src", file)
	require.Equal(t, 10, line)
	require.Equal(t, 2, col)

	_, line, _, ok = m.Lookup(tok, 8)
	require.True(t, ok)
	require.Equal(t, 11, line)

	_, _, _, ok = m.Lookup(metadata.MakeToken(metadata.TableMethodDef, 9), 0)
	require.False(t, ok)
}

func TestCallsOutsideMethodAreIgnored(t *testing.T) {
	m := New()
	m.SequencePoint(0, 0, 1, 1)
	m.OpenScope(0)
	m.DefineLocal("x", 0, nil)
	require.Empty(t, m.Methods)
}

func TestFileRoundTrip(t *testing.T) {
	m := New()
	tok := record(m)
	path := filepath.Join(t.TempDir(), "app.dmap")
	require.NoError(t, m.WriteFile(path))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, m.Documents, got.Documents)
	require.Equal(t, m.Method(tok).Points, got.Method(tok).Points)
}

func TestRejectsOtherSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, msgpack.NewEncoder(&buf).Encode(&Map{Schema: schemaVersion + 1}))
	_, err := Decode(&buf)
	require.ErrorIs(t, err, ErrSchema)
}
