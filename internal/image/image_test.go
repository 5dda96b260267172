package image

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ilmerge/internal/emit"
	"ilmerge/internal/ir"
	"ilmerge/internal/irtest"
	"ilmerge/internal/metadata"
)

func emitHello(t *testing.T) *emit.Result {
	t.Helper()
	w := irtest.NewWorld("Hello")
	w.App.Kind = ir.ModuleEXE
	prog := w.Class(w.App, "Hello", "Program", nil)
	main := w.Method(prog, "Main", ir.MethodFlags(ir.AccessPublic)|ir.MethodStatic, nil)
	w.Body(main,
		ir.ExprS(&ir.Expr{Kind: ir.ExprCall, Type: w.Core.String, Data: ir.CallData{
			Method: w.Core.ToString, Receiver: w.Str("hi"), Virtual: true,
		}}),
		ir.Return(nil))
	w.App.EntryPoint = main
	w.App.Resources = []*ir.Resource{{Name: "greeting", Data: []byte("hello")}}

	res, err := emit.Emit(w.App, emit.Options{})
	require.NoError(t, err)
	return res
}

func TestAssembleLaysOutStreams(t *testing.T) {
	res := emitHello(t)
	img, err := Assemble(res)
	require.NoError(t, err)

	root, err := img.Root()
	require.NoError(t, err)
	require.Equal(t, emit.DefaultMetadataVersion, root.Version)
	require.Equal(t, []string{StreamTables, StreamStrings, StreamUserStrings, StreamGUID, StreamBlob}, root.Order)
	require.Len(t, root.Streams[StreamGUID], 16)

	stream, err := img.Tables()
	require.NoError(t, err)
	require.Len(t, stream.Rows[metadata.TableTypeDef], 2)
	require.Len(t, stream.Rows[metadata.TableMethodDef], 1)
	require.Equal(t, 2, img.Stats.Rows["TypeDef"])

	require.Equal(t, "exe", img.Kind)
	require.Equal(t, uint32(metadata.MakeToken(metadata.TableMethodDef, 1)), img.EntryPoint)
	require.Equal(t, res.IL, img.IL.Data)
	require.Equal(t, res.ILBase, img.IL.RVA)

	code, err := img.Code(img.EntryPoint)
	require.NoError(t, err)
	require.Equal(t, res.Body(metadata.MakeToken(metadata.TableMethodDef, 1)), code)
}

func TestAssembleNeedsResult(t *testing.T) {
	_, err := Assemble(nil)
	require.Error(t, err)
}

func TestBundleRoundTrip(t *testing.T) {
	img, err := Assemble(emitHello(t))
	require.NoError(t, err)

	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, BundleWriter{Compress: compress}.WriteImage(context.Background(), img, &buf))
		got, err := ReadBundle(&buf)
		require.NoError(t, err)
		require.Equal(t, img.Metadata, got.Metadata)
		require.Equal(t, img.IL, got.IL)
		require.Equal(t, img.Resources, got.Resources)
		require.Equal(t, img.Methods, got.Methods)
	}

	path := filepath.Join(t.TempDir(), "out", "hello.ilb")
	require.NoError(t, SaveBundle(path, img, true))
	got, err := LoadBundle(path)
	require.NoError(t, err)
	require.Equal(t, img.EntryPoint, got.EntryPoint)
}

func TestReadBundleRejectsOtherInput(t *testing.T) {
	_, err := ReadBundle(strings.NewReader("MZ\x90\x00\x03\x00"))
	require.ErrorIs(t, err, ErrNotBundle)
	_, err = ReadBundle(strings.NewReader("IL"))
	require.ErrorIs(t, err, ErrNotBundle)
}

func TestDumpListsTablesAndIL(t *testing.T) {
	img, err := Assemble(emitHello(t))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Dump(&out, img, DumpAll))
	text := out.String()
	require.Contains(t, text, "image Hello.dll (exe)")
	require.Contains(t, text, "TypeDef (2 rows)")
	require.Contains(t, text, `Name="Program"`)
	require.Contains(t, text, `ldstr "hi"`)
	require.Contains(t, text, "callvirt ToString /* 0A000001 */")
	require.Contains(t, text, `Namespace="System"`)
	require.Contains(t, text, "entry point Main /* 06000001 */")
}
