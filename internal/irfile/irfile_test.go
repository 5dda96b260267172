package irfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ilmerge/internal/emit"
	"ilmerge/internal/ir"
	"ilmerge/internal/irtest"
)

const publicStatic = ir.MethodFlags(ir.AccessPublic) | ir.MethodStatic

// sample builds an application with a body, attributes, an enum and a
// generic instance member reference.
func sample(t *testing.T) *irtest.World {
	t.Helper()
	w := irtest.NewWorld("Hello")
	_, tag := w.AttributeClass(w.App, "Hello", "TagAttribute", w.Core.String, w.Core.Type)
	w.Enum(w.App, "Hello", "Color", "Red", "Green")

	box := w.Generic(w.App, "Hello", "Box", "T")
	w.Field(box, "value", box.TemplateParams[0], ir.FieldFlags(ir.AccessPrivate))
	get := w.Method(box, "Get", ir.MethodFlags(ir.AccessPublic), box.TemplateParams[0])
	boxed := w.Types().Instantiate(box, w.Core.Int32)

	prog := w.Class(w.App, "Hello", "Program", nil)
	prog.Attributes = []*ir.Attribute{w.Attr(tag,
		ir.AttrArg{Type: w.Core.String, Value: "v"},
		ir.AttrArg{Type: w.Core.Type, Value: w.Core.Int32},
	)}
	compute := w.Method(prog, "Compute", publicStatic, w.Core.Int32, w.Core.Int32, boxed)
	acc := w.Local(compute, "acc", w.Core.Int32)
	handler := w.Block(&ir.Stmt{Kind: ir.StmtRethrow, Data: ir.NopData{}})
	w.Body(compute,
		ir.Assign(ir.LocalRef(acc), ir.Binary(ir.OpAdd, nil, ir.ParamRef(compute.Params[0]), w.I4(2))),
		&ir.Stmt{
			Kind:   ir.StmtTry,
			Source: ir.SourcePos{File: "hello.src", Line: 3, Column: 5},
			Data: ir.TryData{
				Body: w.Block(ir.ExprS(&ir.Expr{Kind: ir.ExprCall, Type: w.Core.String, Data: ir.CallData{
					Method: w.Core.ToString, Receiver: w.Str("x"), Virtual: true,
				}})),
				Catches: []*ir.CatchClause{{Type: w.Core.Exception, Body: handler}},
			},
		},
		ir.Assign(ir.LocalRef(acc), ir.Binary(ir.OpAdd, nil, ir.LocalRef(acc),
			ir.Call(w.Types().SpecializeMethod(boxed, get), ir.ParamRef(compute.Params[1])))),
		ir.Return(ir.LocalRef(acc)))
	return w
}

func roundTrip(t *testing.T, src *ir.Program, dst *ir.Program) []*ir.Module {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src))
	mods, err := Decode(&buf, dst)
	require.NoError(t, err)
	return mods
}

func TestRoundTripRebuildsModules(t *testing.T) {
	w := sample(t)
	prog := ir.NewProgram()
	mods := roundTrip(t, w.Program, prog)

	require.Len(t, mods, 2)
	require.Equal(t, []*ir.Module{mods[0], mods[1]}, prog.Modules)
	require.Equal(t, "mscorlib.dll", mods[0].Name)
	require.Equal(t, "Hello.dll", mods[1].Name)
	require.Equal(t, "Hello", mods[1].Assembly.Name)
	for _, m := range mods {
		require.NoError(t, irtest.CheckInvariants(m))
	}

	core, app := mods[0], mods[1]
	int32T := core.FindType("System.Int32")
	require.NotNil(t, int32T)
	require.Equal(t, ir.CodeInt32, int32T.Code)
	require.Same(t, core.FindType("System.Object"), app.FindType("Hello.Program").BaseType)

	color := app.FindType("Hello.Color")
	require.Equal(t, int32(1), color.Fields[2].Default.Value)

	program := app.FindType("Hello.Program")
	require.Len(t, program.Attributes, 1)
	attr := program.Attributes[0]
	require.Equal(t, "v", attr.Args[0].Value)
	require.Same(t, int32T, attr.Args[1].Value)
	require.Same(t, app.FindType("Hello.TagAttribute"), attr.Type())
}

func TestRoundTripRebuildsBodies(t *testing.T) {
	w := sample(t)
	prog := ir.NewProgram()
	mods := roundTrip(t, w.Program, prog)
	core, app := mods[0], mods[1]

	compute := app.FindType("Hello.Program").Methods[0]
	require.Equal(t, "Compute", compute.Name)
	require.Len(t, compute.Locals, 1)
	require.Len(t, compute.Body.Stmts, 4)

	assign := compute.Body.Stmts[0].Data.(ir.AssignData)
	require.Same(t, compute.Locals[0], assign.Target.Data.(ir.LocalData).Local)
	sum := assign.Value.Data.(ir.BinaryData)
	require.Same(t, compute.Params[0], sum.Left.Data.(ir.ParamData).Param)
	require.Equal(t, int32(2), sum.Right.Data.(ir.LiteralData).Value)

	try := compute.Body.Stmts[1]
	require.Equal(t, ir.SourcePos{File: "hello.src", Line: 3, Column: 5}, try.Source)
	td := try.Data.(ir.TryData)
	require.Same(t, core.FindType("System.Exception"), td.Catches[0].Type)
	require.Equal(t, ir.StmtRethrow, td.Catches[0].Body.Stmts[0].Kind)
	call := td.Body.Stmts[0].Data.(ir.ExprStmtData).Expr.Data.(ir.CallData)
	require.True(t, call.Virtual)
	require.Same(t, core.FindType("System.Object").Methods[1], call.Method)
	require.Equal(t, "x", call.Receiver.Data.(ir.LiteralData).Value)
}

func TestConstructedTypesAreInterned(t *testing.T) {
	w := sample(t)
	prog := ir.NewProgram()
	mods := roundTrip(t, w.Program, prog)
	core, app := mods[0], mods[1]

	box := app.FindType("Hello.Box`1")
	boxed := prog.Types.Instantiate(box, core.FindType("System.Int32"))
	compute := app.FindType("Hello.Program").Methods[0]
	require.Same(t, boxed, compute.Params[1].Type)

	add := compute.Body.Stmts[2].Data.(ir.AssignData).Value.Data.(ir.BinaryData)
	call := add.Right.Data.(ir.CallData)
	require.Same(t, prog.Types.SpecializeMethod(boxed, box.Methods[0]), call.Method)
	require.Same(t, box.Methods[0], call.Method.Unspecialized)
}

func TestDecodedProgramEmitsSameIL(t *testing.T) {
	w := sample(t)
	want, err := emit.Emit(w.App, emit.Options{})
	require.NoError(t, err)

	mods := roundTrip(t, w.Program, ir.NewProgram())
	got, err := emit.Emit(mods[1], emit.Options{})
	require.NoError(t, err)
	require.Equal(t, want.IL, got.IL)
	require.Equal(t, want.Heaps.Blobs.Bytes(), got.Heaps.Blobs.Bytes())
}

func TestSharedModulesAreUnified(t *testing.T) {
	a := irtest.NewWorld("A")
	a.Class(a.App, "A", "One", nil)
	b := irtest.NewWorld("B")
	b.Class(b.App, "B", "Two", nil)

	prog := ir.NewProgram()
	first := roundTrip(t, a.Program, prog)
	second := roundTrip(t, b.Program, prog)

	require.Len(t, prog.Modules, 3)
	require.Same(t, first[0], second[0])
	two := second[1].FindType("B.Two")
	require.Same(t, first[0].FindType("System.Object"), two.BaseType)
}

func TestUnifyRejectsDivergentModule(t *testing.T) {
	a := irtest.NewWorld("A")
	b := irtest.NewWorld("B")
	b.Class(b.Core.Module, "System", "Extra", nil)

	prog := ir.NewProgram()
	roundTrip(t, a.Program, prog)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, b.Program))
	_, err := Decode(&buf, prog)
	require.ErrorContains(t, err, "without type System.Extra")
}

func TestEncodeRejectsUnregisteredNodes(t *testing.T) {
	w := irtest.NewWorld("Hello")
	prog := w.Class(w.App, "Hello", "Program", nil)
	prog.Methods = append(prog.Methods, &ir.Method{Name: "Lost", DeclaringType: prog})

	var buf bytes.Buffer
	err := Encode(&buf, w.Program)
	require.ErrorContains(t, err, "Hello.Program::Lost has no node id")
}

func TestDecodeRejectsOtherInput(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0xc0}), ir.NewProgram())
	require.Error(t, err)
}

func TestSaveAndOpen(t *testing.T) {
	w := sample(t)
	dir := t.TempDir()
	for _, name := range []string{"hello.irpk", "hello.irpk.xz"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, w.Program))

		prog := ir.NewProgram()
		mods, err := Open(path, prog)
		require.NoError(t, err, name)
		require.Len(t, mods, 2)
		require.NotNil(t, mods[1].FindType("Hello.Program"))
	}
	data, err := os.ReadFile(filepath.Join(dir, "hello.irpk.xz"))
	require.NoError(t, err)
	mods, err := DecodeFile("hello.irpk.xz", data, ir.NewProgram())
	require.NoError(t, err)
	require.Equal(t, "Hello.dll", mods[1].Name)

	require.True(t, Compressed("x.irpk.xz"))
	require.False(t, Compressed("x.irpk"))
}
