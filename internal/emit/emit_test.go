package emit

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ilmerge/internal/diag"
	"ilmerge/internal/ir"
	"ilmerge/internal/irtest"
	"ilmerge/internal/metadata"
)

const publicStatic = ir.MethodFlags(ir.AccessPublic) | ir.MethodStatic

func blobAt(t *testing.T, res *Result, off uint32) []byte {
	t.Helper()
	b, err := metadata.BlobAt(res.Heaps.Blobs.Bytes(), off)
	require.NoError(t, err)
	return b
}

func methodHeader(res *Result, tok metadata.Token) []byte {
	info, _ := res.Method(tok)
	return res.IL[info.RVA-res.ILBase:]
}

func diagnostics(bag *diag.Bag, code diag.Code) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range bag.Items() {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

func TestStaticAddMethod(t *testing.T) {
	w := irtest.NewWorld("Calc")
	calc := w.Class(w.App, "Calc", "Ops", nil)
	add := w.Method(calc, "Add", publicStatic, w.Core.Int32, w.Core.Int32, w.Core.Int32)
	w.Body(add, ir.Return(ir.Binary(ir.OpAdd, nil, ir.ParamRef(add.Params[0]), ir.ParamRef(add.Params[1]))))

	res, err := Emit(w.App, Options{})
	require.NoError(t, err)

	// <Module> is TypeDef 1, Ops is TypeDef 2.
	require.Equal(t, 2, res.Tables.Len(metadata.TableTypeDef))
	tok := metadata.MakeToken(metadata.TableMethodDef, 1)
	row := res.Tables.Row(metadata.TableMethodDef, 1)
	require.NotNil(t, row)
	require.Equal(t, []byte{0x00, 0x02, 0x08, 0x08, 0x08}, blobAt(t, res, row[4]))

	require.Equal(t, []byte{0x02, 0x03, 0x58, 0x2A}, res.Body(tok))
	require.Equal(t, byte(0x12), methodHeader(res, tok)[0], "tiny header with four code bytes")
	info, ok := res.Method(tok)
	require.True(t, ok)
	require.Equal(t, 2, info.MaxStack)
	require.False(t, info.Fat)
	require.Equal(t, res.ILBase, row[0], "first body sits at the IL base")
}

func TestNestedLiteralChain(t *testing.T) {
	w := irtest.NewWorld("Calc")
	calc := w.Class(w.App, "Calc", "Ops", nil)
	six := w.Method(calc, "Six", publicStatic, w.Core.Int32)
	w.Body(six, ir.Return(ir.Binary(ir.OpAdd, nil, ir.Binary(ir.OpAdd, nil, w.I4(1), w.I4(2)), w.I4(3))))

	res, err := Emit(w.App, Options{})
	require.NoError(t, err)
	tok := metadata.MakeToken(metadata.TableMethodDef, 1)
	// ldc.i4.1; ldc.i4.2; add; ldc.i4.3; add; ret
	require.Equal(t, []byte{0x17, 0x18, 0x58, 0x19, 0x58, 0x2A}, res.Body(tok))
	info, _ := res.Method(tok)
	require.GreaterOrEqual(t, info.MaxStack, 2)
}

// takenOnNaN reports whether a compare-and-branch jumps when an operand is
// NaN: only the unordered forms do.
func takenOnNaN(op byte) bool {
	return op >= 0x33 && op <= 0x37
}

// valueOnNaN evaluates a comparison lowered as a value with a NaN operand.
func valueOnNaN(code []byte) bool {
	var v bool
	switch code[1] {
	case 0x01, 0x02, 0x04: // ceq, cgt, clt
		v = false
	case 0x03, 0x05: // cgt.un, clt.un
		v = true
	}
	if len(code) > 2 {
		// ldc.i4.0; ceq
		v = !v
	}
	return v
}

func TestComparisonLowering(t *testing.T) {
	tests := []struct {
		name     string
		op       ir.BinaryOp
		float    bool
		unsigned bool
		value    []byte
		branch   byte
	}{
		{"eq", ir.OpEq, false, false, []byte{0xFE, 0x01}, 0x2E},
		{"ne", ir.OpNe, false, false, []byte{0xFE, 0x01, 0x16, 0xFE, 0x01}, 0x33},
		{"lt", ir.OpLt, false, false, []byte{0xFE, 0x04}, 0x32},
		{"lt unsigned", ir.OpLt, false, true, []byte{0xFE, 0x05}, 0x37},
		{"gt", ir.OpGt, false, false, []byte{0xFE, 0x02}, 0x30},
		{"le", ir.OpLe, false, false, []byte{0xFE, 0x02, 0x16, 0xFE, 0x01}, 0x31},
		{"le unsigned", ir.OpLe, false, true, []byte{0xFE, 0x03, 0x16, 0xFE, 0x01}, 0x36},
		{"ge", ir.OpGe, false, false, []byte{0xFE, 0x04, 0x16, 0xFE, 0x01}, 0x2F},
		{"ge unsigned", ir.OpGe, false, true, []byte{0xFE, 0x05, 0x16, 0xFE, 0x01}, 0x34},
		{"float eq", ir.OpEq, true, false, []byte{0xFE, 0x01}, 0x2E},
		{"float ne", ir.OpNe, true, false, []byte{0xFE, 0x01, 0x16, 0xFE, 0x01}, 0x33},
		{"float lt", ir.OpLt, true, false, []byte{0xFE, 0x04}, 0x32},
		{"float gt unordered", ir.OpGt, true, true, []byte{0xFE, 0x03}, 0x35},
		{"float le", ir.OpLe, true, false, []byte{0xFE, 0x03, 0x16, 0xFE, 0x01}, 0x31},
		{"float le unordered", ir.OpLe, true, true, []byte{0xFE, 0x02, 0x16, 0xFE, 0x01}, 0x36},
		{"float ge", ir.OpGe, true, false, []byte{0xFE, 0x05, 0x16, 0xFE, 0x01}, 0x2F},
		{"float ge unordered", ir.OpGe, true, true, []byte{0xFE, 0x04, 0x16, 0xFE, 0x01}, 0x34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := irtest.NewWorld("App")
			owner := w.Class(w.App, "App", "Cmp", nil)
			operand := w.Core.Int32
			if tt.float {
				operand = w.Core.Double
			}
			val := w.Method(owner, "Val", publicStatic, w.Core.Boolean, operand, operand)
			br := w.Method(owner, "Br", publicStatic, w.Core.Int32, operand, operand)
			compare := func(m *ir.Method) *ir.Expr {
				return &ir.Expr{Kind: ir.ExprBinary, Type: w.Core.Boolean, Data: ir.BinaryData{
					Op: tt.op, Left: ir.ParamRef(m.Params[0]), Right: ir.ParamRef(m.Params[1]), Unsigned: tt.unsigned,
				}}
			}
			w.Body(val, ir.Return(compare(val)))
			yes := w.Block(ir.Return(w.I4(1)))
			w.Body(br, ir.BranchIf(compare(br), yes), ir.Return(w.I4(0)), ir.Nested(yes))

			res, err := Emit(w.App, Options{})
			require.NoError(t, err)

			value := res.Body(metadata.MakeToken(metadata.TableMethodDef, 1))
			want := append(append([]byte{0x02, 0x03}, tt.value...), 0x2A)
			require.Equal(t, want, value)

			// ldarg.0; ldarg.1; b<cc>.s +2; ldc.i4.0; ret; ldc.i4.1; ret
			branch := res.Body(metadata.MakeToken(metadata.TableMethodDef, 2))
			require.Equal(t, []byte{0x02, 0x03, tt.branch, 0x02, 0x16, 0x2A, 0x17, 0x2A}, branch)

			if tt.float {
				require.Equal(t, takenOnNaN(tt.branch), valueOnNaN(tt.value), "value and branch forms disagree on NaN")
			}
		})
	}
}

func TestTokensAreIdempotent(t *testing.T) {
	w := irtest.NewWorld("App")
	w.Class(w.App, "App", "Main", nil)

	e := New(w.App, Options{})
	e.defineAll()
	first := e.typeToken(w.Core.String)
	require.Equal(t, metadata.TableTypeRef, first.Table())
	require.Equal(t, first, e.typeToken(w.Core.String))
	require.Equal(t, first, e.TypeDefOrRef(w.Core.String))
	require.Equal(t, 1, e.tables.Len(metadata.TableTypeRef))

	obj := e.typeToken(w.Core.Object)
	require.NotEqual(t, first, obj)
	require.Equal(t, 1, e.tables.Len(metadata.TableAssemblyRef), "both types share the core library reference")

	def := e.typeToken(w.App.Types[0])
	require.Equal(t, metadata.MakeToken(metadata.TableTypeDef, 2), def)
}

func TestTypeSpecSharedAcrossInstanceNodes(t *testing.T) {
	w := irtest.NewWorld("App")
	lib := w.NewModule("Coll")
	list := w.Generic(lib, "Coll", "List", "T")

	interned := w.Types().Instantiate(list, w.Core.Int32)
	// a second node with the same structure, outside the interner
	copied := &ir.Type{Kind: ir.TypeInstance, Template: list, TemplateArgs: []*ir.Type{w.Core.Int32}}
	w.Program.Arena.Register(&copied.Node)
	require.NotEqual(t, interned.ID, copied.ID)

	e := New(w.App, Options{})
	e.defineAll()
	a := e.typeToken(interned)
	b := e.typeToken(copied)
	require.Equal(t, metadata.TableTypeSpec, a.Table())
	require.Equal(t, a, b)
	require.Equal(t, 1, e.tables.Len(metadata.TableTypeSpec))

	other := e.typeToken(w.Types().Instantiate(list, w.Core.String))
	require.NotEqual(t, a, other)
	require.Equal(t, 2, e.tables.Len(metadata.TableTypeSpec))
}

func TestForwardBranchFixup(t *testing.T) {
	w := irtest.NewWorld("App")
	owner := w.Class(w.App, "App", "Flow", nil)
	m := w.Method(owner, "Skip", publicStatic, nil, w.Core.Boolean)
	target := w.Block(ir.Return(nil))
	filler := w.Block(&ir.Stmt{Kind: ir.StmtNop, Data: ir.NopData{}})
	skip := &ir.Stmt{Kind: ir.StmtBranch, Data: ir.BranchData{Cond: ir.ParamRef(m.Params[0]), Target: target, Short: true}}
	w.Body(m, skip, ir.Nested(filler), ir.Nested(target))

	res, err := Emit(w.App, Options{})
	require.NoError(t, err)
	tok := metadata.MakeToken(metadata.TableMethodDef, 1)
	// ldarg.0; brtrue.s +1; nop; ret
	require.Equal(t, []byte{0x02, 0x2D, 0x01, 0x00, 0x2A}, res.Body(tok))
}

func TestBackwardBranchUsesShortForm(t *testing.T) {
	w := irtest.NewWorld("App")
	owner := w.Class(w.App, "App", "Flow", nil)
	m := w.Method(owner, "Spin", publicStatic, nil)
	loop := w.Block(&ir.Stmt{Kind: ir.StmtNop, Data: ir.NopData{}})
	loop.Add(ir.Goto(loop))
	w.Body(m, ir.Nested(loop))

	res, err := Emit(w.App, Options{})
	require.NoError(t, err)
	// nop; br.s -3
	require.Equal(t, []byte{0x00, 0x2B, 0xFD}, res.Body(metadata.MakeToken(metadata.TableMethodDef, 1)))
}

func TestShortBranchRelaxation(t *testing.T) {
	w := irtest.NewWorld("App")
	owner := w.Class(w.App, "App", "Flow", nil)
	m := w.Method(owner, "Far", publicStatic, nil, w.Core.Boolean)
	target := w.Block(ir.Return(nil))
	filler := w.Block()
	for range 130 {
		filler.Add(&ir.Stmt{Kind: ir.StmtNop, Data: ir.NopData{}})
	}
	w.Body(m, ir.BranchIf(ir.ParamRef(m.Params[0]), target), ir.Nested(filler), ir.Nested(target))

	bag := diag.NewBag(16)
	res, err := Emit(w.App, Options{Reporter: diag.BagReporter{Bag: bag}})
	require.NoError(t, err)

	tok := metadata.MakeToken(metadata.TableMethodDef, 1)
	body := res.Body(tok)
	require.Len(t, body, 1+5+130+1)
	require.Equal(t, byte(0x3A), body[1], "brtrue in its long form")
	require.Equal(t, int32(130), int32(binary.LittleEndian.Uint32(body[2:6])))
	require.Equal(t, byte(0x2A), body[len(body)-1])

	info, _ := res.Method(tok)
	require.Equal(t, 1, info.Widened)
	require.True(t, info.Fat, "code exceeds the tiny header limit")
	require.Len(t, diagnostics(bag, diag.EmitBranchRelaxed), 1)
}

func TestSmallExceptionSection(t *testing.T) {
	w := irtest.NewWorld("App")
	owner := w.Class(w.App, "App", "Guard", nil)
	m := w.Method(owner, "Try", publicStatic, nil)
	w.Body(m, &ir.Stmt{Kind: ir.StmtTry, Data: ir.TryData{
		Body:    w.Block(&ir.Stmt{Kind: ir.StmtNop, Data: ir.NopData{}}),
		Catches: []*ir.CatchClause{{Type: w.Core.Exception, Body: w.Block()}},
	}})

	res, err := Emit(w.App, Options{})
	require.NoError(t, err)
	tok := metadata.MakeToken(metadata.TableMethodDef, 1)
	// nop; leave.s +2; leave.s +0; ret
	require.Equal(t, []byte{0x00, 0xDE, 0x02, 0xDE, 0x00, 0x2A}, res.Body(tok))

	h := methodHeader(res, tok)
	flags := binary.LittleEndian.Uint16(h)
	require.Equal(t, uint16(0x3003), flags&0xF003)
	require.NotZero(t, flags&fatMoreSects)
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(h[2:]), "the handler entry holds the exception")

	sect := h[fatHeaderBytes+6+2:] // code ends at 18, section aligned to 20
	require.Equal(t, byte(sectEHTable), sect[0])
	require.Equal(t, byte(16), sect[1])
	require.Equal(t, uint16(clauseException), binary.LittleEndian.Uint16(sect[4:]))
	require.Equal(t, uint16(0), binary.LittleEndian.Uint16(sect[6:]))
	require.Equal(t, byte(3), sect[8])
	require.Equal(t, uint16(3), binary.LittleEndian.Uint16(sect[9:]))
	require.Equal(t, byte(2), sect[11])
	class := metadata.Token(binary.LittleEndian.Uint32(sect[12:]))
	require.Equal(t, metadata.TableTypeRef, class.Table())
}

func TestFatExceptionSection(t *testing.T) {
	w := irtest.NewWorld("App")
	owner := w.Class(w.App, "App", "Guard", nil)
	m := w.Method(owner, "Long", publicStatic, nil)
	body := w.Block()
	for range 300 {
		body.Add(&ir.Stmt{Kind: ir.StmtNop, Data: ir.NopData{}})
	}
	w.Body(m, &ir.Stmt{Kind: ir.StmtTry, Data: ir.TryData{Body: body, Finally: w.Block()}})

	res, err := Emit(w.App, Options{NoShortBranches: true})
	require.NoError(t, err)
	tok := metadata.MakeToken(metadata.TableMethodDef, 1)
	info, _ := res.Method(tok)
	h := methodHeader(res, tok)
	start := (fatHeaderBytes + info.CodeSize + 3) &^ 3
	sect := h[start:]
	require.Equal(t, byte(sectEHTable|sectFatEH), sect[0])
	require.Equal(t, uint32(4+fatClauseBytes), uint32(sect[1])|uint32(sect[2])<<8|uint32(sect[3])<<16)
	require.Equal(t, uint32(clauseFinally), binary.LittleEndian.Uint32(sect[4:]))
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(sect[8:]))
	// 300 nops and a long leave
	require.Equal(t, uint32(305), binary.LittleEndian.Uint32(sect[12:]))
	require.Equal(t, uint32(305), binary.LittleEndian.Uint32(sect[16:]))
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(sect[20:]), "finally holds only endfinally")
}

func TestReturnInsideTryLeavesThroughLocal(t *testing.T) {
	w := irtest.NewWorld("App")
	owner := w.Class(w.App, "App", "Guard", nil)
	m := w.Method(owner, "Value", publicStatic, w.Core.Int32)
	w.Body(m, &ir.Stmt{Kind: ir.StmtTry, Data: ir.TryData{
		Body:    w.Block(ir.Return(w.I4(7))),
		Finally: w.Block(),
	}})

	res, err := Emit(w.App, Options{})
	require.NoError(t, err)
	// ldc.i4.7; stloc.0; leave.s +1; endfinally; ldloc.0; ret
	require.Equal(t, []byte{0x1D, 0x0A, 0xDE, 0x01, 0xDC, 0x06, 0x2A}, res.Body(metadata.MakeToken(metadata.TableMethodDef, 1)))
	require.Equal(t, 1, res.Tables.Len(metadata.TableStandAloneSig))
}

func TestUnresolvedLocation(t *testing.T) {
	w := irtest.NewWorld("App")
	orphan := &ir.Module{Name: "Orphan.dll"}
	w.Program.Arena.Register(&orphan.Node)
	lost := w.Class(orphan, "Lost", "Thing", nil)

	owner := w.Class(w.App, "App", "Holder", nil)
	w.Field(owner, "thing", lost, ir.FieldFlags(ir.AccessPublic))

	res, err := Emit(w.App, Options{})
	require.Nil(t, res)
	require.ErrorIs(t, err, ErrUnresolvedLocation)
	require.False(t, errors.Is(err, ErrMalformedIR))
}

func TestMalformedBodies(t *testing.T) {
	w := irtest.NewWorld("App")
	owner := w.Class(w.App, "App", "Broken", nil)
	m := w.Method(owner, "NoReturn", publicStatic, w.Core.Int32)
	w.Body(m, &ir.Stmt{Kind: ir.StmtNop, Data: ir.NopData{}})

	_, err := Emit(w.App, Options{})
	require.ErrorIs(t, err, ErrMalformedIR)
	require.ErrorContains(t, err, "control reaches the end")

	w = irtest.NewWorld("App")
	owner = w.Class(w.App, "App", "Broken", nil)
	m = w.Method(owner, "Underflow", publicStatic, nil)
	pop := &ir.Expr{Kind: ir.ExprBinary, Type: w.Core.Int32, Data: ir.BinaryData{
		Op:    ir.OpAdd,
		Left:  &ir.Expr{Kind: ir.ExprPop, Type: w.Core.Int32, Data: ir.StackData{}},
		Right: w.I4(1),
	}}
	w.Body(m, ir.ExprS(pop))
	_, err = Emit(w.App, Options{})
	require.ErrorIs(t, err, ErrMalformedIR)
	require.ErrorContains(t, err, "underflow")
}

func TestEmbeddedAndLinkedResources(t *testing.T) {
	w := irtest.NewWorld("App")
	w.Class(w.App, "App", "Main", nil)
	w.App.Resources = []*ir.Resource{
		{Name: "strings.txt", Public: true, Data: []byte("hello")},
		{Name: "logo.png", LinkedFile: "assets/logo.png"},
		{Name: "logo-copy.png", LinkedFile: "assets/logo.png"},
	}
	reads := 0
	bag := diag.NewBag(16)
	res, err := Emit(w.App, Options{
		Reporter: diag.BagReporter{Bag: bag},
		ReadFile: func(string) ([]byte, error) {
			reads++
			return nil, errors.New("missing")
		},
	})
	require.NoError(t, err)

	require.Equal(t, []byte{5, 0, 0, 0, 'h', 'e', 'l', 'l', 'o'}, res.Resources)
	require.Equal(t, 3, res.Tables.Len(metadata.TableManifestResource))
	require.Equal(t, 1, res.Tables.Len(metadata.TableFile), "linked files are shared by path")
	require.Equal(t, 1, reads)

	embedded := res.Tables.Row(metadata.TableManifestResource, 1)
	require.Equal(t, uint32(0), embedded[0])
	require.Equal(t, uint32(resourcePublic), embedded[1])
	linked := res.Tables.Row(metadata.TableManifestResource, 2)
	require.Equal(t, uint32(resourcePrivate), linked[1])
	impl, err := metadata.Implementation.Decode(linked[3])
	require.NoError(t, err)
	require.Equal(t, metadata.MakeToken(metadata.TableFile, 1), impl)

	require.Len(t, diagnostics(bag, diag.EmitResourceHashUnavailable), 1)
}

func TestExecutableEntryPoint(t *testing.T) {
	w := irtest.NewWorld("Tool")
	w.App.Kind = ir.ModuleEXE
	prog := w.Class(w.App, "Tool", "Program", nil)
	main := w.Method(prog, "Main", publicStatic, nil)
	w.Body(main, ir.Return(nil))

	bag := diag.NewBag(16)
	res, err := Emit(w.App, Options{Reporter: diag.BagReporter{Bag: bag}})
	require.NoError(t, err)
	require.True(t, res.EntryPoint.IsNil())
	require.Len(t, diagnostics(bag, diag.EmitMissingEntryPoint), 1)

	w.App.EntryPoint = main
	res, err = Emit(w.App, Options{})
	require.NoError(t, err)
	require.Equal(t, metadata.MakeToken(metadata.TableMethodDef, 1), res.EntryPoint)

	inst := w.Method(prog, "Run", ir.MethodFlags(ir.AccessPublic), nil)
	w.Body(inst, ir.Return(nil))
	w.App.EntryPoint = inst
	_, err = Emit(w.App, Options{})
	require.ErrorIs(t, err, ErrMalformedIR)
}

type recordingSymbols struct {
	docs    []string
	methods []metadata.Token
	points  [][3]int
	locals  []string
	closed  int
}

func (r *recordingSymbols) DefineDocument(path string) int {
	r.docs = append(r.docs, path)
	return len(r.docs) - 1
}
func (r *recordingSymbols) SetMethod(tok metadata.Token) { r.methods = append(r.methods, tok) }
func (r *recordingSymbols) SequencePoint(doc, offset, line, _ int) {
	r.points = append(r.points, [3]int{doc, offset, line})
}
func (r *recordingSymbols) OpenScope(int)  {}
func (r *recordingSymbols) CloseScope(int) {}
func (r *recordingSymbols) DefineLocal(name string, _ int, _ []byte) {
	r.locals = append(r.locals, name)
}
func (r *recordingSymbols) CloseMethod() { r.closed++ }

func TestSymbolsDoNotChangeOutput(t *testing.T) {
	build := func() *ir.Module {
		w := irtest.NewWorld("App")
		owner := w.Class(w.App, "App", "Debug", nil)
		m := w.Method(owner, "Sum", publicStatic, w.Core.Int32, w.Core.Int32)
		acc := w.Local(m, "acc", w.Core.Int32)
		first := ir.Assign(ir.LocalRef(acc), ir.ParamRef(m.Params[0]))
		first.Source = ir.SourcePos{File: "sum.src", Line: 3, Column: 5}
		ret := ir.Return(ir.LocalRef(acc))
		ret.Source = ir.SourcePos{File: "sum.src", Line: 4, Column: 5}
		w.Body(m, first, ret)
		return w.App
	}

	plain, err := Emit(build(), Options{})
	require.NoError(t, err)
	sw := &recordingSymbols{}
	withSymbols, err := Emit(build(), Options{Symbols: sw})
	require.NoError(t, err)

	require.Equal(t, plain.IL, withSymbols.IL)
	require.Equal(t, []string{"sum.src"}, sw.docs)
	require.Equal(t, []metadata.Token{metadata.MakeToken(metadata.TableMethodDef, 1)}, sw.methods)
	require.Equal(t, [][3]int{{0, 0, 3}, {0, 2, 4}}, sw.points)
	require.Equal(t, []string{"acc"}, sw.locals)
	require.Equal(t, 1, sw.closed)
}

func TestPassEventsBracketEachPass(t *testing.T) {
	w := irtest.NewWorld("Calc")
	w.Class(w.App, "Calc", "Ops", nil)

	var events []PassEvent
	_, err := Emit(w.App, Options{OnPass: func(ev PassEvent) { events = append(events, ev) }})
	require.NoError(t, err)
	require.Len(t, events, 6)
	for i, name := range []string{"define", "visit", "populate"} {
		start, end := events[2*i], events[2*i+1]
		require.Equal(t, name, start.Pass)
		require.False(t, start.Done)
		require.Equal(t, name, end.Pass)
		require.True(t, end.Done)
		require.Equal(t, "Calc.dll", end.Module)
	}
}

func TestAssemblyVersionColumns(t *testing.T) {
	w := irtest.NewWorld("App")
	w.App.Assembly.Version = ir.Version{Major: 1, Minor: 2, Build: 3, Revision: 4}
	w.Class(w.App, "App", "Main", nil)

	res, err := Emit(w.App, Options{})
	require.NoError(t, err)
	asm := res.Tables.Row(metadata.TableAssembly, 1)
	require.Equal(t, metadata.Row{1, 2, 3, 4}, asm[1:5])

	ref := res.Tables.Row(metadata.TableAssemblyRef, 1)
	require.Equal(t, metadata.Row{4, 0, 0, 0}, ref[0:4], "core library version")
}
