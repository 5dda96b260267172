package dup

import (
	"testing"

	"ilmerge/internal/diag"
	"ilmerge/internal/ir"
	"ilmerge/internal/irtest"
)

func TestMutualReferencesConvergeOnOneDuplicate(t *testing.T) {
	w := irtest.NewWorld("App")
	a := w.Class(w.App, "App", "A", nil)
	b := w.Class(w.App, "App", "B", nil)
	w.Field(a, "b", b, ir.FieldFlags(ir.AccessPublic))
	w.Field(b, "a", a, ir.FieldFlags(ir.AccessPublic))
	w.Field(b, "again", a, ir.FieldFlags(ir.AccessPublic))

	d := New(w.Types(), nil, nil, Options{})
	out := d.DuplicateModule(w.App)

	if len(out.Types) != 2 {
		t.Fatalf("expected 2 duplicated types, got %d", len(out.Types))
	}
	da, db := out.Types[0], out.Types[1]
	if da == a || db == b {
		t.Fatalf("duplicates must be fresh nodes")
	}
	if da.Fields[0].Type != db || db.Fields[0].Type != da || db.Fields[1].Type != da {
		t.Fatalf("field types must point at duplicates")
	}
	if got := d.DuplicateType(a); got != da {
		t.Fatalf("second request returned a different duplicate")
	}
	if got, ok := d.DuplicateFor(b.ID); !ok || got != db {
		t.Fatalf("DuplicateFor(B) = %v, %v", got, ok)
	}
	if da.BaseType != w.Core.Object {
		t.Fatalf("foreign base type must pass through, got %v", da.BaseType)
	}
	if err := irtest.CheckInvariants(out); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestSelfReferenceTerminates(t *testing.T) {
	w := irtest.NewWorld("App")
	node := w.Class(w.App, "App", "Node", nil)
	w.Field(node, "next", node, ir.FieldFlags(ir.AccessPublic))
	w.Field(node, "children", w.Types().Vector(node), ir.FieldFlags(ir.AccessPublic))
	w.Field(node, "count", w.Core.Int32, ir.FieldFlags(ir.AccessPublic))

	d := New(w.Types(), w.NewModule("Out"), nil, Options{})
	dn := d.DuplicateType(node)

	if d.Stats().Types != 1 {
		t.Fatalf("expected exactly one duplicated type, got %d", d.Stats().Types)
	}
	if dn.Fields[0].Type != dn {
		t.Fatalf("self reference must resolve to the duplicate")
	}
	if dn.Fields[1].Type != w.Types().Vector(dn) {
		t.Fatalf("array of duplicate must be the interned vector")
	}
	if dn.Fields[2].Type != w.Core.Int32 {
		t.Fatalf("foreign field type changed")
	}
}

func TestMethodBodyRepointsLocalsParamsAndBlocks(t *testing.T) {
	w := irtest.NewWorld("App")
	c := w.Class(w.App, "App", "C", nil)
	helper := w.Method(c, "Helper", ir.MethodStatic, w.Core.Int32, w.Core.Int32)
	m := w.Method(c, "Run", ir.MethodStatic, w.Core.String, w.Core.Int32)
	tmp := w.Local(m, "tmp", w.Core.Int32)
	obj := w.Local(m, "o", w.Core.Object)

	exit := w.Block(ir.Return(ir.Call(w.Core.ToString, ir.LocalRef(obj))))
	w.Body(m,
		ir.Assign(ir.LocalRef(tmp), ir.Call(helper, nil, ir.ParamRef(m.Params[0]))),
		ir.BranchIf(ir.Binary(ir.OpGt, w.Core.Boolean, ir.LocalRef(tmp), w.I4(0)), exit),
		ir.Assign(ir.LocalRef(tmp), w.I4(1)),
		ir.Nested(exit),
	)

	d := New(w.Types(), w.NewModule("Out"), nil, Options{})
	dc := d.DuplicateType(c)
	dm := dc.Methods[1]
	dHelper := dc.Methods[0]

	if len(dm.Locals) != 2 || dm.Locals[0] == tmp || dm.Locals[1] == obj {
		t.Fatalf("locals must be duplicated")
	}
	body := dm.Body.Stmts
	assign := body[0].Data.(ir.AssignData)
	if assign.Target.Data.(ir.LocalData).Local != dm.Locals[0] {
		t.Fatalf("local reference not repointed")
	}
	call := assign.Value.Data.(ir.CallData)
	if call.Method != dHelper {
		t.Fatalf("in-scope call must target the duplicate")
	}
	if call.Args[0].Data.(ir.ParamData).Param != dm.Params[0] {
		t.Fatalf("parameter reference not repointed")
	}

	br := body[1].Data.(ir.BranchData)
	nested := body[3].Data.(ir.BlockData)
	if br.Target == exit || br.Target != nested.Block {
		t.Fatalf("branch target and block definition must share one duplicate")
	}
	if len(nested.Block.Stmts) != 1 {
		t.Fatalf("target block statements not copied")
	}
	ret := nested.Block.Stmts[0].Data.(ir.ReturnData)
	if ret.Value.Data.(ir.CallData).Method != w.Core.ToString {
		t.Fatalf("foreign member reference must stay untouched")
	}
	if err := irtest.CheckInvariants(w.App); err != nil {
		t.Fatalf("original module damaged: %v", err)
	}
}

func TestGenericInstancesRebuiltOnlyWhenChanged(t *testing.T) {
	w := irtest.NewWorld("App")
	lib := w.NewModule("Lib")
	list := w.Generic(lib, "Lib", "List", "T")
	item := w.Class(w.App, "App", "Item", nil)
	holder := w.Class(w.App, "App", "Holder", nil)
	ints := w.Types().Instantiate(list, w.Core.Int32)
	items := w.Types().Instantiate(list, item)
	w.Field(holder, "ints", ints, ir.FieldFlags(ir.AccessPublic))
	w.Field(holder, "items", items, ir.FieldFlags(ir.AccessPublic))

	d := New(w.Types(), w.NewModule("Out"), nil, Options{})
	out := d.DuplicateTypes([]*ir.Type{item, holder})
	dItem, dHolder := out[0], out[1]

	if dHolder.Fields[0].Type != ints {
		t.Fatalf("unchanged instance must keep its identity")
	}
	want := w.Types().Instantiate(list, dItem)
	if got := dHolder.Fields[1].Type; got != want || got == items {
		t.Fatalf("changed instance must be re-interned, got %v", got)
	}
}

func TestTemplateParamPolicies(t *testing.T) {
	cases := []struct {
		name   string
		opts   Options
		shared bool
	}{
		{"plain copies", Options{Mode: ModePlain}, false},
		{"record-template shares", Options{Mode: ModeRecordTemplate}, true},
		{"record-template forced copy", Options{Mode: ModeRecordTemplate, TemplateParams: TemplateParamsCopy}, false},
		{"plain forced share", Options{Mode: ModePlain, TemplateParams: TemplateParamsShare}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := irtest.NewWorld("App")
			box := w.Generic(w.App, "App", "Box", "T")
			tp := box.TemplateParams[0]
			w.Field(box, "value", tp, ir.FieldFlags(ir.AccessPublic))

			d := New(w.Types(), w.NewModule("Out"), nil, tc.opts)
			db := d.DuplicateType(box)

			gotShared := db.TemplateParams[0] == tp
			if gotShared != tc.shared {
				t.Fatalf("shared = %v, want %v", gotShared, tc.shared)
			}
			if db.Fields[0].Type != db.TemplateParams[0] {
				t.Fatalf("field must reference the duplicate's own parameter")
			}
			if !tc.shared && db.TemplateParams[0].DeclaringType != db {
				t.Fatalf("copied parameter must be owned by the duplicate")
			}
			if tc.opts.Mode == ModeRecordTemplate && db.Template != box {
				t.Fatalf("template backlink missing")
			}
			if tc.opts.Mode == ModePlain && db.Template != nil {
				t.Fatalf("plain mode must not record a template")
			}
		})
	}
}

func TestUnresolvedMemberDegradesToOriginal(t *testing.T) {
	w := irtest.NewWorld("App")
	c := w.Class(w.App, "App", "C", nil)
	stray := &ir.Method{Name: "Gone", DeclaringType: c, ReturnType: w.Core.Void}
	w.Program.Arena.Register(&stray.Node)
	m := w.Method(c, "Run", ir.MethodStatic, nil)
	w.Body(m, ir.ExprS(ir.Call(stray, nil)), ir.Return(nil))

	bag := diag.NewBag(0)
	d := New(w.Types(), w.NewModule("Out"), nil, Options{Reporter: diag.BagReporter{Bag: bag}})
	dc := d.DuplicateType(c)

	call := dc.Methods[0].Body.Stmts[0].Data.(ir.ExprStmtData).Expr.Data.(ir.CallData)
	if call.Method != stray {
		t.Fatalf("unresolved member must degrade to the original")
	}
	if d.Stats().Unresolved != 1 || bag.Len() != 1 {
		t.Fatalf("expected one unresolved note, stats=%d bag=%d", d.Stats().Unresolved, bag.Len())
	}
	if got := bag.Items()[0]; got.Code != diag.DupUnresolvedMember || got.Severity != diag.SevInfo {
		t.Fatalf("unexpected diagnostic %+v", got)
	}
}

func TestDuplicateIntoTargetTypeNests(t *testing.T) {
	w := irtest.NewWorld("App")
	src := w.Class(w.App, "App", "Closure", nil)
	w.Method(src, "Invoke", 0, nil)
	host := w.Class(w.App, "App", "Host", nil)

	d := New(w.Types(), w.App, host, Options{})
	dup := d.DuplicateType(src)

	if dup.DeclaringType != host || len(host.NestedTypes) != 1 || host.NestedTypes[0] != dup {
		t.Fatalf("duplicate must be nested in the target type")
	}
	if dup.Flags&ir.TypeVisibilityMask != ir.TypeNestedPublic {
		t.Fatalf("public type must become nested public, flags %#x", dup.Flags)
	}
	if dup.Methods[0].DeclaringType != dup {
		t.Fatalf("member owner not repointed")
	}
}

func TestMergeRepointsPrimaryReferences(t *testing.T) {
	w := irtest.NewWorld("App")
	lib := w.NewModule("Lib")
	shared := w.Class(lib, "Lib", "Shared", nil)
	ping := w.Method(shared, "Ping", ir.MethodStatic, w.Core.Int32)

	p := w.Class(w.App, "App", "Program", nil)
	f := w.Field(p, "s", shared, ir.FieldFlags(ir.AccessPrivate))
	main := w.Method(p, "Main", ir.MethodStatic, w.Core.Int32)
	l := w.Local(main, "x", shared)
	w.Body(main, ir.Return(ir.Call(ping, nil)))

	bag := diag.NewBag(0)
	d := New(w.Types(), w.App, nil, Options{Reporter: diag.BagReporter{Bag: bag}})
	d.Merge(lib)

	merged := w.App.FindType("Lib.Shared")
	if merged == nil || merged == shared || merged.Module != w.App {
		t.Fatalf("secondary type not merged into the primary module")
	}
	if f.Type != merged || l.Type != merged {
		t.Fatalf("primary references not repointed")
	}
	if main.Locals[0] != l {
		t.Fatalf("primary locals must keep their identity")
	}
	call := main.Body.Stmts[0].Data.(ir.ReturnData).Value.Data.(ir.CallData)
	if call.Method != merged.Methods[0] {
		t.Fatalf("call not repointed to the merged method")
	}
	if bag.HasWarnings() {
		t.Fatalf("unexpected warnings: %v", bag.Items())
	}
	if err := irtest.CheckInvariants(w.App); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestMergeReportsTypeConflicts(t *testing.T) {
	w := irtest.NewWorld("App")
	lib := w.NewModule("Lib")
	w.Class(lib, "App", "Util", nil)
	w.Class(w.App, "App", "Util", nil)

	bag := diag.NewBag(0)
	d := New(w.Types(), w.App, nil, Options{Reporter: diag.BagReporter{Bag: bag}})
	d.Merge(lib)

	if !bag.HasWarnings() || bag.Items()[0].Code != diag.DupTypeConflict {
		t.Fatalf("expected a type conflict warning, got %v", bag.Items())
	}
}

func TestParseOptions(t *testing.T) {
	if m, err := ParseMode("record-template"); err != nil || m != ModeRecordTemplate {
		t.Fatalf("ParseMode = %v, %v", m, err)
	}
	if _, err := ParseMode("deep"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if p, err := ParseTemplateParamPolicy("share"); err != nil || p != TemplateParamsShare {
		t.Fatalf("ParseTemplateParamPolicy = %v, %v", p, err)
	}
}
