package irfile

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"ilmerge/internal/ir"
)

// Encode writes prog as a snapshot. Every node reachable from the
// program's modules is included; a node without an id is an error.
func Encode(w io.Writer, prog *ir.Program) error {
	s, err := flatten(prog)
	if err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(s)
}

type encodeError struct{ err error }

// encoder flattens the graph. Nodes are queued on first reference and
// written once.
type encoder struct {
	s    *snapshot
	seen map[ir.NodeID]bool

	types   []*ir.Type
	fields  []*ir.Field
	methods []*ir.Method
	props   []*ir.Property
	events  []*ir.Event
	blocks  []*ir.Block
}

func flatten(prog *ir.Program) (s *snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			ee, ok := r.(encodeError)
			if !ok {
				panic(r)
			}
			s, err = nil, ee.err
		}
	}()
	e := &encoder{
		s:    &snapshot{Magic: magic, Version: formatVersion},
		seen: make(map[ir.NodeID]bool, 1024),
	}
	for _, m := range prog.Modules {
		e.s.Order = append(e.s.Order, e.module(m))
	}
	for e.drain() {
	}
	return e.s, nil
}

func (e *encoder) failf(format string, args ...any) {
	panic(encodeError{fmt.Errorf("irfile: "+format, args...)})
}

// mark returns the id of n and whether it was seen before.
func (e *encoder) mark(n ir.Identified, what string) (ref, bool) {
	id := n.NodeID()
	if !id.IsValid() {
		e.failf("%s has no node id", what)
	}
	if e.seen[id] {
		return ref(id), true
	}
	e.seen[id] = true
	return ref(id), false
}

// drain writes queued nodes until the queues are empty. It reports whether
// any work was done.
func (e *encoder) drain() bool {
	did := false
	for len(e.types) > 0 {
		t := e.types[0]
		e.types = e.types[1:]
		e.writeType(t)
		did = true
	}
	for len(e.fields) > 0 {
		f := e.fields[0]
		e.fields = e.fields[1:]
		e.writeField(f)
		did = true
	}
	for len(e.methods) > 0 {
		m := e.methods[0]
		e.methods = e.methods[1:]
		e.writeMethod(m)
		did = true
	}
	for len(e.props) > 0 {
		p := e.props[0]
		e.props = e.props[1:]
		e.writeProperty(p)
		did = true
	}
	for len(e.events) > 0 {
		ev := e.events[0]
		e.events = e.events[1:]
		e.writeEvent(ev)
		did = true
	}
	for len(e.blocks) > 0 {
		b := e.blocks[0]
		e.blocks = e.blocks[1:]
		e.writeBlock(b)
		did = true
	}
	return did
}

func version(v ir.Version) [4]uint16 {
	return [4]uint16{v.Major, v.Minor, v.Build, v.Revision}
}

func (e *encoder) module(m *ir.Module) ref {
	id, seen := e.mark(m, "module "+m.Name)
	if seen {
		return id
	}
	w := wModule{ID: id, Name: m.Name, Kind: m.Kind, Attributes: e.attrs(m.Attributes)}
	if a := m.Assembly; a != nil {
		w.Assembly = &wAssembly{
			Name:          a.Name,
			Version:       version(a.Version),
			Culture:       a.Culture,
			PublicKey:     a.PublicKey,
			Flags:         a.Flags,
			HashAlgorithm: a.HashAlgorithm,
			Attributes:    e.attrs(a.Attributes),
			Security:      e.security(a.Security),
		}
	}
	w.Location = e.location(m.Location)
	for _, t := range m.Types {
		w.Types = append(w.Types, e.typ(t))
	}
	w.EntryPoint = e.method(m.EntryPoint)
	for _, r := range m.Resources {
		w.Resources = append(w.Resources, wResource{Name: r.Name, Public: r.Public, Data: r.Data, LinkedFile: r.LinkedFile})
	}
	e.s.Modules = append(e.s.Modules, w)
	return id
}

func (e *encoder) location(l *ir.Location) ref {
	if l == nil {
		return 0
	}
	id, seen := e.mark(l, "location "+l.Name)
	if !seen {
		e.s.Locations = append(e.s.Locations, wLocation{
			ID:             id,
			Kind:           l.Kind,
			Name:           l.Name,
			Version:        version(l.Version),
			Culture:        l.Culture,
			PublicKey:      l.PublicKey,
			PublicKeyToken: l.PublicKeyToken,
			Flags:          l.Flags,
			HashValue:      l.HashValue,
		})
	}
	return id
}

func (e *encoder) typ(t *ir.Type) ref {
	if t == nil {
		return 0
	}
	id, seen := e.mark(t, "type "+t.FullName())
	if !seen {
		e.types = append(e.types, t)
	}
	return id
}

func (e *encoder) typeList(ts []*ir.Type) []ref {
	if len(ts) == 0 {
		return nil
	}
	out := make([]ref, len(ts))
	for i, t := range ts {
		out[i] = e.typ(t)
	}
	return out
}

func (e *encoder) field(f *ir.Field) ref {
	if f == nil {
		return 0
	}
	id, seen := e.mark(f, "field "+f.Name)
	if !seen {
		e.fields = append(e.fields, f)
	}
	return id
}

func (e *encoder) method(m *ir.Method) ref {
	if m == nil {
		return 0
	}
	id, seen := e.mark(m, "method "+m.FullName())
	if !seen {
		e.methods = append(e.methods, m)
	}
	return id
}

func (e *encoder) methodList(ms []*ir.Method) []ref {
	if len(ms) == 0 {
		return nil
	}
	out := make([]ref, len(ms))
	for i, m := range ms {
		out[i] = e.method(m)
	}
	return out
}

func (e *encoder) block(b *ir.Block) ref {
	if b == nil {
		return 0
	}
	id, seen := e.mark(b, "block")
	if !seen {
		e.blocks = append(e.blocks, b)
	}
	return id
}

func (e *encoder) writeType(t *ir.Type) {
	w := wType{
		ID:              ref(t.ID),
		Kind:            t.Kind,
		Namespace:       t.Namespace,
		Name:            t.Name,
		Flags:           t.Flags,
		Code:            t.Code,
		DeclaringType:   e.typ(t.DeclaringType),
		BaseType:        e.typ(t.BaseType),
		Interfaces:      e.typeList(t.Interfaces),
		NestedTypes:     e.typeList(t.NestedTypes),
		Methods:         e.methodList(t.Methods),
		TemplateParams:  e.typeList(t.TemplateParams),
		Template:        e.typ(t.Template),
		TemplateArgs:    e.typeList(t.TemplateArgs),
		Element:         e.typ(t.Element),
		Modifier:        e.typ(t.Modifier),
		Rank:            t.Rank,
		Sizes:           t.Sizes,
		LowerBounds:     t.LowerBounds,
		ParamIndex:      t.ParamIndex,
		DeclaringMethod: e.method(t.DeclaringMethod),
		ParamFlags:      t.ParamFlags,
		Constraints:     e.typeList(t.Constraints),
		Layout:          t.Layout,
		Attributes:      e.attrs(t.Attributes),
		Security:        e.security(t.Security),
	}
	if t.Module != nil {
		w.Module = e.module(t.Module)
	}
	for _, f := range t.Fields {
		w.Fields = append(w.Fields, e.field(f))
	}
	for _, p := range t.Properties {
		id, seen := e.mark(p, "property "+p.Name)
		if !seen {
			e.props = append(e.props, p)
		}
		w.Properties = append(w.Properties, id)
	}
	for _, ev := range t.Events {
		id, seen := e.mark(ev, "event "+ev.Name)
		if !seen {
			e.events = append(e.events, ev)
		}
		w.Events = append(w.Events, id)
	}
	e.s.Types = append(e.s.Types, w)
}

func (e *encoder) writeField(f *ir.Field) {
	e.s.Fields = append(e.s.Fields, wField{
		ID:            ref(f.ID),
		Name:          f.Name,
		Flags:         f.Flags,
		Type:          e.typ(f.Type),
		DeclaringType: e.typ(f.DeclaringType),
		Default:       e.constant(f.Default),
		Offset:        f.Offset,
		InitialData:   f.InitialData,
		Marshal:       f.Marshal,
		Attributes:    e.attrs(f.Attributes),
		Unspecialized: e.field(f.Unspecialized),
	})
}

func (e *encoder) writeMethod(m *ir.Method) {
	w := wMethod{
		ID:               ref(m.ID),
		Name:             m.Name,
		Flags:            m.Flags,
		ImplFlags:        m.ImplFlags,
		CallConv:         m.CallConv,
		DeclaringType:    e.typ(m.DeclaringType),
		ReturnType:       e.typ(m.ReturnType),
		ReturnAttributes: e.attrs(m.ReturnAttributes),
		ReturnMarshal:    m.ReturnMarshal,
		TemplateParams:   e.typeList(m.TemplateParams),
		Template:         e.method(m.Template),
		TemplateArgs:     e.typeList(m.TemplateArgs),
		Unspecialized:    e.method(m.Unspecialized),
		Overrides:        e.methodList(m.Overrides),
		PInvoke:          m.PInvoke,
		InitLocals:       m.InitLocals,
		Body:             e.block(m.Body),
		Attributes:       e.attrs(m.Attributes),
		Security:         e.security(m.Security),
	}
	for _, p := range m.Params {
		id, seen := e.mark(p, "parameter "+p.Name+" of "+m.FullName())
		if !seen {
			e.s.Params = append(e.s.Params, wParam{
				ID:              id,
				Name:            p.Name,
				Index:           p.Index,
				Type:            e.typ(p.Type),
				Flags:           p.Flags,
				Default:         e.constant(p.Default),
				Marshal:         p.Marshal,
				Attributes:      e.attrs(p.Attributes),
				DeclaringMethod: ref(m.ID),
			})
		}
		w.Params = append(w.Params, id)
	}
	for _, l := range m.Locals {
		w.Locals = append(w.Locals, e.local(l))
	}
	e.s.Methods = append(e.s.Methods, w)
}

func (e *encoder) local(l *ir.Local) ref {
	if l == nil {
		return 0
	}
	id, seen := e.mark(l, "local "+l.Name)
	if !seen {
		e.s.Locals = append(e.s.Locals, wLocal{ID: id, Name: l.Name, Type: e.typ(l.Type), Pinned: l.Pinned})
	}
	return id
}

func (e *encoder) param(p *ir.Param) ref {
	if p == nil {
		return 0
	}
	if !p.ID.IsValid() {
		e.failf("parameter %s has no node id", p.Name)
	}
	// parameters are written with their method
	e.method(p.DeclaringMethod)
	return ref(p.ID)
}

func (e *encoder) writeProperty(p *ir.Property) {
	e.s.Properties = append(e.s.Properties, wProperty{
		ID:            ref(p.ID),
		Name:          p.Name,
		Flags:         p.Flags,
		Type:          e.typ(p.Type),
		Params:        e.typeList(p.Params),
		HasThis:       p.HasThis,
		DeclaringType: e.typ(p.DeclaringType),
		Getter:        e.method(p.Getter),
		Setter:        e.method(p.Setter),
		Others:        e.methodList(p.Others),
		Default:       e.constant(p.Default),
		Attributes:    e.attrs(p.Attributes),
	})
}

func (e *encoder) writeEvent(ev *ir.Event) {
	e.s.Events = append(e.s.Events, wEvent{
		ID:            ref(ev.ID),
		Name:          ev.Name,
		Flags:         ev.Flags,
		Type:          e.typ(ev.Type),
		DeclaringType: e.typ(ev.DeclaringType),
		Adder:         e.method(ev.Adder),
		Remover:       e.method(ev.Remover),
		Raiser:        e.method(ev.Raiser),
		Others:        e.methodList(ev.Others),
		Attributes:    e.attrs(ev.Attributes),
	})
}

func (e *encoder) constant(c *ir.Constant) *wConst {
	if c == nil {
		return nil
	}
	return &wConst{Code: c.Code, Value: e.value(c.Value)}
}

func (e *encoder) value(v any) wValue {
	switch x := v.(type) {
	case nil:
		return wValue{K: vNil}
	case bool:
		if x {
			return wValue{K: vBool, I: 1}
		}
		return wValue{K: vBool}
	case int8:
		return wValue{K: vI1, I: int64(x)}
	case int16:
		return wValue{K: vI2, I: int64(x)}
	case int32:
		return wValue{K: vI4, I: int64(x)}
	case int:
		return wValue{K: vI4, I: int64(x)}
	case int64:
		return wValue{K: vI8, I: x}
	case uint8:
		return wValue{K: vU1, U: uint64(x)}
	case uint16:
		return wValue{K: vU2, U: uint64(x)}
	case uint32:
		return wValue{K: vU4, U: uint64(x)}
	case uint64:
		return wValue{K: vU8, U: x}
	case float32:
		return wValue{K: vR4, F: float64(x)}
	case float64:
		return wValue{K: vR8, F: x}
	case string:
		return wValue{K: vString, S: x}
	case *ir.Type:
		return wValue{K: vType, T: e.typ(x)}
	case []ir.AttrArg:
		out := wValue{K: vArray, Arr: make([]wArg, len(x))}
		for i, a := range x {
			out.Arr[i] = e.arg(a)
		}
		return out
	case ir.AttrArg:
		a := e.arg(x)
		return wValue{K: vBoxed, Box: &a}
	}
	e.failf("unsupported constant value %T", v)
	return wValue{}
}

func (e *encoder) arg(a ir.AttrArg) wArg {
	return wArg{Type: e.typ(a.Type), Value: e.value(a.Value)}
}

func (e *encoder) attrs(as []*ir.Attribute) []wAttr {
	if len(as) == 0 {
		return nil
	}
	out := make([]wAttr, 0, len(as))
	for _, a := range as {
		w := wAttr{Ctor: e.method(a.Constructor)}
		for _, arg := range a.Args {
			w.Args = append(w.Args, e.arg(arg))
		}
		for _, n := range a.Named {
			w.Named = append(w.Named, wNamed{IsField: n.IsField, Name: n.Name, Arg: e.arg(n.Arg)})
		}
		out = append(out, w)
	}
	return out
}

func (e *encoder) security(ss []*ir.SecurityAttribute) []wSecurity {
	if len(ss) == 0 {
		return nil
	}
	out := make([]wSecurity, 0, len(ss))
	for _, s := range ss {
		out = append(out, wSecurity{Action: s.Action, Permissions: e.attrs(s.Permissions)})
	}
	return out
}

func (e *encoder) writeBlock(b *ir.Block) {
	w := wBlock{ID: ref(b.ID), Stmts: make([]*wStmt, 0, len(b.Stmts))}
	for _, s := range b.Stmts {
		w.Stmts = append(w.Stmts, e.stmt(s))
	}
	e.s.Blocks = append(e.s.Blocks, w)
}

func (e *encoder) stmt(s *ir.Stmt) *wStmt {
	if s == nil {
		e.failf("nil statement")
	}
	w := &wStmt{Kind: s.Kind}
	if s.Source != (ir.SourcePos{}) {
		w.Pos = &wPos{File: s.Source.File, Line: s.Source.Line, Column: s.Source.Column}
	}
	switch d := s.Data.(type) {
	case ir.ExprStmtData:
		w.Data = stExpr
		w.Exprs = []*wExpr{e.expr(d.Expr)}
	case ir.AssignData:
		w.Data = stAssign
		w.Exprs = []*wExpr{e.expr(d.Target), e.expr(d.Value)}
	case ir.ReturnData:
		w.Data = stReturn
		w.Exprs = []*wExpr{e.expr(d.Value)}
	case ir.BranchData:
		w.Data = stBranch
		w.Exprs = []*wExpr{e.expr(d.Cond)}
		w.Blocks = []ref{e.block(d.Target)}
		w.Flags = flags(d.IfFalse, fIfFalse) | flags(d.Short, fShort) | flags(d.Leave, fLeave)
	case ir.SwitchData:
		w.Data = stSwitch
		w.Exprs = []*wExpr{e.expr(d.Value)}
		for _, t := range d.Targets {
			w.Blocks = append(w.Blocks, e.block(t))
		}
	case ir.IfData:
		w.Data = stIf
		w.Exprs = []*wExpr{e.expr(d.Cond)}
		w.Blocks = []ref{e.block(d.Then), e.block(d.Else)}
	case ir.WhileData:
		w.Data = stWhile
		w.Exprs = []*wExpr{e.expr(d.Cond)}
		w.Blocks = []ref{e.block(d.Body)}
	case ir.BlockData:
		w.Data = stBlock
		w.Blocks = []ref{e.block(d.Block)}
	case ir.TryData:
		w.Data = stTry
		w.Blocks = []ref{e.block(d.Body), e.block(d.Finally), e.block(d.Fault)}
		for _, c := range d.Catches {
			w.Catches = append(w.Catches, wCatch{
				Type:     e.typ(c.Type),
				Variable: e.local(c.Variable),
				Filter:   e.block(c.Filter),
				Body:     e.block(c.Body),
			})
		}
	case ir.ThrowData:
		w.Data = stThrow
		w.Exprs = []*wExpr{e.expr(d.Value)}
	case ir.NopData, nil:
		w.Data = stNop
	default:
		e.failf("unsupported statement payload %T", s.Data)
	}
	return w
}

func flags(set bool, bit uint16) uint16 {
	if set {
		return bit
	}
	return 0
}

func (e *encoder) exprs(xs []*ir.Expr) []*wExpr {
	out := make([]*wExpr, 0, len(xs))
	for _, x := range xs {
		out = append(out, e.expr(x))
	}
	return out
}

// expr encodes x inline. Optional operands lead Kids and are counted in N.
func (e *encoder) expr(x *ir.Expr) *wExpr {
	if x == nil {
		return nil
	}
	w := &wExpr{Kind: x.Kind, Type: e.typ(x.Type)}
	switch d := x.Data.(type) {
	case nil:
	case ir.LiteralData:
		w.Data = exLiteral
		v := e.value(d.Value)
		w.Value = &v
	case ir.ParamData:
		w.Data = exParam
		w.Ref = e.param(d.Param)
	case ir.LocalData:
		w.Data = exLocal
		w.Ref = e.local(d.Local)
	case ir.ThisData:
		w.Data = exThis
	case ir.BinaryData:
		w.Data = exBinary
		w.Op = uint8(d.Op)
		w.Flags = flags(d.Unsigned, fUnsigned) | flags(d.Checked, fChecked)
		w.Kids = []*wExpr{e.expr(d.Left), e.expr(d.Right)}
	case ir.UnaryData:
		w.Data = exUnary
		w.Op = uint8(d.Op)
		w.Kids = []*wExpr{e.expr(d.Operand)}
	case ir.CallData:
		w.Data = exCall
		w.Ref = e.method(d.Method)
		w.Ref2 = e.typ(d.Constrained)
		w.Flags = flags(d.Virtual, fVirtual) | flags(d.Tail, fTail)
		if d.Receiver != nil {
			w.N = 1
			w.Kids = append(w.Kids, e.expr(d.Receiver))
		}
		w.Kids = append(w.Kids, e.exprs(d.Args)...)
	case ir.NewData:
		w.Data = exNew
		w.Ref = e.method(d.Constructor)
		w.Kids = e.exprs(d.Args)
	case ir.NewArrayData:
		w.Data = exNewArray
		w.N = len(d.Sizes)
		w.Kids = append(e.exprs(d.Sizes), e.exprs(d.Init)...)
	case ir.FieldData:
		w.Data = exField
		w.Ref = e.field(d.Field)
		w.Flags = flags(d.Volatile, fVolatile)
		if d.Receiver != nil {
			w.N = 1
			w.Kids = []*wExpr{e.expr(d.Receiver)}
		}
	case ir.IndexData:
		w.Data = exIndex
		w.Kids = append([]*wExpr{e.expr(d.Array)}, e.exprs(d.Indices)...)
	case ir.ArrayLengthData:
		w.Data = exArrayLength
		w.Kids = []*wExpr{e.expr(d.Array)}
	case ir.ConvertData:
		w.Data = exConvert
		w.To = d.To
		w.Flags = flags(d.Checked, fChecked) | flags(d.FromUnsigned, fUnsigned)
		w.Kids = []*wExpr{e.expr(d.Value)}
	case ir.TypeOpData:
		w.Data = exTypeOp
		w.Ref = e.typ(d.Target)
		if d.Operand != nil {
			w.N = 1
			w.Kids = []*wExpr{e.expr(d.Operand)}
		}
	case ir.AddressOfData:
		w.Data = exAddressOf
		w.Flags = flags(d.ReadOnly, fReadOnly)
		w.Kids = []*wExpr{e.expr(d.Target)}
	case ir.IndirectData:
		w.Data = exIndirect
		w.Flags = flags(d.Volatile, fVolatile)
		w.Kids = []*wExpr{e.expr(d.Address)}
	case ir.MethodRefData:
		w.Data = exMethodRef
		w.Ref = e.method(d.Method)
		w.Flags = flags(d.Virtual, fVirtual)
		if d.Receiver != nil {
			w.N = 1
			w.Kids = []*wExpr{e.expr(d.Receiver)}
		}
	case ir.StackData:
		w.Data = exStack
	case ir.ConditionalData:
		w.Data = exConditional
		w.Kids = []*wExpr{e.expr(d.Cond), e.expr(d.Then), e.expr(d.Else)}
	default:
		e.failf("unsupported expression payload %T", x.Data)
	}
	return w
}
