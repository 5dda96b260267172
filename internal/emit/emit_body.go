package emit

import (
	"fmt"

	"fortio.org/safecast"

	"ilmerge/internal/bytesink"
	"ilmerge/internal/diag"
	"ilmerge/internal/il"
	"ilmerge/internal/ir"
	"ilmerge/internal/metadata"
)

// maxRelaxPasses bounds body re-emission. Every extra pass widens at least
// one branch, so the bound is only reached on an emitter bug.
const maxRelaxPasses = 64

const (
	tinyFormat     = 0x02
	fatFormat      = 0x3003
	fatMoreSects   = 0x08
	fatInitLocals  = 0x10
	tinyMaxCode    = 64
	tinyMaxStack   = 8
	fatHeaderBytes = 12
)

// label is a branch target. Block labels are keyed by block identity;
// internal labels (else arms, loop heads, handler exits) are anonymous.
type label struct {
	pos    int
	height int
	// targeted is set once any branch refers to the label.
	targeted bool
	fixups   *fixup
}

// fixup is a pending displacement of a forward branch. Fixups of one label
// form a chain that is resolved when the label is placed.
type fixup struct {
	at  int
	end int
	// ordinal identifies the branch across passes; -1 for switch targets.
	ordinal int
	short   bool
	next    *fixup
}

type seqPoint struct {
	offset int
	pos    ir.SourcePos
}

// bodyEmitter lowers one method body. Labels, fixups and stack state are
// rebuilt on every pass; local slots and the widened branch set survive.
type bodyEmitter struct {
	e   *Emitter
	rec *methodRec
	m   *ir.Method
	w   *bytesink.Writer

	stack     int
	maxStack  int
	reachable bool

	labels   map[ir.NodeID]*label
	branches int
	widen    map[int]bool
	overflow bool

	locals []*ir.Local
	slots  map[ir.NodeID]int
	temps  map[*ir.Type]int

	tryDepth int
	clauses  []clause
	ret      *label
	retSlot  int
	points   []seqPoint
}

func (e *Emitter) emitBody(rec *methodRec) int {
	b := &bodyEmitter{
		e:       e,
		rec:     rec,
		m:       rec.m,
		w:       bytesink.New(256),
		widen:   make(map[int]bool),
		slots:   make(map[ir.NodeID]int),
		temps:   make(map[*ir.Type]int),
		retSlot: -1,
	}
	for _, l := range b.m.Locals {
		b.slot(l)
	}
	for pass := 0; ; pass++ {
		if pass == maxRelaxPasses {
			panic(fmt.Sprintf("emit: %s: branch relaxation did not settle", b.m.FullName()))
		}
		b.reset()
		b.body()
		if !b.overflow {
			break
		}
	}
	if n := len(b.widen); n > 0 {
		diag.ReportInfo(e.opts.Reporter, diag.EmitBranchRelaxed, b.m.FullName(),
			fmt.Sprintf("%d short branch(es) re-emitted in long form", n)).Emit()
	}
	return b.finish()
}

func (b *bodyEmitter) reset() {
	b.w.Reset()
	b.stack, b.maxStack = 0, 0
	b.reachable = true
	b.labels = make(map[ir.NodeID]*label, 8)
	b.branches = 0
	b.overflow = false
	b.tryDepth = 0
	b.clauses = b.clauses[:0]
	b.ret = nil
	b.points = b.points[:0]
}

func (b *bodyEmitter) body() {
	b.block(b.m.Body)
	if b.reachable {
		if !isVoid(b.m.ReturnType) {
			b.fail("control reaches the end of a method returning %s", typeName(b.m.ReturnType))
		}
		b.emit(il.Ret)
		b.reachable = false
	}
	if b.ret != nil {
		b.place(b.ret, false)
		b.stack = 0
		if !isVoid(b.m.ReturnType) {
			b.loadLocal(b.retSlot)
		}
		b.ret0()
	}
}

func (b *bodyEmitter) fail(format string, args ...any) {
	b.e.failf(ErrMalformedIR, "%s: %s", b.m.FullName(), fmt.Sprintf(format, args...))
}

func (b *bodyEmitter) pos() int { return b.w.Len() }

// emit writes an opcode and applies its fixed stack effect. Opcodes whose
// effect depends on the operand leave the adjustment to the caller.
func (b *bodyEmitter) emit(op il.Opcode) {
	info, ok := il.Lookup(op)
	if !ok {
		panic(fmt.Sprintf("emit: unknown opcode %#x", uint16(op)))
	}
	b.w.Raw(op.Bytes())
	if info.Pop != il.VarStack && info.Push != il.VarStack {
		b.adjust(int(info.Pop), int(info.Push))
	}
}

func (b *bodyEmitter) adjust(pop, push int) {
	b.stack -= pop
	if b.stack < 0 {
		b.fail("evaluation stack underflow at IL_%04x", b.pos())
	}
	b.stack += push
	if b.stack > b.maxStack {
		b.maxStack = b.stack
	}
}

func (b *bodyEmitter) token(tok metadata.Token) { b.w.U32(uint32(tok)) }

func (b *bodyEmitter) ret0() {
	if !isVoid(b.m.ReturnType) {
		b.adjust(1, 0)
	}
	b.emit(il.Ret)
	b.stack = 0
	b.reachable = false
}

func (b *bodyEmitter) newLabel() *label { return &label{pos: -1} }

func (b *bodyEmitter) blockLabel(blk *ir.Block) *label {
	if blk == nil {
		b.fail("branch to a nil block")
	}
	id := b.e.requireID(blk, "block in "+b.m.FullName())
	l, ok := b.labels[id]
	if !ok {
		l = b.newLabel()
		b.labels[id] = l
	}
	return l
}

// place binds l to the current offset and resolves its pending fixups. A
// short fixup that does not fit marks its branch for the long form and
// requests another pass.
func (b *bodyEmitter) place(l *label, mayFallIn bool) {
	l.pos = b.pos()
	for f := l.fixups; f != nil; f = f.next {
		disp := l.pos - f.end
		if f.short {
			if disp > 127 {
				b.widen[f.ordinal] = true
				b.overflow = true
				continue
			}
			b.w.PatchU8(f.at, uint8(int8(disp)))
			continue
		}
		b.w.PatchI32(f.at, int32(disp))
	}
	l.fixups = nil
	if b.reachable {
		b.stack = max(b.stack, l.height)
	} else {
		b.stack = l.height
	}
	b.reachable = b.reachable || l.targeted || mayFallIn
}

// branch emits a branch to l. op is the long form. Backward branches pick
// their form from the known distance; forward branches are short when the
// IR asks for it or optimistic short branches are on, unless an earlier
// pass found that they overflow.
func (b *bodyEmitter) branch(op il.Opcode, l *label, hint bool) {
	ord := b.branches
	b.branches++
	short := op.Short()
	if l.pos >= 0 {
		disp := l.pos - (b.pos() + short.Size() + 1)
		if disp >= -128 && !b.widen[ord] {
			b.emit(short)
			b.w.I8(int8(disp))
		} else {
			disp = l.pos - (b.pos() + op.Size() + 4)
			b.emit(op)
			b.w.I32(int32(disp))
		}
		b.target(l)
		return
	}
	f := &fixup{ordinal: ord, next: l.fixups}
	if (hint || !b.e.opts.NoShortBranches) && !b.widen[ord] {
		b.emit(short)
		f.at, f.short = b.pos(), true
		b.w.U8(0)
	} else {
		b.emit(op)
		f.at = b.pos()
		b.w.U32(0)
	}
	f.end = b.pos()
	l.fixups = f
	b.target(l)
}

func (b *bodyEmitter) target(l *label) {
	l.targeted = true
	l.height = max(l.height, b.stack)
}

func (b *bodyEmitter) jump(l *label, hint bool) {
	b.branch(il.Br, l, hint)
	b.reachable = false
}

func (b *bodyEmitter) leave(l *label, hint bool) {
	b.stack = 0
	b.branch(il.Leave, l, hint)
	b.reachable = false
}

func (b *bodyEmitter) slot(l *ir.Local) int {
	if l == nil {
		b.fail("nil local")
	}
	id := b.e.requireID(l, "local "+l.Name+" of "+b.m.FullName())
	if s, ok := b.slots[id]; ok {
		return s
	}
	s := b.addLocal(l)
	b.slots[id] = s
	return s
}

func (b *bodyEmitter) addLocal(l *ir.Local) int {
	s := len(b.locals)
	if s >= 0xFFFF {
		b.fail("too many locals")
	}
	b.locals = append(b.locals, l)
	return s
}

// returnSlot is the local that carries a return value out of a protected
// region.
func (b *bodyEmitter) returnSlot() int {
	if b.retSlot < 0 {
		b.retSlot = b.addLocal(&ir.Local{Name: "<ret>", Type: b.m.ReturnType})
	}
	return b.retSlot
}

func (b *bodyEmitter) returnLabel() *label {
	if b.ret == nil {
		b.ret = b.newLabel()
	}
	return b.ret
}

// tempSlot returns a scratch local of type t, shared by every use in the
// body.
func (b *bodyEmitter) tempSlot(t *ir.Type) int {
	if s, ok := b.temps[t]; ok {
		return s
	}
	s := b.addLocal(&ir.Local{Name: "<tmp>", Type: t})
	b.temps[t] = s
	return s
}

func (b *bodyEmitter) sequencePoint(p ir.SourcePos) {
	if b.e.opts.Symbols == nil || !p.IsValid() {
		return
	}
	b.points = append(b.points, seqPoint{offset: b.pos(), pos: p})
}

// finish appends the header, code and exception sections to the IL stream
// and returns the body offset.
func (b *bodyEmitter) finish() int {
	e := b.e
	code := b.w.Bytes()
	var localSig metadata.Token
	if len(b.locals) > 0 {
		data, err := e.enc.Locals(b.locals)
		e.check(err, "locals of "+b.m.FullName())
		localSig = e.standAloneSig(data)
	}
	maxStack, err := safecast.Conv[uint16](b.maxStack)
	if err != nil {
		b.fail("max stack: %v", err)
	}
	codeSize := e.u32(len(code), "code size of "+b.m.FullName())

	tiny := len(code) < tinyMaxCode && b.maxStack <= tinyMaxStack && len(b.locals) == 0 && len(b.clauses) == 0
	var off int
	if tiny {
		off = e.il.Len()
		e.il.U8(byte(len(code))<<2 | tinyFormat)
		e.il.Raw(code)
	} else {
		e.il.Align(4)
		off = e.il.Len()
		flags := uint16(fatFormat)
		if len(b.clauses) > 0 {
			flags |= fatMoreSects
		}
		if b.m.InitLocals || e.opts.InitLocals {
			flags |= fatInitLocals
		}
		e.il.U16(flags)
		e.il.U16(maxStack)
		e.il.U32(codeSize)
		e.il.U32(uint32(localSig))
		e.il.Raw(code)
		if len(b.clauses) > 0 {
			writeClauses(e.il, b.clauses)
		}
	}

	tok := metadata.MakeToken(metadata.TableMethodDef, b.rec.row)
	e.infos = append(e.infos, MethodInfo{
		Token:    tok,
		Name:     b.m.FullName(),
		RVA:      e.opts.ILBase + e.u32(off, "IL offset"),
		CodeSize: len(code),
		MaxStack: b.maxStack,
		Fat:      !tiny,
		Widened:  len(b.widen),
	})
	b.writeSymbols(tok, len(code))
	return off
}

func (b *bodyEmitter) writeSymbols(tok metadata.Token, size int) {
	sw := b.e.opts.Symbols
	if sw == nil {
		return
	}
	sw.SetMethod(tok)
	sw.OpenScope(0)
	for i, l := range b.locals {
		if l.ID.IsValid() && l.Name != "" {
			data, err := b.e.enc.Locals([]*ir.Local{l})
			b.e.check(err, "local "+l.Name)
			sw.DefineLocal(l.Name, i, data)
		}
	}
	for _, p := range b.points {
		sw.SequencePoint(b.e.document(p.pos.File), p.offset, p.pos.Line, p.pos.Column)
	}
	sw.CloseScope(size)
	sw.CloseMethod()
}

func (e *Emitter) document(path string) int {
	if doc, ok := e.docs[path]; ok {
		return doc
	}
	doc := e.opts.Symbols.DefineDocument(path)
	e.docs[path] = doc
	return doc
}

func isVoid(t *ir.Type) bool {
	return t == nil || (t.Code == ir.CodeVoid && t.Kind.IsNominal())
}
