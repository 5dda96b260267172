package emit

import (
	"ilmerge/internal/il"
	"ilmerge/internal/ir"
)

func (b *bodyEmitter) block(blk *ir.Block) {
	if blk == nil {
		return
	}
	l := b.blockLabel(blk)
	if l.pos >= 0 {
		b.fail("block %s is emitted twice", blk.ID)
	}
	// A block can be the target of a later backward branch, so it is
	// treated as reachable.
	b.place(l, true)
	for _, s := range blk.Stmts {
		b.stmt(s)
	}
}

func (b *bodyEmitter) stmt(s *ir.Stmt) {
	if s == nil {
		b.fail("nil statement")
	}
	b.sequencePoint(s.Source)
	switch d := s.Data.(type) {
	case ir.ExprStmtData:
		before := b.stack
		b.expr(d.Expr)
		for b.stack > before {
			b.emit(il.Pop)
		}
	case ir.AssignData:
		b.assign(d)
	case ir.ReturnData:
		b.returnStmt(d.Value)
	case ir.BranchData:
		b.branchStmt(d)
	case ir.SwitchData:
		b.switchStmt(d)
	case ir.IfData:
		b.ifStmt(d)
	case ir.WhileData:
		b.whileStmt(d)
	case ir.BlockData:
		b.block(d.Block)
	case ir.TryData:
		b.tryStmt(d)
	case ir.ThrowData:
		b.expr(d.Value)
		if s.Kind == ir.StmtEndFilter {
			b.emit(il.Endfilter)
		} else {
			b.emit(il.Throw)
		}
		b.reachable = false
	case ir.NopData:
		if s.Kind == ir.StmtRethrow {
			b.emit(il.Rethrow)
			b.reachable = false
		} else {
			b.emit(il.Nop)
		}
	default:
		b.fail("unsupported statement %s", s.Kind)
	}
}

func (b *bodyEmitter) returnStmt(value *ir.Expr) {
	void := isVoid(b.m.ReturnType)
	switch {
	case value != nil && void:
		b.fail("return with a value from a void method")
	case value == nil && !void:
		b.fail("return without a value")
	}
	if value != nil {
		b.expr(value)
	}
	if b.tryDepth == 0 {
		b.ret0()
		return
	}
	if value != nil {
		b.storeLocal(b.returnSlot())
	}
	b.leave(b.returnLabel(), false)
}

func (b *bodyEmitter) branchStmt(d ir.BranchData) {
	l := b.blockLabel(d.Target)
	switch {
	case d.Leave:
		if d.Cond != nil {
			b.fail("conditional leave")
		}
		b.leave(l, d.Short)
	case d.Cond == nil:
		b.jump(l, d.Short)
	default:
		b.condBranch(d.Cond, !d.IfFalse, l, d.Short)
	}
}

// condBranch branches to l when cond evaluates to whenTrue. A comparison
// tested for truth fuses into a compare-and-branch instruction.
func (b *bodyEmitter) condBranch(cond *ir.Expr, whenTrue bool, l *label, hint bool) {
	if bin, ok := cond.Data.(ir.BinaryData); ok && whenTrue && bin.Op.IsComparison() {
		b.expr(bin.Left)
		b.expr(bin.Right)
		b.branch(compareBranch(bin), l, hint)
		return
	}
	b.expr(cond)
	if whenTrue {
		b.branch(il.Brtrue, l, hint)
	} else {
		b.branch(il.Brfalse, l, hint)
	}
}

func compareBranch(d ir.BinaryData) il.Opcode {
	switch d.Op {
	case ir.OpEq:
		return il.Beq
	case ir.OpNe:
		return il.BneUn
	case ir.OpLt:
		if d.Unsigned {
			return il.BltUn
		}
		return il.Blt
	case ir.OpLe:
		if d.Unsigned {
			return il.BleUn
		}
		return il.Ble
	case ir.OpGt:
		if d.Unsigned {
			return il.BgtUn
		}
		return il.Bgt
	default:
		if d.Unsigned {
			return il.BgeUn
		}
		return il.Bge
	}
}

func (b *bodyEmitter) switchStmt(d ir.SwitchData) {
	b.expr(d.Value)
	b.emit(il.Switch)
	b.w.U32(b.e.u32(len(d.Targets), "switch targets"))
	table := b.pos()
	end := table + 4*len(d.Targets)
	for i, t := range d.Targets {
		l := b.blockLabel(t)
		if l.pos >= 0 {
			b.w.I32(int32(l.pos - end))
		} else {
			b.w.U32(0)
			l.fixups = &fixup{at: table + 4*i, end: end, ordinal: -1, next: l.fixups}
		}
		b.target(l)
	}
}

func (b *bodyEmitter) ifStmt(d ir.IfData) {
	els := b.newLabel()
	b.condBranch(d.Cond, false, els, false)
	b.block(d.Then)
	if d.Else == nil {
		b.place(els, false)
		return
	}
	end := b.newLabel()
	if b.reachable {
		b.jump(end, false)
	}
	b.place(els, false)
	b.block(d.Else)
	b.place(end, false)
}

func (b *bodyEmitter) whileStmt(d ir.WhileData) {
	top, cond := b.newLabel(), b.newLabel()
	b.jump(cond, false)
	b.place(top, true)
	b.block(d.Body)
	b.place(cond, false)
	b.condBranch(d.Cond, true, top, false)
}
