package emit

import (
	"ilmerge/internal/bytesink"
	"ilmerge/internal/il"
	"ilmerge/internal/ir"
	"ilmerge/internal/metadata"
)

// Exception clause kinds.
const (
	clauseException = 0x0
	clauseFilter    = 0x1
	clauseFinally   = 0x2
	clauseFault     = 0x4
)

const (
	sectEHTable = 0x01
	sectFatEH   = 0x40

	smallClauseBytes = 12
	fatClauseBytes   = 24
)

type clause struct {
	kind           uint32
	tryOff, tryLen int
	hOff, hLen     int
	class          metadata.Token
	filter         int
}

func (b *bodyEmitter) tryStmt(d ir.TryData) {
	if d.Body == nil {
		b.fail("try without a body")
	}
	if d.Finally != nil && d.Fault != nil {
		b.fail("try with both finally and fault handlers")
	}
	outer := d.Finally
	kind := uint32(clauseFinally)
	if d.Fault != nil {
		outer, kind = d.Fault, clauseFault
	}
	if outer == nil && len(d.Catches) == 0 {
		b.fail("try without handlers")
	}
	if b.stack != 0 {
		b.fail("try entered with a non-empty stack")
	}

	end := b.newLabel()
	start := b.pos()
	b.tryDepth++
	switch {
	case outer == nil:
		b.protected(d.Body, d.Catches, end)
	case len(d.Catches) > 0:
		// try/catch/finally nests the catches inside the finally's region.
		inner := b.newLabel()
		b.protected(d.Body, d.Catches, inner)
		b.place(inner, false)
		if b.reachable {
			b.leave(end, false)
		}
	default:
		b.block(d.Body)
		if b.reachable {
			b.leave(end, false)
		}
	}
	if outer != nil {
		tryEnd := b.pos()
		b.stack, b.reachable = 0, true
		b.block(outer)
		if b.reachable {
			b.emit(il.Endfinally)
			b.reachable = false
		}
		b.clauses = append(b.clauses, clause{
			kind:   kind,
			tryOff: start, tryLen: tryEnd - start,
			hOff: tryEnd, hLen: b.pos() - tryEnd,
		})
	}
	b.tryDepth--
	b.place(end, false)
}

// protected emits a try block followed by its catch and filter handlers.
// Every path out of the region leaves to exit.
func (b *bodyEmitter) protected(body *ir.Block, catches []*ir.CatchClause, exit *label) {
	start := b.pos()
	b.block(body)
	if b.reachable {
		b.leave(exit, false)
	}
	tryEnd := b.pos()
	for _, c := range catches {
		if c == nil || c.Body == nil {
			b.fail("catch clause without a body")
		}
		cl := clause{kind: clauseException, tryOff: start, tryLen: tryEnd - start}
		if c.Filter != nil {
			cl.kind = clauseFilter
			cl.filter = b.pos()
			b.stack, b.reachable = 1, true
			b.maxStack = max(b.maxStack, 1)
			b.block(c.Filter)
			if b.reachable {
				b.fail("filter block does not end with endfilter")
			}
		} else {
			if c.Type == nil {
				b.fail("catch clause without a type")
			}
			cl.class = b.e.typeToken(c.Type)
		}
		cl.hOff = b.pos()
		b.stack, b.reachable = 1, true
		b.maxStack = max(b.maxStack, 1)
		if c.Variable != nil {
			b.storeLocal(b.slot(c.Variable))
		}
		b.block(c.Body)
		if b.reachable {
			b.leave(exit, false)
		}
		cl.hLen = b.pos() - cl.hOff
		b.clauses = append(b.clauses, cl)
	}
}

func smallClauses(cs []clause) bool {
	if 4+smallClauseBytes*len(cs) > 0xFF {
		return false
	}
	for _, c := range cs {
		if c.tryOff > 0xFFFF || c.tryLen > 0xFF || c.hOff > 0xFFFF || c.hLen > 0xFF {
			return false
		}
	}
	return true
}

// writeClauses appends the exception section after a fat body, in the
// small form when every clause fits.
func writeClauses(w *bytesink.Writer, cs []clause) {
	w.Align(4)
	if smallClauses(cs) {
		w.U8(sectEHTable)
		w.U8(uint8(4 + smallClauseBytes*len(cs)))
		w.U16(0)
		for _, c := range cs {
			w.U16(uint16(c.kind))
			w.U16(uint16(c.tryOff))
			w.U8(uint8(c.tryLen))
			w.U16(uint16(c.hOff))
			w.U8(uint8(c.hLen))
			w.U32(c.classOrFilter())
		}
		return
	}
	size := 4 + fatClauseBytes*len(cs)
	w.U8(sectEHTable | sectFatEH)
	w.U8(uint8(size))
	w.U8(uint8(size >> 8))
	w.U8(uint8(size >> 16))
	for _, c := range cs {
		w.U32(c.kind)
		w.U32(uint32(c.tryOff))
		w.U32(uint32(c.tryLen))
		w.U32(uint32(c.hOff))
		w.U32(uint32(c.hLen))
		w.U32(c.classOrFilter())
	}
}

func (c clause) classOrFilter() uint32 {
	if c.kind == clauseFilter {
		return uint32(c.filter)
	}
	return uint32(c.class)
}
