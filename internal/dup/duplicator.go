// Package dup deep-copies parts of an IR graph.
//
// A session first discovers the set of types in scope and allocates a stub
// for every scoped type and member, then fills the stubs. Because every stub
// exists before any cross reference is resolved, cycles (a type with a field
// of its own type, sibling types referencing each other) need no special
// handling: the identity map already answers.
//
// References that leave the scope are passed through unchanged. Constructed
// types are rebuilt through the program's interner only when a component
// changed. A member reference that cannot be resolved degrades to the
// original node.
package dup

import (
	"fmt"

	"ilmerge/internal/diag"
	"ilmerge/internal/ir"
	"ilmerge/internal/trace"
)

// Stats counts the nodes a session created.
type Stats struct {
	Types      int
	Methods    int
	Fields     int
	Properties int
	Events     int
	Params     int
	Locals     int
	Blocks     int
	Exprs      int
	Unresolved int
}

// Duplicator is a single-threaded duplication session. Sessions must not be
// shared between goroutines.
type Duplicator struct {
	arena      *ir.Arena
	types      *ir.Types
	target     *ir.Module
	targetType *ir.Type
	opts       Options

	// dupFor maps an original NodeID to its duplicate.
	dupFor map[ir.NodeID]ir.Identified
	// scope is the set of original types being duplicated.
	scope map[ir.NodeID]*ir.Type
	// isDup marks nodes created by this session.
	isDup map[ir.NodeID]struct{}

	pending     []filler
	filled      map[ir.NodeID]bool
	blockFilled map[ir.NodeID]bool
	targetNames map[string]struct{}

	stats Stats
}

// filler is a stub awaiting phase two.
type filler struct {
	orig ir.Identified
	fill func()
}

// New starts a session that grafts duplicates into target, or into
// targetType as nested types and members when targetType is not nil.
func New(types *ir.Types, target *ir.Module, targetType *ir.Type, opts Options) *Duplicator {
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	return &Duplicator{
		arena:       types.Arena(),
		types:       types,
		target:      target,
		targetType:  targetType,
		opts:        opts,
		dupFor:      make(map[ir.NodeID]ir.Identified, 256),
		scope:       make(map[ir.NodeID]*ir.Type, 32),
		isDup:       make(map[ir.NodeID]struct{}, 256),
		filled:      make(map[ir.NodeID]bool, 256),
		blockFilled: make(map[ir.NodeID]bool, 64),
	}
}

// Options returns the session options.
func (d *Duplicator) Options() Options { return d.opts }

// Stats returns node counts so far.
func (d *Duplicator) Stats() Stats { return d.stats }

// DuplicateFor returns the duplicate recorded for the original node id.
func (d *Duplicator) DuplicateFor(id ir.NodeID) (ir.Identified, bool) {
	n, ok := d.dupFor[id]
	return n, ok
}

// InScope reports whether t is one of the types being duplicated.
func (d *Duplicator) InScope(t *ir.Type) bool {
	if t == nil {
		return false
	}
	_, ok := d.scope[t.ID]
	return ok
}

// IsDuplicate reports whether n was created by this session.
func (d *Duplicator) IsDuplicate(n ir.Identified) bool {
	_, ok := d.isDup[n.NodeID()]
	return ok
}

// record stamps a fresh id on the duplicate's node and maps orig to dup.
func (d *Duplicator) record(orig, dup ir.Identified, node *ir.Node) {
	node.ID = d.arena.Next()
	d.isDup[node.ID] = struct{}{}
	if orig != nil && orig.NodeID().IsValid() {
		d.dupFor[orig.NodeID()] = dup
	}
}

func lookup[T ir.Identified](d *Duplicator, orig ir.Identified) (T, bool) {
	var zero T
	if orig == nil || !orig.NodeID().IsValid() {
		return zero, false
	}
	n, ok := d.dupFor[orig.NodeID()]
	if !ok {
		return zero, false
	}
	v, ok := n.(T)
	return v, ok
}

// DuplicateModule clones a whole module into a fresh module and returns it.
func (d *Duplicator) DuplicateModule(m *ir.Module) *ir.Module {
	out := &ir.Module{
		Name: m.Name,
		Kind: m.Kind,
	}
	d.record(m, out, &out.Node)
	if m.Assembly != nil {
		asm := *m.Assembly
		out.Assembly = &asm
	}
	if m.Location != nil {
		loc := *m.Location
		d.record(nil, &loc, &loc.Node)
		out.Location = &loc
	}
	if d.target == nil {
		d.target = out
	}

	span := trace.Begin(d.opts.Tracer, trace.ScopeModule, "duplicate:"+m.Name, d.opts.ParentSpan)
	d.FindTypesToBeDuplicated(m)
	d.Fill()

	out.Attributes = d.attributes(m.Attributes)
	if out.Assembly != nil {
		out.Assembly.Attributes = d.attributes(m.Assembly.Attributes)
		out.Assembly.Security = d.security(m.Assembly.Security)
	}
	out.EntryPoint = d.VisitMethodReference(m.EntryPoint)
	for _, r := range m.Resources {
		nr := *r
		d.record(r, &nr, &nr.Node)
		out.Resources = append(out.Resources, &nr)
	}
	d.traceStats(span)
	return out
}

// DuplicateType clones t and everything nested in it.
func (d *Duplicator) DuplicateType(t *ir.Type) *ir.Type {
	if !d.InScope(t) {
		d.FindTypesToBeDuplicated(t)
	}
	d.Fill()
	out, _ := lookup[*ir.Type](d, t)
	return out
}

// DuplicateTypes clones several root types in one session, so references
// between them resolve to the duplicates.
func (d *Duplicator) DuplicateTypes(roots []*ir.Type) []*ir.Type {
	span := trace.Begin(d.opts.Tracer, trace.ScopeModule, "duplicate:types", d.opts.ParentSpan)
	for _, t := range roots {
		if !d.InScope(t) {
			d.FindTypesToBeDuplicated(t)
		}
	}
	d.Fill()
	out := make([]*ir.Type, 0, len(roots))
	for _, t := range roots {
		if dt, ok := lookup[*ir.Type](d, t); ok {
			out = append(out, dt)
		}
	}
	d.traceStats(span)
	return out
}

// DuplicateMethod clones m. When the declaring type is in scope the stub
// already exists; otherwise the clone is attached to the target type, or to
// m's own declaring type when there is none.
func (d *Duplicator) DuplicateMethod(m *ir.Method) *ir.Method {
	if out, ok := lookup[*ir.Method](d, m); ok {
		d.Fill()
		return out
	}
	owner := d.targetType
	if owner == nil {
		owner = m.DeclaringType
	}
	out := d.stubMethod(m, owner)
	if d.targetType != nil {
		d.targetType.Methods = append(d.targetType.Methods, out)
	}
	d.Fill()
	return out
}

// DuplicateField clones f, attaching it like DuplicateMethod does.
func (d *Duplicator) DuplicateField(f *ir.Field) *ir.Field {
	if out, ok := lookup[*ir.Field](d, f); ok {
		d.Fill()
		return out
	}
	owner := d.targetType
	if owner == nil {
		owner = f.DeclaringType
	}
	out := d.stubField(f, owner)
	if d.targetType != nil {
		d.targetType.Fields = append(d.targetType.Fields, out)
	}
	d.Fill()
	return out
}

// DuplicateBlock clones a statement block. Locals and parameters that were
// not duplicated by this session are duplicated on first use (locals) or
// kept (parameters).
func (d *Duplicator) DuplicateBlock(b *ir.Block) *ir.Block {
	return d.blockDef(b)
}

// Fill runs phase two for every stub created so far. It is idempotent.
func (d *Duplicator) Fill() {
	for len(d.pending) > 0 {
		next := d.pending[0]
		d.pending = d.pending[1:]
		id := next.orig.NodeID()
		if d.filled[id] {
			continue
		}
		d.filled[id] = true
		next.fill()
	}
}

func (d *Duplicator) unresolved(subject, msg string) {
	d.stats.Unresolved++
	if d.opts.Reporter == nil {
		return
	}
	diag.ReportInfo(d.opts.Reporter, diag.DupUnresolvedMember, subject, msg).Emit()
}

func (d *Duplicator) traceStats(span *trace.Span) {
	s := d.stats
	trace.Point(d.opts.Tracer, trace.ScopeNode, "duplicated", span.ID(), map[string]int{
		"types":      s.Types,
		"methods":    s.Methods,
		"fields":     s.Fields,
		"blocks":     s.Blocks,
		"exprs":      s.Exprs,
		"unresolved": s.Unresolved,
	})
	span.End(fmt.Sprintf("%d types", s.Types))
}
