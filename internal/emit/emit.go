// Package emit turns one IR module into metadata tables, heaps and method
// bodies.
//
// A session runs three passes. The definition walk numbers every TypeDef,
// Field, MethodDef, Param, Property and Event row so that the list columns
// of the owning rows are contiguous ranges, and registers generic
// parameters. The visit pass encodes every signature, attribute and body;
// references to types and members outside the module get TypeRef,
// MemberRef, TypeSpec and MethodSpec rows on first use. The populate pass
// then writes the definition rows and the sorted tables from what the visit
// recorded; it never allocates a new reference.
//
// Malformed IR and unresolved references abort the session. The session
// never returns partially written bytes.
package emit

import (
	"fmt"
	"time"

	"fortio.org/safecast"

	"ilmerge/internal/bytesink"
	"ilmerge/internal/ir"
	"ilmerge/internal/metadata"
	"ilmerge/internal/sig"
	"ilmerge/internal/trace"
)

// Emitter is a single-threaded emission session. Every session owns its
// token allocator and fixup state; sessions must not be shared between
// goroutines.
type Emitter struct {
	mod  *ir.Module
	opts Options

	tables *metadata.Tables
	heaps  *metadata.Heaps
	enc    *sig.Encoder
	span   *trace.Span

	// definition rows, by node
	typeDefs      map[ir.NodeID]uint32
	fieldDefs     map[ir.NodeID]uint32
	methodDefs    map[ir.NodeID]uint32
	paramDefs     map[ir.NodeID]uint32
	propDefs      map[ir.NodeID]uint32
	eventDefs     map[ir.NodeID]uint32
	genericParams map[ir.NodeID]uint32

	types   []*typeRec
	fields  []*fieldRec
	methods []*methodRec
	params  []*paramRec
	props   []*propRec
	events  []*eventRec
	generic []*genericRec

	refs refTables

	attrs     []attrRow
	constants []constantRow
	marshals  []marshalRow
	security  []securityRow

	il        *bytesink.Writer
	data      *bytesink.Writer
	resources *bytesink.Writer

	entryPoint metadata.Token
	infos      []MethodInfo
	docs       map[string]int
	// frozen is set once populate starts; allocating a reference after
	// that point is an emitter bug.
	frozen bool
}

// New prepares a session for m.
func New(m *ir.Module, opts Options) *Emitter {
	opts = opts.withDefaults(m)
	e := &Emitter{
		mod:           m,
		opts:          opts,
		tables:        metadata.NewTables(),
		heaps:         metadata.NewHeaps(),
		typeDefs:      make(map[ir.NodeID]uint32, 64),
		fieldDefs:     make(map[ir.NodeID]uint32, 128),
		methodDefs:    make(map[ir.NodeID]uint32, 256),
		paramDefs:     make(map[ir.NodeID]uint32, 256),
		propDefs:      make(map[ir.NodeID]uint32, 32),
		eventDefs:     make(map[ir.NodeID]uint32, 8),
		genericParams: make(map[ir.NodeID]uint32, 16),
		refs:          newRefTables(),
		il:            bytesink.New(4096),
		data:          bytesink.New(0),
		resources:     bytesink.New(0),
		docs:          make(map[string]int),
	}
	e.enc = sig.NewEncoder(e, m, opts.CoreLibrary)
	return e
}

// Emit runs a complete session over m.
func Emit(m *ir.Module, opts Options) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil module", ErrMalformedIR)
	}
	return New(m, opts).Run()
}

// Run executes the three passes and returns the result. A session runs once.
func (e *Emitter) Run() (res *Result, err error) {
	e.span = trace.Begin(e.opts.Tracer, trace.ScopeModule, "emit:"+e.mod.Name, e.opts.ParentSpan)
	defer func() {
		detail := "ok"
		if err != nil {
			detail = err.Error()
		}
		e.span.End(detail)
	}()
	defer recoverFailure(&err)

	e.pass("define", e.defineAll)
	e.pass("visit", e.visitAll)
	e.pass("populate", e.populate)
	e.traceCounts()
	return e.result(), nil
}

func (e *Emitter) pass(name string, fn func()) {
	span := trace.Begin(e.opts.Tracer, trace.ScopePass, name, e.span.ID())
	defer span.End("")
	if e.opts.OnPass == nil {
		fn()
		return
	}
	e.opts.OnPass(PassEvent{Module: e.mod.Name, Pass: name})
	start := time.Now()
	fn()
	e.opts.OnPass(PassEvent{Module: e.mod.Name, Pass: name, Done: true, Elapsed: time.Since(start)})
}

func (e *Emitter) traceCounts() {
	rows := e.tables.RowCounts()
	counts := make(map[string]int, 8)
	for t, n := range rows {
		if n > 0 {
			counts[metadata.Table(t).String()] = int(n)
		}
	}
	counts["il"] = e.il.Len()
	trace.Point(e.opts.Tracer, trace.ScopeNode, "tables", e.span.ID(), counts)
}

func (e *Emitter) result() *Result {
	return &Result{
		Module:          e.mod,
		Kind:            e.mod.Kind,
		Tables:          e.tables,
		Heaps:           e.heaps,
		IL:              e.il.Bytes(),
		ILBase:          e.opts.ILBase,
		Data:            e.data.Bytes(),
		DataBase:        e.dataBase(),
		Resources:       e.resources.Bytes(),
		EntryPoint:      e.entryPoint,
		MetadataVersion: e.opts.MetadataVersion,
		Methods:         e.infos,
	}
}

func (e *Emitter) dataBase() uint32 {
	if e.opts.DataBase != 0 {
		return e.opts.DataBase
	}
	end := e.opts.ILBase + e.u32(e.il.Len(), "IL size")
	return (end + 7) &^ 7
}

// str interns a name in #Strings.
func (e *Emitter) str(s string) uint32 {
	return e.heaps.Strings.Add(s)
}

// blob interns b in #Blob.
func (e *Emitter) blob(b []byte) uint32 {
	off, err := e.heaps.Blobs.Add(b)
	e.check(err, "blob heap")
	return off
}

// coded encodes tok as a coded index of kind c.
func (e *Emitter) coded(c metadata.Coded, tok metadata.Token) uint32 {
	if tok.IsNil() {
		return 0
	}
	v, err := c.Encode(tok)
	if err != nil {
		e.failf(ErrMalformedIR, "%s: %v", c, err)
	}
	return v
}

func (e *Emitter) u32(n int, what string) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		e.failf(ErrMalformedIR, "%s: %v", what, err)
	}
	return v
}

// version splits v into the four Assembly and AssemblyRef version columns.
func (e *Emitter) version(v ir.Version, what string) (major, minor, build, revision uint32) {
	what += " version"
	return e.u32(int(v.Major), what), e.u32(int(v.Minor), what),
		e.u32(int(v.Build), what), e.u32(int(v.Revision), what)
}

func (e *Emitter) requireID(n ir.Identified, what string) ir.NodeID {
	id := n.NodeID()
	if !id.IsValid() {
		e.failf(ErrMalformedIR, "%s has no node id", what)
	}
	return id
}

func (e *Emitter) assertOpen(what string) {
	if e.frozen {
		panic("emit: " + what + " allocated after the visit pass")
	}
}

func typeName(t *ir.Type) string {
	if t == nil {
		return "<nil type>"
	}
	return t.FullName()
}
