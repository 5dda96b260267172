package sig

import (
	"fmt"

	"fortio.org/safecast"

	"ilmerge/internal/bytesink"
	"ilmerge/internal/ir"
	"ilmerge/internal/metadata"
)

// TokenSource hands out the TypeDef or TypeRef token of a nominal type.
// Implementations may allocate the row on first use.
type TokenSource interface {
	TypeDefOrRef(t *ir.Type) metadata.Token
}

// Encoder builds signature blobs for one module. Type names written into
// custom attribute blobs are qualified relative to that module.
type Encoder struct {
	src    TokenSource
	module *ir.Module
	core   string
}

// NewEncoder returns an encoder resolving nominal types through src.
// coreLibrary is the assembly whose types need no qualification.
func NewEncoder(src TokenSource, module *ir.Module, coreLibrary string) *Encoder {
	return &Encoder{src: src, module: module, core: coreLibrary}
}

// blob is one encoding in progress. The first error sticks and every
// later write is dropped.
type blob struct {
	enc *Encoder
	w   *bytesink.Writer
	err error
}

func (e *Encoder) start() *blob {
	return &blob{enc: e, w: bytesink.New(32)}
}

func (b *blob) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
	}
}

func (b *blob) setErr(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

func (b *blob) finish() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.w.Bytes(), nil
}

func (b *blob) u8(v byte) {
	if b.err == nil {
		b.w.U8(v)
	}
}

func (b *blob) uint(v uint32) {
	if b.err == nil {
		b.setErr(b.w.CompressedUint(v))
	}
}

func (b *blob) count(n int) {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		b.setErr(fmt.Errorf("sig: count %d: %w", n, err))
		return
	}
	b.uint(v)
}

func (b *blob) typeDefOrRef(t *ir.Type) {
	if b.err != nil {
		return
	}
	if t == nil || !t.Kind.IsNominal() {
		b.fail("%v is not a declared type", t)
		return
	}
	v, err := metadata.TypeDefOrRef.Encode(b.enc.src.TypeDefOrRef(t))
	if err != nil {
		b.setErr(fmt.Errorf("sig: %s: %w", t, err))
		return
	}
	b.uint(v)
}

func (b *blob) typ(t *ir.Type) {
	if b.err != nil {
		return
	}
	if t == nil {
		b.fail("nil type")
		return
	}
	switch t.Kind {
	case ir.TypeOptModifier, ir.TypeReqModifier:
		if t.Kind == ir.TypeReqModifier {
			b.u8(ElemCModReqd)
		} else {
			b.u8(ElemCModOpt)
		}
		b.typeDefOrRef(t.Modifier)
		b.typ(t.Element)
	case ir.TypePointer:
		b.u8(ElemPtr)
		b.typ(t.Element)
	case ir.TypeReference:
		b.u8(ElemByRef)
		b.typ(t.Element)
	case ir.TypeArray:
		b.array(t)
	case ir.TypeInstance:
		b.u8(ElemGenericInst)
		if t.Template.IsValueType() {
			b.u8(ElemValueType)
		} else {
			b.u8(ElemClass)
		}
		b.typeDefOrRef(t.Template)
		b.count(len(t.TemplateArgs))
		for _, a := range t.TemplateArgs {
			b.typ(a)
		}
	case ir.TypeParam:
		b.u8(ElemVar)
		b.count(t.ParamIndex)
	case ir.TypeMethodParam:
		b.u8(ElemMVar)
		b.count(t.ParamIndex)
	default:
		if !t.Kind.IsNominal() {
			b.fail("type %s of kind %s has no signature encoding", t, t.Kind)
			return
		}
		if el := ElementOf(t.Code); el != 0 {
			b.u8(el)
			return
		}
		if t.IsValueType() {
			b.u8(ElemValueType)
		} else {
			b.u8(ElemClass)
		}
		b.typeDefOrRef(t)
	}
}

func (b *blob) array(t *ir.Type) {
	if t.Rank == 0 {
		b.u8(ElemSZArray)
		b.typ(t.Element)
		return
	}
	b.u8(ElemArray)
	b.typ(t.Element)
	b.count(t.Rank)
	b.count(len(t.Sizes))
	for _, s := range t.Sizes {
		b.count(s)
	}
	b.count(len(t.LowerBounds))
	for _, lb := range t.LowerBounds {
		v, err := safecast.Conv[int32](lb)
		if err != nil {
			b.setErr(fmt.Errorf("sig: lower bound %d: %w", lb, err))
			return
		}
		if b.err == nil {
			b.setErr(b.w.CompressedInt(v))
		}
	}
}

// callConv takes HASTHIS and GENERIC from the method shape and the rest
// from CallConv.
func callConv(m *ir.Method) byte {
	cc := m.CallConv & (ir.CallKindMask | ir.CallExplicitThis)
	if m.HasThis() {
		cc |= ir.CallHasThis
	}
	if len(m.TemplateParams) > 0 {
		cc |= ir.CallGeneric
	}
	return byte(cc)
}

func (b *blob) method(m *ir.Method) {
	if m == nil {
		b.fail("nil method")
		return
	}
	cc := callConv(m)
	b.u8(cc)
	if cc&byte(ir.CallGeneric) != 0 {
		b.count(len(m.TemplateParams))
	}
	b.count(len(m.Params))
	b.typ(m.ReturnType)
	for _, p := range m.Params {
		b.typ(p.Type)
	}
}

// Type encodes t as a TypeSpec signature.
func (e *Encoder) Type(t *ir.Type) ([]byte, error) {
	b := e.start()
	b.typ(t)
	return b.finish()
}

// Method encodes a MethodDefSig or MethodRefSig for m. Members of generic
// instances must be passed as their unspecialized definition.
func (e *Encoder) Method(m *ir.Method) ([]byte, error) {
	b := e.start()
	b.method(m)
	return b.finish()
}

// Field encodes a FieldSig.
func (e *Encoder) Field(f *ir.Field) ([]byte, error) {
	b := e.start()
	if f == nil {
		b.fail("nil field")
		return b.finish()
	}
	b.u8(KindField)
	b.typ(f.Type)
	return b.finish()
}

// Property encodes a PropertySig.
func (e *Encoder) Property(p *ir.Property) ([]byte, error) {
	b := e.start()
	if p == nil {
		b.fail("nil property")
		return b.finish()
	}
	kind := KindProperty
	if p.HasThis {
		kind |= KindHasThis
	}
	b.u8(kind)
	b.count(len(p.Params))
	b.typ(p.Type)
	for _, pt := range p.Params {
		b.typ(pt)
	}
	return b.finish()
}

// Locals encodes a LocalVarSig in slot order.
func (e *Encoder) Locals(locals []*ir.Local) ([]byte, error) {
	b := e.start()
	b.u8(KindLocal)
	b.count(len(locals))
	for _, l := range locals {
		if l == nil {
			b.fail("nil local")
			break
		}
		if l.Pinned {
			b.u8(ElemPinned)
		}
		b.typ(l.Type)
	}
	return b.finish()
}

// MethodSpec encodes the instantiation of a generic method.
func (e *Encoder) MethodSpec(args []*ir.Type) ([]byte, error) {
	b := e.start()
	if len(args) == 0 {
		b.fail("method instantiation without arguments")
		return b.finish()
	}
	b.u8(KindMethodSpec)
	b.count(len(args))
	for _, a := range args {
		b.typ(a)
	}
	return b.finish()
}
