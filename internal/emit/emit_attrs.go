package emit

import (
	"ilmerge/internal/ir"
	"ilmerge/internal/metadata"
	"ilmerge/internal/sig"
)

type attrRow struct {
	parent metadata.Token
	ctor   metadata.Token
	value  uint32
}

type constantRow struct {
	parent metadata.Token
	elem   byte
	value  uint32
}

type marshalRow struct {
	parent metadata.Token
	native uint32
}

type securityRow struct {
	parent metadata.Token
	action ir.SecurityAction
	set    uint32
}

func (e *Emitter) customAttributes(parent metadata.Token, attrs []*ir.Attribute) {
	for _, a := range attrs {
		if a == nil || a.Constructor == nil {
			e.failf(ErrMalformedIR, "attribute on %s has no constructor", parent)
		}
		if !a.Constructor.IsConstructor() {
			e.failf(ErrMalformedIR, "attribute on %s is bound to %s, not a constructor", parent, a.Constructor.FullName())
		}
		ctor := e.methodDefOrRef(a.Constructor)
		data, err := e.enc.Attribute(a)
		e.check(err, "attribute "+typeName(a.Type()))
		e.attrs = append(e.attrs, attrRow{parent: parent, ctor: ctor, value: e.blob(data)})
	}
}

func (e *Emitter) declSecurity(parent metadata.Token, sets []*ir.SecurityAttribute) {
	for _, s := range sets {
		if s == nil {
			e.failf(ErrMalformedIR, "nil permission set on %s", parent)
		}
		data, err := e.enc.Security(s)
		e.check(err, "permission set")
		e.security = append(e.security, securityRow{parent: parent, action: s.Action, set: e.blob(data)})
	}
}

func (e *Emitter) constant(parent metadata.Token, c *ir.Constant) {
	if c == nil {
		return
	}
	elem, data, err := sig.Constant(c)
	e.check(err, "constant")
	e.constants = append(e.constants, constantRow{parent: parent, elem: elem, value: e.blob(data)})
}

func (e *Emitter) marshal(parent metadata.Token, mi *ir.MarshalInfo) {
	if mi == nil {
		return
	}
	data, err := sig.Marshal(mi)
	e.check(err, "marshal descriptor")
	e.marshals = append(e.marshals, marshalRow{parent: parent, native: e.blob(data)})
}
