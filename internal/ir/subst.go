package ir

// Subst replaces generic parameters by arguments. Constructed types are
// rebuilt only when a component changes; otherwise the original node is
// returned so untouched types keep their identity.
type Subst struct {
	Types      *Types
	TypeArgs   []*Type
	MethodArgs []*Type

	cache map[NodeID]*Type
}

// Type applies the substitution to t.
func (s *Subst) Type(t *Type) *Type {
	if s == nil || t == nil || (len(s.TypeArgs) == 0 && len(s.MethodArgs) == 0) {
		return t
	}
	if s.cache == nil {
		s.cache = make(map[NodeID]*Type, 16)
	} else if t.ID != NoNodeID {
		if cached, ok := s.cache[t.ID]; ok {
			return cached
		}
	}
	out := s.typeNoCache(t)
	if t.ID != NoNodeID {
		s.cache[t.ID] = out
	}
	return out
}

func (s *Subst) typeNoCache(t *Type) *Type {
	switch t.Kind {
	case TypeParam:
		if t.ParamIndex >= 0 && t.ParamIndex < len(s.TypeArgs) && s.TypeArgs[t.ParamIndex] != nil {
			return s.TypeArgs[t.ParamIndex]
		}
		return t
	case TypeMethodParam:
		if t.ParamIndex >= 0 && t.ParamIndex < len(s.MethodArgs) && s.MethodArgs[t.ParamIndex] != nil {
			return s.MethodArgs[t.ParamIndex]
		}
		return t
	case TypeArray, TypePointer, TypeReference:
		elem := s.Type(t.Element)
		if elem == t.Element {
			return t
		}
		return s.Types.Rebuild(t, elem, nil, nil)
	case TypeOptModifier, TypeReqModifier:
		elem := s.Type(t.Element)
		mod := s.Type(t.Modifier)
		if elem == t.Element && mod == t.Modifier {
			return t
		}
		return s.Types.Rebuild(t, elem, mod, nil)
	case TypeInstance:
		args := make([]*Type, len(t.TemplateArgs))
		changed := false
		for i, a := range t.TemplateArgs {
			args[i] = s.Type(a)
			changed = changed || args[i] != a
		}
		if !changed {
			return t
		}
		return s.Types.Instantiate(t.Template, args...)
	default:
		return t
	}
}

// Method maps a method reference through the substitution: members of
// generic instances are re-specialized on the substituted owner and generic
// method instances are re-instantiated with substituted arguments.
func (s *Subst) Method(m *Method) *Method {
	if s == nil || m == nil {
		return m
	}
	if m.IsGenericInstance() {
		base := s.Method(m.Template)
		args := make([]*Type, len(m.TemplateArgs))
		changed := base != m.Template
		for i, a := range m.TemplateArgs {
			args[i] = s.Type(a)
			changed = changed || args[i] != a
		}
		if !changed {
			return m
		}
		return s.Types.InstantiateMethod(base, args...)
	}
	if m.Unspecialized != nil {
		owner := s.Type(m.DeclaringType)
		if owner == m.DeclaringType {
			return m
		}
		return s.Types.SpecializeMethod(owner, m.Unspecialized)
	}
	return m
}

// Field maps a field reference through the substitution.
func (s *Subst) Field(f *Field) *Field {
	if s == nil || f == nil || f.Unspecialized == nil {
		return f
	}
	owner := s.Type(f.DeclaringType)
	if owner == f.DeclaringType {
		return f
	}
	return s.Types.SpecializeField(owner, f.Unspecialized)
}

// signature fills dst's return type and parameters from src.
func (s *Subst) signature(src, dst *Method) {
	dst.ReturnType = s.Type(src.ReturnType)
	dst.Params = make([]*Param, len(src.Params))
	for i, p := range src.Params {
		np := &Param{
			Name:            p.Name,
			Index:           p.Index,
			Type:            s.Type(p.Type),
			Flags:           p.Flags,
			DeclaringMethod: dst,
		}
		s.Types.arena.Register(&np.Node)
		dst.Params[i] = np
	}
}
