package ir

import "strings"

// SerializedName returns the reflection-style type name used inside custom
// attribute and security blobs. Types declared outside from and outside the
// core library are assembly qualified.
func SerializedName(t *Type, from *Module, coreLibrary string) string {
	var b strings.Builder
	writeSerializedName(&b, t, from, coreLibrary, true)
	return b.String()
}

func writeSerializedName(b *strings.Builder, t *Type, from *Module, core string, qualify bool) {
	switch t.Kind {
	case TypeArray:
		writeSerializedName(b, t.Element, from, core, false)
		if t.Rank == 0 {
			b.WriteString("[]")
		} else if t.Rank == 1 {
			b.WriteString("[*]")
		} else {
			b.WriteByte('[')
			b.WriteString(strings.Repeat(",", t.Rank-1))
			b.WriteByte(']')
		}
	case TypePointer:
		writeSerializedName(b, t.Element, from, core, false)
		b.WriteByte('*')
	case TypeReference:
		writeSerializedName(b, t.Element, from, core, false)
		b.WriteByte('&')
	case TypeOptModifier, TypeReqModifier:
		writeSerializedName(b, t.Element, from, core, qualify)
		return
	case TypeInstance:
		writeSerializedName(b, t.Template, from, core, false)
		b.WriteByte('[')
		for i, a := range t.TemplateArgs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('[')
			writeSerializedName(b, a, from, core, true)
			b.WriteByte(']')
		}
		b.WriteByte(']')
	default:
		b.WriteString(nominalName(t))
	}
	if !qualify {
		return
	}
	home := t
	for home.Kind.IsStructural() && home.Kind != TypeParam && home.Kind != TypeMethodParam {
		if home.Kind == TypeInstance {
			home = home.Template
		} else {
			home = home.Element
		}
	}
	mod := home.HomeModule()
	if mod == nil || mod == from || mod.Location == nil {
		return
	}
	if mod.Location.Kind == LocationAssembly && mod.Location.Name == core {
		return
	}
	if from != nil && from.Location != nil && mod.Location == from.Location {
		return
	}
	b.WriteString(", ")
	b.WriteString(mod.Location.String())
}

func nominalName(t *Type) string {
	if t.DeclaringType != nil && t.Kind.IsNominal() {
		return nominalName(t.DeclaringType) + "+" + t.Name
	}
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}
