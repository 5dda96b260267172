package sig

import (
	"fmt"
	"strings"

	"ilmerge/internal/bytesink"
	"ilmerge/internal/metadata"
)

// Namer renders a TypeDef, TypeRef or TypeSpec token.
type Namer func(tok metadata.Token) string

var elementNames = map[byte]string{
	ElemVoid:       "void",
	ElemBoolean:    "bool",
	ElemChar:       "char",
	ElemI1:         "int8",
	ElemU1:         "uint8",
	ElemI2:         "int16",
	ElemU2:         "uint16",
	ElemI4:         "int32",
	ElemU4:         "uint32",
	ElemI8:         "int64",
	ElemU8:         "uint64",
	ElemR4:         "float32",
	ElemR8:         "float64",
	ElemString:     "string",
	ElemTypedByRef: "typedref",
	ElemI:          "native int",
	ElemU:          "native uint",
	ElemObject:     "object",
}

type formatter struct {
	r    *bytesink.Reader
	name Namer
}

// Format renders a signature blob as text. Field, property, local,
// method-spec and method signatures are told apart by their first byte.
func Format(data []byte, name Namer) (string, error) {
	if name == nil {
		name = func(tok metadata.Token) string { return tok.String() }
	}
	f := &formatter{r: bytesink.NewReader(data), name: name}
	lead, err := f.r.U8()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	switch {
	case lead == KindField:
		err = f.typ(&b)
	case lead&^KindHasThis == KindProperty:
		if lead&KindHasThis != 0 {
			b.WriteString("instance ")
		}
		err = f.params(&b)
	case lead == KindLocal:
		b.WriteString("locals(")
		err = f.list(&b)
		b.WriteByte(')')
	case lead == KindMethodSpec:
		b.WriteByte('<')
		err = f.list(&b)
		b.WriteByte('>')
	default:
		err = f.method(&b, lead)
	}
	if err != nil {
		return "", fmt.Errorf("sig: format: %w", err)
	}
	return b.String(), nil
}

// FormatType renders a TypeSpec blob.
func FormatType(data []byte, name Namer) (string, error) {
	if name == nil {
		name = func(tok metadata.Token) string { return tok.String() }
	}
	f := &formatter{r: bytesink.NewReader(data), name: name}
	var b strings.Builder
	if err := f.typ(&b); err != nil {
		return "", fmt.Errorf("sig: format: %w", err)
	}
	return b.String(), nil
}

func (f *formatter) method(b *strings.Builder, cc byte) error {
	if cc&KindHasThis != 0 {
		b.WriteString("instance ")
	}
	if cc&0x10 != 0 {
		n, err := f.r.CompressedUint()
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "<%d> ", n)
	}
	return f.params(b)
}

// params reads a count, a return or property type and that many types.
func (f *formatter) params(b *strings.Builder) error {
	n, err := f.r.CompressedUint()
	if err != nil {
		return err
	}
	if err := f.typ(b); err != nil {
		return err
	}
	b.WriteByte('(')
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := f.typ(b); err != nil {
			return err
		}
	}
	b.WriteByte(')')
	return nil
}

func (f *formatter) list(b *strings.Builder) error {
	n, err := f.r.CompressedUint()
	if err != nil {
		return err
	}
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := f.typ(b); err != nil {
			return err
		}
	}
	return nil
}

func (f *formatter) token(b *strings.Builder) error {
	v, err := f.r.CompressedUint()
	if err != nil {
		return err
	}
	tok, err := metadata.TypeDefOrRef.Decode(v)
	if err != nil {
		return err
	}
	b.WriteString(f.name(tok))
	return nil
}

func (f *formatter) typ(b *strings.Builder) error {
	el, err := f.r.U8()
	if err != nil {
		return err
	}
	if name, ok := elementNames[el]; ok {
		b.WriteString(name)
		return nil
	}
	switch el {
	case ElemPinned:
		b.WriteString("pinned ")
		return f.typ(b)
	case ElemCModReqd, ElemCModOpt:
		kind := "modopt"
		if el == ElemCModReqd {
			kind = "modreq"
		}
		b.WriteString(kind + "(")
		if err := f.token(b); err != nil {
			return err
		}
		b.WriteString(") ")
		return f.typ(b)
	case ElemPtr, ElemByRef:
		if err := f.typ(b); err != nil {
			return err
		}
		if el == ElemPtr {
			b.WriteByte('*')
		} else {
			b.WriteByte('&')
		}
		return nil
	case ElemClass, ElemValueType:
		if el == ElemValueType {
			b.WriteString("valuetype ")
		}
		return f.token(b)
	case ElemVar, ElemMVar:
		n, err := f.r.CompressedUint()
		if err != nil {
			return err
		}
		if el == ElemVar {
			fmt.Fprintf(b, "!%d", n)
		} else {
			fmt.Fprintf(b, "!!%d", n)
		}
		return nil
	case ElemSZArray:
		if err := f.typ(b); err != nil {
			return err
		}
		b.WriteString("[]")
		return nil
	case ElemArray:
		return f.array(b)
	case ElemGenericInst:
		if err := f.typ(b); err != nil {
			return err
		}
		b.WriteByte('<')
		if err := f.list(b); err != nil {
			return err
		}
		b.WriteByte('>')
		return nil
	}
	return fmt.Errorf("unknown element type %#02x", el)
}

func (f *formatter) array(b *strings.Builder) error {
	if err := f.typ(b); err != nil {
		return err
	}
	rank, err := f.r.CompressedUint()
	if err != nil {
		return err
	}
	for _, signed := range []bool{false, true} {
		n, err := f.r.CompressedUint()
		if err != nil {
			return err
		}
		for range n {
			if signed {
				_, err = f.r.CompressedInt()
			} else {
				_, err = f.r.CompressedUint()
			}
			if err != nil {
				return err
			}
		}
	}
	b.WriteByte('[')
	b.WriteString(strings.Repeat(",", int(max(rank, 1)-1)))
	b.WriteByte(']')
	return nil
}
