package il

import (
	"fmt"
	"math"
	"strings"

	"ilmerge/internal/bytesink"
)

// Instruction is one decoded instruction.
type Instruction struct {
	Offset int
	Op     Opcode
	// Operand holds integer immediates, variable indices and tokens.
	Operand int64
	Float   float64
	// Targets are absolute branch and switch target offsets.
	Targets []int
	Size    int
}

// Decode splits a method body's code into instructions.
func Decode(code []byte) ([]Instruction, error) {
	r := bytesink.NewReader(code)
	var out []Instruction
	for r.Remaining() > 0 {
		in, err := decodeOne(r)
		if err != nil {
			return out, fmt.Errorf("il: offset %#x: %w", r.Position(), err)
		}
		out = append(out, in)
	}
	return out, nil
}

func decodeOne(r *bytesink.Reader) (Instruction, error) {
	in := Instruction{Offset: r.Position()}
	b, err := r.U8()
	if err != nil {
		return in, err
	}
	in.Op = Opcode(b)
	if b == Prefix {
		b2, err := r.U8()
		if err != nil {
			return in, err
		}
		in.Op = Opcode(Prefix)<<8 | Opcode(b2)
	}
	info, ok := Lookup(in.Op)
	if !ok {
		return in, fmt.Errorf("unknown opcode %s", in.Op)
	}
	switch info.Operand {
	case ShortInlineI:
		v, err := r.U8()
		if err != nil {
			return in, err
		}
		in.Operand = int64(int8(v))
	case ShortInlineVar:
		v, err := r.U8()
		if err != nil {
			return in, err
		}
		in.Operand = int64(v)
	case InlineVar:
		v, err := r.U16()
		if err != nil {
			return in, err
		}
		in.Operand = int64(v)
	case InlineI:
		v, err := r.U32()
		if err != nil {
			return in, err
		}
		in.Operand = int64(int32(v))
	case InlineI8:
		v, err := r.U64()
		if err != nil {
			return in, err
		}
		in.Operand = int64(v)
	case ShortInlineR:
		v, err := r.F32()
		if err != nil {
			return in, err
		}
		in.Float = float64(v)
	case InlineR:
		if in.Float, err = r.F64(); err != nil {
			return in, err
		}
	case ShortInlineBrTarget:
		v, err := r.U8()
		if err != nil {
			return in, err
		}
		in.Targets = []int{r.Position() + int(int8(v))}
	case InlineBrTarget:
		v, err := r.U32()
		if err != nil {
			return in, err
		}
		in.Targets = []int{r.Position() + int(int32(v))}
	case InlineSwitch:
		n, err := r.U32()
		if err != nil {
			return in, err
		}
		if int64(n)*4 > int64(r.Remaining()) {
			return in, fmt.Errorf("switch with %d targets overruns the body", n)
		}
		disp := make([]int32, n)
		for i := range disp {
			v, err := r.U32()
			if err != nil {
				return in, err
			}
			disp[i] = int32(v)
		}
		end := r.Position()
		in.Targets = make([]int, n)
		for i, d := range disp {
			in.Targets[i] = end + int(d)
		}
	default:
		if info.Operand.IsToken() {
			v, err := r.U32()
			if err != nil {
				return in, err
			}
			in.Operand = int64(v)
		}
	}
	in.Size = r.Position() - in.Offset
	return in, nil
}

// TokenNamer renders a metadata token operand.
type TokenNamer func(tok uint32) string

// Format renders the instruction in ildasm style.
func (in Instruction) Format(name TokenNamer) string {
	info, _ := Lookup(in.Op)
	var b strings.Builder
	fmt.Fprintf(&b, "IL_%04x: %s", in.Offset, in.Op)
	if info == nil {
		return b.String()
	}
	switch info.Operand {
	case InlineNone:
	case ShortInlineR, InlineR:
		switch {
		case math.IsNaN(in.Float), math.IsInf(in.Float, 0):
			fmt.Fprintf(&b, " %v", in.Float)
		default:
			fmt.Fprintf(&b, " %g", in.Float)
		}
	case ShortInlineBrTarget, InlineBrTarget, InlineSwitch:
		b.WriteString(" ")
		if info.Operand == InlineSwitch {
			b.WriteString("(")
		}
		for i, t := range in.Targets {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "IL_%04x", t)
		}
		if info.Operand == InlineSwitch {
			b.WriteString(")")
		}
	default:
		if info.Operand.IsToken() {
			tok := uint32(in.Operand)
			if name != nil {
				fmt.Fprintf(&b, " %s", name(tok))
			} else {
				fmt.Fprintf(&b, " 0x%08X", tok)
			}
			break
		}
		fmt.Fprintf(&b, " %d", in.Operand)
	}
	return b.String()
}

// Disassemble decodes code and renders one instruction per line.
func Disassemble(code []byte, name TokenNamer) (string, error) {
	ins, err := Decode(code)
	var b strings.Builder
	for _, in := range ins {
		b.WriteString(in.Format(name))
		b.WriteByte('\n')
	}
	return b.String(), err
}
