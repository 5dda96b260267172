package ir

import (
	"fmt"
	"io"
	"strings"
)

// Printer dumps IR to text.
type Printer struct {
	w      io.Writer
	indent int
	err    error
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Dump writes the module to w.
func Dump(w io.Writer, m *Module) error {
	return NewPrinter(w).PrintModule(m)
}

// PrintModule prints a module and all of its types.
func (p *Printer) PrintModule(m *Module) error {
	p.printf("module %s (%s)", m.Name, m.Kind)
	if m.Assembly != nil {
		p.printf(" assembly %s %s", m.Assembly.Name, m.Assembly.Version)
	}
	p.printf("\n")
	if m.EntryPoint != nil {
		p.printf("  entrypoint %s\n", m.EntryPoint.FullName())
	}
	for _, r := range m.Resources {
		if r.LinkedFile != "" {
			p.printf("  resource %s -> %s\n", r.Name, r.LinkedFile)
		} else {
			p.printf("  resource %s (%d bytes)\n", r.Name, len(r.Data))
		}
	}
	for _, t := range m.Types {
		p.printf("\n")
		p.PrintType(t)
	}
	return p.err
}

// PrintType prints a declared type with its members and nested types.
func (p *Printer) PrintType(t *Type) {
	p.printIndent()
	p.printf("%s %s", t.Kind, t.FullName())
	if len(t.TemplateParams) > 0 {
		p.printf("<%s>", joinTypes(t.TemplateParams))
	}
	if t.BaseType != nil {
		p.printf(" : %s", t.BaseType)
	}
	if len(t.Interfaces) > 0 {
		p.printf(" implements %s", joinTypes(t.Interfaces))
	}
	p.printf(" %s\n", t.ID)
	p.indent++
	for _, a := range t.Attributes {
		p.printIndent()
		p.printf("[%s]\n", a.Type())
	}
	for _, f := range t.Fields {
		p.printIndent()
		p.printf("field %s %s", f.Type, f.Name)
		if f.Default != nil {
			p.printf(" = %v", f.Default.Value)
		}
		p.printf("\n")
	}
	for _, m := range t.Methods {
		p.PrintMethod(m)
	}
	for _, prop := range t.Properties {
		p.printIndent()
		p.printf("property %s %s\n", prop.Type, prop.Name)
	}
	for _, e := range t.Events {
		p.printIndent()
		p.printf("event %s %s\n", e.Type, e.Name)
	}
	for _, n := range t.NestedTypes {
		p.PrintType(n)
	}
	p.indent--
}

// PrintMethod prints a method signature and body.
func (p *Printer) PrintMethod(m *Method) {
	p.printIndent()
	if m.IsStatic() {
		p.printf("static ")
	}
	p.printf("method %s %s", m.ReturnType, m.Name)
	if len(m.TemplateParams) > 0 {
		p.printf("<%s>", joinTypes(m.TemplateParams))
	}
	p.printf("(")
	for i, prm := range m.Params {
		if i > 0 {
			p.printf(", ")
		}
		p.printf("%s %s", prm.Type, prm.Name)
	}
	p.printf(")")
	if m.Body == nil {
		p.printf("\n")
		return
	}
	p.printf(" ")
	p.printBlock(m.Body)
}

func (p *Printer) printBlock(b *Block) {
	p.printf("{ %s\n", b.ID)
	p.indent++
	for _, s := range b.Stmts {
		p.printStmt(s)
	}
	p.indent--
	p.printIndent()
	p.printf("}\n")
}

func (p *Printer) printStmt(s *Stmt) {
	p.printIndent()
	switch d := s.Data.(type) {
	case ExprStmtData:
		p.printf("%s\n", ExprString(d.Expr))
	case AssignData:
		p.printf("%s = %s\n", ExprString(d.Target), ExprString(d.Value))
	case ReturnData:
		if d.Value == nil {
			p.printf("return\n")
		} else {
			p.printf("return %s\n", ExprString(d.Value))
		}
	case BranchData:
		op := "goto"
		if d.Leave {
			op = "leave"
		}
		if d.Cond != nil {
			neg := ""
			if d.IfFalse {
				neg = "!"
			}
			p.printf("if %s(%s) ", neg, ExprString(d.Cond))
		}
		p.printf("%s %s\n", op, d.Target.ID)
	case SwitchData:
		ids := make([]string, len(d.Targets))
		for i, t := range d.Targets {
			ids[i] = t.ID.String()
		}
		p.printf("switch %s [%s]\n", ExprString(d.Value), strings.Join(ids, ", "))
	case IfData:
		p.printf("if %s ", ExprString(d.Cond))
		p.printBlock(d.Then)
		if d.Else != nil {
			p.printIndent()
			p.printf("else ")
			p.printBlock(d.Else)
		}
	case WhileData:
		p.printf("while %s ", ExprString(d.Cond))
		p.printBlock(d.Body)
	case BlockData:
		p.printBlock(d.Block)
	case TryData:
		p.printf("try ")
		p.printBlock(d.Body)
		for _, c := range d.Catches {
			p.printIndent()
			if c.Filter != nil {
				p.printf("filter ")
				p.printBlock(c.Filter)
				p.printIndent()
			} else {
				p.printf("catch %s ", c.Type)
			}
			p.printBlock(c.Body)
		}
		if d.Finally != nil {
			p.printIndent()
			p.printf("finally ")
			p.printBlock(d.Finally)
		}
		if d.Fault != nil {
			p.printIndent()
			p.printf("fault ")
			p.printBlock(d.Fault)
		}
	case ThrowData:
		p.printf("%s %s\n", strings.ToLower(s.Kind.String()), ExprString(d.Value))
	default:
		p.printf("%s\n", strings.ToLower(s.Kind.String()))
	}
}

func (p *Printer) printIndent() {
	p.printf("%s", strings.Repeat("  ", p.indent))
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func joinTypes(ts []*Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.FullName()
	}
	return strings.Join(parts, ", ")
}

// ExprString renders an expression on one line.
func ExprString(e *Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch d := e.Data.(type) {
	case LiteralData:
		if s, ok := d.Value.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		if d.Value == nil {
			return "null"
		}
		return fmt.Sprint(d.Value)
	case ParamData:
		return d.Param.Name
	case LocalData:
		if d.Local.Name != "" {
			return d.Local.Name
		}
		return "local" + d.Local.ID.String()
	case ThisData:
		return "this"
	case BinaryData:
		return "(" + ExprString(d.Left) + " " + d.Op.String() + " " + ExprString(d.Right) + ")"
	case UnaryData:
		return d.Op.String() + ExprString(d.Operand)
	case CallData:
		recv := ""
		if d.Receiver != nil {
			recv = ExprString(d.Receiver) + "."
		}
		return recv + d.Method.FullName() + "(" + exprList(d.Args) + ")"
	case NewData:
		return "new " + d.Constructor.DeclaringType.FullName() + "(" + exprList(d.Args) + ")"
	case NewArrayData:
		return "new " + e.Type.FullName() + "(" + exprList(d.Sizes) + "){" + exprList(d.Init) + "}"
	case FieldData:
		if d.Receiver != nil {
			return ExprString(d.Receiver) + "." + d.Field.Name
		}
		return d.Field.DeclaringType.FullName() + "." + d.Field.Name
	case IndexData:
		return ExprString(d.Array) + "[" + exprList(d.Indices) + "]"
	case ArrayLengthData:
		return "len(" + ExprString(d.Array) + ")"
	case ConvertData:
		return "conv." + d.To.String() + "(" + ExprString(d.Value) + ")"
	case TypeOpData:
		name := strings.ToLower(e.Kind.String())
		if d.Operand == nil {
			return name + "<" + d.Target.FullName() + ">"
		}
		return name + "<" + d.Target.FullName() + ">(" + ExprString(d.Operand) + ")"
	case AddressOfData:
		return "&" + ExprString(d.Target)
	case IndirectData:
		return "*" + ExprString(d.Address)
	case MethodRefData:
		return strings.ToLower(e.Kind.String()) + " " + d.Method.FullName()
	case ConditionalData:
		return "(" + ExprString(d.Cond) + " ? " + ExprString(d.Then) + " : " + ExprString(d.Else) + ")"
	}
	return strings.ToLower(e.Kind.String())
}

func exprList(es []*Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = ExprString(e)
	}
	return strings.Join(parts, ", ")
}
