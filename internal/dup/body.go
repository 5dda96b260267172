package dup

import "ilmerge/internal/ir"

// blockRef returns the duplicate of b, creating an empty one on first
// reference. Branch targets use it so that a forward branch and the block
// definition converge on one node.
func (d *Duplicator) blockRef(b *ir.Block) *ir.Block {
	if b == nil {
		return nil
	}
	if out, ok := lookup[*ir.Block](d, b); ok {
		return out
	}
	out := &ir.Block{}
	d.record(b, out, &out.Node)
	d.stats.Blocks++
	return out
}

// blockDef returns the duplicate of b with its statements copied. The
// statements are copied once however many times the block is reached.
func (d *Duplicator) blockDef(b *ir.Block) *ir.Block {
	out := d.blockRef(b)
	if out == nil || d.blockFilled[out.ID] {
		return out
	}
	d.blockFilled[out.ID] = true
	src := b.Stmts
	out.Stmts = make([]*ir.Stmt, 0, len(src))
	for _, s := range src {
		out.Stmts = append(out.Stmts, d.VisitStmt(s))
	}
	return out
}

func (d *Duplicator) local(l *ir.Local) *ir.Local {
	if l == nil {
		return nil
	}
	if out, ok := lookup[*ir.Local](d, l); ok {
		return out
	}
	out := &ir.Local{Name: l.Name, Pinned: l.Pinned}
	d.record(l, out, &out.Node)
	d.stats.Locals++
	out.Type = d.VisitTypeReference(l.Type)
	return out
}

func (d *Duplicator) param(p *ir.Param) *ir.Param {
	if out, ok := lookup[*ir.Param](d, p); ok {
		return out
	}
	return p
}

// VisitStmt copies a statement. Statements have no identity and are copied
// at every occurrence.
func (d *Duplicator) VisitStmt(s *ir.Stmt) *ir.Stmt {
	if s == nil {
		return nil
	}
	out := &ir.Stmt{Kind: s.Kind, Source: s.Source}
	switch data := s.Data.(type) {
	case ir.ExprStmtData:
		out.Data = ir.ExprStmtData{Expr: d.VisitExpr(data.Expr)}
	case ir.AssignData:
		out.Data = ir.AssignData{Target: d.VisitExpr(data.Target), Value: d.VisitExpr(data.Value)}
	case ir.ReturnData:
		out.Data = ir.ReturnData{Value: d.VisitExpr(data.Value)}
	case ir.BranchData:
		data.Cond = d.VisitExpr(data.Cond)
		data.Target = d.blockRef(data.Target)
		out.Data = data
	case ir.SwitchData:
		targets := make([]*ir.Block, len(data.Targets))
		for i, b := range data.Targets {
			targets[i] = d.blockRef(b)
		}
		out.Data = ir.SwitchData{Value: d.VisitExpr(data.Value), Targets: targets}
	case ir.IfData:
		out.Data = ir.IfData{
			Cond: d.VisitExpr(data.Cond),
			Then: d.blockDef(data.Then),
			Else: d.blockDef(data.Else),
		}
	case ir.WhileData:
		out.Data = ir.WhileData{Cond: d.VisitExpr(data.Cond), Body: d.blockDef(data.Body)}
	case ir.BlockData:
		out.Data = ir.BlockData{Block: d.blockDef(data.Block)}
	case ir.TryData:
		td := ir.TryData{
			Body:    d.blockDef(data.Body),
			Finally: d.blockDef(data.Finally),
			Fault:   d.blockDef(data.Fault),
		}
		for _, c := range data.Catches {
			td.Catches = append(td.Catches, &ir.CatchClause{
				Type:     d.VisitTypeReference(c.Type),
				Variable: d.local(c.Variable),
				Filter:   d.blockDef(c.Filter),
				Body:     d.blockDef(c.Body),
			})
		}
		out.Data = td
	case ir.ThrowData:
		out.Data = ir.ThrowData{Value: d.VisitExpr(data.Value)}
	default:
		out.Data = s.Data
	}
	return out
}

// VisitExpr copies an expression tree, mapping every type, member, local
// and parameter it references.
func (d *Duplicator) VisitExpr(e *ir.Expr) *ir.Expr {
	if e == nil {
		return nil
	}
	d.stats.Exprs++
	out := &ir.Expr{Kind: e.Kind, Type: d.VisitTypeReference(e.Type)}
	switch data := e.Data.(type) {
	case ir.LiteralData:
		if t, ok := data.Value.(*ir.Type); ok {
			data.Value = d.VisitTypeReference(t)
		}
		out.Data = data
	case ir.ParamData:
		out.Data = ir.ParamData{Param: d.param(data.Param)}
	case ir.LocalData:
		out.Data = ir.LocalData{Local: d.local(data.Local)}
	case ir.BinaryData:
		data.Left = d.VisitExpr(data.Left)
		data.Right = d.VisitExpr(data.Right)
		out.Data = data
	case ir.UnaryData:
		data.Operand = d.VisitExpr(data.Operand)
		out.Data = data
	case ir.CallData:
		data.Method = d.VisitMethodReference(data.Method)
		data.Receiver = d.VisitExpr(data.Receiver)
		data.Args = d.exprList(data.Args)
		data.Constrained = d.VisitTypeReference(data.Constrained)
		out.Data = data
	case ir.NewData:
		out.Data = ir.NewData{
			Constructor: d.VisitMethodReference(data.Constructor),
			Args:        d.exprList(data.Args),
		}
	case ir.NewArrayData:
		out.Data = ir.NewArrayData{Sizes: d.exprList(data.Sizes), Init: d.exprList(data.Init)}
	case ir.FieldData:
		data.Field = d.VisitFieldReference(data.Field)
		data.Receiver = d.VisitExpr(data.Receiver)
		out.Data = data
	case ir.IndexData:
		out.Data = ir.IndexData{Array: d.VisitExpr(data.Array), Indices: d.exprList(data.Indices)}
	case ir.ArrayLengthData:
		out.Data = ir.ArrayLengthData{Array: d.VisitExpr(data.Array)}
	case ir.ConvertData:
		data.Value = d.VisitExpr(data.Value)
		out.Data = data
	case ir.TypeOpData:
		out.Data = ir.TypeOpData{Operand: d.VisitExpr(data.Operand), Target: d.VisitTypeReference(data.Target)}
	case ir.AddressOfData:
		data.Target = d.VisitExpr(data.Target)
		out.Data = data
	case ir.IndirectData:
		data.Address = d.VisitExpr(data.Address)
		out.Data = data
	case ir.MethodRefData:
		data.Method = d.VisitMethodReference(data.Method)
		data.Receiver = d.VisitExpr(data.Receiver)
		out.Data = data
	case ir.ConditionalData:
		out.Data = ir.ConditionalData{
			Cond: d.VisitExpr(data.Cond),
			Then: d.VisitExpr(data.Then),
			Else: d.VisitExpr(data.Else),
		}
	default:
		out.Data = e.Data
	}
	return out
}

func (d *Duplicator) exprList(es []*ir.Expr) []*ir.Expr {
	if es == nil {
		return nil
	}
	out := make([]*ir.Expr, len(es))
	for i, e := range es {
		out[i] = d.VisitExpr(e)
	}
	return out
}
