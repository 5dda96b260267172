package ir

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	StmtExpr StmtKind = iota
	StmtAssign
	StmtReturn
	// StmtBranch jumps to a block, optionally on a condition.
	StmtBranch
	StmtSwitch
	StmtIf
	StmtWhile
	// StmtBlock nests a block; the block is also a branch target.
	StmtBlock
	StmtTry
	StmtThrow
	StmtRethrow
	StmtNop
	// StmtEndFilter ends a filter region with the filter verdict.
	StmtEndFilter
)

func (k StmtKind) String() string {
	switch k {
	case StmtExpr:
		return "Expr"
	case StmtAssign:
		return "Assign"
	case StmtReturn:
		return "Return"
	case StmtBranch:
		return "Branch"
	case StmtSwitch:
		return "Switch"
	case StmtIf:
		return "If"
	case StmtWhile:
		return "While"
	case StmtBlock:
		return "Block"
	case StmtTry:
		return "Try"
	case StmtThrow:
		return "Throw"
	case StmtRethrow:
		return "Rethrow"
	case StmtNop:
		return "Nop"
	case StmtEndFilter:
		return "EndFilter"
	default:
		return "Unknown"
	}
}

// SourcePos is a source location attached to a statement for sequence points.
type SourcePos struct {
	File   string
	Line   int
	Column int
}

// IsValid reports whether the position names a file and line.
func (p SourcePos) IsValid() bool { return p.File != "" && p.Line > 0 }

// Stmt is a statement node.
type Stmt struct {
	Kind   StmtKind
	Source SourcePos
	Data   StmtData
}

// StmtData is the kind-specific payload of a statement.
type StmtData interface {
	stmtData()
}

// ExprStmtData holds data for StmtExpr. A non-void value is discarded.
type ExprStmtData struct {
	Expr *Expr
}

func (ExprStmtData) stmtData() {}

// AssignData holds data for StmtAssign. Target is a Local, Param, Field,
// Index or Indirect expression.
type AssignData struct {
	Target *Expr
	Value  *Expr
}

func (AssignData) stmtData() {}

// ReturnData holds data for StmtReturn.
type ReturnData struct {
	Value *Expr
}

func (ReturnData) stmtData() {}

// BranchData holds data for StmtBranch.
type BranchData struct {
	// Cond is nil for an unconditional branch.
	Cond   *Expr
	Target *Block
	// IfFalse branches when Cond is false.
	IfFalse bool
	// Short requests the one byte displacement form.
	Short bool
	// Leave exits a protected region.
	Leave bool
}

func (BranchData) stmtData() {}

// SwitchData holds data for StmtSwitch.
type SwitchData struct {
	Value   *Expr
	Targets []*Block
}

func (SwitchData) stmtData() {}

// IfData holds data for StmtIf.
type IfData struct {
	Cond *Expr
	Then *Block
	Else *Block
}

func (IfData) stmtData() {}

// WhileData holds data for StmtWhile.
type WhileData struct {
	Cond *Expr
	Body *Block
}

func (WhileData) stmtData() {}

// BlockData holds data for StmtBlock.
type BlockData struct {
	Block *Block
}

func (BlockData) stmtData() {}

// CatchClause is one handler of a try statement. A clause with a Filter is a
// filter handler; otherwise Type selects the caught exceptions.
type CatchClause struct {
	Type *Type
	// Variable receives the exception object; nil discards it.
	Variable *Local
	Filter   *Block
	Body     *Block
}

// TryData holds data for StmtTry.
type TryData struct {
	Body    *Block
	Catches []*CatchClause
	Finally *Block
	Fault   *Block
}

func (TryData) stmtData() {}

// ThrowData holds data for StmtThrow and StmtEndFilter.
type ThrowData struct {
	Value *Expr
}

func (ThrowData) stmtData() {}

// NopData holds data for StmtNop and StmtRethrow.
type NopData struct{}

func (NopData) stmtData() {}

// Block is a statement list. Blocks have identity so that branches can
// target them.
type Block struct {
	Node

	Stmts []*Stmt
}

// Add appends statements and returns b.
func (b *Block) Add(stmts ...*Stmt) *Block {
	b.Stmts = append(b.Stmts, stmts...)
	return b
}

// ExprS wraps an expression statement.
func ExprS(e *Expr) *Stmt {
	return &Stmt{Kind: StmtExpr, Data: ExprStmtData{Expr: e}}
}

// Assign builds an assignment.
func Assign(target, value *Expr) *Stmt {
	return &Stmt{Kind: StmtAssign, Data: AssignData{Target: target, Value: value}}
}

// Return builds a return; value may be nil.
func Return(value *Expr) *Stmt {
	return &Stmt{Kind: StmtReturn, Data: ReturnData{Value: value}}
}

// Goto builds an unconditional branch.
func Goto(target *Block) *Stmt {
	return &Stmt{Kind: StmtBranch, Data: BranchData{Target: target}}
}

// BranchIf builds a branch taken when cond is true.
func BranchIf(cond *Expr, target *Block) *Stmt {
	return &Stmt{Kind: StmtBranch, Data: BranchData{Cond: cond, Target: target}}
}

// Nested wraps a block as a statement.
func Nested(b *Block) *Stmt {
	return &Stmt{Kind: StmtBlock, Data: BlockData{Block: b}}
}

// Walk visits every statement of b depth first, including nested blocks,
// handler blocks and branch-free control flow bodies. Returning false from
// fn stops descent into that statement.
func (b *Block) Walk(fn func(*Stmt) bool) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		if !fn(s) {
			continue
		}
		for _, inner := range s.Blocks() {
			inner.Walk(fn)
		}
	}
}

// Blocks returns the blocks nested directly in s.
func (s *Stmt) Blocks() []*Block {
	switch d := s.Data.(type) {
	case IfData:
		return nonNilBlocks(d.Then, d.Else)
	case WhileData:
		return nonNilBlocks(d.Body)
	case BlockData:
		return nonNilBlocks(d.Block)
	case TryData:
		out := nonNilBlocks(d.Body)
		for _, c := range d.Catches {
			out = append(out, nonNilBlocks(c.Filter, c.Body)...)
		}
		return append(out, nonNilBlocks(d.Finally, d.Fault)...)
	}
	return nil
}

func nonNilBlocks(bs ...*Block) []*Block {
	out := make([]*Block, 0, len(bs))
	for _, b := range bs {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}
