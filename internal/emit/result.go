package emit

import (
	"ilmerge/internal/ir"
	"ilmerge/internal/metadata"
)

// Result is everything the image assembler needs to lay out one module.
type Result struct {
	Module *ir.Module
	Kind   ir.ModuleKind

	Tables *metadata.Tables
	Heaps  *metadata.Heaps
	// IL holds the method bodies, to be placed at ILBase.
	IL     []byte
	ILBase uint32
	// Data holds field initial data, to be placed at DataBase.
	Data     []byte
	DataBase uint32
	// Resources holds the embedded manifest resources, each prefixed with
	// its length.
	Resources []byte

	EntryPoint      metadata.Token
	MetadataVersion string
	Methods         []MethodInfo
}

// MethodInfo describes one emitted method body.
type MethodInfo struct {
	Token    metadata.Token
	Name     string
	RVA      uint32
	CodeSize int
	MaxStack int
	Fat      bool
	// Widened counts short branches re-emitted in their long form.
	Widened int
}

// Method returns the info recorded for tok.
func (r *Result) Method(tok metadata.Token) (MethodInfo, bool) {
	for _, m := range r.Methods {
		if m.Token == tok {
			return m, true
		}
	}
	return MethodInfo{}, false
}

// Body returns the code bytes of the method tok, without header and
// exception sections.
func (r *Result) Body(tok metadata.Token) []byte {
	info, ok := r.Method(tok)
	if !ok || info.RVA == 0 {
		return nil
	}
	off := int(info.RVA - r.ILBase)
	header := 1
	if info.Fat {
		header = fatHeaderBytes
	}
	start := off + header
	if start+info.CodeSize > len(r.IL) {
		return nil
	}
	return r.IL[start : start+info.CodeSize]
}
