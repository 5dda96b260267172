package emit

import "ilmerge/internal/metadata"

// SymbolWriter receives debug information while bodies are emitted. The
// emitter produces identical metadata and IL with or without one.
//
// Calls for one method are bracketed by SetMethod and CloseMethod. Offsets
// are final code offsets within the method body.
type SymbolWriter interface {
	// DefineDocument registers a source file and returns its handle.
	DefineDocument(path string) int
	SetMethod(tok metadata.Token)
	SequencePoint(doc, offset, line, column int)
	OpenScope(offset int)
	CloseScope(offset int)
	DefineLocal(name string, slot int, signature []byte)
	CloseMethod()
}
