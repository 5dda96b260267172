// Package debugmap records the debug information of an emission session
// and stores it as a msgpack file next to the image bundle.
package debugmap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"ilmerge/internal/metadata"
)

// schemaVersion changes whenever the encoded layout changes.
const schemaVersion uint16 = 1

// ErrSchema reports a map written by an incompatible version.
var ErrSchema = errors.New("debugmap: unsupported schema")

// Map is a SymbolWriter that keeps everything in memory.
type Map struct {
	Schema    uint16    `msgpack:"schema"`
	Documents []string  `msgpack:"docs"`
	Methods   []*Method `msgpack:"methods"`

	cur *Method
}

// Method holds the debug records of one method body.
type Method struct {
	Token  uint32  `msgpack:"tok"`
	Points []Point `msgpack:"points"`
	Scopes []Scope `msgpack:"scopes"`
	Locals []Local `msgpack:"locals"`
	// open is the stack of scopes not yet closed.
	open []int
}

// Point maps an IL offset to a source position.
type Point struct {
	Doc    int `msgpack:"d"`
	Offset int `msgpack:"o"`
	Line   int `msgpack:"l"`
	Column int `msgpack:"c"`
}

// Scope is a lexical IL range.
type Scope struct {
	Start int `msgpack:"s"`
	End   int `msgpack:"e"`
	Depth int `msgpack:"n"`
}

// Local names a local slot.
type Local struct {
	Name      string `msgpack:"name"`
	Slot      int    `msgpack:"slot"`
	Signature []byte `msgpack:"sig"`
}

// New returns an empty map.
func New() *Map {
	return &Map{Schema: schemaVersion}
}

func (m *Map) DefineDocument(path string) int {
	for i, d := range m.Documents {
		if d == path {
			return i
		}
	}
	m.Documents = append(m.Documents, path)
	return len(m.Documents) - 1
}

func (m *Map) SetMethod(tok metadata.Token) {
	m.cur = &Method{Token: uint32(tok)}
	m.Methods = append(m.Methods, m.cur)
}

func (m *Map) SequencePoint(doc, offset, line, column int) {
	if m.cur == nil {
		return
	}
	m.cur.Points = append(m.cur.Points, Point{Doc: doc, Offset: offset, Line: line, Column: column})
}

func (m *Map) OpenScope(offset int) {
	if m.cur == nil {
		return
	}
	m.cur.Scopes = append(m.cur.Scopes, Scope{Start: offset, End: -1, Depth: len(m.cur.open)})
	m.cur.open = append(m.cur.open, len(m.cur.Scopes)-1)
}

func (m *Map) CloseScope(offset int) {
	if m.cur == nil || len(m.cur.open) == 0 {
		return
	}
	last := len(m.cur.open) - 1
	m.cur.Scopes[m.cur.open[last]].End = offset
	m.cur.open = m.cur.open[:last]
}

func (m *Map) DefineLocal(name string, slot int, signature []byte) {
	if m.cur == nil {
		return
	}
	m.cur.Locals = append(m.cur.Locals, Local{Name: name, Slot: slot, Signature: signature})
}

func (m *Map) CloseMethod() {
	m.cur = nil
}

// Method returns the records of tok.
func (m *Map) Method(tok metadata.Token) *Method {
	for _, mm := range m.Methods {
		if mm.Token == uint32(tok) {
			return mm
		}
	}
	return nil
}

// Lookup returns the source position of the last sequence point at or
// before offset in the method tok.
func (m *Map) Lookup(tok metadata.Token, offset int) (file string, line, column int, ok bool) {
	mm := m.Method(tok)
	if mm == nil {
		return "", 0, 0, false
	}
	var best *Point
	for i := range mm.Points {
		p := &mm.Points[i]
		if p.Offset <= offset && (best == nil || p.Offset >= best.Offset) {
			best = p
		}
	}
	if best == nil || best.Doc < 0 || best.Doc >= len(m.Documents) {
		return "", 0, 0, false
	}
	return m.Documents[best.Doc], best.Line, best.Column, true
}

// Encode writes the map as msgpack.
func (m *Map) Encode(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(m)
}

// Decode reads a map written by Encode.
func Decode(r io.Reader) (*Map, error) {
	var m Map
	if err := msgpack.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("debugmap: %w", err)
	}
	if m.Schema != schemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrSchema, m.Schema)
	}
	return &m, nil
}

// WriteFile stores the map at path, replacing it atomically.
func (m *Map) WriteFile(path string) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".debugmap-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if err = m.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadFile loads a map stored by WriteFile.
func ReadFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
