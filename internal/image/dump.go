package image

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"ilmerge/internal/il"
	"ilmerge/internal/metadata"
)

// DumpPart selects what Dump prints.
type DumpPart uint8

const (
	DumpSummary DumpPart = 1 << iota
	DumpTables
	DumpIL
	DumpAll = DumpSummary | DumpTables | DumpIL
)

// reader resolves heap references of a decoded image.
type reader struct {
	root   *metadata.Root
	stream *metadata.Stream
}

func newReader(img *Image) (*reader, error) {
	root, err := img.Root()
	if err != nil {
		return nil, err
	}
	stream, err := metadata.ReadStream(root.Streams[StreamTables])
	if err != nil {
		return nil, err
	}
	return &reader{root: root, stream: stream}, nil
}

func (r *reader) str(off uint32) string {
	s, err := metadata.StringAt(r.root.Streams[StreamStrings], off)
	if err != nil {
		return fmt.Sprintf("<bad string %#x>", off)
	}
	return s
}

func (r *reader) column(t metadata.Table, row uint32, name string) (uint32, bool) {
	if int(t) >= metadata.NumTables {
		return 0, false
	}
	i := metadata.SchemaOf(t).ColumnIndex(name)
	rec := r.stream.Row(t, row)
	if i < 0 || rec == nil {
		return 0, false
	}
	return rec[i], true
}

// Name renders a token operand for the disassembler.
func (r *reader) Name(tok uint32) string {
	t := metadata.Token(tok)
	if t.Table() == metadata.TableUserString {
		s, err := metadata.UserStringAt(r.root.Streams[StreamUserStrings], t.Row())
		if err != nil {
			return t.String()
		}
		return strconv.Quote(s)
	}
	name, ok := r.column(t.Table(), t.Row(), "Name")
	if !ok {
		return fmt.Sprintf("%#08x", tok)
	}
	full := r.str(name)
	if ns, ok := r.column(t.Table(), t.Row(), "Namespace"); ok && ns != 0 {
		full = r.str(ns) + "." + full
	}
	return fmt.Sprintf("%s /* %08X */", full, tok)
}

// Dump writes a readable listing of img.
func Dump(w io.Writer, img *Image, parts DumpPart) error {
	r, err := newReader(img)
	if err != nil {
		return err
	}
	if parts&DumpSummary != 0 {
		fmt.Fprintf(w, "image %s (%s)\n", img.Name, img.Kind)
		fmt.Fprintf(w, "  metadata %s, %d bytes\n", r.root.Version, len(img.Metadata))
		for _, name := range r.root.Order {
			fmt.Fprintf(w, "  stream %-8s %d bytes\n", name, len(r.root.Streams[name]))
		}
		fmt.Fprintf(w, "  il at %#x, %d bytes\n", img.IL.RVA, len(img.IL.Data))
		if len(img.Data.Data) > 0 {
			fmt.Fprintf(w, "  data at %#x, %d bytes\n", img.Data.RVA, len(img.Data.Data))
		}
		if len(img.Resources) > 0 {
			fmt.Fprintf(w, "  resources %d bytes\n", len(img.Resources))
		}
		if img.EntryPoint != 0 {
			fmt.Fprintf(w, "  entry point %s\n", r.Name(img.EntryPoint))
		}
	}
	if parts&DumpTables != 0 {
		dumpTables(w, r)
	}
	if parts&DumpIL != 0 {
		methods := append([]Method(nil), img.Methods...)
		sort.Slice(methods, func(i, j int) bool { return methods[i].Token < methods[j].Token })
		for _, m := range methods {
			code, err := img.Code(m.Token)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\n.method %s // %08X rva %#x maxstack %d\n", m.Name, m.Token, m.RVA, m.MaxStack)
			text, err := il.Disassemble(code, r.Name)
			io.WriteString(w, text)
			if err != nil {
				return fmt.Errorf("image: %s: %w", m.Name, err)
			}
		}
	}
	return nil
}

func dumpTables(w io.Writer, r *reader) {
	for t := range metadata.NumTables {
		rows := r.stream.Rows[t]
		if len(rows) == 0 {
			continue
		}
		table := metadata.Table(t)
		schema := metadata.SchemaOf(table)
		fmt.Fprintf(w, "\n%s (%d rows)\n", table, len(rows))
		for i, row := range rows {
			fmt.Fprintf(w, "  %4d:", i+1)
			for c, v := range row {
				col := schema.Columns[c]
				switch col.Kind {
				case metadata.ColString:
					fmt.Fprintf(w, " %s=%q", col.Name, r.str(v))
				case metadata.ColCoded:
					tok, err := col.Coded.Decode(v)
					if err != nil || tok.IsNil() {
						fmt.Fprintf(w, " %s=%#x", col.Name, v)
					} else {
						fmt.Fprintf(w, " %s=%s[%d]", col.Name, tok.Table(), tok.Row())
					}
				default:
					fmt.Fprintf(w, " %s=%#x", col.Name, v)
				}
			}
			io.WriteString(w, "\n")
		}
	}
}
