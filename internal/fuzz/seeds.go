package fuzztests

import (
	"bytes"

	"ilmerge/internal/emit"
	"ilmerge/internal/image"
	"ilmerge/internal/ir"
	"ilmerge/internal/irfile"
	"ilmerge/internal/irtest"
)

const maxFuzzInput = 64 << 10

// Seeds are the valid encodings of one sample program.
type Seeds struct {
	Snapshot []byte
	Bundles  [][]byte
	Metadata []byte
	Tables   []byte
	Bodies   [][]byte
}

// BuildSeeds emits a sample module and collects every encoding of it.
func BuildSeeds() (*Seeds, error) {
	w := irtest.NewWorld("Seed")
	publicStatic := ir.MethodFlags(ir.AccessPublic) | ir.MethodStatic
	ops := w.Class(w.App, "Seed", "Ops", nil)
	add := w.Method(ops, "Add", publicStatic, w.Core.Int32, w.Core.Int32, w.Core.Int32)
	w.Body(add, ir.Return(ir.Binary(ir.OpAdd, nil, ir.ParamRef(add.Params[0]), ir.ParamRef(add.Params[1]))))
	greet := w.Method(ops, "Greet", publicStatic, w.Core.String)
	w.Body(greet, ir.Return(w.Str("hello")))

	var s Seeds
	var buf bytes.Buffer
	if err := irfile.Encode(&buf, w.Program); err != nil {
		return nil, err
	}
	s.Snapshot = bytes.Clone(buf.Bytes())

	res, err := emit.Emit(w.App, emit.Options{})
	if err != nil {
		return nil, err
	}
	img, err := image.Assemble(res)
	if err != nil {
		return nil, err
	}
	for _, compress := range []bool{false, true} {
		buf.Reset()
		if err := image.WriteBundle(&buf, img, compress); err != nil {
			return nil, err
		}
		s.Bundles = append(s.Bundles, bytes.Clone(buf.Bytes()))
	}
	s.Metadata = img.Metadata
	root, err := img.Root()
	if err != nil {
		return nil, err
	}
	s.Tables = root.Streams[image.StreamTables]
	for _, m := range img.Methods {
		code, err := img.Code(m.Token)
		if err != nil {
			return nil, err
		}
		s.Bodies = append(s.Bodies, code)
	}
	return &s, nil
}

// withTruncations returns data followed by a few prefixes of it.
func withTruncations(data []byte) [][]byte {
	out := [][]byte{data}
	for _, n := range []int{len(data) / 2, len(data) / 4, 7} {
		if n > 0 && n < len(data) {
			out = append(out, data[:n])
		}
	}
	return out
}

func clip(input []byte) []byte {
	if len(input) > maxFuzzInput {
		input = input[:maxFuzzInput]
	}
	return append([]byte(nil), input...)
}
