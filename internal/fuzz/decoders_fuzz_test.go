package fuzztests

import (
	"bytes"
	"io"
	"testing"

	"ilmerge/internal/il"
	"ilmerge/internal/image"
	"ilmerge/internal/ir"
	"ilmerge/internal/irfile"
	"ilmerge/internal/metadata"
)

func seeds(f *testing.F) *Seeds {
	f.Helper()
	s, err := BuildSeeds()
	if err != nil {
		f.Fatalf("build seeds: %v", err)
	}
	return s
}

func addAll(f *testing.F, inputs ...[]byte) {
	for _, in := range inputs {
		for _, seed := range withTruncations(in) {
			f.Add(seed)
		}
	}
}

func FuzzSnapshotDecode(f *testing.F) {
	addAll(f, seeds(f).Snapshot)
	f.Fuzz(func(t *testing.T, input []byte) {
		mods, err := irfile.Decode(bytes.NewReader(clip(input)), ir.NewProgram())
		if err != nil {
			return
		}
		for _, m := range mods {
			if err := ir.Dump(io.Discard, m); err != nil {
				t.Fatalf("dump decoded module %s: %v", m.Name, err)
			}
		}
	})
}

func FuzzBundleRead(f *testing.F) {
	addAll(f, seeds(f).Bundles...)
	f.Fuzz(func(t *testing.T, input []byte) {
		img, err := image.ReadBundle(bytes.NewReader(clip(input)))
		if err != nil {
			return
		}
		_ = image.Dump(io.Discard, img, image.DumpAll)
	})
}

func FuzzMetadataRoot(f *testing.F) {
	addAll(f, seeds(f).Metadata)
	f.Fuzz(func(t *testing.T, input []byte) {
		root, err := metadata.ReadRoot(clip(input))
		if err != nil {
			return
		}
		for _, name := range root.Order {
			if _, ok := root.Streams[name]; !ok {
				t.Fatalf("stream %q listed but not kept", name)
			}
		}
	})
}

func FuzzTableStream(f *testing.F) {
	addAll(f, seeds(f).Tables)
	f.Fuzz(func(t *testing.T, input []byte) {
		_, _ = metadata.ReadStream(clip(input))
	})
}

func FuzzILDecode(f *testing.F) {
	addAll(f, seeds(f).Bodies...)
	namer := func(tok uint32) string { return "" }
	f.Fuzz(func(t *testing.T, input []byte) {
		ins, err := il.Decode(clip(input))
		if err == nil && len(input) > 0 && len(ins) == 0 {
			t.Fatalf("decoded %d bytes into no instructions", len(input))
		}
		_, _ = il.Disassemble(clip(input), namer)
	})
}
