// Package image lays out the output of an emission session: the metadata
// root with its five streams, the IL, field data and resource sections. The
// PE container itself is written by a PEWriter.
package image

import (
	"fmt"

	"ilmerge/internal/emit"
	"ilmerge/internal/metadata"
)

// Stream names, in the order they appear in the metadata root.
const (
	StreamTables      = "#~"
	StreamStrings     = "#Strings"
	StreamUserStrings = "#US"
	StreamGUID        = "#GUID"
	StreamBlob        = "#Blob"
)

const (
	tinyHeaderBytes = 1
	fatHeaderBytes  = 12
)

// Section is a block of bytes placed at a fixed RVA.
type Section struct {
	Name string `msgpack:"name"`
	RVA  uint32 `msgpack:"rva"`
	Data []byte `msgpack:"data"`
}

// Method is the part of emit.MethodInfo kept in an image.
type Method struct {
	Token    uint32 `msgpack:"tok"`
	Name     string `msgpack:"name"`
	RVA      uint32 `msgpack:"rva"`
	CodeSize int    `msgpack:"size"`
	MaxStack int    `msgpack:"stack"`
	Fat      bool   `msgpack:"fat"`
}

// Image is an assembled module, ready for a PE writer.
type Image struct {
	Name       string `msgpack:"name"`
	Kind       string `msgpack:"kind"`
	EntryPoint uint32 `msgpack:"entry"`
	// Metadata is the metadata root followed by its streams.
	Metadata  []byte    `msgpack:"metadata"`
	IL        Section   `msgpack:"il"`
	Data      Section   `msgpack:"data"`
	Resources []byte    `msgpack:"resources"`
	Methods   []Method  `msgpack:"methods"`
	Stats     Stats     `msgpack:"stats"`
	Extra     []Section `msgpack:"extra,omitempty"`
}

// Stats summarizes an image for build reports.
type Stats struct {
	Rows    map[string]int `msgpack:"rows"`
	Strings int            `msgpack:"strings"`
	Blobs   int            `msgpack:"blobs"`
	US      int            `msgpack:"us"`
	GUIDs   int            `msgpack:"guids"`
}

// Size is the total byte size of the sections.
func (img *Image) Size() int {
	n := len(img.Metadata) + len(img.IL.Data) + len(img.Data.Data) + len(img.Resources)
	for _, s := range img.Extra {
		n += len(s.Data)
	}
	return n
}

// Assemble serializes the tables and heaps of res into a metadata root and
// collects the other sections.
func Assemble(res *emit.Result) (*Image, error) {
	if res == nil || res.Tables == nil || res.Heaps == nil {
		return nil, fmt.Errorf("image: incomplete emission result")
	}
	tables, err := metadata.WriteStream(res.Tables, res.Heaps)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	h := res.Heaps
	root := metadata.WriteRoot(res.MetadataVersion, []metadata.StreamData{
		{Name: StreamTables, Data: tables},
		{Name: StreamStrings, Data: h.Strings.Bytes()},
		{Name: StreamUserStrings, Data: h.UserStrings.Bytes()},
		{Name: StreamGUID, Data: h.GUIDs.Bytes()},
		{Name: StreamBlob, Data: h.Blobs.Bytes()},
	})

	img := &Image{
		Kind:       res.Kind.String(),
		EntryPoint: uint32(res.EntryPoint),
		Metadata:   root,
		IL:         Section{Name: ".il", RVA: res.ILBase, Data: res.IL},
		Data:       Section{Name: ".data", RVA: res.DataBase, Data: res.Data},
		Resources:  res.Resources,
		Stats: Stats{
			Rows:    make(map[string]int, 16),
			Strings: h.Strings.Len(),
			Blobs:   h.Blobs.Len(),
			US:      h.UserStrings.Len(),
			GUIDs:   h.GUIDs.Len(),
		},
	}
	if res.Module != nil {
		img.Name = res.Module.Name
	}
	for t, n := range res.Tables.RowCounts() {
		if n > 0 {
			img.Stats.Rows[metadata.Table(t).String()] = int(n)
		}
	}
	img.Methods = make([]Method, 0, len(res.Methods))
	for _, m := range res.Methods {
		img.Methods = append(img.Methods, Method{
			Token:    uint32(m.Token),
			Name:     m.Name,
			RVA:      m.RVA,
			CodeSize: m.CodeSize,
			MaxStack: m.MaxStack,
			Fat:      m.Fat,
		})
	}
	return img, nil
}

// Root parses the metadata root of img.
func (img *Image) Root() (*metadata.Root, error) {
	return metadata.ReadRoot(img.Metadata)
}

// Tables decodes the #~ stream of img.
func (img *Image) Tables() (*metadata.Stream, error) {
	root, err := img.Root()
	if err != nil {
		return nil, err
	}
	data, ok := root.Streams[StreamTables]
	if !ok {
		return nil, fmt.Errorf("image: %s has no %s stream", img.Name, StreamTables)
	}
	return metadata.ReadStream(data)
}

// Code returns the code bytes of the method tok, without header and
// exception sections.
func (img *Image) Code(tok uint32) ([]byte, error) {
	for _, m := range img.Methods {
		if m.Token != tok {
			continue
		}
		header := tinyHeaderBytes
		if m.Fat {
			header = fatHeaderBytes
		}
		start := int(m.RVA-img.IL.RVA) + header
		end := start + m.CodeSize
		if start < 0 || end > len(img.IL.Data) {
			return nil, fmt.Errorf("image: body of %s lies outside the IL section", m.Name)
		}
		return img.IL.Data[start:end], nil
	}
	return nil, fmt.Errorf("image: no body for token %#08x", tok)
}
