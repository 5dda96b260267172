package emit

import (
	"crypto/sha1" //nolint:gosec // File hash values are SHA-1 by definition.
	"fmt"
	"path/filepath"

	"ilmerge/internal/diag"
	"ilmerge/internal/ir"
	"ilmerge/internal/metadata"
)

const (
	resourcePublic  = 0x0001
	resourcePrivate = 0x0002

	fileContainsNoMetadata = 0x0001
)

func (e *Emitter) visitResources() {
	files := make(map[string]metadata.Token, 2)
	for _, r := range e.mod.Resources {
		if r == nil || r.Name == "" {
			e.failf(ErrMalformedIR, "module %s lists an unnamed resource", e.mod.Name)
		}
		flags := uint32(resourcePrivate)
		if r.Public {
			flags = resourcePublic
		}
		if r.LinkedFile == "" {
			e.resources.Align(8)
			off := e.u32(e.resources.Len(), "resource offset")
			e.resources.U32(e.u32(len(r.Data), "resource "+r.Name))
			e.resources.Raw(r.Data)
			e.tables.Add(metadata.TableManifestResource, off, flags, e.str(r.Name), 0)
			continue
		}
		file, ok := files[r.LinkedFile]
		if !ok {
			file = e.linkedFile(r)
			files[r.LinkedFile] = file
		}
		e.tables.Add(metadata.TableManifestResource, 0, flags, e.str(r.Name),
			e.coded(metadata.Implementation, file))
	}
}

// linkedFile adds the File row of a linked resource. A file that cannot be
// read still gets a row, with an empty hash.
func (e *Emitter) linkedFile(r *ir.Resource) metadata.Token {
	var hash []byte
	data, err := e.opts.ReadFile(r.LinkedFile)
	if err != nil {
		diag.ReportWarning(e.opts.Reporter, diag.EmitResourceHashUnavailable, r.Name,
			fmt.Sprintf("cannot hash %s: %v", r.LinkedFile, err)).Emit()
	} else {
		sum := sha1.Sum(data) //nolint:gosec
		hash = sum[:]
	}
	row := e.tables.Add(metadata.TableFile, fileContainsNoMetadata,
		e.str(filepath.Base(r.LinkedFile)), e.blob(hash))
	return metadata.MakeToken(metadata.TableFile, row)
}
