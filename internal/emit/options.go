package emit

import (
	"os"
	"time"

	"github.com/google/uuid"

	"ilmerge/internal/diag"
	"ilmerge/internal/ir"
	"ilmerge/internal/trace"
	"ilmerge/internal/wellknown"
)

// DefaultMetadataVersion is the version string written into the metadata root.
const DefaultMetadataVersion = "v4.0.30319"

// DefaultILBase is the RVA of the first method body in the conventional
// layout: the .text section at 0x2000 starts with the import address table
// and the CLI header, and method bodies follow.
const DefaultILBase = 0x2050

// Options configures an emission session.
type Options struct {
	// CoreLibrary is the assembly whose type names need no qualification in
	// custom attribute blobs.
	CoreLibrary string
	// NoShortBranches emits forward branches in their long form unless the
	// IR asks for the short one. By default every forward branch starts
	// short and only the ones that overflow are widened.
	NoShortBranches bool
	// InitLocals sets the init-locals flag on every fat body, regardless of
	// the method's own setting.
	InitLocals      bool
	MetadataVersion string
	// ILBase is the RVA at which the IL stream will be placed.
	ILBase uint32
	// DataBase is the RVA of the field initial data section. Zero places it
	// directly after the IL stream.
	DataBase uint32
	// Mvid is the module version id; the zero value derives one from the
	// module and assembly names.
	Mvid uuid.UUID

	// Symbols receives sequence points and local scopes when debug
	// information is requested.
	Symbols SymbolWriter
	// ReadFile reads linked resource files for hashing.
	ReadFile func(path string) ([]byte, error)

	// OnPass, when set, is called as each pass starts and ends.
	OnPass func(PassEvent)

	Reporter diag.Reporter
	Tracer   trace.Tracer
	// ParentSpan is the trace span the session reports under.
	ParentSpan uint64
}

func (o Options) withDefaults(m *ir.Module) Options {
	if o.CoreLibrary == "" {
		o.CoreLibrary = wellknown.CoreLibrary.String()
	}
	if o.MetadataVersion == "" {
		o.MetadataVersion = DefaultMetadataVersion
	}
	if o.ILBase == 0 {
		o.ILBase = DefaultILBase
	}
	if o.ReadFile == nil {
		o.ReadFile = os.ReadFile
	}
	if o.Tracer == nil {
		o.Tracer = trace.Nop
	}
	if o.Mvid == uuid.Nil {
		name := m.Name
		if m.Assembly != nil {
			name = m.Assembly.Name + "/" + m.Assembly.Version.String() + "/" + name
		}
		o.Mvid = uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
	}
	return o
}

// PassEvent marks a pass boundary of an emission session.
type PassEvent struct {
	Module  string
	Pass    string
	Done    bool
	Elapsed time.Duration
}
