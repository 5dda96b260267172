package buildpipeline

import (
	"fmt"

	"ilmerge/internal/driver"
	"ilmerge/internal/dup"
	"ilmerge/internal/emit"
	"ilmerge/internal/image"
	"ilmerge/internal/ir"
	"ilmerge/internal/project"
	"ilmerge/internal/trace"
)

// Resource is a manifest resource to attach to the output module.
type Resource struct {
	Name   string
	Path   string
	Public bool
	Linked bool
}

// Request configures a build.
type Request struct {
	// Inputs are snapshot paths; the first is the primary module.
	Inputs []string
	// Root shortens input paths in progress events.
	Root   string
	Output string
	// Kind overrides the primary module kind when KindSet is true.
	Kind       ir.ModuleKind
	KindSet    bool
	ModuleName string
	// Assembly replaces the primary module's assembly identity; attributes
	// already declared on the primary are kept.
	Assembly  *ir.AssemblyInfo
	Resources []Resource

	Emit emit.Options
	// DebugMap, when set, receives the sequence points and local scopes
	// of the build. Such builds bypass the caches.
	DebugMap  string
	Duplicate dup.Options
	// Writer stores the image; nil writes an uncompressed bundle.
	Writer image.PEWriter
	// Salt is folded into the cache key, typically the manifest digest.
	Salt project.Digest

	Caches         *driver.Caches
	MaxDiagnostics int
	Progress       ProgressSink
	Tracer         trace.Tracer
}

// FromManifest builds a request from a loaded manifest.
func FromManifest(m *project.Manifest) (*Request, error) {
	cfg := m.Config
	kind, err := m.ModuleKind()
	if err != nil {
		return nil, err
	}
	mode, err := dup.ParseMode(cfg.Duplicate.Mode)
	if err != nil {
		return nil, fmt.Errorf("[duplicate].mode: %w", err)
	}
	policy, err := dup.ParseTemplateParamPolicy(cfg.Duplicate.TemplateParams)
	if err != nil {
		return nil, fmt.Errorf("[duplicate].template_params: %w", err)
	}
	req := &Request{
		Inputs:     m.InputPaths(),
		Root:       m.Root,
		Output:     m.OutputPath(),
		Kind:       kind,
		KindSet:    cfg.Output.Kind != "",
		ModuleName: cfg.Output.ModuleName,
		Assembly:   m.AssemblyInfo(),
		Emit: emit.Options{
			NoShortBranches: !m.ShortBranches(),
			InitLocals:      cfg.Emit.InitLocals,
			MetadataVersion: cfg.Emit.MetadataVersion,
			ILBase:          cfg.Output.ILBase,
			DataBase:        cfg.Output.DataBase,
		},
		Duplicate: dup.Options{Mode: mode, TemplateParams: policy},
		Writer:    image.BundleWriter{Compress: cfg.Output.Compress},
		Salt:      m.Digest,
	}
	if cfg.Emit.Debug {
		req.DebugMap = req.Output + ".dbg"
	}
	for _, r := range cfg.Resources {
		req.Resources = append(req.Resources, Resource{
			Name:   r.Name,
			Path:   m.Resolve(r.Path),
			Public: r.Public,
			Linked: r.Linked,
		})
	}
	return req, nil
}
