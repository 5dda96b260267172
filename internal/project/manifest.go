package project

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ilmerge/internal/ir"
)

// Manifest is a loaded ilmerge.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
	// Digest hashes the manifest file; cache keys include it.
	Digest Digest
}

// Config mirrors the manifest sections.
type Config struct {
	Assembly  AssemblyConfig   `toml:"assembly"`
	Output    OutputConfig     `toml:"output"`
	Emit      EmitConfig       `toml:"emit"`
	Duplicate DuplicateConfig  `toml:"duplicate"`
	Inputs    []InputConfig    `toml:"inputs"`
	Resources []ResourceConfig `toml:"resources"`
	Cache     CacheConfig      `toml:"cache"`
}

type AssemblyConfig struct {
	Name          string `toml:"name"`
	Version       string `toml:"version"`
	Culture       string `toml:"culture"`
	PublicKey     string `toml:"public_key"`
	Flags         uint32 `toml:"flags"`
	HashAlgorithm uint32 `toml:"hash_algorithm"`
}

type OutputConfig struct {
	Kind       string `toml:"kind"`
	Path       string `toml:"path"`
	ModuleName string `toml:"module_name"`
	ILBase     uint32 `toml:"il_base"`
	DataBase   uint32 `toml:"data_base"`
	// Compress lz4-frames the written bundle.
	Compress bool `toml:"compress"`
}

type EmitConfig struct {
	Debug bool `toml:"debug"`
	// OptimisticShortBranches defaults to true when absent.
	OptimisticShortBranches *bool  `toml:"optimistic_short_branches"`
	InitLocals              bool   `toml:"init_locals"`
	MetadataVersion         string `toml:"metadata_version"`
}

type DuplicateConfig struct {
	Mode           string `toml:"mode"`
	TemplateParams string `toml:"template_params"`
}

type InputConfig struct {
	Path    string `toml:"path"`
	Primary bool   `toml:"primary"`
}

type ResourceConfig struct {
	Name   string `toml:"name"`
	Path   string `toml:"path"`
	Public bool   `toml:"public"`
	Linked bool   `toml:"linked"`
}

type CacheConfig struct {
	Enabled *bool  `toml:"enabled"`
	Dir     string `toml:"dir"`
}

var (
	// ErrNoInputs reports a manifest without [[inputs]].
	ErrNoInputs = errors.New("no [[inputs]] declared")
	// ErrManifestNotFound reports that no ilmerge.toml exists above the start directory.
	ErrManifestNotFound = errors.New("no " + ManifestName + " found")
)

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", abs, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", abs, undecoded[0])
	}
	if !meta.IsDefined("inputs") || len(cfg.Inputs) == 0 {
		return nil, fmt.Errorf("%s: %w", abs, ErrNoInputs)
	}
	m := &Manifest{Path: abs, Root: filepath.Dir(abs), Config: cfg, Digest: Sum(data)}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	return m, nil
}

// FindAndLoad locates the manifest above startDir and loads it.
func FindAndLoad(startDir string) (*Manifest, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrManifestNotFound
	}
	return LoadManifest(path)
}

func (m *Manifest) validate() error {
	if _, err := m.ModuleKind(); err != nil {
		return err
	}
	if _, err := ir.ParseVersion(m.Config.Assembly.Version); err != nil {
		return fmt.Errorf("[assembly].version: %w", err)
	}
	if _, err := m.PublicKey(); err != nil {
		return err
	}
	primaries := 0
	for i, in := range m.Config.Inputs {
		if strings.TrimSpace(in.Path) == "" {
			return fmt.Errorf("[[inputs]] #%d: missing path", i+1)
		}
		if in.Primary {
			primaries++
		}
	}
	if primaries > 1 {
		return fmt.Errorf("[[inputs]]: %d inputs are marked primary", primaries)
	}
	seen := make(map[string]bool, len(m.Config.Resources))
	for i, r := range m.Config.Resources {
		if r.Name == "" || r.Path == "" {
			return fmt.Errorf("[[resources]] #%d: name and path are required", i+1)
		}
		if seen[r.Name] {
			return fmt.Errorf("[[resources]]: duplicate resource %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Resolve makes a manifest-relative path absolute.
func (m *Manifest) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, filepath.FromSlash(p))
}

// InputPaths returns the resolved input paths with the primary first.
func (m *Manifest) InputPaths() []string {
	out := make([]string, 0, len(m.Config.Inputs))
	primary := 0
	for i, in := range m.Config.Inputs {
		if in.Primary {
			primary = i
		}
	}
	out = append(out, m.Resolve(m.Config.Inputs[primary].Path))
	for i, in := range m.Config.Inputs {
		if i != primary {
			out = append(out, m.Resolve(in.Path))
		}
	}
	return out
}

// ModuleKind parses [output].kind; empty means a library.
func (m *Manifest) ModuleKind() (ir.ModuleKind, error) {
	kind, err := ParseModuleKind(m.Config.Output.Kind)
	if err != nil {
		return kind, fmt.Errorf("[output].kind: %w", err)
	}
	return kind, nil
}

// ParseModuleKind accepts dll, exe and netmodule plus their long names.
func ParseModuleKind(s string) (ir.ModuleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dll", "library":
		return ir.ModuleDLL, nil
	case "exe":
		return ir.ModuleEXE, nil
	case "netmodule", "module":
		return ir.ModuleNetModule, nil
	default:
		return ir.ModuleDLL, fmt.Errorf("invalid module kind %q (expected: dll|exe|netmodule)", s)
	}
}

// PublicKey decodes [assembly].public_key.
func (m *Manifest) PublicKey() ([]byte, error) {
	s := strings.TrimSpace(m.Config.Assembly.PublicKey)
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("[assembly].public_key: %w", err)
	}
	return key, nil
}

// AssemblyInfo builds the manifest override for the output assembly. It
// returns nil when [assembly] names nothing.
func (m *Manifest) AssemblyInfo() *ir.AssemblyInfo {
	a := m.Config.Assembly
	if a.Name == "" {
		return nil
	}
	v, _ := ir.ParseVersion(a.Version)
	key, _ := m.PublicKey()
	return &ir.AssemblyInfo{
		Name:          a.Name,
		Version:       v,
		Culture:       a.Culture,
		PublicKey:     key,
		Flags:         a.Flags,
		HashAlgorithm: a.HashAlgorithm,
	}
}

// OutputPath returns the resolved bundle path. Without [output].path the
// bundle is named after the primary input.
func (m *Manifest) OutputPath() string {
	if p := m.Config.Output.Path; p != "" {
		return m.Resolve(p)
	}
	primary := m.InputPaths()[0]
	base := strings.TrimSuffix(filepath.Base(primary), ".xz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(m.Root, "build", base+".ilb")
}

// ShortBranches reports the optimistic short branch setting.
func (m *Manifest) ShortBranches() bool {
	if v := m.Config.Emit.OptimisticShortBranches; v != nil {
		return *v
	}
	return true
}

// CacheEnabled reports whether the on-disk cache is used.
func (m *Manifest) CacheEnabled() bool {
	if v := m.Config.Cache.Enabled; v != nil {
		return *v
	}
	return true
}

// CacheDir returns the resolved cache directory.
func (m *Manifest) CacheDir() string {
	if d := m.Config.Cache.Dir; d != "" {
		return m.Resolve(d)
	}
	return filepath.Join(m.Root, ".ilmerge-cache")
}
