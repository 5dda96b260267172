package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// LocationKind says how a module is reached from another module.
type LocationKind uint8

const (
	// LocationAssembly is a separate assembly (AssemblyRef).
	LocationAssembly LocationKind = iota + 1
	// LocationModule is another module of the same assembly (ModuleRef).
	LocationModule
)

func (k LocationKind) String() string {
	switch k {
	case LocationAssembly:
		return "assembly"
	case LocationModule:
		return "module"
	default:
		return "unknown"
	}
}

// Version is a four part assembly version.
type Version struct {
	Major, Minor, Build, Revision uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// ParseVersion accepts one to four dot separated components.
func ParseVersion(s string) (Version, error) {
	var v Version
	if s == "" {
		return v, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return v, fmt.Errorf("ir: version %q has more than four parts", s)
	}
	dst := [4]*uint16{&v.Major, &v.Minor, &v.Build, &v.Revision}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Version{}, fmt.Errorf("ir: version %q: %w", s, err)
		}
		*dst[i] = uint16(n)
	}
	return v, nil
}

// Location identifies the home scope of a module as seen from a referencing
// module. Locations are shared, so one AssemblyRef row serves every module
// of the same assembly.
type Location struct {
	Node

	Kind           LocationKind
	Name           string
	Version        Version
	Culture        string
	PublicKey      []byte
	PublicKeyToken []byte
	Flags          uint32
	HashValue      []byte
}

func (l *Location) String() string {
	if l == nil {
		return "unknown:location"
	}
	if l.Kind == LocationModule {
		return "module:" + l.Name
	}
	var b strings.Builder
	b.WriteString(l.Name)
	b.WriteString(", Version=")
	b.WriteString(l.Version.String())
	b.WriteString(", Culture=")
	if l.Culture == "" {
		b.WriteString("neutral")
	} else {
		b.WriteString(l.Culture)
	}
	b.WriteString(", PublicKeyToken=")
	if len(l.PublicKeyToken) == 0 {
		b.WriteString("null")
	} else {
		fmt.Fprintf(&b, "%x", l.PublicKeyToken)
	}
	return b.String()
}

// AssemblyInfo is the manifest of the assembly a module belongs to.
type AssemblyInfo struct {
	Name          string
	Version       Version
	Culture       string
	PublicKey     []byte
	Flags         uint32
	HashAlgorithm uint32
	Attributes    []*Attribute
	Security      []*SecurityAttribute
}

// ModuleKind distinguishes libraries from executables.
type ModuleKind uint8

const (
	ModuleDLL ModuleKind = iota
	ModuleEXE
	ModuleNetModule
)

func (k ModuleKind) String() string {
	switch k {
	case ModuleEXE:
		return "exe"
	case ModuleNetModule:
		return "netmodule"
	default:
		return "dll"
	}
}

// Resource is a manifest resource, either embedded or linked to a file.
type Resource struct {
	Node

	Name   string
	Public bool
	Data   []byte
	// LinkedFile is the path of a linked resource file; empty when embedded.
	LinkedFile string
}

// Module is a compilation unit. Types lists the top-level types; nested
// types hang off their declaring type.
type Module struct {
	Node

	Name     string
	Kind     ModuleKind
	Assembly *AssemblyInfo
	// Location is how other modules reference this one. Nil means the home
	// scope is unknown.
	Location *Location

	Types      []*Type
	Attributes []*Attribute
	EntryPoint *Method
	Resources  []*Resource
}

// AllTypes returns every declared type in definition order (each type
// followed by its nested types, depth first).
func (m *Module) AllTypes() []*Type {
	var out []*Type
	var walk func(t *Type)
	walk = func(t *Type) {
		out = append(out, t)
		for _, n := range t.NestedTypes {
			walk(n)
		}
	}
	for _, t := range m.Types {
		walk(t)
	}
	return out
}

// FindType looks up a top-level or nested type by full name.
func (m *Module) FindType(fullName string) *Type {
	for _, t := range m.AllTypes() {
		if t.FullName() == fullName {
			return t
		}
	}
	return nil
}

// Program is a set of modules sharing one node arena.
type Program struct {
	Arena   *Arena
	Types   *Types
	Modules []*Module
}

// NewProgram returns an empty program with its own arena and interner.
func NewProgram() *Program {
	a := NewArena()
	return &Program{Arena: a, Types: NewTypes(a)}
}

// Module returns the module named name.
func (p *Program) Module(name string) *Module {
	for _, m := range p.Modules {
		if m.Name == name {
			return m
		}
	}
	return nil
}
