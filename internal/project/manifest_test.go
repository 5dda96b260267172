package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ilmerge/internal/ir"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

const fullManifest = `
[assembly]
name = "Merged"
version = "1.2.3.4"
public_key = "0024"

[output]
kind = "exe"
path = "out/merged.ilb"
il_base = 8192

[emit]
debug = true
optimistic_short_branches = false

[duplicate]
mode = "record-template"

[[inputs]]
path = "lib.irpk"

[[inputs]]
path = "app.irpk.xz"
primary = true

[[resources]]
name = "greeting"
path = "res/greeting.txt"
`

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, fullManifest)

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, dir, m.Root)
	require.Equal(t, []string{
		filepath.Join(dir, "app.irpk.xz"),
		filepath.Join(dir, "lib.irpk"),
	}, m.InputPaths())

	kind, err := m.ModuleKind()
	require.NoError(t, err)
	require.Equal(t, ir.ModuleEXE, kind)
	require.Equal(t, filepath.Join(dir, "out", "merged.ilb"), m.OutputPath())
	require.False(t, m.ShortBranches())
	require.True(t, m.CacheEnabled())
	require.Equal(t, uint32(8192), m.Config.Output.ILBase)

	asm := m.AssemblyInfo()
	require.Equal(t, "Merged", asm.Name)
	require.Equal(t, ir.Version{Major: 1, Minor: 2, Build: 3, Revision: 4}, asm.Version)
	require.Equal(t, []byte{0x00, 0x24}, asm.PublicKey)
	require.Equal(t, Sum([]byte(fullManifest)), m.Digest)
}

func TestManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadManifest(writeManifest(t, dir, "[[inputs]]\npath = \"app.irpk.xz\"\n"))
	require.NoError(t, err)
	require.True(t, m.ShortBranches())
	require.Nil(t, m.AssemblyInfo())
	require.Equal(t, filepath.Join(dir, "build", "app.ilb"), m.OutputPath())
	require.Equal(t, filepath.Join(dir, ".ilmerge-cache"), m.CacheDir())
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no inputs", "[output]\nkind = \"dll\"\n", "no [[inputs]]"},
		{"bad kind", "[output]\nkind = \"so\"\n[[inputs]]\npath = \"a\"\n", "[output].kind"},
		{"bad version", "[assembly]\nversion = \"1.x\"\n[[inputs]]\npath = \"a\"\n", "[assembly].version"},
		{"bad key", "[assembly]\npublic_key = \"zz\"\n[[inputs]]\npath = \"a\"\n", "[assembly].public_key"},
		{"two primaries", "[[inputs]]\npath = \"a\"\nprimary = true\n[[inputs]]\npath = \"b\"\nprimary = true\n", "marked primary"},
		{"duplicate resource", "[[inputs]]\npath = \"a\"\n[[resources]]\nname = \"r\"\npath = \"x\"\n[[resources]]\nname = \"r\"\npath = \"y\"\n", "duplicate resource"},
		{"unknown key", "[[inputs]]\npath = \"a\"\nweight = 3\n", "unknown key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, t.TempDir(), tt.body))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[[inputs]]\npath = \"a\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, ok, err := FindManifest(nested)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, ManifestName), path)

	dir, ok, err := FindProjectRoot(nested)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, root, dir)

	m, err := FindAndLoad(nested)
	require.NoError(t, err)
	require.Len(t, m.Config.Inputs, 1)
}
