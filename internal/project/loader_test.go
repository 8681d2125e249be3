package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
)

// AsDiagnosticErr extracts the diagnostic code from a wrapped error, for
// tests that only care which MAN0xx code was raised.
func AsDiagnosticErr(err error) (string, bool) {
	d, ok := diagnostics.AsDiagnostic(err)
	if !ok {
		return "", false
	}
	return d.Code, true
}

func writeProject(t *testing.T, manifest string, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, manifestFile), []byte(manifest), 0o644))
	for rel, content := range files {
		path := filepath.Join(root, sourceDir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestLoadDiscoversModulesByDottedPath(t *testing.T) {
	root := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm":      "fn main() -> felt { return 0; }",
		"util/math.cm": "fn square(x: felt) -> felt { return x * x; }",
	})

	proj, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, "demo", proj.Manifest.Name)
	require.Equal(t, defaultVersion, proj.Manifest.Version)
	require.Equal(t, "main", proj.Main)
	require.Contains(t, proj.Modules, "main")
	require.Contains(t, proj.Modules, "util::math")
}

func TestLoadDefaultsToLibWhenNoMain(t *testing.T) {
	root := writeProject(t, `name = "lib-demo"`, map[string]string{
		"lib.cm": "fn helper() -> felt { return 1; }",
	})

	proj, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, "lib", proj.Main)
}

func TestLoadHonorsExplicitEntryPoint(t *testing.T) {
	root := writeProject(t, `name = "demo"
entry_point = "app"`, map[string]string{
		"main.cm": "fn main() -> felt { return 0; }",
		"app.cm":  "fn run() -> felt { return 0; }",
	})

	proj, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, "app", proj.Main)
}

func TestLoadMissingManifest(t *testing.T) {
	root := t.TempDir()
	_, err := Load(root)
	require.Error(t, err)
	d, ok := AsDiagnosticErr(err)
	require.True(t, ok)
	require.Equal(t, "MAN001", d)
}

func TestLoadMissingSourceDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, manifestFile), []byte(`name = "demo"`), 0o644))

	_, err := Load(root)
	require.Error(t, err)
	d, ok := AsDiagnosticErr(err)
	require.True(t, ok)
	require.Equal(t, "MAN003", d)
}

func TestLoadMissingEntryPointFile(t *testing.T) {
	root := writeProject(t, `name = "demo"
entry_point = "does_not_exist"`, map[string]string{
		"main.cm": "fn main() -> felt { return 0; }",
	})

	_, err := Load(root)
	require.Error(t, err)
	d, ok := AsDiagnosticErr(err)
	require.True(t, ok)
	require.Equal(t, "MAN003", d)
}

func TestBuildOrderAcyclic(t *testing.T) {
	edges := map[string][]string{
		"main":       {"util::math", "util::io"},
		"util::math": {"util::base"},
		"util::io":   {"util::base"},
		"util::base": {},
	}
	order, err := BuildOrder(edges)
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, n := range order {
		pos[n] = i
	}
	require.Less(t, pos["util::base"], pos["util::math"])
	require.Less(t, pos["util::base"], pos["util::io"])
	require.Less(t, pos["util::math"], pos["main"])
	require.Less(t, pos["util::io"], pos["main"])
}

func TestBuildOrderDetectsCycle(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}
	_, err := BuildOrder(edges)
	require.Error(t, err)
	d, ok := AsDiagnosticErr(err)
	require.True(t, ok)
	require.Equal(t, "MAN004", d)
}

func TestSortedPathsDeterministic(t *testing.T) {
	root := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": "fn main() -> felt { return 0; }",
		"b/c.cm":  "fn c() -> felt { return 0; }",
		"a.cm":    "fn a() -> felt { return 0; }",
	})
	proj, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b::c", "main"}, proj.SortedPaths())
}
