package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/cairo-m-compiler/internal/project"
)

func writeProject(t *testing.T, manifest string, files map[string]string) *project.Project {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "cairom.toml"), []byte(manifest), 0o644))
	for rel, content := range files {
		path := filepath.Join(root, "src", rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	proj, err := project.Load(root)
	require.NoError(t, err)
	return proj
}

func TestParseCachesUntilInvalidated(t *testing.T) {
	proj := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": "fn main() -> felt { return 1; }",
	})
	d := New(proj)

	file1, sink1 := d.Parse("main")
	require.Empty(t, sink1.All())
	require.NotNil(t, file1)

	file2, _ := d.Parse("main")
	require.Same(t, file1, file2)

	d.Invalidate("main")
	file3, _ := d.Parse("main")
	require.NotSame(t, file1, file3)
}

func TestSemanticIndexResolvesCrossModuleImport(t *testing.T) {
	proj := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": `
			use math::square;
			fn main() -> felt { return square(2); }
		`,
		"math.cm": `fn square(x: felt) -> felt { return x * x; }`,
	})
	d := New(proj)

	_, sink := d.SemanticIndex("main")
	require.Empty(t, sink.All())
}

func TestSemanticIndexReportsUnresolvedImport(t *testing.T) {
	proj := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": `
			use math::cube;
			fn main() -> felt { return 0; }
		`,
		"math.cm": `fn square(x: felt) -> felt { return x * x; }`,
	})
	d := New(proj)

	_, sink := d.SemanticIndex("main")
	require.NotEmpty(t, sink.All())
}

func TestWildcardImportExpandsPublicNamesAcrossModules(t *testing.T) {
	proj := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": `
			use math::*;
			fn main() -> felt { return square(2) + cube(2); }
		`,
		"math.cm": `
			fn square(x: felt) -> felt { return x * x; }
			fn cube(x: felt) -> felt { return x * x * x; }
			fn _hidden(x: felt) -> felt { return x; }
		`,
	})
	d := New(proj)

	_, sink := d.SemanticIndex("main")
	require.Empty(t, sink.All())
}

func TestCircularImportIsReportedNotInfinitelyRecursed(t *testing.T) {
	proj := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": `
			use other::helper;
			fn main() -> felt { return helper(); }
		`,
		"other.cm": `
			use main::main;
			fn helper() -> felt { return 0; }
		`,
	})
	d := New(proj)

	// The cycle surfaces as an unresolved import (other can't resolve
	// main::main while main is still being built) rather than hanging;
	// the point of this test is termination plus a reported diagnostic,
	// not a specific code.
	_, sink := d.SemanticIndex("main")
	require.NotEmpty(t, sink.All())
}

func TestInvalidateCascadesToImporters(t *testing.T) {
	proj := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": `
			use math::square;
			fn main() -> felt { return square(2); }
		`,
		"math.cm": `fn square(x: felt) -> felt { return x * x; }`,
	})
	d := New(proj)

	idx1, sink := d.SemanticIndex("main")
	require.Empty(t, sink.All())
	require.NotNil(t, idx1)

	idx2, _ := d.SemanticIndex("main")
	require.Same(t, idx1, idx2)

	d.Invalidate("math")
	idx3, sink3 := d.SemanticIndex("main")
	require.Empty(t, sink3.All())
	require.NotSame(t, idx1, idx3)
}

func TestFailFastSkipsDownstreamOnParseError(t *testing.T) {
	proj := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": "fn main( -> felt { return 0; }",
	})
	d := New(proj)

	_, parseSink := d.Parse("main")
	require.NotEmpty(t, parseSink.All())

	_, lowerSink := d.Lower("main")
	require.NotEmpty(t, lowerSink.All())
}

func TestOptimizeProducesLoweredModule(t *testing.T) {
	proj := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": "fn main() -> felt { return 1 + 2; }",
	})
	d := New(proj)

	mod, sink := d.Optimize("main")
	require.Empty(t, sink.All())
	require.NotNil(t, mod)
	require.Contains(t, mod.Functions, "main")
}

func TestProgramCompilesWholeProject(t *testing.T) {
	proj := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": `
			use math::square;
			fn main() -> felt { return square(3); }
		`,
		"math.cm": `fn square(x: felt) -> felt { return x * x; }`,
	})
	d := New(proj)

	prog, sink := d.Program()
	require.Empty(t, sink.All())
	require.NotNil(t, prog)
	require.Contains(t, prog.Entrypoints, "main")
	require.Contains(t, prog.Entrypoints, "square")
}
