package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/codegen"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/driver"
	"github.com/cairo-m/cairo-m-compiler/internal/project"
)

// Version is the compiler's own version string, reported in every
// program artifact's metadata.compiler_version field (spec.md §6.4).
// Overridden by ldflags at release build time.
var Version = "dev"

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run implements spec.md §6.3: `cairo-m-compiler --input <path-or-cairom.toml>
// [--output <file.json>]`, exit 0 on success, 1 on diagnostic errors, 2 on
// I/O/manifest errors. It returns the exit code rather than calling
// os.Exit directly so tests can invoke it without terminating the process.
func run(args []string) int {
	fs := flag.NewFlagSet("cairo-m-compiler", flag.ContinueOnError)
	input := fs.String("input", "", "path to a cairom.toml or a project directory containing one")
	output := fs.String("output", "", "write the compiled program JSON here instead of stdout")
	selfTest := fs.Bool("self-test", false, "run the word-displacement self-test and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *selfTest {
		return runSelfTest()
	}

	if *input == "" {
		fmt.Fprintf(os.Stderr, "%s: --input is required\n", red("Error"))
		return 2
	}

	root := *input
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		root = filepath.Dir(root)
	}

	proj, err := project.Load(root)
	if err != nil {
		printLoadError(err)
		return 2
	}

	fmt.Fprintf(os.Stderr, "%s compiling %s\n", cyan("→"), proj.Manifest.Name)

	d := driver.New(proj)
	prog, sink := d.Program()
	diags := sink.All()
	if len(diags) > 0 {
		printDiagnostics(diags)
	}
	if prog == nil {
		return 1
	}

	prog.Metadata = buildMetadata(proj, d)

	body, err := json.MarshalIndent(prog, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: encoding program: %v\n", red("Error"), err)
		return 2
	}

	if *output == "" {
		fmt.Println(string(body))
	} else {
		if err := os.WriteFile(*output, body, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "%s: writing %s: %v\n", red("Error"), *output, err)
			return 2
		}
		fmt.Fprintf(os.Stderr, "%s wrote %s\n", green("✓"), *output)
	}
	return 0
}

// runSelfTest wires the --self-test flag SPEC_FULL.md requires to
// internal/codegen.SelfTestWordDisplacement: a self-test that fails
// loudly if the VM's word-unit PC-displacement invariant is ever
// invalidated (spec.md §9).
func runSelfTest() int {
	if err := codegen.SelfTestWordDisplacement(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("FAIL"), err)
		return 1
	}
	fmt.Printf("%s word-displacement self-test passed\n", green("PASS"))
	return 0
}

func printLoadError(err error) {
	if d, ok := diagnostics.AsDiagnostic(err); ok {
		fmt.Fprintf(os.Stderr, "%s [%s] %s\n", red("Error"), d.Code, d.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", red("Error"), err)
}

// printDiagnostics groups diagnostics by severity, errors first, each
// tagged with its stable code and source span.
func printDiagnostics(diags []*diagnostics.Diagnostic) {
	deduped := diagnostics.Dedupe(diags)
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].IsError() && !deduped[j].IsError()
	})
	for _, d := range deduped {
		label := yellow("warning")
		if d.IsError() {
			label = red("error")
		}
		fmt.Fprintf(os.Stderr, "%s[%s] %s: %s\n", label, d.Code, d.Span.String(), d.Message)
	}
}

// buildMetadata stamps spec.md §6.4's metadata block: compiler_version,
// a content hash of every module's source concatenated in deterministic
// path order (so the same sources always hash the same regardless of
// filesystem iteration order), and the resolved type signature of every
// entrypoint function.
func buildMetadata(proj *project.Project, d *driver.Driver) map[string]string {
	meta := map[string]string{
		"compiler_version": Version,
		"source_hash":      sourceHash(proj),
	}

	var sigs []string
	for _, path := range proj.SortedPaths() {
		checker, _ := d.Types(path)
		file, _ := d.Parse(path)
		if checker == nil || file == nil {
			continue
		}
		for _, item := range file.Items {
			fn, ok := item.(*ast.FuncDecl)
			if !ok {
				continue
			}
			if sig, ok := checker.FuncSignature(fn.Name); ok {
				sigs = append(sigs, fmt.Sprintf("%s: %s", fn.Name, sig.String()))
			}
		}
	}
	sort.Strings(sigs)
	meta["types_of_entrypoints"] = strings.Join(sigs, "; ")
	return meta
}

func sourceHash(proj *project.Project) string {
	h := sha256.New()
	for _, path := range proj.SortedPaths() {
		mod := proj.Modules[path]
		src, err := os.ReadFile(mod.SourceFile)
		if err != nil {
			continue
		}
		h.Write([]byte(path))
		h.Write([]byte{0})
		h.Write(src)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
