package project

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
)

const sourceExt = ".cm"

// Module is one source file discovered under src/, identified by its
// `::`-separated module path (e.g. "util::math" for src/util/math.cm).
type Module struct {
	Path       string
	SourceFile string
}

// Project is a loaded Cairo-M project: its manifest plus the full set of
// `.cm` source files discovered under src/, indexed by module path.
type Project struct {
	Root     string
	Manifest *Manifest
	Modules  map[string]*Module
	Main     string
}

// Load reads cairom.toml at root and discovers every module under
// root/src, resolving which module is the program's entry point.
func Load(root string) (*Project, error) {
	manifest, err := LoadManifest(root)
	if err != nil {
		return nil, err
	}

	srcRoot := filepath.Join(root, sourceDir)
	info, err := os.Stat(srcRoot)
	if err != nil || !info.IsDir() {
		return nil, diagnostics.Wrap(diagnostics.Newf(diagnostics.MAN003, "manifest", diagnostics.Span{},
			"source directory %s not found", srcRoot))
	}

	modules, err := discoverModules(srcRoot)
	if err != nil {
		return nil, err
	}

	main, err := resolveMain(manifest, modules)
	if err != nil {
		return nil, err
	}

	return &Project{
		Root:     root,
		Manifest: manifest,
		Modules:  modules,
		Main:     main,
	}, nil
}

// discoverModules walks srcRoot and maps every *.cm file to its `::`-joined
// module path, mirroring the directory structure.
func discoverModules(srcRoot string) (map[string]*Module, error) {
	modules := make(map[string]*Module)

	err := filepath.Walk(srcRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != sourceExt {
			return nil
		}
		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}
		rel = strings.TrimSuffix(rel, sourceExt)
		modPath := strings.ReplaceAll(rel, string(filepath.Separator), "::")

		if existing, ok := modules[modPath]; ok {
			return diagnostics.Wrap(diagnostics.Newf(diagnostics.MAN005, "manifest", diagnostics.Span{},
				"module path %q declared by both %s and %s", modPath, existing.SourceFile, path))
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		modules[modPath] = &Module{Path: modPath, SourceFile: abs}
		return nil
	})
	if err != nil {
		if d, ok := diagnostics.AsDiagnostic(err); ok {
			return nil, diagnostics.Wrap(d)
		}
		return nil, err
	}
	return modules, nil
}

// resolveMain picks the entry module: the manifest's explicit entry_point if
// set, otherwise "main" if src/main.cm exists, otherwise "lib".
func resolveMain(m *Manifest, modules map[string]*Module) (string, error) {
	candidate := m.EntryPoint
	if candidate == "" {
		if _, ok := modules["main"]; ok {
			candidate = "main"
		} else {
			candidate = "lib"
		}
	}
	candidate = strings.TrimSuffix(candidate, sourceExt)
	if _, ok := modules[candidate]; !ok {
		return "", diagnostics.Wrap(diagnostics.Newf(diagnostics.MAN003, "manifest", diagnostics.Span{},
			"entry point module %q has no corresponding source file under src/", candidate))
	}
	return candidate, nil
}

// SortedPaths returns every discovered module path in deterministic order,
// for callers (CLI listings, golden dumps) that need stable iteration over
// a map.
func (p *Project) SortedPaths() []string {
	paths := make([]string, 0, len(p.Modules))
	for path := range p.Modules {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// BuildOrder topologically sorts a `use` dependency graph (module path ->
// the module paths it uses) so that every module appears after everything
// it depends on. The graph is supplied by the caller rather than built
// here, keeping internal/project free of a parser dependency. No compiler
// phase calls BuildOrder; internal/driver detects import cycles on its own
// while it builds semantic indices.
//
// If the graph contains a cycle, BuildOrder returns a MAN004 diagnostic
// naming one concrete cycle, found via depth-first search so the error
// message can show the actual chain of imports rather than just "a cycle
// exists somewhere".
func BuildOrder(edges map[string][]string) ([]string, error) {
	if cycle := findCycle(edges); cycle != nil {
		return nil, diagnostics.Wrap(diagnostics.Newf(diagnostics.MAN004, "manifest", diagnostics.Span{},
			"circular module dependency: %s", strings.Join(cycle, " -> ")))
	}
	return kahnOrder(edges), nil
}

// findCycle runs DFS with an explicit recursion stack, returning the first
// cycle found as an ordered path ending back at its starting node, or nil
// if the graph is acyclic.
func findCycle(edges map[string][]string) []string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)
	var stack []string

	var visit func(node string) []string
	visit = func(node string) []string {
		state[node] = visiting
		stack = append(stack, node)
		for _, dep := range edges[node] {
			switch state[dep] {
			case visiting:
				start := 0
				for i, n := range stack {
					if n == dep {
						start = i
						break
					}
				}
				return append(append([]string{}, stack[start:]...), dep)
			case unvisited:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = done
		return nil
	}

	nodes := make([]string, 0, len(edges))
	for node := range edges {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if state[node] == unvisited {
			if cyc := visit(node); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// kahnOrder performs Kahn's algorithm on an already-verified-acyclic graph,
// visiting dependency-free nodes in sorted order at each step for a
// deterministic result.
func kahnOrder(edges map[string][]string) []string {
	inDegree := make(map[string]int)
	dependents := make(map[string][]string)
	for node, deps := range edges {
		if _, ok := inDegree[node]; !ok {
			inDegree[node] = 0
		}
		for _, dep := range deps {
			inDegree[node]++
			dependents[dep] = append(dependents[dep], node)
		}
	}

	var queue []string
	for node, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, node)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		next := append([]string{}, dependents[node]...)
		sort.Strings(next)
		for _, dep := range next {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
		sort.Strings(queue)
	}
	return order
}
