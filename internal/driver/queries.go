package driver

import (
	"os"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/lexer"
	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/mirpasses"
	"github.com/cairo-m/cairo-m-compiler/internal/parser"
	"github.com/cairo-m/cairo-m-compiler/internal/sema"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
	"github.com/cairo-m/cairo-m-compiler/internal/validate"
)

// Parse runs the lexer+parser over path's source file (spec.md §4.1/§4.1's
// "parse(source) -> (AST, [Diagnostic])"), memoized per module path.
func (d *Driver) Parse(path string) (*ast.File, *diagnostics.Sink) {
	if e := d.cachedParse(path); e != nil {
		return e.file, e.sink
	}
	v, _, _ := d.group.Do("parse:"+path, func() (interface{}, error) {
		if e := d.cachedParse(path); e != nil {
			return e, nil
		}
		mod, ok := d.Project.Modules[path]
		if !ok {
			sink := diagnostics.NewSink()
			sink.Push(diagnostics.Newf(diagnostics.MAN003, "driver", diagnostics.Span{},
				"no source file for module %q", path))
			e := &parseEntry{epoch: d.epochOf(path), sink: sink}
			d.storeParse(path, e)
			return e, nil
		}

		src, err := readSource(mod.SourceFile)
		sink := diagnostics.NewSink()
		if err != nil {
			sink.Push(diagnostics.Newf(diagnostics.MAN003, "driver", diagnostics.Span{},
				"cannot read %s: %v", mod.SourceFile, err))
			e := &parseEntry{epoch: d.epochOf(path), sink: sink}
			d.storeParse(path, e)
			return e, nil
		}

		l := lexer.New(string(lexer.Normalize(src)), mod.SourceFile)
		p := parser.New(l)
		file := p.ParseFile(path)
		sink.PushAll(p.Diagnostics())

		d.recordImports(path, extractImports(file))

		e := &parseEntry{epoch: d.epochOf(path), file: file, sink: sink}
		d.storeParse(path, e)
		return e, nil
	})
	e := v.(*parseEntry)
	return e.file, e.sink
}

func (d *Driver) cachedParse(path string) *parseEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.parse[path]
	if !ok || e.epoch != d.epoch[path] {
		return nil
	}
	return e
}

func (d *Driver) storeParse(path string, e *parseEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.parse[path] = e
}

// extractImports collects the distinct module paths file's `use` decls
// reference, for Invalidate's reverse-dependency walk.
func extractImports(file *ast.File) []string {
	if file == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, item := range file.Items {
		u, ok := item.(*ast.UseDecl)
		if !ok {
			continue
		}
		p := joinPath(u.Path)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func joinPath(segs []string) string {
	out := ""
	for i, s := range segs {
		if i > 0 {
			out += "::"
		}
		out += s
	}
	return out
}

// SemanticIndex builds path's scope tree, symbol table, and reachability
// info (spec.md §4.2), resolving `use` declarations against the rest of the
// project through a ProjectResolver. Building cross-module indices can
// recurse (resolving an import calls back into this same method for the
// imported module); a re-entrant request for a module that is still being
// built returns a nil index with a MAN004 sink instead of overflowing the
// call stack, and ProjectResolver treats that as an unresolved import.
func (d *Driver) SemanticIndex(path string) (*sema.Index, *diagnostics.Sink) {
	if e := d.cachedSema(path); e != nil {
		return e.idx, e.sink
	}

	d.mu.Lock()
	if d.building[path] {
		d.mu.Unlock()
		sink := diagnostics.NewSink()
		sink.Push(diagnostics.Newf(diagnostics.MAN004, "driver", diagnostics.Span{},
			"circular module dependency involving %q", path))
		return nil, sink
	}
	d.building[path] = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.building, path)
		d.mu.Unlock()
	}()

	file, parseSink := d.Parse(path)
	sink := diagnostics.NewSink()
	sink.PushAll(parseSink.All())
	if parseSink.HasErrors() || file == nil {
		e := &semaEntry{epoch: d.epochOf(path), sink: sink}
		d.storeSema(path, e)
		return nil, sink
	}

	idx := sema.BuildIndex(file, &ProjectResolver{driver: d}, sink)
	e := &semaEntry{epoch: d.epochOf(path), idx: idx, sink: sink}
	d.storeSema(path, e)
	return idx, sink
}

func (d *Driver) cachedSema(path string) *semaEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.semantic[path]
	if !ok || e.epoch != d.epoch[path] {
		return nil
	}
	return e
}

func (d *Driver) storeSema(path string, e *semaEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.semantic[path] = e
}

// Types runs the bidirectional type checker over path (spec.md §4.3),
// skipping straight to an empty, already-erroring result if semantic
// analysis failed (a broken scope/symbol table has nothing sound to check
// against).
func (d *Driver) Types(path string) (*types.Checker, *diagnostics.Sink) {
	if e := d.cachedTypes(path); e != nil {
		return e.checker, e.sink
	}

	file, _ := d.Parse(path)
	_, semaSink := d.SemanticIndex(path)

	sink := diagnostics.NewSink()
	sink.PushAll(semaSink.All())
	checker := types.NewChecker(sink)
	if !semaSink.HasErrors() && file != nil {
		checker.CheckFile(file)
	}

	e := &typesEntry{epoch: d.epochOf(path), checker: checker, sink: sink}
	d.storeTypes(path, e)
	return checker, sink
}

func (d *Driver) cachedTypes(path string) *typesEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.typed[path]
	if !ok || e.epoch != d.epoch[path] {
		return nil
	}
	return e
}

func (d *Driver) storeTypes(path string, e *typesEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.typed[path] = e
}

// Validate runs the structural/control-flow rules layer (spec.md's C7) over
// path, after parse/semantic_index/types have all succeeded.
func (d *Driver) Validate(path string) *diagnostics.Sink {
	if e := d.cachedValidate(path); e != nil {
		return e.sink
	}

	file, _ := d.Parse(path)
	idx, semaSink := d.SemanticIndex(path)
	checker, typeSink := d.Types(path)

	sink := diagnostics.NewSink()
	sink.PushAll(semaSink.All())
	sink.PushAll(typeSink.All())
	if !semaSink.HasErrors() && !typeSink.HasErrors() && file != nil {
		validate.Validate(file, idx, checker, sink)
	}

	e := &validateEntry{epoch: d.epochOf(path), sink: sink}
	d.storeValidate(path, e)
	return sink
}

func (d *Driver) cachedValidate(path string) *validateEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.validated[path]
	if !ok || e.epoch != d.epoch[path] {
		return nil
	}
	return e
}

func (d *Driver) storeValidate(path string, e *validateEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.validated[path] = e
}

// Lower produces path's un-optimized MIR (spec.md §4.4), the input to the
// C9 optimization pipeline.
func (d *Driver) Lower(path string) (*mir.Module, *diagnostics.Sink) {
	if e := d.cachedLower(path); e != nil {
		return e.mod, e.sink
	}

	file, _ := d.Parse(path)
	idx, _ := d.SemanticIndex(path)
	checker, _ := d.Types(path)
	validateSink := d.Validate(path)

	sink := diagnostics.NewSink()
	sink.PushAll(validateSink.All())
	var mod *mir.Module
	if !validateSink.HasErrors() && file != nil {
		mod = mir.Lower(file, idx, checker, sink)
	}

	e := &lowerEntry{epoch: d.epochOf(path), mod: mod, sink: sink}
	d.storeLower(path, e)
	return mod, sink
}

func (d *Driver) cachedLower(path string) *lowerEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.lowered[path]
	if !ok || e.epoch != d.epoch[path] {
		return nil
	}
	return e
}

func (d *Driver) storeLower(path string, e *lowerEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lowered[path] = e
}

// Optimize runs the C9 Standard pipeline over path's lowered MIR (spec.md
// §4.6). Optimization errors are structural-invariant violations in this
// compiler's own output, not user-facing mistakes, but they still flow
// through the same sink and still block codegen.
func (d *Driver) Optimize(path string) (*mir.Module, *diagnostics.Sink) {
	if e := d.cachedOptimize(path); e != nil {
		return e.mod, e.sink
	}

	mod, lowerSink := d.Lower(path)
	sink := diagnostics.NewSink()
	sink.PushAll(lowerSink.All())
	if !lowerSink.HasErrors() && mod != nil {
		mirpasses.Run(mod, mirpasses.Standard, sink)
	}

	e := &lowerEntry{epoch: d.epochOf(path), mod: mod, sink: sink}
	d.storeOptimize(path, e)
	return mod, sink
}

func (d *Driver) cachedOptimize(path string) *lowerEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.optimized[path]
	if !ok || e.epoch != d.epoch[path] {
		return nil
	}
	return e
}

func (d *Driver) storeOptimize(path string, e *lowerEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.optimized[path] = e
}

// readSource is a package variable so tests can swap it out without touching
// the filesystem.
var readSource = func(path string) ([]byte, error) {
	return os.ReadFile(path)
}
