package driver

import (
	"github.com/cairo-m/cairo-m-compiler/internal/codegen"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/mir"
)

// Program runs every project module through Optimize and merges their MIR
// into one mir.Module before handing it to internal/codegen — spec.md §6.3's
// "compile the whole project", generalized from per-module queries to a
// single whole-program artifact. A name collision between two modules'
// functions or structs is reported rather than silently letting one shadow
// the other, since spec.md's module system namespaces by `use`, not by a
// flat merged symbol table.
func (d *Driver) Program() (*codegen.Program, *diagnostics.Sink) {
	sink := diagnostics.NewSink()
	merged := mir.NewModule(d.Project.Manifest.Name)

	for _, path := range d.Project.SortedPaths() {
		mod, modSink := d.Optimize(path)
		sink.PushAll(modSink.All())
		if mod == nil {
			continue
		}
		for name, fn := range mod.Functions {
			if _, exists := merged.Functions[name]; exists {
				sink.Push(diagnostics.Newf(diagnostics.MAN005, "driver", diagnostics.Span{},
					"function %q is defined in more than one module", name))
				continue
			}
			merged.Functions[name] = fn
		}
		for name, st := range mod.Structs {
			if _, exists := merged.Structs[name]; exists {
				sink.Push(diagnostics.Newf(diagnostics.MAN005, "driver", diagnostics.Span{},
					"struct %q is defined in more than one module", name))
				continue
			}
			merged.Structs[name] = st
		}
	}

	if sink.HasErrors() {
		return nil, sink
	}

	// d.Project.Main names the entry *module* (spec.md's `entry_point`
	// manifest key, default main.cm/lib.cm); codegen itself makes every
	// function in the merged program an addressable entrypoint (spec.md
	// §6.4's `entrypoints: name -> pc`), so there is no single required
	// "main" function name to validate here.
	prog := codegen.Compile(merged, sink)
	if sink.HasErrors() {
		return nil, sink
	}
	return prog, sink
}
