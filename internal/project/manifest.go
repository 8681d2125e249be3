// Package project implements manifest parsing and source-tree discovery for
// a Cairo-M project: reading cairom.toml, enumerating the `::`-separated
// module tree under src/, and ordering a caller-supplied `use` graph with
// BuildOrder, which rejects a cyclic graph with MAN004.
package project

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
)

const (
	defaultVersion = "0.1.0"
	manifestFile   = "cairom.toml"
	sourceDir      = "src"
)

// Manifest is the parsed contents of a project's cairom.toml.
type Manifest struct {
	Name       string `toml:"name"`
	Version    string `toml:"version"`
	EntryPoint string `toml:"entry_point"`
}

func (m *Manifest) applyDefaults() {
	if m.Version == "" {
		m.Version = defaultVersion
	}
}

// LoadManifest reads and parses the cairom.toml at root. Missing fields take
// their documented defaults: version "0.1.0", entry_point resolved later by
// Load against whichever of main.cm/lib.cm is present on disk.
func LoadManifest(root string) (*Manifest, error) {
	path := root + string(os.PathSeparator) + manifestFile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.Newf(diagnostics.MAN001, "manifest", diagnostics.Span{},
			"cannot read manifest %s: %v", path, err))
	}

	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, diagnostics.Wrap(diagnostics.Newf(diagnostics.MAN002, "manifest", diagnostics.Span{},
			"malformed manifest %s: %v", path, err))
	}
	if m.Name == "" {
		return nil, diagnostics.Wrap(diagnostics.Newf(diagnostics.MAN002, "manifest", diagnostics.Span{},
			"manifest %s is missing required field 'name'", path))
	}
	m.applyDefaults()
	return &m, nil
}

func (m *Manifest) String() string {
	return fmt.Sprintf("%s v%s (entry=%s)", m.Name, m.Version, m.EntryPoint)
}
