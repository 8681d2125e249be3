package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, manifest string, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "cairom.toml"), []byte(manifest), 0o644))
	for rel, content := range files {
		path := filepath.Join(root, "src", rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestRunCompilesAndWritesOutput(t *testing.T) {
	root := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": "fn main() -> felt { return 1 + 2; }",
	})
	out := filepath.Join(t.TempDir(), "program.json")

	code := run([]string{"--input", root, "--output", out})
	require.Equal(t, 0, code)

	body, err := os.ReadFile(out)
	require.NoError(t, err)

	var decoded struct {
		Instructions [][]interface{}   `json:"instructions"`
		Entrypoints  map[string]int    `json:"entrypoints"`
		Metadata     map[string]string `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Contains(t, decoded.Entrypoints, "main")
	require.NotEmpty(t, decoded.Instructions)
	require.Equal(t, "dev", decoded.Metadata["compiler_version"])
	require.NotEmpty(t, decoded.Metadata["source_hash"])
}

func TestRunReturnsOneOnDiagnosticErrors(t *testing.T) {
	root := writeProject(t, `name = "demo"`, map[string]string{
		"main.cm": "fn main() -> felt { return undefined_name; }",
	})

	code := run([]string{"--input", root})
	require.Equal(t, 1, code)
}

func TestRunReturnsTwoOnMissingManifest(t *testing.T) {
	root := t.TempDir()
	code := run([]string{"--input", root})
	require.Equal(t, 2, code)
}

func TestRunSelfTestFlag(t *testing.T) {
	require.Equal(t, 0, run([]string{"--self-test"}))
}
