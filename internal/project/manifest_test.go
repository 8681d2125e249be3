package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadManifestAppliesDefaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, manifestFile), []byte(`name = "demo"`), 0o644))

	m, err := LoadManifest(root)
	require.NoError(t, err)
	require.Equal(t, "demo", m.Name)
	require.Equal(t, defaultVersion, m.Version)
	require.Equal(t, "", m.EntryPoint)
}

func TestLoadManifestHonorsExplicitFields(t *testing.T) {
	root := t.TempDir()
	content := `name = "demo"
version = "1.2.3"
entry_point = "app"`
	require.NoError(t, os.WriteFile(filepath.Join(root, manifestFile), []byte(content), 0o644))

	m, err := LoadManifest(root)
	require.NoError(t, err)
	require.Equal(t, "1.2.3", m.Version)
	require.Equal(t, "app", m.EntryPoint)
}

func TestLoadManifestRejectsMalformedTOML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, manifestFile), []byte(`name = `), 0o644))

	_, err := LoadManifest(root)
	require.Error(t, err)
}

func TestLoadManifestRequiresName(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, manifestFile), []byte(`version = "0.1.0"`), 0o644))

	_, err := LoadManifest(root)
	require.Error(t, err)
}

func TestLoadManifestMissingFile(t *testing.T) {
	root := t.TempDir()
	_, err := LoadManifest(root)
	require.Error(t, err)
}
