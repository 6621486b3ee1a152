package runtimecfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvReadsVariables(t *testing.T) {
	t.Setenv("NIGHTJAR_MAX_MEMORY_BYTES", "1048576")
	t.Setenv("NIGHTJAR_STACK_SIZE_BYTES", "65536")
	t.Setenv("NIGHTJAR_IMPORT_ROOTS", "./a:./b:./c")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, int64(1048576), cfg.MaxMemoryBytes)
	require.Equal(t, int64(65536), cfg.StackSizeBytes)
	require.Equal(t, []string{"./a", "./b", "./c"}, cfg.ImportRoots)
}

func TestFromEnvDefaultsGCGrowFactor(t *testing.T) {
	os.Unsetenv("NIGHTJAR_GC_GROW_FACTOR")
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, 2.0, cfg.GCGrowFactor)
}

func TestFromManifestMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("NIGHTJAR_IMPORT_ROOTS", "./lib")
	cfg, err := FromManifest(filepath.Join(t.TempDir(), "nightjar.yaml"))
	require.NoError(t, err)
	require.Equal(t, []string{"./lib"}, cfg.ImportRoots)
}

func TestFromManifestReadsImportRoots(t *testing.T) {
	os.Unsetenv("NIGHTJAR_IMPORT_ROOTS")
	dir := t.TempDir()
	path := filepath.Join(dir, "nightjar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("import_roots:\n  - ./vendor/nj\n  - ./lib\n"), 0o644))

	cfg, err := FromManifest(path)
	require.NoError(t, err)
	require.Equal(t, []string{"./vendor/nj", "./lib"}, cfg.ImportRoots)
}

func TestFromManifestEnvOverridesImportRoots(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nightjar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("import_roots:\n  - ./from-manifest\n"), 0o644))
	t.Setenv("NIGHTJAR_IMPORT_ROOTS", "./from-env")

	cfg, err := FromManifest(path)
	require.NoError(t, err)
	require.Equal(t, []string{"./from-env"}, cfg.ImportRoots)
}
