// Package runtimecfg loads the settings a host needs to construct and
// configure a machine.VM: the memory cap, stack size, GC growth factor,
// and the list of directories searched for imported modules. Two
// sources are supported and layered the way the teacher's CLI layers
// flags over environment variables: a committed nightjar.yaml manifest
// provides defaults, and environment variables override them.
package runtimecfg

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds every VM-construction setting a host needs before it can
// call machine.NewVM and wire up import resolution (§9.3).
type Config struct {
	MaxMemoryBytes int64    `env:"NIGHTJAR_MAX_MEMORY_BYTES" yaml:"-"`
	StackSizeBytes int64    `env:"NIGHTJAR_STACK_SIZE_BYTES" yaml:"-"`
	GCGrowFactor   float64  `env:"NIGHTJAR_GC_GROW_FACTOR" envDefault:"2.0" yaml:"-"`
	ImportRoots    []string `env:"NIGHTJAR_IMPORT_ROOTS" envSeparator:":" yaml:"import_roots"`
}

// manifest is the subset of nightjar.yaml fields this binary reads; a
// manifest may carry other host-specific keys this struct ignores.
type manifest struct {
	ImportRoots []string `yaml:"import_roots"`
}

// FromEnv reads every NIGHTJAR_* environment variable into a Config,
// using caarlos0/env's struct tags (§9.3).
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromManifest parses an optional nightjar.yaml at path, returning the
// environment-only Config of FromEnv (not an error) if the file does not
// exist -- a project need not commit one. Any NIGHTJAR_* environment variable that
// is set overrides the corresponding manifest value (§9.3).
func FromManifest(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FromEnv()
		}
		return Config{}, err
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, err
	}
	cfg.ImportRoots = m.ImportRoots

	envCfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if envRoots := strings.TrimSpace(os.Getenv("NIGHTJAR_IMPORT_ROOTS")); envRoots != "" {
		cfg.ImportRoots = envCfg.ImportRoots
	}
	cfg.MaxMemoryBytes = envCfg.MaxMemoryBytes
	cfg.StackSizeBytes = envCfg.StackSizeBytes
	cfg.GCGrowFactor = envCfg.GCGrowFactor

	return cfg, nil
}
