package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ilwasm/internal/backend/wasm"
	"ilwasm/internal/buildpipeline"
	"ilwasm/internal/symbols"
)

const manifestName = "ilwasm.toml"

const noManifestMessage = "no ilwasm.toml found\nplease pass the program containers explicitly, e.g.:\n  ilwasm build path/to/program.ilpk"

type projectManifest struct {
	Path   string
	Root   string
	Config projectConfig
}

type projectConfig struct {
	Package packageConfig `toml:"package"`
	Build   buildConfig   `toml:"build"`
	Encoder encoderConfig `toml:"encoder"`
}

type packageConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type buildConfig struct {
	Inputs      []string `toml:"inputs"`
	OutDir      string   `toml:"out_dir"`
	MemoryPages int      `toml:"memory_pages"`
	Allocator   string   `toml:"allocator"`
	Strict      bool     `toml:"strict"`
	EmitWasm    bool     `toml:"emit_wasm"`
	Jobs        int      `toml:"jobs"`
}

type encoderConfig struct {
	Path string   `toml:"path"`
	Args []string `toml:"args"`
}

func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadProjectManifest(startDir string) (*projectManifest, bool, error) {
	manifestPath, ok, err := findManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadProjectConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &projectManifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return projectConfig{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("package") {
		return projectConfig{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return projectConfig{}, fmt.Errorf("%s: missing [package].name", path)
	}
	if meta.IsDefined("build", "memory_pages") && cfg.Build.MemoryPages <= 0 {
		return projectConfig{}, fmt.Errorf("%s: [build].memory_pages must be positive", path)
	}
	if meta.IsDefined("build", "allocator") && !symbols.IsValid(cfg.Build.Allocator) {
		return projectConfig{}, fmt.Errorf("%s: [build].allocator %q is not a valid symbol", path, cfg.Build.Allocator)
	}
	if meta.IsDefined("build", "jobs") && cfg.Build.Jobs < 0 {
		return projectConfig{}, fmt.Errorf("%s: [build].jobs must not be negative", path)
	}
	if meta.IsDefined("encoder", "path") && strings.TrimSpace(cfg.Encoder.Path) == "" {
		return projectConfig{}, fmt.Errorf("%s: [encoder].path is empty", path)
	}
	return cfg, nil
}

// outDir resolves [build].out_dir against the manifest root.
func (m *projectManifest) outDir() string {
	dir := strings.TrimSpace(m.Config.Build.OutDir)
	if dir == "" {
		dir = filepath.Join("target", "wasm")
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.Root, filepath.FromSlash(dir))
}

func (m *projectManifest) output() buildpipeline.Output {
	if m.Config.Build.EmitWasm {
		return buildpipeline.OutputBoth
	}
	return buildpipeline.OutputWAT
}

func (m *projectManifest) translateOptions() wasm.Options {
	return wasm.Options{
		MemoryPages: m.Config.Build.MemoryPages,
		Allocator:   m.Config.Build.Allocator,
		Strict:      m.Config.Build.Strict,
	}
}
