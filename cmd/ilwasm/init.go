package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize an ilwasm project",
	Long: `Initialize an ilwasm project by creating a manifest (ilwasm.toml) and a
programs/ directory for input containers. If [path|name] is omitted, the
current directory is used. A non-existing name creates the directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	target := wd
	if len(args) > 0 && args[0] != "." && args[0] != "" {
		target = args[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(wd, target)
		}
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "ilwasm-project"
	}

	manifestPath := filepath.Join(target, manifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}
	if err := os.WriteFile(manifestPath, []byte(defaultManifest(name)), 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(target, "programs"), 0o755); err != nil {
		return fmt.Errorf("failed to create programs directory: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized ilwasm project in %s\n", formatPathForOutput(wd, target))
	fmt.Fprintf(out, "  - %s\n", manifestName)
	fmt.Fprintf(out, "  - programs/\n")
	return nil
}

func defaultManifest(name string) string {
	return fmt.Sprintf(`# ilwasm project manifest
[package]
name = %q
version = "0.1.0"

[build]
inputs = ["programs"]
out_dir = "target/wasm"
memory_pages = 1
allocator = "__alloc"
strict = false
emit_wasm = false

[encoder]
path = "wat2wasm"
`, name)
}
