package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove build artefacts",
	Long:  "Remove the artefact directory of the project ([build].out_dir, default target/wasm).",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	base := "."
	if len(args) > 0 && args[0] != "" {
		base = args[0]
	}
	info, err := os.Stat(base)
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", base, err)
	}
	if !info.IsDir() {
		base = filepath.Dir(base)
	}
	manifest, ok, err := loadProjectManifest(base)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no ilwasm.toml found; nothing to clean")
	}

	out := cmd.OutOrStdout()
	targetDir := manifest.outDir()
	if rel, relErr := filepath.Rel(manifest.Root, targetDir); relErr != nil || rel == "." {
		return fmt.Errorf("refusing to remove %q: it is the project root", targetDir)
	}
	info, err = os.Stat(targetDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(out, "output directory not found")
			return nil
		}
		return fmt.Errorf("failed to stat %q: %w", targetDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", targetDir)
	}
	if err := os.RemoveAll(targetDir); err != nil {
		return fmt.Errorf("failed to remove %q: %w", targetDir, err)
	}
	fmt.Fprintf(out, "removed %s\n", formatPathForOutput(manifest.Root, targetDir))
	return nil
}
