// Package main implements the ilwasm CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ilwasm/internal/buildpipeline"
	"ilwasm/internal/encode"
	"ilwasm/internal/ilio"
	"ilwasm/internal/observ"
	"ilwasm/internal/trace"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [paths...]",
	Short: "Translate program containers to WebAssembly",
	Long: `Translate program containers (.ilpk, .ilcb) to WebAssembly text, and
optionally assemble them into binary modules. Without paths, the inputs listed
in ilwasm.toml are built. One artefact is written per program, named after it.`,
	RunE: buildExecution,
}

func buildExecution(cmd *cobra.Command, args []string) error {
	outputValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	outDirFlag, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return err
	}
	strictFlag, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return err
	}
	memoryPages, err := cmd.Flags().GetInt("memory-pages")
	if err != nil {
		return err
	}
	allocator, err := cmd.Flags().GetString("allocator")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	encoderPath, err := cmd.Flags().GetString("encoder")
	if err != nil {
		return err
	}
	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	diagFormat, err := cmd.Flags().GetString("diag-format")
	if err != nil {
		return err
	}
	var shortDiagnostics bool
	switch strings.ToLower(strings.TrimSpace(diagFormat)) {
	case "pretty":
	case "short":
		shortDiagnostics = true
	default:
		return fmt.Errorf("unsupported --diag-format %q (must be pretty or short)", diagFormat)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	manifest, manifestFound, err := loadProjectManifest(".")
	if err != nil {
		return err
	}

	req := buildpipeline.BuildRequest{Output: buildpipeline.OutputWAT}
	var inputs []string
	switch {
	case len(args) > 0:
		inputs = args
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			cwd = "."
		}
		req.BaseDir = cwd
		req.OutDir = cwd
	case manifestFound:
		inputs = manifest.Config.Build.Inputs
		if len(inputs) == 0 {
			return fmt.Errorf("%s: [build].inputs is empty", manifest.Path)
		}
		req.BaseDir = manifest.Root
	default:
		return errors.New(noManifestMessage)
	}
	if manifestFound {
		req.OutDir = manifest.outDir()
		req.Output = manifest.output()
		req.Translate = manifest.translateOptions()
		req.Jobs = manifest.Config.Build.Jobs
		req.Encoder = encode.Tool{Path: manifest.Config.Encoder.Path, Args: manifest.Config.Encoder.Args}
	}

	// flags override the manifest
	if cmd.Flags().Changed("output") {
		if req.Output, err = buildpipeline.ParseOutput(outputValue); err != nil {
			return err
		}
	}
	if outDirFlag != "" {
		req.OutDir = outDirFlag
	}
	if cmd.Flags().Changed("strict") {
		req.Translate.Strict = strictFlag
	}
	if cmd.Flags().Changed("memory-pages") {
		req.Translate.MemoryPages = memoryPages
	}
	if cmd.Flags().Changed("allocator") {
		req.Translate.Allocator = allocator
	}
	if cmd.Flags().Changed("jobs") {
		req.Jobs = jobs
	}
	if encoderPath != "" {
		req.Encoder.Path = encoderPath
	}
	req.Encoder.PrintCommands = printCommands
	req.Translate.MaxDiagnostics = maxDiagnostics

	files, err := buildpipeline.ExpandInputs(inputs, req.BaseDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no program containers (%s, %s) found", ilio.ExtMsgpack, ilio.ExtCBOR)
	}
	req.Files = files
	req.Tracer = trace.FromContext(cmd.Context())
	timer := observ.NewTimer()
	req.Timer = timer

	var buildRes buildpipeline.BuildResult
	if shouldUseTUI(uiModeValue) && !quiet {
		buildRes, err = runBuildWithUI(cmd.Context(), "ilwasm build", files, &req)
	} else {
		buildRes, err = buildpipeline.Build(cmd.Context(), &req)
	}

	out := cmd.OutOrStdout()
	printDiagnostics(cmd.ErrOrStderr(), buildRes, quiet, shortDiagnostics)
	if showTimings {
		printStageTimings(out, buildRes.Timings, timer)
	}
	if err != nil {
		dumpTraceRing(cmd)
		return err
	}
	if !quiet {
		for _, p := range buildRes.Programs {
			for _, path := range []string{p.WatPath, p.WasmPath} {
				if path == "" {
					continue
				}
				if _, printErr := fmt.Fprintf(out, "built %s (%d methods, %d degraded)\n",
					formatPathForOutput(req.BaseDir, path), p.Stats.Methods, p.Stats.Degraded); printErr != nil {
					return printErr
				}
			}
		}
	}
	return nil
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func init() {
	buildCmd.Flags().String("output", string(buildpipeline.OutputWAT), "artefacts to produce (wat|wasm|both)")
	buildCmd.Flags().String("out-dir", "", "output directory (default: [build].out_dir or the current directory)")
	buildCmd.Flags().Bool("strict", false, "fail when any instruction was degraded")
	buildCmd.Flags().Int("memory-pages", 1, "initial linear memory size in 64 KiB pages")
	buildCmd.Flags().String("allocator", "__alloc", "bump allocator function symbol")
	buildCmd.Flags().Int("jobs", 0, "programs translated in parallel (0 = GOMAXPROCS)")
	buildCmd.Flags().String("encoder", "", "WAT assembler executable (default: [encoder].path or wat2wasm)")
	buildCmd.Flags().Bool("print-commands", false, "print assembler command lines")
	buildCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	buildCmd.Flags().String("diag-format", "pretty", "diagnostic output (pretty|short)")
}
