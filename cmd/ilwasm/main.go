package main

import (
	"os"

	"github.com/spf13/cobra"

	"ilwasm/internal/version"
)

// runCleanup stops tracing and profiling started by PersistentPreRunE.
var runCleanup func()

func finish() {
	if runCleanup != nil {
		runCleanup()
		runCleanup = nil
	}
}

var rootCmd = &cobra.Command{
	Use:   "ilwasm",
	Short: "Translate stack bytecode programs to WebAssembly",
	Long: `ilwasm reads program containers produced by a bytecode reader and
translates each program into a single WebAssembly text module.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		colorValue, err := cmd.Root().PersistentFlags().GetString("color")
		if err != nil {
			return err
		}
		if err := applyColorMode(colorValue); err != nil {
			return err
		}
		stopProfiling, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		stopTracing, err := setupTracing(cmd)
		if err != nil {
			stopProfiling()
			return err
		}
		runCleanup = func() {
			stopTracing()
			stopProfiling()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		finish()
	},
}

func newRootCmd() *cobra.Command {
	rootCmd.Version = version.Painted()
	return rootCmd
}

func main() {
	cmd := newRootCmd()
	err := cmd.Execute()
	// PersistentPostRun is skipped when RunE fails
	finish()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics kept per program")

	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "ring", "trace storage (stream|ring|both|log)")
	flags.Int("trace-ring-size", 4096, "ring buffer capacity")
	flags.Duration("trace-heartbeat", 0, "heartbeat interval (0 disables)")
	flags.CountP("verbose", "v", "increase log verbosity")
	flags.String("log-file", "", "write logs to a file instead of stderr")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")
}
