package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ilwasm/internal/ilio"
)

var packCmd = &cobra.Command{
	Use:   "pack [flags] <input> <output>",
	Short: "Convert a program container between msgpack and CBOR",
	Long: `Read a program container and write it back out. The output encoding is
taken from --format, or else from the output extension (.ilpk, .ilcb).`,
	Args: cobra.ExactArgs(2),
	RunE: packExecution,
}

func packExecution(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	in, out := args[0], args[1]

	if strings.TrimSpace(formatValue) != "" {
		f, parseErr := ilio.ParseFormat(formatValue)
		if parseErr != nil {
			return parseErr
		}
		if filepath.Ext(out) == "" {
			out += f.Ext()
		} else if got, extErr := ilio.FormatFromPath(out); extErr != nil || got != f {
			return fmt.Errorf("output %s does not match --format %s (want %s)", out, f, f.Ext())
		}
	}

	prog, unresolved, err := ilio.Load(in)
	if err != nil {
		return err
	}
	if err := ilio.Save(out, prog); err != nil {
		return err
	}
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "packed %s -> %s (%d unresolved)\n", in, out, len(unresolved))
	}
	return nil
}

func init() {
	packCmd.Flags().String("format", "", "container encoding (msgpack|cbor)")
}
