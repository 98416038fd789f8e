package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"ilwasm/internal/buildpipeline"
	"ilwasm/internal/diag"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	codeColor    = color.New(color.Faint)
)

// printDiagnostics writes every program's diagnostics followed by the
// program-level failure. Quiet mode keeps errors only. The short form is one
// uncolored line per entry, stable across runs.
func printDiagnostics(w io.Writer, res buildpipeline.BuildResult, quiet, short bool) {
	for _, p := range res.Programs {
		if p.Diagnostics != nil {
			p.Diagnostics.Dedup()
			p.Diagnostics.Sort()
			items := p.Diagnostics.Items()
			if quiet {
				items = errorsOnly(items)
			}
			if short {
				if text := diag.FormatShortDiagnostics(items, true); text != "" {
					fmt.Fprintln(w, text)
				}
			} else {
				for _, d := range items {
					printDiagnostic(w, p.File, d)
				}
			}
			if dropped := p.Diagnostics.Dropped(); dropped > 0 && !quiet {
				fmt.Fprintf(w, "%s: %d more diagnostics not shown (--max-diagnostics)\n", p.File, dropped)
			}
		}
		if p.Err != nil && !alreadyReported(p) {
			fmt.Fprintf(w, "%s: %s %v\n", p.File, errorColor.Sprint("error:"), p.Err)
		}
	}
}

func printDiagnostic(w io.Writer, file string, d diag.Diagnostic) {
	label := infoColor.Sprint("info:")
	switch d.Severity {
	case diag.SevError:
		label = errorColor.Sprint("error:")
	case diag.SevWarning:
		label = warningColor.Sprint("warning:")
	}
	where := d.Primary.String()
	if where == "" {
		where = file
	}
	fmt.Fprintf(w, "%s: %s %s %s\n", where, label, d.Message, codeColor.Sprintf("[%s]", d.Code.ID()))
	for _, note := range d.Notes {
		fmt.Fprintf(w, "    note: %s: %s\n", note.Loc, note.Msg)
	}
}

// alreadyReported is true when an error diagnostic describes the failure.
func alreadyReported(p buildpipeline.ProgramResult) bool {
	return p.Diagnostics != nil && p.Diagnostics.HasErrors()
}

func errorsOnly(items []diag.Diagnostic) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(items))
	for _, d := range items {
		if d.Severity == diag.SevError {
			out = append(out, d)
		}
	}
	return out
}
