package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ilwasm/internal/il"
	"ilwasm/internal/ilio"
	"ilwasm/internal/layout"
	"ilwasm/internal/symbols"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <container>",
	Short: "Show the types, layouts and symbols of a program container",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectExecution,
}

type programReport struct {
	Program    string         `json:"program"`
	Format     string         `json:"format"`
	Modules    []moduleReport `json:"modules"`
	Unresolved []string       `json:"unresolved,omitempty"`
}

type moduleReport struct {
	Name  string       `json:"name"`
	Types []typeReport `json:"types"`
}

type typeReport struct {
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Size        int            `json:"size"`
	LayoutError string         `json:"layout_error,omitempty"`
	Fields      []fieldReport  `json:"fields,omitempty"`
	Methods     []methodReport `json:"methods,omitempty"`
}

type fieldReport struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Static bool   `json:"static,omitempty"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
}

type methodReport struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Symbol       string   `json:"symbol"`
	Params       []string `json:"params,omitempty"`
	Return       string   `json:"return"`
	Locals       int      `json:"locals"`
	Instructions int      `json:"instructions"`
	Import       bool     `json:"import,omitempty"`
}

func inspectExecution(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	containerFormat, err := ilio.FormatFromPath(args[0])
	if err != nil {
		return err
	}
	prog, unresolved, err := ilio.Load(args[0])
	if err != nil {
		return err
	}
	report := buildReport(prog, unresolved)
	report.Format = containerFormat.String()

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	renderReportPretty(cmd.OutOrStdout(), report)
	return nil
}

func buildReport(prog *il.Program, unresolved []string) programReport {
	engine := layout.New(layout.Wasm32())
	report := programReport{Program: prog.Name, Unresolved: unresolved}
	for _, mod := range prog.Modules {
		mr := moduleReport{Name: mod.Name}
		for _, t := range mod.Types {
			mr.Types = appendTypeReports(mr.Types, engine, t)
		}
		report.Modules = append(report.Modules, mr)
	}
	return report
}

// appendTypeReports adds t and then its nested types, depth first.
func appendTypeReports(out []typeReport, engine *layout.LayoutEngine, t *il.Type) []typeReport {
	tr := typeReport{Name: t.FullName(), Symbol: symbols.Type(t)}
	tl, err := engine.LayoutOf(t)
	if err != nil {
		tr.LayoutError = err.Error()
	}
	tr.Size = tl.Size
	for _, f := range t.Fields {
		fr := fieldReport{Name: f.Name, Type: f.Type.String(), Symbol: symbols.FieldDecl(f), Static: f.Static, Offset: -1}
		if slot, ok := tl.Slot(f); ok {
			fr.Offset, fr.Size = slot.Offset, slot.Size
		}
		tr.Fields = append(tr.Fields, fr)
	}
	for _, m := range t.Methods {
		mr := methodReport{
			Name:         m.Name,
			Kind:         m.Kind.String(),
			Symbol:       symbols.MethodDecl(m),
			Return:       m.Return.String(),
			Locals:       len(m.Locals),
			Instructions: len(m.Body),
			Import:       m.Import != nil,
		}
		for _, p := range m.Params {
			mr.Params = append(mr.Params, p.Type.String())
		}
		tr.Methods = append(tr.Methods, mr)
	}
	out = append(out, tr)
	for _, nested := range t.Nested {
		out = appendTypeReports(out, engine, nested)
	}
	return out
}

func renderReportPretty(out io.Writer, r programReport) {
	heading := color.New(color.Bold)
	faint := color.New(color.Faint)
	fmt.Fprintf(out, "%s %s\n", heading.Sprint("program"), r.Program)
	for _, mod := range r.Modules {
		fmt.Fprintf(out, "%s %s\n", heading.Sprint("module"), mod.Name)
		for _, t := range mod.Types {
			fmt.Fprintf(out, "  type %s %s\n", t.Name, faint.Sprintf("(%s, %d bytes)", t.Symbol, t.Size))
			if t.LayoutError != "" {
				fmt.Fprintf(out, "    layout: %s\n", t.LayoutError)
			}
			for _, f := range t.Fields {
				where := "global"
				if !f.Static {
					where = fmt.Sprintf("+%d:%d", f.Offset, f.Size)
				}
				fmt.Fprintf(out, "    field  %-12s %-16s %-8s $%s\n", f.Name, f.Type, where, f.Symbol)
			}
			for _, m := range t.Methods {
				sig := m.Name + "(" + strings.Join(m.Params, ", ") + ") " + m.Return
				body := fmt.Sprintf("%d instrs", m.Instructions)
				if m.Import {
					body = "import"
				}
				fmt.Fprintf(out, "    method %-32s %-10s $%s\n", sig, body, m.Symbol)
			}
		}
	}
	for _, ref := range r.Unresolved {
		fmt.Fprintf(out, "%s %s\n", warningColor.Sprint("unresolved"), ref)
	}
}

func init() {
	inspectCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}
