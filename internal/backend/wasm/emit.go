// Package wasm lowers bytecode programs to WebAssembly text.
//
// Translation is a single pass per method. Each instruction is dispatched
// through a Registry to the first handler that accepts it, and a FlowState
// turns forward branches into nested blocks as the walk goes. Sites that
// cannot be lowered are replaced by a comment and recorded as warnings in
// the emitter's diagnostics bag; strict mode turns them into an error once
// the whole program has been emitted.
package wasm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ilwasm/internal/diag"
	"ilwasm/internal/il"
	"ilwasm/internal/layout"
	"ilwasm/internal/symbols"
	"ilwasm/internal/trace"
	"ilwasm/internal/types"
	"ilwasm/internal/wat"
)

const (
	DefaultMemoryPages = 1
	DefaultAllocator   = "__alloc"
)

// ErrDegraded is returned in strict mode when any site was degraded.
var ErrDegraded = errors.New("translation degraded")

type Options struct {
	// ProgramName labels diagnostics and trace events.
	ProgramName string
	MemoryPages int
	// Allocator is the bump allocator symbol, without "$".
	Allocator      string
	Strict         bool
	MaxDiagnostics int
	Registry       *Registry
	Tracer         trace.Tracer
	// TraceParent is the span the translate span nests under.
	TraceParent uint64
}

type Stats struct {
	Types        int
	Methods      int
	Imports      int
	Globals      int
	Exports      int
	Blocks       int
	Instructions int
	Degraded     int
}

type Result struct {
	Text        string
	Diagnostics *diag.Bag
	Stats       Stats
}

type Emitter struct {
	prog     *il.Program
	opts     Options
	registry *Registry
	layout   *layout.LayoutEngine
	bag      *diag.Bag
	reporter diag.Reporter
	tracer   trace.Tracer
	stats    Stats
}

// NewEmitter prepares an emitter for prog, filling in option defaults.
func NewEmitter(prog *il.Program, opts Options) *Emitter {
	if opts.MemoryPages <= 0 {
		opts.MemoryPages = DefaultMemoryPages
	}
	if opts.Allocator == "" {
		opts.Allocator = DefaultAllocator
	}
	if opts.ProgramName == "" && prog != nil {
		opts.ProgramName = prog.Name
	}
	reg := opts.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	tr := opts.Tracer
	if tr == nil {
		tr = trace.Nop
	}
	bag := diag.NewBag(opts.MaxDiagnostics)
	return &Emitter{
		prog:     prog,
		opts:     opts,
		registry: reg,
		layout:   layout.New(layout.Wasm32()),
		bag:      bag,
		reporter: diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		tracer:   tr,
	}
}

// EmitProgram translates prog into a WAT module held in memory.
func EmitProgram(prog *il.Program, opts Options) (Result, error) {
	var sb strings.Builder
	e := NewEmitter(prog, opts)
	err := e.EmitTo(wat.NewTextWriter(&sb))
	return Result{Text: sb.String(), Diagnostics: e.bag, Stats: e.stats}, err
}

// Diagnostics returns the warnings collected so far.
func (e *Emitter) Diagnostics() *diag.Bag { return e.bag }

// Stats returns counters for the last EmitTo call.
func (e *Emitter) Stats() Stats { return e.stats }

// EmitTo writes the whole module to w and flushes it.
func (e *Emitter) EmitTo(w wat.Writer) error {
	if e.prog == nil {
		return errors.New("wasm: nil program")
	}
	if e.opts.MemoryPages > layout.Wasm32().MaxPages() {
		return fmt.Errorf("wasm: memory of %d pages exceeds the wasm32 limit", e.opts.MemoryPages)
	}
	if !symbols.IsValid(e.opts.Allocator) {
		return fmt.Errorf("wasm: invalid allocator symbol %q", e.opts.Allocator)
	}
	e.stats = Stats{}
	span := trace.Begin(e.tracer, trace.ScopeProgram, "translate:"+e.opts.ProgramName, e.opts.TraceParent)

	w.BeginModule()
	e.emitImports(w)
	w.DeclareMemory(e.opts.MemoryPages)
	for _, mod := range e.prog.Modules {
		for _, t := range mod.Types {
			e.emitType(w, t, span.ID())
		}
	}
	w.EndModule()
	if err := w.Flush(); err != nil {
		span.End("write failed")
		return fmt.Errorf("write module %s: %w", e.opts.ProgramName, err)
	}

	e.stats.Degraded = e.bag.CountDegraded()
	span.WithExtra("methods", strconv.Itoa(e.stats.Methods)).
		WithExtra("degraded", strconv.Itoa(e.stats.Degraded))
	if e.opts.Strict && e.stats.Degraded > 0 {
		diag.ReportError(e.reporter, diag.TrStrictViolation,
			diag.Location{Program: e.opts.ProgramName, Offset: diag.NoOffset},
			fmt.Sprintf("%d site(s) could not be translated", e.stats.Degraded)).Emit()
		span.End("strict")
		return fmt.Errorf("%s: %w: %d site(s)", e.opts.ProgramName, ErrDegraded, e.stats.Degraded)
	}
	span.End("")
	return nil
}

func (e *Emitter) report(code diag.Code, loc diag.Location, msg string) {
	e.reporter.Report(code, diag.SevWarning, loc, msg, nil)
}

func (e *Emitter) emitImports(w wat.Writer) {
	seen := make(map[il.ImportTag]string)
	e.prog.WalkTypes(func(t *il.Type) {
		for _, m := range t.Methods {
			if m.Import == nil {
				continue
			}
			imp := wat.Import{
				Module: m.Import.Module,
				Name:   m.Import.Name,
				Symbol: symbols.Import(m.Import),
				Result: types.Invalid,
			}
			if m.HasThis() {
				imp.Params = append(imp.Params, types.I32)
			}
			for _, p := range m.Params {
				imp.Params = append(imp.Params, types.StorageOf(p.Type))
			}
			if vt, ok := types.ResultOf(m.Return); ok {
				imp.Result = vt
			}
			sig := importSignature(imp)
			if prev, dup := seen[*m.Import]; dup {
				if prev != sig {
					e.report(diag.TrImportSignature, diag.Location{
						Program: e.opts.ProgramName, Type: t.FullName(), Method: m.Name, Offset: diag.NoOffset,
					}, fmt.Sprintf("import %s.%s redeclared as %s, first declared as %s", imp.Module, imp.Name, sig, prev))
				}
				continue
			}
			seen[*m.Import] = sig
			w.DeclareImport(imp)
			e.stats.Imports++
		}
	})
}

func importSignature(imp wat.Import) string {
	parts := make([]string, 0, len(imp.Params))
	for _, p := range imp.Params {
		parts = append(parts, p.String())
	}
	sig := "(" + strings.Join(parts, ",") + ")"
	if imp.Result != types.Invalid {
		sig += imp.Result.String()
	}
	return sig
}

func (e *Emitter) emitType(w wat.Writer, t *il.Type, parent uint64) {
	span := trace.Begin(e.tracer, trace.ScopeType, "type:"+t.FullName(), parent)
	e.stats.Types++
	for _, f := range t.Fields {
		if !f.Static {
			continue
		}
		vt := types.StorageOf(f.Type)
		w.DeclareGlobal(wat.Global{
			Symbol:  symbols.FieldDecl(f),
			Type:    vt,
			Mutable: !f.InitOnly,
			Init:    types.ZeroLiteral(vt),
		})
		e.stats.Globals++
	}
	for _, m := range t.Methods {
		e.emitMethod(w, m, span.ID())
	}
	for _, nested := range t.Nested {
		e.emitType(w, nested, span.ID())
	}
	span.WithExtra("methods", strconv.Itoa(len(t.Methods))).End("")
}
