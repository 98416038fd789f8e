// Package buildpipeline orchestrates loading, translation and encoding of
// program containers into WebAssembly artefacts.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ilwasm/internal/backend/wasm"
	"ilwasm/internal/diag"
	"ilwasm/internal/encode"
	"ilwasm/internal/il"
	"ilwasm/internal/ilio"
	"ilwasm/internal/observ"
	"ilwasm/internal/trace"
)

// BuildRequest configures a build of one or more program containers.
type BuildRequest struct {
	// Files are container paths, relative to BaseDir unless absolute.
	Files   []string
	BaseDir string
	OutDir  string
	Output  Output
	// Jobs bounds concurrent programs; 0 means GOMAXPROCS.
	Jobs int

	// Translate is the per-program emitter configuration. ProgramName and
	// Tracer are filled in by the pipeline.
	Translate wasm.Options
	Encoder   encode.Tool

	Progress ProgressSink
	Tracer   trace.Tracer
	Timer    *observ.Timer
}

// ProgramResult describes the outcome for one input.
type ProgramResult struct {
	File        string
	Program     string
	WatPath     string
	WasmPath    string
	Stats       wasm.Stats
	Diagnostics *diag.Bag
	Unresolved  []string
	Timings     Timings
	Err         error
}

// BuildResult captures build artefacts and timings, in input order.
type BuildResult struct {
	Programs []ProgramResult
	Timings  Timings
}

// Failed reports how many programs ended with an error.
func (r BuildResult) Failed() int {
	n := 0
	for _, p := range r.Programs {
		if p.Err != nil {
			n++
		}
	}
	return n
}

// Build translates every input. Programs are independent: a failure in one
// does not stop the others, and the returned error joins all failures.
// Cancellation is observed between programs.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	if len(req.Files) == 0 {
		return result, fmt.Errorf("no inputs to build")
	}
	if !req.Output.wantsWat() && !req.Output.wantsWasm() {
		return result, fmt.Errorf("unsupported output: %s (supported: wat, wasm, both)", req.Output)
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return result, fmt.Errorf("failed to create output dir: %w", err)
	}
	tracer := req.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	if req.Output.wantsWasm() {
		if _, err := req.Encoder.Resolve(); err != nil {
			return result, err
		}
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	ctx, span := trace.Start(trace.WithTracer(ctx, tracer), trace.ScopeDriver, "build")
	defer span.End(fmt.Sprintf("%d program(s)", len(req.Files)))
	trace.Point(tracer, trace.ScopeDriver, "inputs", fmt.Sprintf("%d file(s), %d job(s)", len(req.Files), jobs))

	emitQueued(req.Progress, req.Files)

	b := &builder{req: req, outDir: outDir, tracer: tracer}
	loaded := make([]*pending, len(req.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, file := range req.Files {
		g.Go(func() error {
			loaded[i] = b.load(gctx, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	// Names are claimed in input order, so of two colliding inputs the later
	// one always fails, whatever the scheduling of the loads.
	claimed := make(map[string]string, len(loaded))
	for _, p := range loaded {
		if p.res.Err != nil {
			continue
		}
		p.name = artifactName(p.res.Program, p.res.File)
		if prev, ok := claimed[p.name]; ok {
			p.collision = fmt.Errorf("program %q is also produced by %s", p.name, prev)
			trace.Point(tracer, trace.ScopeProgram, "collision", p.res.File+": "+p.collision.Error())
			continue
		}
		claimed[p.name] = p.res.File
	}

	result.Programs = make([]ProgramResult, len(req.Files))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, p := range loaded {
		g.Go(func() error {
			// results are per-slot; errors are collected below so siblings keep running
			result.Programs[i] = b.emit(gctx, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	var errs []error
	for _, p := range result.Programs {
		result.Timings.Add(p.Timings)
		if p.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.File, p.Err))
		}
	}
	return result, errors.Join(errs...)
}

type builder struct {
	req    *BuildRequest
	outDir string
	tracer trace.Tracer
}

// pending is a program between the load and emit phases.
type pending struct {
	res       ProgramResult
	span      *trace.Span
	prog      *il.Program
	name      string
	collision error
}

func (b *builder) load(ctx context.Context, file string) *pending {
	p := &pending{res: ProgramResult{File: file, Diagnostics: diag.NewBag(b.req.Translate.MaxDiagnostics)}}
	_, p.span = trace.Start(ctx, trace.ScopeProgram, "program:"+file)
	if err := ctx.Err(); err != nil {
		p.res.Err = err
		emitStage(b.req.Progress, file, StageLoad, StatusError, err, 0)
		return p
	}

	path := file
	if b.req.BaseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(b.req.BaseDir, path)
	}
	stage := b.start(file, StageLoad)
	prog, unresolved, err := ilio.Load(path)
	if err != nil {
		diag.ReportError(diag.BagReporter{Bag: p.res.Diagnostics}, diag.IODecodeError,
			diag.Location{Program: file, Offset: diag.NoOffset}, err.Error()).Emit()
		p.res.Err = b.finish(file, stage, &p.res.Timings, err)
		return p
	}
	p.res.Unresolved = unresolved
	for _, ref := range unresolved {
		diag.ReportWarning(diag.BagReporter{Bag: p.res.Diagnostics}, diag.IOUnresolvedRef,
			diag.Location{Program: prog.Name, Offset: diag.NoOffset}, "unresolved "+ref).Emit()
	}
	p.prog = prog
	p.res.Program = prog.Name
	b.finish(file, stage, &p.res.Timings, nil)
	return p
}

func (b *builder) emit(ctx context.Context, p *pending) (res ProgramResult) {
	res = p.res
	file := res.File
	defer func() {
		p.span.WithExtra("degraded", fmt.Sprint(res.Stats.Degraded)).End(errString(res.Err))
	}()
	if res.Err != nil {
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
		emitStage(b.req.Progress, file, StageTranslate, StatusError, err, 0)
		return res
	}
	prog, name := p.prog, p.name

	// translate
	stage := b.start(file, StageTranslate)
	if p.collision != nil {
		res.Err = b.finish(file, stage, &res.Timings, p.collision)
		return res
	}
	opts := b.req.Translate
	opts.ProgramName = prog.Name
	opts.Tracer = b.tracer
	opts.TraceParent = p.span.ID()
	out, err := wasm.EmitProgram(prog, opts)
	res.Stats = out.Stats
	if out.Diagnostics != nil {
		res.Diagnostics.Merge(out.Diagnostics)
	}
	if err != nil {
		res.Err = b.finish(file, stage, &res.Timings, err)
		return res
	}
	b.finish(file, stage, &res.Timings, nil)

	// encode
	var binary []byte
	if b.req.Output.wantsWasm() {
		stage = b.start(file, StageEncode)
		binary, err = b.req.Encoder.Encode(ctx, out.Text)
		if err != nil {
			code := diag.EncToolFailed
			if errors.Is(err, encode.ErrToolNotFound) {
				code = diag.EncNotFound
			}
			diag.ReportError(diag.BagReporter{Bag: res.Diagnostics}, code,
				diag.Location{Program: prog.Name, Offset: diag.NoOffset}, err.Error()).Emit()
			res.Err = b.finish(file, stage, &res.Timings, err)
			return res
		}
		b.finish(file, stage, &res.Timings, nil)
	}

	// write
	stage = b.start(file, StageWrite)
	if b.req.Output.wantsWat() {
		res.WatPath = filepath.Join(b.outDir, name+".wat")
		if err := writeFileAtomic(res.WatPath, []byte(out.Text)); err != nil {
			res.Err = b.finish(file, stage, &res.Timings, fmt.Errorf("failed to write %s: %w", res.WatPath, err))
			return res
		}
	}
	if binary != nil {
		res.WasmPath = filepath.Join(b.outDir, name+".wasm")
		if err := writeFileAtomic(res.WasmPath, binary); err != nil {
			res.Err = b.finish(file, stage, &res.Timings, fmt.Errorf("failed to write %s: %w", res.WasmPath, err))
			return res
		}
	}
	b.finish(file, stage, &res.Timings, nil)
	return res
}

// stageRun tracks one stage of one program.
type stageRun struct {
	stage   Stage
	started time.Time
	end     func(note string)
}

func (b *builder) start(file string, stage Stage) stageRun {
	emitStage(b.req.Progress, file, stage, StatusWorking, nil, 0)
	run := stageRun{stage: stage, started: time.Now()}
	if b.req.Timer != nil {
		run.end = b.req.Timer.Track(string(stage) + ":" + file)
	}
	return run
}

func (b *builder) finish(file string, run stageRun, t *Timings, err error) error {
	elapsed := time.Since(run.started)
	t.Set(run.stage, elapsed)
	status, note := StatusDone, ""
	if err != nil {
		status, note = StatusError, "error"
	}
	if run.end != nil {
		run.end(note)
	}
	emitStage(b.req.Progress, file, run.stage, status, err, elapsed)
	return err
}

// artifactName derives a file-safe base name from the program name, falling
// back to the input file name.
func artifactName(program, file string) string {
	name := strings.TrimSpace(program)
	if name == "" {
		base := filepath.Base(file)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func writeFileAtomic(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
