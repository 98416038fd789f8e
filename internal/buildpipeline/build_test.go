package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"

	"ilwasm/internal/backend/wasm"
	"ilwasm/internal/encode"
	"ilwasm/internal/ilio"
	"ilwasm/internal/observ"
	"ilwasm/internal/testkit"
	"ilwasm/internal/trace"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) stages(file string, status Status) []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Stage
	for _, e := range r.events {
		if e.File == file && e.Status == status {
			out = append(out, e.Stage)
		}
	}
	return out
}

func writeInputs(t *testing.T, dir string, names map[string]string) {
	t.Helper()
	for file, program := range names {
		if err := ilio.Save(filepath.Join(dir, file), testkit.SampleProgram(program)); err != nil {
			t.Fatalf("Save %s: %v", file, err)
		}
	}
}

func TestBuildWritesArtifactsNamedAfterProgram(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeInputs(t, in, map[string]string{"one.ilpk": "alpha", "nested/two.ilcb": "beta gamma"})
	files, err := ExpandInputs([]string{"."}, in)
	if err != nil {
		t.Fatalf("ExpandInputs: %v", err)
	}
	if !slices.Equal(files, []string{"nested/two.ilcb", "one.ilpk"}) {
		t.Fatalf("files = %v", files)
	}

	rec := &recorder{}
	timer := observ.NewTimer()
	res, err := Build(context.Background(), &BuildRequest{
		Files: files, BaseDir: in, OutDir: out, Output: OutputWAT, Jobs: 2,
		Progress: rec, Timer: timer,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := map[string]string{"one.ilpk": "alpha.wat", "nested/two.ilcb": "beta_gamma.wat"}
	for _, p := range res.Programs {
		if filepath.Base(p.WatPath) != want[p.File] || p.WasmPath != "" {
			t.Fatalf("%s written to %q", p.File, p.WatPath)
		}
		text, err := os.ReadFile(p.WatPath)
		if err != nil {
			t.Fatalf("read %s: %v", p.WatPath, err)
		}
		if err := testkit.CheckModule(string(text)); err != nil {
			t.Fatalf("%s: %v", p.WatPath, err)
		}
		if p.Stats.Degraded == 0 || !p.Diagnostics.HasWarnings() {
			t.Fatalf("the sample's box instruction should degrade: %+v", p.Stats)
		}
		if got := rec.stages(p.File, StatusDone); !slices.Equal(got, []Stage{StageLoad, StageTranslate, StageWrite}) {
			t.Fatalf("%s finished stages %v", p.File, got)
		}
	}
	if !res.Timings.Has(StageTranslate) || res.Timings.Has(StageEncode) {
		t.Fatalf("unexpected timings: %+v", res.Timings)
	}
	if len(timer.Report().Phases) != 6 {
		t.Fatalf("timer phases = %d", len(timer.Report().Phases))
	}
	leftovers, _ := filepath.Glob(filepath.Join(out, "tmp-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestBuildRejectsCollidingArtifacts(t *testing.T) {
	in := t.TempDir()
	writeInputs(t, in, map[string]string{"a.ilpk": "same", "b.ilcb": "same"})
	res, err := Build(context.Background(), &BuildRequest{
		Files: []string{"a.ilpk", "b.ilcb"}, BaseDir: in, OutDir: t.TempDir(), Jobs: 1,
	})
	if err == nil || !strings.Contains(err.Error(), "also produced by a.ilpk") {
		t.Fatalf("expected a collision error, got %v", err)
	}
	if res.Failed() != 1 || res.Programs[0].Err != nil {
		t.Fatalf("first program should still build: %+v", res.Programs)
	}
}

func TestCollisionsFailTheLaterInputUnderConcurrency(t *testing.T) {
	in := t.TempDir()
	files := []string{"a.ilpk", "b.ilcb", "c.ilpk", "d.ilcb", "e.ilpk", "f.ilcb"}
	inputs := make(map[string]string, len(files))
	for _, f := range files {
		inputs[f] = "same"
	}
	writeInputs(t, in, inputs)
	for run := range 10 {
		res, err := Build(context.Background(), &BuildRequest{
			Files: files, BaseDir: in, OutDir: t.TempDir(), Jobs: len(files),
		})
		if err == nil {
			t.Fatalf("run %d: expected collision errors", run)
		}
		if res.Programs[0].Err != nil {
			t.Fatalf("run %d: first input failed: %v", run, res.Programs[0].Err)
		}
		for _, p := range res.Programs[1:] {
			if p.Err == nil || !strings.Contains(p.Err.Error(), "also produced by a.ilpk") {
				t.Fatalf("run %d: %s: expected a collision with a.ilpk, got %v", run, p.File, p.Err)
			}
		}
	}
}

func TestBuildTraceNestsProgramsUnderBuild(t *testing.T) {
	in := t.TempDir()
	writeInputs(t, in, map[string]string{"a.ilpk": "alpha", "b.ilpk": "beta"})
	ring := trace.NewRingTracer(0, trace.LevelPhase)
	_, err := Build(trace.WithTracer(context.Background(), ring), &BuildRequest{
		Files: []string{"a.ilpk", "b.ilpk"}, BaseDir: in, OutDir: t.TempDir(), Jobs: 2,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	begins := make(map[string]trace.Event)
	var inputs *trace.Event
	for _, ev := range ring.Snapshot() {
		switch ev.Kind {
		case trace.KindSpanBegin:
			begins[ev.Name] = ev
		case trace.KindPoint:
			if ev.Name == "inputs" {
				inputs = &ev
			}
		}
	}
	build, ok := begins["build"]
	if !ok {
		t.Fatalf("no build span in %v", ring.Snapshot())
	}
	if inputs == nil || inputs.Detail != "2 file(s), 2 job(s)" {
		t.Fatalf("inputs point = %+v", inputs)
	}
	for file, prog := range map[string]string{"a.ilpk": "alpha", "b.ilpk": "beta"} {
		ps, ok := begins["program:"+file]
		if !ok || ps.ParentID != build.SpanID {
			t.Fatalf("program span for %s = %+v, want parent %d", file, ps, build.SpanID)
		}
		ts, ok := begins["translate:"+prog]
		if !ok || ts.ParentID != ps.SpanID {
			t.Fatalf("translate span for %s = %+v, want parent %d", prog, ts, ps.SpanID)
		}
	}
}

func TestStrictFailuresDoNotStopSiblings(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeInputs(t, in, map[string]string{"a.ilpk": "a", "b.ilpk": "b"})
	res, err := Build(context.Background(), &BuildRequest{
		Files: []string{"a.ilpk", "b.ilpk"}, BaseDir: in, OutDir: out,
		Translate: wasm.Options{Strict: true},
	})
	if !errors.Is(err, wasm.ErrDegraded) {
		t.Fatalf("expected ErrDegraded, got %v", err)
	}
	if res.Failed() != 2 {
		t.Fatalf("both programs should have been translated and failed: %d", res.Failed())
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Fatalf("strict failures must not write artefacts: %v", entries)
	}
}

func TestBuildWasmRunsEncoder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	in, out := t.TempDir(), t.TempDir()
	writeInputs(t, in, map[string]string{"a.ilpk": "app"})
	tool := filepath.Join(t.TempDir(), "fake-wat2wasm")
	// #nosec G306 -- test helper must be executable
	if err := os.WriteFile(tool, []byte("#!/bin/sh\nprintf '\\000asm' > \"$3\"\n"), 0o700); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	res, err := Build(context.Background(), &BuildRequest{
		Files: []string{"a.ilpk"}, BaseDir: in, OutDir: out, Output: OutputBoth,
		Encoder: encode.Tool{Path: tool}, Progress: rec,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p := res.Programs[0]
	bin, err := os.ReadFile(p.WasmPath)
	if err != nil || string(bin) != "\x00asm" || filepath.Base(p.WasmPath) != "app.wasm" {
		t.Fatalf("wasm artefact %q: %q, %v", p.WasmPath, bin, err)
	}
	if _, err := os.Stat(filepath.Join(out, "app.wat")); err != nil {
		t.Fatalf("text artefact missing: %v", err)
	}
	if got := rec.stages("a.ilpk", StatusDone); !slices.Equal(got, Stages) {
		t.Fatalf("finished stages %v", got)
	}
}

func TestBuildWithoutEncoderFailsEarly(t *testing.T) {
	_, err := Build(context.Background(), &BuildRequest{
		Files: []string{"a.ilpk"}, OutDir: t.TempDir(), Output: OutputWasm,
		Encoder: encode.Tool{Path: filepath.Join(t.TempDir(), "missing")},
	})
	if !errors.Is(err, encode.ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestCancelledBuildSkipsPrograms(t *testing.T) {
	in := t.TempDir()
	writeInputs(t, in, map[string]string{"a.ilpk": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Build(ctx, &BuildRequest{Files: []string{"a.ilpk"}, BaseDir: in, OutDir: t.TempDir()})
	if !errors.Is(err, context.Canceled) || res.Programs[0].Program != "" {
		t.Fatalf("expected a cancelled, unloaded program: %v %+v", err, res.Programs[0])
	}
}

func TestLoadErrorsAreReported(t *testing.T) {
	in := t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "junk.ilcb"), []byte{0xff}, 0o600); err != nil {
		t.Fatal(err)
	}
	res, err := Build(context.Background(), &BuildRequest{Files: []string{"junk.ilcb"}, BaseDir: in, OutDir: t.TempDir()})
	if err == nil || res.Programs[0].Diagnostics.Len() != 1 {
		t.Fatalf("expected a load failure with one diagnostic: %v", err)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir, map[string]string{"a.ilpk": "a", ".cache/b.ilpk": "b", "sub/c.ilcb": "c"})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	files, err := ExpandInputs([]string{".", "a.ilpk", ""}, dir)
	if err != nil {
		t.Fatalf("ExpandInputs: %v", err)
	}
	if !slices.Equal(files, []string{"a.ilpk", "sub/c.ilcb"}) {
		t.Fatalf("files = %v", files)
	}
	if _, err := ExpandInputs([]string{"notes.txt"}, dir); err == nil {
		t.Fatalf("explicit non-container accepted")
	}
	if _, err := ExpandInputs([]string{"missing.ilpk"}, dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestParseOutput(t *testing.T) {
	for in, want := range map[string]Output{"": OutputWAT, "WASM": OutputWasm, " both ": OutputBoth} {
		if got, err := ParseOutput(in); err != nil || got != want {
			t.Errorf("ParseOutput(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseOutput("llvm"); err == nil {
		t.Fatalf("llvm accepted")
	}
}
