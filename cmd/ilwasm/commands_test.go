package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ilwasm/internal/ilio"
	"ilwasm/internal/testkit"
)

// resetFlags restores every flag to its default so commands can be run
// repeatedly within one test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	resetFlags(root)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--color", "off"}, args...))
	err := root.Execute()
	finish()
	return stdout.String(), stderr.String(), err
}

func saveSample(t *testing.T, dir, file, program string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	if err := ilio.Save(path, testkit.SampleProgram(program)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path
}

func TestBuildCommandWritesWat(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	input := saveSample(t, in, "demo.ilpk", "demo")

	stdout, stderr, err := execute(t, "build", "--ui", "off", "--out-dir", out, "--timings", input)
	if err != nil {
		t.Fatalf("build: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "built ") || !strings.Contains(stdout, "demo.wat") {
		t.Fatalf("unexpected stdout:\n%s", stdout)
	}
	if !strings.Contains(stdout, "translated ") || !strings.Contains(stdout, "timings:") {
		t.Fatalf("timings missing:\n%s", stdout)
	}
	if !strings.Contains(stderr, "warning:") {
		t.Fatalf("degradation warnings missing:\n%s", stderr)
	}
	text, err := os.ReadFile(filepath.Join(out, "demo.wat"))
	if err != nil {
		t.Fatal(err)
	}
	if err := testkit.CheckModule(string(text)); err != nil {
		t.Fatal(err)
	}
}

func TestBuildCommandStrictFails(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	input := saveSample(t, in, "demo.ilcb", "demo")

	_, stderr, err := execute(t, "build", "--ui", "off", "--strict", "--quiet", "--out-dir", out, input)
	if err == nil {
		t.Fatalf("strict build succeeded")
	}
	if !strings.Contains(stderr, "translation degraded") {
		t.Fatalf("failure not reported:\n%s", stderr)
	}
	if strings.Contains(stderr, "warning:") {
		t.Fatalf("quiet mode printed warnings:\n%s", stderr)
	}
	if entries, _ := os.ReadDir(out); len(entries) != 0 {
		t.Fatalf("artefacts written: %v", entries)
	}
}

func TestBuildCommandRejectsBadOutput(t *testing.T) {
	in := t.TempDir()
	input := saveSample(t, in, "demo.ilpk", "demo")
	if _, _, err := execute(t, "build", "--ui", "off", "--output", "llvm", input); err == nil {
		t.Fatalf("--output llvm accepted")
	}
}

func TestPackConvertsFormats(t *testing.T) {
	dir := t.TempDir()
	input := saveSample(t, dir, "demo.ilpk", "demo")
	target := filepath.Join(dir, "converted")

	stdout, _, err := execute(t, "pack", "--format", "cbor", input, target)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !strings.Contains(stdout, "converted.ilcb") {
		t.Fatalf("unexpected stdout: %s", stdout)
	}
	prog, _, err := ilio.Load(target + ".ilcb")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if prog.Name != "demo" {
		t.Fatalf("program = %q", prog.Name)
	}

	if _, _, err := execute(t, "pack", "--format", "msgpack", input, filepath.Join(dir, "x.ilcb")); err == nil {
		t.Fatalf("mismatched extension accepted")
	}
}

func TestInspectJSON(t *testing.T) {
	input := saveSample(t, t.TempDir(), "demo.ilpk", "demo")
	stdout, _, err := execute(t, "inspect", "--format", "json", input)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var report programReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if report.Program != "demo" || report.Format != "msgpack" || len(report.Modules) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	var point *typeReport
	for i := range report.Modules[0].Types {
		if report.Modules[0].Types[i].Name == "Demo.Point" {
			point = &report.Modules[0].Types[i]
		}
	}
	if point == nil {
		t.Fatalf("Demo.Point missing: %+v", report.Modules[0].Types)
	}
	if point.Size != 8 || len(point.Fields) != 3 {
		t.Fatalf("point layout: %+v", point)
	}
	if y := point.Fields[1]; y.Offset != 4 || y.Size != 4 {
		t.Fatalf("Y slot: %+v", y)
	}
	if created := point.Fields[2]; !created.Static || created.Offset != -1 {
		t.Fatalf("static field placed in memory: %+v", created)
	}
}

func TestInspectPretty(t *testing.T) {
	input := saveSample(t, t.TempDir(), "demo.ilcb", "demo")
	stdout, _, err := execute(t, "inspect", input)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"program demo", "type Demo.Point", "field  X", "$console.log"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("missing %q in:\n%s", want, stdout)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	stdout, _, err := execute(t, "version", "--format", "json", "--full")
	if err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tool != "ilwasm" || payload.Version == "" || payload.GitCommit == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if _, _, err := execute(t, "version", "--format", "yaml"); err == nil {
		t.Fatalf("yaml accepted")
	}
}

func TestInitAndClean(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proj")
	stdout, _, err := execute(t, "init", dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(stdout, manifestName) {
		t.Fatalf("unexpected stdout: %s", stdout)
	}
	if _, _, err := execute(t, "init", dir); err == nil {
		t.Fatalf("second init succeeded")
	}
	cfg, err := loadProjectConfig(filepath.Join(dir, manifestName))
	if err != nil || cfg.Package.Name != "proj" {
		t.Fatalf("generated manifest: %+v, %v", cfg, err)
	}

	artefacts := filepath.Join(dir, "target", "wasm")
	if err := os.MkdirAll(artefacts, 0o755); err != nil {
		t.Fatal(err)
	}
	stdout, _, err = execute(t, "clean", dir)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !strings.Contains(stdout, "removed target/wasm") {
		t.Fatalf("unexpected stdout: %s", stdout)
	}
	if _, err := os.Stat(artefacts); !os.IsNotExist(err) {
		t.Fatalf("artefacts still present: %v", err)
	}
}

func TestReadSwitch(t *testing.T) {
	for in, want := range map[string]switchMode{"": modeAuto, "ON": modeOn, "never": modeOff} {
		if got, err := readSwitch("ui", in); err != nil || got != want {
			t.Errorf("readSwitch(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := readSwitch("color", "sometimes"); err == nil {
		t.Fatalf("sometimes accepted")
	}
}

func TestBuildShortDiagnostics(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	input := saveSample(t, in, "demo.ilpk", "demo")
	_, stderr, err := execute(t, "build", "--ui", "off", "--diag-format", "short", "--out-dir", out, input)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(stderr, "warning ") {
		t.Fatalf("no short warnings:\n%s", stderr)
	}
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		if !strings.HasPrefix(line, "warning ") && !strings.HasPrefix(line, "info ") {
			t.Fatalf("unexpected short diagnostic line %q", line)
		}
	}
	if _, _, err := execute(t, "build", "--ui", "off", "--diag-format", "xml", input); err == nil {
		t.Fatalf("xml accepted")
	}
}
