package encode

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeTool writes a shell script standing in for the assembler.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-wat2wasm")
	// #nosec G306 -- test helper must be executable
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return path
}

func TestEncodeRunsTool(t *testing.T) {
	// copies the input and appends every argument so the call shape is visible
	tool := Tool{Path: fakeTool(t, `in=""; out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    --*) echo "flag $1" >> "$TMPDIR/flags"; shift ;;
    *) in="$1"; shift ;;
  esac
done
cp "$in" "$out"`), Args: []string{"--enable-bulk-memory"}}
	t.Setenv("TMPDIR", t.TempDir())

	out, err := tool.Encode(context.Background(), "(module)\n")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(out) != "(module)\n" {
		t.Fatalf("unexpected output %q", out)
	}
	flags, err := os.ReadFile(filepath.Join(os.Getenv("TMPDIR"), "flags"))
	if err != nil || strings.TrimSpace(string(flags)) != "flag --enable-bulk-memory" {
		t.Fatalf("extra args not passed: %q, %v", flags, err)
	}
}

func TestEncodeFailureCarriesStderr(t *testing.T) {
	tool := Tool{Path: fakeTool(t, `echo "module.wat:1:2: error: unexpected token" >&2; exit 1`)}
	_, err := tool.Encode(context.Background(), "(module")
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
	if te.Tool != "fake-wat2wasm" || !strings.Contains(te.Stderr, "unexpected token") {
		t.Fatalf("unexpected tool error: %+v", te)
	}
	var exitErr interface{ ExitCode() int }
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("exit status not preserved: %v", err)
	}
}

func TestMissingTool(t *testing.T) {
	tool := Tool{Path: filepath.Join(t.TempDir(), "does-not-exist")}
	if _, err := tool.Encode(context.Background(), "(module)"); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestPrintCommands(t *testing.T) {
	var buf bytes.Buffer
	tool := Tool{Path: fakeTool(t, `cp "$1" "$3"`), PrintCommands: true, Stdout: &buf}
	dir := t.TempDir()
	in, out := filepath.Join(dir, "a.wat"), filepath.Join(dir, "a.wasm")
	if err := os.WriteFile(in, []byte("(module)"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := tool.EncodeFile(context.Background(), in, out); err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(buf.String()), in+" -o "+out) {
		t.Fatalf("command not echoed: %q", buf.String())
	}
}
