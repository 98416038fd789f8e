package wat

import (
	"errors"
	"strings"
	"testing"

	"ilwasm/internal/types"
)

func TestTextWriterModule(t *testing.T) {
	var sb strings.Builder
	w := NewTextWriter(&sb)
	w.BeginModule()
	w.DeclareImport(Import{Module: "console", Name: "log", Symbol: "console.log", Params: []types.ValType{types.I32}})
	w.DeclareMemory(1)
	w.DeclareGlobal(Global{Symbol: "Demo_G_count", Type: types.I32, Mutable: true})
	w.DeclareGlobal(Global{Symbol: "Demo_G_pi", Type: types.F64})
	w.BeginFunction(Func{
		Symbol: "Demo_G_Add_Int32_Int32_",
		Params: []Param{{Name: "0", Type: types.I32}, {Name: "1", Type: types.I32}},
		Result: types.I32,
	})
	w.DeclareLocal(Local{Name: "strPtr", Type: types.I32})
	w.DeclareLocals([]types.ValType{types.I32, types.I64})
	w.WriteInstruction("local.get 0\n\n  local.get 1")
	w.WriteInstruction("i32.add")
	w.EndFunction()
	w.ExportFunction("Demo_G_Add_Int32_Int32_", "Demo_G_Add_Int32_Int32_")
	w.EndModule()
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := `(module
  (import "console" "log" (func $console.log (param i32)))
  (memory $mem 1)
  (export "memory" (memory $mem))
  (global $Demo_G_count (mut i32) (i32.const 0))
  (global $Demo_G_pi f64 (f64.const 0.0))
  (func $Demo_G_Add_Int32_Int32_ (param $0 i32) (param $1 i32) (result i32)
    (local $strPtr i32)
    (local i32 i64)
    local.get 0
    local.get 1
    i32.add
  )
  (export "Demo_G_Add_Int32_Int32_" (func $Demo_G_Add_Int32_Int32_))
)
`
	if got := sb.String(); got != want {
		t.Fatalf("unexpected module text:\n%s\nwant:\n%s", got, want)
	}
	if err := Validate(sb.String()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

type failingWriter struct{ n int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.n++
	return 0, errors.New("disk full")
}

func TestTextWriterRemembersFirstError(t *testing.T) {
	fw := &failingWriter{}
	w := NewTextWriter(fw)
	w.BeginModule()
	w.EndModule()
	err := w.Flush()
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected write error, got %v", err)
	}
	if again := w.Flush(); again != err {
		t.Fatalf("expected the same error on second flush")
	}
}

func TestScanCountsBlocksAndSkipsComments(t *testing.T) {
	text := `(module
  (func $a
    (block $x ;; a ( comment
      i32.const 1
    )
    (; block ( comment ;)
  )
  (func $b (param $0 i32)
    (block $y
      (block $z
      )
    )
  )
  (global $s i32 (i32.const 0)) ;; ")"
)
`
	funcs, err := Scan(text)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(funcs) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(funcs))
	}
	if funcs[0].Symbol != "a" || funcs[0].Blocks != 1 || !funcs[0].Closed {
		t.Fatalf("func a: %+v", funcs[0])
	}
	if funcs[1].Symbol != "b" || funcs[1].Blocks != 2 || !funcs[1].Closed {
		t.Fatalf("func b: %+v", funcs[1])
	}
}

func TestCheckBalanceReportsUnclosedFunction(t *testing.T) {
	text := "(module\n  (func $f\n    (block $l\n    nop\n  )\n"
	err := CheckBalance(text)
	if err == nil {
		t.Fatalf("expected imbalance")
	}
	if !strings.Contains(err.Error(), "$f") {
		t.Fatalf("error should name the function: %v", err)
	}
	if err := CheckBalance("(module))"); err == nil {
		t.Fatalf("expected stray ')' to be reported")
	}
}

func TestQuoteUsesWatEscapes(t *testing.T) {
	cases := []struct{ in, want string }{
		{"console", `"console"`},
		{"a\x01b", `"a\01b"`},
		{"tab\there", `"tab\09here"`},
		{`say "hi"`, `"say \22hi\22"`},
		{`back\slash`, `"back\5cslash"`},
		{"café", `"caf\c3\a9"`},
		{"", `""`},
	}
	for _, c := range cases {
		if got := Quote(c.in); got != c.want {
			t.Errorf("Quote(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestImportAndExportNamesAreWatQuoted(t *testing.T) {
	var sb strings.Builder
	w := NewTextWriter(&sb)
	w.BeginModule()
	w.DeclareImport(Import{Module: "env\x01", Name: "café", Symbol: "env_x01.caf_u00E9", Result: types.Invalid})
	w.ExportFunction("run\x7f", "Demo_G_Run")
	w.EndModule()
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	got := sb.String()
	for _, want := range []string{
		`(import "env\01" "caf\c3\a9" (func $env_x01.caf_u00E9))`,
		`(export "run\7f" (func $Demo_G_Run))`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in:\n%s", want, got)
		}
	}
	if strings.Contains(got, `\x`) {
		t.Fatalf("Go escape leaked into module text:\n%s", got)
	}
	if err := Validate(got); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
