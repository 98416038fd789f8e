package wasm

import (
	"strings"
	"testing"

	"ilwasm/internal/diag"
	"ilwasm/internal/il"
	"ilwasm/internal/wat"
)

func flowProgram(m *il.Method) *il.Program {
	return newProgram(&il.Type{Namespace: "Demo", Name: "Flow", Methods: []*il.Method{m}})
}

func blockLabel(t *testing.T, lines []string) string {
	t.Helper()
	for _, l := range lines {
		if strings.HasPrefix(l, "(block $") {
			return strings.TrimPrefix(l, "(block ")
		}
	}
	t.Fatalf("no block in:\n%s", strings.Join(lines, "\n"))
	return ""
}

func TestTrivialBranchOpensNoBlock(t *testing.T) {
	m := staticMethod("T", void)
	next := il.I(il.OpNop)
	m.SetBody(il.I(il.OpLdcI41), il.I(il.OpBrtrueS, next), next, il.I(il.OpRet))
	res := emit(t, flowProgram(m), Options{})

	body := funcBody(t, res.Text, "Demo_Flow_T")
	want := []string{"i32.const 1", "drop ;; fallthrough to IL_0003", "nop", "return"}
	if strings.Join(body, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected body:\n%s", strings.Join(body, "\n"))
	}
	if res.Stats.Blocks != 0 || res.Diagnostics.Len() != 0 {
		t.Fatalf("trivial branch must not open blocks: %+v", res.Stats)
	}
}

func TestForwardBranchReplaysLocalLoad(t *testing.T) {
	m := staticMethod("Pick", i32, i32)
	m.Locals = []il.Local{{Index: 0, Type: i32}, {Index: 1, Type: i32}}
	join := il.I(il.OpLdloc1)
	m.SetBody(
		il.I(il.OpLdarg0),         // 0
		il.I(il.OpStloc0),         // 1
		il.I(il.OpLdloc0),         // 2
		il.I(il.OpBrfalseS, join), // 3
		il.I(il.OpLdcI4S, int32(10)),
		il.I(il.OpStloc1),
		il.I(il.OpNop),
		join, // 9
		il.I(il.OpRet),
	)
	res := emit(t, flowProgram(m), Options{})

	body := funcBody(t, res.Text, "Demo_Flow_Pick_Int32_")
	label := blockLabel(t, body)
	want := []string{
		"(local i32 i32)",
		"local.get 0",
		"local.set 1",
		"local.get 1",
		"drop",
		"(block " + label,
		"local.get 1",
		"i32.eqz",
		"br_if " + label,
		"i32.const 10",
		"local.set 2",
		"nop",
		"local.get 2",
		"drop",
		")",
		"local.get 2",
		"return",
	}
	if strings.Join(body, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected body:\n%s\nwant:\n%s", strings.Join(body, "\n"), strings.Join(want, "\n"))
	}

	shapes, err := wat.Scan(res.Text)
	if err != nil || len(shapes) != 1 || shapes[0].Blocks != 1 || !shapes[0].Closed {
		t.Fatalf("Scan = %+v, %v", shapes, err)
	}

	again := emit(t, flowProgram(m), Options{})
	if again.Text != res.Text {
		t.Fatalf("labels must be deterministic")
	}
}

func TestCompareBranchSpillsCondition(t *testing.T) {
	m := staticMethod("Clamp", i32, i32)
	done := il.I(il.OpLdarg0)
	m.SetBody(
		il.I(il.OpLdarg0),
		il.I(il.OpLdcI45),
		il.I(il.OpBltS, done),
		il.I(il.OpLdcI45),
		il.I(il.OpStargS, il.ArgRef(0)),
		done,
		il.I(il.OpRet),
	)
	res := emit(t, flowProgram(m), Options{})

	body := funcBody(t, res.Text, "Demo_Flow_Clamp_Int32_")
	label := blockLabel(t, body)
	joined := strings.Join(body, "\n")
	for _, want := range []string{
		"(local $cond i32)",
		"i32.lt_s\nlocal.set $cond\n(block " + label + "\nlocal.get $cond\nbr_if " + label,
		"local.set 0\n)\nlocal.get 0\nreturn",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestBackwardBranchDegrades(t *testing.T) {
	m := staticMethod("Loop", void)
	top := il.I(il.OpNop)
	m.SetBody(top, il.I(il.OpBrS, top), il.I(il.OpRet))
	res := emit(t, flowProgram(m), Options{})

	if strings.Contains(res.Text, "(block") {
		t.Fatalf("backward branch must not open a block:\n%s", res.Text)
	}
	if !strings.Contains(res.Text, ";; backward br.s to IL_0000 left untranslated") {
		t.Fatalf("placeholder missing:\n%s", res.Text)
	}
	if !hasCode(res.Diagnostics, diag.TrBackwardBranch) {
		t.Fatalf("missing diagnostic: %v", res.Diagnostics.Items())
	}
}

func TestCrossingBranchDegrades(t *testing.T) {
	m := staticMethod("IfElse", i32, i32)
	m.Locals = []il.Local{{Index: 0, Type: i32}}
	elseBranch := il.I(il.OpLdcI40)
	join := il.I(il.OpLdloc0)
	m.SetBody(
		il.I(il.OpLdarg0),
		il.I(il.OpBrfalseS, elseBranch),
		il.I(il.OpLdcI41),
		il.I(il.OpStloc0),
		il.I(il.OpBrS, join),
		elseBranch,
		il.I(il.OpStloc0),
		join,
		il.I(il.OpRet),
	)
	res := emit(t, flowProgram(m), Options{})

	if res.Stats.Blocks != 1 {
		t.Fatalf("expected only the outer branch to open a block: %+v", res.Stats)
	}
	if !hasCode(res.Diagnostics, diag.TrUnnestableBranch) {
		t.Fatalf("missing diagnostic: %v", res.Diagnostics.Items())
	}
	body := strings.Join(funcBody(t, res.Text, "Demo_Flow_IfElse_Int32_"), "\n")
	if !strings.Contains(body, ")\ni32.const 0\nlocal.set 1") {
		t.Fatalf("block must close before the else branch:\n%s", body)
	}
}

func TestBlockWithUnreachedTargetIsClosed(t *testing.T) {
	m := staticMethod("Stray", void)
	foreign := il.I(il.OpNop)
	foreign.Offset = 0x40
	m.SetBody(il.I(il.OpBrS, foreign), il.I(il.OpNop), il.I(il.OpRet))
	res := emit(t, flowProgram(m), Options{})

	if !hasCode(res.Diagnostics, diag.TrUnclosedBlock) {
		t.Fatalf("missing diagnostic: %v", res.Diagnostics.Items())
	}
	shapes, err := wat.Scan(res.Text)
	if err != nil || !shapes[0].Closed || shapes[0].Blocks != 1 {
		t.Fatalf("Scan = %+v, %v", shapes, err)
	}
}

func TestLabelsAreUniquePerMethod(t *testing.T) {
	f := newFlowState("Demo_Flow_M")
	seen := make(map[string]bool)
	for off := range 64 {
		l := f.label(off)
		if seen[l] || len(l) != 9 || l[0] != '$' {
			t.Fatalf("bad or repeated label %q", l)
		}
		seen[l] = true
	}
	g := newFlowState("Demo_Flow_M")
	if g.label(3) != newFlowState("Demo_Flow_M").label(3) {
		t.Fatalf("labels must not depend on state")
	}
}
