package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelScopes(t *testing.T) {
	if !LevelPhase.ShouldEmit(ScopeProgram) || LevelPhase.ShouldEmit(ScopeType) {
		t.Fatalf("phase level must stop at program scope")
	}
	if !LevelDetail.ShouldEmit(ScopeType) || LevelDetail.ShouldEmit(ScopeMethod) {
		t.Fatalf("detail level must stop at type scope")
	}
	if !LevelDebug.ShouldEmit(ScopeMethod) {
		t.Fatalf("debug level must emit everything")
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	ctx := WithTracer(context.Background(), tr)

	ctx, prog := Start(ctx, ScopeProgram, "translate")
	_, typ := Start(ctx, ScopeType, "type:Demo.Point")
	_, method := Start(ctx, ScopeMethod, "method:Main")
	method.End("")
	typ.WithExtra("methods", "2").End("")
	prog.End("ok")

	out := buf.String()
	if strings.Contains(out, "method:Main") {
		t.Fatalf("method scope must be filtered at detail level:\n%s", out)
	}
	for _, want := range []string{"→ program translate", "  → type type:Demo.Point", "{methods=2}", "← program translate (ok)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)
	Point(tr, ScopeDriver, "build", "2 inputs")

	var got map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got); err != nil {
		t.Fatalf("invalid ndjson %q: %v", buf.String(), err)
	}
	if got["kind"] != "point" || got["scope"] != "driver" || got["detail"] != "2 inputs" {
		t.Fatalf("unexpected event: %v", got)
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(r, ScopeMethod, name, "")
	}
	snap := r.Snapshot()
	if len(snap) != 3 || snap[0].Name != "c" || snap[2].Name != "e" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("expected 3 dumped lines, got %q", buf.String())
	}
}

func TestNewHonoursOffAndModes(t *testing.T) {
	tr, err := New(Config{Level: LevelOff, Mode: ModeStream})
	if err != nil || tr.Enabled() {
		t.Fatalf("off level must give a disabled tracer")
	}
	var buf bytes.Buffer
	tr, err = New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	multi, ok := tr.(*MultiTracer)
	if !ok || multi.Ring() == nil {
		t.Fatalf("both mode must include a ring tracer")
	}
	Point(tr, ScopeDriver, "x", "")
	if len(multi.Ring().Snapshot()) != 1 || buf.Len() == 0 {
		t.Fatalf("event not fanned out")
	}
	if _, err := ParseMode("tape"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestLogTracerAcceptsEvents(t *testing.T) {
	ConfigureLogging(0, "")
	tr := NewLogTracer("ilwasm-test", LevelDebug)
	span := Begin(tr, ScopeMethod, "method:M", 0)
	if span.ID() == 0 {
		t.Fatalf("log tracer should start real spans")
	}
	span.End("done")
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSpanEndCarriesElapsedAndOrderedAttrs(t *testing.T) {
	r := NewRingTracer(8, LevelDebug)
	span := Begin(r, ScopeMethod, "method:M", 7)
	span.WithExtra("z", "1").WithExtra("a", "2").WithExtra("z", "3")
	span.End("done")

	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Kind != KindSpanBegin || snap[1].Kind != KindSpanEnd {
		t.Fatalf("unexpected events: %+v", snap)
	}
	end := snap[1]
	if end.ParentID != 7 || end.Elapsed < 0 || len(end.Attrs) != 2 {
		t.Fatalf("unexpected end event: %+v", end)
	}
	if end.Attrs[0] != (Attr{Key: "z", Value: "3"}) || end.Attrs[1].Key != "a" {
		t.Fatalf("attrs out of order: %+v", end.Attrs)
	}
	if line := string(FormatEvent(&end, FormatText)); !strings.Contains(line, "(done) {z=3, a=2} ") {
		t.Fatalf("unexpected text %q", line)
	}
}

func TestFilteredSpanIsInert(t *testing.T) {
	r := NewRingTracer(4, LevelPhase)
	span := Begin(r, ScopeMethod, "method:M", 0)
	if span.ID() != 0 || span.WithExtra("k", "v").End("") != 0 {
		t.Fatalf("filtered span should be inert")
	}
	if len(r.Snapshot()) != 0 {
		t.Fatalf("filtered span emitted events")
	}
}
