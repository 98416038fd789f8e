package wasm

import (
	"slices"
	"testing"

	"ilwasm/internal/il"
)

func TestDefaultRegistryOrder(t *testing.T) {
	want := []Family{
		FamConstants, FamLocals, FamArgs, FamReturn, FamArith, FamStack,
		FamStaticField, FamInstanceField, FamNewObj, FamCall, FamBranch,
		FamString, FamFallback,
	}
	if got := DefaultRegistry().Families(); !slices.Equal(got, want) {
		t.Fatalf("families = %v, want %v", got, want)
	}
	if DefaultRegistry() != DefaultRegistry() {
		t.Fatalf("default registry must be built once")
	}
}

func TestDispatchMatchesFamilyTable(t *testing.T) {
	r := DefaultRegistry()
	for _, op := range il.OpCodes() {
		h := r.Dispatch(&il.Instruction{Op: op})
		if h.Family() != familyOf(op) {
			t.Errorf("%s dispatched to %s, want %s", op, h.Family(), familyOf(op))
		}
	}
}

func TestNewRegistryRequiresTrailingFallback(t *testing.T) {
	if _, err := NewRegistry(); err == nil {
		t.Errorf("empty registry accepted")
	}
	if _, err := NewRegistry(constantsHandler{}); err == nil {
		t.Errorf("registry without fallback accepted")
	}
	if _, err := NewRegistry(fallbackHandler{}, constantsHandler{}, fallbackHandler{}); err == nil {
		t.Errorf("shadowing fallback accepted")
	}
	if _, err := NewRegistry(nil, fallbackHandler{}); err == nil {
		t.Errorf("nil handler accepted")
	}
	r, err := NewRegistry(returnHandler{}, fallbackHandler{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := r.Dispatch(il.I(il.OpAdd)).Family(); got != FamFallback {
		t.Fatalf("add dispatched to %s in a registry without arithmetic", got)
	}
	hs := r.Handlers()
	hs[0] = nil
	if r.Handlers()[0] == nil {
		t.Fatalf("Handlers must return a copy")
	}
}

func TestCustomRegistryIsUsed(t *testing.T) {
	r, err := NewRegistry(argsHandler{}, returnHandler{}, fallbackHandler{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	add := staticMethod("Add", i32, i32, i32)
	add.SetBody(il.I(il.OpLdarg0), il.I(il.OpLdarg1), il.I(il.OpAdd), il.I(il.OpRet))
	res, err := EmitProgram(newProgram(&il.Type{Namespace: "Demo", Name: "Calc", Methods: []*il.Method{add}}), Options{Registry: r})
	if err != nil {
		t.Fatalf("EmitProgram: %v", err)
	}
	if res.Stats.Degraded != 1 {
		t.Fatalf("expected the add to degrade, stats %+v", res.Stats)
	}
}
