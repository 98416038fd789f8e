package testkit

import (
	"strings"
	"testing"

	"ilwasm/internal/il"
	"ilwasm/internal/layout"
)

const goodModule = `(module
  (import "console" "log" (func $console.log (param i32)))
  (memory $mem 1)
  (export "memory" (memory $mem))
  (func $f (param $0 i32)
    local.get 0
    (block $a1
    local.get 0
    br_if $a1
    ;; comment with ) paren
    )
    return
  )
  (export "f" (func $f))
  (export "log" (func $console.log))
)
`

func TestCheckModuleAcceptsWellFormedText(t *testing.T) {
	if err := CheckModule(goodModule); err != nil {
		t.Fatalf("CheckModule: %v", err)
	}
}

func TestCheckModuleFindsViolations(t *testing.T) {
	cases := map[string]string{
		"branch outside block": strings.Replace(goodModule, "br_if $a1", "br_if $zz", 1),
		"undefined export":     strings.Replace(goodModule, `(export "f" (func $f))`, `(export "g" (func $g))`, 1),
		"not a module":         "(func)",
	}
	for name, text := range cases {
		if err := CheckModule(text); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCheckLayoutInvariants(t *testing.T) {
	typ := &il.Type{Name: "T", Fields: []*il.Field{
		{Name: "A", Type: il.Prim(il.MetaInt32)},
		{Name: "B", Type: il.Prim(il.MetaDouble)},
		{Name: "S", Type: il.Prim(il.MetaInt64), Static: true},
		{Name: "C", Type: il.Prim(il.MetaString)},
	}}
	for _, f := range typ.Fields {
		f.DeclaringType = typ
	}
	l, err := layout.New(layout.Wasm32()).LayoutOf(typ)
	if err != nil {
		t.Fatalf("LayoutOf: %v", err)
	}
	if err := CheckLayoutInvariants(l); err != nil {
		t.Fatalf("CheckLayoutInvariants: %v", err)
	}
	l.Fields[1].Offset++
	if err := CheckLayoutInvariants(l); err == nil {
		t.Fatalf("expected gap to be reported")
	}
}
