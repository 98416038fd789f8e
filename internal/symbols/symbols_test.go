package symbols

import (
	"testing"

	"ilwasm/internal/il"
)

func calcType() *il.Type {
	calc := &il.Type{Namespace: "My.App", Name: "Calc`1"}
	add32 := &il.Method{Name: "Add", Params: []il.Param{
		{Name: "a", Type: il.Prim(il.MetaInt32)},
		{Name: "b", Type: il.Prim(il.MetaInt32)},
	}}
	add64 := &il.Method{Name: "Add", Params: []il.Param{
		{Name: "a", Type: il.Prim(il.MetaInt64)},
		{Name: "b", Type: il.Prim(il.MetaInt64)},
	}}
	addFoo := &il.Method{Name: "Add", Params: []il.Param{
		{Name: "a", Type: il.TypeRef{Metadata: il.MetaClass, Namespace: "My.App", Name: "Foo"}},
	}}
	addBar := &il.Method{Name: "Add", Params: []il.Param{
		{Name: "a", Type: il.TypeRef{Metadata: il.MetaClass, Namespace: "My.App", Name: "Bar"}},
	}}
	ctor := &il.Method{Name: ".ctor", Kind: il.MethodConstructor}
	calc.Methods = []*il.Method{add32, add64, addFoo, addBar, ctor}
	for _, m := range calc.Methods {
		m.DeclaringType = calc
	}
	return calc
}

func TestMethodSymbolShape(t *testing.T) {
	calc := calcType()
	if got, want := MethodDecl(calc.Methods[0]), "My_App_Calc_1_Add_Int32_Int32_"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got, want := MethodDecl(calc.Methods[4]), "My_App_Calc_1__ctor"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestOverloadsAreDistinct(t *testing.T) {
	calc := calcType()
	seen := make(map[string]int)
	for i, m := range calc.Methods {
		sym := MethodDecl(m)
		if prev, dup := seen[sym]; dup {
			t.Fatalf("methods %d and %d share symbol %q", prev, i, sym)
		}
		seen[sym] = i
		if !IsValid(sym) {
			t.Fatalf("symbol %q is not a valid identifier", sym)
		}
	}
}

func TestCallSitesAgreeWithDeclaration(t *testing.T) {
	calc := calcType()
	decl := calc.Methods[1]

	resolved := decl.Ref()
	unresolved := &il.MethodRef{
		DeclaringType: il.TypeRef{Metadata: il.MetaClass, Namespace: "My.App", Name: "Calc`1"},
		Name:          "Add",
		Params:        []il.TypeRef{il.Prim(il.MetaInt64), il.Prim(il.MetaInt64)},
	}
	want := MethodDecl(decl)
	for _, ref := range []*il.MethodRef{resolved, decl.Ref(), unresolved} {
		if got := Method(ref); got != want {
			t.Fatalf("call site symbol %q != declaration %q", got, want)
		}
	}
}

func TestNestedAndFieldSymbols(t *testing.T) {
	outer := &il.Type{Namespace: "Demo", Name: "Outer"}
	inner := &il.Type{Name: "Inner", DeclaringType: outer}
	f := &il.Field{Name: "Count", Static: true, DeclaringType: inner}
	if got, want := FieldDecl(f), "Demo_Outer_Inner_Count"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := Field(f.Ref()); got != FieldDecl(f) {
		t.Fatalf("field ref symbol %q differs", got)
	}
	if got := Type(inner); got != "Demo_Outer_Inner" {
		t.Fatalf("type symbol %q", got)
	}
}

func TestImportsAndNoMangle(t *testing.T) {
	log := &il.Method{Name: "Log", Import: &il.ImportTag{Module: "console", Name: "log"}}
	if got := MethodDecl(log); got != "console.log" {
		t.Fatalf("import symbol %q", got)
	}
	alloc := &il.Method{Name: "__alloc", NoMangle: true, DeclaringType: &il.Type{Namespace: "Rt", Name: "Memory"}}
	if got := MethodDecl(alloc); got != "__alloc" {
		t.Fatalf("no-mangle symbol %q", got)
	}
}

func TestSanitizeNormalises(t *testing.T) {
	composed := "Caf\u00e9"
	decomposed := "Cafe\u0301"
	if sanitize(composed) != sanitize(decomposed) {
		t.Fatalf("NFC forms differ: %q vs %q", sanitize(composed), sanitize(decomposed))
	}
	if got := sanitize("a b(c)"); got != "a_b_c_" {
		t.Fatalf("got %q", got)
	}
	if got := sanitize(composed); got != "Caf_u00E9" {
		t.Fatalf("got %q", got)
	}
}

func TestClassTagsAreSelfDelimiting(t *testing.T) {
	owner := &il.Type{Namespace: "Demo", Name: "T"}
	class := func(name string) il.Param {
		return il.Param{Type: il.TypeRef{Metadata: il.MetaClass, Name: name}}
	}
	joined := &il.Method{Name: "Foo", DeclaringType: owner, Params: []il.Param{class("A_B")}}
	split := &il.Method{Name: "Foo", DeclaringType: owner, Params: []il.Param{class("A"), class("B")}}
	a, b := MethodDecl(joined), MethodDecl(split)
	if a == b {
		t.Fatalf("Foo(A_B) and Foo(A, B) share symbol %q", a)
	}
	if a != "Demo_T_Foo_C4A__B_" || b != "Demo_T_Foo_C1A_C1B_" {
		t.Fatalf("unexpected symbols %q and %q", a, b)
	}

	dotted := &il.Method{Name: "Foo", DeclaringType: owner, Params: []il.Param{
		{Type: il.TypeRef{Metadata: il.MetaClass, Namespace: "A", Name: "B"}},
	}}
	if MethodDecl(dotted) == a {
		t.Fatalf("Foo(A.B) and Foo(A_B) share symbol %q", a)
	}
	named := &il.Method{Name: "Foo", DeclaringType: owner, Params: []il.Param{class("Int32")}}
	prim := &il.Method{Name: "Foo", DeclaringType: owner, Params: []il.Param{{Type: il.Prim(il.MetaInt32)}}}
	if MethodDecl(named) == MethodDecl(prim) {
		t.Fatalf("class Int32 and primitive Int32 share symbol %q", MethodDecl(prim))
	}
	for _, m := range []*il.Method{joined, split, dotted, named} {
		if !IsValid(MethodDecl(m)) {
			t.Fatalf("symbol %q is not a valid identifier", MethodDecl(m))
		}
	}
}

func TestImportPartsAreEscaped(t *testing.T) {
	a := Import(&il.ImportTag{Module: "env.console", Name: "log"})
	b := Import(&il.ImportTag{Module: "env", Name: "console.log"})
	if a == b {
		t.Fatalf("distinct imports share symbol %q", a)
	}
	if a != "env_dconsole.log" || b != "env.console_dlog" {
		t.Fatalf("unexpected import symbols %q and %q", a, b)
	}
	if got := Import(&il.ImportTag{Module: "console", Name: "log"}); got != "console.log" {
		t.Fatalf("plain import symbol %q", got)
	}
}

func TestEscapeIsInjective(t *testing.T) {
	inputs := []string{"A_B", "A.B", "A/B", "A`B", "A__B", "A_dB", "A B", "A_x20B", "Caf\u00e9", "Caf_u00E9"}
	seen := make(map[string]string)
	for _, in := range inputs {
		out := escape(in)
		if prev, dup := seen[out]; dup {
			t.Fatalf("%q and %q both escape to %q", prev, in, out)
		}
		seen[out] = in
		if !IsValid(out) {
			t.Fatalf("escape(%q) = %q is not a valid identifier", in, out)
		}
	}
}
