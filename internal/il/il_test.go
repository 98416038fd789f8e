package il

import (
	"strings"
	"testing"
)

func TestSetBodyAssignsOffsets(t *testing.T) {
	m := &Method{Name: "F"}
	m.SetBody(
		I(OpLdcI4S, int32(7)),
		I(OpLdcI4, int32(1000)),
		I(OpAdd),
		I(OpRet),
	)
	want := []int{0, 2, 7, 8}
	for i, ins := range m.Body {
		if ins.Offset != want[i] {
			t.Fatalf("instr %d: offset %d, want %d", i, ins.Offset, want[i])
		}
	}
	if m.Body[2].Prev() != m.Body[1] || m.Body[2].Next() != m.Body[3] {
		t.Fatalf("prev/next not linked")
	}
	if m.Body[0].Prev() != nil || m.Body[3].Next() != nil {
		t.Fatalf("expected nil at body edges")
	}
	if got := m.InstructionAt(7); got != m.Body[2] {
		t.Fatalf("InstructionAt(7) = %v", got)
	}
	if got := m.InstructionAt(3); got != nil {
		t.Fatalf("InstructionAt(3) = %v, want nil", got)
	}
}

func TestOpcodeTableComplete(t *testing.T) {
	for _, op := range OpCodes() {
		info := op.Info()
		if info.Name == "" || info.Size <= 0 {
			t.Fatalf("opcode %d has incomplete info: %+v", op, info)
		}
		back, ok := LookupOpCode(info.Name)
		if !ok || back != op {
			t.Fatalf("LookupOpCode(%q) = %v, %v", info.Name, back, ok)
		}
		if op.IsBranch() && info.Operand != OperandTarget {
			t.Fatalf("%s: branch without target operand", info.Name)
		}
	}
}

func TestLocalAndArgIndex(t *testing.T) {
	cases := []struct {
		ins  *Instruction
		want int
	}{
		{I(OpLdloc2), 2},
		{I(OpStloc3), 3},
		{I(OpLdlocS, LocalRef(9)), 9},
		{I(OpStloc, LocalRef(300)), 300},
	}
	for _, tc := range cases {
		got, ok := tc.ins.LocalIndex()
		if !ok || got != tc.want {
			t.Errorf("%s: LocalIndex = %d, %v; want %d", tc.ins.Op, got, ok, tc.want)
		}
	}
	if got, ok := I(OpLdarg1).ArgIndex(); !ok || got != 1 {
		t.Errorf("ldarg.1: ArgIndex = %d, %v", got, ok)
	}
	if _, ok := I(OpLdargS, "bogus").ArgIndex(); ok {
		t.Errorf("expected invalid arg operand to be rejected")
	}
}

func buildLinkedProgram() *Program {
	point := &Type{Namespace: "Demo", Name: "Point",
		Fields: []*Field{
			{Name: "X", Type: Prim(MetaInt32)},
			{Name: "Y", Type: Prim(MetaInt32)},
		},
	}
	ctor := &Method{Name: ".ctor", Kind: MethodConstructor}
	ctor.SetBody(I(OpRet))
	point.Methods = []*Method{ctor}

	inner := &Type{Name: "Inner"}
	point.Nested = []*Type{inner}

	main := &Method{Name: "Main", Kind: MethodStatic, Public: true}
	main.SetBody(
		I(OpNewobj, &MethodRef{DeclaringType: TypeRef{Metadata: MetaClass, Namespace: "Demo", Name: "Point"}, Name: ".ctor", HasThis: true}),
		I(OpLdfld, &FieldRef{DeclaringType: TypeRef{Metadata: MetaClass, Namespace: "Demo", Name: "Point"}, Name: "Y"}),
		I(OpLdfld, &FieldRef{DeclaringType: TypeRef{Metadata: MetaClass, Namespace: "Demo", Name: "Point"}, Name: "Missing"}),
		I(OpBox, &TypeRef{Metadata: MetaClass, Namespace: "Demo", Name: "Point/Inner"}),
		I(OpRet),
	)
	prog := &Type{Namespace: "Demo", Name: "Program", Methods: []*Method{main}}

	return &Program{Name: "demo", Modules: []*Module{{Name: "demo.dll", Types: []*Type{point, prog}}}}
}

func TestLinkResolvesReferences(t *testing.T) {
	p := buildLinkedProgram()
	unresolved := Link(p)
	if len(unresolved) != 1 || !strings.Contains(unresolved[0], "Missing") {
		t.Fatalf("unexpected unresolved list: %v", unresolved)
	}

	main := p.Modules[0].Types[1].Methods[0]
	newobj, _ := main.Body[0].MethodOperand()
	if newobj.Decl == nil || !newobj.Decl.IsConstructor() {
		t.Fatalf("constructor reference not resolved")
	}
	fld, _ := main.Body[1].FieldOperand()
	if fld.Decl == nil || fld.Decl.Name != "Y" || fld.Decl.DeclaringType.Name != "Point" {
		t.Fatalf("field reference not resolved: %+v", fld)
	}
	box := main.Body[3].Operand.(*TypeRef)
	if box.Decl == nil || box.Decl.QualifiedName() != "Point/Inner" {
		t.Fatalf("nested type reference not resolved")
	}
	if main.DeclaringType == nil || main.DeclaringType.Name != "Program" {
		t.Fatalf("declaring type not adopted")
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	m := &Method{Name: "Bad", Locals: []Local{{Index: 0, Type: Prim(MetaInt32)}}}
	stray := &Instruction{Op: OpNop, Offset: 40}
	m.SetBody(
		I(OpStloc1),
		I(OpBrS, stray),
		I(OpRet),
	)
	p := &Program{Modules: []*Module{{Types: []*Type{{Name: "T", Methods: []*Method{m}}}}}}
	err := Validate(p)
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"local 1 out of range", "outside the body"} {
		if !strings.Contains(msg, want) {
			t.Errorf("missing %q in %q", want, msg)
		}
	}
}

func TestInstructionString(t *testing.T) {
	m := &Method{}
	m.SetBody(I(OpLdstr, "hi"), I(OpBrS, nil), I(OpRet))
	m.Body[1].Operand = m.Body[2]
	if got := m.Body[0].String(); got != `IL_0000: ldstr "hi"` {
		t.Fatalf("got %q", got)
	}
	if got := m.Body[1].String(); got != "IL_0005: br.s IL_0007" {
		t.Fatalf("got %q", got)
	}
}
