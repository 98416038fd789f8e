package testkit

import "ilwasm/internal/il"

var (
	i32  = il.Prim(il.MetaInt32)
	i64  = il.Prim(il.MetaInt64)
	f32  = il.Prim(il.MetaSingle)
	f64  = il.Prim(il.MetaDouble)
	str  = il.Prim(il.MetaString)
	void = il.Void
)

func classRef(ns, name string) il.TypeRef {
	return il.TypeRef{Metadata: il.MetaClass, Namespace: ns, Name: name}
}

// SampleProgram builds an unlinked program that uses every operand kind:
// a Point class with a constructor, a static counter, a host import, an
// inline WAT escape, a forward branch and string literals.
func SampleProgram(name string) *il.Program {
	pointRef := classRef("Demo", "Point")
	x := &il.FieldRef{DeclaringType: pointRef, Name: "X", Type: i32}
	y := &il.FieldRef{DeclaringType: pointRef, Name: "Y", Type: i32}
	counter := &il.FieldRef{DeclaringType: pointRef, Name: "Created", Type: i32}

	ctor := &il.Method{Name: ".ctor", Kind: il.MethodConstructor, Public: true, Return: void,
		Params: []il.Param{{Name: "x", Type: i32}, {Name: "y", Type: i32}}}
	ctor.SetBody(
		il.I(il.OpLdarg0), il.I(il.OpLdarg1), il.I(il.OpStfld, x),
		il.I(il.OpLdarg0), il.I(il.OpLdarg2), il.I(il.OpStfld, y),
		il.I(il.OpLdsfld, counter), il.I(il.OpLdcI41), il.I(il.OpAdd), il.I(il.OpStsfld, counter),
		il.I(il.OpRet),
	)
	sum := &il.Method{Name: "Sum", Kind: il.MethodInstance, Public: true, Return: i32}
	sum.SetBody(
		il.I(il.OpLdarg0), il.I(il.OpLdfld, x),
		il.I(il.OpLdarg0), il.I(il.OpLdfld, y),
		il.I(il.OpAdd), il.I(il.OpRet),
	)
	point := &il.Type{Namespace: "Demo", Name: "Point",
		Fields: []*il.Field{
			{Name: "X", Type: i32},
			{Name: "Y", Type: i32},
			{Name: "Created", Type: i32, Static: true},
		},
		Methods: []*il.Method{ctor, sum},
	}

	consoleRef := classRef("Demo", "Console")
	log := &il.Method{Name: "Log", Kind: il.MethodStatic, Return: void,
		Params: []il.Param{{Name: "msg", Type: str}},
		Import: &il.ImportTag{Module: "console", Name: "log"}}
	console := &il.Type{Namespace: "Demo", Name: "Console", Methods: []*il.Method{log}}

	main := &il.Method{Name: "Main", Kind: il.MethodStatic, Public: true, Return: i32,
		Locals: []il.Local{{Index: 0, Type: i32}, {Index: 1, Type: i32}}}
	join := il.I(il.OpLdloc1)
	main.SetBody(
		il.I(il.OpLdcI43), il.I(il.OpLdcI4S, int32(4)),
		il.I(il.OpNewobj, &il.MethodRef{DeclaringType: pointRef, Name: ".ctor", Params: []il.TypeRef{i32, i32}, Return: void, HasThis: true}),
		il.I(il.OpCallvirt, &il.MethodRef{DeclaringType: pointRef, Name: "Sum", Return: i32, HasThis: true}),
		il.I(il.OpStloc0),
		il.I(il.OpLdloc0),
		il.I(il.OpBrfalseS, join),
		il.I(il.OpLdstr, "hi"),
		il.I(il.OpCall, &il.MethodRef{DeclaringType: consoleRef, Name: "Log", Params: []il.TypeRef{str}, Return: void}),
		il.I(il.OpLdstr, "nop"),
		il.I(il.OpCall, &il.MethodRef{DeclaringType: classRef("Runtime", "Compilation"), Name: "EmitWat", Params: []il.TypeRef{str}, Return: void}),
		il.I(il.OpLdloc0),
		il.I(il.OpStloc1),
		join,
		il.I(il.OpRet),
	)

	boxed := i32
	wide := &il.Method{Name: "Wide", Kind: il.MethodStatic, Return: f64,
		Params: []il.Param{{Name: "scale", Type: f32}},
		Locals: []il.Local{{Index: 0, Type: i64}}}
	wide.SetBody(
		il.I(il.OpLdcI8, int64(1)<<40), il.I(il.OpStlocS, il.LocalRef(0)),
		il.I(il.OpLdcR4, float32(0.5)), il.I(il.OpStargS, il.ArgRef(0)),
		il.I(il.OpLdcI40), il.I(il.OpBox, &boxed), il.I(il.OpPop),
		il.I(il.OpLdcR8, 2.25), il.I(il.OpRet),
	)
	program := &il.Type{Namespace: "Demo", Name: "Program", Methods: []*il.Method{main, wide},
		Nested: []*il.Type{{Name: "Options", Fields: []*il.Field{{Name: "Verbose", Type: il.Prim(il.MetaBoolean)}}}}}

	return &il.Program{Name: name, Modules: []*il.Module{{Name: name + ".dll", Types: []*il.Type{point, console, program}}}}
}
