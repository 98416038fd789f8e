// Package il models a parsed stack-bytecode program: modules, types, fields,
// methods and their instruction streams. The model is produced by a reader
// (see internal/ilio) and treated as immutable by the translator.
package il

import (
	"fmt"
	"strings"
)

// Program is the root of a translation: an ordered list of modules.
type Program struct {
	Name    string
	Modules []*Module
}

// Module is an ordered collection of top-level types.
type Module struct {
	Name  string
	Types []*Type
}

// Type is a class or value type declaration.
type Type struct {
	Namespace string
	Name      string

	Fields  []*Field
	Methods []*Method
	Nested  []*Type

	// DeclaringType is set for nested types.
	DeclaringType *Type
}

// Field is a static or instance field declaration.
type Field struct {
	Name     string
	Type     TypeRef
	Static   bool
	InitOnly bool

	DeclaringType *Type
}

// MethodKind classifies how a method receives its receiver.
type MethodKind uint8

const (
	// MethodStatic has no receiver.
	MethodStatic MethodKind = iota
	// MethodInstance receives the object pointer as argument 0.
	MethodInstance
	// MethodConstructor is an instance constructor (.ctor).
	MethodConstructor
)

func (k MethodKind) String() string {
	switch k {
	case MethodStatic:
		return "static"
	case MethodInstance:
		return "instance"
	case MethodConstructor:
		return "constructor"
	default:
		return "unknown"
	}
}

// ParseMethodKind is the inverse of MethodKind.String.
func ParseMethodKind(s string) (MethodKind, error) {
	switch s {
	case "static":
		return MethodStatic, nil
	case "instance":
		return MethodInstance, nil
	case "constructor":
		return MethodConstructor, nil
	default:
		return MethodStatic, fmt.Errorf("unknown method kind %q", s)
	}
}

// ImportTag marks a bodyless method as provided by the host environment.
type ImportTag struct {
	Module string
	Name   string
}

// Param is a declared method parameter.
type Param struct {
	Name string
	Type TypeRef
}

// Local is a local variable slot of a method body.
type Local struct {
	Index int
	Type  TypeRef
}

// Method is a method declaration, optionally with a body.
type Method struct {
	Name    string
	Kind    MethodKind
	Public  bool
	Params  []Param
	Return  TypeRef
	Locals  []Local
	Body    []*Instruction
	HasBody bool

	// Import is non-nil for host-provided methods.
	Import *ImportTag
	// NoMangle keeps the declared name as the emitted symbol.
	NoMangle bool

	DeclaringType *Type
}

// HasThis reports whether the method receives an implicit object pointer.
func (m *Method) HasThis() bool {
	return m != nil && m.Kind != MethodStatic
}

// IsConstructor reports whether the method is an instance constructor.
func (m *Method) IsConstructor() bool {
	return m != nil && m.Kind == MethodConstructor
}

// Ref returns a resolved reference to the method, as a call site would carry it.
func (m *Method) Ref() *MethodRef {
	if m == nil {
		return nil
	}
	params := make([]TypeRef, 0, len(m.Params))
	for _, p := range m.Params {
		params = append(params, p.Type)
	}
	return &MethodRef{
		DeclaringType: m.DeclaringType.Ref(),
		Name:          m.Name,
		Params:        params,
		Return:        m.Return,
		HasThis:       m.HasThis(),
		Decl:          m,
	}
}

// Ref returns a resolved reference to the field.
func (f *Field) Ref() *FieldRef {
	if f == nil {
		return nil
	}
	return &FieldRef{
		DeclaringType: f.DeclaringType.Ref(),
		Name:          f.Name,
		Type:          f.Type,
		Decl:          f,
	}
}

// QualifiedName returns the type name including enclosing types, separated by '/'.
func (t *Type) QualifiedName() string {
	if t == nil {
		return ""
	}
	if t.DeclaringType == nil {
		return t.Name
	}
	return t.DeclaringType.QualifiedName() + "/" + t.Name
}

// RootNamespace returns the namespace of the outermost enclosing type.
func (t *Type) RootNamespace() string {
	for t != nil && t.DeclaringType != nil {
		t = t.DeclaringType
	}
	if t == nil {
		return ""
	}
	return t.Namespace
}

// FullName returns "Namespace.Outer/Inner".
func (t *Type) FullName() string {
	return joinFullName(t.RootNamespace(), t.QualifiedName())
}

// Ref returns a class reference to the type.
func (t *Type) Ref() TypeRef {
	if t == nil {
		return TypeRef{Metadata: MetaClass}
	}
	return TypeRef{
		Metadata:  MetaClass,
		Namespace: t.RootNamespace(),
		Name:      t.QualifiedName(),
		Decl:      t,
	}
}

// InstanceFields returns instance fields in declaration order.
func (t *Type) InstanceFields() []*Field {
	if t == nil {
		return nil
	}
	out := make([]*Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f != nil && !f.Static {
			out = append(out, f)
		}
	}
	return out
}

// UsesOp reports whether the method body contains the opcode.
func (m *Method) UsesOp(op OpCode) bool {
	if m == nil {
		return false
	}
	for _, ins := range m.Body {
		if ins != nil && ins.Op == op {
			return true
		}
	}
	return false
}

// TypeRef names a type as used by a signature, field or operand.
type TypeRef struct {
	Metadata  MetadataType
	Namespace string
	Name      string

	// Decl is nil when the type lives outside the program or was not linked.
	Decl *Type
}

// Prim returns a reference to a primitive element type.
func Prim(m MetadataType) TypeRef {
	return TypeRef{Metadata: m}
}

// Void is the absent return type.
var Void = TypeRef{Metadata: MetaVoid}

// IsVoid reports whether the reference denotes no value.
func (r TypeRef) IsVoid() bool {
	return r.Metadata == MetaVoid
}

// FullName returns "Namespace.Name" for named types and the element type name otherwise.
func (r TypeRef) FullName() string {
	if r.Name == "" {
		return r.Metadata.String()
	}
	return joinFullName(r.Namespace, r.Name)
}

func (r TypeRef) String() string {
	return r.FullName()
}

func joinFullName(ns, name string) string {
	if ns == "" {
		return name
	}
	var sb strings.Builder
	sb.Grow(len(ns) + 1 + len(name))
	sb.WriteString(ns)
	sb.WriteByte('.')
	sb.WriteString(name)
	return sb.String()
}

// WalkTypes calls fn for every type in the program, nested types after their parent.
func (p *Program) WalkTypes(fn func(t *Type)) {
	if p == nil {
		return
	}
	var walk func(t *Type)
	walk = func(t *Type) {
		if t == nil {
			return
		}
		fn(t)
		for _, nested := range t.Nested {
			walk(nested)
		}
	}
	for _, mod := range p.Modules {
		if mod == nil {
			continue
		}
		for _, t := range mod.Types {
			walk(t)
		}
	}
}
