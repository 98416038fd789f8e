// Package ilio reads and writes bytecode program containers.
//
// A container is a schema-versioned tree of plain records. Two encodings
// are supported: MessagePack (".ilpk") and canonical CBOR (".ilcb"). Both
// carry the same records, so a program can be re-encoded between them
// without loss.
package ilio

// Current schema version - increment when the record layout changes.
const schemaVersion uint16 = 1

// Container is the root record of a program file.
type Container struct {
	Schema  uint16         `msgpack:"schema" cbor:"schema"`
	Program string         `msgpack:"program" cbor:"program"`
	Modules []ModuleRecord `msgpack:"modules" cbor:"modules"`
}

type ModuleRecord struct {
	Name  string       `msgpack:"name" cbor:"name"`
	Types []TypeRecord `msgpack:"types" cbor:"types"`
}

type TypeRecord struct {
	Namespace string         `msgpack:"ns,omitempty" cbor:"ns,omitempty"`
	Name      string         `msgpack:"name" cbor:"name"`
	Fields    []FieldRecord  `msgpack:"fields,omitempty" cbor:"fields,omitempty"`
	Methods   []MethodRecord `msgpack:"methods,omitempty" cbor:"methods,omitempty"`
	Nested    []TypeRecord   `msgpack:"nested,omitempty" cbor:"nested,omitempty"`
}

// TypeRefRecord names a type by its element type and, for named types,
// namespace and name.
type TypeRefRecord struct {
	Meta      string `msgpack:"meta" cbor:"meta"`
	Namespace string `msgpack:"ns,omitempty" cbor:"ns,omitempty"`
	Name      string `msgpack:"name,omitempty" cbor:"name,omitempty"`
}

type FieldRecord struct {
	Name     string        `msgpack:"name" cbor:"name"`
	Type     TypeRefRecord `msgpack:"type" cbor:"type"`
	Static   bool          `msgpack:"static,omitempty" cbor:"static,omitempty"`
	InitOnly bool          `msgpack:"initonly,omitempty" cbor:"initonly,omitempty"`
}

type ParamRecord struct {
	Name string        `msgpack:"name" cbor:"name"`
	Type TypeRefRecord `msgpack:"type" cbor:"type"`
}

type ImportRecord struct {
	Module string `msgpack:"module" cbor:"module"`
	Name   string `msgpack:"name" cbor:"name"`
}

type MethodRecord struct {
	Name     string              `msgpack:"name" cbor:"name"`
	Kind     string              `msgpack:"kind" cbor:"kind"`
	Public   bool                `msgpack:"public,omitempty" cbor:"public,omitempty"`
	Params   []ParamRecord       `msgpack:"params,omitempty" cbor:"params,omitempty"`
	Return   TypeRefRecord       `msgpack:"ret" cbor:"ret"`
	Locals   []TypeRefRecord     `msgpack:"locals,omitempty" cbor:"locals,omitempty"`
	HasBody  bool                `msgpack:"hasbody,omitempty" cbor:"hasbody,omitempty"`
	Body     []InstructionRecord `msgpack:"body,omitempty" cbor:"body,omitempty"`
	Import   *ImportRecord       `msgpack:"import,omitempty" cbor:"import,omitempty"`
	NoMangle bool                `msgpack:"nomangle,omitempty" cbor:"nomangle,omitempty"`
}

// MemberRecord is a field or method reference operand.
type MemberRecord struct {
	DeclaringType TypeRefRecord `msgpack:"decl" cbor:"decl"`
	Name          string        `msgpack:"name" cbor:"name"`
	// Type is the field type, or the return type of a method.
	Type    TypeRefRecord   `msgpack:"type" cbor:"type"`
	Params  []TypeRefRecord `msgpack:"params,omitempty" cbor:"params,omitempty"`
	HasThis bool            `msgpack:"hasthis,omitempty" cbor:"hasthis,omitempty"`
}

// InstructionRecord holds one instruction. Which operand field is used is
// fixed by the opcode's operand kind.
type InstructionRecord struct {
	Offset int            `msgpack:"off" cbor:"off"`
	Op     string         `msgpack:"op" cbor:"op"`
	Int    int64          `msgpack:"i,omitempty" cbor:"i,omitempty"`
	Float  float64        `msgpack:"f,omitempty" cbor:"f,omitempty"`
	Str    string         `msgpack:"s,omitempty" cbor:"s,omitempty"`
	Index  int            `msgpack:"idx,omitempty" cbor:"idx,omitempty"`
	Target int            `msgpack:"target,omitempty" cbor:"target,omitempty"`
	Member *MemberRecord  `msgpack:"member,omitempty" cbor:"member,omitempty"`
	Type   *TypeRefRecord `msgpack:"typeref,omitempty" cbor:"typeref,omitempty"`
}
