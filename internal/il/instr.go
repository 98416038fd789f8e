package il

import (
	"fmt"
	"strconv"
	"strings"
)

// LocalRef is an explicit local slot index operand.
type LocalRef int

// ArgRef is an explicit argument index operand. Index 0 is the receiver for
// instance methods.
type ArgRef int

// FieldRef references a field as seen from a call site.
type FieldRef struct {
	DeclaringType TypeRef
	Name          string
	Type          TypeRef

	Decl *Field
}

func (r *FieldRef) String() string {
	if r == nil {
		return "<nil field>"
	}
	return r.DeclaringType.FullName() + "::" + r.Name
}

// MethodRef references a method as seen from a call site.
type MethodRef struct {
	DeclaringType TypeRef
	Name          string
	Params        []TypeRef
	Return        TypeRef
	HasThis       bool

	Decl *Method
}

func (r *MethodRef) String() string {
	if r == nil {
		return "<nil method>"
	}
	var sb strings.Builder
	sb.WriteString(r.DeclaringType.FullName())
	sb.WriteString("::")
	sb.WriteString(r.Name)
	sb.WriteByte('(')
	for i, p := range r.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.FullName())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Instruction is one operation of a method body.
type Instruction struct {
	Offset  int
	Op      OpCode
	Operand any

	index  int
	method *Method
}

// Method returns the method the instruction belongs to, if attached.
func (ins *Instruction) Method() *Method {
	if ins == nil {
		return nil
	}
	return ins.method
}

// Size returns the encoded size in bytes.
func (ins *Instruction) Size() int {
	if ins == nil {
		return 0
	}
	return ins.Op.Size()
}

// End returns the offset immediately following the instruction.
func (ins *Instruction) End() int {
	return ins.Offset + ins.Size()
}

// Flow returns the flow-control classification.
func (ins *Instruction) Flow() FlowControl {
	return ins.Op.Flow()
}

// Prev returns the preceding instruction of the same body, or nil.
func (ins *Instruction) Prev() *Instruction {
	if ins == nil || ins.method == nil || ins.index <= 0 {
		return nil
	}
	return ins.method.Body[ins.index-1]
}

// Next returns the following instruction of the same body, or nil.
func (ins *Instruction) Next() *Instruction {
	if ins == nil || ins.method == nil || ins.index+1 >= len(ins.method.Body) {
		return nil
	}
	return ins.method.Body[ins.index+1]
}

// Target returns the branch target instruction.
func (ins *Instruction) Target() (*Instruction, bool) {
	t, ok := ins.Operand.(*Instruction)
	return t, ok && t != nil
}

// FieldOperand returns the field reference operand.
func (ins *Instruction) FieldOperand() (*FieldRef, bool) {
	f, ok := ins.Operand.(*FieldRef)
	return f, ok && f != nil
}

// MethodOperand returns the method reference operand.
func (ins *Instruction) MethodOperand() (*MethodRef, bool) {
	m, ok := ins.Operand.(*MethodRef)
	return m, ok && m != nil
}

// StringOperand returns the string literal operand.
func (ins *Instruction) StringOperand() (string, bool) {
	s, ok := ins.Operand.(string)
	return s, ok
}

// Int32Operand returns an integer operand, accepting any integral Go type.
func (ins *Instruction) Int32Operand() (int32, bool) {
	switch v := ins.Operand.(type) {
	case int32:
		return v, true
	case int8:
		return int32(v), true
	case int16:
		return int32(v), true
	case int:
		if v < -1<<31 || v > 1<<31-1 {
			return 0, false
		}
		return int32(v), true
	default:
		return 0, false
	}
}

// LocalIndex returns the local slot addressed by a ldloc/stloc family opcode.
func (ins *Instruction) LocalIndex() (int, bool) {
	switch ins.Op {
	case OpLdloc0, OpStloc0:
		return 0, true
	case OpLdloc1, OpStloc1:
		return 1, true
	case OpLdloc2, OpStloc2:
		return 2, true
	case OpLdloc3, OpStloc3:
		return 3, true
	}
	switch v := ins.Operand.(type) {
	case LocalRef:
		return int(v), v >= 0
	case int:
		return v, v >= 0
	case int32:
		return int(v), v >= 0
	default:
		return 0, false
	}
}

// ArgIndex returns the argument addressed by a ldarg/starg family opcode.
func (ins *Instruction) ArgIndex() (int, bool) {
	switch ins.Op {
	case OpLdarg0:
		return 0, true
	case OpLdarg1:
		return 1, true
	case OpLdarg2:
		return 2, true
	case OpLdarg3:
		return 3, true
	}
	switch v := ins.Operand.(type) {
	case ArgRef:
		return int(v), v >= 0
	case int:
		return v, v >= 0
	case int32:
		return int(v), v >= 0
	default:
		return 0, false
	}
}

// IsLocalLoad reports whether the instruction pushes a local slot value.
func (ins *Instruction) IsLocalLoad() bool {
	if ins == nil {
		return false
	}
	switch ins.Op {
	case OpLdloc0, OpLdloc1, OpLdloc2, OpLdloc3, OpLdlocS, OpLdloc:
		return true
	default:
		return false
	}
}

func (ins *Instruction) String() string {
	if ins == nil {
		return "<nil>"
	}
	prefix := fmt.Sprintf("IL_%04x: %s", ins.Offset, ins.Op)
	if ins.Operand == nil {
		return prefix
	}
	return prefix + " " + FormatOperand(ins.Operand)
}

// FormatOperand renders an operand the way disassembly listings do.
func FormatOperand(v any) string {
	switch op := v.(type) {
	case nil:
		return ""
	case *Instruction:
		if op == nil {
			return "<nil>"
		}
		return fmt.Sprintf("IL_%04x", op.Offset)
	case string:
		return strconv.Quote(op)
	case *FieldRef:
		return op.String()
	case *MethodRef:
		return op.String()
	case *TypeRef:
		if op == nil {
			return "<nil type>"
		}
		return op.FullName()
	case LocalRef:
		return "V_" + strconv.Itoa(int(op))
	case ArgRef:
		return "A_" + strconv.Itoa(int(op))
	default:
		return fmt.Sprint(op)
	}
}
