package wasm

import (
	"fmt"

	"ilwasm/internal/diag"
	"ilwasm/internal/il"
	"ilwasm/internal/layout"
	"ilwasm/internal/symbols"
	"ilwasm/internal/types"
	"ilwasm/internal/wat"
)

type staticFieldHandler struct{}

func (staticFieldHandler) Family() Family { return FamStaticField }
func (staticFieldHandler) Locals() []wat.Local { return nil }

func (staticFieldHandler) CanHandle(ins *il.Instruction) bool {
	return ins.Op == il.OpLdsfld || ins.Op == il.OpStsfld
}

func (staticFieldHandler) Handle(fc *FuncContext, ins *il.Instruction) string {
	ref, ok := ins.FieldOperand()
	if !ok {
		return fc.Degrade(diag.TrInvalidOperand, ins, fmt.Sprintf("invalid %s operand %s", ins.Op, il.FormatOperand(ins.Operand)))
	}
	// globals exist only for fields declared in the program
	if ref.Decl == nil {
		return fc.Degrade(diag.TrUnresolvedField, ins, fmt.Sprintf("%s of unresolved field %s", ins.Op, ref))
	}
	if ins.Op == il.OpStsfld {
		return "global.set $" + symbols.Field(ref)
	}
	return "global.get $" + symbols.Field(ref)
}

type instanceFieldHandler struct{}

func (instanceFieldHandler) Family() Family { return FamInstanceField }
func (instanceFieldHandler) Locals() []wat.Local { return nil }

func (instanceFieldHandler) CanHandle(ins *il.Instruction) bool {
	return ins.Op == il.OpLdfld || ins.Op == il.OpStfld
}

func (instanceFieldHandler) Handle(fc *FuncContext, ins *il.Instruction) string {
	ref, ok := ins.FieldOperand()
	if !ok {
		return fc.Degrade(diag.TrInvalidOperand, ins, fmt.Sprintf("invalid %s operand %s", ins.Op, il.FormatOperand(ins.Operand)))
	}
	if ref.Decl == nil {
		return fc.Degrade(diag.TrUnresolvedField, ins, fmt.Sprintf("%s of unresolved field %s", ins.Op, ref))
	}
	offset, err := fc.Layout().FieldOffset(ref.Decl)
	if err != nil {
		return fc.Degrade(diag.TrLayout, ins, fmt.Sprintf("%s %s: %v", ins.Op, ref, err))
	}
	lit, err := layout.OffsetLiteral(offset)
	if err != nil {
		return fc.Degrade(diag.TrLayout, ins, fmt.Sprintf("%s %s: offset %d: %v", ins.Op, ref, offset, err))
	}
	vt := types.StorageOf(ref.Decl.Type)
	if ins.Op == il.OpLdfld {
		return fmt.Sprintf(";; ldfld %s (offset %d)\ni32.const %d\ni32.add\n%s.load", ref, lit, lit, vt)
	}
	// the value sits above the object pointer; stores want the address first
	tmp := fc.Scratch("fld", vt)
	return fmt.Sprintf(";; stfld %s (offset %d)\nlocal.set %s\ni32.const %d\ni32.add\nlocal.get %s\n%s.store",
		ref, lit, tmp, lit, tmp, vt)
}
