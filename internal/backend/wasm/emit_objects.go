package wasm

import (
	"fmt"
	"strings"

	"ilwasm/internal/diag"
	"ilwasm/internal/il"
	"ilwasm/internal/symbols"
	"ilwasm/internal/types"
	"ilwasm/internal/wat"
)

type newObjHandler struct{}

func (newObjHandler) Family() Family { return FamNewObj }
func (newObjHandler) Locals() []wat.Local { return nil }
func (newObjHandler) CanHandle(ins *il.Instruction) bool { return ins.Op == il.OpNewobj }

func (newObjHandler) Handle(fc *FuncContext, ins *il.Instruction) string {
	ctor, ok := ins.MethodOperand()
	if !ok {
		return fc.Degrade(diag.TrInvalidOperand, ins, "invalid newobj operand "+il.FormatOperand(ins.Operand))
	}
	t := ctor.DeclaringType.Decl
	if t == nil {
		return fc.Degrade(diag.TrUnresolvedType, ins, "newobj of unresolved type "+ctor.DeclaringType.FullName())
	}
	size, err := fc.Layout().SizeOf(t)
	if err != nil {
		return fc.Degrade(diag.TrLayout, ins, fmt.Sprintf("newobj %s: %v", t.FullName(), err))
	}
	this := fc.RequestLocal("this", types.I32)

	var sb strings.Builder
	fmt.Fprintf(&sb, ";; newobj %s (%d bytes)\n", t.FullName(), size)

	// constructor arguments are already on the stack; park them so the
	// object pointer can go underneath
	args := make([]string, len(ctor.Params))
	for i := len(ctor.Params) - 1; i >= 0; i-- {
		vt := types.StorageOf(ctor.Params[i])
		args[i] = fc.RequestLocal(fmt.Sprintf("arg%d_%s", i, vt), vt)
		sb.WriteString("local.set " + args[i] + "\n")
	}
	fmt.Fprintf(&sb, "i32.const %d\ncall $%s\nlocal.set %s\nlocal.get %s\n", size, fc.Allocator(), this, this)
	for _, a := range args {
		sb.WriteString("local.get " + a + "\n")
	}
	if ctor.Decl == nil {
		// no constructor to run; drop what would have been its arguments
		sb.WriteString(strings.Repeat("drop\n", len(args)+1))
		sb.WriteString(fc.Degrade(diag.TrUnresolvedMethod, ins, "newobj of "+t.FullName()+" with unresolved constructor "+ctor.String()))
		sb.WriteString("\nlocal.get " + this)
		return sb.String()
	}
	sb.WriteString("call $" + symbols.Method(ctor) + "\n")
	sb.WriteString("local.get " + this)
	return sb.String()
}
