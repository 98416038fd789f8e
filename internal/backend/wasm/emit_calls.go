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

const interpolatedHandler = "DefaultInterpolatedStringHandler"

var interpolatedMembers = map[string]string{
	".ctor":            "interpolated string constructor",
	"AppendLiteral":    "append literal",
	"AppendFormatted":  "append formatted",
	"ToStringAndClear": "finalize interpolated string",
}

type callHandler struct{}

func (callHandler) Family() Family { return FamCall }
func (callHandler) Locals() []wat.Local { return nil }

func (callHandler) CanHandle(ins *il.Instruction) bool {
	return ins.Op == il.OpCall || ins.Op == il.OpCallvirt
}

func (callHandler) Handle(fc *FuncContext, ins *il.Instruction) string {
	ref, ok := ins.MethodOperand()
	if !ok {
		return fc.Degrade(diag.TrInvalidOperand, ins, fmt.Sprintf("invalid %s operand %s", ins.Op, il.FormatOperand(ins.Operand)))
	}
	if isInlineWat(ref) {
		if prev := ins.Prev(); prev != nil && prev.Op == il.OpLdstr {
			if text, ok := prev.StringOperand(); ok {
				return text
			}
		}
		return fc.Degrade(diag.TrUnsupportedInline, ins, "inline WAT needs a string literal argument") + "\ndrop"
	}
	if ref.Decl != nil && ref.Decl.Import != nil {
		return fmt.Sprintf(";; import call %s\ncall $%s", ref, symbols.Import(ref.Decl.Import))
	}
	if ref.DeclaringType.Name == interpolatedHandler {
		if note, ok := interpolatedMembers[ref.Name]; ok {
			return "nop ;; " + note
		}
	}
	if ref.Name == ".ctor" && ref.DeclaringType.FullName() == "System.Object" {
		return "drop ;; System.Object::.ctor"
	}
	if ref.Decl == nil {
		return unresolvedCall(fc, ins, ref)
	}
	call := "call $" + symbols.Method(ref)
	if ins.Op == il.OpCallvirt {
		return fmt.Sprintf(";; callvirt %s (stack: ..., this, args...)\n%s", ref, call)
	}
	return call
}

// unresolvedCall keeps the operand stack shape of the call: its arguments
// are dropped and a zero stands in for the result.
func unresolvedCall(fc *FuncContext, ins *il.Instruction, ref *il.MethodRef) string {
	var sb strings.Builder
	sb.WriteString(fc.Degrade(diag.TrUnresolvedMethod, ins, fmt.Sprintf("%s of unresolved method %s", ins.Op, ref)))
	n := len(ref.Params)
	if ref.HasThis {
		n++
	}
	sb.WriteString(drops(n))
	if vt, ok := types.ResultOf(ref.Return); ok {
		fmt.Fprintf(&sb, "\n%s.const 0", vt)
	}
	return sb.String()
}

func isInlineWat(ref *il.MethodRef) bool {
	return ref.Name == "EmitWat" && ref.DeclaringType.Name == "Compilation" &&
		len(ref.Params) == 1 && ref.Params[0].Metadata == il.MetaString
}

// suppressesLdstr reports whether the string load feeds an inline WAT call
// and must not be materialised.
func suppressesLdstr(ins *il.Instruction) bool {
	next := ins.Next()
	if next == nil || (next.Op != il.OpCall && next.Op != il.OpCallvirt) {
		return false
	}
	ref, ok := next.MethodOperand()
	return ok && isInlineWat(ref)
}
