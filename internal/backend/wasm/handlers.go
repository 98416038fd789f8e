package wasm

import (
	"fmt"
	"strconv"

	"ilwasm/internal/diag"
	"ilwasm/internal/il"
	"ilwasm/internal/types"
	"ilwasm/internal/wat"
)

// Handler translates one family of instructions into a WAT fragment.
type Handler interface {
	Family() Family
	CanHandle(ins *il.Instruction) bool
	Handle(fc *FuncContext, ins *il.Instruction) string
	// Locals lists named scratch locals the handler relies on. They are
	// declared in every function that dispatched to the handler.
	Locals() []wat.Local
}

// Family is the closed set of handler kinds.
type Family uint8

const (
	FamConstants Family = iota
	FamLocals
	FamArgs
	FamReturn
	FamArith
	FamStack
	FamStaticField
	FamInstanceField
	FamNewObj
	FamCall
	FamBranch
	FamString
	FamFallback
)

var familyNames = [...]string{
	FamConstants:     "constants",
	FamLocals:        "locals",
	FamArgs:          "args",
	FamReturn:        "return",
	FamArith:         "arith",
	FamStack:         "stack",
	FamStaticField:   "static-field",
	FamInstanceField: "instance-field",
	FamNewObj:        "newobj",
	FamCall:          "call",
	FamBranch:        "branch",
	FamString:        "string",
	FamFallback:      "fallback",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("Family(%d)", f)
}

// familyOf is the exhaustive opcode to family mapping. The registry must
// dispatch every opcode to a handler of this family.
func familyOf(op il.OpCode) Family {
	switch op {
	case il.OpLdnull, il.OpLdcI4M1, il.OpLdcI40, il.OpLdcI41, il.OpLdcI42, il.OpLdcI43,
		il.OpLdcI44, il.OpLdcI45, il.OpLdcI46, il.OpLdcI47, il.OpLdcI48, il.OpLdcI4S,
		il.OpLdcI4, il.OpLdcI8, il.OpLdcR4, il.OpLdcR8:
		return FamConstants
	case il.OpLdloc0, il.OpLdloc1, il.OpLdloc2, il.OpLdloc3, il.OpLdlocS, il.OpLdloc,
		il.OpStloc0, il.OpStloc1, il.OpStloc2, il.OpStloc3, il.OpStlocS, il.OpStloc:
		return FamLocals
	case il.OpLdarg0, il.OpLdarg1, il.OpLdarg2, il.OpLdarg3, il.OpLdargS, il.OpLdarg,
		il.OpStargS, il.OpStarg:
		return FamArgs
	case il.OpRet:
		return FamReturn
	case il.OpAdd, il.OpSub, il.OpMul, il.OpDiv, il.OpDivUn, il.OpRem, il.OpRemUn,
		il.OpAnd, il.OpOr, il.OpXor, il.OpShl, il.OpShr, il.OpShrUn, il.OpNeg, il.OpNot,
		il.OpCeq, il.OpCgt, il.OpCgtUn, il.OpClt, il.OpCltUn:
		return FamArith
	case il.OpNop, il.OpPop, il.OpDup:
		return FamStack
	case il.OpLdsfld, il.OpStsfld:
		return FamStaticField
	case il.OpLdfld, il.OpStfld:
		return FamInstanceField
	case il.OpNewobj:
		return FamNewObj
	case il.OpCall, il.OpCallvirt:
		return FamCall
	case il.OpLdstr:
		return FamString
	}
	if op.IsBranch() {
		return FamBranch
	}
	// address-of, conversions, box and throw have no lowering
	return FamFallback
}

type constantsHandler struct{}

func (constantsHandler) Family() Family { return FamConstants }
func (constantsHandler) Locals() []wat.Local { return nil }

func (constantsHandler) CanHandle(ins *il.Instruction) bool {
	switch ins.Op {
	case il.OpLdnull, il.OpLdcI4M1, il.OpLdcI4S, il.OpLdcI4, il.OpLdcI8, il.OpLdcR4, il.OpLdcR8:
		return true
	}
	return ins.Op >= il.OpLdcI40 && ins.Op <= il.OpLdcI48
}

func (constantsHandler) Handle(fc *FuncContext, ins *il.Instruction) string {
	switch ins.Op {
	case il.OpLdnull:
		return "i32.const 0"
	case il.OpLdcI4M1:
		return "i32.const -1"
	case il.OpLdcI4S, il.OpLdcI4:
		v, ok := ins.Int32Operand()
		if !ok {
			return fc.Degrade(diag.TrInvalidOperand, ins, fmt.Sprintf("invalid %s operand %s", ins.Op, il.FormatOperand(ins.Operand)))
		}
		return "i32.const " + strconv.FormatInt(int64(v), 10)
	case il.OpLdcI8:
		switch v := ins.Operand.(type) {
		case int64:
			return "i64.const " + strconv.FormatInt(v, 10)
		case int:
			return "i64.const " + strconv.Itoa(v)
		}
		return fc.Degrade(diag.TrInvalidOperand, ins, "invalid ldc.i8 operand "+il.FormatOperand(ins.Operand))
	case il.OpLdcR4:
		switch v := ins.Operand.(type) {
		case float32:
			return "f32.const " + floatLiteral(float64(v), 32)
		case float64:
			return "f32.const " + floatLiteral(v, 32)
		}
		return fc.Degrade(diag.TrInvalidOperand, ins, "invalid ldc.r4 operand "+il.FormatOperand(ins.Operand))
	case il.OpLdcR8:
		switch v := ins.Operand.(type) {
		case float64:
			return "f64.const " + floatLiteral(v, 64)
		case float32:
			return "f64.const " + floatLiteral(float64(v), 64)
		}
		return fc.Degrade(diag.TrInvalidOperand, ins, "invalid ldc.r8 operand "+il.FormatOperand(ins.Operand))
	}
	return "i32.const " + strconv.Itoa(int(ins.Op-il.OpLdcI40))
}

// floatLiteral renders v in a form the WAT float grammar accepts.
func floatLiteral(v float64, bits int) string {
	switch s := strconv.FormatFloat(v, 'g', -1, bits); s {
	case "NaN":
		return "nan"
	case "+Inf":
		return "inf"
	case "-Inf":
		return "-inf"
	default:
		return s
	}
}

type localsHandler struct{}

func (localsHandler) Family() Family { return FamLocals }
func (localsHandler) Locals() []wat.Local { return nil }

func (localsHandler) CanHandle(ins *il.Instruction) bool {
	return (ins.Op >= il.OpLdloc0 && ins.Op <= il.OpLdloc) || (ins.Op >= il.OpStloc0 && ins.Op <= il.OpStloc)
}

func (localsHandler) Handle(fc *FuncContext, ins *il.Instruction) string {
	slot, ok := ins.LocalIndex()
	if !ok {
		return fc.Degrade(diag.TrInvalidOperand, ins, fmt.Sprintf("invalid %s operand %s", ins.Op, il.FormatOperand(ins.Operand)))
	}
	if ins.IsLocalLoad() {
		return "local.get " + strconv.Itoa(fc.SlotIndex(slot))
	}
	return "local.set " + strconv.Itoa(fc.SlotIndex(slot))
}

type argsHandler struct{}

func (argsHandler) Family() Family { return FamArgs }
func (argsHandler) Locals() []wat.Local { return nil }

func (argsHandler) CanHandle(ins *il.Instruction) bool {
	return (ins.Op >= il.OpLdarg0 && ins.Op <= il.OpLdarg) || ins.Op == il.OpStargS || ins.Op == il.OpStarg
}

func (argsHandler) Handle(fc *FuncContext, ins *il.Instruction) string {
	n, ok := ins.ArgIndex()
	if !ok {
		return fc.Degrade(diag.TrInvalidOperand, ins, fmt.Sprintf("invalid %s operand %s", ins.Op, il.FormatOperand(ins.Operand)))
	}
	if ins.Op == il.OpStargS || ins.Op == il.OpStarg {
		return "local.set " + strconv.Itoa(n)
	}
	return "local.get " + strconv.Itoa(n)
}

type returnHandler struct{}

func (returnHandler) Family() Family { return FamReturn }
func (returnHandler) Locals() []wat.Local { return nil }
func (returnHandler) CanHandle(ins *il.Instruction) bool { return ins.Op == il.OpRet }
func (returnHandler) Handle(*FuncContext, *il.Instruction) string { return "return" }

var arithTable = map[il.OpCode]string{
	il.OpAdd:   "i32.add",
	il.OpSub:   "i32.sub",
	il.OpMul:   "i32.mul",
	il.OpDiv:   "i32.div_s",
	il.OpDivUn: "i32.div_u",
	il.OpRem:   "i32.rem_s",
	il.OpRemUn: "i32.rem_u",

	il.OpAnd:   "i32.and",
	il.OpOr:    "i32.or",
	il.OpXor:   "i32.xor",
	il.OpShl:   "i32.shl",
	il.OpShr:   "i32.shr_s",
	il.OpShrUn: "i32.shr_u",

	il.OpCgt:   "i32.gt_s",
	il.OpCgtUn: "i32.gt_u",
	il.OpClt:   "i32.lt_s",
	il.OpCltUn: "i32.lt_u",
	il.OpCeq:   "i32.eq",

	il.OpNeg: "i32.const 0\ni32.sub",
	il.OpNot: "i32.const -1\ni32.xor",
}

type arithHandler struct{}

func (arithHandler) Family() Family { return FamArith }
func (arithHandler) Locals() []wat.Local { return nil }

func (arithHandler) CanHandle(ins *il.Instruction) bool {
	_, ok := arithTable[ins.Op]
	return ok
}

func (arithHandler) Handle(_ *FuncContext, ins *il.Instruction) string {
	return arithTable[ins.Op]
}

type stackHandler struct{}

func (stackHandler) Family() Family { return FamStack }
func (stackHandler) Locals() []wat.Local { return nil }

func (stackHandler) CanHandle(ins *il.Instruction) bool {
	return ins.Op == il.OpNop || ins.Op == il.OpPop || ins.Op == il.OpDup
}

func (stackHandler) Handle(fc *FuncContext, ins *il.Instruction) string {
	switch ins.Op {
	case il.OpPop:
		return "drop"
	case il.OpDup:
		name := fc.RequestLocal("dup", types.I32)
		return "local.tee " + name + "\nlocal.get " + name
	default:
		return "nop"
	}
}

type fallbackHandler struct{}

func (fallbackHandler) Family() Family { return FamFallback }
func (fallbackHandler) Locals() []wat.Local { return nil }
func (fallbackHandler) CanHandle(*il.Instruction) bool { return true }

func (fallbackHandler) Handle(fc *FuncContext, ins *il.Instruction) string {
	if ins.Operand != nil {
		return fc.Degrade(diag.TrUnhandledOpcode, ins, fmt.Sprintf("Unhandled operand: %s (%s)", ins.Op, il.FormatOperand(ins.Operand)))
	}
	return fc.Degrade(diag.TrUnhandledOpcode, ins, "Unhandled opcode: "+ins.Op.String())
}
