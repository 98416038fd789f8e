package il

import "fmt"

// FlowControl classifies how an instruction transfers control.
type FlowControl uint8

const (
	FlowNext FlowControl = iota
	FlowBranch
	FlowCondBranch
	FlowReturn
	FlowCall
	FlowThrow
)

func (f FlowControl) String() string {
	switch f {
	case FlowNext:
		return "next"
	case FlowBranch:
		return "branch"
	case FlowCondBranch:
		return "cond_branch"
	case FlowReturn:
		return "return"
	case FlowCall:
		return "call"
	case FlowThrow:
		return "throw"
	default:
		return fmt.Sprintf("FlowControl(%d)", f)
	}
}

// OperandKind describes what an opcode's operand holds.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandInt32
	OperandInt64
	OperandFloat32
	OperandFloat64
	OperandString
	OperandLocal
	OperandArg
	OperandField
	OperandMethod
	OperandType
	OperandTarget
)

func (k OperandKind) String() string {
	switch k {
	case OperandNone:
		return "none"
	case OperandInt32:
		return "int32"
	case OperandInt64:
		return "int64"
	case OperandFloat32:
		return "float32"
	case OperandFloat64:
		return "float64"
	case OperandString:
		return "string"
	case OperandLocal:
		return "local"
	case OperandArg:
		return "arg"
	case OperandField:
		return "field"
	case OperandMethod:
		return "method"
	case OperandType:
		return "type"
	case OperandTarget:
		return "target"
	default:
		return fmt.Sprintf("OperandKind(%d)", k)
	}
}

// OpCode identifies a bytecode operation.
type OpCode uint16

const (
	OpNop OpCode = iota

	OpLdarg0
	OpLdarg1
	OpLdarg2
	OpLdarg3
	OpLdargS
	OpLdarg
	OpStargS
	OpStarg
	OpLdargaS

	OpLdloc0
	OpLdloc1
	OpLdloc2
	OpLdloc3
	OpLdlocS
	OpLdloc
	OpStloc0
	OpStloc1
	OpStloc2
	OpStloc3
	OpStlocS
	OpStloc
	OpLdlocaS

	OpLdnull
	OpLdcI4M1
	OpLdcI40
	OpLdcI41
	OpLdcI42
	OpLdcI43
	OpLdcI44
	OpLdcI45
	OpLdcI46
	OpLdcI47
	OpLdcI48
	OpLdcI4S
	OpLdcI4
	OpLdcI8
	OpLdcR4
	OpLdcR8

	OpDup
	OpPop

	OpCall
	OpCallvirt
	OpNewobj
	OpRet

	OpBrS
	OpBrfalseS
	OpBrtrueS
	OpBeqS
	OpBgeS
	OpBgtS
	OpBleS
	OpBltS
	OpBneUnS
	OpBgeUnS
	OpBgtUnS
	OpBleUnS
	OpBltUnS
	OpBr
	OpBrfalse
	OpBrtrue
	OpBeq
	OpBge
	OpBgt
	OpBle
	OpBlt
	OpBneUn
	OpBgeUn
	OpBgtUn
	OpBleUn
	OpBltUn

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpDivUn
	OpRem
	OpRemUn
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpShrUn
	OpNeg
	OpNot

	OpConvI4
	OpConvI8
	OpConvR4
	OpConvR8

	OpCeq
	OpCgt
	OpCgtUn
	OpClt
	OpCltUn

	OpLdstr
	OpLdfld
	OpStfld
	OpLdsfld
	OpStsfld
	OpBox
	OpThrow

	opCount
)

// OpInfo is the static description of an opcode.
type OpInfo struct {
	Name    string
	Size    int
	Flow    FlowControl
	Operand OperandKind
}

var opTable = [opCount]OpInfo{
	OpNop: {"nop", 1, FlowNext, OperandNone},

	OpLdarg0:  {"ldarg.0", 1, FlowNext, OperandNone},
	OpLdarg1:  {"ldarg.1", 1, FlowNext, OperandNone},
	OpLdarg2:  {"ldarg.2", 1, FlowNext, OperandNone},
	OpLdarg3:  {"ldarg.3", 1, FlowNext, OperandNone},
	OpLdargS:  {"ldarg.s", 2, FlowNext, OperandArg},
	OpLdarg:   {"ldarg", 4, FlowNext, OperandArg},
	OpStargS:  {"starg.s", 2, FlowNext, OperandArg},
	OpStarg:   {"starg", 4, FlowNext, OperandArg},
	OpLdargaS: {"ldarga.s", 2, FlowNext, OperandArg},

	OpLdloc0:  {"ldloc.0", 1, FlowNext, OperandNone},
	OpLdloc1:  {"ldloc.1", 1, FlowNext, OperandNone},
	OpLdloc2:  {"ldloc.2", 1, FlowNext, OperandNone},
	OpLdloc3:  {"ldloc.3", 1, FlowNext, OperandNone},
	OpLdlocS:  {"ldloc.s", 2, FlowNext, OperandLocal},
	OpLdloc:   {"ldloc", 4, FlowNext, OperandLocal},
	OpStloc0:  {"stloc.0", 1, FlowNext, OperandNone},
	OpStloc1:  {"stloc.1", 1, FlowNext, OperandNone},
	OpStloc2:  {"stloc.2", 1, FlowNext, OperandNone},
	OpStloc3:  {"stloc.3", 1, FlowNext, OperandNone},
	OpStlocS:  {"stloc.s", 2, FlowNext, OperandLocal},
	OpStloc:   {"stloc", 4, FlowNext, OperandLocal},
	OpLdlocaS: {"ldloca.s", 2, FlowNext, OperandLocal},

	OpLdnull:  {"ldnull", 1, FlowNext, OperandNone},
	OpLdcI4M1: {"ldc.i4.m1", 1, FlowNext, OperandNone},
	OpLdcI40:  {"ldc.i4.0", 1, FlowNext, OperandNone},
	OpLdcI41:  {"ldc.i4.1", 1, FlowNext, OperandNone},
	OpLdcI42:  {"ldc.i4.2", 1, FlowNext, OperandNone},
	OpLdcI43:  {"ldc.i4.3", 1, FlowNext, OperandNone},
	OpLdcI44:  {"ldc.i4.4", 1, FlowNext, OperandNone},
	OpLdcI45:  {"ldc.i4.5", 1, FlowNext, OperandNone},
	OpLdcI46:  {"ldc.i4.6", 1, FlowNext, OperandNone},
	OpLdcI47:  {"ldc.i4.7", 1, FlowNext, OperandNone},
	OpLdcI48:  {"ldc.i4.8", 1, FlowNext, OperandNone},
	OpLdcI4S:  {"ldc.i4.s", 2, FlowNext, OperandInt32},
	OpLdcI4:   {"ldc.i4", 5, FlowNext, OperandInt32},
	OpLdcI8:   {"ldc.i8", 9, FlowNext, OperandInt64},
	OpLdcR4:   {"ldc.r4", 5, FlowNext, OperandFloat32},
	OpLdcR8:   {"ldc.r8", 9, FlowNext, OperandFloat64},

	OpDup: {"dup", 1, FlowNext, OperandNone},
	OpPop: {"pop", 1, FlowNext, OperandNone},

	OpCall:     {"call", 5, FlowCall, OperandMethod},
	OpCallvirt: {"callvirt", 5, FlowCall, OperandMethod},
	OpNewobj:   {"newobj", 5, FlowCall, OperandMethod},
	OpRet:      {"ret", 1, FlowReturn, OperandNone},

	OpBrS:      {"br.s", 2, FlowBranch, OperandTarget},
	OpBrfalseS: {"brfalse.s", 2, FlowCondBranch, OperandTarget},
	OpBrtrueS:  {"brtrue.s", 2, FlowCondBranch, OperandTarget},
	OpBeqS:     {"beq.s", 2, FlowCondBranch, OperandTarget},
	OpBgeS:     {"bge.s", 2, FlowCondBranch, OperandTarget},
	OpBgtS:     {"bgt.s", 2, FlowCondBranch, OperandTarget},
	OpBleS:     {"ble.s", 2, FlowCondBranch, OperandTarget},
	OpBltS:     {"blt.s", 2, FlowCondBranch, OperandTarget},
	OpBneUnS:   {"bne.un.s", 2, FlowCondBranch, OperandTarget},
	OpBgeUnS:   {"bge.un.s", 2, FlowCondBranch, OperandTarget},
	OpBgtUnS:   {"bgt.un.s", 2, FlowCondBranch, OperandTarget},
	OpBleUnS:   {"ble.un.s", 2, FlowCondBranch, OperandTarget},
	OpBltUnS:   {"blt.un.s", 2, FlowCondBranch, OperandTarget},
	OpBr:       {"br", 5, FlowBranch, OperandTarget},
	OpBrfalse:  {"brfalse", 5, FlowCondBranch, OperandTarget},
	OpBrtrue:   {"brtrue", 5, FlowCondBranch, OperandTarget},
	OpBeq:      {"beq", 5, FlowCondBranch, OperandTarget},
	OpBge:      {"bge", 5, FlowCondBranch, OperandTarget},
	OpBgt:      {"bgt", 5, FlowCondBranch, OperandTarget},
	OpBle:      {"ble", 5, FlowCondBranch, OperandTarget},
	OpBlt:      {"blt", 5, FlowCondBranch, OperandTarget},
	OpBneUn:    {"bne.un", 5, FlowCondBranch, OperandTarget},
	OpBgeUn:    {"bge.un", 5, FlowCondBranch, OperandTarget},
	OpBgtUn:    {"bgt.un", 5, FlowCondBranch, OperandTarget},
	OpBleUn:    {"ble.un", 5, FlowCondBranch, OperandTarget},
	OpBltUn:    {"blt.un", 5, FlowCondBranch, OperandTarget},

	OpAdd:   {"add", 1, FlowNext, OperandNone},
	OpSub:   {"sub", 1, FlowNext, OperandNone},
	OpMul:   {"mul", 1, FlowNext, OperandNone},
	OpDiv:   {"div", 1, FlowNext, OperandNone},
	OpDivUn: {"div.un", 1, FlowNext, OperandNone},
	OpRem:   {"rem", 1, FlowNext, OperandNone},
	OpRemUn: {"rem.un", 1, FlowNext, OperandNone},
	OpAnd:   {"and", 1, FlowNext, OperandNone},
	OpOr:    {"or", 1, FlowNext, OperandNone},
	OpXor:   {"xor", 1, FlowNext, OperandNone},
	OpShl:   {"shl", 1, FlowNext, OperandNone},
	OpShr:   {"shr", 1, FlowNext, OperandNone},
	OpShrUn: {"shr.un", 1, FlowNext, OperandNone},
	OpNeg:   {"neg", 1, FlowNext, OperandNone},
	OpNot:   {"not", 1, FlowNext, OperandNone},

	OpConvI4: {"conv.i4", 1, FlowNext, OperandNone},
	OpConvI8: {"conv.i8", 1, FlowNext, OperandNone},
	OpConvR4: {"conv.r4", 1, FlowNext, OperandNone},
	OpConvR8: {"conv.r8", 1, FlowNext, OperandNone},

	OpCeq:   {"ceq", 2, FlowNext, OperandNone},
	OpCgt:   {"cgt", 2, FlowNext, OperandNone},
	OpCgtUn: {"cgt.un", 2, FlowNext, OperandNone},
	OpClt:   {"clt", 2, FlowNext, OperandNone},
	OpCltUn: {"clt.un", 2, FlowNext, OperandNone},

	OpLdstr:  {"ldstr", 5, FlowNext, OperandString},
	OpLdfld:  {"ldfld", 5, FlowNext, OperandField},
	OpStfld:  {"stfld", 5, FlowNext, OperandField},
	OpLdsfld: {"ldsfld", 5, FlowNext, OperandField},
	OpStsfld: {"stsfld", 5, FlowNext, OperandField},
	OpBox:    {"box", 5, FlowNext, OperandType},
	OpThrow:  {"throw", 1, FlowThrow, OperandNone},
}

var opByName = func() map[string]OpCode {
	m := make(map[string]OpCode, opCount)
	for i := OpCode(0); i < opCount; i++ {
		m[opTable[i].Name] = i
	}
	return m
}()

// Info returns the static description of the opcode.
func (op OpCode) Info() OpInfo {
	if op < opCount {
		return opTable[op]
	}
	return OpInfo{Name: fmt.Sprintf("OpCode(%d)", op), Size: 1, Flow: FlowNext}
}

func (op OpCode) String() string { return op.Info().Name }

// Size returns the encoded size of the opcode including its inline operand.
func (op OpCode) Size() int { return op.Info().Size }

// Flow returns the flow-control classification.
func (op OpCode) Flow() FlowControl { return op.Info().Flow }

// OperandKind returns the kind of inline operand the opcode carries.
func (op OpCode) OperandKind() OperandKind { return op.Info().Operand }

// IsBranch reports whether the opcode transfers control to an explicit target.
func (op OpCode) IsBranch() bool {
	f := op.Flow()
	return f == FlowBranch || f == FlowCondBranch
}

// Valid reports whether the opcode is known.
func (op OpCode) Valid() bool { return op < opCount }

// LookupOpCode maps an opcode name ("ldc.i4.s") to its OpCode.
func LookupOpCode(name string) (OpCode, bool) {
	op, ok := opByName[name]
	return op, ok
}

// OpCodes returns all known opcodes in table order.
func OpCodes() []OpCode {
	out := make([]OpCode, 0, opCount)
	for i := OpCode(0); i < opCount; i++ {
		out = append(out, i)
	}
	return out
}
