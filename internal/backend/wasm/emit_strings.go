package wasm

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"ilwasm/internal/diag"
	"ilwasm/internal/il"
	"ilwasm/internal/types"
	"ilwasm/internal/wat"
)

// Strings are laid out as a 4-byte little-endian byte count followed by the
// UTF-8 bytes, in a block obtained from the allocator.
const stringHeaderSize = 4

type stringHandler struct{}

func (stringHandler) Family() Family { return FamString }

func (stringHandler) Locals() []wat.Local {
	return []wat.Local{{Name: "strPtr", Type: types.I32}}
}

func (stringHandler) CanHandle(ins *il.Instruction) bool { return ins.Op == il.OpLdstr }

func (stringHandler) Handle(fc *FuncContext, ins *il.Instruction) string {
	s, ok := ins.StringOperand()
	if !ok {
		return fc.Degrade(diag.TrInvalidOperand, ins, "invalid ldstr operand "+il.FormatOperand(ins.Operand))
	}
	if suppressesLdstr(ins) {
		fc.Suppress(ins)
		return ""
	}
	data := []byte(s)
	n, err := safecast.Conv[uint32](len(data))
	if err != nil {
		return fc.Degrade(diag.TrInvalidOperand, ins, fmt.Sprintf("string literal of %d bytes: %v", len(data), err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "i32.const %d ;; 4 + %d string bytes\n", stringHeaderSize+len(data), len(data))
	fmt.Fprintf(&sb, "call $%s\nlocal.set $strPtr\n", fc.Allocator())
	for i := range stringHeaderSize {
		storeByte(&sb, i, byte(n>>(8*i)))
	}
	for i, b := range data {
		storeByte(&sb, stringHeaderSize+i, b)
	}
	sb.WriteString("local.get $strPtr")
	return sb.String()
}

func storeByte(sb *strings.Builder, offset int, b byte) {
	sb.WriteString("local.get $strPtr\n")
	if offset > 0 {
		fmt.Fprintf(sb, "i32.const %d\ni32.add\n", offset)
	}
	fmt.Fprintf(sb, "i32.const %d\ni32.store8\n", b)
}
