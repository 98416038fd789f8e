// Package wat writes WebAssembly text-format modules.
package wat

import "ilwasm/internal/types"

// Param is a named function parameter. Names are emitted as "$<Name>".
type Param struct {
	Name string
	Type types.ValType
}

// Local is a named scratch local.
type Local struct {
	Name string
	Type types.ValType
}

// Func is the signature of a function being defined.
type Func struct {
	Symbol string
	Params []Param
	// Result is types.Invalid for functions that return nothing.
	Result types.ValType
}

// Import describes a host function import.
type Import struct {
	Module string
	Name   string
	Symbol string
	Params []types.ValType
	Result types.ValType
}

// Global describes a module global initialised with a constant.
type Global struct {
	Symbol  string
	Type    types.ValType
	Mutable bool
	Init    string
}

// Writer sequences the textual constructs of one module.
// Implementations are not safe for concurrent use.
type Writer interface {
	BeginModule()
	EndModule()
	DeclareImport(imp Import)
	DeclareMemory(pages int)
	DeclareGlobal(g Global)
	BeginFunction(fn Func)
	DeclareLocal(l Local)
	DeclareLocals(ts []types.ValType)
	WriteInstruction(text string)
	EndFunction()
	ExportFunction(name, symbol string)
	Flush() error
}

// MemorySymbol names the single linear memory of every module.
const MemorySymbol = "mem"
