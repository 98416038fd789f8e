package wasm

import (
	"ilwasm/internal/diag"
	"ilwasm/internal/il"
	"ilwasm/internal/layout"
	"ilwasm/internal/types"
	"ilwasm/internal/wat"
)

// FuncContext is the per-method state shared by handlers during one walk.
type FuncContext struct {
	emitter *Emitter
	Method  *il.Method
	Symbol  string
	Flow    *FlowState

	// paramCount includes the implicit this parameter.
	paramCount int

	locals     []wat.Local
	localIndex map[string]int
	suppressed map[*il.Instruction]bool
	degraded   int
}

func newFuncContext(e *Emitter, m *il.Method, symbol string, paramCount int) *FuncContext {
	return &FuncContext{
		emitter:    e,
		Method:     m,
		Symbol:     symbol,
		Flow:       newFlowState(symbol),
		paramCount: paramCount,
		localIndex: make(map[string]int),
		suppressed: make(map[*il.Instruction]bool),
	}
}

// RequestLocal declares a named scratch local for the function being emitted
// and returns its reference ("$name"). Requesting the same name twice
// returns the existing local.
func (fc *FuncContext) RequestLocal(name string, t types.ValType) string {
	if _, ok := fc.localIndex[name]; !ok {
		fc.localIndex[name] = len(fc.locals)
		fc.locals = append(fc.locals, wat.Local{Name: name, Type: t})
	}
	return "$" + name
}

// Scratch requests a scratch local whose name carries its value type.
func (fc *FuncContext) Scratch(prefix string, t types.ValType) string {
	return fc.RequestLocal(prefix+"_"+t.String(), t)
}

// SlotIndex maps a local slot to its position in the WAT local index space.
func (fc *FuncContext) SlotIndex(slot int) int { return fc.paramCount + slot }

// SlotType reports the value type of a local slot.
func (fc *FuncContext) SlotType(slot int) (types.ValType, bool) {
	if slot < 0 || slot >= len(fc.Method.Locals) {
		return types.Invalid, false
	}
	return types.StorageOf(fc.Method.Locals[slot].Type), true
}

// Layout returns the emitter's layout engine.
func (fc *FuncContext) Layout() *layout.LayoutEngine { return fc.emitter.layout }

// Allocator returns the bump allocator symbol without the leading "$".
func (fc *FuncContext) Allocator() string { return fc.emitter.opts.Allocator }

// Suppress marks ins as already consumed by a neighbouring handler.
func (fc *FuncContext) Suppress(ins *il.Instruction) { fc.suppressed[ins] = true }

func (fc *FuncContext) isSuppressed(ins *il.Instruction) bool { return fc.suppressed[ins] }

// Degrade records a warning for ins and returns the placeholder comment that
// stands in for the untranslated instruction.
func (fc *FuncContext) Degrade(code diag.Code, ins *il.Instruction, msg string) string {
	fc.degraded++
	fc.emitter.report(code, fc.location(ins), msg)
	return ";; " + msg
}

func (fc *FuncContext) location(ins *il.Instruction) diag.Location {
	loc := diag.Location{
		Program: fc.emitter.opts.ProgramName,
		Method:  fc.Method.Name,
		Offset:  diag.NoOffset,
	}
	if fc.Method.DeclaringType != nil {
		loc.Type = fc.Method.DeclaringType.FullName()
	}
	if ins != nil {
		loc.Offset = ins.Offset
	}
	return loc
}
