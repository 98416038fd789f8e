package wasm

import (
	"strconv"
	"strings"

	"ilwasm/internal/il"
	"ilwasm/internal/symbols"
	"ilwasm/internal/trace"
	"ilwasm/internal/types"
	"ilwasm/internal/wat"
)

func (e *Emitter) emitMethod(w wat.Writer, m *il.Method, parent uint64) {
	if m.Import != nil || !m.HasBody {
		return
	}
	sym := symbols.MethodDecl(m)
	span := trace.Begin(e.tracer, trace.ScopeMethod, "method:"+sym, parent)

	fn := wat.Func{Symbol: sym, Result: types.Invalid}
	if m.HasThis() {
		fn.Params = append(fn.Params, wat.Param{Name: "0", Type: types.I32})
	}
	for _, p := range m.Params {
		fn.Params = append(fn.Params, wat.Param{Name: strconv.Itoa(len(fn.Params)), Type: types.StorageOf(p.Type)})
	}
	if vt, ok := types.ResultOf(m.Return); ok {
		fn.Result = vt
	}

	fc := newFuncContext(e, m, sym, len(fn.Params))
	if m.HasThis() || m.UsesOp(il.OpNewobj) {
		fc.RequestLocal("this", types.I32)
	}

	var body strings.Builder
	if m.IsConstructor() {
		body.WriteString("local.get $0\nlocal.set $this\n")
	}
	var used []Handler
	seen := make(map[Family]bool)
	for _, ins := range m.Body {
		body.WriteString(fc.Flow.Before(fc, ins))
		h := e.registry.Dispatch(ins)
		if text := h.Handle(fc, ins); text != "" {
			body.WriteString(text)
			body.WriteByte('\n')
			if !seen[h.Family()] {
				seen[h.Family()] = true
				used = append(used, h)
			}
		}
		body.WriteString(fc.Flow.After(fc, ins))
		e.stats.Instructions++
	}
	body.WriteString(fc.Flow.Finish(fc))

	for _, h := range used {
		for _, l := range h.Locals() {
			fc.RequestLocal(l.Name, l.Type)
		}
	}

	w.BeginFunction(fn)
	slots := make([]types.ValType, len(m.Locals))
	for i, l := range m.Locals {
		slots[i] = types.StorageOf(l.Type)
	}
	w.DeclareLocals(slots)
	for _, l := range fc.locals {
		w.DeclareLocal(l)
	}
	w.WriteInstruction(body.String())
	w.EndFunction()
	e.stats.Methods++
	e.stats.Blocks += fc.Flow.Opened()

	if m.Public && m.Kind == il.MethodStatic {
		w.ExportFunction(sym, sym)
		e.stats.Exports++
	}
	span.WithExtra("instructions", strconv.Itoa(len(m.Body))).
		WithExtra("degraded", strconv.Itoa(fc.degraded)).
		End("")
}
