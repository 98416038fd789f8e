package wasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"ilwasm/internal/diag"
	"ilwasm/internal/il"
	"ilwasm/internal/types"
	"ilwasm/internal/wat"
)

// labelSpace seeds the name-based UUIDs used for block labels, so the same
// method always gets the same labels.
var labelSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ilwasm:block-label"))

type branchKind uint8

const (
	branchInvalid branchKind = iota
	branchOpened
	branchTrivial
	branchBackward
	branchUnnestable
)

type branchPlan struct {
	kind   branchKind
	label  string
	target int
	// closes is the close offset of the innermost open block when the
	// branch could not nest.
	closes int
}

type openBlock struct {
	label string
	close int
}

// FlowState reconstructs structured blocks for forward branches during the
// single walk over one method body.
type FlowState struct {
	symbol string
	open   []openBlock
	labels map[string]bool
	plans  map[*il.Instruction]branchPlan
	opened int
}

func newFlowState(symbol string) *FlowState {
	return &FlowState{
		symbol: symbol,
		labels: make(map[string]bool),
		plans:  make(map[*il.Instruction]branchPlan),
	}
}

// Depth is the number of blocks currently open.
func (f *FlowState) Depth() int { return len(f.open) }

// Opened is the number of blocks opened so far.
func (f *FlowState) Opened() int { return f.opened }

func (f *FlowState) label(offset int) string {
	name := f.symbol + "@" + strconv.Itoa(offset)
	for n := 0; ; n++ {
		seed := name
		if n > 0 {
			seed += "#" + strconv.Itoa(n)
		}
		l := uuid.NewSHA1(labelSpace, []byte(seed)).String()[:8]
		if !f.labels[l] {
			f.labels[l] = true
			return "$" + l
		}
	}
}

// Before returns the text that precedes the translation of ins: the closing
// parens of blocks that end at ins and, for a forward branch, the opening
// of its block.
func (f *FlowState) Before(fc *FuncContext, ins *il.Instruction) string {
	var sb strings.Builder
	local := ins.IsLocalLoad()
	for len(f.open) > 0 {
		top := f.open[len(f.open)-1]
		if top.close > ins.Offset || (local && top.close == ins.Offset) {
			break
		}
		f.open = f.open[:len(f.open)-1]
		sb.WriteString(")\n")
	}
	if ins.Op.IsBranch() {
		sb.WriteString(f.plan(fc, ins))
	}
	return sb.String()
}

// After closes the blocks ending at ins when ins is a local load. The load
// stays inside the block and is replayed after it.
func (f *FlowState) After(fc *FuncContext, ins *il.Instruction) string {
	if !ins.IsLocalLoad() {
		return ""
	}
	var sb strings.Builder
	for len(f.open) > 0 && f.open[len(f.open)-1].close == ins.Offset {
		f.open = f.open[:len(f.open)-1]
		slot, _ := ins.LocalIndex()
		fmt.Fprintf(&sb, "drop\n)\nlocal.get %d\n", fc.SlotIndex(slot))
	}
	return sb.String()
}

// Finish force-closes blocks whose target was never reached.
func (f *FlowState) Finish(fc *FuncContext) string {
	var sb strings.Builder
	for len(f.open) > 0 {
		top := f.open[len(f.open)-1]
		f.open = f.open[:len(f.open)-1]
		sb.WriteString(fc.Degrade(diag.TrUnclosedBlock, nil,
			fmt.Sprintf("block %s for IL_%04x still open at method end", top.label, top.close)))
		sb.WriteString("\n)\n")
	}
	return sb.String()
}

func (f *FlowState) plan(fc *FuncContext, ins *il.Instruction) string {
	target, ok := ins.Target()
	if !ok {
		f.plans[ins] = branchPlan{kind: branchInvalid}
		return ""
	}
	p := branchPlan{target: target.Offset}
	switch {
	case target.Offset <= ins.Offset:
		p.kind = branchBackward
	case target.Offset == ins.End():
		p.kind = branchTrivial
	case len(f.open) > 0 && f.open[len(f.open)-1].close < target.Offset:
		p.kind = branchUnnestable
		p.closes = f.open[len(f.open)-1].close
	default:
		p.kind = branchOpened
		p.label = f.label(ins.Offset)
	}
	f.plans[ins] = p
	if p.kind != branchOpened {
		return ""
	}
	f.open = append(f.open, openBlock{label: p.label, close: target.Offset})
	f.opened++

	var sb strings.Builder
	prev := ins.Prev()
	replay := prev != nil && prev.IsLocalLoad() && !fc.isSuppressed(prev)
	switch operandCount(ins.Op) {
	case 0:
		if replay {
			sb.WriteString("drop\n")
		}
		sb.WriteString("(block " + p.label + "\n")
		if replay {
			sb.WriteString(replayLoad(fc, prev))
		}
	case 1:
		if replay {
			sb.WriteString("drop\n(block " + p.label + "\n")
			sb.WriteString(replayLoad(fc, prev))
			break
		}
		cond := fc.RequestLocal("cond", types.I32)
		sb.WriteString("local.set " + cond + "\n(block " + p.label + "\nlocal.get " + cond + "\n")
	default:
		cond := fc.RequestLocal("cond", types.I32)
		sb.WriteString(compareOp(ins.Op) + "\nlocal.set " + cond + "\n(block " + p.label + "\nlocal.get " + cond + "\n")
	}
	return sb.String()
}

func replayLoad(fc *FuncContext, ins *il.Instruction) string {
	slot, _ := ins.LocalIndex()
	return "local.get " + strconv.Itoa(fc.SlotIndex(slot)) + "\n"
}

// longForm maps the short branch forms to their long equivalents.
func longForm(op il.OpCode) il.OpCode {
	if op >= il.OpBrS && op <= il.OpBltUnS {
		return op - il.OpBrS + il.OpBr
	}
	return op
}

// operandCount is the number of stack values a branch consumes.
func operandCount(op il.OpCode) int {
	switch longForm(op) {
	case il.OpBr:
		return 0
	case il.OpBrfalse, il.OpBrtrue:
		return 1
	default:
		return 2
	}
}

var compareOps = map[il.OpCode]string{
	il.OpBeq:   "i32.eq",
	il.OpBge:   "i32.ge_s",
	il.OpBgt:   "i32.gt_s",
	il.OpBle:   "i32.le_s",
	il.OpBlt:   "i32.lt_s",
	il.OpBneUn: "i32.ne",
	il.OpBgeUn: "i32.ge_u",
	il.OpBgtUn: "i32.gt_u",
	il.OpBleUn: "i32.le_u",
	il.OpBltUn: "i32.lt_u",
}

func compareOp(op il.OpCode) string { return compareOps[longForm(op)] }

type branchHandler struct{}

func (branchHandler) Family() Family { return FamBranch }
func (branchHandler) Locals() []wat.Local { return nil }
func (branchHandler) CanHandle(ins *il.Instruction) bool { return ins.Op.IsBranch() }

func (branchHandler) Handle(fc *FuncContext, ins *il.Instruction) string {
	p, ok := fc.Flow.plans[ins]
	if !ok {
		p = branchPlan{kind: branchInvalid}
	}
	n := operandCount(ins.Op)
	switch p.kind {
	case branchOpened:
		switch longForm(ins.Op) {
		case il.OpBr:
			return "br " + p.label
		case il.OpBrfalse:
			return "i32.eqz\nbr_if " + p.label
		default:
			return "br_if " + p.label
		}
	case branchTrivial:
		if n == 0 {
			return fmt.Sprintf("nop ;; fallthrough to IL_%04x", p.target)
		}
		return strings.TrimSuffix(strings.Repeat("drop\n", n), "\n") + fmt.Sprintf(" ;; fallthrough to IL_%04x", p.target)
	case branchBackward:
		return fc.Degrade(diag.TrBackwardBranch, ins,
			fmt.Sprintf("backward %s to IL_%04x left untranslated", ins.Op, p.target)) + drops(n)
	case branchUnnestable:
		return fc.Degrade(diag.TrUnnestableBranch, ins,
			fmt.Sprintf("%s to IL_%04x crosses the block closing at IL_%04x", ins.Op, p.target, p.closes)) + drops(n)
	default:
		return fc.Degrade(diag.TrInvalidOperand, ins,
			fmt.Sprintf("invalid %s target %s", ins.Op, il.FormatOperand(ins.Operand))) + drops(n)
	}
}

func drops(n int) string { return strings.Repeat("\ndrop", n) }
