package il

import (
	"errors"
	"fmt"
)

// Validate checks structural invariants of a decoded program.
// It does not require references to be resolved.
func Validate(p *Program) error {
	if p == nil {
		return errors.New("nil program")
	}
	var errs []error
	p.WalkTypes(func(t *Type) {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("type in namespace %q has no name", t.Namespace))
			return
		}
		for _, m := range t.Methods {
			if m == nil {
				errs = append(errs, fmt.Errorf("type %s: nil method", t.FullName()))
				continue
			}
			if err := validateMethod(m); err != nil {
				errs = append(errs, fmt.Errorf("method %s::%s: %w", t.FullName(), m.Name, err))
			}
		}
	})
	return errors.Join(errs...)
}

func validateMethod(m *Method) error {
	var errs []error

	if m.Import != nil {
		if m.HasBody && len(m.Body) > 0 {
			errs = append(errs, errors.New("import-tagged method has a body"))
		}
		if m.Import.Module == "" || m.Import.Name == "" {
			errs = append(errs, errors.New("import tag needs both module and name"))
		}
	}

	// 1. offsets strictly increase and agree with encoded sizes
	for i, ins := range m.Body {
		if ins == nil {
			errs = append(errs, fmt.Errorf("instruction %d is nil", i))
			continue
		}
		if !ins.Op.Valid() {
			errs = append(errs, fmt.Errorf("IL_%04x: unknown opcode %d", ins.Offset, ins.Op))
		}
		if i > 0 && m.Body[i-1] != nil && m.Body[i-1].End() != ins.Offset {
			errs = append(errs, fmt.Errorf("IL_%04x: expected offset %d", ins.Offset, m.Body[i-1].End()))
		}
	}

	// 2. branch targets belong to this body
	for _, ins := range m.Body {
		if ins == nil || !ins.Op.IsBranch() {
			continue
		}
		target, ok := ins.Target()
		if !ok {
			errs = append(errs, fmt.Errorf("IL_%04x: %s has no target", ins.Offset, ins.Op))
			continue
		}
		if m.InstructionAt(target.Offset) != target {
			errs = append(errs, fmt.Errorf("IL_%04x: target IL_%04x is outside the body", ins.Offset, target.Offset))
		}
	}

	// 3. local slots exist
	for _, ins := range m.Body {
		if ins == nil {
			continue
		}
		if idx, ok := ins.LocalIndex(); ok && isLocalOp(ins.Op) && idx >= len(m.Locals) {
			errs = append(errs, fmt.Errorf("IL_%04x: local %d out of range (%d declared)", ins.Offset, idx, len(m.Locals)))
		}
	}

	return errors.Join(errs...)
}

func isLocalOp(op OpCode) bool {
	switch op {
	case OpLdloc0, OpLdloc1, OpLdloc2, OpLdloc3, OpLdlocS, OpLdloc,
		OpStloc0, OpStloc1, OpStloc2, OpStloc3, OpStlocS, OpStloc, OpLdlocaS:
		return true
	default:
		return false
	}
}
