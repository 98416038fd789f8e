package il

// SetBody attaches instructions to the method, assigning offsets from the
// encoded opcode sizes and enabling Prev/Next lookups.
func (m *Method) SetBody(instrs ...*Instruction) {
	offset := 0
	body := make([]*Instruction, 0, len(instrs))
	for _, ins := range instrs {
		if ins == nil {
			continue
		}
		ins.Offset = offset
		ins.index = len(body)
		ins.method = m
		offset += ins.Size()
		body = append(body, ins)
	}
	m.Body = body
	m.HasBody = true
}

// AttachBody links instructions whose offsets are already known (as decoded
// from a container) to the method without renumbering them.
func (m *Method) AttachBody(instrs []*Instruction) {
	for i, ins := range instrs {
		ins.index = i
		ins.method = m
	}
	m.Body = instrs
	m.HasBody = len(instrs) > 0 || m.HasBody
}

// InstructionAt returns the instruction starting at the given offset.
func (m *Method) InstructionAt(offset int) *Instruction {
	if m == nil {
		return nil
	}
	lo, hi := 0, len(m.Body)
	for lo < hi {
		mid := (lo + hi) / 2
		switch o := m.Body[mid].Offset; {
		case o == offset:
			return m.Body[mid]
		case o < offset:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return nil
}

// I builds an instruction with an optional operand.
func I(op OpCode, operand ...any) *Instruction {
	ins := &Instruction{Op: op}
	if len(operand) > 0 {
		ins.Operand = operand[0]
	}
	return ins
}

// Link fixes up declaring-type back pointers and resolves field, method and
// type references by name. References that cannot be resolved keep a nil
// Decl and are returned as descriptions.
func Link(p *Program) []string {
	if p == nil {
		return nil
	}
	l := &linker{types: make(map[string]*Type)}
	for _, mod := range p.Modules {
		if mod == nil {
			continue
		}
		for _, t := range mod.Types {
			l.adopt(t, nil)
		}
	}
	p.WalkTypes(func(t *Type) {
		for _, f := range t.Fields {
			l.linkType(&f.Type)
		}
		for _, m := range t.Methods {
			l.linkType(&m.Return)
			for i := range m.Params {
				l.linkType(&m.Params[i].Type)
			}
			for i := range m.Locals {
				l.linkType(&m.Locals[i].Type)
			}
			for _, ins := range m.Body {
				l.linkOperand(ins)
			}
		}
	})
	return l.unresolved
}

type linker struct {
	types      map[string]*Type
	unresolved []string
}

func (l *linker) adopt(t *Type, parent *Type) {
	if t == nil {
		return
	}
	t.DeclaringType = parent
	l.types[t.FullName()] = t
	for _, f := range t.Fields {
		if f != nil {
			f.DeclaringType = t
		}
	}
	for _, m := range t.Methods {
		if m == nil {
			continue
		}
		m.DeclaringType = t
		for i, ins := range m.Body {
			ins.index = i
			ins.method = m
		}
	}
	for _, nested := range t.Nested {
		l.adopt(nested, t)
	}
}

func (l *linker) lookup(ref TypeRef) *Type {
	if ref.Name == "" {
		return nil
	}
	return l.types[ref.FullName()]
}

func (l *linker) linkType(ref *TypeRef) {
	if ref.Decl != nil || !ref.Metadata.IsNamed() {
		return
	}
	ref.Decl = l.lookup(*ref)
}

func (l *linker) linkOperand(ins *Instruction) {
	switch op := ins.Operand.(type) {
	case *FieldRef:
		if op == nil || op.Decl != nil {
			return
		}
		l.linkType(&op.DeclaringType)
		l.linkType(&op.Type)
		if t := l.lookup(op.DeclaringType); t != nil {
			for _, f := range t.Fields {
				if f.Name == op.Name {
					op.Decl = f
					op.DeclaringType.Decl = t
					return
				}
			}
		}
		l.unresolved = append(l.unresolved, "field "+op.String())
	case *MethodRef:
		if op == nil || op.Decl != nil {
			return
		}
		l.linkType(&op.DeclaringType)
		l.linkType(&op.Return)
		for i := range op.Params {
			l.linkType(&op.Params[i])
		}
		if t := l.lookup(op.DeclaringType); t != nil {
			for _, m := range t.Methods {
				if m.Name == op.Name && m.HasThis() == op.HasThis && sameParams(m.Params, op.Params) {
					op.Decl = m
					op.DeclaringType.Decl = t
					return
				}
			}
		}
		// references into types outside the program are expected (host library calls)
		if l.lookup(op.DeclaringType) != nil {
			l.unresolved = append(l.unresolved, "method "+op.String())
		}
	case *TypeRef:
		if op == nil {
			return
		}
		l.linkType(op)
		if op.Decl == nil && op.Metadata.IsNamed() {
			l.unresolved = append(l.unresolved, "type "+op.FullName())
		}
	}
}

func sameParams(decl []Param, ref []TypeRef) bool {
	if len(decl) != len(ref) {
		return false
	}
	for i := range decl {
		a, b := decl[i].Type, ref[i]
		if a.Metadata != b.Metadata {
			return false
		}
		if a.Metadata.IsNamed() && a.FullName() != b.FullName() {
			return false
		}
	}
	return true
}
