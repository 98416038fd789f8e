package ilio

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"ilwasm/internal/il"
)

// ToProgram converts a decoded container into the program model. Branch
// targets are resolved to instructions; member references are left for
// il.Link.
func ToProgram(c *Container) (*il.Program, error) {
	if c == nil {
		return nil, errors.New("nil container")
	}
	if c.Schema != schemaVersion {
		return nil, fmt.Errorf("unsupported container schema %d (want %d)", c.Schema, schemaVersion)
	}
	p := &il.Program{Name: c.Program}
	var errs []error
	for _, mr := range c.Modules {
		mod := &il.Module{Name: mr.Name}
		for i := range mr.Types {
			t, err := toType(&mr.Types[i])
			if err != nil {
				errs = append(errs, fmt.Errorf("module %s: %w", mr.Name, err))
			}
			mod.Types = append(mod.Types, t)
		}
		p.Modules = append(p.Modules, mod)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

func toType(tr *TypeRecord) (*il.Type, error) {
	t := &il.Type{Namespace: tr.Namespace, Name: tr.Name}
	var errs []error
	for _, fr := range tr.Fields {
		ft, err := toTypeRef(fr.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", fr.Name, err))
		}
		t.Fields = append(t.Fields, &il.Field{
			Name: fr.Name, Type: ft, Static: fr.Static, InitOnly: fr.InitOnly, DeclaringType: t,
		})
	}
	for i := range tr.Methods {
		m, err := toMethod(&tr.Methods[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("method %s: %w", tr.Methods[i].Name, err))
			continue
		}
		m.DeclaringType = t
		t.Methods = append(t.Methods, m)
	}
	for i := range tr.Nested {
		nested, err := toType(&tr.Nested[i])
		if err != nil {
			errs = append(errs, err)
		}
		nested.DeclaringType = t
		t.Nested = append(t.Nested, nested)
	}
	if err := errors.Join(errs...); err != nil {
		return t, fmt.Errorf("type %s: %w", t.FullName(), err)
	}
	return t, nil
}

func toTypeRef(r TypeRefRecord) (il.TypeRef, error) {
	meta, err := il.ParseMetadataType(r.Meta)
	if err != nil {
		return il.Void, err
	}
	return il.TypeRef{Metadata: meta, Namespace: r.Namespace, Name: r.Name}, nil
}

func toMethod(mr *MethodRecord) (*il.Method, error) {
	kind, err := il.ParseMethodKind(mr.Kind)
	if err != nil {
		return nil, err
	}
	m := &il.Method{
		Name:     mr.Name,
		Kind:     kind,
		Public:   mr.Public,
		HasBody:  mr.HasBody,
		NoMangle: mr.NoMangle,
	}
	var errs []error
	if m.Return, err = toTypeRef(mr.Return); err != nil {
		errs = append(errs, fmt.Errorf("return: %w", err))
	}
	for _, pr := range mr.Params {
		pt, err := toTypeRef(pr.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("param %s: %w", pr.Name, err))
		}
		m.Params = append(m.Params, il.Param{Name: pr.Name, Type: pt})
	}
	for i, lr := range mr.Locals {
		lt, err := toTypeRef(lr)
		if err != nil {
			errs = append(errs, fmt.Errorf("local %d: %w", i, err))
		}
		m.Locals = append(m.Locals, il.Local{Index: i, Type: lt})
	}
	if mr.Import != nil {
		m.Import = &il.ImportTag{Module: mr.Import.Module, Name: mr.Import.Name}
	}

	body := make([]*il.Instruction, 0, len(mr.Body))
	for i := range mr.Body {
		ins, err := toInstruction(&mr.Body[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("IL_%04x: %w", mr.Body[i].Offset, err))
			continue
		}
		body = append(body, ins)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	m.AttachBody(body)

	// targets can only be resolved once every instruction has its offset
	for i, ins := range m.Body {
		if ins.Op.OperandKind() != il.OperandTarget {
			continue
		}
		target := m.InstructionAt(mr.Body[i].Target)
		if target == nil {
			errs = append(errs, fmt.Errorf("IL_%04x: %s target IL_%04x is not an instruction start", ins.Offset, ins.Op, mr.Body[i].Target))
			continue
		}
		ins.Operand = target
	}
	return m, errors.Join(errs...)
}

func toInstruction(r *InstructionRecord) (*il.Instruction, error) {
	op, ok := il.LookupOpCode(r.Op)
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q", r.Op)
	}
	ins := &il.Instruction{Offset: r.Offset, Op: op}
	switch op.OperandKind() {
	case il.OperandNone, il.OperandTarget:
	case il.OperandInt32:
		v, err := safecast.Conv[int32](r.Int)
		if err != nil {
			return nil, fmt.Errorf("%s operand: %w", op, err)
		}
		ins.Operand = v
	case il.OperandInt64:
		ins.Operand = r.Int
	case il.OperandFloat32:
		ins.Operand = float32(r.Float)
	case il.OperandFloat64:
		ins.Operand = r.Float
	case il.OperandString:
		ins.Operand = r.Str
	case il.OperandLocal:
		ins.Operand = il.LocalRef(r.Index)
	case il.OperandArg:
		ins.Operand = il.ArgRef(r.Index)
	case il.OperandField:
		if r.Member == nil {
			return nil, fmt.Errorf("%s without field operand", op)
		}
		ref, err := toFieldRef(r.Member)
		if err != nil {
			return nil, err
		}
		ins.Operand = ref
	case il.OperandMethod:
		if r.Member == nil {
			return nil, fmt.Errorf("%s without method operand", op)
		}
		ref, err := toMethodRef(r.Member)
		if err != nil {
			return nil, err
		}
		ins.Operand = ref
	case il.OperandType:
		if r.Type == nil {
			return nil, fmt.Errorf("%s without type operand", op)
		}
		ref, err := toTypeRef(*r.Type)
		if err != nil {
			return nil, err
		}
		ins.Operand = &ref
	}
	return ins, nil
}

func toFieldRef(r *MemberRecord) (*il.FieldRef, error) {
	decl, err := toTypeRef(r.DeclaringType)
	if err != nil {
		return nil, err
	}
	ft, err := toTypeRef(r.Type)
	if err != nil {
		return nil, err
	}
	return &il.FieldRef{DeclaringType: decl, Name: r.Name, Type: ft}, nil
}

func toMethodRef(r *MemberRecord) (*il.MethodRef, error) {
	decl, err := toTypeRef(r.DeclaringType)
	if err != nil {
		return nil, err
	}
	ret, err := toTypeRef(r.Type)
	if err != nil {
		return nil, err
	}
	ref := &il.MethodRef{DeclaringType: decl, Name: r.Name, Return: ret, HasThis: r.HasThis}
	for _, pr := range r.Params {
		pt, err := toTypeRef(pr)
		if err != nil {
			return nil, err
		}
		ref.Params = append(ref.Params, pt)
	}
	return ref, nil
}
