package ilio

import (
	"errors"
	"fmt"

	"ilwasm/internal/il"
)

// FromProgram converts a program into container records.
func FromProgram(p *il.Program) (*Container, error) {
	if p == nil {
		return nil, errors.New("nil program")
	}
	c := &Container{Schema: schemaVersion, Program: p.Name}
	var errs []error
	for _, mod := range p.Modules {
		if mod == nil {
			continue
		}
		mr := ModuleRecord{Name: mod.Name}
		for _, t := range mod.Types {
			tr, err := fromType(t)
			if err != nil {
				errs = append(errs, fmt.Errorf("module %s: %w", mod.Name, err))
				continue
			}
			mr.Types = append(mr.Types, tr)
		}
		c.Modules = append(c.Modules, mr)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func fromType(t *il.Type) (TypeRecord, error) {
	tr := TypeRecord{Namespace: t.Namespace, Name: t.Name}
	for _, f := range t.Fields {
		tr.Fields = append(tr.Fields, FieldRecord{
			Name: f.Name, Type: fromTypeRef(f.Type), Static: f.Static, InitOnly: f.InitOnly,
		})
	}
	var errs []error
	for _, m := range t.Methods {
		mr, err := fromMethod(m)
		if err != nil {
			errs = append(errs, fmt.Errorf("method %s: %w", m.Name, err))
			continue
		}
		tr.Methods = append(tr.Methods, mr)
	}
	for _, nested := range t.Nested {
		nr, err := fromType(nested)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tr.Nested = append(tr.Nested, nr)
	}
	if err := errors.Join(errs...); err != nil {
		return tr, fmt.Errorf("type %s: %w", t.FullName(), err)
	}
	return tr, nil
}

func fromTypeRef(r il.TypeRef) TypeRefRecord {
	return TypeRefRecord{Meta: r.Metadata.String(), Namespace: r.Namespace, Name: r.Name}
}

func fromMethod(m *il.Method) (MethodRecord, error) {
	mr := MethodRecord{
		Name:     m.Name,
		Kind:     m.Kind.String(),
		Public:   m.Public,
		Return:   fromTypeRef(m.Return),
		HasBody:  m.HasBody,
		NoMangle: m.NoMangle,
	}
	for _, p := range m.Params {
		mr.Params = append(mr.Params, ParamRecord{Name: p.Name, Type: fromTypeRef(p.Type)})
	}
	for _, l := range m.Locals {
		mr.Locals = append(mr.Locals, fromTypeRef(l.Type))
	}
	if m.Import != nil {
		mr.Import = &ImportRecord{Module: m.Import.Module, Name: m.Import.Name}
	}
	var errs []error
	for _, ins := range m.Body {
		r, err := fromInstruction(ins)
		if err != nil {
			errs = append(errs, fmt.Errorf("IL_%04x: %w", ins.Offset, err))
			continue
		}
		mr.Body = append(mr.Body, r)
	}
	return mr, errors.Join(errs...)
}

func fromInstruction(ins *il.Instruction) (InstructionRecord, error) {
	r := InstructionRecord{Offset: ins.Offset, Op: ins.Op.String()}
	bad := func() (InstructionRecord, error) {
		return r, fmt.Errorf("%s: operand %T does not match kind %s", ins.Op, ins.Operand, ins.Op.OperandKind())
	}
	switch ins.Op.OperandKind() {
	case il.OperandNone:
	case il.OperandInt32:
		v, ok := ins.Int32Operand()
		if !ok {
			return bad()
		}
		r.Int = int64(v)
	case il.OperandInt64:
		v, ok := ins.Operand.(int64)
		if !ok {
			return bad()
		}
		r.Int = v
	case il.OperandFloat32:
		v, ok := ins.Operand.(float32)
		if !ok {
			return bad()
		}
		r.Float = float64(v)
	case il.OperandFloat64:
		v, ok := ins.Operand.(float64)
		if !ok {
			return bad()
		}
		r.Float = v
	case il.OperandString:
		v, ok := ins.StringOperand()
		if !ok {
			return bad()
		}
		r.Str = v
	case il.OperandLocal:
		v, ok := ins.LocalIndex()
		if !ok {
			return bad()
		}
		r.Index = v
	case il.OperandArg:
		v, ok := ins.ArgIndex()
		if !ok {
			return bad()
		}
		r.Index = v
	case il.OperandField:
		f, ok := ins.FieldOperand()
		if !ok {
			return bad()
		}
		r.Member = &MemberRecord{
			DeclaringType: fromTypeRef(f.DeclaringType),
			Name:          f.Name,
			Type:          fromTypeRef(f.Type),
		}
	case il.OperandMethod:
		m, ok := ins.MethodOperand()
		if !ok {
			return bad()
		}
		mem := &MemberRecord{
			DeclaringType: fromTypeRef(m.DeclaringType),
			Name:          m.Name,
			Type:          fromTypeRef(m.Return),
			HasThis:       m.HasThis,
		}
		for _, p := range m.Params {
			mem.Params = append(mem.Params, fromTypeRef(p))
		}
		r.Member = mem
	case il.OperandType:
		t, ok := ins.Operand.(*il.TypeRef)
		if !ok || t == nil {
			return bad()
		}
		tr := fromTypeRef(*t)
		r.Type = &tr
	case il.OperandTarget:
		target, ok := ins.Target()
		if !ok {
			return bad()
		}
		r.Target = target.Offset
	}
	return r, nil
}
