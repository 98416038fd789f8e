// Package layout computes the linear-memory layout of object instances.
//
// Instance fields are packed sequentially in declaration order with no
// padding; static fields live in globals and take no space.
package layout

import (
	"fortio.org/safecast"

	"ilwasm/internal/il"
	"ilwasm/internal/types"
)

// FieldSlot is the placement of one instance field.
type FieldSlot struct {
	Field  *il.Field
	Offset int
	Size   int
}

// TypeLayout is the instance layout of a type.
type TypeLayout struct {
	Size   int
	Fields []FieldSlot
}

// Slot returns the placement of f, if f is an instance field of the layout.
func (l TypeLayout) Slot(f *il.Field) (FieldSlot, bool) {
	for _, s := range l.Fields {
		if s.Field == f {
			return s, true
		}
	}
	return FieldSlot{}, false
}

// LayoutEngine computes memory layout for types.
type LayoutEngine struct {
	Target Target

	cache *cache
}

// New creates a new LayoutEngine for the specified target.
func New(target Target) *LayoutEngine {
	return &LayoutEngine{
		Target: target,
		cache:  newCache(),
	}
}

// LayoutOf computes and caches the layout of a type.
func (e *LayoutEngine) LayoutOf(t *il.Type) (TypeLayout, error) {
	l, err := e.layoutOf(t)
	if err != nil {
		return l, err
	}
	return l, nil
}

func (e *LayoutEngine) layoutOf(t *il.Type) (TypeLayout, *LayoutError) {
	if t == nil {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolved}
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	if cached, ok := e.cache.get(t); ok {
		return cached.Layout, cached.Err
	}

	var out TypeLayout
	offset := 0
	for _, f := range t.InstanceFields() {
		size := e.fieldSize(f.Type)
		out.Fields = append(out.Fields, FieldSlot{Field: f, Offset: offset, Size: size})
		offset += size
	}
	out.Size = offset

	var lerr *LayoutError
	if _, err := safecast.Conv[uint32](out.Size); err != nil {
		lerr = &LayoutError{Kind: LayoutErrOffsetOverflow, Type: typeName(t), Err: err}
	}
	e.cache.put(t, out, lerr)
	return out, lerr
}

func (e *LayoutEngine) fieldSize(ref il.TypeRef) int {
	if _, ok := types.ValueTypeOf(ref); ok {
		return types.SizeOf(ref)
	}
	if e.Target.PtrSize > 0 {
		return e.Target.PtrSize
	}
	return types.SizeOf(ref)
}

// SizeOf returns the instance size of t.
func (e *LayoutEngine) SizeOf(t *il.Type) (int, error) {
	l, err := e.LayoutOf(t)
	if err != nil {
		return 0, err
	}
	return l.Size, nil
}

// FieldOffset returns the byte offset of an instance field within its
// declaring type.
func (e *LayoutEngine) FieldOffset(f *il.Field) (int, error) {
	if f == nil {
		return 0, &LayoutError{Kind: LayoutErrUnresolved}
	}
	if f.DeclaringType == nil {
		return 0, &LayoutError{Kind: LayoutErrUnresolved, Field: f.Name}
	}
	if f.Static {
		return 0, &LayoutError{Kind: LayoutErrStaticField, Type: typeName(f.DeclaringType), Field: f.Name}
	}
	l, lerr := e.layoutOf(f.DeclaringType)
	if lerr != nil {
		return 0, lerr
	}
	slot, ok := l.Slot(f)
	if !ok {
		return 0, &LayoutError{Kind: LayoutErrFieldNotFound, Type: typeName(f.DeclaringType), Field: f.Name}
	}
	return slot.Offset, nil
}

// OffsetLiteral converts an offset for use as an i32.const immediate.
func OffsetLiteral(offset int) (int32, error) {
	return safecast.Conv[int32](offset)
}

// Cached reports how many type layouts the engine holds.
func (e *LayoutEngine) Cached() int {
	if e == nil {
		return 0
	}
	return e.cache.len()
}
