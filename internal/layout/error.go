package layout

import (
	"fmt"

	"ilwasm/internal/il"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrUnresolved indicates a type or field with no declaration.
	LayoutErrUnresolved LayoutErrorKind = iota + 1
	// LayoutErrStaticField indicates an offset query on a static field.
	LayoutErrStaticField
	// LayoutErrFieldNotFound indicates a field that is not part of the queried type.
	LayoutErrFieldNotFound
	LayoutErrOffsetOverflow
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  string // full type name, when known
	Field string
	Err   error // for LayoutErrOffsetOverflow
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrUnresolved:
		if e.Field != "" {
			return fmt.Sprintf("cannot lay out unresolved field %s::%s", e.Type, e.Field)
		}
		if e.Type == "" {
			return "cannot lay out unresolved type"
		}
		return fmt.Sprintf("cannot lay out unresolved type %s", e.Type)
	case LayoutErrStaticField:
		return fmt.Sprintf("static field %s::%s has no instance offset", e.Type, e.Field)
	case LayoutErrFieldNotFound:
		return fmt.Sprintf("field %s is not an instance field of %s", e.Field, e.Type)
	case LayoutErrOffsetOverflow:
		if e.Err != nil {
			return fmt.Sprintf("instance size of %s overflows a 32-bit address: %v", e.Type, e.Err)
		}
		return fmt.Sprintf("instance size of %s overflows a 32-bit address", e.Type)
	default:
		return fmt.Sprintf("layout error kind=%d type %s", e.Kind, e.Type)
	}
}

func (e *LayoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func typeName(t *il.Type) string {
	if t == nil {
		return ""
	}
	return t.FullName()
}
