package il

import "fmt"

// MetadataType mirrors the element types a bytecode container records for
// parameters, locals, fields and return values.
type MetadataType uint8

const (
	MetaVoid MetadataType = iota
	MetaBoolean
	MetaChar
	MetaSByte
	MetaByte
	MetaInt16
	MetaUInt16
	MetaInt32
	MetaUInt32
	MetaInt64
	MetaUInt64
	MetaSingle
	MetaDouble
	MetaString
	MetaIntPtr
	MetaUIntPtr
	MetaObject
	MetaClass
	MetaValueType
	MetaArray
	MetaPointer
)

var metadataNames = [...]string{
	MetaVoid:      "Void",
	MetaBoolean:   "Boolean",
	MetaChar:      "Char",
	MetaSByte:     "SByte",
	MetaByte:      "Byte",
	MetaInt16:     "Int16",
	MetaUInt16:    "UInt16",
	MetaInt32:     "Int32",
	MetaUInt32:    "UInt32",
	MetaInt64:     "Int64",
	MetaUInt64:    "UInt64",
	MetaSingle:    "Single",
	MetaDouble:    "Double",
	MetaString:    "String",
	MetaIntPtr:    "IntPtr",
	MetaUIntPtr:   "UIntPtr",
	MetaObject:    "Object",
	MetaClass:     "Class",
	MetaValueType: "ValueType",
	MetaArray:     "Array",
	MetaPointer:   "Pointer",
}

func (m MetadataType) String() string {
	if int(m) < len(metadataNames) {
		return metadataNames[m]
	}
	return fmt.Sprintf("MetadataType(%d)", m)
}

// ParseMetadataType is the inverse of MetadataType.String.
func ParseMetadataType(s string) (MetadataType, error) {
	for i, name := range metadataNames {
		if name == s {
			return MetadataType(i), nil
		}
	}
	return MetaVoid, fmt.Errorf("unknown metadata type %q", s)
}

// IsPrimitive reports whether the element type is a built-in scalar.
func (m MetadataType) IsPrimitive() bool {
	switch m {
	case MetaBoolean, MetaChar, MetaSByte, MetaByte, MetaInt16, MetaUInt16,
		MetaInt32, MetaUInt32, MetaInt64, MetaUInt64, MetaSingle, MetaDouble,
		MetaIntPtr, MetaUIntPtr:
		return true
	default:
		return false
	}
}

// IsNamed reports whether a TypeRef of this element type carries a type name.
func (m MetadataType) IsNamed() bool {
	switch m {
	case MetaClass, MetaValueType, MetaArray, MetaPointer:
		return true
	default:
		return false
	}
}
