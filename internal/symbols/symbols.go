// Package symbols derives WAT identifiers for methods, fields and imports.
//
// A symbol is a pure function of declaration data: the namespace, the
// declaring type, the member name and, for methods, one tag per parameter.
// Declarations and call-site references go through the same functions so
// they always agree.
package symbols

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"ilwasm/internal/il"
)

const sep = '_'

// MethodDecl returns the symbol for a declared method.
func MethodDecl(m *il.Method) string {
	if m == nil {
		return ""
	}
	if m.Import != nil {
		return Import(m.Import)
	}
	if m.NoMangle {
		return sanitize(m.Name)
	}
	params := make([]il.TypeRef, 0, len(m.Params))
	for _, p := range m.Params {
		params = append(params, p.Type)
	}
	return mangle(typePrefix(m.DeclaringType.RootNamespace(), m.DeclaringType.QualifiedName()), m.Name, params, true)
}

// Method returns the symbol a call site uses for ref. Resolved references
// defer to their declaration.
func Method(ref *il.MethodRef) string {
	if ref == nil {
		return ""
	}
	if ref.Decl != nil {
		return MethodDecl(ref.Decl)
	}
	return mangle(typePrefix(ref.DeclaringType.Namespace, ref.DeclaringType.Name), ref.Name, ref.Params, true)
}

// FieldDecl returns the symbol for a declared field.
func FieldDecl(f *il.Field) string {
	if f == nil {
		return ""
	}
	return mangle(typePrefix(f.DeclaringType.RootNamespace(), f.DeclaringType.QualifiedName()), f.Name, nil, false)
}

// Field returns the symbol for a field reference.
func Field(ref *il.FieldRef) string {
	if ref == nil {
		return ""
	}
	if ref.Decl != nil {
		return FieldDecl(ref.Decl)
	}
	return mangle(typePrefix(ref.DeclaringType.Namespace, ref.DeclaringType.Name), ref.Name, nil, false)
}

// Import returns "<module>.<name>" for a host import. A '.' inside either
// part is escaped so the dot between them is the only bare one.
func Import(tag *il.ImportTag) string {
	if tag == nil {
		return ""
	}
	return escape(tag.Module) + "." + escape(tag.Name)
}

// Type returns the symbol prefix of a type ("Namespace_Outer_Inner").
func Type(t *il.Type) string {
	if t == nil {
		return ""
	}
	return strings.TrimSuffix(typePrefix(t.RootNamespace(), t.QualifiedName()), string(sep))
}

// Tag returns the parameter tag used to disambiguate overloads. Primitive
// tags are the element type name. Named types are written "C<len><name>"
// with the name escaped, so a tag never depends on the separator to end.
func Tag(t il.TypeRef) string {
	if t.Metadata.IsNamed() && t.Name != "" {
		name := escape(t.FullName())
		return fmt.Sprintf("C%d%s", len(name), name)
	}
	return t.Metadata.String()
}

func typePrefix(namespace, name string) string {
	var sb strings.Builder
	if namespace != "" {
		sb.WriteString(flatten(namespace))
		sb.WriteRune(sep)
	}
	if name != "" {
		sb.WriteString(flatten(name))
		sb.WriteRune(sep)
	}
	return sb.String()
}

func mangle(prefix, member string, params []il.TypeRef, isMethod bool) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(flatten(member))
	if isMethod && len(params) > 0 {
		sb.WriteRune(sep)
		for _, p := range params {
			sb.WriteString(Tag(p))
			sb.WriteRune(sep)
		}
	}
	return sb.String()
}

// flatten replaces the separators of qualified names ('.', '/', '`') and
// then sanitises the rest.
func flatten(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', '/', '`':
			return sep
		default:
			return r
		}
	}, s)
	return sanitize(s)
}

// sanitize normalises s to NFC and rewrites runes outside the WAT idchar set.
func sanitize(s string) string {
	s = norm.NFC.String(s)
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r > 0x7f:
			fmt.Fprintf(&sb, "_u%04X", r)
		case isIDChar(r):
			sb.WriteRune(r)
		default:
			sb.WriteRune(sep)
		}
	}
	return sb.String()
}

// escape is an injective form of sanitize. Every '_' in the output starts
// a fixed-width escape: "__" for '_', "_d" for '.', "_n" for '/', "_g" for
// '`', "_xHH" for other ASCII, "_uHHHH" or "_UHHHHHHHH" for the rest.
func escape(s string) string {
	s = norm.NFC.String(s)
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == sep:
			sb.WriteString("__")
		case r == '.':
			sb.WriteString("_d")
		case r == '/':
			sb.WriteString("_n")
		case r == '`':
			sb.WriteString("_g")
		case r > 0xffff:
			fmt.Fprintf(&sb, "_U%08X", r)
		case r > 0x7f:
			fmt.Fprintf(&sb, "_u%04X", r)
		case isIDChar(r):
			sb.WriteRune(r)
		default:
			fmt.Fprintf(&sb, "_x%02X", r)
		}
	}
	return sb.String()
}

func isIDChar(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	}
	return strings.ContainsRune("!#$%&'*+-./:<=>?@\\^_`|~", r)
}

// IsValid reports whether s is a non-empty WAT identifier body.
func IsValid(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > 0x7f || !isIDChar(r) {
			return false
		}
	}
	return true
}
