package testkit

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"

	"ilwasm/internal/layout"
	"ilwasm/internal/wat"
)

// CheckModule runs structural invariants over emitted WAT text:
// 1) the text is a single module whose functions are all closed
// 2) inside each function every "(block $L" is closed before the function ends
// 3) every br / br_if names a block that is open at that point
// 4) every exported function is defined or imported
func CheckModule(text string) error {
	if err := wat.Validate(text); err != nil {
		return err
	}

	defined := make(map[string]bool)
	var (
		errs   []error
		fn     string
		blocks []string
	)
	for n, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if i := strings.Index(line, ";;"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		switch {
		case strings.HasPrefix(raw, "  (func $"):
			fn = firstSymbol(line[len("(func "):])
			defined[fn] = true
			blocks = blocks[:0]
		case strings.HasPrefix(raw, "  (import "):
			if i := strings.Index(line, "(func $"); i >= 0 {
				defined[firstSymbol(line[i+len("(func "):])] = true
			}
		case raw == "  )":
			if len(blocks) > 0 {
				errs = append(errs, fmt.Errorf("line %d: %s ends with %d open block(s)", n+1, fn, len(blocks)))
			}
			fn = ""
		case fn == "":
		case strings.HasPrefix(line, "(block "):
			blocks = append(blocks, firstSymbol(line[len("(block "):]))
		case line == ")":
			if len(blocks) == 0 {
				errs = append(errs, fmt.Errorf("line %d: %s closes a block that was never opened", n+1, fn))
				continue
			}
			blocks = blocks[:len(blocks)-1]
		case strings.HasPrefix(line, "br ") || strings.HasPrefix(line, "br_if "):
			label := firstSymbol(line[strings.IndexByte(line, ' ')+1:])
			if !slices.Contains(blocks, label) {
				errs = append(errs, fmt.Errorf("line %d: %s branches to %s outside any open block", n+1, fn, label))
			}
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "(export ") {
			continue
		}
		if i := strings.Index(line, "(func $"); i >= 0 {
			if sym := firstSymbol(line[i+len("(func "):]); !defined[sym] {
				errs = append(errs, fmt.Errorf("export of undefined function %s", sym))
			}
		}
	}
	return errors.Join(errs...)
}

// CheckLayoutInvariants verifies that instance fields are packed in
// declaration order without gaps or overlap and that the size covers them.
func CheckLayoutInvariants(l layout.TypeLayout) error {
	next := 0
	for i, slot := range l.Fields {
		if slot.Size <= 0 {
			return fmt.Errorf("field %d has non-positive size %d", i, slot.Size)
		}
		if slot.Offset != next {
			return fmt.Errorf("field %d at offset %d, want %d", i, slot.Offset, next)
		}
		next += slot.Size
	}
	if l.Size != next {
		return fmt.Errorf("size %d does not match packed fields %d", l.Size, next)
	}
	if _, err := safecast.Conv[uint32](l.Size); err != nil {
		return fmt.Errorf("size overflow: %w", err)
	}
	return nil
}

// firstSymbol returns the "$name" token at the start of s.
func firstSymbol(s string) string {
	s = strings.TrimSpace(s)
	if end := strings.IndexAny(s, " )\t"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimPrefix(s, "$")
}
