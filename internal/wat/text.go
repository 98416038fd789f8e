package wat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"ilwasm/internal/types"
)

const (
	moduleIndent = "  "
	bodyIndent   = "    "
)

// TextWriter renders a module as indented WAT text.
type TextWriter struct {
	w   *bufio.Writer
	err error

	inFunc bool
}

// NewTextWriter returns a writer that buffers output to w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

func (t *TextWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	if _, err := fmt.Fprintf(t.w, format, args...); err != nil {
		t.err = err
	}
}

func (t *TextWriter) BeginModule() { t.printf("(module\n") }

func (t *TextWriter) EndModule() {
	if t.inFunc && t.err == nil {
		t.err = errors.New("wat: module closed inside an open function")
		return
	}
	t.printf(")\n")
}

func (t *TextWriter) DeclareImport(imp Import) {
	var sig strings.Builder
	if len(imp.Params) > 0 {
		sig.WriteString(" (param")
		for _, p := range imp.Params {
			sig.WriteByte(' ')
			sig.WriteString(p.String())
		}
		sig.WriteByte(')')
	}
	if imp.Result != types.Invalid {
		fmt.Fprintf(&sig, " (result %s)", imp.Result)
	}
	t.printf("%s(import %s %s (func $%s%s))\n", moduleIndent, Quote(imp.Module), Quote(imp.Name), imp.Symbol, sig.String())
}

func (t *TextWriter) DeclareMemory(pages int) {
	t.printf("%s(memory $%s %d)\n", moduleIndent, MemorySymbol, pages)
	t.printf("%s(export \"memory\" (memory $%s))\n", moduleIndent, MemorySymbol)
}

func (t *TextWriter) DeclareGlobal(g Global) {
	typ := g.Type.String()
	if g.Mutable {
		typ = "(mut " + typ + ")"
	}
	init := g.Init
	if init == "" {
		init = types.ZeroLiteral(g.Type)
	}
	t.printf("%s(global $%s %s (%s.const %s))\n", moduleIndent, g.Symbol, typ, g.Type, init)
}

func (t *TextWriter) BeginFunction(fn Func) {
	t.inFunc = true
	t.printf("%s(func $%s", moduleIndent, fn.Symbol)
	for _, p := range fn.Params {
		t.printf(" (param $%s %s)", p.Name, p.Type)
	}
	if fn.Result != types.Invalid {
		t.printf(" (result %s)", fn.Result)
	}
	t.printf("\n")
}

func (t *TextWriter) DeclareLocal(l Local) {
	t.printf("%s(local $%s %s)\n", bodyIndent, l.Name, l.Type)
}

func (t *TextWriter) DeclareLocals(ts []types.ValType) {
	if len(ts) == 0 {
		return
	}
	names := make([]string, 0, len(ts))
	for _, v := range ts {
		names = append(names, v.String())
	}
	t.printf("%s(local %s)\n", bodyIndent, strings.Join(names, " "))
}

// WriteInstruction writes one fragment; multi-line fragments are indented
// line by line and blank lines are dropped.
func (t *TextWriter) WriteInstruction(text string) {
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		t.printf("%s%s\n", bodyIndent, line)
	}
}

func (t *TextWriter) EndFunction() {
	t.inFunc = false
	t.printf("%s)\n", moduleIndent)
}

func (t *TextWriter) ExportFunction(name, symbol string) {
	t.printf("%s(export %s (func $%s))\n", moduleIndent, Quote(name), symbol)
}

// Quote renders s as a WAT string literal. Printable ASCII other than '"'
// and '\\' is kept; every other byte is written as \hh.
func Quote(s string) string {
	const hex = "0123456789abcdef"
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('\\')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0xf])
	}
	sb.WriteByte('"')
	return sb.String()
}

// Flush writes buffered output and reports the first error seen.
func (t *TextWriter) Flush() error {
	if t.err != nil {
		return t.err
	}
	if err := t.w.Flush(); err != nil {
		t.err = err
	}
	return t.err
}

// Err returns the first write error, if any.
func (t *TextWriter) Err() error { return t.err }
