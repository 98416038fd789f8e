package diag

import "fmt"

// Location pins a diagnostic to a translation site. Offset is -1 when the
// site is a whole method or type.
type Location struct {
	Program string
	Type    string
	Method  string
	Offset  int
}

// NoOffset marks a location that is not tied to an instruction.
const NoOffset = -1

func (l Location) String() string {
	s := l.Type
	if l.Method != "" {
		if s != "" {
			s += "::"
		}
		s += l.Method
	}
	if l.Offset >= 0 {
		s += fmt.Sprintf("@IL_%04x", l.Offset)
	}
	if l.Program != "" {
		if s == "" {
			return l.Program
		}
		return l.Program + ":" + s
	}
	return s
}

type Note struct {
	Loc Location
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []Note
}

func New(sev Severity, code Code, primary Location, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary Location, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func NewWarning(code Code, primary Location, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

func (d Diagnostic) WithNote(loc Location, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Loc: loc, Msg: msg})
	return d
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s %s: %s", severityLabel(d.Severity), d.Code.ID(), d.Primary, d.Message)
}
