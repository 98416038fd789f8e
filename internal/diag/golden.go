package diag

import (
	"fmt"
	"sort"
	"strings"
)

type shortDiagnostic struct {
	Severity string
	Code     string
	Loc      Location
	Message  string
}

// FormatShortDiagnostics renders diagnostics into a stable, single-line-per-entry
// representation used by the CLI and golden tests. Entries are sorted by
// location, then severity, code and message.
func FormatShortDiagnostics(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	rendered := make([]shortDiagnostic, 0, len(diags))
	for _, d := range diags {
		rendered = append(rendered, shortDiagnostic{
			Severity: severityLabel(d.Severity),
			Code:     d.Code.ID(),
			Loc:      d.Primary,
			Message:  sanitizeMessage(d.Message),
		})
		if includeNotes {
			for _, n := range d.Notes {
				rendered = append(rendered, shortDiagnostic{
					Severity: "note",
					Code:     d.Code.ID(),
					Loc:      n.Loc,
					Message:  sanitizeMessage(n.Msg),
				})
			}
		}
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if li, lj := di.Loc.String(), dj.Loc.String(); li != lj {
			if di.Loc.Type == dj.Loc.Type && di.Loc.Method == dj.Loc.Method {
				return di.Loc.Offset < dj.Loc.Offset
			}
			return li < lj
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s %s", d.Severity, d.Code, d.Loc, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
