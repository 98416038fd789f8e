package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// translation: degraded sites
	TrInfo              Code = 1000
	TrUnresolvedField   Code = 1001
	TrUnresolvedMethod  Code = 1002
	TrUnresolvedType    Code = 1003
	TrInvalidOperand    Code = 1004
	TrUnhandledOpcode   Code = 1005
	TrBackwardBranch    Code = 1006
	TrUnnestableBranch  Code = 1007
	TrUnclosedBlock     Code = 1008
	TrLayout            Code = 1009
	TrStrictViolation   Code = 1010
	TrImportSignature   Code = 1011
	TrUnsupportedInline Code = 1012

	// container input
	IOInfo          Code = 2000
	IOLoadFileError Code = 2001
	IODecodeError   Code = 2002
	IOUnresolvedRef Code = 2003
	IOInvalidInput  Code = 2004

	// external encoder
	EncInfo       Code = 3000
	EncToolFailed Code = 3001
	EncNotFound   Code = 3002

	// project manifest / build
	ProjInfo            Code = 4000
	ProjInvalidManifest Code = 4001
	ProjNoInputs        Code = 4002

	ObsInfo    Code = 5000
	ObsTimings Code = 5001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:         "Unknown error",
		TrInfo:              "Translation information",
		TrUnresolvedField:   "Unresolved field reference",
		TrUnresolvedMethod:  "Unresolved method reference",
		TrUnresolvedType:    "Unresolved type reference",
		TrInvalidOperand:    "Invalid instruction operand",
		TrUnhandledOpcode:   "Unhandled opcode",
		TrBackwardBranch:    "Backward branch left untranslated",
		TrUnnestableBranch:  "Branch target crosses an open block",
		TrUnclosedBlock:     "Block still open at method end",
		TrLayout:            "Layout computation failed",
		TrStrictViolation:   "Degraded sites in strict mode",
		TrImportSignature:   "Import signature uses an unmapped type",
		TrUnsupportedInline: "Inline text escape without a literal",
		IOInfo:              "Input information",
		IOLoadFileError:     "I/O load file error",
		IODecodeError:       "Container decode error",
		IOUnresolvedRef:     "Reference unresolved after linking",
		IOInvalidInput:      "Program failed validation",
		EncInfo:             "Encoder information",
		EncToolFailed:       "Encoder rejected the module",
		EncNotFound:         "Encoder not found",
		ProjInfo:            "Project information",
		ProjInvalidManifest: "Invalid project manifest",
		ProjNoInputs:        "No inputs to build",
		ObsInfo:             "Observability information",
		ObsTimings:          "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("TR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("ENC%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Degraded reports whether the code marks a site emitted as a placeholder.
func (c Code) Degraded() bool {
	return c > TrInfo && c < TrStrictViolation || c == TrUnsupportedInline
}
