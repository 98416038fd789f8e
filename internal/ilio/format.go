package ilio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format selects the container encoding.
type Format uint8

const (
	FormatMsgpack Format = iota
	FormatCBOR
)

// File extensions recognised by FormatFromPath.
const (
	ExtMsgpack = ".ilpk"
	ExtCBOR    = ".ilcb"
)

func (f Format) String() string {
	switch f {
	case FormatMsgpack:
		return "msgpack"
	case FormatCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("Format(%d)", f)
	}
}

// Ext returns the conventional file extension.
func (f Format) Ext() string {
	if f == FormatCBOR {
		return ExtCBOR
	}
	return ExtMsgpack
}

// ParseFormat accepts a format name as printed by String.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "msgpack", "ilpk":
		return FormatMsgpack, nil
	case "cbor", "ilcb":
		return FormatCBOR, nil
	default:
		return FormatMsgpack, fmt.Errorf("unknown container format %q (want msgpack or cbor)", s)
	}
}

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ExtMsgpack:
		return FormatMsgpack, nil
	case ExtCBOR:
		return FormatCBOR, nil
	default:
		return FormatMsgpack, fmt.Errorf("%s: unknown container extension %q", path, ext)
	}
}
