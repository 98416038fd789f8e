package ilio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"

	"ilwasm/internal/il"
)

// canonical CBOR keeps re-encoded containers byte-stable
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ilio: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal encodes a container.
func Marshal(c *Container, f Format) ([]byte, error) {
	switch f {
	case FormatMsgpack:
		var buf bytes.Buffer
		if err := msgpack.NewEncoder(&buf).Encode(c); err != nil {
			return nil, fmt.Errorf("ilio: encode msgpack: %w", err)
		}
		return buf.Bytes(), nil
	case FormatCBOR:
		data, err := cborEncMode.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("ilio: encode cbor: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("ilio: unsupported format %s", f)
	}
}

// Unmarshal decodes a container without converting it.
func Unmarshal(data []byte, f Format) (*Container, error) {
	var c Container
	switch f {
	case FormatMsgpack:
		if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&c); err != nil {
			return nil, fmt.Errorf("ilio: decode msgpack: %w", err)
		}
	case FormatCBOR:
		if err := cbor.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("ilio: decode cbor: %w", err)
		}
	default:
		return nil, fmt.Errorf("ilio: unsupported format %s", f)
	}
	return &c, nil
}

// Encode writes a program in the given format.
func Encode(w io.Writer, p *il.Program, f Format) error {
	c, err := FromProgram(p)
	if err != nil {
		return err
	}
	data, err := Marshal(c, f)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode reads a program in the given format. The result is not linked.
func Decode(r io.Reader, f Format) (*il.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c, err := Unmarshal(data, f)
	if err != nil {
		return nil, err
	}
	return ToProgram(c)
}

// Load reads, links and validates a program file. References that could not
// be linked are returned alongside the program; they are not an error.
func Load(path string) (*il.Program, []string, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	p, err := Decode(f, format)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	unresolved := il.Link(p)
	if err := il.Validate(p); err != nil {
		return nil, unresolved, fmt.Errorf("%s: %w", path, err)
	}
	return p, unresolved, nil
}

// Save writes a program file atomically; the format follows the extension.
func Save(path string, p *il.Program) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
	}()

	if err := Encode(f, p, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
