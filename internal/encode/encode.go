// Package encode turns WAT text into a binary module by running an external
// assembler such as wat2wasm.
package encode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultToolPath is the assembler looked up on PATH when none is configured.
const DefaultToolPath = "wat2wasm"

// ErrToolNotFound is returned when the assembler cannot be located.
var ErrToolNotFound = errors.New("wat assembler not found")

// Tool describes the external assembler. It is invoked as
//
//	Path Args... <input.wat> -o <output.wasm>
type Tool struct {
	Path string
	Args []string
	// PrintCommands echoes each command line to Stdout before running it.
	PrintCommands bool
	Stdout        io.Writer
}

// ToolError reports a failed assembler run together with its stderr output.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Tool, e.Stderr)
}

func (e *ToolError) Unwrap() error { return e.Err }

func (t Tool) path() string {
	if t.Path == "" {
		return DefaultToolPath
	}
	return t.Path
}

// Resolve returns the absolute path of the assembler.
func (t Tool) Resolve() (string, error) {
	p, err := exec.LookPath(t.path())
	if err != nil {
		return "", fmt.Errorf("%w: %s (install wabt or set [encoder] path in ilwasm.toml)", ErrToolNotFound, t.path())
	}
	return p, nil
}

// EncodeFile assembles the WAT file at inPath into outPath.
func (t Tool) EncodeFile(ctx context.Context, inPath, outPath string) error {
	bin, err := t.Resolve()
	if err != nil {
		return err
	}
	args := make([]string, 0, len(t.Args)+3)
	args = append(args, t.Args...)
	args = append(args, inPath, "-o", outPath)
	return t.run(ctx, bin, args)
}

// Encode assembles WAT text and returns the binary module. The text and the
// result pass through temporary files that are removed afterwards.
func (t Tool) Encode(ctx context.Context, wat string) (out []byte, err error) {
	dir, err := os.MkdirTemp("", "ilwasm-encode-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
	}()

	inPath := filepath.Join(dir, "module.wat")
	outPath := filepath.Join(dir, "module.wasm")
	if err := os.WriteFile(inPath, []byte(wat), 0o600); err != nil {
		return nil, fmt.Errorf("write wat input: %w", err)
	}
	if err := t.EncodeFile(ctx, inPath, outPath); err != nil {
		return nil, err
	}
	return os.ReadFile(outPath)
}

func (t Tool) run(ctx context.Context, bin string, args []string) error {
	if t.PrintCommands {
		w := t.Stdout
		if w == nil {
			w = os.Stdout
		}
		if _, printErr := fmt.Fprintf(w, "%s %s\n", bin, strings.Join(args, " ")); printErr != nil {
			return fmt.Errorf("failed to print command: %w", printErr)
		}
	}
	// #nosec G204 -- the assembler path comes from the user's own configuration
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ToolError{Tool: filepath.Base(bin), Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}
