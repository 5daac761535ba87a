package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CompilerError carries the compiler's own diagnostic text. It is the
// error the user reads, so the output is preserved verbatim.
type CompilerError struct {
	Source      string
	Diagnostics string
}

func (e *CompilerError) Error() string {
	return fmt.Sprintf("compile %s:\n%s", e.Source, strings.TrimSpace(e.Diagnostics))
}

// Compiler runs an external script compiler as a subprocess. The binary is
// invoked as `path [args...] <source> <output>` and is expected to write
// the compiled bytecode blob to the output path.
type Compiler struct {
	// Path is the compiler binary.
	Path string

	// Args are extra arguments placed before the source and output paths.
	Args []string

	// Logger for invocation tracing.
	Logger *slog.Logger
}

// Compile runs the compiler on the source file and returns the bytecode
// blob. A failed run surfaces the compiler's diagnostics as a
// CompilerError; the blob is never partially returned.
func (c *Compiler) Compile(ctx context.Context, sourcePath string) ([]byte, error) {
	if c.Path == "" {
		return nil, errors.New("no script compiler configured")
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outDir, err := os.MkdirTemp("", "flits-compile-*")
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", sourcePath, err)
	}
	defer os.RemoveAll(outDir)
	outPath := filepath.Join(outDir, "out.bin")

	args := append(append([]string(nil), c.Args...), sourcePath, outPath)
	logger.Debug("running script compiler", "bin", c.Path, "source", sourcePath)

	cmd := exec.CommandContext(ctx, c.Path, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &CompilerError{Source: sourcePath, Diagnostics: string(output)}
		}
		return nil, fmt.Errorf("compile %s: %w", sourcePath, err)
	}

	blob, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &CompilerError{
			Source:      sourcePath,
			Diagnostics: fmt.Sprintf("compiler exited cleanly but wrote no output\n%s", output),
		}
	}
	return blob, nil
}
