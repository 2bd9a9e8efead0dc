package archive

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

const (
	// zipBinary is the archiver looked up on PATH.
	zipBinary = "zip"
	// zipInstallHint is shown when zipBinary is missing.
	zipInstallHint = "apt-get install zip"
)

// ZipTool shells out to the zip command.
type ZipTool struct {
	// binary is the executable name or path.
	binary string
	// lookPath resolves binary; swapped in tests.
	lookPath func(string) (string, error)
}

// NewZipTool returns an archiver backed by the zip found on PATH.
func NewZipTool() *ZipTool {
	return &ZipTool{
		binary:   zipBinary,
		lookPath: exec.LookPath,
	}
}

// Available implements Archiver.
func (z *ZipTool) Available() error {
	if _, err := z.lookPath(z.binary); err != nil {
		return &MissingToolError{Tool: z.binary, Hint: zipInstallHint, Err: err}
	}

	return nil
}

// Write implements Archiver. It runs `zip -r -q <output> . --exclude=...`
// from inside sourceDir so entry names are relative to it.
func (z *ZipTool) Write(ctx context.Context, sourceDir, outputPath string, excludes []Exclusion) error {
	bin, err := z.lookPath(z.binary)
	if err != nil {
		return &MissingToolError{Tool: z.binary, Hint: zipInstallHint, Err: err}
	}

	output, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("resolve archive path: %w", err)
	}

	args := append([]string{"-r", "-q", output, "."}, Args(excludes)...)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = sourceDir

	if combined, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("run %s: %w: %s", z.binary, err, bytes.TrimSpace(combined))
	}

	return nil
}
