package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zip"
)

// Native writes zip archives in-process. Entries are added in lexical
// order; symlinks are stored as links.
type Native struct{}

// NewNative returns the in-process archiver.
func NewNative() *Native {
	return &Native{}
}

// Available implements Archiver. Native needs no external tool.
func (*Native) Available() error {
	return nil
}

// Write implements Archiver.
func (n *Native) Write(ctx context.Context, sourceDir, outputPath string, excludes []Exclusion) (err error) {
	out, err := os.Create(filepath.Clean(outputPath))
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)

	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("finish archive: %w", closeErr)
		}

		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close archive: %w", closeErr)
		}

		if err != nil {
			_ = os.Remove(out.Name())
		}
	}()

	absOutput, err := filepath.Abs(outputPath)
	if err != nil {
		return err
	}

	return filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		// The archive may be written inside the tree it reads.
		if abs, _ := filepath.Abs(path); abs == absOutput {
			return nil
		}

		name := filepath.ToSlash(rel)

		if d.IsDir() {
			if Excluded(name, true, excludes) {
				return filepath.SkipDir
			}

			return n.addEntry(zw, path, name+"/", d)
		}

		if Excluded(name, false, excludes) {
			return nil
		}

		return n.addEntry(zw, path, name, d)
	})
}

// Excluded reports whether the slash-separated relative name is dropped.
// Directory exclusions only apply to directories and file exclusions only
// to non-directories.
func Excluded(name string, isDir bool, excludes []Exclusion) bool {
	for _, e := range excludes {
		if e.Dir != isDir {
			continue
		}

		// Patterns were validated by BuildExcludes.
		if doublestar.MatchUnvalidated(e.Glob, name) {
			return true
		}
	}

	return false
}

func (*Native) addEntry(zw *zip.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name

	switch {
	case info.IsDir():
		header.Method = zip.Store

		_, err = zw.CreateHeader(header)

		return err
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		_, err = io.WriteString(w, target)

		return err
	case !info.Mode().IsRegular():
		return nil
	}

	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	_, err = io.Copy(w, f)

	return err
}
