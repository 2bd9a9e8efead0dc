package workdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
)

// dirPrefix names temporary working directories.
const dirPrefix = "buildpack-packager-"

// Dir is an ephemeral working directory owned by a single run.
type Dir struct {
	path string
}

// New creates a fresh working directory under the system temp dir.
func New() (*Dir, error) {
	path, err := os.MkdirTemp("", dirPrefix)
	if err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	return &Dir{path: path}, nil
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// Join returns a path inside the directory.
func (d *Dir) Join(elem ...string) string {
	return filepath.Join(append([]string{d.path}, elem...)...)
}

// Close removes the directory and everything in it. It is safe to call
// more than once.
func (d *Dir) Close() error {
	if d == nil || d.path == "" {
		return nil
	}

	err := os.RemoveAll(d.path)
	d.path = ""

	return err
}

// CopyTree copies the contents of src into dst. A symlinked src is followed;
// links inside the tree are recreated as links. Permission bits are kept and
// nothing is filtered.
func CopyTree(src, dst string) error {
	root, err := filepath.EvalSymlinks(src)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", src, err)
	}

	return copy.Copy(root, dst, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
		PermissionControl: copy.PerservePermission,
	})
}

// CopyFile copies the regular file src to dst, keeping its permission bits.
func CopyFile(src, dst string) error {
	return copy.Copy(src, dst, copy.Options{
		PermissionControl: copy.PerservePermission,
	})
}
