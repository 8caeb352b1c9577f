package materialize

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"

	perrors "github.com/agentx-labs/blueprint/internal/errors"
)

// within reports whether target is root or lies below it. Both must be
// clean absolute paths.
func within(root, target string) bool {
	if target == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}

// contain maps a slash-separated relative path to an absolute target under
// root. It rejects absolute paths, parent traversal that leaves the root,
// and existing symlinks below the root that point outside it. Those come
// back as PathEscape; any other error is an I/O failure.
func contain(fsys afero.Fs, root, rel string) (string, error) {
	if rel == "" {
		return "", perrors.PathEscape(rel).WithDetail("reason", "empty path")
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) || strings.HasPrefix(rel, "/") || filepath.VolumeName(native) != "" {
		return "", perrors.PathEscape(rel).WithDetail("reason", "absolute path")
	}

	clean := filepath.Clean(native)
	if clean == "." {
		return "", perrors.PathEscape(rel).WithDetail("reason", "path is the output root")
	}
	target := filepath.Join(root, clean)
	if !within(root, target) {
		return "", perrors.PathEscape(rel).WithDetail("reason", "parent traversal")
	}

	if err := checkSymlinks(fsys, root, clean); err != nil {
		var esc escapeError
		if errors.As(err, &esc) {
			return "", perrors.PathEscape(rel).WithDetail("reason", esc.Error())
		}
		return "", err
	}
	return target, nil
}

type escapeError string

func (e escapeError) Error() string { return string(e) }

// checkSymlinks walks each existing component of clean below root. A symlink
// whose destination leaves root is an escape. Filesystems without symlink
// support are skipped.
func checkSymlinks(fsys afero.Fs, root, clean string) error {
	lstater, ok := fsys.(afero.Lstater)
	if !ok {
		return nil
	}
	reader, _ := fsys.(afero.LinkReader)

	realRoot := root
	if _, isOS := fsys.(*afero.OsFs); isOS {
		if r, err := filepath.EvalSymlinks(root); err == nil {
			realRoot = r
		}
	}

	cur := root
	for _, part := range strings.Split(clean, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, lstatCalled, err := lstater.LstatIfPossible(cur)
		if err != nil {
			// Nothing further exists to inspect. A file in the way of a
			// directory is left for the write to report.
			if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
				return nil
			}
			return err
		}
		if !lstatCalled || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if reader == nil {
			return escapeError("symlink " + cur + " cannot be inspected")
		}
		dest, err := reader.ReadlinkIfPossible(cur)
		if err != nil {
			return err
		}
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(filepath.Dir(cur), dest)
		}
		dest = filepath.Clean(dest)
		if !within(root, dest) && !within(realRoot, dest) {
			return escapeError("symlink " + cur + " points outside the output root")
		}
		cur = dest
	}
	return nil
}
