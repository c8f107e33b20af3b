// Package fsutil provides the small set of filesystem helpers the rest of
// euphony needs: plain existence/kind checks building directly on os.Stat,
// plus a directory-listing helper that splits children by kind.
package fsutil

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Exists reports whether path exists on disk, regardless of its kind.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "cannot stat '%s'", path)
}

// IsRegularFile reports whether path exists and is a regular file.
func IsRegularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "cannot stat '%s'", path)
	}
	return info.Mode().IsRegular(), nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "cannot stat '%s'", path)
	}
	return info.IsDir(), nil
}

// EnsureParentDirs creates all missing parent directories of path.
func EnsureParentDirs(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "cannot create parent directories for '%s'", path)
	}
	return nil
}

// ListDirContents splits dir's immediate children into absolute file paths
// and absolute subdirectory paths.
func ListDirContents(dir string) (files []string, directories []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading directory '%s'", dir)
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			directories = append(directories, full)
		} else {
			files = append(files, full)
		}
	}
	return files, directories, nil
}
