package util

import (
	"io"
	"os"
	"path/filepath"
)

func IsFileExists(path string) bool {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return true
	}
	return false
}

func MkdirIfNotExist(dir string) error {
	if IsFileExists(dir) {
		return nil
	}
	return os.MkdirAll(dir, os.ModePerm)
}

// WriteFileAtomic writes r into a temp file next to path and renames it,
// so a failed write never leaves a truncated file under the final name.
func WriteFileAtomic(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)

	if err := MkdirIfNotExist(dir); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return n, err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return n, err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return n, err
	}

	return n, nil
}
