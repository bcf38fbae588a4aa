package util

import (
	"bytes"
	"errors"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/natefinch/atomic"
	"os"
	"path/filepath"
)

// EnsureParentDir creates the parent directory of the given file path, if necessary
func EnsureParentDir(path string) error {
	parentDir := filepath.Dir(path)
	_, err := os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		ui.Debug("Creating directory: %s", parentDir)
		return os.MkdirAll(parentDir, 0755)
	}
	return err
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, creating parent directories as needed.
func WriteFileAtomic(path string, data []byte) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// FileExists returns true if path exists and is a regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
