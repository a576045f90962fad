// Package backup keeps timestamped copies of saves that moved through the
// bridge.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Extension is appended to every backup file name.
const Extension = ".bak"

// ErrNoDirectory indicates Write was called without a target directory.
var ErrNoDirectory = errors.New("backup directory not set")

// FileName returns the backup name for t, year-month-day_hour-minute-second
// without zero padding.
func FileName(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d_%d-%d-%d%s",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), Extension)
}

// Write stores data in dir under the name for now and returns the path
// written. The directory is created when missing.
func Write(dir string, data []byte, now time.Time) (string, error) {
	if dir == "" {
		return "", ErrNoDirectory
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Write",
		"path":     path,
		"size":     len(data),
	}).Info("Save backed up")

	return path, nil
}
