package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxChecksumSize is the largest checksum length accepted from the wire.
	// It leaves room for 512-bit digests; the bridge itself sends 32 bytes.
	MaxChecksumSize = 64

	// DefaultMaxFileSize is the default cap on a declared file size (32 MiB).
	// The largest save files moved over the bridge are a few MiB.
	DefaultMaxFileSize = 32 << 20

	// MaxFileSize is the absolute cap imposed by the 4-byte size field.
	MaxFileSize = 1<<32 - 1
)

var (
	// ErrChecksumTooLarge indicates a declared checksum length above MaxChecksumSize
	ErrChecksumTooLarge = errors.New("checksum too large")

	// ErrFileTooLarge indicates a declared file size above the configured cap
	ErrFileTooLarge = errors.New("file too large")
)

// ValidateChecksumSize checks a declared checksum length against MaxChecksumSize.
func ValidateChecksumSize(size uint32) error {
	if size > MaxChecksumSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrChecksumTooLarge, size, MaxChecksumSize)
	}
	return nil
}

// ValidateFileSize checks a file size against maxSize.
// A zero maxSize selects DefaultMaxFileSize.
func ValidateFileSize(size uint64, maxSize uint64) error {
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}
	if maxSize > MaxFileSize {
		maxSize = MaxFileSize
	}
	if size > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, size, maxSize)
	}
	return nil
}
