package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"unpadded fields", time.Date(2024, time.March, 5, 7, 8, 9, 0, time.UTC), "2024-3-5_7-8-9.bak"},
		{"two digit fields", time.Date(2023, time.December, 31, 23, 59, 58, 0, time.UTC), "2023-12-31_23-59-58.bak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.at))
		})
	}
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups", "bridge")
	data := []byte{0x00, 0x01, 0xfe, 0xff}
	at := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)

	path, err := Write(dir, data, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-1-2_3-4-5.bak"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWriteWithoutDirectory(t *testing.T) {
	_, err := Write("", []byte("save"), time.Now())
	assert.ErrorIs(t, err, ErrNoDirectory)
}

func TestWriteIntoFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := Write(file, []byte("save"), time.Now())
	assert.Error(t, err)
}
