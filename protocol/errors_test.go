package protocol

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinel(t *testing.T) {
	kinds := []ErrorKind{
		KindConnection,
		KindUnsupportedVersion,
		KindUnexpectedMessage,
		KindDataRead,
		KindDataWrite,
		KindDataCorrupted,
	}

	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			err := NewError(kind, "test", nil)
			assert.ErrorIs(t, err, kind.Sentinel())

			for _, other := range kinds {
				if other != kind {
					assert.NotErrorIs(t, err, other.Sentinel())
				}
			}

			got, ok := KindOf(fmt.Errorf("wrapped: %w", err))
			assert.True(t, ok)
			assert.Equal(t, kind, got)
		})
	}
}

func TestErrorCapturesErrno(t *testing.T) {
	cause := fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
	err := NewError(KindDataWrite, "send", cause)

	assert.Equal(t, syscall.ECONNRESET, err.Errno)
	assert.Equal(t, syscall.ECONNRESET, ErrnoOf(err))
	assert.ErrorIs(t, err, syscall.ECONNRESET)
}

func TestErrorMessage(t *testing.T) {
	err := NewError(KindConnection, "listen", errors.New("address in use"))
	assert.Equal(t, "bridge listen: connection error: address in use", err.Error())

	err = NewError(KindDataCorrupted, "verify", nil)
	assert.Equal(t, "bridge verify: file data corrupted", err.Error())
}

func TestKindOfForeignError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
	assert.Zero(t, ErrnoOf(errors.New("plain")))
	assert.Equal(t, "Unknown(0)", ErrorKind(0).String())
	assert.Nil(t, ErrorKind(0).Sentinel())
}
