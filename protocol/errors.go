package protocol

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrorKind is the closed set of ways a bridge session can fail.
type ErrorKind uint8

const (
	// KindConnection covers endpoint creation, bind, listen, accept, connect and readiness checks.
	KindConnection ErrorKind = iota + 1
	// KindUnsupportedVersion means the rejection sentinel was sent or received.
	KindUnsupportedVersion
	// KindUnexpectedMessage means a Request or Response carried the wrong magic.
	KindUnexpectedMessage
	// KindDataRead means a read came up short or failed.
	KindDataRead
	// KindDataWrite means a write came up short or failed.
	KindDataWrite
	// KindDataCorrupted means the received body did not match its checksum.
	KindDataCorrupted
)

// Sentinel errors, one per ErrorKind. A *Error matches its kind's sentinel with errors.Is.
var (
	ErrConnection         = errors.New("connection error")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	ErrUnexpectedMessage  = errors.New("unexpected message")
	ErrDataRead           = errors.New("data read failure")
	ErrDataWrite          = errors.New("data write failure")
	ErrDataCorrupted      = errors.New("file data corrupted")
)

// String returns the stable name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "ConnectionError"
	case KindUnsupportedVersion:
		return "UnsupportedProtocolVersion"
	case KindUnexpectedMessage:
		return "UnexpectedMessage"
	case KindDataRead:
		return "DataReadFailure"
	case KindDataWrite:
		return "DataWriteFailure"
	case KindDataCorrupted:
		return "DataCorrupted"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Sentinel returns the package-level error matching k, or nil for an unknown kind.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindConnection:
		return ErrConnection
	case KindUnsupportedVersion:
		return ErrUnsupportedVersion
	case KindUnexpectedMessage:
		return ErrUnexpectedMessage
	case KindDataRead:
		return ErrDataRead
	case KindDataWrite:
		return ErrDataWrite
	case KindDataCorrupted:
		return ErrDataCorrupted
	default:
		return nil
	}
}

// Error is a bridge failure with the operation that caused it.
type Error struct {
	Kind  ErrorKind
	Op    string        // operation that failed
	Errno syscall.Errno // last OS error code observed, zero if none
	Err   error         // underlying error, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bridge %s: %v: %v", e.Op, e.Kind.Sentinel(), e.Err)
	}
	return fmt.Sprintf("bridge %s: %v", e.Op, e.Kind.Sentinel())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.Sentinel()
}

// NewError creates an Error of kind for op, capturing the errno found in err's chain.
func NewError(kind ErrorKind, op string, err error) *Error {
	e := &Error{Kind: kind, Op: op, Err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		e.Errno = errno
	}
	return e
}

// KindOf returns the ErrorKind carried by err.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// ErrnoOf returns the OS error code carried by err, or zero.
func ErrnoOf(err error) syscall.Errno {
	var e *Error
	if errors.As(err, &e) && e.Errno != 0 {
		return e.Errno
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}
