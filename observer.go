package savebridge

import (
	"time"

	"github.com/opd-ai/savebridge/protocol"
)

// Outcome is how a session ended.
type Outcome uint8

const (
	// OutcomeSuccess means the save was transferred and, on a receiver, loaded.
	OutcomeSuccess Outcome = iota
	// OutcomeFailed means a protocol or I/O error ended the session.
	OutcomeFailed
	// OutcomeCancelled means Cancel ended the session.
	OutcomeCancelled
)

// String returns the name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Summary describes a finished session.
type Summary struct {
	ID      string
	Role    Role
	Outcome Outcome
	// Kind is set when Outcome is OutcomeFailed.
	Kind    protocol.ErrorKind
	Bytes   uint32
	Total   uint32
	Elapsed time.Duration
}

// Observer receives session lifecycle events. Calls happen on the goroutine
// that drives Iterate.
type Observer interface {
	SessionStarted(id string, role Role)
	BytesMoved(id string, role Role, n int)
	SessionEnded(summary Summary)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string, Role)  {}
func (nopObserver) BytesMoved(string, Role, int) {}
func (nopObserver) SessionEnded(Summary)         {}
