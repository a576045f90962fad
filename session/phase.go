package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/savebridge/limits"
	"github.com/opd-ai/savebridge/protocol"
	"github.com/opd-ai/savebridge/transport"
)

// ErrInvalidPhase indicates a step was requested out of order.
var ErrInvalidPhase = errors.New("step not allowed in current phase")

// Phase is the position of a session in its forward-only lifecycle.
type Phase uint8

const (
	// PhaseListen is a receiver opening its listening endpoint.
	PhaseListen Phase = iota
	// PhaseAccept is a receiver waiting for a peer and its handshake.
	PhaseAccept
	// PhaseConnect is a sender that has not yet connected.
	PhaseConnect
	// PhaseMetadata is the checksum and size exchange.
	PhaseMetadata
	// PhaseAllocate is a receiver about to create its body buffer.
	PhaseAllocate
	// PhaseBody is the segmented body transfer.
	PhaseBody
	// PhaseClose is the connection being closed after the body.
	PhaseClose
	// PhaseVerify is a receiver about to check the checksum.
	PhaseVerify
	// PhaseDone is a completed session.
	PhaseDone
	// PhaseAborted is a session ended by failure or Abort.
	PhaseAborted
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseListen:
		return "Listen"
	case PhaseAccept:
		return "Accept"
	case PhaseConnect:
		return "Connect"
	case PhaseMetadata:
		return "Metadata"
	case PhaseAllocate:
		return "Allocate"
	case PhaseBody:
		return "Body"
	case PhaseClose:
		return "Close"
	case PhaseVerify:
		return "Verify"
	case PhaseDone:
		return "Done"
	case PhaseAborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(p))
	}
}

// Terminal reports whether no further step is possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseAborted
}

// Config holds the parameters shared by both ends of a session.
type Config struct {
	// Port is used for listening and connecting.
	Port uint16
	// DialTimeout bounds the sender's blocking connect.
	DialTimeout time.Duration
	// SegmentSize caps the body bytes moved by one step.
	SegmentSize int
	// MaxFileSize caps the file size a receiver accepts.
	MaxFileSize uint64
	// Version is the protocol version a receiver requests.
	Version int32
	// Supported decides which requested versions a sender accepts.
	Supported func(int32) bool
	// Digest computes and verifies the content checksum.
	Digest Digest
}

// DefaultConfig returns the configuration every bridge peer uses.
func DefaultConfig() Config {
	return Config{
		Port:        protocol.DefaultPort,
		DialTimeout: transport.DefaultDialTimeout,
		SegmentSize: protocol.SegmentSize,
		MaxFileSize: limits.DefaultMaxFileSize,
		Version:     protocol.LatestVersion,
		Supported:   protocol.IsSupportedVersion,
		Digest:      SHA256,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.SegmentSize <= 0 {
		c.SegmentSize = d.SegmentSize
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = d.MaxFileSize
	}
	if c.Version == 0 {
		c.Version = d.Version
	}
	if c.Supported == nil {
		c.Supported = d.Supported
	}
	if c.Digest == nil {
		c.Digest = d.Digest
	}
	return c
}

// nextSegment returns how many body bytes the next step moves.
func nextSegment(cursor, size uint32, segmentSize int) int {
	return int(min(uint64(size-cursor), uint64(segmentSize)))
}
