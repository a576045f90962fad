package session

import (
	"bytes"
	"fmt"
	"net"

	"github.com/opd-ai/savebridge/handshake"
	"github.com/opd-ai/savebridge/limits"
	"github.com/opd-ai/savebridge/protocol"
	"github.com/opd-ai/savebridge/transport"
	"github.com/sirupsen/logrus"
)

// Receiver is the listening end of a session. It plays the handshake
// Requester role and then collects the body into a buffer it owns until the
// checksum is verified.
type Receiver struct {
	cfg      Config
	listener *transport.Listener
	conn     *transport.Conn
	version  int32
	meta     protocol.Metadata
	buffer   []byte
	cursor   uint32
	peer     net.IP
	phase    Phase
}

// NewReceiver opens the passive listening endpoint on cfg.Port.
func NewReceiver(cfg Config) (*Receiver, error) {
	cfg = cfg.withDefaults()

	r := &Receiver{cfg: cfg, phase: PhaseListen}
	ln, err := transport.Listen(cfg.Port)
	if err != nil {
		r.phase = PhaseAborted
		return nil, err
	}
	r.listener = ln
	r.phase = PhaseAccept
	return r, nil
}

// Poll checks, without blocking, for an incoming connection. It returns true
// once a peer has been accepted; the listener is closed at that point.
func (r *Receiver) Poll() (bool, error) {
	if r.phase != PhaseAccept || r.conn != nil {
		return false, r.phaseError("poll")
	}

	conn, err := r.listener.Poll()
	if err != nil {
		r.teardown()
		return false, err
	}
	if conn == nil {
		return false, nil
	}

	r.conn = conn
	r.peer = conn.RemoteIP()
	return true, nil
}

// Handshake sends the version Request on the accepted connection and checks
// the Response.
func (r *Receiver) Handshake() error {
	if r.phase != PhaseAccept || r.conn == nil {
		return r.phaseError("handshake")
	}

	version, err := handshake.Request(r.conn, r.cfg.Version)
	if err != nil {
		r.teardown()
		return err
	}

	r.version = version
	r.phase = PhaseMetadata
	return nil
}

// ReceiveMetadata reads the checksum length, the checksum, then the file size.
// Declared lengths are checked against the limits before allocation. Any
// failure drops the partial checksum and fails with DataReadFailure.
func (r *Receiver) ReceiveMetadata() error {
	if r.phase != PhaseMetadata {
		return r.phaseError("receive metadata")
	}

	checksumSize, err := r.readField()
	if err != nil {
		return err
	}
	if err := limits.ValidateChecksumSize(checksumSize); err != nil {
		return r.failRead("metadata", err)
	}

	checksum := make([]byte, checksumSize)
	if err := r.conn.ReceiveExact(checksum); err != nil {
		r.teardown()
		return err
	}

	size, err := r.readField()
	if err != nil {
		return err
	}
	if err := limits.ValidateFileSize(uint64(size), r.cfg.MaxFileSize); err != nil {
		return r.failRead("metadata", err)
	}

	r.meta = protocol.Metadata{Checksum: checksum, Size: size}
	r.phase = PhaseAllocate

	logrus.WithFields(logrus.Fields{
		"function":      "ReceiveMetadata",
		"checksum_size": checksumSize,
		"file_size":     size,
	}).Debug("Metadata received")

	return nil
}

func (r *Receiver) readField() (uint32, error) {
	buf := make([]byte, protocol.FieldSize)
	if err := r.conn.ReceiveExact(buf); err != nil {
		r.teardown()
		return 0, err
	}
	v, err := protocol.DecodeField(buf)
	if err != nil {
		return 0, r.failRead("metadata", err)
	}
	return v, nil
}

func (r *Receiver) failRead(op string, err error) error {
	logrus.WithFields(logrus.Fields{
		"function": "failRead",
		"op":       op,
		"error":    err.Error(),
	}).Warn("Rejecting peer data")
	r.teardown()
	return protocol.NewError(protocol.KindDataRead, op, err)
}

// Allocate creates the body buffer of exactly the announced size.
func (r *Receiver) Allocate() error {
	if r.phase != PhaseAllocate {
		return r.phaseError("allocate")
	}
	r.buffer = make([]byte, r.meta.Size)
	r.phase = PhaseBody
	return nil
}

// ReceiveSegment reads the next segment of the body and returns its length.
// The cursor advances only when the whole segment arrived.
func (r *Receiver) ReceiveSegment() (int, error) {
	if r.phase != PhaseBody {
		return 0, r.phaseError("receive segment")
	}

	n := nextSegment(r.cursor, r.meta.Size, r.cfg.SegmentSize)
	if n == 0 {
		return 0, nil
	}

	if err := r.conn.ReceiveExact(r.buffer[r.cursor : r.cursor+uint32(n)]); err != nil {
		r.teardown()
		return 0, err
	}

	r.cursor += uint32(n)
	logrus.WithFields(logrus.Fields{
		"function": "ReceiveSegment",
		"segment":  n,
		"cursor":   r.cursor,
		"total":    r.meta.Size,
	}).Debug("Segment received")

	return n, nil
}

// BodyDone reports whether every body byte has arrived.
func (r *Receiver) BodyDone() bool {
	return r.phase == PhaseBody && r.cursor == r.meta.Size
}

// CloseAndReturnPeer closes the connection and returns the peer's IPv4
// address so a reply can be sent later without rediscovery.
func (r *Receiver) CloseAndReturnPeer() (net.IP, error) {
	if !r.BodyDone() {
		return nil, r.phaseError("close")
	}
	r.phase = PhaseClose
	r.conn.Close()
	r.phase = PhaseVerify
	return r.peer, nil
}

// Verify recomputes the digest over the buffer and compares it with the
// transmitted checksum. On mismatch the buffer is discarded and the error is
// DataCorrupted. The received checksum is released either way.
func (r *Receiver) Verify() error {
	if r.phase != PhaseVerify {
		return r.phaseError("verify")
	}

	checksum := r.meta.Checksum
	r.meta.Checksum = nil

	ok := len(checksum) == r.cfg.Digest.Size() &&
		bytes.Equal(r.cfg.Digest.Sum(r.buffer), checksum)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function":      "Verify",
			"checksum_size": len(checksum),
			"digest":        r.cfg.Digest.Name(),
			"file_size":     r.meta.Size,
		}).Warn("Checksum mismatch, discarding received save")
		r.buffer = nil
		r.phase = PhaseAborted
		return protocol.NewError(protocol.KindDataCorrupted, "verify", nil)
	}

	r.phase = PhaseDone
	logrus.WithFields(logrus.Fields{
		"function":  "Verify",
		"file_size": r.meta.Size,
		"peer":      r.peer.String(),
	}).Info("Save received and verified")

	return nil
}

// TakeBuffer hands the verified buffer to the caller. It returns nil unless
// Verify succeeded, and nil on every later call.
func (r *Receiver) TakeBuffer() []byte {
	if r.phase != PhaseDone {
		return nil
	}
	buf := r.buffer
	r.buffer = nil
	return buf
}

// Abort closes the listener and connection, if open, and drops any partial
// buffer.
func (r *Receiver) Abort() {
	if r.phase.Terminal() {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function": "Abort",
		"phase":    r.phase.String(),
		"cursor":   r.cursor,
	}).Info("Receiver session aborted")
	r.teardown()
}

func (r *Receiver) teardown() {
	if r.conn != nil {
		r.conn.Close()
	}
	if r.listener != nil {
		r.listener.Close()
	}
	r.buffer = nil
	r.meta.Checksum = nil
	r.phase = PhaseAborted
}

func (r *Receiver) phaseError(op string) error {
	return fmt.Errorf("%s in phase %s: %w", op, r.phase, ErrInvalidPhase)
}

// Connected reports whether a peer has been accepted.
func (r *Receiver) Connected() bool {
	return r.conn != nil
}

// Progress returns the bytes received so far and the announced file size.
func (r *Receiver) Progress() (uint32, uint32) {
	return r.cursor, r.meta.Size
}

// Phase returns the current phase.
func (r *Receiver) Phase() Phase {
	return r.phase
}

// Version returns the negotiated protocol version, zero before Handshake.
func (r *Receiver) Version() int32 {
	return r.version
}

// Peer returns the accepted peer's address, nil before a connection arrives.
func (r *Receiver) Peer() net.IP {
	return r.peer
}

// Port returns the port being listened on.
func (r *Receiver) Port() uint16 {
	return r.listener.Port()
}

// Conn exposes the connection for readiness checks. It is nil before Poll
// accepts a peer.
func (r *Receiver) Conn() *transport.Conn {
	return r.conn
}
