package session

import (
	"context"
	"fmt"

	"github.com/opd-ai/savebridge/handshake"
	"github.com/opd-ai/savebridge/limits"
	"github.com/opd-ai/savebridge/protocol"
	"github.com/opd-ai/savebridge/transport"
	"github.com/sirupsen/logrus"
)

// Sender is the connecting end of a session. It plays the handshake
// Responder role and then streams its buffer to the peer.
type Sender struct {
	cfg     Config
	conn    *transport.Conn
	version int32
	meta    protocol.Metadata
	data    []byte
	cursor  uint32
	phase   Phase
}

// NewSender prepares a session that will send data. The checksum is computed
// up front so metadata is complete before the connection exists. data is
// borrowed, not copied, and must not change during the session.
func NewSender(data []byte, cfg Config) (*Sender, error) {
	cfg = cfg.withDefaults()

	if err := limits.ValidateFileSize(uint64(len(data)), limits.MaxFileSize); err != nil {
		return nil, fmt.Errorf("cannot send save: %w", err)
	}

	s := &Sender{
		cfg:   cfg,
		data:  data,
		phase: PhaseConnect,
		meta: protocol.Metadata{
			Checksum: cfg.Digest.Sum(data),
			Size:     uint32(len(data)),
		},
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewSender",
		"file_size": s.meta.Size,
		"digest":    cfg.Digest.Name(),
	}).Debug("Sender session created")

	return s, nil
}

// Connect dials the peer and answers its version Request.
func (s *Sender) Connect(ctx context.Context, address string) error {
	if s.phase != PhaseConnect {
		return s.phaseError("connect")
	}

	conn, err := transport.Dial(ctx, address, s.cfg.Port, s.cfg.DialTimeout)
	if err != nil {
		s.teardown()
		return err
	}
	s.conn = conn

	version, err := handshake.Respond(conn, s.cfg.Supported)
	if err != nil {
		s.teardown()
		return err
	}

	s.version = version
	s.phase = PhaseMetadata
	return nil
}

// SendMetadata writes the checksum length, the checksum, then the file size.
func (s *Sender) SendMetadata() error {
	if s.phase != PhaseMetadata {
		return s.phaseError("send metadata")
	}

	fields := [][]byte{
		protocol.EncodeField(s.meta.ChecksumSize()),
		s.meta.Checksum,
		protocol.EncodeField(s.meta.Size),
	}
	for _, field := range fields {
		if err := s.conn.SendExact(field); err != nil {
			s.teardown()
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":      "SendMetadata",
		"checksum_size": s.meta.ChecksumSize(),
		"file_size":     s.meta.Size,
	}).Debug("Metadata sent")

	s.phase = PhaseBody
	return nil
}

// SendSegment writes the next segment of the body and returns its length.
// The cursor advances only when the whole segment was written.
func (s *Sender) SendSegment() (int, error) {
	if s.phase != PhaseBody {
		return 0, s.phaseError("send segment")
	}

	n := nextSegment(s.cursor, s.meta.Size, s.cfg.SegmentSize)
	if n == 0 {
		return 0, nil
	}

	if err := s.conn.SendExact(s.data[s.cursor : s.cursor+uint32(n)]); err != nil {
		s.teardown()
		return 0, err
	}

	s.cursor += uint32(n)
	logrus.WithFields(logrus.Fields{
		"function": "SendSegment",
		"segment":  n,
		"cursor":   s.cursor,
		"total":    s.meta.Size,
	}).Debug("Segment sent")

	return n, nil
}

// BodyDone reports whether every body byte has been sent.
func (s *Sender) BodyDone() bool {
	return s.phase == PhaseBody && s.cursor == s.meta.Size
}

// Close closes the connection once the body is complete. No further protocol
// exchange takes place.
func (s *Sender) Close() error {
	if !s.BodyDone() {
		return s.phaseError("close")
	}
	s.phase = PhaseClose
	err := s.conn.Close()
	s.phase = PhaseDone

	logrus.WithFields(logrus.Fields{
		"function":  "Close",
		"file_size": s.meta.Size,
	}).Info("Save sent")

	return err
}

// Abort closes the connection, if any, and ends the session.
func (s *Sender) Abort() {
	if s.phase.Terminal() {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function": "Abort",
		"phase":    s.phase.String(),
		"cursor":   s.cursor,
	}).Info("Sender session aborted")
	s.teardown()
}

func (s *Sender) teardown() {
	if s.conn != nil {
		s.conn.Close()
	}
	s.phase = PhaseAborted
}

func (s *Sender) phaseError(op string) error {
	return fmt.Errorf("%s in phase %s: %w", op, s.phase, ErrInvalidPhase)
}

// Progress returns the bytes sent so far and the file size.
func (s *Sender) Progress() (uint32, uint32) {
	return s.cursor, s.meta.Size
}

// Phase returns the current phase.
func (s *Sender) Phase() Phase {
	return s.phase
}

// Version returns the negotiated protocol version, zero before Connect.
func (s *Sender) Version() int32 {
	return s.version
}

// Metadata returns the metadata announced to the peer.
func (s *Sender) Metadata() protocol.Metadata {
	return s.meta
}

// Conn exposes the connection for readiness checks. It is nil before Connect.
func (s *Sender) Conn() *transport.Conn {
	return s.conn
}
