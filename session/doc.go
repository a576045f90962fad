// Package session implements one bridge file transfer, from either end, as an
// explicit sequence of bounded steps.
//
// # Phases
//
// A Sender moves through:
//
//	PhaseConnect -> PhaseMetadata -> PhaseBody -> PhaseClose -> PhaseDone
//
// A Receiver moves through:
//
//	PhaseListen -> PhaseAccept -> PhaseMetadata -> PhaseAllocate -> PhaseBody
//	    -> PhaseClose -> PhaseVerify -> PhaseDone
//
// Phases only move forward. Abort is the single exception and is allowed from
// any phase; it closes every handle the session owns and drops any partial
// buffer.
//
// # Bounded Steps
//
// Every method performs a small, bounded amount of blocking I/O: a 14-byte
// handshake message, a metadata field, or one body segment of at most
// protocol.SegmentSize bytes. The Receiver's Poll never blocks. This lets a
// caller drive a large transfer from an interactive loop without stalling it.
//
//	s, _ := session.NewSender(save, session.DefaultConfig())
//	if err := s.Connect(ctx, peer); err != nil { ... }
//	if err := s.SendMetadata(); err != nil { ... }
//	for !s.BodyDone() {
//	    if _, err := s.SendSegment(); err != nil { ... }
//	}
//	s.Close()
//
// # Integrity
//
// The sender transmits a digest of the whole file ahead of the body. After the
// last segment the Receiver closes the connection, remembers the peer address,
// and recomputes the digest. Only a verified buffer can be taken with
// TakeBuffer; a mismatch fails with protocol.ErrDataCorrupted and the buffer is
// discarded.
package session
