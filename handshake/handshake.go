package handshake

import (
	"github.com/opd-ai/savebridge/protocol"
	"github.com/sirupsen/logrus"
)

// Stream is the exact-size I/O a handshake needs. *transport.Conn satisfies it.
type Stream interface {
	SendExact(buf []byte) error
	ReceiveExact(buf []byte) error
	Close() error
}

// Role identifies which side of the exchange a peer plays.
type Role uint8

const (
	// RoleRequester is played by the accepting (file receiving) peer.
	RoleRequester Role = iota
	// RoleResponder is played by the connecting (file sending) peer.
	RoleResponder
)

// String returns the human-readable name of the role.
func (r Role) String() string {
	switch r {
	case RoleRequester:
		return "Requester"
	case RoleResponder:
		return "Responder"
	default:
		return "Unknown"
	}
}

// Request performs the Requester side: it proposes version and returns the
// version the peer agreed to.
func Request(s Stream, version int32) (int32, error) {
	if err := s.SendExact(protocol.NewRequest(version).Encode()); err != nil {
		return 0, err
	}

	buf := make([]byte, protocol.ResponseSize)
	if err := s.ReceiveExact(buf); err != nil {
		return 0, err
	}

	resp, err := protocol.DecodeResponse(buf)
	if err != nil {
		s.Close()
		return 0, protocol.NewError(protocol.KindDataRead, "handshake", err)
	}

	if !resp.ValidMagic() {
		logrus.WithFields(logrus.Fields{
			"function": "Request",
			"magic":    string(resp.Magic[:]),
		}).Warn("Response carries unexpected magic")
		s.Close()
		return 0, protocol.NewError(protocol.KindUnexpectedMessage, "handshake", nil)
	}

	if resp.Rejected() {
		logrus.WithFields(logrus.Fields{
			"function":  "Request",
			"requested": version,
		}).Warn("Peer rejected protocol version")
		s.Close()
		return 0, protocol.NewError(protocol.KindUnsupportedVersion, "handshake", nil)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Request",
		"version":  resp.Version,
	}).Info("Handshake complete")

	return resp.Version, nil
}

// Respond performs the Responder side: it reads the peer's Request, answers
// it according to supported, and returns the negotiated version.
func Respond(s Stream, supported func(int32) bool) (int32, error) {
	buf := make([]byte, protocol.RequestSize)
	if err := s.ReceiveExact(buf); err != nil {
		return 0, err
	}

	req, err := protocol.DecodeRequest(buf)
	if err != nil {
		s.Close()
		return 0, protocol.NewError(protocol.KindDataRead, "handshake", err)
	}

	if !req.ValidMagic() {
		logrus.WithFields(logrus.Fields{
			"function": "Respond",
			"magic":    string(req.Magic[:]),
		}).Warn("Request carries unexpected magic")
		s.Close()
		return 0, protocol.NewError(protocol.KindUnexpectedMessage, "handshake", nil)
	}

	resp := protocol.NewResponseFor(req, supported)
	if err := s.SendExact(resp.Encode()); err != nil {
		return 0, err
	}

	if resp.Rejected() {
		logrus.WithFields(logrus.Fields{
			"function":  "Respond",
			"requested": req.Version,
		}).Warn("Rejected unsupported protocol version")
		s.Close()
		return 0, protocol.NewError(protocol.KindUnsupportedVersion, "handshake", nil)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Respond",
		"version":  resp.Version,
	}).Info("Handshake complete")

	return resp.Version, nil
}
