package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MagicSize is the width of the magic field in handshake messages.
const MagicSize = 10

// Magic identifies the bridge protocol family. Both peers must send it verbatim.
var Magic = [MagicSize]byte{'P', 'K', 'S', 'M', 'B', 'R', 'I', 'D', 'G', 'E'}

const (
	// LatestVersion is the protocol version requested by a receiving peer.
	LatestVersion int32 = 1

	// UnsupportedVersion is the sentinel a responder sends to reject a request.
	UnsupportedVersion int32 = -1
)

const (
	// DefaultPort is the statically reserved TCP port used for listening and connecting.
	DefaultPort uint16 = 34567

	// FieldSize is the width of every integer field on the wire.
	FieldSize = 4

	// RequestSize is the encoded size of a Request.
	RequestSize = MagicSize + FieldSize

	// ResponseSize is the encoded size of a Response.
	ResponseSize = MagicSize + FieldSize

	// SegmentSize is the largest body slice moved by a single session step (0x3000).
	SegmentSize = 12288

	// SubChunkSize bounds each individual send or recv call.
	SubChunkSize = 1024
)

// ByteOrder is the byte order agreed by both peers for every integer field.
var ByteOrder = binary.LittleEndian

// ErrMessageSize indicates a message buffer with the wrong length.
var ErrMessageSize = errors.New("invalid message size")

// IsSupportedVersion reports whether version is spoken by this implementation.
// Only a single protocol version exists; extend this when newer versions appear.
func IsSupportedVersion(version int32) bool {
	return version == LatestVersion
}

// Request is sent by the accepting peer to propose a protocol version.
type Request struct {
	Magic   [MagicSize]byte
	Version int32
}

// NewRequest builds a Request for version carrying the shared magic.
func NewRequest(version int32) Request {
	return Request{Magic: Magic, Version: version}
}

// ValidMagic reports whether the request carries the shared magic.
func (r Request) ValidMagic() bool {
	return r.Magic == Magic
}

// Encode returns the RequestSize wire form of r.
func (r Request) Encode() []byte {
	return encodeHeader(r.Magic, r.Version)
}

// DecodeRequest parses a Request. It does not validate the magic.
func DecodeRequest(data []byte) (Request, error) {
	magic, version, err := decodeHeader(data, RequestSize)
	if err != nil {
		return Request{}, err
	}
	return Request{Magic: magic, Version: version}, nil
}

// Response is sent by the connecting peer with the negotiated version or UnsupportedVersion.
type Response struct {
	Magic   [MagicSize]byte
	Version int32
}

// NewResponseFor answers req. The requested version is echoed back when supported
// accepts it, otherwise the response carries UnsupportedVersion.
func NewResponseFor(req Request, supported func(int32) bool) Response {
	version := UnsupportedVersion
	if supported != nil && req.Version != UnsupportedVersion && supported(req.Version) {
		version = req.Version
	}
	return Response{Magic: Magic, Version: version}
}

// ValidMagic reports whether the response carries the shared magic.
func (r Response) ValidMagic() bool {
	return r.Magic == Magic
}

// Rejected reports whether the responder refused the requested version.
func (r Response) Rejected() bool {
	return r.Version == UnsupportedVersion
}

// Encode returns the ResponseSize wire form of r.
func (r Response) Encode() []byte {
	return encodeHeader(r.Magic, r.Version)
}

// DecodeResponse parses a Response. It does not validate the magic.
func DecodeResponse(data []byte) (Response, error) {
	magic, version, err := decodeHeader(data, ResponseSize)
	if err != nil {
		return Response{}, err
	}
	return Response{Magic: magic, Version: version}, nil
}

func encodeHeader(magic [MagicSize]byte, version int32) []byte {
	data := make([]byte, MagicSize+FieldSize)
	copy(data, magic[:])
	ByteOrder.PutUint32(data[MagicSize:], uint32(version))
	return data
}

func decodeHeader(data []byte, size int) ([MagicSize]byte, int32, error) {
	var magic [MagicSize]byte
	if len(data) != size {
		return magic, 0, fmt.Errorf("%w: got %d bytes, want %d", ErrMessageSize, len(data), size)
	}
	copy(magic[:], data[:MagicSize])
	return magic, int32(ByteOrder.Uint32(data[MagicSize:])), nil
}

// Metadata describes the file that follows on the wire.
type Metadata struct {
	Checksum []byte
	Size     uint32
}

// ChecksumSize is the value sent in the checksum length field.
func (m Metadata) ChecksumSize() uint32 {
	return uint32(len(m.Checksum))
}

// EncodeField returns the wire form of a single integer field.
func EncodeField(v uint32) []byte {
	data := make([]byte, FieldSize)
	ByteOrder.PutUint32(data, v)
	return data
}

// DecodeField parses a single integer field. data must be FieldSize bytes.
func DecodeField(data []byte) (uint32, error) {
	if len(data) != FieldSize {
		return 0, fmt.Errorf("%w: got %d bytes, want %d", ErrMessageSize, len(data), FieldSize)
	}
	return ByteOrder.Uint32(data), nil
}
