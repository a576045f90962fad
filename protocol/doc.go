// Package protocol defines the bridge wire format shared by both peers: the
// handshake Request and Response messages, the file metadata fields, the
// protocol constants, and the closed set of error kinds a bridge session can
// end with.
//
// # Wire Format
//
// All integers are 4 bytes wide and little-endian. Messages have no padding.
//
//	Request  = [magic(10)][version(4)]
//	Response = [magic(10)][version(4)]       version == UnsupportedVersion means rejected
//	Metadata = [checksum_len(4)][checksum(checksum_len)][file_size(4)]
//	Body     = file_size raw bytes
//
// The body is carried as one contiguous stream. Splitting it into
// SegmentSize pieces is a local scheduling decision of each peer and is not
// visible on the wire.
//
// # Versions
//
// Only LatestVersion (1) is defined. UnsupportedVersion (-1) is reserved as the
// rejection sentinel and can never be assigned to a real version.
//
// # Errors
//
// Every failure of a bridge session is a *Error carrying one ErrorKind. Use
// errors.Is against the Err* sentinels, or KindOf to switch on the kind:
//
//	if errors.Is(err, protocol.ErrUnexpectedMessage) {
//	    // peer does not speak the bridge protocol
//	}
//
// ErrnoOf returns the last OS error code observed while the failure happened,
// or zero when none applies.
package protocol
