// Package handshake performs the bridge version exchange, exactly once per
// session, in one of two roles.
//
// # Role Inversion
//
// The roles are inverted relative to the direction the file travels, and this
// must be preserved for interoperability with existing peers:
//
//   - The Requester is the peer that ACCEPTED the incoming connection, which is
//     the peer that will RECEIVE the file. It sends a Request carrying the
//     version it wants and waits for a Response.
//
//   - The Responder is the peer that CONNECTED out, which is the peer that will
//     SEND the file. It waits for the Request, checks it, and answers with either
//     the same version or protocol.UnsupportedVersion.
//
// Do not "fix" this so that the sending peer speaks first; peers in the field
// would no longer interoperate.
//
// # Failures
//
// A wrong magic fails with protocol.ErrUnexpectedMessage before anything else
// is read or written. The rejection sentinel fails both sides with
// protocol.ErrUnsupportedVersion; the Responder fails after it has sent the
// sentinel. Short reads and writes fail with protocol.ErrDataRead and
// protocol.ErrDataWrite. The connection is closed on every failure.
package handshake
