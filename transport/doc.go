// Package transport provides the socket primitives of the bridge: a passive
// listening endpoint polled without blocking, a blocking outbound connect, and
// a connection type with bounded exact-size send and receive loops.
//
// # Listening
//
// The receiving peer opens a non-blocking IPv4 endpoint bound to the wildcard
// address with a backlog of one pending connection:
//
//	ln, err := transport.Listen(protocol.DefaultPort)
//	if err != nil {
//	    // errors.Is(err, protocol.ErrConnection)
//	}
//
//	// Called once per tick; never blocks.
//	conn, err := ln.Poll()
//	if err == nil && conn == nil {
//	    // no peer yet, listener still open
//	}
//
// Once a connection is accepted the listener is closed. Any unexpected accept
// failure also closes it.
//
// # Connecting
//
//	conn, err := transport.Dial(ctx, "192.168.1.20", protocol.DefaultPort, 5*time.Second)
//
// # Exact I/O
//
// SendExact and ReceiveExact move exactly len(buf) bytes in sub-chunks of at
// most protocol.SubChunkSize bytes. A short or failed transfer closes the
// connection and returns protocol.ErrDataWrite or protocol.ErrDataRead. Callers
// never retry: a failed connection is finished.
//
// # Readiness
//
// ReadReady and WriteReady poll the single connection descriptor. The result
// is advisory; no transfer step depends on it. A polling failure closes the
// connection with protocol.ErrConnection.
//
// # Platform Support
//
// On unix systems the listening endpoint is built directly from socket, bind
// and listen calls through golang.org/x/sys/unix, and readiness uses poll(2).
// Other platforms fall back to net.ListenConfig with an immediate accept
// deadline and report connections as always ready.
package transport
