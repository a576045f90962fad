// Package savebridge transfers a single save file between two devices on the
// same local network.
//
// One device receives: it listens on a fixed TCP port and, once a peer
// connects, proposes a protocol version. The other device sends: it connects,
// accepts or rejects the proposed version, announces the checksum and size of
// the save, then streams the body. The receiver verifies the checksum before
// the save is handed to the application.
//
// # Getting Started
//
// A Bridge advances by one bounded step per call to Iterate, so it can be
// driven from a render loop without blocking it for long:
//
//	options := savebridge.NewOptions()
//
//	bridge, err := savebridge.NewReceiver(options, savebridge.SaveLoaderFunc(func(data []byte) error {
//	    return openSave(data)
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	bridge.OnProgress(func(cursor, total uint32) {
//	    drawProgress(cursor, total)
//	})
//	bridge.OnError(func(kind protocol.ErrorKind, message string, errno syscall.Errno) {
//	    showError(message, errno)
//	})
//
//	for !bridge.Done() {
//	    if cancelPressed() {
//	        bridge.Cancel()
//	    }
//	    bridge.Iterate()
//	    time.Sleep(bridge.IterationInterval())
//	}
//
// Run wraps the same loop for callers that have no frame loop of their own.
//
// # Steps
//
// A receiver polls for a connection without blocking, performs the version
// handshake, reads the metadata, then reads the body one segment of at most
// 12288 bytes per tick, and finally closes, verifies and loads. A sender
// connects and answers the handshake on its first tick, then sends the
// metadata and the body the same way. A file of S bytes spends
// ceil(S/12288) ticks in the body.
//
// # Errors
//
// Every failure ends the session. Open handles are closed, partial buffers are
// dropped, and the error callback is called once with a localized message and
// the last OS error code. Cancel follows the same cleanup without calling the
// error callback. The loader is only ever given a buffer whose checksum
// matched.
//
// # Session State
//
// A Host keeps the state that outlives one session: the address of the last
// peer a save came from, used as the default destination of the next send,
// and whether the loaded save arrived through the bridge. Share one Host
// between sessions through Options.Host.
package savebridge
