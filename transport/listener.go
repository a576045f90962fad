package transport

import (
	"errors"
	"net"
	"sync"

	"github.com/opd-ai/savebridge/protocol"
	"github.com/sirupsen/logrus"
)

// errNoPending is returned by an acceptor when no connection is waiting.
var errNoPending = errors.New("no pending connection")

// acceptor is the platform-specific half of a Listener.
type acceptor interface {
	accept() (net.Conn, error)
	addr() net.Addr
	close() error
}

// Listener is a passive non-blocking endpoint waiting for a single peer.
type Listener struct {
	acc       acceptor
	port      uint16
	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

// Listen creates a non-blocking IPv4 endpoint on the wildcard address and the
// given port with a backlog of one. Port 0 picks an ephemeral port.
// Any failure closes the endpoint and returns a ConnectionError.
func Listen(port uint16) (*Listener, error) {
	acc, err := listenEndpoint(port)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Listen",
			"port":     port,
			"error":    err.Error(),
		}).Error("Failed to open listening endpoint")
		return nil, protocol.NewError(protocol.KindConnection, "listen", err)
	}

	l := &Listener{acc: acc, port: port}
	if tcp, ok := acc.addr().(*net.TCPAddr); ok {
		l.port = uint16(tcp.Port)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Listen",
		"port":     l.port,
	}).Info("Listening for bridge connection")

	return l, nil
}

// Poll attempts a non-blocking accept. It returns (nil, nil) when no peer is
// waiting and leaves the listener open. Once a connection is accepted the
// listener is closed. Unexpected failures close the listener and return a
// ConnectionError.
func (l *Listener) Poll() (*Conn, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, protocol.NewError(protocol.KindConnection, "accept", net.ErrClosed)
	}

	c, err := l.acc.accept()
	if errors.Is(err, errNoPending) {
		return nil, nil
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Poll",
			"port":     l.port,
			"error":    err.Error(),
		}).Error("Accept failed, closing listener")
		l.Close()
		return nil, protocol.NewError(protocol.KindConnection, "accept", err)
	}

	l.Close()

	logrus.WithFields(logrus.Fields{
		"function": "Poll",
		"port":     l.port,
		"remote":   c.RemoteAddr().String(),
	}).Info("Accepted bridge connection")

	return Wrap(c), nil
}

// Port returns the bound port.
func (l *Listener) Port() uint16 {
	return l.port
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.acc.addr()
}

// Close closes the listening endpoint. It is safe to call more than once.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		err = l.acc.close()
	})
	return err
}

// Closed reports whether the listener has been closed.
func (l *Listener) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
