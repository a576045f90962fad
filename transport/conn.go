package transport

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/savebridge/protocol"
	"github.com/sirupsen/logrus"
)

// Conn is a connected bridge socket. It is owned by exactly one session,
// which is the only party that closes it.
type Conn struct {
	conn      net.Conn
	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// Wrap adopts an established net.Conn as a bridge connection.
func Wrap(c net.Conn) *Conn {
	return &Conn{conn: c}
}

// SendExact writes all of buf in sub-chunks of at most protocol.SubChunkSize.
// Any shortfall closes the connection and returns a DataWriteFailure.
func (c *Conn) SendExact(buf []byte) error {
	if c.closed.Load() {
		return protocol.NewError(protocol.KindDataWrite, "send", net.ErrClosed)
	}

	total := 0
	var lastErr error
	for total < len(buf) {
		end := min(total+protocol.SubChunkSize, len(buf))
		n, err := c.conn.Write(buf[total:end])
		total += n
		if err != nil {
			lastErr = err
			break
		}
	}

	if total != len(buf) {
		if lastErr == nil {
			lastErr = io.ErrShortWrite
		}
		logrus.WithFields(logrus.Fields{
			"function": "SendExact",
			"remote":   c.remoteString(),
			"sent":     total,
			"expected": len(buf),
			"error":    lastErr.Error(),
		}).Warn("Short write, closing connection")
		c.Close()
		return protocol.NewError(protocol.KindDataWrite, "send", lastErr)
	}

	return nil
}

// ReceiveExact fills buf in sub-chunks of at most protocol.SubChunkSize.
// A failed or zero-byte read ends the loop; any shortfall closes the
// connection and returns a DataReadFailure.
func (c *Conn) ReceiveExact(buf []byte) error {
	if c.closed.Load() {
		return protocol.NewError(protocol.KindDataRead, "receive", net.ErrClosed)
	}

	total := 0
	var lastErr error
	for total < len(buf) {
		end := min(total+protocol.SubChunkSize, len(buf))
		n, err := c.conn.Read(buf[total:end])
		total += n
		if err != nil {
			lastErr = err
			break
		}
		if n == 0 {
			lastErr = io.ErrNoProgress
			break
		}
	}

	if total != len(buf) {
		if lastErr == nil {
			lastErr = io.ErrUnexpectedEOF
		}
		logrus.WithFields(logrus.Fields{
			"function": "ReceiveExact",
			"remote":   c.remoteString(),
			"received": total,
			"expected": len(buf),
			"error":    lastErr.Error(),
		}).Warn("Short read, closing connection")
		c.Close()
		return protocol.NewError(protocol.KindDataRead, "receive", lastErr)
	}

	return nil
}

// ReadReady reports whether data can be read within timeout.
func (c *Conn) ReadReady(timeout time.Duration) (bool, error) {
	return c.ready(timeout, false)
}

// WriteReady reports whether data can be written within timeout.
func (c *Conn) WriteReady(timeout time.Duration) (bool, error) {
	return c.ready(timeout, true)
}

func (c *Conn) ready(timeout time.Duration, write bool) (bool, error) {
	if c.closed.Load() {
		return false, protocol.NewError(protocol.KindConnection, "poll", net.ErrClosed)
	}

	ready, err := pollReady(c.conn, timeout, write)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ready",
			"remote":   c.remoteString(),
			"write":    write,
			"error":    err.Error(),
		}).Warn("Readiness check failed, closing connection")
		c.Close()
		return false, protocol.NewError(protocol.KindConnection, "poll", err)
	}
	return ready, nil
}

// RemoteIP returns the IPv4 address of the peer, or nil if unknown.
func (c *Conn) RemoteIP() net.IP {
	addr, ok := c.conn.RemoteAddr().(*net.TCPAddr)
	if !ok || addr == nil {
		return nil
	}
	return addr.IP.To4()
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection. Repeated calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()
		logrus.WithFields(logrus.Fields{
			"function": "Close",
			"remote":   c.remoteString(),
		}).Debug("Connection closed")
	})
	return c.closeErr
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

func (c *Conn) remoteString() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
