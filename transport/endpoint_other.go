//go:build !unix

package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"time"
)

// acceptWindow bounds how long a single accept attempt may wait.
const acceptWindow = time.Millisecond

// tcpAcceptor accepts on a net.TCPListener using a short deadline per attempt.
type tcpAcceptor struct {
	ln *net.TCPListener
}

func listenEndpoint(port uint16) (acceptor, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(int(port))))
	if err != nil {
		return nil, err
	}
	tcp, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, errors.New("unexpected listener type")
	}
	return &tcpAcceptor{ln: tcp}, nil
}

func (a *tcpAcceptor) accept() (net.Conn, error) {
	if err := a.ln.SetDeadline(time.Now().Add(acceptWindow)); err != nil {
		return nil, err
	}
	c, err := a.ln.AcceptTCP()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, errNoPending
		}
		return nil, err
	}
	if err := c.SetDeadline(time.Time{}); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (a *tcpAcceptor) addr() net.Addr {
	return a.ln.Addr()
}

func (a *tcpAcceptor) close() error {
	return a.ln.Close()
}

// pollReady has no portable descriptor poll; connections are reported ready.
func pollReady(c net.Conn, timeout time.Duration, write bool) (bool, error) {
	return true, nil
}
