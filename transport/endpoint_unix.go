//go:build unix

package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// NewEndpoint creates an IPv4 stream socket and returns its descriptor.
func NewEndpoint() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

// fdAcceptor accepts on a raw non-blocking listening descriptor.
type fdAcceptor struct {
	fd    int
	local *net.TCPAddr
}

func listenEndpoint(port uint16) (acceptor, error) {
	fd, err := NewEndpoint()
	if err != nil {
		return nil, err
	}

	fail := func(op string, err error) (acceptor, error) {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		return fail("set nonblock", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: int(port)}); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, 1); err != nil {
		return fail("listen", err)
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		return fail("getsockname", err)
	}
	local := &net.TCPAddr{IP: net.IPv4zero, Port: int(port)}
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		local = &net.TCPAddr{IP: net.IP(in4.Addr[:]), Port: in4.Port}
	}

	return &fdAcceptor{fd: fd, local: local}, nil
}

func (a *fdAcceptor) accept() (net.Conn, error) {
	nfd, _, err := unix.Accept(a.fd)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
			return nil, errNoPending
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	unix.CloseOnExec(nfd)

	// net.FileConn duplicates the descriptor; nfd is closed here.
	f := os.NewFile(uintptr(nfd), "bridge-conn")
	c, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("adopt connection: %w", err)
	}

	// Clear any deadline so reads and writes block until complete.
	if err := c.SetDeadline(time.Time{}); err != nil {
		c.Close()
		return nil, fmt.Errorf("set blocking: %w", err)
	}
	return c, nil
}

func (a *fdAcceptor) addr() net.Addr {
	return a.local
}

func (a *fdAcceptor) close() error {
	return unix.Close(a.fd)
}

// pollReady polls the descriptor behind c for readability or writability.
func pollReady(c net.Conn, timeout time.Duration, write bool) (bool, error) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		// No descriptor to poll (in-memory pipes); report ready.
		return true, nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return false, err
	}

	events := int16(unix.POLLIN)
	if write {
		events = unix.POLLOUT
	}

	var ready bool
	var pollErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		n, err := unix.Poll(fds, int(timeout.Milliseconds()))
		if err != nil && !errors.Is(err, unix.EINTR) {
			pollErr = err
			return
		}
		ready = n > 0 && fds[0].Revents&events != 0
	})
	if ctrlErr != nil {
		return false, ctrlErr
	}
	return ready, pollErr
}
