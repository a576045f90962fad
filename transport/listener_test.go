package transport

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/opd-ai/savebridge/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pollUntilAccepted polls ln until a connection arrives or the deadline passes.
func pollUntilAccepted(t *testing.T, ln *Listener) *Conn {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := ln.Poll()
		require.NoError(t, err)
		if conn != nil {
			return conn
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no connection accepted before deadline")
	return nil
}

func TestListenPollWithoutPeer(t *testing.T) {
	ln, err := Listen(0)
	require.NoError(t, err)
	defer ln.Close()

	assert.NotZero(t, ln.Port())

	start := time.Now()
	conn, err := ln.Poll()
	require.NoError(t, err)
	assert.Nil(t, conn)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, ln.Closed())
}

func TestListenAcceptClosesListener(t *testing.T) {
	ln, err := Listen(0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialed := make(chan *Conn, 1)
	go func() {
		c, err := Dial(ctx, "127.0.0.1", ln.Port(), time.Second)
		if err == nil {
			dialed <- c
		}
		close(dialed)
	}()

	accepted := pollUntilAccepted(t, ln)
	defer accepted.Close()
	assert.True(t, ln.Closed())
	assert.Equal(t, net.IPv4(127, 0, 0, 1).To4(), accepted.RemoteIP())

	client, ok := <-dialed
	require.True(t, ok)
	defer client.Close()

	// Accepted connections block until exact sizes are satisfied.
	go func() {
		_ = client.SendExact([]byte("hello bridge"))
	}()
	buf := make([]byte, 12)
	require.NoError(t, accepted.ReceiveExact(buf))
	assert.Equal(t, "hello bridge", string(buf))

	ready, err := accepted.WriteReady(100 * time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ready)

	_, err = ln.Poll()
	assert.ErrorIs(t, err, protocol.ErrConnection)
}

func TestListenPortInUse(t *testing.T) {
	busy, err := net.Listen("tcp4", "0.0.0.0:0")
	require.NoError(t, err)
	defer busy.Close()

	_, portStr, err := net.SplitHostPort(busy.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	_, err = Listen(uint16(port))
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrConnection)
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = Dial(context.Background(), "127.0.0.1", uint16(port), time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrConnection)
}
