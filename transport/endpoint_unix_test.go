//go:build unix

package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadReadyLoopback(t *testing.T) {
	ln, err := Listen(0)
	require.NoError(t, err)

	client, err := Dial(context.Background(), "127.0.0.1", ln.Port(), time.Second)
	require.NoError(t, err)
	defer client.Close()

	server := pollUntilAccepted(t, ln)
	defer server.Close()

	ready, err := server.ReadReady(10 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ready)

	require.NoError(t, client.SendExact([]byte{0x01}))

	ready, err = server.ReadReady(time.Second)
	require.NoError(t, err)
	assert.True(t, ready)
}
