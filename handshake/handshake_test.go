package handshake

import (
	"net"
	"testing"

	"github.com/opd-ai/savebridge/protocol"
	"github.com/opd-ai/savebridge/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	version int32
	err     error
}

func pipePair() (*transport.Conn, *transport.Conn) {
	a, b := net.Pipe()
	return transport.Wrap(a), transport.Wrap(b)
}

func TestHandshakeSuccess(t *testing.T) {
	requester, responder := pipePair()
	defer requester.Close()
	defer responder.Close()

	done := make(chan result, 1)
	go func() {
		v, err := Respond(responder, protocol.IsSupportedVersion)
		done <- result{v, err}
	}()

	version, err := Request(requester, protocol.LatestVersion)
	require.NoError(t, err)
	assert.Equal(t, protocol.LatestVersion, version)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, protocol.LatestVersion, res.version)
	assert.False(t, requester.Closed())
	assert.False(t, responder.Closed())
}

func TestHandshakeUnsupportedVersionFailsBothSides(t *testing.T) {
	requester, responder := pipePair()

	done := make(chan result, 1)
	go func() {
		v, err := Respond(responder, protocol.IsSupportedVersion)
		done <- result{v, err}
	}()

	_, err := Request(requester, 2)
	assert.ErrorIs(t, err, protocol.ErrUnsupportedVersion)
	assert.True(t, requester.Closed())

	res := <-done
	assert.ErrorIs(t, res.err, protocol.ErrUnsupportedVersion)
	assert.True(t, responder.Closed())
}

func TestRespondRejectsBadMagic(t *testing.T) {
	peer, responder := pipePair()
	defer peer.Close()

	done := make(chan result, 1)
	go func() {
		v, err := Respond(responder, protocol.IsSupportedVersion)
		done <- result{v, err}
	}()

	bad := protocol.NewRequest(protocol.LatestVersion).Encode()
	bad[9] = 'X'
	require.NoError(t, peer.SendExact(bad))

	res := <-done
	assert.ErrorIs(t, res.err, protocol.ErrUnexpectedMessage)
	assert.True(t, responder.Closed())

	// Nothing was answered: the peer sees the connection end.
	err := peer.ReceiveExact(make([]byte, protocol.ResponseSize))
	assert.ErrorIs(t, err, protocol.ErrDataRead)
}

func TestRequestRejectsBadMagic(t *testing.T) {
	requester, peer := pipePair()
	defer peer.Close()

	go func() {
		buf := make([]byte, protocol.RequestSize)
		if peer.ReceiveExact(buf) != nil {
			return
		}
		bad := protocol.Response{Magic: protocol.Magic, Version: protocol.LatestVersion}.Encode()
		bad[0] = 'Q'
		_ = peer.SendExact(bad)
	}()

	_, err := Request(requester, protocol.LatestVersion)
	assert.ErrorIs(t, err, protocol.ErrUnexpectedMessage)
	assert.True(t, requester.Closed())
}

func TestRequestPeerHangsUp(t *testing.T) {
	requester, peer := pipePair()

	go func() {
		buf := make([]byte, protocol.RequestSize)
		_ = peer.ReceiveExact(buf)
		peer.Close()
	}()

	_, err := Request(requester, protocol.LatestVersion)
	assert.ErrorIs(t, err, protocol.ErrDataRead)
	assert.True(t, requester.Closed())
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "Requester", RoleRequester.String())
	assert.Equal(t, "Responder", RoleResponder.String())
	assert.Equal(t, "Unknown", Role(9).String())
}
