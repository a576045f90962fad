package transport

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/opd-ai/savebridge/protocol"
	"github.com/sirupsen/logrus"
)

// DefaultDialTimeout bounds the blocking connect when no timeout is given.
const DefaultDialTimeout = 10 * time.Second

// Dial performs a blocking IPv4 connect to address:port.
// Failure returns a ConnectionError.
func Dial(ctx context.Context, address string, port uint16, timeout time.Duration) (*Conn, error) {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	target := net.JoinHostPort(address, strconv.Itoa(int(port)))

	logrus.WithFields(logrus.Fields{
		"function": "Dial",
		"target":   target,
		"timeout":  timeout,
	}).Info("Connecting to bridge peer")

	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp4", target)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Dial",
			"target":   target,
			"error":    err.Error(),
		}).Error("Connect failed")
		return nil, protocol.NewError(protocol.KindConnection, "connect", err)
	}

	return Wrap(c), nil
}

// LocalIPv4 returns the first non-loopback IPv4 address of this host, which
// a receiving peer displays so the sender knows where to connect.
func LocalIPv4() (net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, net.UnknownNetworkError("no IPv4 interface address")
}
