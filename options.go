package savebridge

import (
	"time"

	"github.com/opd-ai/savebridge/limits"
	"github.com/opd-ai/savebridge/protocol"
	"github.com/opd-ai/savebridge/session"
	"github.com/opd-ai/savebridge/transport"
)

// DefaultIterationInterval is the nominal time between two ticks, one frame
// at 60Hz.
const DefaultIterationInterval = 16 * time.Millisecond

// Options contains configuration for a bridge session.
type Options struct {
	// Port is the TCP port listened on and connected to.
	Port uint16
	// Address is the peer a sender connects to. Empty means the host's last peer.
	Address string
	// DialTimeout bounds the sender's blocking connect.
	DialTimeout time.Duration
	// MaxFileSize caps the save size a receiver accepts.
	MaxFileSize uint64
	// Digest computes and verifies the content checksum.
	Digest session.Digest
	// IterationInterval is returned by Bridge.IterationInterval.
	IterationInterval time.Duration
	// ReadinessTimeout, when positive, makes body ticks probe the connection
	// first and yield without moving bytes if it is not ready.
	ReadinessTimeout time.Duration
	// Localizer turns error kinds into user-facing messages.
	Localizer Localizer
	// Observer receives session lifecycle events.
	Observer Observer
	// Host carries state shared by consecutive sessions.
	Host *Host
	// TimeProvider supplies the clock for session timing.
	TimeProvider TimeProvider
}

// NewOptions creates a new default options.
func NewOptions() *Options {
	return &Options{
		Port:              protocol.DefaultPort,
		DialTimeout:       transport.DefaultDialTimeout,
		MaxFileSize:       limits.DefaultMaxFileSize,
		Digest:            session.SHA256,
		IterationInterval: DefaultIterationInterval,
		Localizer:         EnglishCatalog,
		Host:              NewHost(),
		TimeProvider:      DefaultTimeProvider{},
	}
}

// sessionConfig derives the session configuration from the options.
func (o *Options) sessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Port = o.Port
	cfg.DialTimeout = o.DialTimeout
	cfg.MaxFileSize = o.MaxFileSize
	if o.Digest != nil {
		cfg.Digest = o.Digest
	}
	return cfg
}

// normalize fills unset fields that a zero Options would leave nil.
func (o *Options) normalize() *Options {
	n := *o
	if n.IterationInterval <= 0 {
		n.IterationInterval = DefaultIterationInterval
	}
	if n.Localizer == nil {
		n.Localizer = EnglishCatalog
	}
	if n.Observer == nil {
		n.Observer = nopObserver{}
	}
	if n.Host == nil {
		n.Host = NewHost()
	}
	if n.TimeProvider == nil {
		n.TimeProvider = DefaultTimeProvider{}
	}
	return &n
}

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }
