package savebridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/savebridge/protocol"
	"github.com/opd-ai/savebridge/session"
	"github.com/opd-ai/savebridge/transport"
	"github.com/sirupsen/logrus"
)

var (
	// ErrCancelled is returned by Run when the session was cancelled.
	ErrCancelled = errors.New("bridge session cancelled")

	// ErrNoPeerAddress indicates a sender with no address and no last peer.
	ErrNoPeerAddress = errors.New("no peer address to send to")

	// ErrLoadFailed indicates the save loader rejected a verified buffer.
	ErrLoadFailed = errors.New("save loader rejected received data")
)

// SaveSource supplies the save buffer a sender transfers.
type SaveSource interface {
	Bytes() []byte
}

// SaveLoader takes ownership of a received and verified save buffer.
type SaveLoader interface {
	Load(data []byte) error
}

// SaveSourceFunc adapts a function to SaveSource.
type SaveSourceFunc func() []byte

// Bytes calls f.
func (f SaveSourceFunc) Bytes() []byte { return f() }

// SaveLoaderFunc adapts a function to SaveLoader.
type SaveLoaderFunc func(data []byte) error

// Load calls f.
func (f SaveLoaderFunc) Load(data []byte) error { return f(data) }

// ProgressCallback is called after every tick with bytes moved and total size.
type ProgressCallback func(cursor, total uint32)

// ErrorCallback is called once when a session fails, with the localized
// message and the last OS error code, zero when none was observed.
type ErrorCallback func(kind protocol.ErrorKind, message string, errno syscall.Errno)

// Role is the side of the transfer a Bridge drives.
type Role uint8

const (
	// RoleSender connects to the peer and sends the save.
	RoleSender Role = iota
	// RoleReceiver listens for the peer and receives the save.
	RoleReceiver
)

// String returns the name of the role.
func (r Role) String() string {
	if r == RoleSender {
		return "sender"
	}
	return "receiver"
}

// State is the step the next tick performs.
type State uint8

const (
	// StateHandshakePending means the sender connects and answers the handshake next.
	StateHandshakePending State = iota
	// StateListenPending means the receiver polls for an incoming connection next.
	StateListenPending
	// StateConnectPending means the receiver sends its version Request next.
	StateConnectPending
	// StateMetadataPending means the checksum and size are exchanged next.
	StateMetadataPending
	// StateBodyPending means the next body segment is moved next.
	StateBodyPending
	// StateClosurePending means the connection is closed next, and on a receiver the save is verified and loaded.
	StateClosurePending
	// StateDone means the transfer completed.
	StateDone
	// StateFailed means the session ended with an error.
	StateFailed
	// StateCancelled means the session was cancelled.
	StateCancelled
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateHandshakePending:
		return "HandshakePending"
	case StateListenPending:
		return "ListenPending"
	case StateConnectPending:
		return "ConnectPending"
	case StateMetadataPending:
		return "MetadataPending"
	case StateBodyPending:
		return "BodyPending"
	case StateClosurePending:
		return "ClosurePending"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	case StateCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// Bridge drives one transfer session, one bounded step per Iterate call.
// Iterate, the callbacks and the accessors belong to a single goroutine;
// only Cancel may be called from elsewhere.
type Bridge struct {
	id      string
	role    Role
	options *Options

	sender   *session.Sender
	receiver *session.Receiver
	address  string
	loader   SaveLoader

	state     State
	cancelled atomic.Bool
	err       error
	started   time.Time

	progressCallback ProgressCallback
	errorCallback    ErrorCallback
}

// NewSender creates a bridge that sends the buffer supplied by source. The
// connection is made on the first tick. With no Address in options the host's
// last peer is used.
func NewSender(options *Options, source SaveSource) (*Bridge, error) {
	if options == nil {
		options = NewOptions()
	}
	opts := options.normalize()

	address := opts.Address
	if address == "" {
		if peer := opts.Host.LastPeer(); peer != nil {
			address = peer.String()
		}
	}
	if address == "" {
		return nil, ErrNoPeerAddress
	}

	s, err := session.NewSender(source.Bytes(), opts.sessionConfig())
	if err != nil {
		return nil, err
	}

	b := newBridge(opts, RoleSender)
	b.sender = s
	b.address = address
	b.state = StateHandshakePending
	b.start()
	return b, nil
}

// NewReceiver creates a bridge that listens for a sender and hands the
// verified save to loader.
func NewReceiver(options *Options, loader SaveLoader) (*Bridge, error) {
	if options == nil {
		options = NewOptions()
	}
	opts := options.normalize()

	r, err := session.NewReceiver(opts.sessionConfig())
	if err != nil {
		return nil, err
	}

	b := newBridge(opts, RoleReceiver)
	b.receiver = r
	b.loader = loader
	b.state = StateListenPending
	b.start()
	return b, nil
}

func newBridge(opts *Options, role Role) *Bridge {
	return &Bridge{
		id:      uuid.New().String(),
		role:    role,
		options: opts,
	}
}

func (b *Bridge) start() {
	b.started = b.options.TimeProvider.Now()
	b.options.Observer.SessionStarted(b.id, b.role)

	logrus.WithFields(logrus.Fields{
		"function": "start",
		"session":  b.id,
		"role":     b.role.String(),
		"port":     b.Port(),
		"address":  b.address,
	}).Info("Bridge session started")
}

// OnProgress sets the callback invoked after every tick.
func (b *Bridge) OnProgress(callback ProgressCallback) {
	b.progressCallback = callback
}

// OnError sets the callback invoked when the session fails.
func (b *Bridge) OnError(callback ErrorCallback) {
	b.errorCallback = callback
}

// Cancel requests the session to stop. It takes effect at the start of the
// next tick and is safe to call from any goroutine.
func (b *Bridge) Cancel() {
	b.cancelled.Store(true)
}

// Iterate performs exactly one bounded step of the session.
func (b *Bridge) Iterate() {
	if b.state.Terminal() {
		return
	}
	if b.cancelled.Load() {
		b.cancel()
		b.reportProgress()
		return
	}

	var err error
	switch b.role {
	case RoleSender:
		err = b.iterateSender()
	case RoleReceiver:
		err = b.iterateReceiver()
	}
	switch {
	case err != nil && b.cancelled.Load():
		// A step that failed while a cancel was pending ends as a cancel.
		b.cancel()
	case err != nil:
		b.fail(err)
	}

	b.reportProgress()
}

func (b *Bridge) iterateSender() error {
	s := b.sender
	switch b.state {
	case StateHandshakePending:
		if err := s.Connect(context.Background(), b.address); err != nil {
			return err
		}
		b.state = StateMetadataPending

	case StateMetadataPending:
		if err := s.SendMetadata(); err != nil {
			return err
		}
		b.enterBody(s.BodyDone())

	case StateBodyPending:
		if !b.ready(s.Conn(), true) {
			return nil
		}
		n, err := s.SendSegment()
		if err != nil {
			return err
		}
		b.options.Observer.BytesMoved(b.id, b.role, n)
		b.enterBody(s.BodyDone())

	case StateClosurePending:
		if err := s.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "iterateSender",
				"session":  b.id,
				"error":    err.Error(),
			}).Debug("Close after complete send reported an error")
		}
		b.finish()
	}
	return nil
}

func (b *Bridge) iterateReceiver() error {
	r := b.receiver
	switch b.state {
	case StateListenPending:
		connected, err := r.Poll()
		if err != nil {
			return err
		}
		if connected {
			logrus.WithFields(logrus.Fields{
				"function": "iterateReceiver",
				"session":  b.id,
				"peer":     r.Peer().String(),
			}).Info("Peer connected")
			b.state = StateConnectPending
		}

	case StateConnectPending:
		if err := r.Handshake(); err != nil {
			return err
		}
		b.state = StateMetadataPending

	case StateMetadataPending:
		if err := r.ReceiveMetadata(); err != nil {
			return err
		}
		if err := r.Allocate(); err != nil {
			return err
		}
		b.enterBody(r.BodyDone())

	case StateBodyPending:
		if !b.ready(r.Conn(), false) {
			return nil
		}
		n, err := r.ReceiveSegment()
		if err != nil {
			return err
		}
		b.options.Observer.BytesMoved(b.id, b.role, n)
		b.enterBody(r.BodyDone())

	case StateClosurePending:
		peer, err := r.CloseAndReturnPeer()
		if err != nil {
			return err
		}
		if peer != nil {
			b.options.Host.setLastPeer(peer)
		}
		if err := r.Verify(); err != nil {
			return err
		}
		if err := b.loader.Load(r.TakeBuffer()); err != nil {
			return fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
		b.options.Host.SetLoadedFromBridge(true)
		b.finish()
	}
	return nil
}

// enterBody moves to BodyPending, or straight to ClosurePending once the
// body is complete, so an empty file spends no ticks in the body.
func (b *Bridge) enterBody(done bool) {
	if done {
		b.state = StateClosurePending
		return
	}
	b.state = StateBodyPending
}

// ready probes the connection when a readiness timeout is configured. A
// failed probe has already closed the connection; the next step reports it.
func (b *Bridge) ready(conn *transport.Conn, write bool) bool {
	timeout := b.options.ReadinessTimeout
	if timeout <= 0 || conn == nil {
		return true
	}
	var ok bool
	var err error
	if write {
		ok, err = conn.WriteReady(timeout)
	} else {
		ok, err = conn.ReadReady(timeout)
	}
	return ok || err != nil
}

func (b *Bridge) reportProgress() {
	if b.progressCallback == nil {
		return
	}
	cursor, total := b.Progress()
	b.progressCallback(cursor, total)
}

func (b *Bridge) finish() {
	b.state = StateDone
	b.end(OutcomeSuccess, 0)
}

// cancel aborts the session without surfacing an error.
func (b *Bridge) cancel() {
	b.abortSession()
	b.state = StateCancelled
	b.err = ErrCancelled

	logrus.WithFields(logrus.Fields{
		"function": "cancel",
		"session":  b.id,
		"role":     b.role.String(),
	}).Info("Bridge session cancelled")

	b.end(OutcomeCancelled, 0)
}

// fail aborts the session and surfaces exactly one localized error.
func (b *Bridge) fail(err error) {
	b.abortSession()
	b.state = StateFailed
	b.err = err

	kind, _ := protocol.KindOf(err)
	if errors.Is(err, ErrLoadFailed) {
		kind = protocol.KindDataCorrupted
	}
	errno := protocol.ErrnoOf(err)
	message := b.options.Localizer.Localize(kind)

	logrus.WithFields(logrus.Fields{
		"function": "fail",
		"session":  b.id,
		"role":     b.role.String(),
		"kind":     kind.String(),
		"errno":    int(errno),
		"error":    err.Error(),
	}).Error("Bridge session failed")

	if b.errorCallback != nil {
		b.errorCallback(kind, message, errno)
	}
	b.end(OutcomeFailed, kind)
}

func (b *Bridge) abortSession() {
	if b.sender != nil {
		b.sender.Abort()
	}
	if b.receiver != nil {
		b.receiver.Abort()
	}
}

func (b *Bridge) end(outcome Outcome, kind protocol.ErrorKind) {
	cursor, total := b.Progress()
	b.options.Observer.SessionEnded(Summary{
		ID:      b.id,
		Role:    b.role,
		Outcome: outcome,
		Kind:    kind,
		Bytes:   cursor,
		Total:   total,
		Elapsed: b.options.TimeProvider.Since(b.started),
	})
}

// Run calls Iterate every IterationInterval until the session ends. Cancelling
// ctx cancels the session at the next tick boundary; a step already in
// progress is not interrupted. It returns nil on success, ErrCancelled after a
// cancel, or the error that failed the session.
func (b *Bridge) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, b.Cancel)
	defer stop()

	ticker := time.NewTicker(b.IterationInterval())
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			b.Cancel()
		}
		b.Iterate()
		if b.state.Terminal() {
			return b.err
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

// IterationInterval returns the recommended time between Iterate calls.
func (b *Bridge) IterationInterval() time.Duration {
	return b.options.IterationInterval
}

// ID returns the session identifier used in logs and metrics.
func (b *Bridge) ID() string {
	return b.id
}

// Role returns the side this bridge drives.
func (b *Bridge) Role() Role {
	return b.role
}

// State returns the step the next tick performs.
func (b *Bridge) State() State {
	return b.state
}

// Done reports whether the session has ended for any reason.
func (b *Bridge) Done() bool {
	return b.state.Terminal()
}

// Err returns the error that ended the session, ErrCancelled after a cancel,
// or nil.
func (b *Bridge) Err() error {
	return b.err
}

// Progress returns the bytes moved so far and the total size. The total is
// zero on a receiver until metadata has arrived.
func (b *Bridge) Progress() (uint32, uint32) {
	if b.sender != nil {
		return b.sender.Progress()
	}
	return b.receiver.Progress()
}

// Port returns the port being listened on or connected to.
func (b *Bridge) Port() uint16 {
	if b.receiver != nil {
		return b.receiver.Port()
	}
	return b.options.Port
}

// Host returns the state shared with other sessions.
func (b *Bridge) Host() *Host {
	return b.options.Host
}

// LastPeer returns the address the last received save came from.
func (b *Bridge) LastPeer() net.IP {
	return b.options.Host.LastPeer()
}

// LoadedFromBridge reports whether the loaded save arrived through the bridge.
func (b *Bridge) LoadedFromBridge() bool {
	return b.options.Host.LoadedFromBridge()
}
