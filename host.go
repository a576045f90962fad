package savebridge

import (
	"net"
	"sync"
)

// Host is the state a front-end keeps across bridge sessions: the address of
// the last peer a save came from and whether the open save arrived through
// the bridge. One Host is shared by every session a front-end starts.
type Host struct {
	mu               sync.RWMutex
	lastPeer         net.IP
	loadedFromBridge bool
}

// NewHost returns a Host with no peer recorded.
func NewHost() *Host {
	return &Host{}
}

// LastPeer returns the address of the peer the last received save came from,
// or nil if no save has been received.
func (h *Host) LastPeer() net.IP {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.lastPeer == nil {
		return nil
	}
	return append(net.IP(nil), h.lastPeer...)
}

func (h *Host) setLastPeer(ip net.IP) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastPeer = append(net.IP(nil), ip...)
}

// LoadedFromBridge reports whether the currently loaded save was received
// through the bridge.
func (h *Host) LoadedFromBridge() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loadedFromBridge
}

// SetLoadedFromBridge records whether the currently loaded save came through
// the bridge. Front-ends clear it when a save is opened from local storage.
func (h *Host) SetLoadedFromBridge(loaded bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadedFromBridge = loaded
}
