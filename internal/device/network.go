package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/blink-sync-core/internal/cloud"
)

// Network is a site: one hub and the cameras that belong to it.
type Network struct {
	reg *Registry

	mu      sync.RWMutex
	raw     cloud.Network
	hub     *cloud.SyncModule
	armedAt time.Time
	present bool
}

func newNetwork(reg *Registry, rec NetworkRecord) *Network {
	n := &Network{reg: reg}
	n.update(rec)
	return n
}

// update replaces server-sourced fields. armedAt is local and survives.
func (n *Network) update(rec NetworkRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.raw = rec.Network
	if rec.SyncModule != nil {
		hub := *rec.SyncModule
		n.hub = &hub
	} else {
		n.hub = nil
	}
	n.present = true
}

// markMissing flags the network absent; it reports whether this changed.
func (n *Network) markMissing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.present {
		return false
	}
	n.present = false
	return true
}

// ID is the cloud-assigned network id.
func (n *Network) ID() int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.raw.ID
}

// Name is the user-assigned network name.
func (n *Network) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.raw.Name
}

// Armed is the last armed flag reported by the cloud.
func (n *Network) Armed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.raw.Armed
}

// UpdatedAt is the server's last-modified time for the network.
func (n *Network) UpdatedAt() time.Time {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return cloud.ParseTime(n.raw.UpdatedAt)
}

// ArmedAt is when this process last armed the network; zero if it has not.
func (n *Network) ArmedAt() time.Time {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.armedAt
}

// SyncModule returns the paired hub.
func (n *Network) SyncModule() (cloud.SyncModule, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.hub == nil {
		return cloud.SyncModule{}, false
	}
	return *n.hub, true
}

// Present is false when the last snapshot no longer listed the network.
func (n *Network) Present() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.present
}

// Raw returns a copy of the server-sourced fields.
func (n *Network) Raw() cloud.Network {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.raw
}

// ActiveCommand returns the command currently awaited on this network, or 0.
func (n *Network) ActiveCommand() int64 {
	return n.reg.ActiveCommand(n.ID())
}

// SetArmedState arms or disarms the network through the controller. It is a
// no-op when the network is already in the target state. Arming records
// armedAt, which anchors the motion window; it is restored if the
// controller fails.
func (n *Network) SetArmedState(ctx context.Context, armed bool) error {
	n.mu.Lock()
	if n.raw.Armed == armed {
		n.mu.Unlock()
		return nil
	}
	id := n.raw.ID
	previous := n.armedAt
	if armed {
		n.armedAt = n.reg.now()
	} else {
		n.armedAt = time.Time{}
	}
	n.mu.Unlock()

	ctrl := n.reg.getController()
	if ctrl == nil {
		n.restoreArmedAt(previous)
		return ErrNoController
	}
	if err := ctrl.SetArmedState(ctx, id, armed); err != nil {
		n.restoreArmedAt(previous)
		return fmt.Errorf("network %d: %w", id, err)
	}
	return nil
}

func (n *Network) restoreArmedAt(t time.Time) {
	n.mu.Lock()
	n.armedAt = t
	n.mu.Unlock()
}

// SetArmedAt overrides the local arm time.
func (n *Network) SetArmedAt(t time.Time) {
	n.mu.Lock()
	n.armedAt = t
	n.mu.Unlock()
}
