// Package router implements the Core Router: a pure, per-VR function
// from (inbound message, installed configuration) to (outbound message,
// forwarding action). It performs no I/O of its own — dialing peers,
// writing bytes, and scheduling timers are all Frontline's and the peer
// agent's jobs (see internal/frontline, internal/peer).
package router

import (
	"sync"
	"sync/atomic"
)

// VRMeta identifies the Virtual Router a ConfigSnapshot belongs to and
// carries the identity values the router stamps into locally built
// answers (loop/no-route/no-peer errors) and into Route-Record AVPs.
type VRMeta struct {
	VRID          string
	LocalIdentity string // compared against and appended to Route-Record
	OriginHost    string
	OriginRealm   string
}

// ConfigSnapshot is the immutable bundle a VR's routing decisions are
// made against: routes, pools, manipulation rules and the VR's own
// identity, installed atomically by the Config Feeder. A Process call
// observes exactly one snapshot for its entire run, never a mix of two
// (the "hot-swap without locking the hot path" requirement).
type ConfigSnapshot struct {
	VR           VRMeta
	Routes       []RouteRule // pre-sorted: priority ascending, ties by specificity
	Pools        map[string]*Pool
	IngressRules []ManipulationRule // direction INGRESS, pre-sorted by priority
	EgressRules  []ManipulationRule // direction EGRESS, pre-sorted by priority
}

// Registry holds one atomically-swappable snapshot per VR. Readers call
// Load and hold the returned pointer for the duration of one message;
// writers call Publish, which never blocks a concurrent Load.
type Registry struct {
	mu        sync.RWMutex
	snapshots map[string]*atomic.Pointer[ConfigSnapshot]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{snapshots: make(map[string]*atomic.Pointer[ConfigSnapshot])}
}

// Load returns the current snapshot for vrID, or false if no snapshot
// has ever been published for it.
func (r *Registry) Load(vrID string) (*ConfigSnapshot, bool) {
	r.mu.RLock()
	p, ok := r.snapshots[vrID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	snap := p.Load()
	return snap, snap != nil
}

// Publish atomically installs snap as the current configuration for its
// VR. Readers already holding a pointer from a previous Load keep
// working against the old snapshot until they call Load again.
func (r *Registry) Publish(snap *ConfigSnapshot) {
	r.mu.Lock()
	p, ok := r.snapshots[snap.VR.VRID]
	if !ok {
		p = &atomic.Pointer[ConfigSnapshot]{}
		r.snapshots[snap.VR.VRID] = p
	}
	r.mu.Unlock()
	p.Store(snap)
}

// VRIDs returns every VR that currently has a published snapshot.
func (r *Registry) VRIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.snapshots))
	for id := range r.snapshots {
		out = append(out, id)
	}
	return out
}
