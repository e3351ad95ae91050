package router

import (
	"math/rand"
	"strings"
	"sync/atomic"

	"github.com/vex-telecom/dsc/internal/diam"
)

// MatchKind is the category a RouteRule matches on. The fixed
// specificity order — Host, then ApplicationCommand, then Realm, then
// Default — is how ties are broken when rules within a table share a
// priority.
type MatchKind int

const (
	MatchDestinationHost MatchKind = iota
	MatchApplicationCommand
	MatchDestinationRealm
	MatchDefault
)

func (k MatchKind) specificity() int { return int(k) }

// MatchSpec is one route rule's match predicate.
type MatchSpec struct {
	Kind          MatchKind
	Host          string // MatchDestinationHost
	ApplicationID uint32 // MatchApplicationCommand
	CommandCode   uint32 // MatchApplicationCommand
	Realm         string // MatchDestinationRealm
}

// Matches reports whether msg satisfies the predicate. A DestinationHost
// or DestinationRealm rule never matches a message lacking that AVP —
// absence is not a wildcard.
func (m MatchSpec) Matches(msg *diam.Message, dict *diam.Dictionary) bool {
	switch m.Kind {
	case MatchDestinationHost:
		a := msg.First(diam.AVPDestHost, 0)
		return a != nil && strings.EqualFold(a.StringValue(dict), m.Host)
	case MatchApplicationCommand:
		return msg.Header.ApplicationID == m.ApplicationID && msg.Header.CommandCode == m.CommandCode
	case MatchDestinationRealm:
		a := msg.First(diam.AVPDestRealm, 0)
		return a != nil && strings.EqualFold(a.StringValue(dict), m.Realm)
	case MatchDefault:
		return true
	default:
		return false
	}
}

// RouteRule binds one MatchSpec to a pool. Routes in a ConfigSnapshot
// are kept pre-sorted by (Priority ascending, Match.Kind specificity
// ascending) so route selection is a single linear scan for the first
// match.
type RouteRule struct {
	Priority uint32
	Match    MatchSpec
	PoolID   string
}

// SortRoutes orders rules the way a ConfigSnapshot must store them:
// ascending priority, ties broken by match specificity.
func SortRoutes(routes []RouteRule) {
	sortStable(routes, func(i, j int) bool {
		if routes[i].Priority != routes[j].Priority {
			return routes[i].Priority < routes[j].Priority
		}
		return routes[i].Match.Kind.specificity() < routes[j].Match.Kind.specificity()
	})
}

// sortStable is a tiny insertion sort; route tables are small (tens of
// rules per VR) so this avoids pulling in sort.Slice's reflection for a
// hot-path-adjacent helper that only ever runs at config-install time.
func sortStable(routes []RouteRule, less func(i, j int) bool) {
	for i := 1; i < len(routes); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			routes[j], routes[j-1] = routes[j-1], routes[j]
		}
	}
}

// Strategy selects a peer from a Pool's live members.
type Strategy int

const (
	RoundRobin Strategy = iota
	Random
	LeastConnection
)

// LivenessView reports whether a peer's FSM is currently Open; only an
// Open peer contributes to routing.
type LivenessView interface {
	IsOpen(peerHost string) bool
}

// LoadView supplies the outstanding-request count LeastConnection
// compares; Frontline owns the real counters and implements this
// read-only.
type LoadView interface {
	Outstanding(peerHost string) int
}

// PeerRef is one pool member: a peer host plus its failover priority
// band (lower number = preferred, as in the teacher's DRAServerConfig).
// A flat pool — every member at Priority 0 — behaves exactly like a
// pool with no priority concept at all.
type PeerRef struct {
	Host     string
	Priority int
}

// Pool is a named group of candidate peer hosts sharing a load-balancing
// Strategy. Members are additionally grouped into priority bands: a
// pool first restricts to the lowest-priority band with at least one
// Open member, then applies Strategy only within that band (teacher's
// DRA priority-failover pattern, generalized onto any pool).
type Pool struct {
	ID       string
	Strategy Strategy
	Peers    []PeerRef // install order

	cursor atomic.Uint64
}

// SelectPeer returns the chosen peer host, or false if the pool has no
// Open member in any priority band.
func (p *Pool) SelectPeer(liveness LivenessView, load LoadView, rng *rand.Rand) (string, bool) {
	bandPriority := 0
	hasBand := false
	for _, ref := range p.Peers {
		if liveness.IsOpen(ref.Host) && (!hasBand || ref.Priority < bandPriority) {
			bandPriority = ref.Priority
			hasBand = true
		}
	}
	if !hasBand {
		return "", false
	}

	eligible := make([]string, 0, len(p.Peers))
	for _, ref := range p.Peers {
		if ref.Priority == bandPriority && liveness.IsOpen(ref.Host) {
			eligible = append(eligible, ref.Host)
		}
	}

	switch p.Strategy {
	case Random:
		return eligible[rng.Intn(len(eligible))], true
	case LeastConnection:
		best := []string{eligible[0]}
		bestCount := load.Outstanding(eligible[0])
		for _, h := range eligible[1:] {
			c := load.Outstanding(h)
			switch {
			case c < bestCount:
				bestCount = c
				best = []string{h}
			case c == bestCount:
				best = append(best, h)
			}
		}
		idx := p.cursor.Add(1) - 1
		return best[idx%uint64(len(best))], true
	default: // RoundRobin
		idx := p.cursor.Add(1) - 1
		return eligible[idx%uint64(len(eligible))], true
	}
}
