package router

import (
	"math/rand"
	"testing"

	"github.com/vex-telecom/dsc/internal/diam"
	"github.com/vex-telecom/dsc/models_base"
)

func requestWithDestHost(host string) *diam.Message {
	m := &diam.Message{Header: diam.Header{Flags: diam.Flags{Request: true}}}
	if host != "" {
		m.Append(diam.NewAVP(diam.AVPDestHost, 0, true, models_base.DiameterIdentity(host)))
	}
	return m
}

func TestMatchSpec_DestinationHost(t *testing.T) {
	dict := diam.NewBaseDictionary()
	m := MatchSpec{Kind: MatchDestinationHost, Host: "hss01.example.com"}

	if !m.Matches(requestWithDestHost("hss01.example.com"), dict) {
		t.Fatal("expected match on exact host")
	}
	if !m.Matches(requestWithDestHost("HSS01.EXAMPLE.COM"), dict) {
		t.Fatal("expected case-insensitive match")
	}
	if m.Matches(requestWithDestHost("hss02.example.com"), dict) {
		t.Fatal("expected no match on different host")
	}
	if m.Matches(requestWithDestHost(""), dict) {
		t.Fatal("absent Destination-Host must not match, not wildcard")
	}
}

func TestMatchSpec_Default(t *testing.T) {
	m := MatchSpec{Kind: MatchDefault}
	if !m.Matches(requestWithDestHost(""), diam.NewBaseDictionary()) {
		t.Fatal("MatchDefault must always match")
	}
}

func TestSortRoutes_PriorityThenSpecificity(t *testing.T) {
	routes := []RouteRule{
		{Priority: 10, Match: MatchSpec{Kind: MatchDefault}, PoolID: "default"},
		{Priority: 5, Match: MatchSpec{Kind: MatchDestinationRealm}, PoolID: "realm"},
		{Priority: 5, Match: MatchSpec{Kind: MatchDestinationHost}, PoolID: "host"},
	}
	SortRoutes(routes)

	want := []string{"host", "realm", "default"}
	for i, w := range want {
		if routes[i].PoolID != w {
			t.Fatalf("routes[%d].PoolID = %q, want %q (order: %v)", i, routes[i].PoolID, w, routes)
		}
	}
}

func peerRefs(hosts ...string) []PeerRef {
	out := make([]PeerRef, len(hosts))
	for i, h := range hosts {
		out[i] = PeerRef{Host: h}
	}
	return out
}

type fakeLiveness map[string]bool

func (f fakeLiveness) IsOpen(host string) bool { return f[host] }

type fakeLoad map[string]int

func (f fakeLoad) Outstanding(host string) int { return f[host] }

func TestPool_SelectPeer_RoundRobin(t *testing.T) {
	p := &Pool{ID: "p1", Strategy: RoundRobin, Peers: peerRefs("a", "b", "c")}
	liveness := fakeLiveness{"a": true, "b": true, "c": true}
	load := fakeLoad{}
	rng := rand.New(rand.NewSource(1))

	seen := map[string]int{}
	for i := 0; i < 9; i++ {
		h, ok := p.SelectPeer(liveness, load, rng)
		if !ok {
			t.Fatal("expected a peer")
		}
		seen[h]++
	}
	for _, h := range []string{"a", "b", "c"} {
		if seen[h] != 3 {
			t.Fatalf("peer %q selected %d times, want 3 (round robin over 9 picks)", h, seen[h])
		}
	}
}

func TestPool_SelectPeer_SkipsDownPeers(t *testing.T) {
	p := &Pool{ID: "p1", Strategy: RoundRobin, Peers: peerRefs("a", "b")}
	liveness := fakeLiveness{"a": false, "b": true}
	load := fakeLoad{}
	rng := rand.New(rand.NewSource(1))

	h, ok := p.SelectPeer(liveness, load, rng)
	if !ok || h != "b" {
		t.Fatalf("SelectPeer() = %q, %v, want b, true", h, ok)
	}
}

func TestPool_SelectPeer_NoLivePeers(t *testing.T) {
	p := &Pool{ID: "p1", Strategy: RoundRobin, Peers: peerRefs("a", "b")}
	liveness := fakeLiveness{"a": false, "b": false}
	load := fakeLoad{}
	rng := rand.New(rand.NewSource(1))

	if _, ok := p.SelectPeer(liveness, load, rng); ok {
		t.Fatal("expected no peer available")
	}
}

func TestPool_SelectPeer_LeastConnection(t *testing.T) {
	p := &Pool{ID: "p1", Strategy: LeastConnection, Peers: peerRefs("a", "b", "c")}
	liveness := fakeLiveness{"a": true, "b": true, "c": true}
	load := fakeLoad{"a": 5, "b": 1, "c": 3}
	rng := rand.New(rand.NewSource(1))

	h, ok := p.SelectPeer(liveness, load, rng)
	if !ok || h != "b" {
		t.Fatalf("SelectPeer() = %q, %v, want b (lowest outstanding), true", h, ok)
	}
}

func TestPool_SelectPeer_PriorityBandFailover(t *testing.T) {
	p := &Pool{
		ID:       "p1",
		Strategy: RoundRobin,
		Peers: []PeerRef{
			{Host: "primary", Priority: 1},
			{Host: "secondary", Priority: 2},
		},
	}
	load := fakeLoad{}
	rng := rand.New(rand.NewSource(1))

	// Both bands up: the lower-priority-number band wins exclusively.
	liveness := fakeLiveness{"primary": true, "secondary": true}
	for i := 0; i < 3; i++ {
		h, ok := p.SelectPeer(liveness, load, rng)
		if !ok || h != "primary" {
			t.Fatalf("SelectPeer() = %q, %v, want primary while it is Open", h, ok)
		}
	}

	// Primary band down: falls back to the next band.
	liveness = fakeLiveness{"primary": false, "secondary": true}
	h, ok := p.SelectPeer(liveness, load, rng)
	if !ok || h != "secondary" {
		t.Fatalf("SelectPeer() = %q, %v, want secondary once primary is down", h, ok)
	}
}
