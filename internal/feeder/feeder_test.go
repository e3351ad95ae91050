package feeder

import (
	"testing"

	"github.com/vex-telecom/dsc/internal/diam"
	"github.com/vex-telecom/dsc/internal/router"
)

func newTestFeeder(t *testing.T) (*Feeder, *router.Registry) {
	t.Helper()
	registry := router.NewRegistry()
	dict := diam.NewBaseDictionary()
	f := New(registry, dict, nil, nil)
	t.Cleanup(f.Close)
	return f, registry
}

func validSnapshot() *Snapshot {
	return &Snapshot{
		VR: router.VRMeta{VRID: "vr1", LocalIdentity: "dsc.example", OriginHost: "dsc.example", OriginRealm: "example.com"},
		Pools: []PoolInput{
			{ID: "p1", Strategy: router.RoundRobin, Peers: []router.PeerRef{{Host: "hss01"}}},
		},
		Routes: []RouteInput{
			{Priority: 1, Match: router.MatchSpec{Kind: router.MatchDefault}, PoolID: "p1"},
		},
	}
}

func TestFeeder_Install_ValidSnapshotIsPublished(t *testing.T) {
	f, registry := newTestFeeder(t)

	if err := f.Install(validSnapshot()); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	snap, ok := registry.Load("vr1")
	if !ok {
		t.Fatal("expected a published snapshot for vr1")
	}
	if len(snap.Routes) != 1 || snap.Routes[0].PoolID != "p1" {
		t.Fatalf("Routes = %+v, want one route to p1", snap.Routes)
	}
	if _, ok := snap.Pools["p1"]; !ok {
		t.Fatal("expected pool p1 to be installed")
	}
}

func TestFeeder_Install_RejectsRouteToUnknownPool(t *testing.T) {
	f, registry := newTestFeeder(t)
	in := validSnapshot()
	in.Routes[0].PoolID = "does-not-exist"

	if err := f.Install(in); err == nil {
		t.Fatal("expected an error for a route referencing an unknown pool")
	}
	if _, ok := registry.Load("vr1"); ok {
		t.Fatal("an invalid snapshot must not be installed")
	}
}

func TestFeeder_Install_InvalidSnapshotLeavesPreviousActive(t *testing.T) {
	f, registry := newTestFeeder(t)
	if err := f.Install(validSnapshot()); err != nil {
		t.Fatalf("Install() (first, valid) error = %v", err)
	}

	bad := validSnapshot()
	bad.Pools[0].Peers = nil // pool with no peers is invalid
	if err := f.Install(bad); err == nil {
		t.Fatal("expected an error for a pool with no peers")
	}

	snap, ok := registry.Load("vr1")
	if !ok {
		t.Fatal("expected the previous snapshot to remain active")
	}
	if len(snap.Pools) != 1 {
		t.Fatalf("Pools = %+v, want the original valid snapshot untouched", snap.Pools)
	}
}

func TestFeeder_Install_RejectsRuleWithUnknownAVP(t *testing.T) {
	f, registry := newTestFeeder(t)
	in := validSnapshot()
	in.Rules = []RuleInput{
		{
			RuleID:    "r1",
			Priority:  1,
			Direction: router.Egress,
			Actions: []router.RuleAction{
				{Kind: router.ActionSetValue, AVPCode: 999999, Value: "x"},
			},
		},
	}

	if err := f.Install(in); err == nil {
		t.Fatal("expected an error for an action referencing an unknown AVP")
	}
	if _, ok := registry.Load("vr1"); ok {
		t.Fatal("an invalid snapshot must not be installed")
	}
}

func TestFeeder_Install_RejectsBadRegex(t *testing.T) {
	f, registry := newTestFeeder(t)
	in := validSnapshot()
	in.Rules = []RuleInput{
		{
			RuleID:    "r1",
			Priority:  1,
			Direction: router.Egress,
			Actions: []router.RuleAction{
				{Kind: router.ActionRegexReplace, AVPCode: diam.AVPOriginHost, Pattern: "(unclosed", Replacement: "x"},
			},
		},
	}

	if err := f.Install(in); err == nil {
		t.Fatal("expected an error for an unparseable regex pattern")
	}
	if _, ok := registry.Load("vr1"); ok {
		t.Fatal("an invalid snapshot must not be installed")
	}
}

func TestFeeder_Install_AcceptsValidIngressAndEgressRules(t *testing.T) {
	f, registry := newTestFeeder(t)
	in := validSnapshot()
	in.Rules = []RuleInput{
		{RuleID: "ing1", Priority: 1, Direction: router.Ingress, Actions: []router.RuleAction{
			{Kind: router.ActionSetValue, AVPCode: diam.AVPOriginRealm, Value: "ingress.example"},
		}},
		{RuleID: "eg1", Priority: 1, Direction: router.Egress, Actions: []router.RuleAction{
			{Kind: router.ActionSetValue, AVPCode: diam.AVPOriginHost, Value: "egress.example"},
		}},
	}

	if err := f.Install(in); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	snap, _ := registry.Load("vr1")
	if len(snap.IngressRules) != 1 || len(snap.EgressRules) != 1 {
		t.Fatalf("IngressRules=%d EgressRules=%d, want 1 each", len(snap.IngressRules), len(snap.EgressRules))
	}
}
