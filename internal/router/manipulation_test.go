package router

import (
	"testing"

	"github.com/vex-telecom/dsc/internal/diam"
	"github.com/vex-telecom/dsc/models_base"
)

func newTestMessage() *diam.Message {
	m := &diam.Message{Header: diam.Header{Flags: diam.Flags{Request: true}}}
	m.Append(diam.NewAVP(diam.AVPOriginHost, 0, true, models_base.DiameterIdentity("mme01.visited.example")))
	m.Append(diam.NewAVP(diam.AVPOriginRealm, 0, true, models_base.DiameterIdentity("visited.example")))
	return m
}

func TestApply_SetValue(t *testing.T) {
	dict := diam.NewBaseDictionary()
	cache := NewRegexCache()
	defer cache.Close()

	rule := ManipulationRule{
		RuleID:    "r1",
		Direction: Egress,
		Actions: []RuleAction{
			{Kind: ActionSetValue, AVPCode: diam.AVPOriginRealm, Mandatory: true, Value: "operator.example"},
		},
	}
	if err := Compile(&rule, cache); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	msg := newTestMessage()
	Apply([]ManipulationRule{rule}, msg, dict)

	got := msg.First(diam.AVPOriginRealm, 0).StringValue(dict)
	if got != "operator.example" {
		t.Fatalf("Origin-Realm = %q, want operator.example", got)
	}
}

func TestApply_ConditionGatesAction(t *testing.T) {
	dict := diam.NewBaseDictionary()
	rule := ManipulationRule{
		RuleID: "r1",
		Condition: Condition{Matches: []Match{
			{Target: TargetAVP, AVPCode: diam.AVPOriginRealm, Op: OpEQ, Value: "nomatch.example"},
		}},
		Actions: []RuleAction{
			{Kind: ActionSetValue, AVPCode: diam.AVPOriginRealm, Value: "should-not-apply"},
		},
	}

	msg := newTestMessage()
	Apply([]ManipulationRule{rule}, msg, dict)

	got := msg.First(diam.AVPOriginRealm, 0).StringValue(dict)
	if got != "visited.example" {
		t.Fatalf("Origin-Realm = %q, want unchanged visited.example", got)
	}
}

func TestApply_RegexReplace(t *testing.T) {
	dict := diam.NewBaseDictionary()
	cache := NewRegexCache()
	defer cache.Close()

	rule := ManipulationRule{
		RuleID: "r1",
		Actions: []RuleAction{
			{Kind: ActionRegexReplace, AVPCode: diam.AVPOriginHost, Pattern: `^mme\d+\.`, Replacement: "mme-hidden."},
		},
	}
	if err := Compile(&rule, cache); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	msg := newTestMessage()
	Apply([]ManipulationRule{rule}, msg, dict)

	got := msg.First(diam.AVPOriginHost, 0).StringValue(dict)
	if got != "mme-hidden.visited.example" {
		t.Fatalf("Origin-Host = %q, want mme-hidden.visited.example", got)
	}
}

func TestApply_RegexReplace_MissingAVPIsNoop(t *testing.T) {
	dict := diam.NewBaseDictionary()
	cache := NewRegexCache()
	defer cache.Close()

	rule := ManipulationRule{
		RuleID: "r1",
		Actions: []RuleAction{
			{Kind: ActionRegexReplace, AVPCode: diam.AVPDestHost, Pattern: `.*`, Replacement: "x"},
		},
	}
	if err := Compile(&rule, cache); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	msg := newTestMessage()
	Apply([]ManipulationRule{rule}, msg, dict) // should not panic on absent AVP
	if msg.First(diam.AVPDestHost, 0) != nil {
		t.Fatal("REGEX_REPLACE must not add an AVP that was absent")
	}
}

func TestApply_DeleteAVP(t *testing.T) {
	dict := diam.NewBaseDictionary()
	rule := ManipulationRule{
		RuleID:  "r1",
		Actions: []RuleAction{{Kind: ActionDeleteAVP, AVPCode: diam.AVPOriginRealm}},
	}
	msg := newTestMessage()
	Apply([]ManipulationRule{rule}, msg, dict)

	if msg.First(diam.AVPOriginRealm, 0) != nil {
		t.Fatal("Origin-Realm should have been removed")
	}
}

func TestApply_TopologyHide(t *testing.T) {
	dict := diam.NewBaseDictionary()
	msg := newTestMessage()
	msg.Append(diam.NewAVP(diam.AVPRouteRecord, 0, true, models_base.DiameterIdentity("internal-node.internal.op.example")))
	msg.Append(diam.NewAVP(diam.AVPRouteRecord, 0, true, models_base.DiameterIdentity("peer.other-network.example")))

	rule := ManipulationRule{
		RuleID: "r1",
		Actions: []RuleAction{{
			Kind: ActionTopologyHide,
			Topology: TopologyHideParams{
				ReplacementHost:     "edge.operator.example",
				ReplacementRealm:    "operator.example",
				RemoveRouteRecord:   true,
				InternalRealmSuffix: "internal.op.example",
			},
		}},
	}
	Apply([]ManipulationRule{rule}, msg, dict)

	if got := msg.First(diam.AVPOriginHost, 0).StringValue(dict); got != "edge.operator.example" {
		t.Fatalf("Origin-Host = %q, want edge.operator.example", got)
	}
	if got := msg.First(diam.AVPOriginRealm, 0).StringValue(dict); got != "operator.example" {
		t.Fatalf("Origin-Realm = %q, want operator.example", got)
	}
	records := msg.All(diam.AVPRouteRecord, 0)
	if len(records) != 1 || records[0].StringValue(dict) != "peer.other-network.example" {
		t.Fatalf("Route-Record entries = %v, want only the non-internal one kept", records)
	}
}

func TestApply_TopologyHide_UsesConfiguredAVPCodes(t *testing.T) {
	dict := diam.NewBaseDictionary()
	msg := newTestMessage()
	msg.Append(diam.NewAVP(diam.AVPDestHost, 0, true, models_base.DiameterIdentity("real-dest.example")))
	msg.Append(diam.NewAVP(diam.AVPDestRealm, 0, true, models_base.DiameterIdentity("real-dest-realm.example")))

	rule := ManipulationRule{
		RuleID: "r1",
		Actions: []RuleAction{{
			Kind: ActionTopologyHide,
			Topology: TopologyHideParams{
				HostAVPCode:      diam.AVPDestHost,
				RealmAVPCode:     diam.AVPDestRealm,
				ReplacementHost:  "edge.operator.example",
				ReplacementRealm: "operator.example",
			},
		}},
	}
	Apply([]ManipulationRule{rule}, msg, dict)

	if got := msg.First(diam.AVPDestHost, 0).StringValue(dict); got != "edge.operator.example" {
		t.Fatalf("Destination-Host = %q, want edge.operator.example", got)
	}
	if got := msg.First(diam.AVPDestRealm, 0).StringValue(dict); got != "operator.example" {
		t.Fatalf("Destination-Realm = %q, want operator.example", got)
	}
	if got := msg.First(diam.AVPOriginHost, 0).StringValue(dict); got != "mme01.visited.example" {
		t.Fatalf("Origin-Host = %q, want untouched mme01.visited.example when HostAVPCode targets Destination-Host", got)
	}
}

func TestRegexCache_ReusesCompiledPattern(t *testing.T) {
	c := NewRegexCache()
	defer c.Close()

	a, err := c.Compile(`^foo\d+$`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	b, err := c.Compile(`^foo\d+$`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if a != b {
		t.Fatal("expected the same *regexp.Regexp instance from the cache on repeat compile")
	}
}
