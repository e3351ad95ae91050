package router

import (
	"math/rand"
	"strings"

	"github.com/vex-telecom/dsc/internal/diam"
	"github.com/vex-telecom/dsc/models_base"
	"github.com/vex-telecom/dsc/pkg/resultcode"
)

// ForwardKind tells Frontline what to do with Process's returned message.
type ForwardKind int

const (
	// Forward sends the message onward to TargetHost's connection.
	Forward ForwardKind = iota
	// Reply sends the message back down the connection the original
	// request or answer arrived on (Frontline already knows which,
	// from the transaction record; the router never needs a
	// connection_id).
	Reply
	// Discard drops the message with no response.
	Discard
)

// Action is Process's forwarding decision.
type Action struct {
	Kind       ForwardKind
	TargetHost string // set only for Forward
}

// Process is the Core Router's pure core. It performs ingress
// manipulation, loop detection, route/pool selection and egress
// manipulation for a request, or (per policy) egress-only manipulation
// for an answer, and never blocks or performs I/O: every peer-liveness
// and load check is a plain map/slice read against the views supplied by
// the caller.
func Process(msg *diam.Message, snap *ConfigSnapshot, dict *diam.Dictionary, liveness LivenessView, load LoadView, rng *rand.Rand) (*diam.Message, Action) {
	out := msg.Clone()

	if !out.IsRequest() {
		// Answers apply only EGRESS rules: an answer never gets routed
		// (it always goes back down the connection the request came
		// in on), so INGRESS rules — whose purpose is to normalize
		// traffic before route selection — have nothing to act on.
		Apply(snap.EgressRules, out, dict)
		return out, Action{Kind: Reply}
	}

	Apply(snap.IngressRules, out, dict)

	if loopDetected(out, dict, snap.VR.LocalIdentity) {
		return buildError(out, snap.VR, resultcode.LoopDetected, "loop detected: own Route-Record present"), Action{Kind: Reply}
	}

	poolID, matched := selectRoute(snap.Routes, out, dict)
	if !matched {
		return buildError(out, snap.VR, resultcode.RealmNotServed, "no route matched"), Action{Kind: Reply}
	}
	pool, ok := snap.Pools[poolID]
	if !ok {
		return buildError(out, snap.VR, resultcode.RealmNotServed, "route references unknown pool"), Action{Kind: Reply}
	}
	peerHost, ok := pool.SelectPeer(liveness, load, rng)
	if !ok {
		return buildError(out, snap.VR, resultcode.UnableToDeliver, "no live peer in pool"), Action{Kind: Reply}
	}

	appendRouteRecord(out, snap.VR.LocalIdentity)
	Apply(snap.EgressRules, out, dict)

	return out, Action{Kind: Forward, TargetHost: peerHost}
}

func loopDetected(msg *diam.Message, dict *diam.Dictionary, localIdentity string) bool {
	for _, a := range msg.All(diam.AVPRouteRecord, 0) {
		if strings.EqualFold(a.StringValue(dict), localIdentity) {
			return true
		}
	}
	return false
}

func appendRouteRecord(msg *diam.Message, localIdentity string) {
	msg.Append(diam.NewAVP(diam.AVPRouteRecord, 0, true, models_base.DiameterIdentity(localIdentity)))
}

// selectRoute walks routes — pre-sorted priority ascending, ties broken
// by specificity — and returns the first match's pool id.
func selectRoute(routes []RouteRule, msg *diam.Message, dict *diam.Dictionary) (string, bool) {
	for _, r := range routes {
		if r.Match.Matches(msg, dict) {
			return r.PoolID, true
		}
	}
	return "", false
}

// buildError constructs a locally-synthesized answer for a request the
// router could not route or deliver: same command/application id, the
// request's hop-by-hop and end-to-end ids (so the original sender can
// match it), and the VR's own identity as Origin-Host/-Realm.
func buildError(req *diam.Message, vr VRMeta, resultCode uint32, errMsg string) *diam.Message {
	ans := &diam.Message{
		Header: diam.HeaderFor(req.Header.CommandCode, req.Header.ApplicationID, req.Header.HopByHopID, req.Header.EndToEndID),
	}
	if sid := req.First(diam.AVPSessionId, 0); sid != nil {
		ans.Append(diam.NewAVP(diam.AVPSessionId, 0, true, models_base.UTF8String(string(sid.Payload))))
	}
	ans.Append(diam.NewAVP(diam.AVPResultCode, 0, true, models_base.Unsigned32(resultCode)))
	ans.Append(diam.NewAVP(diam.AVPOriginHost, 0, true, models_base.DiameterIdentity(vr.OriginHost)))
	ans.Append(diam.NewAVP(diam.AVPOriginRealm, 0, true, models_base.DiameterIdentity(vr.OriginRealm)))
	if errMsg != "" {
		ans.Append(diam.NewAVP(diam.AVPErrorMessage, 0, false, models_base.UTF8String(errMsg)))
	}
	return ans
}
