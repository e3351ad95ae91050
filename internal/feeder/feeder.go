// Package feeder implements the Config Feeder: it receives configuration
// snapshots from the external management service, validates them, and
// atomically installs them into the Core Router's Registry without
// stopping traffic (§2, §4.3's "hot configuration swap"). An invalid
// snapshot is rejected in full; the previously installed snapshot, if
// any, stays active (§7: "rejected at config-push time; the previous
// snapshot remains active").
package feeder

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/vex-telecom/dsc/internal/diam"
	"github.com/vex-telecom/dsc/internal/router"
	"github.com/vex-telecom/dsc/pkg/logger"
	"github.com/vex-telecom/dsc/pkg/metrics"
)

// RouteInput is the wire form of one RouteRule (§3, §6 "logically
// JSON/YAML").
type RouteInput struct {
	Priority uint32
	Match    router.MatchSpec
	PoolID   string
}

// PoolInput is the wire form of one Pool.
type PoolInput struct {
	ID       string
	Strategy router.Strategy
	Peers    []router.PeerRef
}

// RuleInput is the wire form of one ManipulationRule.
type RuleInput struct {
	RuleID    string
	Priority  uint32
	Direction router.Direction
	Condition router.Condition
	Actions   []router.RuleAction
}

// Snapshot is the wire form of one ConfigSnapshot push: everything the
// management service sends for a single VR in one atomic installation
// (§3's ConfigSnapshot bundle).
type Snapshot struct {
	VR     router.VRMeta
	Routes []RouteInput
	Pools  []PoolInput
	Rules  []RuleInput // both directions; split by Direction at install time
}

// Feeder validates incoming Snapshots and installs them into a
// router.Registry. One Feeder serves every VR; the RegexCache it owns is
// shared across VRs since patterns frequently repeat across tenants.
type Feeder struct {
	registry *router.Registry
	dict     *diam.Dictionary
	regexes  *router.RegexCache
	metrics  *metrics.Registry
	log      logger.Logger
}

// New builds a Feeder. metricsReg may be nil, in which case install/reject
// outcomes are not counted.
func New(registry *router.Registry, dict *diam.Dictionary, metricsReg *metrics.Registry, log logger.Logger) *Feeder {
	if log == nil {
		log = logger.Log
	}
	return &Feeder{
		registry: registry,
		dict:     dict,
		regexes:  router.NewRegexCache(),
		metrics:  metricsReg,
		log:      log,
	}
}

// Close releases the Feeder's background resources (the regex cache's
// eviction loop).
func (f *Feeder) Close() { f.regexes.Close() }

// Install validates in and, if valid, atomically publishes it as the
// current snapshot for in.VR.VRID. On validation failure, nothing is
// installed and the VR's previous snapshot (if any) remains active; the
// returned error aggregates every problem found, not just the first.
func (f *Feeder) Install(in *Snapshot) error {
	snap, err := f.build(in)
	if err != nil {
		if f.metrics != nil {
			f.metrics.ObserveConfigRejection(in.VR.VRID, err.Error())
		}
		f.log.Warnw("config snapshot rejected", "vr_id", in.VR.VRID, "error", err)
		return err
	}

	f.registry.Publish(snap)
	if f.metrics != nil {
		f.metrics.ObserveConfigInstall(in.VR.VRID)
	}
	f.log.Infow("config snapshot installed", "vr_id", in.VR.VRID,
		"routes", len(snap.Routes), "pools", len(snap.Pools),
		"ingress_rules", len(snap.IngressRules), "egress_rules", len(snap.EgressRules))
	return nil
}

// build validates in in full, aggregating every error found via multierr
// rather than stopping at the first, then constructs the ConfigSnapshot.
// It never mutates the Registry.
func (f *Feeder) build(in *Snapshot) (*router.ConfigSnapshot, error) {
	var errs error

	if in.VR.VRID == "" {
		errs = multierr.Append(errs, fmt.Errorf("vr_meta.vr_id is required"))
	}
	if in.VR.OriginHost == "" {
		errs = multierr.Append(errs, fmt.Errorf("vr_meta.origin_host is required"))
	}
	if in.VR.OriginRealm == "" {
		errs = multierr.Append(errs, fmt.Errorf("vr_meta.origin_realm is required"))
	}

	pools := make(map[string]*router.Pool, len(in.Pools))
	for i, p := range in.Pools {
		if p.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("pools[%d]: id is required", i))
			continue
		}
		if len(p.Peers) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("pool %q: at least one peer is required", p.ID))
			continue
		}
		if _, dup := pools[p.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("pool %q: duplicate pool id", p.ID))
			continue
		}
		pools[p.ID] = &router.Pool{ID: p.ID, Strategy: p.Strategy, Peers: p.Peers}
	}

	routes := make([]router.RouteRule, 0, len(in.Routes))
	for i, r := range in.Routes {
		if r.PoolID == "" {
			errs = multierr.Append(errs, fmt.Errorf("routes[%d]: pool_id is required", i))
			continue
		}
		if _, ok := pools[r.PoolID]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("routes[%d]: references unknown pool %q", i, r.PoolID))
			continue
		}
		routes = append(routes, router.RouteRule{Priority: r.Priority, Match: r.Match, PoolID: r.PoolID})
	}

	var ingress, egress []router.ManipulationRule
	for i, r := range in.Rules {
		rule := router.ManipulationRule{
			RuleID:    r.RuleID,
			Priority:  r.Priority,
			Direction: r.Direction,
			Condition: r.Condition,
			Actions:   r.Actions,
		}
		if err := f.validateRuleAVPs(&rule); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("rules[%d] (%s): %w", i, r.RuleID, err))
			continue
		}
		if err := router.Compile(&rule, f.regexes); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("rules[%d] (%s): %w", i, r.RuleID, err))
			continue
		}
		switch rule.Direction {
		case router.Ingress:
			ingress = append(ingress, rule)
		case router.Egress:
			egress = append(egress, rule)
		}
	}

	if errs != nil {
		return nil, errs
	}

	router.SortRoutes(routes)
	router.SortRules(ingress)
	router.SortRules(egress)

	return &router.ConfigSnapshot{
		VR:           in.VR,
		Routes:       routes,
		Pools:        pools,
		IngressRules: ingress,
		EgressRules:  egress,
	}, nil
}

// validateRuleAVPs rejects a rule that references an AVP code/vendor-id
// pair absent from the dictionary — a config-time catch for the
// "unknown AVP code" error kind of §7, rather than discovering it the
// first time the rule runs against live traffic.
func (f *Feeder) validateRuleAVPs(rule *router.ManipulationRule) error {
	var errs error
	for _, m := range rule.Condition.Matches {
		if m.Target != router.TargetAVP {
			continue
		}
		if _, ok := f.dict.Lookup(m.AVPCode, m.VendorID); !ok {
			errs = multierr.Append(errs, fmt.Errorf("condition references unknown avp %d/%d", m.AVPCode, m.VendorID))
		}
	}
	for _, a := range rule.Actions {
		if a.Kind == router.ActionTopologyHide {
			continue
		}
		if _, ok := f.dict.Lookup(a.AVPCode, a.VendorID); !ok {
			errs = multierr.Append(errs, fmt.Errorf("action references unknown avp %d/%d", a.AVPCode, a.VendorID))
		}
	}
	return errs
}
