package router

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/vex-telecom/dsc/internal/diam"
	"github.com/vex-telecom/dsc/models_base"
)

// Direction selects whether a ManipulationRule runs on the inbound or
// outbound leg of a message's traversal through the router.
type Direction int

const (
	Ingress Direction = iota
	Egress
)

// Operator combines a Condition's Matches.
type Operator int

const (
	And Operator = iota
	Or
)

// MatchTarget is what a Match inspects: a header field or an AVP.
type MatchTarget int

const (
	TargetHeader MatchTarget = iota
	TargetAVP
)

// MatchOp is the comparison a Match performs once it has a value.
type MatchOp int

const (
	OpEQ MatchOp = iota
	OpNE
	OpRegex
	OpExists
)

// Match is one leaf test against a header field or AVP value.
type Match struct {
	Target      MatchTarget
	HeaderField string // TargetHeader
	AVPCode     uint32 // TargetAVP
	VendorID    uint32 // TargetAVP
	Op          MatchOp
	Value       string // EQ / NE / Regex pattern

	regex *regexp.Regexp // compiled at install time for OpRegex
}

// Condition combines one or more Matches with a single Operator. An
// empty Condition always matches (an unconditional rule).
type Condition struct {
	Operator Operator
	Matches  []Match
}

func (c Condition) evaluate(msg *diam.Message, dict *diam.Dictionary) bool {
	if len(c.Matches) == 0 {
		return true
	}
	switch c.Operator {
	case Or:
		for _, m := range c.Matches {
			if m.evaluate(msg, dict) {
				return true
			}
		}
		return false
	default: // And
		for _, m := range c.Matches {
			if !m.evaluate(msg, dict) {
				return false
			}
		}
		return true
	}
}

func (m Match) evaluate(msg *diam.Message, dict *diam.Dictionary) bool {
	value, exists := m.lookup(msg, dict)
	switch m.Op {
	case OpExists:
		return exists
	case OpNE:
		return !(exists && value == m.Value)
	case OpRegex:
		// A regex match against a missing AVP is false, not an error.
		if !exists || m.regex == nil {
			return false
		}
		return m.regex.MatchString(value)
	default: // OpEQ
		return exists && value == m.Value
	}
}

func (m Match) lookup(msg *diam.Message, dict *diam.Dictionary) (string, bool) {
	if m.Target == TargetHeader {
		return msg.HeaderField(m.HeaderField)
	}
	a := msg.First(m.AVPCode, m.VendorID)
	if a == nil {
		return "", false
	}
	return a.StringValue(dict), true
}

// ActionKind is one of the five AVP-manipulation primitives.
type ActionKind int

const (
	ActionSetValue ActionKind = iota
	ActionAddAVP
	ActionDeleteAVP
	ActionRegexReplace
	ActionTopologyHide
)

// TopologyHideParams configures ActionTopologyHide: the operator's own
// host/realm are substituted for the real ones, and Route-Record AVPs
// added within the operator's own internal realm are stripped so an
// adjacent network never sees internal topology. HostAVPCode/RealmAVPCode
// select which AVP codes the replacement targets — defaulting to
// Origin-Host (264) and Origin-Realm (296) when left zero, but
// configurable per rule since topology-hiding can also target, e.g.,
// Destination-Host/Destination-Realm on egress.
type TopologyHideParams struct {
	HostAVPCode         uint32 // defaults to 264 (Origin-Host) when zero
	RealmAVPCode        uint32 // defaults to 296 (Origin-Realm) when zero
	ReplacementHost     string
	ReplacementRealm    string
	InternalRealmSuffix string // Route-Record entries ending in this are removed
	RemoveRouteRecord   bool
}

// RuleAction is one manipulation step; Kind selects which fields apply.
type RuleAction struct {
	Kind        ActionKind
	AVPCode     uint32
	VendorID    uint32
	Mandatory   bool
	Value       string // SET_VALUE / ADD_AVP
	Pattern     string // REGEX_REPLACE
	Replacement string // REGEX_REPLACE
	Topology    TopologyHideParams

	regex *regexp.Regexp // compiled at install time for REGEX_REPLACE
}

// ManipulationRule is one installable rewrite rule: if Condition matches,
// every Action runs against the message in order.
type ManipulationRule struct {
	RuleID    string
	Priority  uint32
	Direction Direction
	Condition Condition
	Actions   []RuleAction
}

// Compile resolves every regex in rule against cache, populating the
// unexported compiled fields Apply relies on. Must be called once at
// rule-install time, before the rule is placed in a ConfigSnapshot.
func Compile(rule *ManipulationRule, cache *RegexCache) error {
	for i := range rule.Condition.Matches {
		m := &rule.Condition.Matches[i]
		if m.Op != OpRegex {
			continue
		}
		re, err := cache.Compile(m.Value)
		if err != nil {
			return fmt.Errorf("rule %s: compile match pattern %q: %w", rule.RuleID, m.Value, err)
		}
		m.regex = re
	}
	for i := range rule.Actions {
		a := &rule.Actions[i]
		if a.Kind != ActionRegexReplace {
			continue
		}
		re, err := cache.Compile(a.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: compile replace pattern %q: %w", rule.RuleID, a.Pattern, err)
		}
		a.regex = re
	}
	return nil
}

// SortRules orders rules the way a ConfigSnapshot must store them:
// ascending priority, stable otherwise.
func SortRules(rules []ManipulationRule) {
	for i := 1; i < len(rules); i++ {
		for j := i; j > 0 && rules[j].Priority < rules[j-1].Priority; j-- {
			rules[j], rules[j-1] = rules[j-1], rules[j]
		}
	}
}

// Apply runs every matching rule against msg, in priority order, one
// pass. A rule's own actions are never re-evaluated against later rules
// in the same pass (§3: single-pass semantics, no fixpoint iteration).
func Apply(rules []ManipulationRule, msg *diam.Message, dict *diam.Dictionary) {
	for _, rule := range rules {
		if !rule.Condition.evaluate(msg, dict) {
			continue
		}
		for _, act := range rule.Actions {
			applyAction(act, msg, dict)
		}
	}
}

func applyAction(act RuleAction, msg *diam.Message, dict *diam.Dictionary) {
	switch act.Kind {
	case ActionSetValue:
		if v, err := encodeValue(act.AVPCode, act.VendorID, act.Value, dict); err == nil {
			msg.SetFirst(act.AVPCode, act.VendorID, act.Mandatory, v)
		}
	case ActionAddAVP:
		if v, err := encodeValue(act.AVPCode, act.VendorID, act.Value, dict); err == nil {
			msg.Append(diam.NewAVP(act.AVPCode, act.VendorID, act.Mandatory, v))
		}
	case ActionDeleteAVP:
		msg.DeleteAll(act.AVPCode, act.VendorID)
	case ActionRegexReplace:
		applyRegexReplace(act, msg, dict)
	case ActionTopologyHide:
		applyTopologyHide(act.Topology, msg, dict)
	}
}

func applyRegexReplace(act RuleAction, msg *diam.Message, dict *diam.Dictionary) {
	a := msg.First(act.AVPCode, act.VendorID)
	if a == nil || act.regex == nil {
		return
	}
	current := a.StringValue(dict)
	replaced := act.regex.ReplaceAllString(current, act.Replacement)
	if replaced == current {
		return
	}
	entry, _ := dict.Lookup(act.AVPCode, act.VendorID)
	a.SetValue(wrapString(entry.DataType, replaced))
}

func applyTopologyHide(p TopologyHideParams, msg *diam.Message, dict *diam.Dictionary) {
	hostCode := p.HostAVPCode
	if hostCode == 0 {
		hostCode = diam.AVPOriginHost
	}
	realmCode := p.RealmAVPCode
	if realmCode == 0 {
		realmCode = diam.AVPOriginRealm
	}
	if p.ReplacementHost != "" {
		msg.SetFirst(hostCode, 0, true, models_base.DiameterIdentity(p.ReplacementHost))
	}
	if p.ReplacementRealm != "" {
		msg.SetFirst(realmCode, 0, true, models_base.DiameterIdentity(p.ReplacementRealm))
	}
	if p.RemoveRouteRecord && p.InternalRealmSuffix != "" {
		suffix := strings.ToLower(p.InternalRealmSuffix)
		msg.DeleteWhere(diam.AVPRouteRecord, 0, dict, func(value string) bool {
			return strings.HasSuffix(strings.ToLower(value), suffix)
		})
	}
}

// wrapString re-encodes a rewritten string as the same AVP data type it
// was before, defaulting to OctetString when the dictionary has no
// entry or the type isn't a textual one.
func wrapString(t models_base.TypeID, s string) models_base.Type {
	switch t {
	case models_base.UTF8StringType:
		return models_base.UTF8String(s)
	case models_base.DiameterIdentityType:
		return models_base.DiameterIdentity(s)
	case models_base.DiameterURIType:
		return models_base.DiameterURI(s)
	default:
		return models_base.OctetString(s)
	}
}

// encodeValue parses a rule's string-form literal into the dictionary
// type for (code, vendor_id), falling back to raw OctetString for
// unrecognized or Grouped AVPs — SET_VALUE/ADD_AVP only ever target
// scalar AVPs in practice.
func encodeValue(code, vendorID uint32, value string, dict *diam.Dictionary) (models_base.Type, error) {
	entry, ok := dict.Lookup(code, vendorID)
	if !ok {
		return models_base.OctetString(value), nil
	}
	switch entry.DataType {
	case models_base.UTF8StringType:
		return models_base.UTF8String(value), nil
	case models_base.DiameterIdentityType:
		return models_base.DiameterIdentity(value), nil
	case models_base.DiameterURIType:
		return models_base.DiameterURI(value), nil
	case models_base.Unsigned32Type:
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("avp %d: %q is not a valid uint32: %w", code, value, err)
		}
		return models_base.Unsigned32(n), nil
	case models_base.Unsigned64Type:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("avp %d: %q is not a valid uint64: %w", code, value, err)
		}
		return models_base.Unsigned64(n), nil
	case models_base.Integer32Type:
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("avp %d: %q is not a valid int32: %w", code, value, err)
		}
		return models_base.Integer32(n), nil
	case models_base.Integer64Type:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("avp %d: %q is not a valid int64: %w", code, value, err)
		}
		return models_base.Integer64(n), nil
	case models_base.EnumeratedType:
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("avp %d: %q is not a valid enumerated value: %w", code, value, err)
		}
		return models_base.Enumerated(n), nil
	case models_base.AddressType:
		ip := net.ParseIP(value)
		if ip == nil {
			return nil, fmt.Errorf("avp %d: %q is not a valid IP address", code, value)
		}
		return models_base.Address(ip), nil
	default:
		return models_base.OctetString(value), nil
	}
}
