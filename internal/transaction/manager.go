package transaction

import (
	"sync/atomic"
	"time"

	"github.com/vex-telecom/dsc/internal/diam"
	"github.com/vex-telecom/dsc/models_base"
	"github.com/vex-telecom/dsc/pkg/logger"
	"github.com/vex-telecom/dsc/pkg/resultcode"
)

// VRIdentity supplies the Origin-Host/Origin-Realm a synthesized 3002
// answer should carry for a given VR, per its configuration.
type VRIdentity struct {
	OriginHost  string
	OriginRealm string
}

// IdentityLookup resolves a VR id to its identity at synthesis time, so
// the manager never needs to cache config it doesn't own.
type IdentityLookup func(vrID string) (VRIdentity, bool)

// Deliver sends a synthesized answer to the connection that owns a
// timed-out or torn-down transaction. Implemented by Frontline's
// transport layer.
type Deliver func(connectionID uint64, msg *diam.Message)

// TeardownPolicy controls what happens to outstanding transactions on a
// downstream connection that just closed (§9 Open Question: the spec
// leaves this underspecified and makes it a configuration knob).
type TeardownPolicy int

const (
	// TeardownDrop silently discards outstanding transactions, counting
	// them but not answering the originator.
	TeardownDrop TeardownPolicy = iota
	// TeardownSynthesize3002 synthesizes a 3002 answer back to each
	// transaction's originator, as if it had timed out immediately.
	TeardownSynthesize3002
)

// Manager ties the transaction Table and the timing Wheel together: it
// is the only thing that inserts, removes, or schedules transactions,
// so the "exactly one live timer per record" invariant (§3) holds by
// construction.
type Manager struct {
	table  *Table
	wheel  *Wheel
	lookup IdentityLookup
	deliver Deliver
	log    logger.Logger

	teardownPolicy TeardownPolicy

	discardedLateAnswers counter
	timeouts             counter
	teardownCounted      counter
}

type counter struct{ n atomic.Uint64 }

func (c *counter) inc() { c.n.Add(1) }

// NewManager builds a Manager. resolution/numSlots/workers size the
// underlying Wheel (§4.1: resolution ≤ 10ms, O(1) insert/cancel,
// millions of outstanding timers).
func NewManager(resolution time.Duration, numSlots uint32, workers int, lookup IdentityLookup, deliver Deliver, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Log
	}
	return &Manager{
		table:   NewTable(),
		wheel:   NewWheel(resolution, numSlots, workers),
		lookup:  lookup,
		deliver: deliver,
		log:     log,
	}
}

// SetTeardownPolicy changes how outstanding transactions on a torn-down
// downstream connection are resolved. Default is TeardownDrop per §9.
func (m *Manager) SetTeardownPolicy(p TeardownPolicy) { m.teardownPolicy = p }

// Begin records a newly forwarded request and arms its timeout. It
// returns false if the key is already in use (a reused hop-by-hop id
// within the connection — §4.1 "table insert collision").
func (m *Manager) Begin(r *Record, timeout time.Duration) bool {
	r.IngressTime = time.Now()
	if !m.table.Insert(r) {
		return false
	}
	key := r.Key
	r.TimerHandle = m.wheel.Schedule(key, timeout, func(k Key) { m.onExpire(k) })
	return true
}

// Complete matches an inbound answer against its transaction, cancels
// the timer, and removes the record. ok is false if no record exists
// for key (a late answer arriving after timeout, or a duplicate) — the
// caller must silently discard the answer and should count it.
func (m *Manager) Complete(key Key) (*Record, bool) {
	r, ok := m.table.Remove(key)
	if !ok {
		m.discardedLateAnswers.inc()
		return nil, false
	}
	m.wheel.Cancel(r.TimerHandle)
	return r, true
}

// onExpire runs on a wheel worker goroutine when a transaction's timer
// fires. If Complete already removed the record (the answer won the
// race), this is a no-op by construction: the record is simply absent.
func (m *Manager) onExpire(key Key) {
	r, ok := m.table.Remove(key)
	if !ok {
		return
	}
	m.timeouts.inc()
	m.reply3002(r, "request timed out")
}

// Teardown removes every record belonging to connID and, per the
// configured policy, either drops them or synthesizes 3002 answers back
// to their originators. Every removed timer is cancelled so it never
// fires against a reused key.
func (m *Manager) Teardown(connID uint64) {
	records := m.table.RemoveByConnection(connID)
	for _, r := range records {
		m.wheel.Cancel(r.TimerHandle)
		m.teardownCounted.inc()
		if m.teardownPolicy == TeardownSynthesize3002 {
			m.reply3002(r, "downstream connection closed")
		}
	}
}

// reply3002 builds and delivers the locally synthesized answer per
// §4.1: R cleared, E set, same command/app/end-to-end id, hop-by-hop id
// preserved, Result-Code 3002, identity AVPs from VR config.
func (m *Manager) reply3002(r *Record, errMsg string) {
	if m.deliver == nil {
		return
	}
	identity, ok := m.lookup(r.VRID)
	if !ok {
		m.log.Warnw("cannot synthesize 3002: unknown vr", "vr_id", r.VRID)
		return
	}

	msg := &diam.Message{
		Header: diam.HeaderFor(r.OriginalCommandCode, r.OriginalApplicationID, r.Key.HopByHopID, r.OriginalEndToEndID),
	}
	if r.SessionID != "" {
		msg.Append(diam.NewAVP(diam.AVPSessionId, 0, true, models_base.UTF8String(r.SessionID)))
	}
	msg.Append(diam.NewAVP(diam.AVPResultCode, 0, true, models_base.Unsigned32(resultcode.UnableToDeliver)))
	msg.Append(diam.NewAVP(diam.AVPOriginHost, 0, true, models_base.DiameterIdentity(identity.OriginHost)))
	msg.Append(diam.NewAVP(diam.AVPOriginRealm, 0, true, models_base.DiameterIdentity(identity.OriginRealm)))
	if errMsg != "" {
		msg.Append(diam.NewAVP(diam.AVPErrorMessage, 0, false, models_base.UTF8String(errMsg)))
	}

	m.deliver(r.SourceConnectionID, msg)
}

// Stats snapshots the manager's counters for metrics export.
type Stats struct {
	Outstanding          int
	Timeouts             uint64
	DiscardedLateAnswers uint64
	TeardownCounted      uint64
}

func (m *Manager) Stats() Stats {
	return Stats{
		Outstanding:          m.table.Len(),
		Timeouts:             m.timeouts.n.Load(),
		DiscardedLateAnswers: m.discardedLateAnswers.n.Load(),
		TeardownCounted:      m.teardownCounted.n.Load(),
	}
}

// Close stops the underlying scheduler. Outstanding records are
// abandoned, matching process-shutdown semantics; graceful drain is the
// caller's responsibility (§5).
func (m *Manager) Close() { m.wheel.Stop() }
