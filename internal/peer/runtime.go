package peer

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/vex-telecom/dsc/commands/base"
	"github.com/vex-telecom/dsc/models_base"
	"github.com/vex-telecom/dsc/pkg/connection"
	"github.com/vex-telecom/dsc/pkg/logger"
)

// RuntimeConfig holds everything the driver needs beyond the pure FSM:
// dial target (client role), local identity, and the watchdog/backoff
// timing from §4.2's per-peer configuration.
type RuntimeConfig struct {
	FSM          Config
	PeerHost     string // the remote peer's Diameter identity
	Transport    string // "tcp" (default) or "sctp"
	DialAddress  string // "host:port"; used only for RoleClient
	DialTimeout  time.Duration
	Watchdog     time.Duration
	WatchdogWait time.Duration // DWA / DPA response wait
	Backoff      BackoffConfig
	Identity     Identity
	VRIDs        []string

	// OnData receives the raw bytes of any message on this peer's
	// connection that is not one of CER/CEA/DWR/DWA/DPR/DPA. The FSM
	// never sees these — peer-management and data traffic are two
	// disjoint layers sharing one TCP connection (§1), and only
	// Frontline's Core Router dispatch cares about the latter.
	OnData func(raw []byte)
}

// Runtime drives one peer's FSM: it owns the connection, performs the
// I/O each Step action describes, and is the single serialized consumer
// of that peer's events (§5: "Owned by a single driver task; events
// arrive via a bounded channel. No external locks; mutation is
// serialized by the task.").
type Runtime struct {
	cfg    RuntimeConfig
	notify func(Notification)
	log    logger.Logger

	snap Snapshot
	seq  Sequencer

	events chan Event
	attach chan connection.Conn
	done   chan struct{}

	connMu sync.Mutex
	conn   connection.Conn

	watchdogTimer *time.Timer
	attempt       int
	rng           *rand.Rand
}

// NewRuntime builds a Runtime in the Closed state. notify is called
// synchronously from the driver goroutine for every UP/DOWN transition;
// it must not block.
func NewRuntime(cfg RuntimeConfig, notify func(Notification), log logger.Logger) *Runtime {
	if log == nil {
		log = logger.Log
	}
	return &Runtime{
		cfg:    cfg,
		notify: notify,
		log:    log.With("peer_host", cfg.PeerHost),
		events: make(chan Event, 64),
		attach: make(chan connection.Conn, 1),
		done:   make(chan struct{}),
		rng:    rand.New(rand.NewSource(int64(len(cfg.PeerHost)) + 1)),
	}
}

// Attach hands the runtime an already-accepted connection, used for
// RoleServer peers where Frontline's listener performs the accept and
// the peer agent only takes over once it knows which peer this is.
func (r *Runtime) Attach(c connection.Conn) {
	select {
	case r.attach <- c:
	case <-r.done:
	}
}

// Disconnect requests a graceful shutdown (DisconnectRequest event).
func (r *Runtime) Disconnect() { r.deliver(Event{Kind: DisconnectRequest}) }

// Deliver feeds an inbound message classification to the FSM. The
// caller (the connection's reader loop) does the cheap header peek;
// the runtime does the rest.
func (r *Runtime) Deliver(ev Event) { r.deliver(ev) }

// State returns the current FSM state, for health/metrics reporting.
func (r *Runtime) State() State { return r.snap.State }

// Conn returns the runtime's current connection, or nil if none is
// attached. Frontline uses this to write data-plane bytes onto the
// same socket the FSM writes watchdog traffic on; connection.Conn's
// Write is safe for concurrent use.
func (r *Runtime) Conn() connection.Conn {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	return r.conn
}

func (r *Runtime) deliver(ev Event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

// Run is the driver loop: one goroutine, serializing every FSM
// transition and the I/O its actions trigger. It returns when ctx is
// cancelled.
func (r *Runtime) Run(ctx context.Context) {
	defer close(r.done)
	r.apply(Event{Kind: Start})

	for {
		select {
		case <-ctx.Done():
			r.closeConn()
			return
		case c := <-r.attach:
			r.connMu.Lock()
			r.conn = c
			r.connMu.Unlock()
			go r.readLoop(c)
			r.apply(Event{Kind: ConnectionUp})
		case ev := <-r.events:
			r.apply(ev)
		}
	}
}

func (r *Runtime) apply(ev Event) {
	newSnap, actions := Step(r.cfg.FSM, r.snap, ev)
	r.snap = newSnap
	for _, a := range actions {
		r.execute(a)
	}
}

func (r *Runtime) execute(a Action) {
	switch a.Kind {
	case ActionConnectToPeer:
		go r.dial()
	case ActionDisconnectPeer:
		r.closeConn()
	case ActionSendCER:
		r.sendCER()
	case ActionSendCEA:
		r.sendCEA(a.ResultCode)
	case ActionSendDWR:
		r.sendDWR()
		r.resetWatchdog(r.cfg.WatchdogWait)
	case ActionSendDWA:
		r.sendDWA(a.ResultCode)
	case ActionSendDPR:
		r.sendDPR()
		r.resetWatchdog(r.cfg.WatchdogWait)
	case ActionSendDPA:
		r.sendDPA(a.ResultCode)
	case ActionResetWatchdogTimer:
		r.resetWatchdog(r.cfg.Watchdog)
	case ActionScheduleRetry:
		r.scheduleRetry()
	case ActionNotifyFrontlineUp:
		r.attempt = 0
		r.emit(NotifyUp)
	case ActionNotifyFrontlineDown:
		r.emit(NotifyDown)
	case ActionLog:
		r.log.Debugw(a.Detail)
	}
}

func (r *Runtime) emit(kind NotificationKind) {
	if r.notify == nil {
		return
	}
	r.notify(Notification{
		PeerHost:      r.cfg.PeerHost,
		Kind:          kind,
		AffectedVRIDs: r.cfg.VRIDs,
		Sequence:      r.seq.Next(),
	})
}

// dialTransport dials addr over the requested transport. SCTP has no
// net.DialTimeout equivalent in golang.org/x/sys/unix's raw connect(2)
// path, so the timeout there is enforced by racing the connect against
// time.After; a connection that completes after the timeout is closed
// as soon as it arrives.
func dialTransport(transport, addr string, timeout time.Duration) (net.Conn, error) {
	if transport != "sctp" {
		return net.DialTimeout("tcp", addr, timeout)
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := connection.DialSCTP(host, port)
		ch <- result{c, err}
	}()
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-time.After(timeout):
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, fmt.Errorf("peer: sctp dial %s: timed out after %s", addr, timeout)
	}
}

func (r *Runtime) dial() {
	timeout := r.cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	nc, err := dialTransport(r.cfg.Transport, r.cfg.DialAddress, timeout)
	if err != nil {
		r.log.Warnw("dial failed", "error", err)
		r.deliver(Event{Kind: ConnectionFailed})
		return
	}
	c := connection.NewConn(nc, connection.DefaultConnectionConfig())
	r.connMu.Lock()
	r.conn = c
	r.connMu.Unlock()
	go r.readLoop(c)
	r.deliver(Event{Kind: ConnectionUp})
}

func (r *Runtime) readLoop(c connection.Conn) {
	for {
		msg, err := connection.ReadMessage(c.Connection())
		if err != nil {
			r.deliver(Event{Kind: ConnectionFailed})
			return
		}
		raw := append(append([]byte{}, msg.Header...), msg.Body...)
		if !isPeerManagement(raw) {
			if r.cfg.OnData != nil {
				r.cfg.OnData(raw)
			}
			continue
		}
		r.deliver(classify(raw))
	}
}

// isPeerManagement reports whether raw carries one of the three
// connection-lifecycle commands the FSM owns. Everything else is data
// traffic and bypasses the FSM entirely. The command code itself is
// pulled via connection.ParseCommand rather than re-deriving the header
// offsets here.
func isPeerManagement(raw []byte) bool {
	cmd, err := connection.ParseCommand(raw)
	if err != nil {
		return false
	}
	switch uint32(cmd.Code) {
	case base.CodeCapabilitiesExchange, base.CodeDeviceWatchdog, base.CodeDisconnectPeer:
		return true
	default:
		return false
	}
}

// classify peeks the command code and, for CEA, the Result-Code, to
// build the MessageReceived event the FSM needs. Callers must already
// know raw isPeerManagement.
func classify(raw []byte) Event {
	cmd, err := connection.ParseCommand(raw)
	if err != nil {
		return Event{Kind: MessageReceived, MsgKind: MsgUnknown}
	}
	isRequest := cmd.IsRequest
	code := uint32(cmd.Code)

	switch code {
	case base.CodeCapabilitiesExchange:
		if isRequest {
			return Event{Kind: MessageReceived, MsgKind: MsgCER}
		}
		cea := &base.CapabilitiesExchangeAnswer{}
		if err := cea.Unmarshal(raw); err != nil {
			return Event{Kind: MessageReceived, MsgKind: MsgUnknown}
		}
		return Event{Kind: MessageReceived, MsgKind: MsgCEA, ResultCode: uint32(cea.ResultCode)}
	case base.CodeDeviceWatchdog:
		if isRequest {
			return Event{Kind: MessageReceived, MsgKind: MsgDWR}
		}
		return Event{Kind: MessageReceived, MsgKind: MsgDWA}
	case base.CodeDisconnectPeer:
		if isRequest {
			return Event{Kind: MessageReceived, MsgKind: MsgDPR}
		}
		return Event{Kind: MessageReceived, MsgKind: MsgDPA}
	default:
		return Event{Kind: MessageReceived, MsgKind: MsgUnknown}
	}
}

func (r *Runtime) closeConn() {
	r.connMu.Lock()
	c := r.conn
	r.conn = nil
	r.connMu.Unlock()
	if c != nil {
		c.Close()
	}
	if r.watchdogTimer != nil {
		r.watchdogTimer.Stop()
	}
}

func (r *Runtime) write(b []byte) {
	r.connMu.Lock()
	c := r.conn
	r.connMu.Unlock()
	if c == nil {
		return
	}
	if _, err := c.Write(b); err != nil {
		r.log.Warnw("write failed", "error", err)
		r.deliver(Event{Kind: ConnectionFailed})
	}
}

func (r *Runtime) resetWatchdog(d time.Duration) {
	if d <= 0 {
		return
	}
	if r.watchdogTimer == nil {
		r.watchdogTimer = time.AfterFunc(d, func() { r.deliver(Event{Kind: WatchdogTimerExpiry}) })
		return
	}
	r.watchdogTimer.Reset(d)
}

func (r *Runtime) scheduleRetry() {
	r.attempt++
	d := nextDelay(r.cfg.Backoff, r.attempt, r.rng)
	time.AfterFunc(d, func() { r.deliver(Event{Kind: Start}) })
}

func (r *Runtime) identityAVPs() (models_base.DiameterIdentity, models_base.DiameterIdentity) {
	return models_base.DiameterIdentity(r.cfg.Identity.OriginHost), models_base.DiameterIdentity(r.cfg.Identity.OriginRealm)
}

func (r *Runtime) sendCER() {
	host, realm := r.identityAVPs()
	m := base.NewCapabilitiesExchangeRequest()
	m.OriginHost = host
	m.OriginRealm = realm
	m.HostIpAddress = r.cfg.Identity.HostIPAddresses
	m.VendorId = models_base.Unsigned32(r.cfg.Identity.VendorID)
	m.ProductName = models_base.UTF8String(r.cfg.Identity.ProductName)
	for _, id := range r.cfg.Identity.AuthApplicationID {
		m.AuthApplicationId = append(m.AuthApplicationId, models_base.Unsigned32(id))
	}
	for _, id := range r.cfg.Identity.AcctApplicationID {
		m.AcctApplicationId = append(m.AcctApplicationId, models_base.Unsigned32(id))
	}
	b, err := m.Marshal()
	if err != nil {
		r.log.Warnw("CER marshal failed", "error", err)
		return
	}
	r.write(b)
}

func (r *Runtime) sendCEA(resultCode uint32) {
	host, realm := r.identityAVPs()
	m := base.NewCapabilitiesExchangeAnswer()
	m.ResultCode = models_base.Unsigned32(resultCode)
	m.OriginHost = host
	m.OriginRealm = realm
	m.HostIpAddress = r.cfg.Identity.HostIPAddresses
	m.VendorId = models_base.Unsigned32(r.cfg.Identity.VendorID)
	m.ProductName = models_base.UTF8String(r.cfg.Identity.ProductName)
	b, err := m.Marshal()
	if err != nil {
		r.log.Warnw("CEA marshal failed", "error", err)
		return
	}
	r.write(b)
}

func (r *Runtime) sendDWR() {
	host, realm := r.identityAVPs()
	m := base.NewDeviceWatchdogRequest()
	m.OriginHost = host
	m.OriginRealm = realm
	b, err := m.Marshal()
	if err != nil {
		return
	}
	r.write(b)
}

func (r *Runtime) sendDWA(resultCode uint32) {
	host, realm := r.identityAVPs()
	m := base.NewDeviceWatchdogAnswer()
	m.ResultCode = models_base.Unsigned32(resultCode)
	m.OriginHost = host
	m.OriginRealm = realm
	b, err := m.Marshal()
	if err != nil {
		return
	}
	r.write(b)
}

func (r *Runtime) sendDPR() {
	host, realm := r.identityAVPs()
	m := base.NewDisconnectPeerRequest()
	m.OriginHost = host
	m.OriginRealm = realm
	m.DisconnectCause = models_base.Enumerated(0) // REBOOTING
	b, err := m.Marshal()
	if err != nil {
		return
	}
	r.write(b)
}

func (r *Runtime) sendDPA(resultCode uint32) {
	host, realm := r.identityAVPs()
	m := base.NewDisconnectPeerAnswer()
	m.ResultCode = models_base.Unsigned32(resultCode)
	m.OriginHost = host
	m.OriginRealm = realm
	b, err := m.Marshal()
	if err != nil {
		return
	}
	r.write(b)
}
