// Package frontline is the ingress/egress transport and transaction
// boundary component (§4.1): it owns the bytes on the wire for every
// peer connection, tracks outstanding transactions, and hands every
// non-peer-management message to the Core Router over an in-process
// internal/rpc.Stream, then carries out whatever action comes back.
//
// Peer connection *lifecycle* (CER/CEA/DWR/DWA/DPR/DPA, reconnect,
// watchdog) belongs entirely to internal/peer.Runtime; Frontline never
// touches that state machine directly, only its UP/DOWN notifications
// (§4's component layering). Frontline's own job is strictly: accept
// sockets for server-role peers, classify and route data traffic, and
// apply the Core Router's forwarding decisions.
package frontline

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vex-telecom/dsc/internal/diam"
	"github.com/vex-telecom/dsc/internal/peer"
	"github.com/vex-telecom/dsc/internal/router"
	"github.com/vex-telecom/dsc/internal/rpc"
	"github.com/vex-telecom/dsc/internal/transaction"
	"github.com/vex-telecom/dsc/models_base"
	"github.com/vex-telecom/dsc/pkg/connection"
	"github.com/vex-telecom/dsc/pkg/logger"
	"github.com/vex-telecom/dsc/pkg/resultcode"
)

// Config is Frontline's static process configuration (§10.3). Per-VR
// routing and manipulation configuration lives in a
// router.ConfigSnapshot, installed separately by the Config Feeder and
// hot-swapped through a router.Registry.
type Config struct {
	ListenAddress      string
	Transport          string // "tcp" (default) or "sctp"
	SCTPMultihomeAddrs []string // additional local addresses bound for SCTP multi-homing; ListenAddress's host is always the primary
	MaxConnections     int
	TransactionTimeout time.Duration
	WheelResolution    time.Duration
	WheelSlots         uint32
	WheelWorkers       int
	TeardownPolicy     transaction.TeardownPolicy
	DrainTimeout       time.Duration // §5 graceful shutdown budget
	StreamBuffer       int
	MessageBufferBytes int // size of pkg/connection's pooled read buffer; 0 keeps its built-in default
}

// DefaultConfig returns production-sane defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddress:      "0.0.0.0:3868",
		MaxConnections:     1000,
		TransactionTimeout: 5 * time.Second,
		WheelResolution:    10 * time.Millisecond,
		WheelSlots:         6000,
		WheelWorkers:       4,
		TeardownPolicy:     transaction.TeardownDrop,
		DrainTimeout:       30 * time.Second,
		StreamBuffer:       256,
		MessageBufferBytes: 4096,
	}
}

type peerEntry struct {
	host    string
	runtime *peer.Runtime
	role    peer.Role
	vrIDs   []string
	connID  uint64
}

// Frontline ties internal/peer, internal/router and internal/transaction
// together into the running ingress/egress path.
type Frontline struct {
	cfg      Config
	registry *router.Registry
	dict     *diam.Dictionary
	tx       *transaction.Manager
	stream   *rpc.Stream
	log      logger.Logger
	gate     *peer.SequenceGate

	listener net.Listener

	mu          sync.RWMutex
	peers       map[string]*peerEntry // by peer host
	connPeer    map[uint64]string     // logical connection id -> peer host
	acceptMap   map[string]string     // remote IP -> peer host, static provisioning
	openPeers   map[string]bool
	outstanding map[string]*atomic.Int64
	nextConnID  atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Frontline bound to a config registry and AVP dictionary.
// It does not start listening or processing until Start is called.
func New(cfg Config, registry *router.Registry, dict *diam.Dictionary, log logger.Logger) *Frontline {
	if log == nil {
		log = logger.Log
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &Frontline{
		cfg:         cfg,
		registry:    registry,
		dict:        dict,
		stream:      rpc.NewStream(cfg.StreamBuffer),
		log:         log,
		gate:        peer.NewSequenceGate(),
		peers:       make(map[string]*peerEntry),
		connPeer:    make(map[uint64]string),
		acceptMap:   make(map[string]string),
		openPeers:   make(map[string]bool),
		outstanding: make(map[string]*atomic.Int64),
		ctx:         ctx,
		cancel:      cancel,
	}
	f.tx = transaction.NewManager(cfg.WheelResolution, cfg.WheelSlots, cfg.WheelWorkers, f.lookupIdentity, f.deliverSynthesized, log)
	f.tx.SetTeardownPolicy(cfg.TeardownPolicy)
	return f
}

// AddPeer registers a peer.Runtime this Frontline will route data
// traffic to and from. remoteAddr is the peer's provisioned IP (without
// port); it is only consulted for RoleServer peers, whose identity
// cannot be known until they connect. The returned connection id is the
// stable logical identifier used in the RPC contract's connection_id
// field and in transaction.Record.SourceConnectionID — it is assigned
// once per configured peer, not per TCP connection, so reconnects never
// orphan outstanding transactions or metrics.
func (f *Frontline) AddPeer(host string, rt *peer.Runtime, role peer.Role, remoteAddr string, vrIDs []string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextConnID.Add(1)
	f.peers[host] = &peerEntry{host: host, runtime: rt, role: role, vrIDs: vrIDs, connID: id}
	f.connPeer[id] = host
	if remoteAddr != "" {
		f.acceptMap[remoteAddr] = host
	}
	f.outstanding[host] = &atomic.Int64{}
	return id
}

// NotifyPeerTransition is the Peer Agent's unary UP/DOWN boundary into
// Frontline (§4.2): it is the only way openPeers is mutated, so Frontline
// never peeks at a peer.Runtime's FSM state directly.
func (f *Frontline) NotifyPeerTransition(n peer.Notification) {
	if !f.gate.Accept(n) {
		return
	}
	f.mu.Lock()
	switch n.Kind {
	case peer.NotifyUp:
		f.openPeers[n.PeerHost] = true
	case peer.NotifyDown:
		f.openPeers[n.PeerHost] = false
	}
	entry := f.peers[n.PeerHost]
	f.mu.Unlock()

	if n.Kind == peer.NotifyDown && entry != nil {
		f.tx.Teardown(entry.connID)
	}
}

// IsOpen implements router.LivenessView.
func (f *Frontline) IsOpen(host string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.openPeers[host]
}

// Outstanding implements router.LoadView.
func (f *Frontline) Outstanding(host string) int {
	f.mu.RLock()
	c := f.outstanding[host]
	f.mu.RUnlock()
	if c == nil {
		return 0
	}
	return int(c.Load())
}

// Ready reports whether Frontline has configuration installed and, for
// every configured VR, either has an Open peer or is a server-role VR
// (every one of its peers is server-role) still waiting for an inbound
// connection (§6).
func (f *Frontline) Ready() bool {
	vrIDs := f.registry.VRIDs()
	if len(vrIDs) == 0 {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, vrID := range vrIDs {
		open, members, servers := false, 0, 0
		for _, entry := range f.peers {
			if !containsVR(entry.vrIDs, vrID) {
				continue
			}
			members++
			if entry.role == peer.RoleServer {
				servers++
			}
			if f.openPeers[entry.host] {
				open = true
			}
		}
		if !open && (members == 0 || servers != members) {
			return false
		}
	}
	return true
}

func containsVR(vrIDs []string, target string) bool {
	for _, v := range vrIDs {
		if v == target {
			return true
		}
	}
	return false
}

func (f *Frontline) lookupIdentity(vrID string) (transaction.VRIdentity, bool) {
	snap, ok := f.registry.Load(vrID)
	if !ok {
		return transaction.VRIdentity{}, false
	}
	return transaction.VRIdentity{OriginHost: snap.VR.OriginHost, OriginRealm: snap.VR.OriginRealm}, true
}

func (f *Frontline) deliverSynthesized(connID uint64, msg *diam.Message) {
	f.mu.RLock()
	host, ok := f.connPeer[connID]
	var entry *peerEntry
	if ok {
		entry = f.peers[host]
	}
	f.mu.RUnlock()
	if entry == nil {
		return
	}
	if c := entry.runtime.Conn(); c != nil {
		_, _ = c.Write(msg.Marshal())
	}
}

// rejectFromDownPeer handles traffic arriving on a connection whose peer
// has not reached Open for this host — still negotiating CER/CEA, or
// already gone DOWN while a buffered read completes on the same socket
// (§4.1 Ingress step 2: a source peer not registered UP for the VR is
// rejected with Result-Code 3010 or silently dropped, per policy). The
// same teardown-policy knob that governs outstanding-transaction
// teardown decides which: TeardownDrop discards silently, counted only
// by the warning log; TeardownSynthesize3002 answers requests with
// UnableToComply.
func (f *Frontline) rejectFromDownPeer(host, vrID string, connID uint64, msg *diam.Message) {
	f.log.Warnw("discarding traffic from peer not open", "peer_host", host, "vr_id", vrID)
	if f.cfg.TeardownPolicy != transaction.TeardownSynthesize3002 || !msg.IsRequest() {
		return
	}
	identity, ok := f.lookupIdentity(vrID)
	if !ok {
		return
	}
	answer := &diam.Message{Header: diam.HeaderFor(msg.Header.CommandCode, msg.Header.ApplicationID, msg.Header.HopByHopID, msg.Header.EndToEndID)}
	if sid := msg.First(diam.AVPSessionId, 0); sid != nil {
		answer.Append(diam.NewAVP(diam.AVPSessionId, 0, true, models_base.UTF8String(sid.StringValue(f.dict))))
	}
	answer.Append(diam.NewAVP(diam.AVPResultCode, 0, true, models_base.Unsigned32(resultcode.UnableToComply)))
	answer.Append(diam.NewAVP(diam.AVPOriginHost, 0, true, models_base.DiameterIdentity(identity.OriginHost)))
	answer.Append(diam.NewAVP(diam.AVPOriginRealm, 0, true, models_base.DiameterIdentity(identity.OriginRealm)))
	f.deliverSynthesized(connID, answer)
}

// Start binds the listener (only needed for RoleServer peers) and spins
// up the Core Router consumer and dispatch loops.
func (f *Frontline) Start() error {
	connection.SetBufferPoolSize(f.cfg.MessageBufferBytes)
	if f.cfg.ListenAddress != "" {
		l, err := f.listen()
		if err != nil {
			return fmt.Errorf("frontline: listen %s: %w", f.cfg.ListenAddress, err)
		}
		f.listener = l
		f.log.Infow("frontline listening", "address", f.cfg.ListenAddress)
		f.wg.Add(1)
		go f.acceptLoop()
	}
	f.wg.Add(1)
	go f.routeLoop()
	f.wg.Add(1)
	go f.dispatchLoop()
	return nil
}

// listen opens the configured listener, dispatching to an SCTP
// listener with multi-homed bind addresses when the process config
// asks for it, or an ordinary TCP listener otherwise.
func (f *Frontline) listen() (net.Listener, error) {
	if f.cfg.Transport != "sctp" {
		return net.Listen("tcp", f.cfg.ListenAddress)
	}
	host, portStr, err := net.SplitHostPort(f.cfg.ListenAddress)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	addrs := append([]string{host}, f.cfg.SCTPMultihomeAddrs...)
	return connection.ListenSCTP(addrs, port)
}

func (f *Frontline) acceptLoop() {
	defer f.wg.Done()
	for {
		raw, err := f.listener.Accept()
		if err != nil {
			select {
			case <-f.ctx.Done():
				return
			default:
				f.log.Warnw("accept failed", "error", err)
				continue
			}
		}
		if f.activeConnections() >= f.cfg.MaxConnections {
			f.log.Warnw("rejecting connection: at capacity", "remote", raw.RemoteAddr())
			raw.Close()
			continue
		}
		host, entry := f.resolveAcceptedPeer(raw.RemoteAddr())
		if entry == nil {
			f.log.Warnw("rejecting connection from unprovisioned peer", "remote", raw.RemoteAddr(), "host", host)
			raw.Close()
			continue
		}
		c := connection.NewConn(raw, connection.DefaultConnectionConfig())
		entry.runtime.Attach(c)
	}
}

// activeConnections counts peers with a live socket attached, as a
// proxy for total open file descriptors under Frontline's control.
func (f *Frontline) activeConnections() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, e := range f.peers {
		if e.runtime.Conn() != nil {
			n++
		}
	}
	return n
}

func (f *Frontline) resolveAcceptedPeer(addr net.Addr) (string, *peerEntry) {
	ip, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		ip = addr.String()
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	host, ok := f.acceptMap[ip]
	if !ok {
		return ip, nil
	}
	return host, f.peers[host]
}

// DataHandler returns the closure to install as a peer.Runtime's
// RuntimeConfig.OnData for the named peer, before that Runtime is
// constructed. It resolves the peer's logical connection id lazily at
// call time, so it can be built before AddPeer has registered the
// Runtime it will end up driving.
func (f *Frontline) DataHandler(host, vrID string) func([]byte) {
	return func(raw []byte) {
		f.mu.RLock()
		entry := f.peers[host]
		f.mu.RUnlock()
		var connID uint64
		if entry != nil {
			connID = entry.connID
		}
		f.handleInbound(host, vrID, connID, raw)
	}
}

// handleInbound runs on a peer's own read-loop goroutine for every
// message that is not peer-management traffic.
func (f *Frontline) handleInbound(host string, vrID string, connID uint64, raw []byte) {
	msg, err := diam.Unmarshal(raw)
	if err != nil {
		f.log.Warnw("discarding unparseable message", "peer_host", host, "error", err)
		return
	}

	if !f.IsOpen(host) {
		f.rejectFromDownPeer(host, vrID, connID, msg)
		return
	}

	if !msg.IsRequest() {
		f.outstandingDec(host)
		key := transaction.Key{ConnectionID: connID, HopByHopID: msg.Header.HopByHopID}
		if _, ok := f.tx.Complete(key); !ok {
			// No record: either this answer is for a request this
			// Frontline itself synthesized a 3002 for already, or a
			// stray duplicate. Still worth forwarding to the Core
			// Router so egress manipulation rules still apply to it
			// on its way further upstream, if any route needs that.
		}
	}

	req := rpc.PacketRequest{
		ConnectionID:         connID,
		VRID:                 vrID,
		ReceptionTimestampNs: time.Now().UnixNano(),
		RawPayload:           raw,
		SessionTxID:          fmt.Sprintf("%d-%d", connID, msg.Header.HopByHopID),
	}

	if msg.IsRequest() {
		rec := &transaction.Record{
			Key:                   transaction.Key{ConnectionID: connID, HopByHopID: msg.Header.HopByHopID},
			SourceConnectionID:    connID,
			SourcePeerHost:        host,
			OriginalCommandCode:   msg.Header.CommandCode,
			OriginalApplicationID: msg.Header.ApplicationID,
			OriginalEndToEndID:    msg.Header.EndToEndID,
			VRID:                  vrID,
		}
		if sid := msg.First(diam.AVPSessionId, 0); sid != nil {
			rec.SessionID = sid.StringValue(f.dict)
		}
		if oh := msg.First(diam.AVPOriginHost, 0); oh != nil {
			rec.OriginHost = oh.StringValue(f.dict)
		}
		if or := msg.First(diam.AVPOriginRealm, 0); or != nil {
			rec.OriginRealm = or.StringValue(f.dict)
		}
		if !f.tx.Begin(rec, f.cfg.TransactionTimeout) {
			f.log.Warnw("duplicate hop-by-hop id on connection, dropping", "peer_host", host, "hop_by_hop", msg.Header.HopByHopID)
			return
		}
	}

	if err := f.stream.Send(f.ctx, req); err != nil {
		f.log.Warnw("stream send failed", "peer_host", host, "error", err)
	}
}

func (f *Frontline) outstandingInc(host string) {
	f.mu.RLock()
	c := f.outstanding[host]
	f.mu.RUnlock()
	if c != nil {
		c.Add(1)
	}
}

func (f *Frontline) outstandingDec(host string) {
	f.mu.RLock()
	c := f.outstanding[host]
	f.mu.RUnlock()
	if c != nil {
		c.Add(-1)
	}
}

// routeLoop is the Core Router's consumer: it drains PacketRequests,
// runs them through internal/router.Process against the VR's current
// snapshot, and replies with the forwarding decision.
func (f *Frontline) routeLoop() {
	defer f.wg.Done()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		req, err := f.stream.Recv(f.ctx)
		if err != nil {
			return
		}
		msg, err := diam.Unmarshal(req.RawPayload)
		if err != nil {
			f.log.Warnw("core router: unparseable payload", "error", err)
			continue
		}
		snap, ok := f.registry.Load(req.VRID)
		if !ok {
			_ = f.stream.Reply(f.ctx, rpc.PacketAction{Action: rpc.Discard, SessionTxID: req.SessionTxID})
			continue
		}

		out, action := router.Process(msg, snap, f.dict, f, f, rng)
		pa := rpc.PacketAction{
			SessionTxID:          req.SessionTxID,
			ResponsePayload:      out.Marshal(),
			OriginalConnectionID: req.ConnectionID,
		}
		switch action.Kind {
		case router.Forward:
			pa.Action = rpc.Forward
			pa.TargetHost = action.TargetHost
		case router.Reply:
			pa.Action = rpc.Reply
		default:
			pa.Action = rpc.Discard
		}
		_ = f.stream.Reply(f.ctx, pa)
	}
}

// dispatchLoop applies the Core Router's decisions: forwarding onward to
// a selected peer, replying to the original connection, or discarding.
func (f *Frontline) dispatchLoop() {
	defer f.wg.Done()
	for {
		action, err := f.stream.RecvAction(f.ctx)
		if err != nil {
			return
		}
		switch action.Action {
		case rpc.Forward:
			f.mu.RLock()
			entry := f.peers[action.TargetHost]
			f.mu.RUnlock()
			if entry == nil || entry.runtime.State() != peer.Open {
				f.log.Warnw("forward target unavailable", "peer_host", action.TargetHost)
				continue
			}
			if c := entry.runtime.Conn(); c != nil {
				if _, err := c.Write(action.ResponsePayload); err == nil {
					f.outstandingInc(action.TargetHost)
				}
			}
		case rpc.Reply:
			f.replyOriginal(action)
		case rpc.Discard:
		}
	}
}

func (f *Frontline) replyOriginal(action rpc.PacketAction) {
	f.mu.RLock()
	host, ok := f.connPeer[action.OriginalConnectionID]
	var entry *peerEntry
	if ok {
		entry = f.peers[host]
	}
	f.mu.RUnlock()
	if entry == nil {
		return
	}
	if c := entry.runtime.Conn(); c != nil {
		_, _ = c.Write(action.ResponsePayload)
	}
}

// Stop stops accepting new connections, waits up to DrainTimeout for
// outstanding transactions to clear, then tears down the stream and
// transaction manager. Peer connection teardown itself is driven by the
// owner cancelling each peer.Runtime's Run context (§5).
func (f *Frontline) Stop() error {
	if f.listener != nil {
		f.listener.Close()
	}

	deadline := time.Now().Add(f.cfg.DrainTimeout)
	for f.tx.Stats().Outstanding > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	f.cancel()
	f.stream.Close()
	f.tx.Close()
	f.wg.Wait()
	return nil
}
