package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vex-telecom/dsc/internal/config"
	"github.com/vex-telecom/dsc/internal/diam"
	"github.com/vex-telecom/dsc/internal/feeder"
	"github.com/vex-telecom/dsc/internal/frontline"
	"github.com/vex-telecom/dsc/internal/peer"
	"github.com/vex-telecom/dsc/internal/router"
	"github.com/vex-telecom/dsc/pkg/logger"
	"github.com/vex-telecom/dsc/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty to search standard paths)")
	originHost := flag.String("origin-host", "dsc.example.com", "Controller Origin-Host")
	originRealm := flag.String("origin-realm", "example.com", "Controller Origin-Realm")
	clientPeers := flag.String("client-peers", "", "Comma-separated host=addr pairs to dial as RoleClient peers (e.g. hss01=10.0.0.1:3868)")
	serverPeers := flag.String("server-peers", "", "Comma-separated host identities expected to connect as RoleServer peers (e.g. mme01,mme02)")
	vrID := flag.String("vr-id", "vr1", "Virtual Router id every listed peer belongs to")
	transport := flag.String("transport", "", "Override the configured transport for the listener and outbound dials (tcp or sctp)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *transport != "" {
		cfg.Frontline.Transport = *transport
	}
	logger.SetLevel(cfg.Logging.Level)
	log := logger.Log

	log.Infow("starting controller", "listen", cfg.Frontline.ListenAddr, "vr_id", *vrID)

	registry := router.NewRegistry()
	dict := diam.NewBaseDictionary()
	metricsReg := metrics.New()

	fl := frontline.New(cfg.Frontline.ToFrontlineConfig(), registry, dict, log)
	fd := feeder.New(registry, dict, metricsReg, log)
	defer fd.Close()

	identity := peer.Identity{OriginHost: *originHost, OriginRealm: *originRealm, ProductName: "dsc", VendorID: 10415}

	if err := installBootstrapSnapshot(fd, *vrID, *originHost, *originRealm, *clientPeers, *serverPeers); err != nil {
		log.Errorw("bootstrap config snapshot rejected", "error", err)
		os.Exit(1)
	}

	if err := attachPeers(fl, cfg, identity, *vrID, *clientPeers, *serverPeers); err != nil {
		log.Errorw("attaching configured peers", "error", err)
		os.Exit(1)
	}

	if err := fl.Start(); err != nil {
		log.Errorw("starting frontline", "error", err)
		os.Exit(1)
	}
	log.Infow("frontline started", "address", cfg.Frontline.ListenAddr)

	var httpServer *http.Server
	if cfg.Metrics.Enabled {
		httpServer = startMetricsServer(cfg, metricsReg, fl, log)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Infow("shutdown signal received, draining")
	if err := fl.Stop(); err != nil {
		log.Errorw("error during frontline shutdown", "error", err)
	}
	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctx)
	}
	log.Infow("controller stopped")
}

// installBootstrapSnapshot publishes a single default-route snapshot
// sending every configured peer's VR to a flat round-robin pool, so the
// controller is immediately routable without a management-service push.
// A real deployment replaces this with pushes to the Config Feeder's
// RPC endpoint (§6); this CLI-driven path exists for standalone runs.
func installBootstrapSnapshot(fd *feeder.Feeder, vrID, originHost, originRealm, clientPeers, serverPeers string) error {
	var peers []router.PeerRef
	for _, host := range splitHosts(clientPeers) {
		peers = append(peers, router.PeerRef{Host: host})
	}
	for _, host := range splitHosts(serverPeers) {
		peers = append(peers, router.PeerRef{Host: host})
	}
	if len(peers) == 0 {
		return nil
	}

	snap := &feeder.Snapshot{
		VR: router.VRMeta{VRID: vrID, LocalIdentity: originHost, OriginHost: originHost, OriginRealm: originRealm},
		Pools: []feeder.PoolInput{
			{ID: "default", Strategy: router.RoundRobin, Peers: peers},
		},
		Routes: []feeder.RouteInput{
			{Priority: 1, Match: router.MatchSpec{Kind: router.MatchDefault}, PoolID: "default"},
		},
	}
	return fd.Install(snap)
}

// attachPeers builds and registers a peer.Runtime for every configured
// peer: RoleClient peers dial out immediately, RoleServer peers wait for
// Frontline's accept loop to resolve an inbound connection to them.
func attachPeers(fl *frontline.Frontline, cfg *config.Config, identity peer.Identity, vrID, clientPeers, serverPeers string) error {
	for _, kv := range strings.Split(clientPeers, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid --client-peers entry %q, want host=addr", kv)
		}
		host, addr := parts[0], parts[1]
		rt := peer.NewRuntime(peer.RuntimeConfig{
			FSM:          peer.Config{Role: peer.RoleClient, MaxWatchdogFailures: cfg.Peer.MaxWatchdogFailures},
			PeerHost:     host,
			Transport:    cfg.Frontline.Transport,
			DialAddress:  addr,
			DialTimeout:  cfg.Peer.DialTimeout,
			Watchdog:     cfg.Peer.WatchdogInterval,
			WatchdogWait: cfg.Peer.WatchdogWait,
			Backoff:      cfg.Peer.BackoffConfig(),
			Identity:     identity,
			VRIDs:        []string{vrID},
			OnData:       fl.DataHandler(host, vrID),
		}, fl.NotifyPeerTransition, logger.Log)
		fl.AddPeer(host, rt, peer.RoleClient, "", []string{vrID})
		go rt.Run(context.Background())
	}

	for _, host := range splitHosts(serverPeers) {
		rt := peer.NewRuntime(peer.RuntimeConfig{
			FSM:          peer.Config{Role: peer.RoleServer, MaxWatchdogFailures: cfg.Peer.MaxWatchdogFailures},
			PeerHost:     host,
			Watchdog:     cfg.Peer.WatchdogInterval,
			WatchdogWait: cfg.Peer.WatchdogWait,
			Identity:     identity,
			VRIDs:        []string{vrID},
			OnData:       fl.DataHandler(host, vrID),
		}, fl.NotifyPeerTransition, logger.Log)
		fl.AddPeer(host, rt, peer.RoleServer, "", []string{vrID})
		go rt.Run(context.Background())
	}
	return nil
}

func splitHosts(csv string) []string {
	var out []string
	for _, h := range strings.Split(csv, ",") {
		h = strings.TrimSpace(h)
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

// startMetricsServer mounts the Prometheus scrape endpoint and the
// readiness signal of §6 ("readiness flips to true after initial config
// is installed and at least one peer in each VR is Open, or VR-role is
// Server awaiting peers").
func startMetricsServer(cfg *config.Config, reg *metrics.Registry, fl *frontline.Frontline, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, reg.Handler())
	mux.HandleFunc("/healthz/ready", func(w http.ResponseWriter, r *http.Request) {
		ready := fl.Ready()
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"ready": ready})
	})

	srv := &http.Server{Addr: ":" + strconv.Itoa(cfg.Metrics.Port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("metrics server stopped", "error", err)
		}
	}()
	log.Infow("metrics/health server listening", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
	return srv
}
