package config

import (
	"testing"
	"time"

	"github.com/vex-telecom/dsc/internal/transaction"
)

func validConfig() *Config {
	return &Config{
		Frontline: FrontlineConfig{
			ListenAddr:         "0.0.0.0:3868",
			MaxConnections:     1000,
			TransactionTimeout: 5 * time.Second,
			WheelResolution:    10 * time.Millisecond,
			WheelSlots:         6000,
			WheelWorkers:       4,
			TeardownPolicy:     "drop",
			DrainTimeout:       30 * time.Second,
			StreamBuffer:       256,
		},
		Peer: PeerConfig{
			DialTimeout:         5 * time.Second,
			WatchdogInterval:    30 * time.Second,
			WatchdogWait:        10 * time.Second,
			MaxWatchdogFailures: 3,
			ReconnectInitial:    time.Second,
			ReconnectMax:        30 * time.Second,
			ReconnectFactor:     2.0,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Enabled: true, Port: 9091, Path: "/metrics"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "empty listen addr", mutate: func(c *Config) { c.Frontline.ListenAddr = "" }, wantErr: true},
		{name: "zero max connections", mutate: func(c *Config) { c.Frontline.MaxConnections = 0 }, wantErr: true},
		{name: "negative transaction timeout", mutate: func(c *Config) { c.Frontline.TransactionTimeout = -1 }, wantErr: true},
		{name: "unknown teardown policy", mutate: func(c *Config) { c.Frontline.TeardownPolicy = "explode" }, wantErr: true},
		{name: "unknown transport", mutate: func(c *Config) { c.Frontline.Transport = "udp" }, wantErr: true},
		{name: "sctp transport is valid", mutate: func(c *Config) { c.Frontline.Transport = "sctp" }, wantErr: false},
		{name: "reconnect max below initial", mutate: func(c *Config) {
			c.Peer.ReconnectInitial = 10 * time.Second
			c.Peer.ReconnectMax = time.Second
		}, wantErr: true},
		{name: "reconnect factor below 1.0", mutate: func(c *Config) { c.Peer.ReconnectFactor = 0.5 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "metrics path missing leading slash", mutate: func(c *Config) { c.Metrics.Path = "metrics" }, wantErr: true},
		{name: "metrics disabled skips port/path checks", mutate: func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.Port = 0
			c.Metrics.Path = ""
		}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrontlineConfig_ToFrontlineConfig_MapsTeardownPolicy(t *testing.T) {
	c := validConfig()
	c.Frontline.TeardownPolicy = "synthesize_3002"
	got := c.Frontline.ToFrontlineConfig()
	if got.TeardownPolicy != transaction.TeardownSynthesize3002 {
		t.Fatalf("TeardownPolicy = %v, want TeardownSynthesize3002", got.TeardownPolicy)
	}
	if got.ListenAddress != c.Frontline.ListenAddr {
		t.Fatalf("ListenAddress = %q, want %q", got.ListenAddress, c.Frontline.ListenAddr)
	}
}

func TestPeerConfig_BackoffConfig(t *testing.T) {
	c := validConfig()
	bc := c.Peer.BackoffConfig()
	if bc.Initial != c.Peer.ReconnectInitial || bc.Max != c.Peer.ReconnectMax || bc.Factor != c.Peer.ReconnectFactor {
		t.Fatalf("BackoffConfig() = %+v, want fields copied from PeerConfig", bc)
	}
}
