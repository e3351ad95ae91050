// Package config loads the controller's static process configuration —
// listen addresses, timeouts, logging and metrics settings — the values
// fixed at startup and never hot-swapped (§10.3). This is distinct from
// router.ConfigSnapshot, which the Config Feeder installs at runtime
// without a restart (§7).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/vex-telecom/dsc/internal/frontline"
	"github.com/vex-telecom/dsc/internal/peer"
	"github.com/vex-telecom/dsc/internal/transaction"
)

// Config holds the application configuration.
type Config struct {
	Frontline FrontlineConfig
	Peer      PeerConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

// FrontlineConfig holds the transport/transaction boundary's tunables
// (§4.1).
type FrontlineConfig struct {
	ListenAddr         string
	Transport          string // "tcp" or "sctp"
	SCTPMultihomeAddrs []string
	MaxConnections     int
	TransactionTimeout time.Duration
	WheelResolution    time.Duration
	WheelSlots         uint32
	WheelWorkers       int
	TeardownPolicy     string // "drop" or "synthesize_3002"
	DrainTimeout       time.Duration
	StreamBuffer       int
	MessageBufferBytes int
}

// PeerConfig holds the per-peer liveness FSM's driver tunables (§4.2).
type PeerConfig struct {
	DialTimeout         time.Duration
	WatchdogInterval    time.Duration
	WatchdogWait        time.Duration
	MaxWatchdogFailures int
	ReconnectInitial    time.Duration
	ReconnectMax        time.Duration
	ReconnectFactor     float64
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json", "text"
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// Load loads configuration from file and environment variables.
// Priority order (highest to lowest):
// 1. Environment variables (prefixed with DSC_)
// 2. Config file specified by configPath
// 3. config.yaml in standard paths
// 4. config.default.yaml as fallback
// 5. Hardcoded defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/dsc")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("DSC")

	configFileRead := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			v.SetConfigName("config.default")
			if err := v.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					fmt.Println("Warning: No config file found, using defaults and environment variables")
				} else {
					return nil, fmt.Errorf("failed to read default config file: %w", err)
				}
			} else {
				configFileRead = true
			}
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileRead = true
	}

	if configFileRead {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("frontline.listenAddr", "0.0.0.0:3868")
	v.SetDefault("frontline.transport", "tcp")
	v.SetDefault("frontline.maxConnections", 1000)
	v.SetDefault("frontline.transactionTimeout", "5s")
	v.SetDefault("frontline.wheelResolution", "10ms")
	v.SetDefault("frontline.wheelSlots", 6000)
	v.SetDefault("frontline.wheelWorkers", 4)
	v.SetDefault("frontline.teardownPolicy", "drop")
	v.SetDefault("frontline.drainTimeout", "30s")
	v.SetDefault("frontline.streamBuffer", 256)
	v.SetDefault("frontline.messageBufferBytes", 4096)

	v.SetDefault("peer.dialTimeout", "5s")
	v.SetDefault("peer.watchdogInterval", "30s")
	v.SetDefault("peer.watchdogWait", "10s")
	v.SetDefault("peer.maxWatchdogFailures", 3)
	v.SetDefault("peer.reconnectInitial", "1s")
	v.SetDefault("peer.reconnectMax", "30s")
	v.SetDefault("peer.reconnectFactor", 2.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Frontline.Validate(); err != nil {
		return fmt.Errorf("frontline config: %w", err)
	}
	if err := c.Peer.Validate(); err != nil {
		return fmt.Errorf("peer config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	return nil
}

// Validate validates the FrontlineConfig.
func (c *FrontlineConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listenAddr is required")
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("maxConnections must be at least 1")
	}
	if c.TransactionTimeout <= 0 {
		return fmt.Errorf("transactionTimeout must be positive")
	}
	if c.WheelResolution <= 0 {
		return fmt.Errorf("wheelResolution must be positive")
	}
	if c.WheelSlots < 1 {
		return fmt.Errorf("wheelSlots must be at least 1")
	}
	if c.WheelWorkers < 1 {
		return fmt.Errorf("wheelWorkers must be at least 1")
	}
	if c.TeardownPolicy != "drop" && c.TeardownPolicy != "synthesize_3002" {
		return fmt.Errorf("teardownPolicy must be one of: drop, synthesize_3002")
	}
	if c.Transport != "" && c.Transport != "tcp" && c.Transport != "sctp" {
		return fmt.Errorf("transport must be one of: tcp, sctp")
	}
	if c.DrainTimeout < 0 {
		return fmt.Errorf("drainTimeout must be non-negative")
	}
	if c.StreamBuffer < 1 {
		return fmt.Errorf("streamBuffer must be at least 1")
	}
	return nil
}

// ToFrontlineConfig converts the loaded tunables into a frontline.Config,
// wiring the string-form teardown policy into its typed enum.
func (c *FrontlineConfig) ToFrontlineConfig() frontline.Config {
	policy := transaction.TeardownDrop
	if c.TeardownPolicy == "synthesize_3002" {
		policy = transaction.TeardownSynthesize3002
	}
	transport := c.Transport
	if transport == "" {
		transport = "tcp"
	}
	return frontline.Config{
		ListenAddress:      c.ListenAddr,
		Transport:          transport,
		SCTPMultihomeAddrs: c.SCTPMultihomeAddrs,
		MaxConnections:     c.MaxConnections,
		TransactionTimeout: c.TransactionTimeout,
		WheelResolution:    c.WheelResolution,
		WheelSlots:         c.WheelSlots,
		WheelWorkers:       c.WheelWorkers,
		TeardownPolicy:     policy,
		DrainTimeout:       c.DrainTimeout,
		StreamBuffer:       c.StreamBuffer,
		MessageBufferBytes: c.MessageBufferBytes,
	}
}

// Validate validates the PeerConfig.
func (c *PeerConfig) Validate() error {
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dialTimeout must be positive")
	}
	if c.WatchdogInterval <= 0 {
		return fmt.Errorf("watchdogInterval must be positive")
	}
	if c.WatchdogWait <= 0 {
		return fmt.Errorf("watchdogWait must be positive")
	}
	if c.MaxWatchdogFailures < 1 {
		return fmt.Errorf("maxWatchdogFailures must be at least 1")
	}
	if c.ReconnectInitial <= 0 {
		return fmt.Errorf("reconnectInitial must be positive")
	}
	if c.ReconnectMax < c.ReconnectInitial {
		return fmt.Errorf("reconnectMax must be >= reconnectInitial")
	}
	if c.ReconnectFactor < 1.0 {
		return fmt.Errorf("reconnectFactor must be >= 1.0")
	}
	return nil
}

// BackoffConfig converts the loaded tunables into a peer.BackoffConfig.
func (c *PeerConfig) BackoffConfig() peer.BackoffConfig {
	return peer.BackoffConfig{Initial: c.ReconnectInitial, Max: c.ReconnectMax, Factor: c.ReconnectFactor}
}

// Validate validates the LoggingConfig.
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Level] {
		return fmt.Errorf("level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Format] {
		return fmt.Errorf("format must be one of: json, text")
	}
	return nil
}

// Validate validates the MetricsConfig.
func (c *MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required when metrics is enabled")
	}
	if c.Path[0] != '/' {
		return fmt.Errorf("path must start with /")
	}
	return nil
}
