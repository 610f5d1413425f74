package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config carries every tunable for the feed server and dashboard client.
// Nothing in here is hardcoded anywhere else; components receive the
// values they need at construction time.
type Config struct {
	// Server side.
	LogPath        string        `mapstructure:"log_path"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ListenAddr     string        `mapstructure:"listen_addr"`
	DebounceWindow time.Duration `mapstructure:"debounce_window"`

	// Worker status derivation.
	ActiveWithin   time.Duration `mapstructure:"active_within"`
	InactiveBeyond time.Duration `mapstructure:"inactive_beyond"`

	// Snapshot retention.
	RecentMessageCap int `mapstructure:"recent_message_cap"`

	// Heartbeat, shared by server and client.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `mapstructure:"heartbeat_timeout"`

	// Client side.
	ServerURL            string        `mapstructure:"server_url"`
	ReconnectBaseDelay   time.Duration `mapstructure:"reconnect_base_delay"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`

	// Visualization.
	FlowTTL   time.Duration `mapstructure:"flow_ttl"`
	FlowCap   int           `mapstructure:"flow_cap"`
	RolesPath string        `mapstructure:"roles_path"`
}

func Default() Config {
	return Config{
		LogPath:              ".hive/messages.jsonl",
		PollInterval:         2 * time.Second,
		ListenAddr:           "127.0.0.1:8420",
		DebounceWindow:       250 * time.Millisecond,
		ActiveWithin:         30 * time.Second,
		InactiveBeyond:       5 * time.Minute,
		RecentMessageCap:     200,
		HeartbeatInterval:    15 * time.Second,
		HeartbeatTimeout:     45 * time.Second,
		ServerURL:            "ws://127.0.0.1:8420/feed",
		ReconnectBaseDelay:   time.Second,
		MaxReconnectAttempts: 10,
		FlowTTL:              3 * time.Second,
		FlowCap:              50,
		RolesPath:            "",
	}
}

// Load reads configuration from the given YAML file (optional), the
// HIVEDASH_* environment, and built-in defaults, in that order of
// precedence descending.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HIVEDASH")
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("log_path", def.LogPath)
	v.SetDefault("poll_interval", def.PollInterval)
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("debounce_window", def.DebounceWindow)
	v.SetDefault("active_within", def.ActiveWithin)
	v.SetDefault("inactive_beyond", def.InactiveBeyond)
	v.SetDefault("recent_message_cap", def.RecentMessageCap)
	v.SetDefault("heartbeat_interval", def.HeartbeatInterval)
	v.SetDefault("heartbeat_timeout", def.HeartbeatTimeout)
	v.SetDefault("server_url", def.ServerURL)
	v.SetDefault("reconnect_base_delay", def.ReconnectBaseDelay)
	v.SetDefault("max_reconnect_attempts", def.MaxReconnectAttempts)
	v.SetDefault("flow_ttl", def.FlowTTL)
	v.SetDefault("flow_cap", def.FlowCap)
	v.SetDefault("roles_path", def.RolesPath)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.clamp()
	return cfg, nil
}

// clamp keeps nonsense values from wedging the feed loop.
func (c *Config) clamp() {
	if c.PollInterval <= 0 {
		c.PollInterval = Default().PollInterval
	}
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = Default().DebounceWindow
	}
	if c.ActiveWithin <= 0 {
		c.ActiveWithin = Default().ActiveWithin
	}
	if c.InactiveBeyond <= c.ActiveWithin {
		c.InactiveBeyond = Default().InactiveBeyond
	}
	if c.RecentMessageCap <= 0 {
		c.RecentMessageCap = Default().RecentMessageCap
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = Default().HeartbeatInterval
	}
	if c.HeartbeatTimeout <= c.HeartbeatInterval {
		c.HeartbeatTimeout = 3 * c.HeartbeatInterval
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = Default().ReconnectBaseDelay
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = Default().MaxReconnectAttempts
	}
	if c.FlowTTL <= 0 {
		c.FlowTTL = Default().FlowTTL
	}
	if c.FlowCap <= 0 {
		c.FlowCap = Default().FlowCap
	}
}
