package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	Storage   StorageConfig   `yaml:"storage"`
	Sync      SyncConfig      `yaml:"sync"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Sweep     SweepConfig     `yaml:"sweep"`
	Debug     DebugConfig     `yaml:"debug"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BridgeConfig points the client at the shared store/command channel.
type BridgeConfig struct {
	// URL of the NATS bridge, e.g. nats://token@host:4222. Empty means the
	// engine runs against an in-memory transport (tests, demos).
	URL      string `yaml:"url"`
	ClientID string `yaml:"client_id"`
	// LivenessWindow bounds how stale a presence beacon may be for the
	// runner to still count as online.
	LivenessWindow Duration `yaml:"liveness_window"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

// StorageConfig holds the local durable cache location.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// SyncConfig tunes the polling scheduler and command tracker.
type SyncConfig struct {
	PollInterval        Duration `yaml:"poll_interval"`
	ResultPollInterval  Duration `yaml:"result_poll_interval"`
	ReplyTimeout        Duration `yaml:"reply_timeout"`
	DuplicateSendWindow Duration `yaml:"duplicate_send_window"`
	// Load-shedding bounds per tick. Tunable, not contractual.
	WorkspaceFetchesPerTick  int     `yaml:"workspace_fetches_per_tick"`
	BackgroundThreadsPerTick int     `yaml:"background_threads_per_tick"`
	FetchRPS                 float64 `yaml:"fetch_rps"`
	FetchBurst               int     `yaml:"fetch_burst"`
}

// CacheConfig bounds the persisted snapshot cache.
type CacheConfig struct {
	MaxThreads  int       `yaml:"max_threads"`
	MaxItems    int       `yaml:"max_items"`
	MaxTextSize SizeBytes `yaml:"max_text_size"`
	MaxAge      Duration  `yaml:"max_age"`
}

// TelemetryConfig bounds the local diagnostics ring.
type TelemetryConfig struct {
	Enabled  bool `yaml:"enabled"`
	Capacity int  `yaml:"capacity"`
}

// SweepConfig schedules the background stale-cache sweep.
type SweepConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// DebugConfig exposes the local diagnostics HTTP listener.
type DebugConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Poll interval clamp and defaults. The base interval is user-tunable but
// bounded so a bad config cannot flood the bridge or starve the UI.
const (
	DefaultPollInterval = 5 * time.Second
	MinPollInterval     = 1 * time.Second
	MaxPollInterval     = 30 * time.Second

	DefaultResultPollInterval  = 1500 * time.Millisecond
	DefaultReplyTimeout        = 15 * time.Minute
	DefaultDuplicateSendWindow = 1500 * time.Millisecond
	DefaultLivenessWindow      = 20 * time.Second
	DefaultRequestTimeout      = 5 * time.Second

	DefaultCacheMaxThreads = 8
	DefaultCacheMaxItems   = 80
	DefaultCacheMaxText    = 2000
	DefaultCacheMaxAge     = 14 * 24 * time.Hour

	DefaultTelemetryCapacity = 250
)

// Normalize fills defaults and clamps bounded values in place.
func (c *Config) Normalize() {
	p := c.Sync.PollInterval.Duration()
	switch {
	case p == 0:
		p = DefaultPollInterval
	case p < MinPollInterval:
		p = MinPollInterval
	case p > MaxPollInterval:
		p = MaxPollInterval
	}
	c.Sync.PollInterval = Duration(p)

	if c.Sync.ResultPollInterval.Duration() <= 0 {
		c.Sync.ResultPollInterval = Duration(DefaultResultPollInterval)
	}
	if c.Sync.ReplyTimeout.Duration() <= 0 {
		c.Sync.ReplyTimeout = Duration(DefaultReplyTimeout)
	}
	if c.Sync.DuplicateSendWindow.Duration() <= 0 {
		c.Sync.DuplicateSendWindow = Duration(DefaultDuplicateSendWindow)
	}
	if c.Sync.WorkspaceFetchesPerTick <= 0 {
		c.Sync.WorkspaceFetchesPerTick = 2
	}
	if c.Sync.BackgroundThreadsPerTick <= 0 {
		c.Sync.BackgroundThreadsPerTick = 1
	}

	if c.Bridge.LivenessWindow.Duration() <= 0 {
		c.Bridge.LivenessWindow = Duration(DefaultLivenessWindow)
	}
	if c.Bridge.RequestTimeout.Duration() <= 0 {
		c.Bridge.RequestTimeout = Duration(DefaultRequestTimeout)
	}

	if c.Cache.MaxThreads <= 0 {
		c.Cache.MaxThreads = DefaultCacheMaxThreads
	}
	if c.Cache.MaxItems <= 0 {
		c.Cache.MaxItems = DefaultCacheMaxItems
	}
	if c.Cache.MaxTextSize <= 0 {
		c.Cache.MaxTextSize = DefaultCacheMaxText
	}
	if c.Cache.MaxAge.Duration() <= 0 {
		c.Cache.MaxAge = Duration(DefaultCacheMaxAge)
	}

	if c.Telemetry.Capacity <= 0 {
		c.Telemetry.Capacity = DefaultTelemetryCapacity
	}
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int() int { return int(s) }

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
