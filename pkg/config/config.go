package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Bridge string
	DB     string
	Config string
	Set    map[string]bool
}

// EffectiveConfigResult is the merged view of flags, env and config file
// that the rest of the app consumes.
type EffectiveConfigResult struct {
	Config  *Config
	DBPath  string
	Source  string // comma-joined subset of "flags", "env", "config"
	EnvUsed bool
}

// ParseConfigFlags parses command-line flags and returns them as a Flags struct.
func ParseConfigFlags() Flags {
	bridgePtr := flag.String("bridge", "", "NATS bridge URL (nats://host:4222)")
	dbPtr := flag.String("db", "./.codexmonitor", "Local cache DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Bridge: *bridgePtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and CODEXMONITOR_CONFIG when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("CODEXMONITOR_CONFIG"); p != "" {
		return p
	}
	return flagPath
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyEnvOverrides mutates cfg from CODEXMONITOR_* environment variables
// and reports whether any were used.
func applyEnvOverrides(cfg *Config) bool {
	envUsed := false

	setStr := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			envUsed = true
			*dst = v
		}
	}
	setDur := func(name string, dst *Duration) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			var d Duration
			node := yaml.Node{Kind: yaml.ScalarNode, Value: v}
			if err := d.UnmarshalYAML(&node); err == nil {
				envUsed = true
				*dst = d
			}
		}
	}
	setInt := func(name string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				envUsed = true
				*dst = n
			}
		}
	}
	setBool := func(name string, dst *bool) {
		if v := strings.ToLower(strings.TrimSpace(os.Getenv(name))); v != "" {
			envUsed = true
			*dst = v == "1" || v == "true" || v == "yes"
		}
	}

	setStr("CODEXMONITOR_BRIDGE_URL", &cfg.Bridge.URL)
	setStr("CODEXMONITOR_CLIENT_ID", &cfg.Bridge.ClientID)
	setDur("CODEXMONITOR_LIVENESS_WINDOW", &cfg.Bridge.LivenessWindow)
	setStr("CODEXMONITOR_DB_PATH", &cfg.Storage.DBPath)
	setDur("CODEXMONITOR_POLL_INTERVAL", &cfg.Sync.PollInterval)
	setDur("CODEXMONITOR_RESULT_POLL_INTERVAL", &cfg.Sync.ResultPollInterval)
	setDur("CODEXMONITOR_REPLY_TIMEOUT", &cfg.Sync.ReplyTimeout)
	setInt("CODEXMONITOR_CACHE_MAX_THREADS", &cfg.Cache.MaxThreads)
	setInt("CODEXMONITOR_CACHE_MAX_ITEMS", &cfg.Cache.MaxItems)
	setDur("CODEXMONITOR_CACHE_MAX_AGE", &cfg.Cache.MaxAge)
	setBool("CODEXMONITOR_TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	setInt("CODEXMONITOR_TELEMETRY_CAPACITY", &cfg.Telemetry.Capacity)
	setBool("CODEXMONITOR_SWEEP_ENABLED", &cfg.Sweep.Enabled)
	setStr("CODEXMONITOR_SWEEP_CRON", &cfg.Sweep.Cron)
	setStr("CODEXMONITOR_DEBUG_ADDR", &cfg.Debug.Addr)
	setStr("CODEXMONITOR_LOG_LEVEL", &cfg.Logging.Level)

	return envUsed
}

// LoadEffective merges config file, environment and flags (flags win) into
// a normalized effective config.
func LoadEffective(flags Flags) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult
	srcs := []string{}

	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := Load(cfgPath)
	switch {
	case err == nil:
		srcs = append(srcs, "config")
	case os.IsNotExist(err):
		if flags.Set["config"] {
			return res, fmt.Errorf("config file %s not found", cfgPath)
		}
		cfg = &Config{}
	default:
		return res, err
	}

	if applyEnvOverrides(cfg) {
		res.EnvUsed = true
		srcs = append(srcs, "env")
	}

	if flags.Set["bridge"] {
		cfg.Bridge.URL = flags.Bridge
	}
	if flags.Set["db"] {
		cfg.Storage.DBPath = flags.DB
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = flags.DB
	}
	if len(flags.Set) > 0 {
		srcs = append(srcs, "flags")
	}

	cfg.Normalize()
	res.Config = cfg
	res.DBPath = cfg.Storage.DBPath
	res.Source = strings.Join(srcs, ", ")
	return res, nil
}
