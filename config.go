package goProof

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Config defines the full engine configuration.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable. The engine keeps its own copy.
type Config struct {
	// Secret derives the token key. It is never logged or audited.
	Secret      string
	Eligibility EligibilityConfig
	Replay      ReplayConfig
	Issuance    IssuanceConfig
	Processing  ProcessingConfig
	Reset       ResetConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
ELIGIBILITY CONFIG
====================================
*/

// EligibilityConfig selects which identities may obtain and redeem tokens.
//
// An identity is eligible when it matches Pattern or appears in the
// allow-list. At least one of Pattern, AllowList or AllowListPath must be set.
// An empty Pattern disables the pattern rule.
type EligibilityConfig struct {
	Pattern         string
	AllowList       []string
	AllowListPath   string // CSV file with a header row
	AllowListColumn string
}

/*
====================================
REPLAY CONFIG
====================================
*/

// ReplayBackend names a built-in ReplayStore implementation.
type ReplayBackend string

const (
	// ReplayBackendFile is the append-only, fsynced log file.
	ReplayBackendFile ReplayBackend = "file"
	// ReplayBackendRedis is a Redis set. Requires Builder.WithRedis.
	ReplayBackendRedis ReplayBackend = "redis"
	// ReplayBackendSQLite is a SQLite table in WAL mode.
	ReplayBackendSQLite ReplayBackend = "sqlite"
)

// ReplayConfig selects and configures the replay store. It is ignored when a
// store is injected with Builder.WithReplayStore.
type ReplayConfig struct {
	Backend    ReplayBackend
	LogPath    string
	RedisKey   string
	SQLitePath string
}

/*
====================================
ISSUANCE CONFIG
====================================
*/

// IssuanceConfig controls the optional Redis-backed issuance throttle.
type IssuanceConfig struct {
	EnableThrottle   bool
	EnableIPThrottle bool
	MaxRequests      int
	Window           time.Duration
}

/*
====================================
PROCESSING CONFIG
====================================
*/

// ProcessingConfig controls batch processing and the polling loop.
type ProcessingConfig struct {
	Concurrency int
	Interval    time.Duration
}

// ResetConfig guards ResetReplay. Resetting lets every identity redeem again.
type ResetConfig struct {
	Enabled bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the redeem latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Secret and an
// eligibility rule must still be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Eligibility: EligibilityConfig{
			AllowListColumn: "email",
		},
		Replay: ReplayConfig{
			Backend:    ReplayBackendFile,
			LogPath:    "used.txt",
			RedisKey:   "gpr:redeemed",
			SQLitePath: "goproof.db",
		},
		Issuance: IssuanceConfig{
			EnableThrottle:   false,
			EnableIPThrottle: false,
			MaxRequests:      5,
			Window:           time.Hour,
		},
		Processing: ProcessingConfig{
			Concurrency: 4,
			Interval:    90 * time.Second,
		},
		Reset: ResetConfig{
			Enabled: false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Eligibility.AllowList != nil {
		out.Eligibility.AllowList = append([]string(nil), cfg.Eligibility.AllowList...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
//
// It compiles Eligibility.Pattern to surface syntax errors early but does not
// touch the filesystem or the network.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return errors.New("Secret must be set")
	}

	// Eligibility
	hasList := len(c.Eligibility.AllowList) > 0 || strings.TrimSpace(c.Eligibility.AllowListPath) != ""
	if c.Eligibility.Pattern == "" && !hasList {
		return errors.New("Eligibility requires a Pattern or an allow-list")
	}
	if c.Eligibility.Pattern != "" {
		if _, err := regexp.Compile(c.Eligibility.Pattern); err != nil {
			return errors.New("Eligibility Pattern does not compile: " + err.Error())
		}
	}
	if c.Eligibility.AllowListPath != "" && strings.TrimSpace(c.Eligibility.AllowListColumn) == "" {
		return errors.New("Eligibility AllowListColumn must be set with AllowListPath")
	}

	// Replay
	switch c.Replay.Backend {
	case ReplayBackendFile:
		if c.Replay.LogPath == "" {
			return errors.New("Replay LogPath must be set for the file backend")
		}
	case ReplayBackendRedis:
		if c.Replay.RedisKey == "" {
			return errors.New("Replay RedisKey must be set for the redis backend")
		}
	case ReplayBackendSQLite:
		if c.Replay.SQLitePath == "" {
			return errors.New("Replay SQLitePath must be set for the sqlite backend")
		}
	default:
		return errors.New("Replay Backend must be 'file', 'redis' or 'sqlite'")
	}

	// Issuance
	if c.Issuance.EnableThrottle || c.Issuance.EnableIPThrottle {
		if c.Issuance.MaxRequests <= 0 {
			return errors.New("Issuance MaxRequests must be > 0 when throttling is enabled")
		}
		if c.Issuance.Window <= 0 {
			return errors.New("Issuance Window must be > 0 when throttling is enabled")
		}
	}

	// Processing
	if c.Processing.Concurrency <= 0 {
		return errors.New("Processing Concurrency must be > 0")
	}
	if c.Processing.Interval < 0 {
		return errors.New("Processing Interval must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
