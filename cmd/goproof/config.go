package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	goProof "github.com/MrEthical07/goProof"
)

// envConfig is everything the binary reads from the environment.
type envConfig struct {
	Secret          string   `env:"GOPROOF_SECRET"`
	Pattern         string   `env:"GOPROOF_PATTERN"`
	AllowList       []string `env:"GOPROOF_ALLOW_LIST" envSeparator:","`
	AllowListPath   string   `env:"GOPROOF_ALLOW_LIST_PATH"`
	AllowListColumn string   `env:"GOPROOF_ALLOW_LIST_COLUMN" envDefault:"email"`

	ReplayBackend    string `env:"GOPROOF_REPLAY_BACKEND"     envDefault:"file"`
	ReplayLogPath    string `env:"GOPROOF_REPLAY_LOG_PATH"    envDefault:"used.txt"`
	ReplayRedisKey   string `env:"GOPROOF_REPLAY_REDIS_KEY"   envDefault:"gpr:redeemed"`
	ReplaySQLitePath string `env:"GOPROOF_REPLAY_SQLITE_PATH" envDefault:"goproof.db"`
	RedisAddr        string `env:"GOPROOF_REDIS_ADDR"`

	IssuanceThrottle   bool          `env:"GOPROOF_ISSUANCE_THROTTLE"`
	IssuanceIPThrottle bool          `env:"GOPROOF_ISSUANCE_IP_THROTTLE"`
	IssuanceMax        int           `env:"GOPROOF_ISSUANCE_MAX_REQUESTS" envDefault:"5"`
	IssuanceWindow     time.Duration `env:"GOPROOF_ISSUANCE_WINDOW"       envDefault:"1h"`

	Concurrency     int  `env:"GOPROOF_CONCURRENCY"        envDefault:"4"`
	ResetEnabled    bool `env:"GOPROOF_RESET_ENABLED"`
	AuditEnabled    bool `env:"GOPROOF_AUDIT_ENABLED"`
	AuditBufferSize int  `env:"GOPROOF_AUDIT_BUFFER_SIZE"  envDefault:"1024"`
	AuditDropIfFull bool `env:"GOPROOF_AUDIT_DROP_IF_FULL" envDefault:"true"`
	Metrics         bool `env:"GOPROOF_METRICS"            envDefault:"true"`
	LatencyMetrics  bool `env:"GOPROOF_LATENCY_METRICS"`

	LogLevel        string        `env:"GOPROOF_LOG_LEVEL"        envDefault:"info"`
	HTTPAddr        string        `env:"GOPROOF_HTTP_ADDR"        envDefault:":8080"`
	TrustProxy      bool          `env:"GOPROOF_TRUST_PROXY"`
	ExposeTokens    bool          `env:"GOPROOF_EXPOSE_TOKENS"`
	ShutdownTimeout time.Duration `env:"GOPROOF_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	AdminKey      string        `env:"GOPROOF_ADMIN_KEY"`
	AdminTTL      time.Duration `env:"GOPROOF_ADMIN_TTL"      envDefault:"15m"`
	AdminIssuer   string        `env:"GOPROOF_ADMIN_ISSUER"   envDefault:"goproof"`
	AdminAudience string        `env:"GOPROOF_ADMIN_AUDIENCE" envDefault:"goproof-admin"`

	SMTPAddr     string `env:"GOPROOF_SMTP_ADDR"`
	SMTPUsername string `env:"GOPROOF_SMTP_USERNAME"`
	SMTPPassword string `env:"GOPROOF_SMTP_PASSWORD"`
	SMTPFrom     string `env:"GOPROOF_SMTP_FROM"`
}

func loadConfig() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return envConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c envConfig) engineConfig() goProof.Config {
	cfg := goProof.DefaultConfig()
	cfg.Secret = c.Secret
	cfg.Eligibility.Pattern = c.Pattern
	cfg.Eligibility.AllowList = c.AllowList
	cfg.Eligibility.AllowListPath = c.AllowListPath
	cfg.Eligibility.AllowListColumn = c.AllowListColumn

	cfg.Replay.Backend = goProof.ReplayBackend(strings.ToLower(strings.TrimSpace(c.ReplayBackend)))
	cfg.Replay.LogPath = c.ReplayLogPath
	cfg.Replay.RedisKey = c.ReplayRedisKey
	cfg.Replay.SQLitePath = c.ReplaySQLitePath

	cfg.Issuance.EnableThrottle = c.IssuanceThrottle
	cfg.Issuance.EnableIPThrottle = c.IssuanceIPThrottle
	cfg.Issuance.MaxRequests = c.IssuanceMax
	cfg.Issuance.Window = c.IssuanceWindow

	cfg.Processing.Concurrency = c.Concurrency
	cfg.Reset.Enabled = c.ResetEnabled
	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Audit.BufferSize = c.AuditBufferSize
	cfg.Audit.DropIfFull = c.AuditDropIfFull
	cfg.Metrics.Enabled = c.Metrics
	cfg.Metrics.EnableLatencyHistograms = c.Metrics && c.LatencyMetrics
	return cfg
}

// needsRedis reports whether the engine configuration requires a client.
func (c envConfig) needsRedis() bool {
	return c.RedisAddr != "" ||
		goProof.ReplayBackend(strings.ToLower(c.ReplayBackend)) == goProof.ReplayBackendRedis ||
		c.IssuanceThrottle ||
		c.IssuanceIPThrottle
}

func newRedisClient(addr string) (redis.UniversalClient, error) {
	if addr == "" {
		return nil, fmt.Errorf("GOPROOF_REDIS_ADDR is required for the redis backend and issuance throttling")
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}}), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("GOPROOF_LOG_LEVEL: %w", err)
	}
	return level, nil
}
