package goProof

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/goProof/codec"
	"github.com/MrEthical07/goProof/eligibility"
	internalaudit "github.com/MrEthical07/goProof/internal/audit"
	internalflows "github.com/MrEthical07/goProof/internal/flows"
	"github.com/MrEthical07/goProof/internal/limiters"
	"github.com/MrEthical07/goProof/internal/stores"
	"github.com/MrEthical07/goProof/internal/stripe"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single-use: the second call to
// Build fails.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	replay    ReplayStore
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The Builder keeps a copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used by the redis replay backend and the
// issuance throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithReplayStore injects a replay store and bypasses Config.Replay.
//
// The caller keeps ownership: Engine.Close does not close an injected store.
func (b *Builder) WithReplayStore(store ReplayStore) *Builder {
	b.replay = store
	return b
}

// WithAuditSink sets the sink used when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for background failures. The default discards
// everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, loads the allow-list, opens the replay
// store and returns a ready Engine.
//
// A store opened by Build is owned by the Engine and closed by Engine.Close.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	needsRedis := b.replay == nil && cfg.Replay.Backend == ReplayBackendRedis
	if b.redis == nil && needsRedis {
		return nil, errors.New("redis replay backend requires redis client")
	}
	if b.redis == nil && (cfg.Issuance.EnableThrottle || cfg.Issuance.EnableIPThrottle) {
		return nil, errors.New("Issuance throttling requires redis client")
	}

	// -------- ELIGIBILITY --------
	allowList := append([]string(nil), cfg.Eligibility.AllowList...)
	if cfg.Eligibility.AllowListPath != "" {
		loaded, err := eligibility.LoadAllowListFile(cfg.Eligibility.AllowListPath, cfg.Eligibility.AllowListColumn)
		if err != nil {
			return nil, fmt.Errorf("load allow-list: %w", err)
		}
		allowList = append(allowList, loaded...)
	}
	classifier, err := eligibility.New(cfg.Eligibility.Pattern, allowList)
	if err != nil {
		return nil, err
	}

	// -------- CODEC --------
	tokenCodec, err := codec.New(cfg.Secret)
	if err != nil {
		return nil, err
	}

	// -------- REPLAY STORE --------
	replay := b.replay
	ownsReplay := false
	if replay == nil {
		replay, err = openReplayStore(cfg.Replay, b.redis)
		if err != nil {
			return nil, err
		}
		ownsReplay = true
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	engine := &Engine{
		config:     cfg,
		codec:      tokenCodec,
		classifier: classifier,
		replay:     replay,
		ownsReplay: ownsReplay,
		locks:      stripe.New(),
		logger:     logger,
	}

	if cfg.Issuance.EnableThrottle || cfg.Issuance.EnableIPThrottle {
		engine.limiter = limiters.NewIssuanceLimiter(b.redis, limiters.IssuanceConfig{
			EnableIdentityThrottle: cfg.Issuance.EnableThrottle,
			EnableIPThrottle:       cfg.Issuance.EnableIPThrottle,
			MaxRequests:            cfg.Issuance.MaxRequests,
			Window:                 cfg.Issuance.Window,
		})
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.flows = internalflows.Deps{
		Issuance:   engine.issuanceFlowDeps(),
		Redemption: engine.redemptionFlowDeps(),
		Reset:      engine.resetFlowDeps(),
	}

	b.built = true

	return engine, nil
}

func openReplayStore(cfg ReplayConfig, client redis.UniversalClient) (ReplayStore, error) {
	switch cfg.Backend {
	case ReplayBackendFile:
		return stores.OpenFileReplayLog(cfg.LogPath)
	case ReplayBackendRedis:
		return stores.NewRedisReplaySet(client, cfg.RedisKey), nil
	case ReplayBackendSQLite:
		return stores.OpenSQLiteReplaySet(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported replay backend %q", cfg.Backend)
	}
}
