package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	goProof "github.com/MrEthical07/goProof"
	"github.com/MrEthical07/goProof/jwt"
	"github.com/MrEthical07/goProof/middleware"
)

const (
	defaultRequestTimeout = 15 * time.Second
	maxBodyBytes          = 8 << 10
)

// Options configures NewRouter.
type Options struct {
	// Channel delivers issued tokens. Required unless ExposeTokens is set.
	Channel goProof.IssueChannel
	// ExposeTokens returns issued tokens in the response body instead of
	// delivering them. Development only: it lets anyone mint a token for any
	// eligible identity.
	ExposeTokens bool
	// Admin verifies tokens for the /admin routes. Nil leaves them unmounted.
	Admin *jwt.Manager
	// Metrics is served at GET /metrics when set.
	Metrics        http.Handler
	TrustProxy     bool
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Handler holds the engine and options behind the routes.
type Handler struct {
	engine *goProof.Engine
	opts   Options
	logger *slog.Logger
}

// NewRouter wires every route and the middleware stack.
func NewRouter(engine *goProof.Engine, opts Options) (http.Handler, error) {
	if engine == nil {
		return nil, errors.New("httpapi: engine is required")
	}
	if opts.Channel == nil && !opts.ExposeTokens {
		return nil, errors.New("httpapi: an issue channel is required unless tokens are exposed")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	h := &Handler{engine: engine, opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(recovery(logger))
	r.Use(requestLogger(logger))
	r.Use(middleware.ClientIP(opts.TrustProxy))
	r.Use(chimw.Timeout(opts.RequestTimeout))

	r.Get("/healthz", h.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(chimw.RequestSize(maxBodyBytes))
		r.Post("/issuance", h.handleIssuance)
		r.Post("/redemptions", h.handleRedemption)
	})

	if opts.Admin != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(opts.Admin))
			r.Post("/reset", h.handleReset)
			r.Get("/report", h.handleReport)
		})
	}

	return r, nil
}
