// Command goproof issues and redeems one-time identity proofs.
//
//	goproof serve                 run the HTTP API
//	goproof issue <identity>      print a token for an eligible identity
//	goproof redeem <code>         redeem a code and print the decision
//	goproof keygen                print a random secret
//	goproof admin-token <subject> print an admin bearer token
//	goproof reset                 clear the replay store
//	goproof report                print the security report as JSON
//
// Configuration comes from GOPROOF_* environment variables.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	goProof "github.com/MrEthical07/goProof"
	"github.com/MrEthical07/goProof/internal"
	"github.com/MrEthical07/goProof/jwt"
)

const usage = `usage: goproof <command> [args]

commands:
  serve                 run the HTTP API
  issue <identity>      print a token for an eligible identity
  redeem <code>         redeem a code and print the decision
  keygen                print a random secret
  admin-token <subject> print an admin bearer token
  reset                 clear the replay store
  report                print the security report as JSON
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "goproof: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "serve":
		logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: level}))
		return serve(ctx, cfg, logger)
	case "keygen":
		secret, err := internal.NewSecret(internal.DefaultSecretSize)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, secret)
		return err
	case "admin-token":
		if len(rest) != 1 {
			return errUsage
		}
		return adminToken(cfg, rest[0], stdout)
	case "issue", "redeem", "reset", "report":
		logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))
		engine, _, cleanup, err := openEngine(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		return oneShot(ctx, engine, cmd, rest, stdout)
	default:
		return errUsage
	}
}

// openEngine builds the engine and, when the configuration needs one, its
// redis client. The returned cleanup closes both.
func openEngine(ctx context.Context, cfg envConfig, logger *slog.Logger) (*goProof.Engine, redis.UniversalClient, func(), error) {
	builder := goProof.New().WithConfig(cfg.engineConfig()).WithLogger(logger)

	var rdb redis.UniversalClient
	if cfg.needsRedis() {
		client, err := newRedisClient(cfg.RedisAddr)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		rdb = client
		builder = builder.WithRedis(rdb)
	}
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(goProof.NewSlogSink(logger.With("component", "audit")))
	}

	engine, err := builder.Build()
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := engine.Close(); err != nil {
			logger.Error("engine close failed", "error", err)
		}
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return engine, rdb, cleanup, nil
}

func oneShot(ctx context.Context, engine *goProof.Engine, cmd string, args []string, stdout io.Writer) error {
	switch cmd {
	case "issue":
		if len(args) != 1 {
			return errUsage
		}
		token, err := engine.RequestIssuance(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, token)
		return err
	case "redeem":
		if len(args) == 0 {
			return errUsage
		}
		decision, err := engine.Redeem(ctx, strings.Join(args, ""))
		if err != nil {
			return err
		}
		return writeJSON(stdout, map[string]string{
			"status":   decision.Status.String(),
			"identity": decision.Identity,
			"reason":   decision.Reason.String(),
		})
	case "reset":
		cleared, err := engine.ResetReplay(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "cleared %d identities\n", cleared)
		return err
	case "report":
		return writeJSON(stdout, engine.SecurityReport())
	default:
		return errUsage
	}
}

func adminToken(cfg envConfig, subject string, stdout io.Writer) error {
	manager, err := newAdminManager(cfg)
	if err != nil {
		return err
	}
	if manager == nil {
		return errors.New("GOPROOF_ADMIN_KEY is not set")
	}
	token, err := manager.Issue(subject)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func newAdminManager(cfg envConfig) (*jwt.Manager, error) {
	if cfg.AdminKey == "" {
		return nil, nil
	}
	return jwt.NewManager(jwt.Config{
		Key:      []byte(cfg.AdminKey),
		TTL:      cfg.AdminTTL,
		Issuer:   cfg.AdminIssuer,
		Audience: cfg.AdminAudience,
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
