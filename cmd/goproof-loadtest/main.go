// Command goproof-loadtest fires concurrent redemptions of the same tokens
// at every replay backend and checks that each identity is accepted exactly
// once.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goProof "github.com/MrEthical07/goProof"
)

func main() {
	var (
		backends    = flag.String("backends", "file,redis,sqlite", "comma-separated replay backends to exercise")
		identities  = flag.Int("identities", 500, "number of distinct identities")
		attempts    = flag.Int("attempts", 8, "redemptions of each token")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *identities <= 0 || *attempts <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "identities, attempts, and concurrency must be > 0")
		os.Exit(2)
	}

	dir, err := os.MkdirTemp("", "goproof-loadtest-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	ctx := context.Background()
	failed := false
	for _, name := range strings.Split(*backends, ",") {
		backend := goProof.ReplayBackend(strings.TrimSpace(name))
		res, err := runBackend(ctx, backend, dir, addr, *identities, *attempts, *concurrency)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", backend, err)
			failed = true
			continue
		}
		printResult(backend, res)
		if res.violations > 0 || res.failures > 0 {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func runBackend(ctx context.Context, backend goProof.ReplayBackend, dir, redisAddr string, identities, attempts, concurrency int) (stormResult, error) {
	cfg := goProof.DefaultConfig()
	cfg.Secret = "loadtest-secret"
	cfg.Eligibility.Pattern = `^user-\d+@loadtest\.example$`
	cfg.Replay.Backend = backend
	cfg.Replay.LogPath = filepath.Join(dir, "used.txt")
	cfg.Replay.SQLitePath = filepath.Join(dir, "goproof.db")
	cfg.Replay.RedisKey = "gpr:loadtest"
	cfg.Processing.Concurrency = concurrency

	builder := goProof.New().WithConfig(cfg)
	if backend == goProof.ReplayBackendRedis {
		client, cleanup, err := redisClient(redisAddr)
		if err != nil {
			return stormResult{}, err
		}
		defer cleanup()
		if err := client.Del(ctx, cfg.Replay.RedisKey).Err(); err != nil {
			return stormResult{}, err
		}
		builder = builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		return stormResult{}, err
	}
	defer engine.Close()

	return storm(ctx, engine, identities, attempts, concurrency)
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}
