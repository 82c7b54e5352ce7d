package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

func envDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func main() {
	cfg := DefaultConfig()

	addr := flag.String("addr", envDefault("APEXFIRE_ADDR", ":8080"), "HTTP listen address")
	clientDir := flag.String("client", envDefault("APEXFIRE_CLIENT", ""), "Path to client directory (default: ../client)")
	dbPath := flag.String("db", envDefault("APEXFIRE_DB", "apexfire.db"), "SQLite match archive path, empty to disable")
	jwtSecret := flag.String("jwt-secret", envDefault("APEXFIRE_JWT_SECRET", ""), "Admin token secret (default: generated and stored in the database)")
	publicURL := flag.String("public-url", envDefault("APEXFIRE_PUBLIC_URL", ""), "URL encoded by /qr")
	logLevel := flag.String("log-level", envDefault("APEXFIRE_LOG_LEVEL", "info"), "debug, info, warn or error")
	printToken := flag.Bool("print-admin-token", false, "Print an admin API token and exit")

	flag.IntVar(&cfg.Capacity, "capacity", envInt("APEXFIRE_CAPACITY", cfg.Capacity), "Entities per room")
	flag.IntVar(&cfg.MaxRooms, "max-rooms", envInt("APEXFIRE_MAX_ROOMS", cfg.MaxRooms), "Maximum live rooms")
	flag.DurationVar(&cfg.MatchLength, "match-length", envDuration("APEXFIRE_MATCH_LENGTH", cfg.MatchLength), "Match duration")
	flag.DurationVar(&cfg.MatchmakingTimeout, "matchmaking-timeout", envDuration("APEXFIRE_MATCHMAKING_TIMEOUT", cfg.MatchmakingTimeout), "Wait before backfilling with bots")
	flag.DurationVar(&cfg.TickInterval, "tick", envDuration("APEXFIRE_TICK", cfg.TickInterval), "Simulation tick interval")
	flag.DurationVar(&cfg.FullSyncInterval, "full-sync", envDuration("APEXFIRE_FULL_SYNC", cfg.FullSyncInterval), "Interval between full position syncs")
	flag.DurationVar(&cfg.RespawnDelay, "respawn-delay", envDuration("APEXFIRE_RESPAWN_DELAY", cfg.RespawnDelay), "Delay before a dead entity respawns")
	flag.DurationVar(&cfg.CleanupDelay, "cleanup-delay", envDuration("APEXFIRE_CLEANUP_DELAY", cfg.CleanupDelay), "Delay before a finished room is torn down")
	flag.Float64Var(&cfg.MaxMoveDistance, "max-move", envFloat("APEXFIRE_MAX_MOVE", cfg.MaxMoveDistance), "Largest accepted displacement per move")
	flag.BoolVar(&cfg.BinarySync, "binary-sync", envBool("APEXFIRE_BINARY_SYNC", cfg.BinarySync), "Send position sync frames as msgpack")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)})))

	if err := run(cfg, *addr, *clientDir, *dbPath, *jwtSecret, *publicURL, *printToken); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func resolveClientDir(dir string) string {
	if dir != "" {
		return dir
	}
	exe, _ := os.Executable()
	dir = filepath.Join(filepath.Dir(exe), "..", "client")
	// Fallback for development
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		dir = "../client"
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ""
	}
	return dir
}

func run(cfg Config, addr, clientDir, dbPath, jwtSecret, publicURL string, printToken bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var db *DB
	if dbPath != "" {
		var err error
		db, err = OpenDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	auth := NewAuth(db, jwtSecret)
	if printToken {
		tok, err := auth.IssueToken("cli")
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Println(tok)
		return nil
	}

	analytics := NewAnalytics(db)
	hub := NewHub(cfg, db, analytics, auth)
	hub.publicURL = publicURL

	clientDir = resolveClientDir(clientDir)
	server := &http.Server{Addr: addr, Handler: SetupRoutes(hub, clientDir)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return hub.Run(ctx) })
	eg.Go(func() error { return analytics.Run(ctx) })
	eg.Go(func() error {
		slog.Info("server starting", "addr", addr, "client", clientDir, "archive", dbPath)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
