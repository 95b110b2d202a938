// Command verivote is the main entry point for the VeriVote biometric
// voting backend.
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
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/verivote/verivote/internal/api"
	"github.com/verivote/verivote/internal/audit"
	"github.com/verivote/verivote/internal/config"
	"github.com/verivote/verivote/internal/face"
	"github.com/verivote/verivote/internal/health"
	"github.com/verivote/verivote/internal/ledger"
	"github.com/verivote/verivote/internal/observe"
	"github.com/verivote/verivote/internal/vote"
	"github.com/verivote/verivote/internal/voice"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Environment & configuration ───────────────────────────────────────────
	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "verivote: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "verivote: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("verivote starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"face_backend", cfg.FaceStore.Backend,
		"ledger_backend", cfg.Ledger.Backend,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownObserve, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise observability", "err", err)
		return 1
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObserve(cleanupCtx); err != nil {
			slog.Warn("observability shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Face store & engine ───────────────────────────────────────────────────
	faces, facePing, closeFaces, err := buildFaceEngine(ctx, cfg, metrics)
	if err != nil {
		slog.Error("failed to build face engine", "err", err)
		return 1
	}
	defer closeFaces()

	// ── Voice engine ──────────────────────────────────────────────────────────
	voices := voice.NewEngine(voice.NewMemStore(), voice.WithMetrics(metrics))

	// ── Ledger gate & vote service ────────────────────────────────────────────
	gate, gatePing, err := buildLedgerGate(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to vote ledger", "err", err)
		return 1
	}
	voteOpts := []vote.Option{
		vote.WithBreaker(vote.NewBreaker()),
		vote.WithMetrics(metrics),
	}
	if cfg.Ledger.RetryBackoff > 0 {
		voteOpts = append(voteOpts, vote.WithRetryBackoff(cfg.Ledger.RetryBackoff))
	}
	if cfg.Server.AuditLog != "" {
		voteOpts = append(voteOpts, vote.WithAudit(audit.NewTrail(cfg.Server.AuditLog)))
	}
	votes := vote.NewService(gate, voteOpts...)

	// ── Health checks ─────────────────────────────────────────────────────────
	hc := health.New(
		health.Checker{Name: "face_store", Check: facePing},
		health.Checker{Name: "ledger", Check: gatePing},
	)

	// ── HTTP server ───────────────────────────────────────────────────────────
	server := api.New(api.Config{
		ListenAddr:        cfg.Server.ListenAddr,
		CORSAllowedOrigin: cfg.Server.CORSAllowedOrigin,
	}, faces, voices, votes, hc, metrics)

	printStartupSummary(cfg)
	slog.Info("server ready — press Ctrl+C to shut down")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Component wiring ──────────────────────────────────────────────────────────

// buildFaceEngine constructs the face engine on top of the configured store
// backend, returning a health-check probe and a cleanup func alongside it.
func buildFaceEngine(ctx context.Context, cfg *config.Config, metrics *observe.Metrics) (*face.Engine, func(context.Context) error, func(), error) {
	var (
		store face.Store
		ping  func(context.Context) error
		cleanup = func() {}
	)
	switch cfg.FaceStore.Backend {
	case config.FaceBackendPostgres:
		pg, pool, err := face.Connect(ctx, cfg.FaceStore.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect face store: %w", err)
		}
		store = pg
		ping = pg.Ping
		cleanup = pool.Close
	default:
		fs := face.NewFileStore(cfg.FaceStore.Path)
		store = fs
		ping = func(context.Context) error { return nil }
	}

	opts := []face.Option{face.WithMetrics(metrics)}
	if cfg.FaceStore.Index == config.FaceIndexHNSW {
		opts = append(opts, face.WithIndex(face.NewIndex()))
	}
	engine := face.NewEngine(store, opts...)
	if cfg.FaceStore.Index == config.FaceIndexHNSW {
		if err := engine.WarmIndex(ctx); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("warm face index: %w", err)
		}
	}
	return engine, ping, cleanup, nil
}

// buildLedgerGate constructs the configured vote ledger backend and a
// health-check probe for it.
func buildLedgerGate(ctx context.Context, cfg *config.Config) (ledger.Gate, func(context.Context) error, error) {
	switch cfg.Ledger.Backend {
	case config.LedgerBackendEthereum:
		gate, err := ledger.NewEthGate(ctx, ledger.EthConfig{
			RPCURL:          cfg.Ledger.RPCURL,
			ContractAddress: cfg.Ledger.ContractAddress,
			PrivateKey:      cfg.Ledger.PrivateKey,
			ChainID:         cfg.Ledger.ChainID,
			GasLimit:        cfg.Ledger.GasLimit,
			CallTimeout:     cfg.Ledger.CallTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return gate, gate.Ping, nil
	default:
		gate := ledger.NewMemoryGate()
		return gate, gate.Ping, nil
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        VeriVote — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Listen addr   : %-20s ║\n", trunc(cfg.Server.ListenAddr))
	fmt.Printf("║  Face store    : %-20s ║\n", trunc(string(cfg.FaceStore.Backend)))
	fmt.Printf("║  Face index    : %-20s ║\n", trunc(string(cfg.FaceStore.Index)))
	fmt.Printf("║  Vote ledger   : %-20s ║\n", trunc(string(cfg.Ledger.Backend)))
	if cfg.Ledger.Backend == config.LedgerBackendEthereum {
		fmt.Printf("║  Contract      : %-20s ║\n", trunc(cfg.Ledger.ContractAddress))
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func trunc(s string) string {
	if s == "" {
		return "(not configured)"
	}
	if len(s) > 20 {
		return s[:17] + "…"
	}
	return s
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
