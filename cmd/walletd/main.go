// Command walletd runs the wallet daemon.
//
// It hosts the WebSocket bridge that wallet agents dial into, exposes an
// HTTP API for connecting wallets and sending transactions, and relays
// adapter events to NATS with an optional Kafka audit trail.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marko911/wallet-pulse/internal/bridge"
	"github.com/marko911/wallet-pulse/internal/config"
	"github.com/marko911/wallet-pulse/internal/journal"
	"github.com/marko911/wallet-pulse/internal/keystore"
	"github.com/marko911/wallet-pulse/internal/platform/solrpc"
	"github.com/marko911/wallet-pulse/internal/policy"
	"github.com/marko911/wallet-pulse/internal/relay"
	"github.com/marko911/wallet-pulse/internal/wallet"
	"github.com/marko911/wallet-pulse/internal/wallet/backpack"
	"github.com/marko911/wallet-pulse/internal/wallet/burner"
	"github.com/marko911/wallet-pulse/internal/wallet/persistent"
	"github.com/marko911/wallet-pulse/internal/wallet/phantom"
	"github.com/marko911/wallet-pulse/internal/wallet/solflare"
)

func main() {
	configPath := flag.String("config", getEnv("WALLETD_CONFIG", ""), "Path to YAML config file")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	logLevel := flag.String("log-level", getEnv("LOG_LEVEL", ""), "Log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("walletd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rpcClient := rpcFor(cfg.RPC.Endpoint, logger)

	storage, err := buildKeystore(cfg)
	if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}

	bridgeServer := bridge.NewServer(logger)

	adapters := []wallet.Adapter{
		phantom.New(ctx, bridgeServer, cfg.AppURL, logger),
		solflare.New(ctx, bridgeServer, cfg.AppURL, logger),
		backpack.New(ctx, bridgeServer, cfg.AppURL, logger),
		burner.New(logger),
		persistent.New(storage, logger),
	}

	var sigJournal *journal.Journal
	if cfg.Journal.Host != "" {
		jctx, jcancel := context.WithTimeout(ctx, 10*time.Second)
		sigJournal, err = journal.Connect(jctx, cfg.JournalConfig())
		jcancel()
		if err != nil {
			logger.Warn("signature journal unavailable, continuing without it", "error", err)
			sigJournal = nil
		} else {
			defer sigJournal.Close()
			logger.Info("signature journal connected",
				"host", cfg.Journal.Host,
				"database", cfg.Journal.Database,
			)
		}
	}

	var policyEngine *policy.Engine
	if cfg.Policy.Module != "" {
		wasmBytes, err := os.ReadFile(cfg.Policy.Module)
		if err != nil {
			return fmt.Errorf("read policy module: %w", err)
		}
		policyEngine = policy.NewEngine(cfg.PolicyConfig(), logger)
		if err := policyEngine.Load(policyName, wasmBytes); err != nil {
			return fmt.Errorf("load policy module: %w", err)
		}
	}

	var eventRelay *relay.Relay
	var audit *relay.Audit
	if cfg.Audit.Brokers != "" {
		actx, acancel := context.WithTimeout(ctx, 10*time.Second)
		audit, err = relay.NewAudit(actx, cfg.AuditConfig(), logger)
		acancel()
		if err != nil {
			logger.Warn("Kafka audit trail unavailable, continuing without it", "error", err)
			audit = nil
		}
	}
	eventRelay, err = relay.Connect(cfg.RelayConfig(), audit, logger)
	if err != nil {
		logger.Warn("NATS relay unavailable, adapter events will only be logged", "error", err)
		eventRelay = nil
	} else {
		defer eventRelay.Close()
	}

	// Every adapter emitter needs exactly one consumer or sends stall.
	for _, a := range adapters {
		if eventRelay != nil {
			go eventRelay.Pump(ctx, a)
		} else {
			go logPump(ctx, a, logger)
		}
	}

	api := newAPIServer(apiConfig{
		Adapters:   adapters,
		Bridge:     bridgeServer,
		RPC:        rpcClient,
		Journal:    sigJournal,
		Policy:     policyEngine,
		PolicyName: policyName,
		Logger:     logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/bridge", bridgeServer.Handler(ctx))
	api.Register(mux)

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("starting walletd",
		"listen", cfg.Listen,
		"rpc_endpoint", cfg.RPC.Endpoint,
		"keystore_backend", cfg.Keystore.Backend,
	)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// policyName keys the single policy module walletd loads.
const policyName = "default"

func rpcFor(endpoint string, logger *slog.Logger) *solrpc.Client {
	switch endpoint {
	case "devnet", "":
		return solrpc.Devnet(logger)
	case "mainnet":
		return solrpc.Mainnet(logger)
	case "testnet":
		return solrpc.Testnet(logger)
	default:
		return solrpc.New(endpoint, logger)
	}
}

func buildKeystore(cfg *config.Config) (keystore.KeypairStorage, error) {
	switch cfg.Keystore.Backend {
	case "redis":
		return keystore.NewRedisStorage(cfg.RedisConfig())
	case "minio":
		return keystore.NewMinioStorage(cfg.MinioConfig())
	default:
		return keystore.NewFileStorage(cfg.Keystore.Dir), nil
	}
}

// logPump drains an adapter's emitter to the log when no relay is available.
func logPump(ctx context.Context, a wallet.Adapter, logger *slog.Logger) {
	name := a.Name()
	for {
		ev, err := a.Events().Recv(ctx)
		if err != nil {
			return
		}
		logger.Info("wallet event", "wallet", name, "kind", ev.Kind)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
