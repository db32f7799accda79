package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/defistate/clmm-oracle-go/cmd/oracle/config"
	"github.com/defistate/clmm-oracle-go/ledger"
	"github.com/defistate/clmm-oracle-go/oracle"
	"github.com/defistate/clmm-oracle-go/streams/jsonrpc/server"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// create the log handler
	rootLogHandler := slog.NewJSONHandler(os.Stdout, nil)
	close := func() {
		os.Exit(1)
	}

	rootLogger := slog.New(rootLogHandler)
	prometheusRegistry := prometheus.DefaultRegisterer
	cfg, err := loadConfig()
	if err != nil {
		rootLogger.Error("Failed to load configuration", "error", err)
		close()
	}

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// validated by LoadConfig
	admin, _ := cfg.AdminKey()
	policy, _ := cfg.Policy()
	programID, _ := cfg.ProgramKey()

	store, err := ledger.NewWALStore(cfg.Ledger)
	if err != nil {
		rootLogger.Error("Failed to open ledger", "dir", cfg.Ledger.Dir, "error", err)
		close()
	}
	defer store.Close()
	rootLogger.Info("Ledger replayed", "accounts", store.Len(), "wal_index", store.CurrentIndex())

	o, err := oracle.New(&oracle.Config{
		Logger:       rootLogger.With("component", "oracle"),
		Registerer:   prometheusRegistry,
		Store:        store,
		Admin:        admin,
		ProgramID:    programID,
		CursorPolicy: policy,
	})
	if err != nil {
		rootLogger.Error("Failed to initialize Oracle", "error", err)
		close()
	}

	solanaClient := rpc.New(cfg.Solana.RPCURL)
	defer solanaClient.Close()
	syncer, err := ledger.NewSyncer(ledger.SyncerConfig{
		Fetcher:    solanaClient,
		Store:      store,
		Keys:       o.WatchedAccounts,
		Logger:     rootLogger.With("component", "ledger-sync"),
		Interval:   cfg.Solana.SyncInterval,
		Commitment: cfg.Solana.CommitmentType(),
	})
	if err != nil {
		rootLogger.Error("Failed to initialize account sync", "error", err)
		close()
	}
	var syncWG sync.WaitGroup
	syncWG.Go(func() { syncer.Run(ctx) })

	svc, err := server.New(server.Config{
		Oracle:         o,
		Logger:         rootLogger.With("component", "jsonrpc-server"),
		StreamInterval: cfg.StreamInterval,
	})
	if err != nil {
		rootLogger.Error("Failed to initialize RPC service", "error", err)
		close()
	}
	rpcServer, err := server.NewServer(svc)
	if err != nil {
		rootLogger.Error("Failed to initialize RPC server", "error", err)
		close()
	}
	defer rpcServer.Stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", rpcServer.WebsocketHandler([]string{"*"}))
	mux.Handle("/", rpcServer)
	servers := []*http.Server{{Addr: cfg.ListenAddr, Handler: mux}}

	if cfg.MetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			rootLogger.Info("Listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		rootLogger.Info("Shutting down")
	case err := <-errCh:
		rootLogger.Error("HTTP server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rootLogger.Warn("HTTP server shutdown", "addr", srv.Addr, "error", err)
		}
	}

	// the ledger closes after the last sync round commits
	stop()
	syncWG.Wait()
}

func loadConfig() (*config.OracleConfig, error) {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("Loading configuration from: %s", *configPath)
	return config.LoadConfig(*configPath)
}
