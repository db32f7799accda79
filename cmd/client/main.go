package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/defistate/clmm-oracle-go/cmd/client/config"
	"github.com/defistate/clmm-oracle-go/streams/jsonrpc/client"
)

const (
	DefaultClientReportBufferSize = 100
)

func main() {
	// create the log handler
	rootLogHandler := slog.NewJSONHandler(os.Stdout, nil)
	close := func() {
		os.Exit(1)
	}

	rootLogger := slog.New(rootLogHandler)
	cfg, err := loadConfig()
	if err != nil {
		rootLogger.Error("Failed to load configuration", "error", err)
		close()
	}

	registry, err := cfg.RegistryKey()
	if err != nil {
		rootLogger.Error("Invalid registry", "error", err)
		close()
	}

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.NewClient(
		ctx,
		client.Config{
			URL:        cfg.PriceStreamURL,
			Logger:     rootLogger.With("component", "jsonrpc-client"),
			BufferSize: DefaultClientReportBufferSize,
			Registry:   registry,
		},
	)
	if err != nil {
		rootLogger.Error("Failed to initialize Client", "registry", registry, "error", err)
		close()
	}

	for {
		select {
		case report := <-c.Reports():
			rootLogger.Info("Price",
				"registry", report.Registry,
				"token_mint", report.TokenMint,
				"price", report.Price,
				"pools", len(report.Pools),
			)
		case err, ok := <-c.Err():
			if ok {
				rootLogger.Error("Fatal client error", "error", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

func loadConfig() (*config.ClientConfig, error) {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("Loading configuration from: %s", *configPath)
	return config.LoadConfig(*configPath)
}
