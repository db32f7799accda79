package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gagliardetto/solana-go"
)

// Constants for reconnection logic
const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second

	// RpcNamespace is the namespace under which the oracle service is registered.
	RpcNamespace            = "oracle"
	PriceSubscriptionMethod = "subscribePrices"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration for the client.
type Config struct {
	URL        string
	Logger     Logger
	BufferSize uint
	Registry   solana.PublicKey
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.BufferSize < 1 {
		return errors.New("config: BufferSize must be greater than 0")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registry.IsZero() {
		return errors.New("config: Registry is required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// ReportProcessor
// -----------------------------------------------------------------------------

// ReportProcessor parses price events, drops stale reports and broadcasts
// the rest. It is decoupled from the networking layer.
type ReportProcessor struct {
	last     *engine.PriceReport
	reportCh chan *engine.PriceReport
	logger   Logger
}

// NewReportProcessor creates a pure logic processor without networking.
func NewReportProcessor(logger Logger, bufferSize uint) *ReportProcessor {
	return &ReportProcessor{
		logger:   logger,
		reportCh: make(chan *engine.PriceReport, bufferSize),
	}
}

// Reports returns a read-only channel for receiving price reports.
func (rp *ReportProcessor) Reports() <-chan *engine.PriceReport {
	return rp.reportCh
}

// Last returns the most recent report accepted, or nil.
func (rp *ReportProcessor) Last() *engine.PriceReport {
	return rp.last
}

// ProcessMessage accepts a raw JSON event, decodes it and, for a fresh
// price report, publishes it.
func (rp *ReportProcessor) ProcessMessage(rawData json.RawMessage) error {
	processingStart := time.Now()
	var event SubscriptionEvent

	if err := json.Unmarshal(rawData, &event); err != nil {
		return fmt.Errorf("failed to unmarshal subscription event: %w", err)
	}

	switch event.Type {
	case "price":
		return rp.handlePrice(event, processingStart)
	case "error":
		return rp.handleError(event)
	default:
		return fmt.Errorf("received unknown event type: %s", event.Type)
	}
}

func (rp *ReportProcessor) handlePrice(event SubscriptionEvent, start time.Time) error {
	var report engine.PriceReport
	if err := json.Unmarshal(event.Payload, &report); err != nil {
		return fmt.Errorf("failed to unmarshal price payload: %w", err)
	}
	if report.Price == nil {
		return errors.New("price payload has no price")
	}

	if rp.last != nil && report.ComputedAt < rp.last.ComputedAt {
		rp.logger.Warn(
			"Received stale price report. Discarding.",
			"last_computed_at", rp.last.ComputedAt,
			"computed_at", report.ComputedAt,
		)
		return nil
	}

	rp.logMetrics(&report, time.Since(start), event.SentAt)
	rp.last = &report
	rp.reportCh <- &report
	return nil
}

func (rp *ReportProcessor) handleError(event SubscriptionEvent) error {
	var streamErr streamError
	if err := json.Unmarshal(event.Payload, &streamErr); err != nil {
		return fmt.Errorf("failed to unmarshal error payload: %w", err)
	}
	rp.logger.Warn("Server failed to price registry",
		"registry", streamErr.Registry,
		"code", streamErr.Code,
		"error", streamErr.Message,
	)
	return nil
}

func (rp *ReportProcessor) logMetrics(report *engine.PriceReport, processingDur time.Duration, sentAt int64) {
	clientFinishTime := time.Now()
	clientStartTime := clientFinishTime.Add(-processingDur)
	serverFinishTime := time.Unix(0, sentAt)

	transportTime := clientStartTime.Sub(serverFinishTime)
	totalLatency := clientFinishTime.Sub(time.Unix(0, report.ComputedAt))

	rp.logger.Debug("Price Report Processed",
		"registry", report.Registry,
		"price", report.Price,
		"pools", len(report.Pools),
		"latency_total_ms", totalLatency.Milliseconds(),
		"latency_transport_ms", transportTime.Milliseconds(),
		"latency_proc_ms", processingDur.Milliseconds(),
	)
}

// -----------------------------------------------------------------------------
// Client (Networking Wrapper)
// -----------------------------------------------------------------------------

// Client manages the connection and uses ReportProcessor for logic.
type Client struct {
	processor *ReportProcessor
	registry  solana.PublicKey
	errCh     chan error
	logger    Logger
}

// NewClient creates a new client and starts streaming prices for cfg.Registry.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := &Client{
		processor: NewReportProcessor(cfg.Logger, cfg.BufferSize),
		registry:  cfg.Registry,
		errCh:     make(chan error, 1),
		logger:    cfg.Logger,
	}

	go client.run(ctx, cfg.URL)
	return client, nil
}

// Reports delegates to the processor's report channel.
func (c *Client) Reports() <-chan *engine.PriceReport {
	return c.processor.Reports()
}

// Err returns a read-only channel that is closed when the client stops.
func (c *Client) Err() <-chan error {
	return c.errCh
}

// run handles the networking lifecycle and feeds data to the processor.
func (c *Client) run(ctx context.Context, url string) {
	defer close(c.errCh)
	reconnectDelay := initialReconnectDelay

	for {
		if ctx.Err() != nil {
			c.logger.Info("Client context canceled, shutting down.")
			return
		}

		c.logger.Info("Attempting to connect to RPC server", "url", url)
		rpcClient, err := rpc.DialContext(ctx, url)
		if err != nil {
			c.logger.Error("Failed to connect to RPC server, will retry...", "error", err, "delay", reconnectDelay)
			if !sleep(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
			continue
		}

		c.logger.Info("Successfully connected to RPC server.")
		reconnectDelay = initialReconnectDelay

		err = c.subscribeAndProcess(ctx, rpcClient)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("Context canceled, shutting down.")
				return
			}
			c.logger.Error("Subscription failed, will reconnect...", "error", err, "delay", reconnectDelay)
			if !sleep(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
		}
	}
}

func (c *Client) subscribeAndProcess(ctx context.Context, rpcClient *rpc.Client) error {
	defer rpcClient.Close()

	rawCh := make(chan json.RawMessage)
	sub, err := rpcClient.Subscribe(ctx, RpcNamespace, rawCh, PriceSubscriptionMethod, c.registry)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	c.logger.Info("Successfully subscribed. Waiting for prices...", "registry", c.registry)
	for {
		select {
		case rawData := <-rawCh:
			if err := c.processor.ProcessMessage(rawData); err != nil {
				c.logger.Error("Error processing message", "error", err)
			}
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping subscription.")
			return ctx.Err()
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
