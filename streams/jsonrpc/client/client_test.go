package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRegistry = solana.MustPublicKeyFromBase58("Czfq3xZZDmsdGdUyrNLtRhGc47cXcZtLG4crryfu44zE")

// --- Test Setup: Mock RPC Server ---

type MockPriceStreamer struct {
	events chan *SubscriptionEvent
	t      *testing.T
}

func SetupMockPriceStreamer(ctx context.Context, t *testing.T, port int, events []*SubscriptionEvent) (<-chan error, error) {
	eventChan := make(chan *SubscriptionEvent, len(events))
	for _, e := range events {
		eventChan <- e
	}
	close(eventChan)

	api := &MockPriceStreamer{events: eventChan, t: t}
	server := rpc.NewServer()
	if err := server.RegisterName(RpcNamespace, api); err != nil {
		return nil, fmt.Errorf("failed to register API: %v", err)
	}

	wsHandler := server.WebsocketHandler([]string{"*"})
	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: wsHandler}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	go func() {
		<-ctx.Done()
		server.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	return errChan, nil
}

func (api *MockPriceStreamer) SubscribePrices(ctx context.Context, registry solana.PublicKey) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}
	if !registry.Equals(testRegistry) {
		return nil, fmt.Errorf("unexpected registry %s", registry)
	}

	rpcSub := notifier.CreateSubscription()
	go func() {
		for event := range api.events {
			select {
			case <-rpcSub.Err():
				return
			default:
				if err := notifier.Notify(rpcSub.ID, event); err != nil {
					api.t.Logf("Error notifying subscriber: %v", err)
					return
				}
			}
		}
	}()
	return rpcSub, nil
}

// --- Test Helpers & Data Generation ---

func priceEvent(t *testing.T, price int64, computedAt int64) *SubscriptionEvent {
	t.Helper()
	payload, err := json.Marshal(engine.PriceReport{
		Registry:   testRegistry,
		NumOfPools: 1,
		Pools: []engine.PoolPrice{{
			Slot:         0,
			Protocol:     engine.ProtocolWhirlpool,
			SqrtPriceX64: new(big.Int).Lsh(big.NewInt(1), 64),
			Price:        big.NewInt(price),
		}},
		Price:      big.NewInt(price),
		ComputedAt: computedAt,
	})
	require.NoError(t, err)
	return &SubscriptionEvent{Type: "price", Payload: payload, SentAt: time.Now().UnixNano()}
}

func errorEvent(t *testing.T) *SubscriptionEvent {
	t.Helper()
	payload, err := json.Marshal(streamError{Registry: testRegistry, Code: -32001, Message: "decode error"})
	require.NoError(t, err)
	return &SubscriptionEvent{Type: "error", Payload: payload, SentAt: time.Now().UnixNano()}
}

func newTestClient(t *testing.T, ctx context.Context, port int) *Client {
	t.Helper()
	client, err := NewClient(ctx, Config{
		URL:        fmt.Sprintf("ws://localhost:%d", port),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		BufferSize: 10,
		Registry:   testRegistry,
	})
	require.NoError(t, err)
	return client
}

// --- Tests ---

func TestConfig_Validation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []Config{
		{Logger: logger, BufferSize: 1, Registry: testRegistry},
		{URL: "ws://x", Logger: logger, Registry: testRegistry},
		{URL: "ws://x", BufferSize: 1, Registry: testRegistry},
		{URL: "ws://x", Logger: logger, BufferSize: 1},
	}
	for i, cfg := range tests {
		_, err := NewClient(context.Background(), cfg)
		assert.Error(t, err, "case %d", i)
	}
}

func TestClient_SuccessfulSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := SetupMockPriceStreamer(ctx, t, 9981, []*SubscriptionEvent{priceEvent(t, 42, 1)})
	require.NoError(t, err)

	client := newTestClient(t, ctx, 9981)

	select {
	case report := <-client.Reports():
		assert.Equal(t, big.NewInt(42), report.Price)
		assert.Equal(t, testRegistry, report.Registry)
		require.Len(t, report.Pools, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for price report")
	}
}

func TestClient_SkipsErrorEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := []*SubscriptionEvent{
		errorEvent(t),
		{Type: "price", Payload: json.RawMessage(`{"price":"not-a-number"}`)},
		priceEvent(t, 7, 2),
	}
	_, err := SetupMockPriceStreamer(ctx, t, 9982, events)
	require.NoError(t, err)

	client := newTestClient(t, ctx, 9982)

	select {
	case report := <-client.Reports():
		assert.Equal(t, big.NewInt(7), report.Price)
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for price report")
	}
}

func TestClient_Reconnection(t *testing.T) {
	const testPort = 9983
	clientCtx, clientCancel := context.WithCancel(context.Background())
	defer clientCancel()

	client := newTestClient(t, clientCtx, testPort)

	server1Ctx, server1Cancel := context.WithCancel(clientCtx)
	_, err := SetupMockPriceStreamer(server1Ctx, t, testPort, []*SubscriptionEvent{priceEvent(t, 1, 1)})
	require.NoError(t, err)

	select {
	case report := <-client.Reports():
		assert.Equal(t, int64(1), report.Price.Int64())
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for first message")
	}

	server1Cancel()
	time.Sleep(100 * time.Millisecond)

	server2Ctx, server2Cancel := context.WithCancel(clientCtx)
	defer server2Cancel()
	_, err = SetupMockPriceStreamer(server2Ctx, t, testPort, []*SubscriptionEvent{priceEvent(t, 2, 2)})
	require.NoError(t, err)

	select {
	case report := <-client.Reports():
		assert.Equal(t, int64(2), report.Price.Int64())
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for client to reconnect")
	}
}

func TestClient_ErrClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(t, ctx, 9984)
	cancel()

	select {
	case _, ok := <-client.Err():
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("client did not stop")
	}
}

// --- ReportProcessor Tests ---

func TestReportProcessor_Flow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rp := NewReportProcessor(logger, 10)

	first, err := json.Marshal(priceEvent(t, 5, 100))
	require.NoError(t, err)
	require.NoError(t, rp.ProcessMessage(first))

	select {
	case report := <-rp.Reports():
		assert.Equal(t, int64(5), report.Price.Int64())
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for report")
	}
	assert.Equal(t, int64(100), rp.Last().ComputedAt)

	t.Run("Should discard a stale report", func(t *testing.T) {
		stale, err := json.Marshal(priceEvent(t, 6, 99))
		require.NoError(t, err)
		require.NoError(t, rp.ProcessMessage(stale))

		select {
		case <-rp.Reports():
			t.Fatal("Should not emit a stale report")
		default:
		}
		assert.Equal(t, int64(5), rp.Last().Price.Int64())
	})

	t.Run("Should log error events without emitting", func(t *testing.T) {
		raw, err := json.Marshal(errorEvent(t))
		require.NoError(t, err)
		require.NoError(t, rp.ProcessMessage(raw))

		select {
		case <-rp.Reports():
			t.Fatal("Should not emit for an error event")
		default:
		}
	})
}

func TestReportProcessor_ValidationErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rp := NewReportProcessor(logger, 10)

	err := rp.ProcessMessage([]byte(`{not-json}`))
	require.Error(t, err)

	err = rp.ProcessMessage([]byte(`{"type":"full","payload":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")

	err = rp.ProcessMessage([]byte(`{"type":"price","payload":{"numOfPools":1}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no price")
}
