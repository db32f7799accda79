package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/defistate/clmm-oracle-go/oracle"
	"github.com/defistate/clmm-oracle-go/protocols/registry"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gagliardetto/solana-go"
)

const (
	// RpcNamespace is the namespace under which the service is registered.
	RpcNamespace = "oracle"

	EventTypePrice = "price"
	EventTypeError = "error"

	defaultStreamInterval = 2 * time.Second
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Oracle is the part of *oracle.Oracle the service exposes.
type Oracle interface {
	QueryPrice(registryKey solana.PublicKey) (*engine.PriceReport, error)
	QueryPoolPrice(registryKey, pool solana.PublicKey) (*engine.PoolPrice, error)
	LoadRegistry(key solana.PublicKey) (*registry.Config, error)
	LoadPool(registryKey, pool solana.PublicKey) (*oracle.PoolState, error)
	AllocateRegistry(payer, registryKey solana.PublicKey, lamports uint64) error
	InitializeConfig(req oracle.InitializeRequest) (*registry.Config, error)
	CloseAccount(signer, registryKey solana.PublicKey) (uint64, error)
}

// Config holds the dependencies of a Service.
type Config struct {
	Oracle         Oracle
	Logger         Logger
	StreamInterval time.Duration
}

func (c *Config) validate() error {
	if c.Oracle == nil {
		return errors.New("config: Oracle is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.StreamInterval < 0 {
		return errors.New("config: StreamInterval must not be negative")
	}
	return nil
}

// SubscriptionEvent is the wrapper object pushed to subscribers.
type SubscriptionEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"`
}

// StreamError is the payload of an error event.
type StreamError struct {
	Registry solana.PublicKey `json:"registry"`
	Code     int              `json:"code"`
	Message  string           `json:"message"`
}

// InitializeConfigRequest is an initialize_config call signed by the creator.
type InitializeConfigRequest struct {
	oracle.InitializeRequest
	Signature solana.Signature `json:"signature"`
}

// AllocateRegistryRequest is an allocate_account call signed by the payer,
// who funds the new record with Lamports.
type AllocateRegistryRequest struct {
	Payer     solana.PublicKey `json:"payer"`
	Registry  solana.PublicKey `json:"registry"`
	Lamports  uint64           `json:"lamports"`
	Signature solana.Signature `json:"signature"`
}

// CloseAccountRequest is a close_account call signed by the closing key.
type CloseAccountRequest struct {
	Signer    solana.PublicKey `json:"signer"`
	Registry  solana.PublicKey `json:"registry"`
	Signature solana.Signature `json:"signature"`
}

// Service exposes an Oracle over JSON-RPC.
type Service struct {
	oracle   Oracle
	logger   Logger
	interval time.Duration
}

func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	interval := cfg.StreamInterval
	if interval == 0 {
		interval = defaultStreamInterval
	}
	return &Service{
		oracle:   cfg.Oracle,
		logger:   cfg.Logger,
		interval: interval,
	}, nil
}

// NewServer returns an rpc.Server with svc registered under RpcNamespace.
func NewServer(svc *Service) (*rpc.Server, error) {
	server := rpc.NewServer()
	if err := server.RegisterName(RpcNamespace, svc); err != nil {
		return nil, fmt.Errorf("failed to register oracle service: %w", err)
	}
	return server, nil
}

// GetPrice prices the registry record at key.
func (s *Service) GetPrice(key solana.PublicKey) (*engine.PriceReport, error) {
	report, err := s.oracle.QueryPrice(key)
	return report, toRPCError(err)
}

// GetRegistry returns the decoded registry record at key.
func (s *Service) GetRegistry(key solana.PublicKey) (*registry.Config, error) {
	cfg, err := s.oracle.LoadRegistry(key)
	return cfg, toRPCError(err)
}

// GetPoolPrice returns the price the registry at key reads from pool.
func (s *Service) GetPoolPrice(key, pool solana.PublicKey) (*engine.PoolPrice, error) {
	price, err := s.oracle.QueryPoolPrice(key, pool)
	return price, toRPCError(err)
}

// GetPoolState returns the decoded account of a pool registered at key.
func (s *Service) GetPoolState(key, pool solana.PublicKey) (*oracle.PoolState, error) {
	state, err := s.oracle.LoadPool(key, pool)
	return state, toRPCError(err)
}

// AllocateRegistry creates an empty registry record funded by the payer,
// who must sign SigningMessage(OpAllocateAccount, registry).
func (s *Service) AllocateRegistry(req AllocateRegistryRequest) (bool, error) {
	if err := verify(req.Payer, req.Signature, oracle.OpAllocateAccount, req.Registry); err != nil {
		return false, toRPCError(err)
	}
	if err := s.oracle.AllocateRegistry(req.Payer, req.Registry, req.Lamports); err != nil {
		return false, toRPCError(err)
	}
	return true, nil
}

// InitializeConfig writes a new registry record. The creator must sign
// SigningMessage(OpInitializeConfig, registry).
func (s *Service) InitializeConfig(req InitializeConfigRequest) (*registry.Config, error) {
	if err := verify(req.Creator, req.Signature, oracle.OpInitializeConfig, req.Registry); err != nil {
		return nil, toRPCError(err)
	}
	cfg, err := s.oracle.InitializeConfig(req.InitializeRequest)
	return cfg, toRPCError(err)
}

// CloseAccount closes a registry record and returns the lamports credited
// to the signer, who must sign SigningMessage(OpCloseAccount, registry).
func (s *Service) CloseAccount(req CloseAccountRequest) (uint64, error) {
	if err := verify(req.Signer, req.Signature, oracle.OpCloseAccount, req.Registry); err != nil {
		return 0, toRPCError(err)
	}
	lamports, err := s.oracle.CloseAccount(req.Signer, req.Registry)
	return lamports, toRPCError(err)
}

// SubscribePrices pushes a price event for the registry at key right away
// and then on every stream interval. Failed queries are pushed as error
// events; the subscription stays open.
func (s *Service) SubscribePrices(ctx context.Context, key solana.PublicKey) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	rpcSub := notifier.CreateSubscription()
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			if err := notifier.Notify(rpcSub.ID, s.event(key)); err != nil {
				s.logger.Warn("Error notifying subscriber", "registry", key, "error", err)
				return
			}
			select {
			case <-ticker.C:
			case <-rpcSub.Err():
				return
			}
		}
	}()
	return rpcSub, nil
}

func (s *Service) event(key solana.PublicKey) *SubscriptionEvent {
	typ := EventTypePrice
	var payload any

	report, err := s.oracle.QueryPrice(key)
	if err != nil {
		typ = EventTypeError
		rpcErr := toRPCError(err).(*Error)
		payload = StreamError{Registry: key, Code: rpcErr.Code, Message: rpcErr.Msg}
	} else {
		payload = report
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		typ = EventTypeError
		raw, _ = json.Marshal(StreamError{Registry: key, Code: CodeInternal, Message: err.Error()})
	}
	return &SubscriptionEvent{Type: typ, Payload: raw, SentAt: time.Now().UnixNano()}
}
