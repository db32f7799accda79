package oracle

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"time"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/defistate/clmm-oracle-go/ledger"
	"github.com/defistate/clmm-oracle-go/protocols/raydiumclmm"
	"github.com/defistate/clmm-oracle-go/protocols/registry"
	"github.com/defistate/clmm-oracle-go/protocols/registry/indexer"
	"github.com/defistate/clmm-oracle-go/protocols/whirlpool"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Logger defines a standard interface for structured, leveled logging,
// compatible with the standard library's slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the dependencies of an Oracle.
type Config struct {
	Logger     Logger
	Registerer prometheus.Registerer
	Store      ledger.Store
	// Admin is the key allowed to close registry records. It is ignored
	// when Authorizer is set.
	Admin        solana.PublicKey
	Authorizer   Authorizer
	CursorPolicy CursorPolicy
	// ProgramID owns the registry accounts AllocateRegistry creates.
	ProgramID solana.PublicKey
}

func (c *Config) validate() error {
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registerer == nil {
		return errors.New("config: Registerer is required")
	}
	if c.Store == nil {
		return errors.New("config: Store is required")
	}
	if c.Authorizer == nil && c.Admin.IsZero() {
		return errors.New("config: Admin or Authorizer is required")
	}
	if c.CursorPolicy != CursorAdvanceAll && c.CursorPolicy != CursorLegacy {
		return fmt.Errorf("config: unknown cursor policy %s", c.CursorPolicy)
	}
	return nil
}

// Oracle prices tokens from the pools listed in registry records and
// manages the lifecycle of those records.
type Oracle struct {
	logger     Logger
	metrics    *Metrics
	store      ledger.Store
	authorizer Authorizer
	indexer    *indexer.Indexer
	policy     CursorPolicy
	programID  solana.PublicKey
	now        func() time.Time
}

func New(cfg *Config) (*Oracle, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	authorizer := cfg.Authorizer
	if authorizer == nil {
		authorizer = AdminAuthorizer{Admin: cfg.Admin}
	}
	return &Oracle{
		logger:     cfg.Logger,
		metrics:    NewMetrics(cfg.Registerer),
		store:      cfg.Store,
		authorizer: authorizer,
		indexer:    indexer.New(),
		policy:     cfg.CursorPolicy,
		programID:  cfg.ProgramID,
		now:        time.Now,
	}, nil
}

// CursorPolicy returns the policy used by GetPrice.
func (o *Oracle) CursorPolicy() CursorPolicy { return o.policy }

// GetPrice prices cfg from the supplied state handles. Each pool price and
// the aggregate are logged.
func (o *Oracle) GetPrice(cfg *registry.Config, handles []ledger.Account) (*engine.PriceReport, error) {
	start := o.now()
	report, err := Aggregate(cfg, handles, o.policy)
	o.metrics.queryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		o.metrics.queriesTotal.WithLabelValues(resultLabel(err)).Inc()
		o.logger.Warn("price query failed", "handles", len(handles), "error", err)
		return nil, err
	}
	o.metrics.queriesTotal.WithLabelValues("ok").Inc()
	report.ComputedAt = start.UnixNano()

	mint := cfg.TokenMint.String()
	for _, p := range report.Pools {
		o.logger.Info("pool price",
			"slot", p.Slot,
			"protocol", p.Protocol.String(),
			"pool", p.PoolAccount,
			"price", p.Price,
			"price_decimal", p.PriceDecimal.String(),
		)
		o.metrics.poolPrice.WithLabelValues(mint, strconv.Itoa(p.Slot), p.Protocol.String()).Set(p.PriceDecimal.InexactFloat64())
	}
	o.logger.Info("price",
		"token_mint", mint,
		"pools", report.NumOfPools,
		"price", report.Price,
		"handles_consumed", report.HandlesConsumed,
		"handles_supplied", report.HandlesSupplied,
	)
	if len(report.UnusedHandles) > 0 {
		o.logger.Warn("state handles not read", "token_mint", mint, "policy", report.CursorPolicy, "indices", report.UnusedHandles)
	}
	o.metrics.aggregatePrice.WithLabelValues(mint).Set(decimal.NewFromBigInt(report.Price, 0).InexactFloat64())
	return report, nil
}

// snapshot is a registry record and its state handles read from one store view.
type snapshot struct {
	cfg     *registry.Config
	handles []ledger.Account
}

func (o *Oracle) snapshot(registryKey solana.PublicKey) (*snapshot, error) {
	var snap snapshot
	err := o.store.View(func(tx ledger.ReadTx) error {
		var err error
		if snap.cfg, err = loadRegistry(tx, registryKey); err != nil {
			return err
		}
		if snap.handles, err = tx.GetMany(snap.cfg.FlattenedAccounts()); err != nil {
			return fmt.Errorf("%w: state handles: %w", engine.ErrInvalidConfiguration, err)
		}
		return nil
	})
	if err != nil {
		o.metrics.queriesTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	return &snap, nil
}

func (o *Oracle) price(registryKey solana.PublicKey, snap *snapshot) (*engine.PriceReport, error) {
	report, err := o.GetPrice(snap.cfg, snap.handles)
	if err != nil {
		return nil, err
	}
	report.Registry = registryKey
	return report, nil
}

// QueryPrice loads the registry record at registryKey and its state handles
// from one store snapshot and prices it.
func (o *Oracle) QueryPrice(registryKey solana.PublicKey) (*engine.PriceReport, error) {
	snap, err := o.snapshot(registryKey)
	if err != nil {
		return nil, err
	}
	return o.price(registryKey, snap)
}

// QueryPoolPrice prices the registry at registryKey and returns the slot
// that lists pool. The registry and the handles come from one snapshot.
func (o *Oracle) QueryPoolPrice(registryKey, pool solana.PublicKey) (*engine.PoolPrice, error) {
	snap, err := o.snapshot(registryKey)
	if err != nil {
		return nil, err
	}
	entry, ok := o.indexer.Index(snap.cfg).GetByPoolAccount(pool)
	if !ok {
		return nil, fmt.Errorf("%w: pool %s is not registered in %s", engine.ErrInvalidConfiguration, pool, registryKey)
	}
	report, err := o.price(registryKey, snap)
	if err != nil {
		return nil, err
	}
	price, ok := report.PoolBySlot(entry.Slot)
	if !ok {
		return nil, fmt.Errorf("slot %d missing from report", entry.Slot)
	}
	return &price, nil
}

// PoolState is the decoded account behind one registry slot. Exactly one
// of Whirlpool and RaydiumCLMM is set.
type PoolState struct {
	Slot         int                    `json:"slot"`
	Protocol     engine.ProtocolTag     `json:"protocol"`
	Account      solana.PublicKey       `json:"account"`
	Dependencies []solana.PublicKey     `json:"dependencies"`
	Whirlpool    *whirlpool.Pool        `json:"whirlpool,omitempty"`
	RaydiumCLMM  *raydiumclmm.PoolState `json:"raydiumClmm,omitempty"`
}

// LoadPool decodes the pool account registered in registryKey.
func (o *Oracle) LoadPool(registryKey, pool solana.PublicKey) (*PoolState, error) {
	var state *PoolState
	err := o.store.View(func(tx ledger.ReadTx) error {
		cfg, err := loadRegistry(tx, registryKey)
		if err != nil {
			return err
		}
		entry, ok := o.indexer.Index(cfg).GetByPoolAccount(pool)
		if !ok {
			return fmt.Errorf("%w: pool %s is not registered in %s", engine.ErrInvalidConfiguration, pool, registryKey)
		}
		acc, err := tx.Get(pool)
		if err != nil {
			return fmt.Errorf("%w: pool account: %w", engine.ErrInvalidConfiguration, err)
		}

		state = &PoolState{
			Slot:         entry.Slot,
			Protocol:     entry.Protocol,
			Account:      pool,
			Dependencies: entry.Dependencies(),
		}
		switch entry.Protocol {
		case engine.ProtocolWhirlpool:
			state.Whirlpool, err = whirlpool.Decode(acc.Data)
		case engine.ProtocolRaydiumCLMM:
			state.RaydiumCLMM, err = raydiumclmm.Decode(acc.Data)
		default:
			err = fmt.Errorf("%w: slot %d: %d", engine.ErrUnknownProtocol, entry.Slot, uint8(entry.Protocol))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// WatchedAccounts returns every pool and dependency account listed by the
// registry records in the store, without duplicates. Accounts that do not
// hold a valid registry record are skipped.
func (o *Oracle) WatchedAccounts() ([]solana.PublicKey, error) {
	seen := make(map[solana.PublicKey]struct{})
	var keys []solana.PublicKey
	add := func(key solana.PublicKey) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	err := o.store.View(func(tx ledger.ReadTx) error {
		tx.Range(func(acc ledger.Account) bool {
			cfg, err := registry.Unmarshal(acc.Data)
			if err != nil || cfg.Validate() != nil {
				return true
			}
			for _, p := range o.indexer.Index(cfg).All() {
				add(p.PoolAccount)
				for _, dep := range p.Dependencies() {
					add(dep)
				}
			}
			return true
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// LoadRegistry reads and decodes the registry record at key.
func (o *Oracle) LoadRegistry(key solana.PublicKey) (*registry.Config, error) {
	acc, err := o.store.Get(key)
	if err != nil {
		return nil, err
	}
	return registry.Unmarshal(acc.Data)
}

type accountGetter interface {
	Get(key solana.PublicKey) (ledger.Account, error)
}

func loadRegistry(tx accountGetter, key solana.PublicKey) (*registry.Config, error) {
	acc, err := tx.Get(key)
	if err != nil {
		return nil, err
	}
	return registry.Unmarshal(acc.Data)
}

// AllocateRegistry creates the zero-filled account InitializeConfig writes
// into. lamports move from payer's ledger balance into the new account; a
// zero deposit needs no payer account.
func (o *Oracle) AllocateRegistry(payer, registryKey solana.PublicKey, lamports uint64) error {
	err := o.allocate(payer, registryKey, lamports)
	o.metrics.lifecycleTotal.WithLabelValues(OpAllocateAccount, resultLabel(err)).Inc()
	if err != nil {
		o.logger.Warn("allocate registry failed", "registry", registryKey, "payer", payer, "error", err)
		return err
	}
	o.logger.Info("registry allocated", "registry", registryKey, "payer", payer, "lamports", lamports)
	return nil
}

func (o *Oracle) allocate(payer, registryKey solana.PublicKey, lamports uint64) error {
	if err := o.authorizer.Authorize(OpAllocateAccount, payer, registryKey); err != nil {
		return err
	}
	if payer.Equals(registryKey) {
		return fmt.Errorf("%w: payer cannot fund itself", engine.ErrInvalidConfiguration)
	}

	return o.store.Update(func(tx ledger.Tx) error {
		if lamports > 0 {
			src, err := tx.Get(payer)
			if err != nil {
				return fmt.Errorf("%w: payer: %w", engine.ErrInvalidConfiguration, err)
			}
			rest, borrow := bits.Sub64(src.Lamports, lamports, 0)
			if borrow != 0 {
				return fmt.Errorf("%w: payer %s holds %d lamports, need %d",
					engine.ErrInvalidConfiguration, payer, src.Lamports, lamports)
			}
			src.Lamports = rest
			if err := tx.Put(src); err != nil {
				return err
			}
		}
		err := ledger.Allocate(tx, registryKey, o.programID, lamports, registry.Size)
		if errors.Is(err, ledger.ErrAccountExists) {
			return fmt.Errorf("%w: %w", engine.ErrInvalidConfiguration, err)
		}
		return err
	})
}

// InitializeRequest carries the inputs of InitializeConfig. Registry must
// name a zero-filled account of at least registry.Size bytes.
type InitializeRequest struct {
	Registry solana.PublicKey `json:"registry"`
	registry.InitParams
}

// InitializeConfig validates req, builds the registry record and writes it
// into the pre-allocated registry account.
func (o *Oracle) InitializeConfig(req InitializeRequest) (*registry.Config, error) {
	cfg, err := o.initialize(req)
	o.metrics.lifecycleTotal.WithLabelValues(OpInitializeConfig, resultLabel(err)).Inc()
	if err != nil {
		o.logger.Warn("initialize config failed", "registry", req.Registry, "error", err)
		return nil, err
	}
	o.logger.Info("registry initialized",
		"registry", req.Registry,
		"creator", cfg.Creator,
		"token_mint", cfg.TokenMint,
		"pools", cfg.NumOfPools,
	)
	return cfg, nil
}

func (o *Oracle) initialize(req InitializeRequest) (*registry.Config, error) {
	if err := o.authorizer.Authorize(OpInitializeConfig, req.Creator, req.Registry); err != nil {
		return nil, err
	}
	cfg, err := registry.Initialize(req.InitParams)
	if err != nil {
		return nil, err
	}

	err = o.store.Update(func(tx ledger.Tx) error {
		acc, err := tx.Get(req.Registry)
		if err != nil {
			return fmt.Errorf("%w: registry account: %w", engine.ErrInvalidConfiguration, err)
		}
		if len(acc.Data) < registry.Size {
			return fmt.Errorf("%w: registry account holds %d bytes, need %d",
				engine.ErrInvalidConfiguration, len(acc.Data), registry.Size)
		}
		if !zeroed(acc.Data) {
			return fmt.Errorf("%w: registry account %s is already initialized",
				engine.ErrInvalidConfiguration, req.Registry)
		}
		if err := cfg.MarshalInto(acc.Data); err != nil {
			return err
		}
		return tx.Put(acc)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// CloseAccount deletes the registry record at registryKey and credits its
// lamports to signer. Only signers accepted by the Authorizer may close.
func (o *Oracle) CloseAccount(signer, registryKey solana.PublicKey) (uint64, error) {
	lamports, err := o.close(signer, registryKey)
	o.metrics.lifecycleTotal.WithLabelValues(OpCloseAccount, resultLabel(err)).Inc()
	if err != nil {
		o.logger.Warn("close account failed", "registry", registryKey, "signer", signer, "error", err)
		return 0, err
	}
	o.logger.Info("registry closed", "registry", registryKey, "signer", signer, "lamports", lamports)
	return lamports, nil
}

func (o *Oracle) close(signer, registryKey solana.PublicKey) (uint64, error) {
	if err := o.authorizer.Authorize(OpCloseAccount, signer, registryKey); err != nil {
		return 0, err
	}
	if signer.Equals(registryKey) {
		return 0, fmt.Errorf("%w: signer cannot close itself", engine.ErrInvalidConfiguration)
	}

	var lamports uint64
	err := o.store.Update(func(tx ledger.Tx) error {
		acc, err := tx.Get(registryKey)
		if err != nil {
			return err
		}
		if _, err := registry.Unmarshal(acc.Data); err != nil {
			return err
		}

		dest, err := tx.Get(signer)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			dest = ledger.Account{Key: signer}
		} else if err != nil {
			return err
		}
		sum, carry := bits.Add64(dest.Lamports, acc.Lamports, 0)
		if carry != 0 {
			return fmt.Errorf("%w: crediting %d lamports to %s", engine.ErrArithmeticOverflow, acc.Lamports, signer)
		}
		dest.Lamports = sum
		if err := tx.Put(dest); err != nil {
			return err
		}
		lamports = acc.Lamports
		return tx.Delete(registryKey)
	})
	if err != nil {
		return 0, err
	}
	return lamports, nil
}

func zeroed(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, engine.ErrDecode):
		return "decode_error"
	case errors.Is(err, engine.ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, engine.ErrUnauthorizedAccess):
		return "unauthorized"
	case errors.Is(err, engine.ErrArithmeticOverflow):
		return "overflow"
	case errors.Is(err, ledger.ErrAccountNotFound):
		return "not_found"
	default:
		return "error"
	}
}
