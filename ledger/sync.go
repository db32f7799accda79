package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// MaxAccountsPerRequest is the getMultipleAccounts key limit of Solana RPC nodes.
const MaxAccountsPerRequest = 100

const defaultSyncInterval = 2 * time.Second

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// AccountFetcher is the part of *rpc.Client a Syncer uses.
type AccountFetcher interface {
	GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error)
}

// SyncerConfig holds the dependencies of a Syncer.
type SyncerConfig struct {
	Fetcher AccountFetcher
	Store   Store
	// Keys returns the accounts to mirror on each round.
	Keys       func() ([]solana.PublicKey, error)
	Logger     Logger
	Interval   time.Duration
	Commitment rpc.CommitmentType
}

func (c *SyncerConfig) validate() error {
	if c.Fetcher == nil {
		return errors.New("config: Fetcher is required")
	}
	if c.Store == nil {
		return errors.New("config: Store is required")
	}
	if c.Keys == nil {
		return errors.New("config: Keys is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Interval < 0 {
		return errors.New("config: Interval must not be negative")
	}
	return nil
}

// Syncer mirrors chain accounts into a Store. Each round fetches the
// accounts with getMultipleAccounts and commits them in one Update, so a
// price query never sees half a round.
type Syncer struct {
	fetcher    AccountFetcher
	store      Store
	keys       func() ([]solana.PublicKey, error)
	logger     Logger
	interval   time.Duration
	commitment rpc.CommitmentType
}

func NewSyncer(cfg SyncerConfig) (*Syncer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultSyncInterval
	}
	commitment := cfg.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Syncer{
		fetcher:    cfg.Fetcher,
		store:      cfg.Store,
		keys:       cfg.Keys,
		logger:     cfg.Logger,
		interval:   interval,
		commitment: commitment,
	}, nil
}

// SyncResult summarizes one round.
type SyncResult struct {
	// Slot is the lowest context slot among the round's requests.
	Slot    uint64
	Fetched int
	Updated int
	Removed int
}

// Sync runs one round. Accounts the node reports as missing are removed
// from the store; unchanged accounts are not rewritten.
func (s *Syncer) Sync(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	keys, err := s.keys()
	if err != nil {
		return res, fmt.Errorf("sync: keys: %w", err)
	}
	if len(keys) == 0 {
		return res, nil
	}

	fetched := make([]*rpc.Account, 0, len(keys))
	for start := 0; start < len(keys); start += MaxAccountsPerRequest {
		end := min(start+MaxAccountsPerRequest, len(keys))
		out, err := s.fetcher.GetMultipleAccountsWithOpts(ctx, keys[start:end], &rpc.GetMultipleAccountsOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: s.commitment,
		})
		if err != nil {
			return res, fmt.Errorf("sync: getMultipleAccounts: %w", err)
		}
		if len(out.Value) != end-start {
			return res, fmt.Errorf("sync: getMultipleAccounts returned %d accounts for %d keys", len(out.Value), end-start)
		}
		if res.Slot == 0 || out.Context.Slot < res.Slot {
			res.Slot = out.Context.Slot
		}
		fetched = append(fetched, out.Value...)
	}
	res.Fetched = len(fetched)

	err = s.store.Update(func(tx Tx) error {
		for i, remote := range fetched {
			key := keys[i]
			local, err := tx.Get(key)
			exists := err == nil
			if err != nil && !errors.Is(err, ErrAccountNotFound) {
				return err
			}

			if remote == nil {
				if exists {
					res.Removed++
					if err := tx.Delete(key); err != nil {
						return err
					}
				}
				continue
			}

			acc := Account{Key: key, Owner: remote.Owner, Lamports: remote.Lamports}
			if remote.Data != nil {
				acc.Data = remote.Data.GetBinary()
			}
			if exists && sameAccount(local, acc) {
				continue
			}
			res.Updated++
			if err := tx.Put(acc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync: commit: %w", err)
	}
	return res, nil
}

// Run syncs immediately and then on every interval until ctx is done. Failed
// rounds are logged and retried on the next tick.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		res, err := s.Sync(ctx)
		if err != nil {
			s.logger.Warn("Account sync failed", "error", err)
		} else {
			s.logger.Debug("Accounts synced", "slot", res.Slot, "fetched", res.Fetched, "updated", res.Updated, "removed", res.Removed)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sameAccount(a, b Account) bool {
	return a.Owner == b.Owner && a.Lamports == b.Lamports && bytes.Equal(a.Data, b.Data)
}
