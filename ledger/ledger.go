// Package ledger holds the account state the oracle reads and writes: pool
// accounts supplied as state handles and registry records.
package ledger

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrAccountNotFound = errors.New("ledger: account not found")
	ErrAccountExists   = errors.New("ledger: account already exists")
)

// Account is an opaque state handle: a keyed byte buffer with an owner and a
// lamport balance.
type Account struct {
	Key      solana.PublicKey `json:"key"`
	Owner    solana.PublicKey `json:"owner"`
	Lamports uint64           `json:"lamports"`
	Data     []byte           `json:"data"`
}

// Clone returns a deep copy of a.
func (a Account) Clone() Account {
	a.Data = append([]byte(nil), a.Data...)
	return a
}

// ReadTx is a read-only snapshot of a store.
type ReadTx interface {
	Get(key solana.PublicKey) (Account, error)
	// GetMany returns the accounts in key order. Any missing key fails the
	// whole call.
	GetMany(keys []solana.PublicKey) ([]Account, error)
	// Range calls fn for every account until fn returns false. The order is
	// unspecified.
	Range(fn func(acc Account) bool)
}

// Tx is the view of a store inside Update. Reads observe the transaction's
// own writes.
type Tx interface {
	Get(key solana.PublicKey) (Account, error)
	Put(acc Account) error
	Delete(key solana.PublicKey) error
}

// Store is the account ledger. All returned accounts are copies.
type Store interface {
	Get(key solana.PublicKey) (Account, error)
	Put(acc Account) error
	Delete(key solana.PublicKey) error
	// View runs fn against a consistent snapshot. Concurrent views do not
	// block each other.
	View(fn func(tx ReadTx) error) error
	// Update runs fn atomically. Writes are applied only if fn returns nil.
	Update(fn func(tx Tx) error) error
}

// Allocate creates a zero-filled account of the given size inside tx. It
// fails with ErrAccountExists if key is already present.
func Allocate(tx Tx, key, owner solana.PublicKey, lamports uint64, size int) error {
	if _, err := tx.Get(key); err == nil {
		return fmt.Errorf("%w: %s", ErrAccountExists, key)
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}
	return tx.Put(Account{
		Key:      key,
		Owner:    owner,
		Lamports: lamports,
		Data:     make([]byte, size),
	})
}
