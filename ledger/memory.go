package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// change is one staged write; a nil account is a delete.
type change struct {
	key     solana.PublicKey
	account *Account
}

// MemoryStore is an in-process Store guarded by a RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]Account
	// commit, when set, is called with the staged changes under the write
	// lock before they are applied. An error aborts the update.
	commit func(changes []change) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[solana.PublicKey]Account)}
}

func (s *MemoryStore) Get(key solana.PublicKey) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[key]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return acc.Clone(), nil
}

// View runs fn under the read lock; any number of views run concurrently.
func (s *MemoryStore) View(fn func(tx ReadTx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(readTx{accounts: s.accounts})
}

func (s *MemoryStore) Put(acc Account) error {
	return s.Update(func(tx Tx) error { return tx.Put(acc) })
}

func (s *MemoryStore) Delete(key solana.PublicKey) error {
	return s.Update(func(tx Tx) error { return tx.Delete(key) })
}

func (s *MemoryStore) Update(fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{base: s.accounts, staged: make(map[solana.PublicKey]int)}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.changes) == 0 {
		return nil
	}
	if s.commit != nil {
		if err := s.commit(tx.changes); err != nil {
			return err
		}
	}
	s.apply(tx.changes)
	return nil
}

// Len returns the number of accounts held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// apply must be called with the write lock held.
func (s *MemoryStore) apply(changes []change) {
	for _, c := range changes {
		if c.account == nil {
			delete(s.accounts, c.key)
			continue
		}
		s.accounts[c.key] = *c.account
	}
}

// readTx reads the committed map directly; it is only valid under the read lock.
type readTx struct {
	accounts map[solana.PublicKey]Account
}

func (tx readTx) Get(key solana.PublicKey) (Account, error) {
	acc, ok := tx.accounts[key]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return acc.Clone(), nil
}

func (tx readTx) GetMany(keys []solana.PublicKey) ([]Account, error) {
	out := make([]Account, len(keys))
	for i, key := range keys {
		acc, err := tx.Get(key)
		if err != nil {
			return nil, err
		}
		out[i] = acc
	}
	return out, nil
}

func (tx readTx) Range(fn func(acc Account) bool) {
	for _, acc := range tx.accounts {
		if !fn(acc.Clone()) {
			return
		}
	}
}

type memTx struct {
	base    map[solana.PublicKey]Account
	changes []change
	// staged maps a key to its last entry in changes
	staged map[solana.PublicKey]int
}

func (tx *memTx) Get(key solana.PublicKey) (Account, error) {
	if i, ok := tx.staged[key]; ok {
		if tx.changes[i].account == nil {
			return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
		}
		return tx.changes[i].account.Clone(), nil
	}
	acc, ok := tx.base[key]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return acc.Clone(), nil
}

func (tx *memTx) Put(acc Account) error {
	if acc.Key.IsZero() {
		return errors.New("ledger: account key is required")
	}
	acc = acc.Clone()
	tx.stage(change{key: acc.Key, account: &acc})
	return nil
}

func (tx *memTx) Delete(key solana.PublicKey) error {
	if _, err := tx.Get(key); err != nil {
		return err
	}
	tx.stage(change{key: key})
	return nil
}

func (tx *memTx) stage(c change) {
	tx.staged[c.key] = len(tx.changes)
	tx.changes = append(tx.changes, c)
}
