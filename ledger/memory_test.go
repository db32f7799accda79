package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(seed byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = seed
	k[31] = 0xaa
	return k
}

func TestMemoryStore_GetPut(t *testing.T) {
	s := NewMemoryStore()
	key := newKey(1)

	_, err := s.Get(key)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	data := []byte{1, 2, 3}
	require.NoError(t, s.Put(Account{Key: key, Lamports: 10, Data: data}))

	t.Run("Should copy on write", func(t *testing.T) {
		data[0] = 99
		acc, err := s.Get(key)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, acc.Data)
	})

	t.Run("Should copy on read", func(t *testing.T) {
		acc, err := s.Get(key)
		require.NoError(t, err)
		acc.Data[0] = 42

		again, err := s.Get(key)
		require.NoError(t, err)
		assert.Equal(t, byte(1), again.Data[0])
	})

	t.Run("Should reject a zero key", func(t *testing.T) {
		assert.Error(t, s.Put(Account{}))
	})

	t.Run("Should delete", func(t *testing.T) {
		other := newKey(2)
		require.NoError(t, s.Put(Account{Key: other}))
		require.NoError(t, s.Delete(other))
		_, err := s.Get(other)
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.ErrorIs(t, s.Delete(other), ErrAccountNotFound)
	})
}

func TestMemoryStore_View(t *testing.T) {
	s := NewMemoryStore()
	a, b := newKey(1), newKey(2)
	require.NoError(t, s.Put(Account{Key: a, Data: []byte{1}}))
	require.NoError(t, s.Put(Account{Key: b, Data: []byte{2}}))

	t.Run("Should return accounts in key order", func(t *testing.T) {
		err := s.View(func(tx ReadTx) error {
			got, err := tx.GetMany([]solana.PublicKey{b, a, b})
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []byte{2}, got[0].Data)
			assert.Equal(t, []byte{1}, got[1].Data)
			assert.Equal(t, b, got[2].Key)

			_, err = tx.GetMany([]solana.PublicKey{a, newKey(3)})
			assert.ErrorIs(t, err, ErrAccountNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Should range over copies", func(t *testing.T) {
		seen := map[solana.PublicKey]bool{}
		require.NoError(t, s.View(func(tx ReadTx) error {
			tx.Range(func(acc Account) bool {
				seen[acc.Key] = true
				acc.Data[0] = 0xff
				return true
			})
			return nil
		}))
		assert.Len(t, seen, 2)

		acc, err := s.Get(a)
		require.NoError(t, err)
		assert.Equal(t, []byte{1}, acc.Data)
	})

	t.Run("Should stop ranging when fn returns false", func(t *testing.T) {
		calls := 0
		require.NoError(t, s.View(func(tx ReadTx) error {
			tx.Range(func(Account) bool {
				calls++
				return false
			})
			return nil
		}))
		assert.Equal(t, 1, calls)
	})

	t.Run("Should not block concurrent views", func(t *testing.T) {
		inside := make(chan struct{})
		release := make(chan struct{})
		go func() {
			_ = s.View(func(ReadTx) error {
				close(inside)
				<-release
				return nil
			})
		}()
		<-inside
		defer close(release)

		done := make(chan struct{})
		go func() {
			_ = s.View(func(tx ReadTx) error {
				_, err := tx.Get(a)
				return err
			})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("second view blocked behind the first")
		}
	})
}

func TestMemoryStore_Update(t *testing.T) {
	s := NewMemoryStore()
	a, b := newKey(1), newKey(2)
	require.NoError(t, s.Put(Account{Key: a, Lamports: 5}))

	t.Run("Should discard writes when fn fails", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.Update(func(tx Tx) error {
			require.NoError(t, tx.Put(Account{Key: b}))
			require.NoError(t, tx.Delete(a))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = s.Get(a)
		assert.NoError(t, err)
		_, err = s.Get(b)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("Should read its own writes", func(t *testing.T) {
		err := s.Update(func(tx Tx) error {
			acc, err := tx.Get(a)
			if err != nil {
				return err
			}
			acc.Lamports += 7
			if err := tx.Put(acc); err != nil {
				return err
			}
			again, err := tx.Get(a)
			if err != nil {
				return err
			}
			assert.Equal(t, uint64(12), again.Lamports)

			if err := tx.Delete(a); err != nil {
				return err
			}
			_, err = tx.Get(a)
			assert.ErrorIs(t, err, ErrAccountNotFound)
			return tx.Put(again)
		})
		require.NoError(t, err)

		acc, err := s.Get(a)
		require.NoError(t, err)
		assert.Equal(t, uint64(12), acc.Lamports)
	})

	t.Run("Should serialize concurrent updates", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.Update(func(tx Tx) error {
					acc, err := tx.Get(a)
					if err != nil {
						return err
					}
					acc.Lamports++
					return tx.Put(acc)
				})
			}()
		}
		wg.Wait()

		acc, err := s.Get(a)
		require.NoError(t, err)
		assert.Equal(t, uint64(62), acc.Lamports)
	})
}

func TestAllocate(t *testing.T) {
	s := NewMemoryStore()
	key, owner := newKey(1), newKey(2)

	require.NoError(t, s.Update(func(tx Tx) error {
		return Allocate(tx, key, owner, 1000, 64)
	}))

	acc, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, owner, acc.Owner)
	assert.Equal(t, uint64(1000), acc.Lamports)
	assert.Equal(t, make([]byte, 64), acc.Data)

	err = s.Update(func(tx Tx) error { return Allocate(tx, key, owner, 1, 1) })
	assert.ErrorIs(t, err, ErrAccountExists)
}
