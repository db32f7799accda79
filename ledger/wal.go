package ledger

import (
	"encoding/json"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

const (
	DefaultWALDir = "./wal/ledger"

	walPrefix        = "ledger_"
	putKeyPrefix     = "put_"
	deleteKeyPrefix  = "del_"
	defaultSegment   = 1000
	defaultSegments  = 100
	checkpointFactor = 2
)

// WALConfig configures a WALStore. Zero values fall back to defaults.
type WALConfig struct {
	Dir              string `yaml:"dir"`
	SegmentThreshold int    `yaml:"segment_threshold"`
	MaxSegments      int    `yaml:"max_segments"`
}

// walLog is the part of *gowal.Wal a WALStore uses.
type walLog interface {
	Get(index uint64) (string, []byte, error)
	CurrentIndex() uint64
	WriteBatch(batch gowal.Batch) error
	Close() error
}

// WALStore is a MemoryStore whose committed changes are appended to a
// write-ahead log and replayed on open. Every Update is logged as a single
// gowal batch, so a replay sees either all of its changes or none.
//
// The log keeps at most MaxSegments segments. To keep live accounts from
// falling off the tail, every live account is rewritten once the log has
// grown by half its retention since the last checkpoint. The rewrite rides
// in the same batch as the update that triggers it.
type WALStore struct {
	*MemoryStore

	// wal and the checkpoint counters are only touched under MemoryStore.mu
	wal            walLog
	lastCheckpoint uint64
	checkpointAt   uint64
}

func (c WALConfig) withDefaults() WALConfig {
	if c.Dir == "" {
		c.Dir = DefaultWALDir
	}
	if c.SegmentThreshold <= 0 {
		c.SegmentThreshold = defaultSegment
	}
	if c.MaxSegments <= 1 {
		c.MaxSegments = defaultSegments
	}
	return c
}

func NewWALStore(cfg WALConfig) (*WALStore, error) {
	cfg = cfg.withDefaults()
	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              cfg.Dir,
		Prefix:           walPrefix,
		SegmentThreshold: cfg.SegmentThreshold,
		MaxSegments:      cfg.MaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init ledger WAL")
	}

	s, err := newWALStore(wal, cfg)
	if err != nil {
		_ = wal.Close()
		return nil, err
	}
	return s, nil
}

func newWALStore(wal walLog, cfg WALConfig) (*WALStore, error) {
	cfg = cfg.withDefaults()
	s := &WALStore{
		MemoryStore:  NewMemoryStore(),
		wal:          wal,
		checkpointAt: uint64(cfg.SegmentThreshold*cfg.MaxSegments) / checkpointFactor,
	}
	if err := s.replay(); err != nil {
		return nil, err
	}
	s.lastCheckpoint = wal.CurrentIndex()
	s.MemoryStore.commit = s.append
	return s, nil
}

// replay rebuilds the in-memory state from every entry still in the log.
func (s *WALStore) replay() error {
	current := s.wal.CurrentIndex()
	for idx := uint64(1); idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			return errors.Wrapf(err, "read ledger entry %d", idx)
		}

		switch {
		case strings.HasPrefix(key, putKeyPrefix):
			var acc Account
			if err := json.Unmarshal(payload, &acc); err != nil {
				return errors.Wrapf(err, "decode ledger entry %d", idx)
			}
			s.MemoryStore.accounts[acc.Key] = acc
		case strings.HasPrefix(key, deleteKeyPrefix):
			pk, err := solana.PublicKeyFromBase58(strings.TrimPrefix(key, deleteKeyPrefix))
			if err != nil {
				return errors.Wrapf(err, "decode ledger entry %d", idx)
			}
			delete(s.MemoryStore.accounts, pk)
		}
		// evicted segments read back as an empty key
	}
	return nil
}

// append is the MemoryStore commit hook; it runs under the store's write lock.
func (s *WALStore) append(changes []change) error {
	entries := changes
	next := s.wal.CurrentIndex() + 1
	checkpoint := next+uint64(len(changes))-1-s.lastCheckpoint >= s.checkpointAt
	if checkpoint {
		// the pending changes are not applied yet, so checkpoint them on top
		// of the current state
		entries = make([]change, 0, len(s.MemoryStore.accounts)+len(changes))
		for key, acc := range s.MemoryStore.accounts {
			if pendingKey(changes, key) {
				continue
			}
			entries = append(entries, change{key: key, account: &acc})
		}
		entries = append(entries, changes...)
	}

	records := make([]gowal.Record, len(entries))
	for i, c := range entries {
		key, payload, err := encodeChange(c)
		if err != nil {
			return err
		}
		records[i] = gowal.Record{Index: next + uint64(i), Key: key, Value: payload}
	}
	batch, err := gowal.NewBatch(records...)
	if err != nil {
		return errors.Wrap(err, "build ledger batch")
	}
	if err := s.wal.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "append ledger batch")
	}

	if checkpoint {
		s.lastCheckpoint = s.wal.CurrentIndex()
	}
	return nil
}

func encodeChange(c change) (string, []byte, error) {
	if c.account == nil {
		return deleteKeyPrefix + c.key.String(), []byte{}, nil
	}
	payload, err := json.Marshal(c.account)
	if err != nil {
		return "", nil, errors.Wrap(err, "marshal ledger account")
	}
	return putKeyPrefix + c.key.String(), payload, nil
}

func pendingKey(changes []change, key solana.PublicKey) bool {
	for _, c := range changes {
		if c.key == key {
			return true
		}
	}
	return false
}

// CurrentIndex returns the latest WAL index written.
func (s *WALStore) CurrentIndex() uint64 {
	s.MemoryStore.mu.RLock()
	defer s.MemoryStore.mu.RUnlock()
	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.MemoryStore.mu.Lock()
	defer s.MemoryStore.mu.Unlock()
	return s.wal.Close()
}
