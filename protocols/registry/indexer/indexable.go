package indexer

import (
	"github.com/defistate/clmm-oracle-go/protocols/registry"
	"github.com/gagliardetto/solana-go"
)

type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index creates an indexed registry from a decoded registry record.
func (i *Indexer) Index(cfg *registry.Config) IndexedRegistry {
	return NewIndexableRegistry(cfg)
}

// IndexableRegistry provides fast, indexed access to the populated slots of a registry.
type IndexableRegistry struct {
	byAccount map[solana.PublicKey]Pool
	all       []Pool
}

// NewIndexableRegistry indexes the first NumOfPools slots of cfg. The
// record is copied, so later changes to cfg are not visible.
func NewIndexableRegistry(cfg *registry.Config) *IndexableRegistry {
	pools := cfg.Pools()
	all := make([]Pool, 0, len(pools))
	byAccount := make(map[solana.PublicKey]Pool, len(pools))

	for slot, pd := range pools {
		p := Pool{Slot: slot, Protocol: cfg.ProtocolList[slot], PoolData: pd}
		all = append(all, p)
		// first slot wins when the same pool is registered twice
		if _, dup := byAccount[pd.PoolAccount]; !dup {
			byAccount[pd.PoolAccount] = p
		}
	}

	return &IndexableRegistry{
		byAccount: byAccount,
		all:       all,
	}
}

// GetByPoolAccount retrieves a pool by its account key.
func (ir *IndexableRegistry) GetByPoolAccount(account solana.PublicKey) (Pool, bool) {
	p, ok := ir.byAccount[account]
	return p, ok
}

// All returns a defensive copy of the populated slots in slot order.
func (ir *IndexableRegistry) All() []Pool {
	allCopy := make([]Pool, len(ir.all))
	copy(allCopy, ir.all)
	return allCopy
}
