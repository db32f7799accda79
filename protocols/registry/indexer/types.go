package indexer

import (
	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/defistate/clmm-oracle-go/protocols/registry"
	"github.com/gagliardetto/solana-go"
)

// Pool is one populated registry slot with its protocol resolved.
type Pool struct {
	Slot     int                `json:"slot"`
	Protocol engine.ProtocolTag `json:"protocol"`
	registry.PoolData
}

// IndexedRegistry defines the methods for accessing indexed registry data.
type IndexedRegistry interface {
	GetByPoolAccount(account solana.PublicKey) (Pool, bool)
	All() []Pool
}
