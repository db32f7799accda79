package engine

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// ProtocolTag is the one-byte discriminant a registry slot uses to select
// the binary layout of its pool account.
type ProtocolTag uint8

const (
	// ProtocolWhirlpool selects the Orca Whirlpool layout (layout A).
	ProtocolWhirlpool ProtocolTag = 0
	// ProtocolRaydiumCLMM selects the Raydium CLMM PoolState layout (layout B).
	ProtocolRaydiumCLMM ProtocolTag = 1
)

// ProtocolName is a human label for a protocol tag.
type ProtocolName string

var protocolNames = map[ProtocolTag]ProtocolName{
	ProtocolWhirlpool:   "orca-whirlpool",
	ProtocolRaydiumCLMM: "raydium-clmm",
}

// Known reports whether the tag selects a supported layout.
func (t ProtocolTag) Known() bool {
	_, ok := protocolNames[t]
	return ok
}

// Name returns the protocol label, or an "unknown(N)" label for undefined tags.
func (t ProtocolTag) Name() ProtocolName {
	if name, ok := protocolNames[t]; ok {
		return name
	}
	return ProtocolName(fmt.Sprintf("unknown(%d)", uint8(t)))
}

func (t ProtocolTag) String() string {
	return string(t.Name())
}

// PoolPrice is the price extracted from a single registry slot.
type PoolPrice struct {
	Slot         int              `json:"slot"`
	Protocol     ProtocolTag      `json:"protocol"`
	PoolAccount  solana.PublicKey `json:"poolAccount"`
	SqrtPriceX64 *big.Int         `json:"sqrtPriceX64"`
	// Price is the truncated integer price that feeds the aggregate.
	Price *big.Int `json:"price"`
	// PriceDecimal keeps the fractional part the integer price discards.
	// It is informational only.
	PriceDecimal decimal.Decimal `json:"priceDecimal"`
}

// PriceReport is the outcome of one price query over a registry.
type PriceReport struct {
	Registry        solana.PublicKey `json:"registry"`
	TokenMint       solana.PublicKey `json:"tokenMint"`
	NumOfPools      int              `json:"numOfPools"`
	Pools           []PoolPrice      `json:"pools"`
	Price           *big.Int         `json:"price"` // unweighted, truncated average of Pools[i].Price
	HandlesConsumed int              `json:"handlesConsumed"`
	HandlesSupplied int              `json:"handlesSupplied"`
	CursorPolicy    string           `json:"cursorPolicy"`
	ComputedAt      int64            `json:"computedAt"` // unix nanoseconds

	// UnusedHandles lists supplied handles the query never read. Only the
	// legacy cursor policy can leave any.
	UnusedHandles []int `json:"unusedHandles,omitempty"`
}

// PoolBySlot returns the price of the given registry slot, if it was priced.
func (r *PriceReport) PoolBySlot(slot int) (PoolPrice, bool) {
	for _, p := range r.Pools {
		if p.Slot == slot {
			return p, true
		}
	}
	return PoolPrice{}, false
}
