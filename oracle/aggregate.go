package oracle

import (
	"fmt"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/defistate/clmm-oracle-go/ledger"
	"github.com/defistate/clmm-oracle-go/protocols/raydiumclmm"
	"github.com/defistate/clmm-oracle-go/protocols/registry"
	"github.com/defistate/clmm-oracle-go/protocols/sqrtprice"
	"github.com/defistate/clmm-oracle-go/protocols/whirlpool"
	"github.com/holiman/uint256"
)

// SqrtPriceDecoder extracts the Q64.64 square-root price from a raw pool account.
type SqrtPriceDecoder func(data []byte) (*uint256.Int, error)

var decoders = map[engine.ProtocolTag]SqrtPriceDecoder{
	engine.ProtocolWhirlpool:   whirlpool.SqrtPrice,
	engine.ProtocolRaydiumCLMM: raydiumclmm.SqrtPriceX64,
}

// Aggregate prices every populated slot of cfg from handles and returns
// the truncated, unweighted average. It reads nothing but its arguments.
func Aggregate(cfg *registry.Config, handles []ledger.Account, policy CursorPolicy) (*engine.PriceReport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil registry", engine.ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if policy == CursorAdvanceAll && len(handles) != cfg.HandleCount() {
		return nil, fmt.Errorf("%w: registry expects %d state handles, got %d",
			engine.ErrInvalidConfiguration, cfg.HandleCount(), len(handles))
	}

	n := int(cfg.NumOfPools)
	report := &engine.PriceReport{
		TokenMint:       cfg.TokenMint,
		NumOfPools:      n,
		Pools:           make([]engine.PoolPrice, 0, n),
		HandlesSupplied: len(handles),
		CursorPolicy:    policy.String(),
	}

	cur := registry.NewCursor(handles)
	sum := new(uint256.Int)
	price := new(uint256.Int)

	for slot := 0; slot < n; slot++ {
		tag := cfg.ProtocolList[slot]
		decode, ok := decoders[tag]
		if !ok {
			return nil, fmt.Errorf("%w: slot %d: %d", engine.ErrUnknownProtocol, slot, uint8(tag))
		}

		pool, err := next(cur, cfg, slot, policy)
		if err != nil {
			return nil, err
		}

		sqrt, err := decode(pool.Data)
		if err != nil {
			return nil, fmt.Errorf("slot %d (%s): %w", slot, tag, err)
		}
		if err := sqrtprice.PriceFromSqrtPriceX64(price, sqrt); err != nil {
			return nil, fmt.Errorf("slot %d (%s): %w", slot, tag, err)
		}
		if err := sqrtprice.AddChecked(sum, sum, price); err != nil {
			return nil, fmt.Errorf("slot %d (%s): price sum: %w", slot, tag, err)
		}

		report.Pools = append(report.Pools, engine.PoolPrice{
			Slot:         slot,
			Protocol:     tag,
			PoolAccount:  pool.Key,
			SqrtPriceX64: sqrt.ToBig(),
			Price:        price.ToBig(),
			PriceDecimal: sqrtprice.ToDecimal(sqrt),
		})
	}

	report.Price = new(uint256.Int).Div(sum, uint256.NewInt(uint64(n))).ToBig()
	report.HandlesConsumed = cur.Used()
	report.UnusedHandles = cur.Unused()
	return report, nil
}

// next returns the pool handle of slot and moves the cursor as policy dictates.
func next(cur *registry.Cursor[ledger.Account], cfg *registry.Config, slot int, policy CursorPolicy) (ledger.Account, error) {
	switch policy {
	case CursorAdvanceAll:
		pd := cfg.PoolDataList[slot]
		taken, err := cur.Take(1 + int(pd.NumOfDependencies))
		if err != nil {
			return ledger.Account{}, fmt.Errorf("slot %d: %w", slot, err)
		}
		if taken[0].Key != pd.PoolAccount {
			return ledger.Account{}, fmt.Errorf("%w: slot %d: handle %s is not pool account %s",
				engine.ErrInvalidConfiguration, slot, taken[0].Key, pd.PoolAccount)
		}
		for j, dep := range taken[1:] {
			if dep.Key != pd.PoolDependencies[j] {
				return ledger.Account{}, fmt.Errorf("%w: slot %d: handle %s is not dependency %d (%s)",
					engine.ErrInvalidConfiguration, slot, dep.Key, j, pd.PoolDependencies[j])
			}
		}
		return taken[0], nil

	case CursorLegacy:
		pool, err := cur.Read()
		if err != nil {
			return ledger.Account{}, fmt.Errorf("slot %d: %w", slot, err)
		}
		if cfg.ProtocolList[slot] == engine.ProtocolWhirlpool {
			if err := cur.Advance(1); err != nil {
				return ledger.Account{}, fmt.Errorf("slot %d: %w", slot, err)
			}
		}
		return pool, nil

	default:
		return ledger.Account{}, fmt.Errorf("unknown cursor policy %s", policy)
	}
}
