package registry

import (
	"fmt"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/gagliardetto/solana-go"
)

// InitParams are the inputs of a registry initialization. Accounts is the
// flattened list: pool account of slot 0, its dependencies, pool account of
// slot 1, and so on.
type InitParams struct {
	Creator           solana.PublicKey             `json:"creator"`
	TokenMint         solana.PublicKey             `json:"tokenMint"`
	NumOfPools        uint8                        `json:"numOfPools"`
	ProtocolList      [MaxPools]engine.ProtocolTag `json:"protocolList"`
	NumOfDependencies [MaxPools]uint8              `json:"numOfDependencies"`
	Accounts          []solana.PublicKey           `json:"accounts"`
}

// Initialize builds a registry record from p. Counts, protocol tags and the
// length of the flattened account list are all checked before any slot is
// filled.
func Initialize(p InitParams) (*Config, error) {
	if p.NumOfPools == 0 || p.NumOfPools > MaxPools {
		return nil, fmt.Errorf("%w: num_of_pools must be in [1, %d], got %d", engine.ErrInvalidConfiguration, MaxPools, p.NumOfPools)
	}

	want := 0
	for i := 0; i < int(p.NumOfPools); i++ {
		if !p.ProtocolList[i].Known() {
			return nil, fmt.Errorf("%w: slot %d: %d", engine.ErrUnknownProtocol, i, uint8(p.ProtocolList[i]))
		}
		if p.NumOfDependencies[i] > MaxDependencies {
			return nil, fmt.Errorf("%w: slot %d has %d dependencies, max %d", engine.ErrInvalidConfiguration, i, p.NumOfDependencies[i], MaxDependencies)
		}
		want += 1 + int(p.NumOfDependencies[i])
	}
	if len(p.Accounts) != want {
		return nil, fmt.Errorf("%w: expected %d accounts, got %d", engine.ErrInvalidConfiguration, want, len(p.Accounts))
	}

	c := &Config{
		Creator:      p.Creator,
		TokenMint:    p.TokenMint,
		NumOfPools:   p.NumOfPools,
		ProtocolList: p.ProtocolList,
	}

	cur := NewCursor(p.Accounts)
	for i := 0; i < int(p.NumOfPools); i++ {
		taken, err := cur.Take(1 + int(p.NumOfDependencies[i]))
		if err != nil {
			return nil, err
		}
		pd := &c.PoolDataList[i]
		pd.PoolAccount = taken[0]
		pd.NumOfDependencies = p.NumOfDependencies[i]
		copy(pd.PoolDependencies[:], taken[1:])
	}
	return c, nil
}
