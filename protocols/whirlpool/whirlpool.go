package whirlpool

import (
	"bytes"
	"fmt"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/defistate/clmm-oracle-go/protocols/layout"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// RewardInfo is one reward slot of a whirlpool.
type RewardInfo struct {
	Mint      solana.PublicKey `json:"mint"`
	Vault     solana.PublicKey `json:"vault"`
	Authority solana.PublicKey `json:"authority"`
	// Q64.64 tokens per second per unit of liquidity.
	EmissionsPerSecondX64 *uint256.Int `json:"emissionsPerSecondX64"`
	// Q64.64 tokens earned per unit of liquidity since emissions started.
	GrowthGlobalX64 *uint256.Int `json:"growthGlobalX64"`
}

// Pool is the decoded Orca Whirlpool account.
type Pool struct {
	WhirlpoolsConfig           solana.PublicKey       `json:"whirlpoolsConfig"`
	WhirlpoolBump              uint8                  `json:"whirlpoolBump"`
	TickSpacing                uint16                 `json:"tickSpacing"`
	TickSpacingSeed            [2]byte                `json:"tickSpacingSeed"`
	FeeRate                    uint16                 `json:"feeRate"`
	ProtocolFeeRate            uint16                 `json:"protocolFeeRate"`
	Liquidity                  *uint256.Int           `json:"liquidity"`
	SqrtPrice                  *uint256.Int           `json:"sqrtPrice"` // Q64.64
	TickCurrentIndex           int32                  `json:"tickCurrentIndex"`
	ProtocolFeeOwedA           uint64                 `json:"protocolFeeOwedA"`
	ProtocolFeeOwedB           uint64                 `json:"protocolFeeOwedB"`
	TokenMintA                 solana.PublicKey       `json:"tokenMintA"`
	TokenVaultA                solana.PublicKey       `json:"tokenVaultA"`
	FeeGrowthGlobalA           *uint256.Int           `json:"feeGrowthGlobalA"`
	TokenMintB                 solana.PublicKey       `json:"tokenMintB"`
	TokenVaultB                solana.PublicKey       `json:"tokenVaultB"`
	FeeGrowthGlobalB           *uint256.Int           `json:"feeGrowthGlobalB"`
	RewardLastUpdatedTimestamp uint64                 `json:"rewardLastUpdatedTimestamp"`
	RewardInfos                [NumRewards]RewardInfo `json:"rewardInfos"`
}

// View is a typed, read-only window over a raw whirlpool account. Fields are
// read from the buffer on access; nothing is copied up front.
type View struct {
	r *layout.Reader
}

// NewView validates the buffer size and discriminator and returns a View.
// Both failures are reported as engine.ErrDecode.
func NewView(data []byte) (*View, error) {
	r, err := Layout.NewReader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: whirlpool: %w", engine.ErrDecode, err)
	}
	disc, err := r.Bytes(FieldDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("%w: whirlpool: %w", engine.ErrDecode, err)
	}
	if !bytes.Equal(disc, Discriminator[:]) {
		return nil, fmt.Errorf("%w: whirlpool: discriminator mismatch: got %x, want %x", engine.ErrDecode, disc, Discriminator)
	}
	return &View{r: r}, nil
}

// SqrtPrice returns the Q64.64 square-root price.
func (v *View) SqrtPrice() (*uint256.Int, error) {
	return v.r.Uint128(FieldSqrtPrice)
}

// SqrtPrice decodes only the square-root price from a raw whirlpool account.
func SqrtPrice(data []byte) (*uint256.Int, error) {
	v, err := NewView(data)
	if err != nil {
		return nil, err
	}
	s, err := v.SqrtPrice()
	if err != nil {
		return nil, fmt.Errorf("%w: whirlpool: %w", engine.ErrDecode, err)
	}
	return s, nil
}

// Decode reads every field of a raw whirlpool account into a Pool.
func Decode(data []byte) (*Pool, error) {
	v, err := NewView(data)
	if err != nil {
		return nil, err
	}
	p, err := v.decode()
	if err != nil {
		return nil, fmt.Errorf("%w: whirlpool: %w", engine.ErrDecode, err)
	}
	return p, nil
}

func (v *View) decode() (*Pool, error) {
	r := v.r
	p := &Pool{}
	var err error

	if p.WhirlpoolsConfig, err = r.PublicKey(FieldWhirlpoolsConfig); err != nil {
		return nil, err
	}
	if p.WhirlpoolBump, err = r.Uint8(FieldWhirlpoolBump); err != nil {
		return nil, err
	}
	if p.TickSpacing, err = r.Uint16(FieldTickSpacing); err != nil {
		return nil, err
	}
	seed, err := r.Bytes(FieldTickSpacingSeed)
	if err != nil {
		return nil, err
	}
	copy(p.TickSpacingSeed[:], seed)
	if p.FeeRate, err = r.Uint16(FieldFeeRate); err != nil {
		return nil, err
	}
	if p.ProtocolFeeRate, err = r.Uint16(FieldProtocolFeeRate); err != nil {
		return nil, err
	}
	if p.Liquidity, err = r.Uint128(FieldLiquidity); err != nil {
		return nil, err
	}
	if p.SqrtPrice, err = r.Uint128(FieldSqrtPrice); err != nil {
		return nil, err
	}
	if p.TickCurrentIndex, err = r.Int32(FieldTickCurrentIndex); err != nil {
		return nil, err
	}
	if p.ProtocolFeeOwedA, err = r.Uint64(FieldProtocolFeeOwedA); err != nil {
		return nil, err
	}
	if p.ProtocolFeeOwedB, err = r.Uint64(FieldProtocolFeeOwedB); err != nil {
		return nil, err
	}
	if p.TokenMintA, err = r.PublicKey(FieldTokenMintA); err != nil {
		return nil, err
	}
	if p.TokenVaultA, err = r.PublicKey(FieldTokenVaultA); err != nil {
		return nil, err
	}
	if p.FeeGrowthGlobalA, err = r.Uint128(FieldFeeGrowthGlobalA); err != nil {
		return nil, err
	}
	if p.TokenMintB, err = r.PublicKey(FieldTokenMintB); err != nil {
		return nil, err
	}
	if p.TokenVaultB, err = r.PublicKey(FieldTokenVaultB); err != nil {
		return nil, err
	}
	if p.FeeGrowthGlobalB, err = r.Uint128(FieldFeeGrowthGlobalB); err != nil {
		return nil, err
	}
	if p.RewardLastUpdatedTimestamp, err = r.Uint64(FieldRewardLastUpdatedTimestamp); err != nil {
		return nil, err
	}

	for i := range p.RewardInfos {
		prefix := rewardField(i) + "."
		info := &p.RewardInfos[i]
		if info.Mint, err = r.PublicKey(prefix + "mint"); err != nil {
			return nil, err
		}
		if info.Vault, err = r.PublicKey(prefix + "vault"); err != nil {
			return nil, err
		}
		if info.Authority, err = r.PublicKey(prefix + "authority"); err != nil {
			return nil, err
		}
		if info.EmissionsPerSecondX64, err = r.Uint128(prefix + "emissions_per_second_x64"); err != nil {
			return nil, err
		}
		if info.GrowthGlobalX64, err = r.Uint128(prefix + "growth_global_x64"); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Encode writes p as a raw whirlpool account, discriminator included.
// Nil 128-bit fields are written as zero.
func Encode(p *Pool) ([]byte, error) {
	w := Layout.NewWriter()
	steps := []error{
		w.PutBytes(FieldDiscriminator, Discriminator[:]),
		w.PutPublicKey(FieldWhirlpoolsConfig, p.WhirlpoolsConfig),
		w.PutUint8(FieldWhirlpoolBump, p.WhirlpoolBump),
		w.PutUint16(FieldTickSpacing, p.TickSpacing),
		w.PutBytes(FieldTickSpacingSeed, p.TickSpacingSeed[:]),
		w.PutUint16(FieldFeeRate, p.FeeRate),
		w.PutUint16(FieldProtocolFeeRate, p.ProtocolFeeRate),
		w.PutUint128(FieldLiquidity, p.Liquidity),
		w.PutUint128(FieldSqrtPrice, p.SqrtPrice),
		w.PutInt32(FieldTickCurrentIndex, p.TickCurrentIndex),
		w.PutUint64(FieldProtocolFeeOwedA, p.ProtocolFeeOwedA),
		w.PutUint64(FieldProtocolFeeOwedB, p.ProtocolFeeOwedB),
		w.PutPublicKey(FieldTokenMintA, p.TokenMintA),
		w.PutPublicKey(FieldTokenVaultA, p.TokenVaultA),
		w.PutUint128(FieldFeeGrowthGlobalA, p.FeeGrowthGlobalA),
		w.PutPublicKey(FieldTokenMintB, p.TokenMintB),
		w.PutPublicKey(FieldTokenVaultB, p.TokenVaultB),
		w.PutUint128(FieldFeeGrowthGlobalB, p.FeeGrowthGlobalB),
		w.PutUint64(FieldRewardLastUpdatedTimestamp, p.RewardLastUpdatedTimestamp),
	}
	for i, info := range p.RewardInfos {
		prefix := rewardField(i) + "."
		steps = append(steps,
			w.PutPublicKey(prefix+"mint", info.Mint),
			w.PutPublicKey(prefix+"vault", info.Vault),
			w.PutPublicKey(prefix+"authority", info.Authority),
			w.PutUint128(prefix+"emissions_per_second_x64", info.EmissionsPerSecondX64),
			w.PutUint128(prefix+"growth_global_x64", info.GrowthGlobalX64),
		)
	}
	for _, err := range steps {
		if err != nil {
			return nil, fmt.Errorf("whirlpool: encode: %w", err)
		}
	}
	return w.Bytes(), nil
}
