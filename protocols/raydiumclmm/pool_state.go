package raydiumclmm

import (
	"fmt"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/defistate/clmm-oracle-go/protocols/layout"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// PoolState is the subset of the Raydium CLMM pool account the oracle knows about.
type PoolState struct {
	Bump           uint8            `json:"bump"`
	AmmConfig      solana.PublicKey `json:"ammConfig"`
	Owner          solana.PublicKey `json:"owner"`
	TokenMint0     solana.PublicKey `json:"tokenMint0"`
	TokenMint1     solana.PublicKey `json:"tokenMint1"`
	TokenVault0    solana.PublicKey `json:"tokenVault0"`
	TokenVault1    solana.PublicKey `json:"tokenVault1"`
	ObservationKey solana.PublicKey `json:"observationKey"`
	MintDecimals0  uint8            `json:"mintDecimals0"`
	MintDecimals1  uint8            `json:"mintDecimals1"`
	TickSpacing    uint16           `json:"tickSpacing"`
	Liquidity      *uint256.Int     `json:"liquidity"`
	SqrtPriceX64   *uint256.Int     `json:"sqrtPriceX64"` // Q64.64
	TickCurrent    int32            `json:"tickCurrent"`
	Status         uint8            `json:"status"`
}

// View is a typed, read-only window over a raw PoolState account.
//
// Unlike the whirlpool view, the discriminator is not validated: CLMM state
// is trusted to be well formed. Only the buffer size is checked.
type View struct {
	r *layout.Reader
}

// NewView checks the buffer size and returns a View.
func NewView(data []byte) (*View, error) {
	r, err := Layout.NewReader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: raydium clmm: %w", engine.ErrDecode, err)
	}
	return &View{r: r}, nil
}

// SqrtPriceX64 returns the Q64.64 square-root price.
func (v *View) SqrtPriceX64() (*uint256.Int, error) {
	return v.r.Uint128(FieldSqrtPriceX64)
}

// SqrtPriceX64 decodes only the square-root price from a raw PoolState account.
func SqrtPriceX64(data []byte) (*uint256.Int, error) {
	v, err := NewView(data)
	if err != nil {
		return nil, err
	}
	s, err := v.SqrtPriceX64()
	if err != nil {
		return nil, fmt.Errorf("%w: raydium clmm: %w", engine.ErrDecode, err)
	}
	return s, nil
}

// Decode reads the known PoolState fields.
func Decode(data []byte) (*PoolState, error) {
	v, err := NewView(data)
	if err != nil {
		return nil, err
	}
	r := v.r
	p := &PoolState{}

	keys := []struct {
		name string
		dst  *solana.PublicKey
	}{
		{FieldAmmConfig, &p.AmmConfig},
		{FieldOwner, &p.Owner},
		{FieldTokenMint0, &p.TokenMint0},
		{FieldTokenMint1, &p.TokenMint1},
		{FieldTokenVault0, &p.TokenVault0},
		{FieldTokenVault1, &p.TokenVault1},
		{FieldObservationKey, &p.ObservationKey},
	}
	for _, k := range keys {
		if *k.dst, err = r.PublicKey(k.name); err != nil {
			return nil, fmt.Errorf("%w: raydium clmm: %w", engine.ErrDecode, err)
		}
	}

	small := []struct {
		name string
		dst  *uint8
	}{
		{FieldBump, &p.Bump},
		{FieldMintDecimals0, &p.MintDecimals0},
		{FieldMintDecimals1, &p.MintDecimals1},
		{FieldStatus, &p.Status},
	}
	for _, b := range small {
		if *b.dst, err = r.Uint8(b.name); err != nil {
			return nil, fmt.Errorf("%w: raydium clmm: %w", engine.ErrDecode, err)
		}
	}

	if p.TickSpacing, err = r.Uint16(FieldTickSpacing); err != nil {
		return nil, fmt.Errorf("%w: raydium clmm: %w", engine.ErrDecode, err)
	}
	if p.Liquidity, err = r.Uint128(FieldLiquidity); err != nil {
		return nil, fmt.Errorf("%w: raydium clmm: %w", engine.ErrDecode, err)
	}
	if p.SqrtPriceX64, err = r.Uint128(FieldSqrtPriceX64); err != nil {
		return nil, fmt.Errorf("%w: raydium clmm: %w", engine.ErrDecode, err)
	}
	if p.TickCurrent, err = r.Int32(FieldTickCurrent); err != nil {
		return nil, fmt.Errorf("%w: raydium clmm: %w", engine.ErrDecode, err)
	}
	return p, nil
}

// Encode writes p as a raw PoolState account with the CLMM discriminator.
// Undescribed regions are zero.
func Encode(p *PoolState) ([]byte, error) {
	w := Layout.NewWriter()
	steps := []error{
		w.PutBytes(FieldDiscriminator, Discriminator[:]),
		w.PutUint8(FieldBump, p.Bump),
		w.PutPublicKey(FieldAmmConfig, p.AmmConfig),
		w.PutPublicKey(FieldOwner, p.Owner),
		w.PutPublicKey(FieldTokenMint0, p.TokenMint0),
		w.PutPublicKey(FieldTokenMint1, p.TokenMint1),
		w.PutPublicKey(FieldTokenVault0, p.TokenVault0),
		w.PutPublicKey(FieldTokenVault1, p.TokenVault1),
		w.PutPublicKey(FieldObservationKey, p.ObservationKey),
		w.PutUint8(FieldMintDecimals0, p.MintDecimals0),
		w.PutUint8(FieldMintDecimals1, p.MintDecimals1),
		w.PutUint16(FieldTickSpacing, p.TickSpacing),
		w.PutUint128(FieldLiquidity, p.Liquidity),
		w.PutUint128(FieldSqrtPriceX64, p.SqrtPriceX64),
		w.PutInt32(FieldTickCurrent, p.TickCurrent),
		w.PutUint8(FieldStatus, p.Status),
	}
	for _, err := range steps {
		if err != nil {
			return nil, fmt.Errorf("raydium clmm: encode: %w", err)
		}
	}
	return w.Bytes(), nil
}
