package raydiumclmm

import (
	"testing"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/defistate/clmm-oracle-go/protocols/sqrtprice"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(seed byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = seed + byte(i)
	}
	return k
}

func TestLayoutOffsets(t *testing.T) {
	assert.Equal(t, 1544, Layout.Size())

	f, ok := Layout.Field(FieldSqrtPriceX64)
	require.True(t, ok)
	assert.Equal(t, 253, f.Offset)

	f, ok = Layout.Field(FieldLiquidity)
	require.True(t, ok)
	assert.Equal(t, 237, f.Offset)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	state := &PoolState{
		Bump:           255,
		AmmConfig:      newKey(1),
		Owner:          newKey(2),
		TokenMint0:     newKey(3),
		TokenMint1:     newKey(4),
		TokenVault0:    newKey(5),
		TokenVault1:    newKey(6),
		ObservationKey: newKey(7),
		MintDecimals0:  9,
		MintDecimals1:  6,
		TickSpacing:    10,
		Liquidity:      uint256.NewInt(5_000_000),
		SqrtPriceX64:   sqrtprice.FromX64(3, 777),
		TickCurrent:    -18000,
		Status:         1,
	}

	data, err := Encode(state)
	require.NoError(t, err)
	require.Len(t, data, Size)
	assert.Equal(t, Discriminator[:], data[:8])

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, state.Owner, decoded.Owner)
	assert.Equal(t, state.ObservationKey, decoded.ObservationKey)
	assert.Equal(t, state.MintDecimals0, decoded.MintDecimals0)
	assert.Equal(t, state.MintDecimals1, decoded.MintDecimals1)
	assert.Equal(t, state.TickSpacing, decoded.TickSpacing)
	assert.Equal(t, state.TickCurrent, decoded.TickCurrent)
	assert.Equal(t, state.Status, decoded.Status)
	assert.True(t, state.Liquidity.Eq(decoded.Liquidity))
	assert.True(t, state.SqrtPriceX64.Eq(decoded.SqrtPriceX64))
}

func TestSqrtPriceX64(t *testing.T) {
	t.Run("Should round trip the raw sqrt price", func(t *testing.T) {
		for _, want := range []*uint256.Int{
			new(uint256.Int),
			sqrtprice.FromX64(3, 0),
			sqrtprice.FromX64(1<<40, 99),
			sqrtprice.MaxUint128,
		} {
			data, err := Encode(&PoolState{SqrtPriceX64: want})
			require.NoError(t, err)

			got, err := SqrtPriceX64(data)
			require.NoError(t, err)
			assert.True(t, want.Eq(got))
		}
	})

	t.Run("Should not validate the discriminator", func(t *testing.T) {
		data, err := Encode(&PoolState{SqrtPriceX64: sqrtprice.FromX64(3, 0)})
		require.NoError(t, err)
		for i := 0; i < 8; i++ {
			data[i] = 0
		}

		got, err := SqrtPriceX64(data)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), got[1])
	})

	t.Run("Should fail on a short buffer", func(t *testing.T) {
		_, err := SqrtPriceX64(make([]byte, Size-1))
		assert.ErrorIs(t, err, engine.ErrDecode)

		_, err = Decode(make([]byte, 269))
		assert.ErrorIs(t, err, engine.ErrDecode)
	})
}
