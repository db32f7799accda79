package raydiumclmm

import (
	"github.com/defistate/clmm-oracle-go/protocols/layout"
)

// Size is the full PoolState account size including its 8-byte discriminator.
const Size = 1544

// Discriminator is the prefix the CLMM program writes on PoolState accounts
// (sha256("account:PoolState")[:8]). Decoding does not check it.
var Discriminator = [8]byte{0xf7, 0xed, 0xe3, 0xf5, 0xd7, 0xc3, 0xde, 0x46}

const (
	FieldDiscriminator  = "discriminator"
	FieldBump           = "bump"
	FieldAmmConfig      = "amm_config"
	FieldOwner          = "owner"
	FieldTokenMint0     = "token_mint_0"
	FieldTokenMint1     = "token_mint_1"
	FieldTokenVault0    = "token_vault_0"
	FieldTokenVault1    = "token_vault_1"
	FieldObservationKey = "observation_key"
	FieldMintDecimals0  = "mint_decimals_0"
	FieldMintDecimals1  = "mint_decimals_1"
	FieldTickSpacing    = "tick_spacing"
	FieldLiquidity      = "liquidity"
	FieldSqrtPriceX64   = "sqrt_price_x64"
	FieldTickCurrent    = "tick_current"
	FieldStatus         = "status"
)

// Layout covers the PoolState fields this package reads. Fee, reward, bitmap
// and padding regions are left undescribed.
var Layout = layout.MustTable("raydium_clmm_pool_state", Size,
	layout.Field{Name: FieldDiscriminator, Offset: 0, Width: 8, Encoding: layout.Bytes},
	layout.Field{Name: FieldBump, Offset: 8, Width: 1, Encoding: layout.Uint8},
	layout.Field{Name: FieldAmmConfig, Offset: 9, Width: 32, Encoding: layout.PublicKey},
	layout.Field{Name: FieldOwner, Offset: 41, Width: 32, Encoding: layout.PublicKey},
	layout.Field{Name: FieldTokenMint0, Offset: 73, Width: 32, Encoding: layout.PublicKey},
	layout.Field{Name: FieldTokenMint1, Offset: 105, Width: 32, Encoding: layout.PublicKey},
	layout.Field{Name: FieldTokenVault0, Offset: 137, Width: 32, Encoding: layout.PublicKey},
	layout.Field{Name: FieldTokenVault1, Offset: 169, Width: 32, Encoding: layout.PublicKey},
	layout.Field{Name: FieldObservationKey, Offset: 201, Width: 32, Encoding: layout.PublicKey},
	layout.Field{Name: FieldMintDecimals0, Offset: 233, Width: 1, Encoding: layout.Uint8},
	layout.Field{Name: FieldMintDecimals1, Offset: 234, Width: 1, Encoding: layout.Uint8},
	layout.Field{Name: FieldTickSpacing, Offset: 235, Width: 2, Encoding: layout.Uint16},
	layout.Field{Name: FieldLiquidity, Offset: 237, Width: 16, Encoding: layout.Uint128},
	layout.Field{Name: FieldSqrtPriceX64, Offset: 253, Width: 16, Encoding: layout.Uint128},
	layout.Field{Name: FieldTickCurrent, Offset: 269, Width: 4, Encoding: layout.Int32},
	layout.Field{Name: FieldStatus, Offset: 389, Width: 1, Encoding: layout.Uint8},
)
