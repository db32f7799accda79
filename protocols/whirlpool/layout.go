package whirlpool

import (
	"github.com/defistate/clmm-oracle-go/protocols/layout"
)

const (
	// Size is the full account size: 8-byte discriminator, 261 bytes of pool
	// fields and 384 bytes of reward infos.
	Size = 8 + 261 + 384

	// NumRewards is the number of reward slots a whirlpool carries.
	NumRewards = 3

	rewardInfoSize = 128
	rewardsOffset  = 269
)

// Discriminator is the 8-byte account prefix the Whirlpool program writes
// (sha256("account:Whirlpool")[:8]).
var Discriminator = [8]byte{0x3f, 0x95, 0xd1, 0x0c, 0xe1, 0x80, 0x63, 0x09}

// Field names of the whirlpool layout.
const (
	FieldDiscriminator              = "discriminator"
	FieldWhirlpoolsConfig           = "whirlpools_config"
	FieldWhirlpoolBump              = "whirlpool_bump"
	FieldTickSpacing                = "tick_spacing"
	FieldTickSpacingSeed            = "tick_spacing_seed"
	FieldFeeRate                    = "fee_rate"
	FieldProtocolFeeRate            = "protocol_fee_rate"
	FieldLiquidity                  = "liquidity"
	FieldSqrtPrice                  = "sqrt_price"
	FieldTickCurrentIndex           = "tick_current_index"
	FieldProtocolFeeOwedA           = "protocol_fee_owed_a"
	FieldProtocolFeeOwedB           = "protocol_fee_owed_b"
	FieldTokenMintA                 = "token_mint_a"
	FieldTokenVaultA                = "token_vault_a"
	FieldFeeGrowthGlobalA           = "fee_growth_global_a"
	FieldTokenMintB                 = "token_mint_b"
	FieldTokenVaultB                = "token_vault_b"
	FieldFeeGrowthGlobalB           = "fee_growth_global_b"
	FieldRewardLastUpdatedTimestamp = "reward_last_updated_timestamp"
	FieldRewardInfos                = "reward_infos"
)

// rewardInfoLayout describes one WhirlpoolRewardInfo entry.
var rewardInfoLayout = layout.MustTable("whirlpool_reward_info", rewardInfoSize,
	layout.Field{Name: "mint", Offset: 0, Width: 32, Encoding: layout.PublicKey},
	layout.Field{Name: "vault", Offset: 32, Width: 32, Encoding: layout.PublicKey},
	layout.Field{Name: "authority", Offset: 64, Width: 32, Encoding: layout.PublicKey},
	layout.Field{Name: "emissions_per_second_x64", Offset: 96, Width: 16, Encoding: layout.Uint128},
	layout.Field{Name: "growth_global_x64", Offset: 112, Width: 16, Encoding: layout.Uint128},
)

// Layout is the packed whirlpool account layout.
var Layout = newLayout()

func newLayout() *layout.Table {
	fields := []layout.Field{
		{Name: FieldDiscriminator, Offset: 0, Width: 8, Encoding: layout.Bytes},
		{Name: FieldWhirlpoolsConfig, Offset: 8, Width: 32, Encoding: layout.PublicKey},
		{Name: FieldWhirlpoolBump, Offset: 40, Width: 1, Encoding: layout.Uint8},
		{Name: FieldTickSpacing, Offset: 41, Width: 2, Encoding: layout.Uint16},
		{Name: FieldTickSpacingSeed, Offset: 43, Width: 2, Encoding: layout.Bytes},
		// hundredths of a basis point
		{Name: FieldFeeRate, Offset: 45, Width: 2, Encoding: layout.Uint16},
		{Name: FieldProtocolFeeRate, Offset: 47, Width: 2, Encoding: layout.Uint16},
		{Name: FieldLiquidity, Offset: 49, Width: 16, Encoding: layout.Uint128},
		// Q64.64
		{Name: FieldSqrtPrice, Offset: 65, Width: 16, Encoding: layout.Uint128},
		{Name: FieldTickCurrentIndex, Offset: 81, Width: 4, Encoding: layout.Int32},
		{Name: FieldProtocolFeeOwedA, Offset: 85, Width: 8, Encoding: layout.Uint64},
		{Name: FieldProtocolFeeOwedB, Offset: 93, Width: 8, Encoding: layout.Uint64},
		{Name: FieldTokenMintA, Offset: 101, Width: 32, Encoding: layout.PublicKey},
		{Name: FieldTokenVaultA, Offset: 133, Width: 32, Encoding: layout.PublicKey},
		{Name: FieldFeeGrowthGlobalA, Offset: 165, Width: 16, Encoding: layout.Uint128},
		{Name: FieldTokenMintB, Offset: 181, Width: 32, Encoding: layout.PublicKey},
		{Name: FieldTokenVaultB, Offset: 213, Width: 32, Encoding: layout.PublicKey},
		{Name: FieldFeeGrowthGlobalB, Offset: 245, Width: 16, Encoding: layout.Uint128},
		{Name: FieldRewardLastUpdatedTimestamp, Offset: 261, Width: 8, Encoding: layout.Uint64},
	}
	for i := 0; i < NumRewards; i++ {
		fields = append(fields, layout.Embed(rewardField(i), rewardsOffset+i*rewardInfoSize, rewardInfoLayout)...)
	}
	return layout.MustTable("whirlpool", Size, fields...)
}

func rewardField(i int) string {
	return layout.Indexed(FieldRewardInfos, i)
}
