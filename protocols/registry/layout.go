package registry

import (
	"github.com/defistate/clmm-oracle-go/protocols/layout"
)

const (
	// MaxPools is the number of pool slots in a registry record.
	MaxPools = 10
	// MaxDependencies is the number of dependency slots per pool.
	MaxDependencies = 5

	// PoolDataSize is the packed size of one PoolData entry.
	PoolDataSize = 32 + 1 + MaxDependencies*32
	// BodySize is the registry record without its discriminator.
	BodySize = 32 + 32 + 1 + MaxPools + MaxPools*PoolDataSize
	// Size is the full registry record size.
	Size = 8 + BodySize

	poolDataOffset = 83
)

// Discriminator is sha256("account:Config")[:8].
var Discriminator = [8]byte{0x9b, 0x0c, 0xaa, 0xe0, 0x1e, 0xfa, 0xcc, 0x82}

const (
	FieldDiscriminator = "discriminator"
	FieldCreator       = "creator"
	FieldTokenMint     = "token_mint"
	FieldNumOfPools    = "num_of_pools"
	FieldProtocolList  = "protocol_list"
	FieldPoolDataList  = "pool_data_list"

	FieldPoolAccount       = "pool_account"
	FieldNumOfDependencies = "num_of_dependencies"
	FieldPoolDependencies  = "pool_dependencies"
)

var poolDataLayout = newPoolDataLayout()

func newPoolDataLayout() *layout.Table {
	fields := []layout.Field{
		{Name: FieldPoolAccount, Offset: 0, Width: 32, Encoding: layout.PublicKey},
		{Name: FieldNumOfDependencies, Offset: 32, Width: 1, Encoding: layout.Uint8},
	}
	for j := 0; j < MaxDependencies; j++ {
		fields = append(fields, layout.Field{
			Name:     layout.Indexed(FieldPoolDependencies, j),
			Offset:   33 + j*32,
			Width:    32,
			Encoding: layout.PublicKey,
		})
	}
	return layout.MustTable("pool_data", PoolDataSize, fields...)
}

// Layout is the packed registry record layout.
var Layout = newLayout()

func newLayout() *layout.Table {
	fields := []layout.Field{
		{Name: FieldDiscriminator, Offset: 0, Width: 8, Encoding: layout.Bytes},
		{Name: FieldCreator, Offset: 8, Width: 32, Encoding: layout.PublicKey},
		{Name: FieldTokenMint, Offset: 40, Width: 32, Encoding: layout.PublicKey},
		{Name: FieldNumOfPools, Offset: 72, Width: 1, Encoding: layout.Uint8},
	}
	for i := 0; i < MaxPools; i++ {
		fields = append(fields, layout.Field{
			Name:     protocolField(i),
			Offset:   73 + i,
			Width:    1,
			Encoding: layout.Uint8,
		})
	}
	for i := 0; i < MaxPools; i++ {
		fields = append(fields, layout.Embed(poolDataField(i), poolDataOffset+i*PoolDataSize, poolDataLayout)...)
	}
	return layout.MustTable("oracle_config", Size, fields...)
}

func protocolField(i int) string {
	return layout.Indexed(FieldProtocolList, i)
}

func poolDataField(i int) string {
	return layout.Indexed(FieldPoolDataList, i)
}

func dependencyField(i, j int) string {
	return poolDataField(i) + "." + layout.Indexed(FieldPoolDependencies, j)
}
