package oracle

import (
	"io"
	"log/slog"
	"testing"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/defistate/clmm-oracle-go/ledger"
	"github.com/defistate/clmm-oracle-go/protocols/raydiumclmm"
	"github.com/defistate/clmm-oracle-go/protocols/registry"
	"github.com/defistate/clmm-oracle-go/protocols/sqrtprice"
	"github.com/defistate/clmm-oracle-go/protocols/whirlpool"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newKey(seed byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = 0x42
	k[1] = seed
	return k
}

// sqrtOf returns the Q64.64 square root of an integer square.
func sqrtOf(root uint64) *uint256.Int {
	return sqrtprice.FromX64(root, 0)
}

func whirlpoolAccount(t *testing.T, key solana.PublicKey, sqrt *uint256.Int) ledger.Account {
	t.Helper()
	data, err := whirlpool.Encode(&whirlpool.Pool{SqrtPrice: sqrt})
	require.NoError(t, err)
	return ledger.Account{Key: key, Data: data}
}

func clmmAccount(t *testing.T, key solana.PublicKey, sqrt *uint256.Int) ledger.Account {
	t.Helper()
	data, err := raydiumclmm.Encode(&raydiumclmm.PoolState{SqrtPriceX64: sqrt})
	require.NoError(t, err)
	return ledger.Account{Key: key, Data: data}
}

func dependencyAccount(key solana.PublicKey) ledger.Account {
	return ledger.Account{Key: key, Data: []byte{1, 2, 3, 4}}
}

// registryFor builds a registry whose flattened accounts are the keys of handles.
func registryFor(t *testing.T, tags []engine.ProtocolTag, deps []uint8, handles []ledger.Account) *registry.Config {
	t.Helper()
	params := registry.InitParams{
		Creator:    newKey(250),
		TokenMint:  newKey(251),
		NumOfPools: uint8(len(tags)),
	}
	copy(params.ProtocolList[:], tags)
	copy(params.NumOfDependencies[:], deps)
	for _, h := range handles {
		params.Accounts = append(params.Accounts, h.Key)
	}
	cfg, err := registry.Initialize(params)
	require.NoError(t, err)
	return cfg
}

func newTestOracle(t *testing.T, store ledger.Store, policy CursorPolicy) *Oracle {
	t.Helper()
	if store == nil {
		store = ledger.NewMemoryStore()
	}
	o, err := New(&Config{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registerer:   prometheus.NewRegistry(),
		Store:        store,
		Admin:        newKey(200),
		CursorPolicy: policy,
	})
	require.NoError(t, err)
	return o
}
