package registry

import (
	"bytes"
	"fmt"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/defistate/clmm-oracle-go/protocols/layout"
	"github.com/gagliardetto/solana-go"
)

// PoolData describes one registered pool and the accounts its price depends on.
type PoolData struct {
	PoolAccount       solana.PublicKey                  `json:"poolAccount"`
	NumOfDependencies uint8                             `json:"numOfDependencies"`
	PoolDependencies  [MaxDependencies]solana.PublicKey `json:"poolDependencies"`
}

// Dependencies returns the populated dependency slots.
func (p PoolData) Dependencies() []solana.PublicKey {
	n := min(int(p.NumOfDependencies), MaxDependencies)
	out := make([]solana.PublicKey, n)
	copy(out, p.PoolDependencies[:n])
	return out
}

// Config is the registry record for one priced token. Only the first
// NumOfPools entries of ProtocolList and PoolDataList are meaningful.
type Config struct {
	Creator      solana.PublicKey             `json:"creator"`
	TokenMint    solana.PublicKey             `json:"tokenMint"`
	NumOfPools   uint8                        `json:"numOfPools"`
	ProtocolList [MaxPools]engine.ProtocolTag `json:"protocolList"`
	PoolDataList [MaxPools]PoolData           `json:"poolDataList"`
}

// Validate checks the pool and dependency counts. Protocol tags are not
// checked here; pricing rejects unknown tags when it reaches them.
func (c *Config) Validate() error {
	if c.NumOfPools == 0 {
		return fmt.Errorf("%w: registry has no pools", engine.ErrInvalidConfiguration)
	}
	if c.NumOfPools > MaxPools {
		return fmt.Errorf("%w: num_of_pools %d exceeds %d", engine.ErrInvalidConfiguration, c.NumOfPools, MaxPools)
	}
	for i := 0; i < int(c.NumOfPools); i++ {
		if n := c.PoolDataList[i].NumOfDependencies; n > MaxDependencies {
			return fmt.Errorf("%w: pool %d has %d dependencies, max %d", engine.ErrInvalidConfiguration, i, n, MaxDependencies)
		}
	}
	return nil
}

// Pools returns a copy of the populated pool entries.
func (c *Config) Pools() []PoolData {
	n := min(int(c.NumOfPools), MaxPools)
	out := make([]PoolData, n)
	copy(out, c.PoolDataList[:n])
	return out
}

// HandleCount is the number of accounts a full query must supply: one per
// pool plus its dependencies.
func (c *Config) HandleCount() int {
	total := 0
	for _, p := range c.Pools() {
		total += 1 + min(int(p.NumOfDependencies), MaxDependencies)
	}
	return total
}

// FlattenedAccounts returns pool accounts and dependencies in the order
// the registry expects state handles: pool i, then its dependencies.
func (c *Config) FlattenedAccounts() []solana.PublicKey {
	out := make([]solana.PublicKey, 0, c.HandleCount())
	for _, p := range c.Pools() {
		out = append(out, p.PoolAccount)
		out = append(out, p.Dependencies()...)
	}
	return out
}

// Marshal encodes the record, discriminator included.
func (c *Config) Marshal() ([]byte, error) {
	buf := make([]byte, Size)
	if err := c.MarshalInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// MarshalInto writes the record into buf, which must hold at least Size bytes.
func (c *Config) MarshalInto(buf []byte) error {
	w, err := Layout.WrapWriter(buf)
	if err != nil {
		return fmt.Errorf("registry: marshal: %w", err)
	}
	steps := []error{
		w.PutBytes(FieldDiscriminator, Discriminator[:]),
		w.PutPublicKey(FieldCreator, c.Creator),
		w.PutPublicKey(FieldTokenMint, c.TokenMint),
		w.PutUint8(FieldNumOfPools, c.NumOfPools),
	}
	for i := 0; i < MaxPools; i++ {
		p := c.PoolDataList[i]
		steps = append(steps,
			w.PutUint8(protocolField(i), uint8(c.ProtocolList[i])),
			w.PutPublicKey(poolDataField(i)+"."+FieldPoolAccount, p.PoolAccount),
			w.PutUint8(poolDataField(i)+"."+FieldNumOfDependencies, p.NumOfDependencies),
		)
		for j := 0; j < MaxDependencies; j++ {
			steps = append(steps, w.PutPublicKey(dependencyField(i, j), p.PoolDependencies[j]))
		}
	}
	for _, err := range steps {
		if err != nil {
			return fmt.Errorf("registry: marshal: %w", err)
		}
	}
	return nil
}

// Unmarshal decodes a registry record. A short buffer or a foreign
// discriminator is reported as engine.ErrDecode. Counts are not validated.
func Unmarshal(data []byte) (*Config, error) {
	r, err := Layout.NewReader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: registry: %w", engine.ErrDecode, err)
	}
	c, err := read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: registry: %w", engine.ErrDecode, err)
	}
	return c, nil
}

func read(r *layout.Reader) (*Config, error) {
	disc, err := r.Bytes(FieldDiscriminator)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(disc, Discriminator[:]) {
		return nil, fmt.Errorf("discriminator mismatch: got %x, want %x", disc, Discriminator)
	}

	c := &Config{}
	if c.Creator, err = r.PublicKey(FieldCreator); err != nil {
		return nil, err
	}
	if c.TokenMint, err = r.PublicKey(FieldTokenMint); err != nil {
		return nil, err
	}
	if c.NumOfPools, err = r.Uint8(FieldNumOfPools); err != nil {
		return nil, err
	}
	for i := 0; i < MaxPools; i++ {
		tag, err := r.Uint8(protocolField(i))
		if err != nil {
			return nil, err
		}
		c.ProtocolList[i] = engine.ProtocolTag(tag)

		p := &c.PoolDataList[i]
		if p.PoolAccount, err = r.PublicKey(poolDataField(i) + "." + FieldPoolAccount); err != nil {
			return nil, err
		}
		if p.NumOfDependencies, err = r.Uint8(poolDataField(i) + "." + FieldNumOfDependencies); err != nil {
			return nil, err
		}
		for j := 0; j < MaxDependencies; j++ {
			if p.PoolDependencies[j], err = r.PublicKey(dependencyField(i, j)); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}
