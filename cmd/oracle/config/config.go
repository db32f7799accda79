package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/defistate/clmm-oracle-go/ledger"
	"github.com/defistate/clmm-oracle-go/oracle"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"gopkg.in/yaml.v3"
)

type OracleConfig struct {
	ListenAddr     string           `yaml:"listen_addr"`
	MetricsAddr    string           `yaml:"metrics_addr"`
	Admin          string           `yaml:"admin"`
	ProgramID      string           `yaml:"program_id"`
	CursorPolicy   string           `yaml:"cursor_policy"`
	StreamInterval time.Duration    `yaml:"stream_interval"`
	Ledger         ledger.WALConfig `yaml:"ledger"`
	Solana         SolanaConfig     `yaml:"solana"`
}

// SolanaConfig selects the node pool and dependency accounts are mirrored from.
type SolanaConfig struct {
	RPCURL       string        `yaml:"rpc_url"`
	Commitment   string        `yaml:"commitment"`
	SyncInterval time.Duration `yaml:"sync_interval"`
}

// CommitmentType returns the configured commitment; empty selects confirmed.
func (c *SolanaConfig) CommitmentType() rpc.CommitmentType {
	if c.Commitment == "" {
		return rpc.CommitmentConfirmed
	}
	return rpc.CommitmentType(c.Commitment)
}

func (c *SolanaConfig) validate() error {
	if c.RPCURL == "" {
		return errors.New("config: solana.rpc_url is required")
	}
	switch c.CommitmentType() {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("config: solana.commitment: unknown level %q", c.Commitment)
	}
	if c.SyncInterval < 0 {
		return errors.New("config: solana.sync_interval must not be negative")
	}
	return nil
}

// ProgramKey parses the program id that owns allocated registry records.
// An empty value yields the zero key.
func (c *OracleConfig) ProgramKey() (solana.PublicKey, error) {
	if c.ProgramID == "" {
		return solana.PublicKey{}, nil
	}
	return solana.PublicKeyFromBase58(c.ProgramID)
}

// AdminKey parses the admin public key.
func (c *OracleConfig) AdminKey() (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(c.Admin)
}

// Policy parses the cursor policy; an empty value selects advance-all.
func (c *OracleConfig) Policy() (oracle.CursorPolicy, error) {
	return oracle.ParseCursorPolicy(c.CursorPolicy)
}

func (c *OracleConfig) validate() error {
	if c.ListenAddr == "" {
		return errors.New("config: listen_addr is required")
	}
	if c.Admin == "" {
		return errors.New("config: admin is required")
	}
	if _, err := c.AdminKey(); err != nil {
		return fmt.Errorf("config: admin: %w", err)
	}
	if _, err := c.ProgramKey(); err != nil {
		return fmt.Errorf("config: program_id: %w", err)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.StreamInterval < 0 {
		return errors.New("config: stream_interval must not be negative")
	}
	return c.Solana.validate()
}

// LoadConfig reads a configuration file from the given path and unmarshals it
// into an OracleConfig struct.
func LoadConfig(path string) (*OracleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg OracleConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
