package config

import (
	"errors"
	"os"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

type ClientConfig struct {
	PriceStreamURL string `yaml:"price_stream_url"`
	Registry       string `yaml:"registry"`
}

// RegistryKey parses the registry public key.
func (c *ClientConfig) RegistryKey() (solana.PublicKey, error) {
	if c.Registry == "" {
		return solana.PublicKey{}, errors.New("config: registry is required")
	}
	return solana.PublicKeyFromBase58(c.Registry)
}

// LoadConfig reads a configuration file from the given path and unmarshals it
// into a ClientConfig struct.
func LoadConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
