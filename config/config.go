package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"monkeydao/crypto"
)

type Config struct {
	ListenAddress string    `toml:"ListenAddress"`
	DataDir       string    `toml:"DataDir"`
	GenesisFile   string    `toml:"GenesisFile"`
	LogFile       string    `toml:"LogFile"`
	Env           string    `toml:"Env"`
	Auth          Auth      `toml:"Auth"`
	RateLimit     RateLimit `toml:"RateLimit"`
	Telemetry     Telemetry `toml:"Telemetry"`
	Indexer       Indexer   `toml:"Indexer"`
	Pauses        Pauses    `toml:"Pauses"`
	Params        Params    `toml:"Params"`
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		ListenAddress: ":8080",
		DataDir:       "./monkey-data",
		Env:           "dev",
		Auth: Auth{
			Enabled:   true,
			Issuer:    "monkeydao",
			ClockSkew: Duration{2 * time.Minute},
		},
		RateLimit: RateLimit{RatePerSecond: 20, Burst: 40},
		Telemetry: Telemetry{ServiceName: "monkeyd"},
		Indexer:   Indexer{Driver: "sqlite", DSN: "file:monkey-index.db"},
		Params:    DefaultParams(),
	}
}

// Load loads the configuration from the given path, writing a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "dev"
	}
	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		c.Telemetry.ServiceName = "monkeyd"
	}
	if len(c.Params.AllowedPoolParticipants) == 0 {
		c.Params.AllowedPoolParticipants = DefaultParams().AllowedPoolParticipants
	}
	if c.Auth.ClockSkew.Duration == 0 {
		c.Auth.ClockSkew = Duration{2 * time.Minute}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	cfg.Auth.HMACSecret = hex.EncodeToString(secret)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// ParseAddress decodes a monk-prefixed bech32 account.
func ParseAddress(value string) ([20]byte, error) {
	return crypto.ParseAccount(strings.TrimSpace(value))
}
