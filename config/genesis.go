package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Genesis seeds a fresh ledger.
type Genesis struct {
	Balances  map[string]uint64 `yaml:"balances"`
	Merchants []GenesisMerchant `yaml:"merchants"`
}

// GenesisMerchant pre-registers a merchant at genesis.
type GenesisMerchant struct {
	Authority string `yaml:"authority"`
	Name      string `yaml:"name"`
	Verified  bool   `yaml:"verified"`
}

// Allocation is a decoded genesis balance.
type Allocation struct {
	Account [20]byte
	Amount  uint64
}

// LoadGenesis decodes the YAML genesis file at path.
func LoadGenesis(path string) (*Genesis, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genesis: %w", err)
	}
	defer file.Close()

	var genesis Genesis
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&genesis); err != nil {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	if err := genesis.Validate(); err != nil {
		return nil, err
	}
	return &genesis, nil
}

// Validate checks every address and merchant entry.
func (g *Genesis) Validate() error {
	if _, err := g.Allocations(); err != nil {
		return err
	}
	seen := make(map[[20]byte]bool, len(g.Merchants))
	for i, m := range g.Merchants {
		authority, err := ParseAddress(m.Authority)
		if err != nil {
			return fmt.Errorf("genesis: merchants[%d]: %w", i, err)
		}
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("genesis: merchants[%d]: name required", i)
		}
		if seen[authority] {
			return fmt.Errorf("genesis: merchants[%d]: duplicate authority", i)
		}
		seen[authority] = true
	}
	return nil
}

// Allocations returns the balances sorted by account so that genesis is
// applied in a deterministic order.
func (g *Genesis) Allocations() ([]Allocation, error) {
	out := make([]Allocation, 0, len(g.Balances))
	for addr, amount := range g.Balances {
		account, err := ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("genesis: balance %q: %w", addr, err)
		}
		out = append(out, Allocation{Account: account, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].Account[:]) < string(out[j].Account[:])
	})
	return out, nil
}
