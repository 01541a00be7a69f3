package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
)

// Genesis represents the JSON genesis file format. It seeds the ledger
// with initial account balances and optionally creates pools with an
// initial deposit from a named provider.
type Genesis struct {
	Accounts []GenesisAccount `json:"accounts"`
	Pools    []GenesisPool    `json:"pools,omitempty"`
}

// GenesisAccount represents an account to fund at genesis. Balances are
// decimal strings keyed by asset code.
type GenesisAccount struct {
	Account  string            `json:"account"`
	Balances map[string]string `json:"balances"`
}

// GenesisPool represents a pool to create at genesis, with the initial
// deposit taken from the provider's genesis balances.
type GenesisPool struct {
	AssetA   string `json:"asset_a"`
	AssetB   string `json:"asset_b"`
	Provider string `json:"provider"`
	AmountA  string `json:"amount_a"`
	AmountB  string `json:"amount_b"`
}

// LoadGenesis loads and validates a genesis JSON file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis file: %w", err)
	}

	var genesis Genesis
	if err := json.Unmarshal(data, &genesis); err != nil {
		return nil, fmt.Errorf("failed to parse genesis JSON: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis file: %w", err)
	}

	return &genesis, nil
}

// DefaultGenesis returns an empty genesis: no accounts and no pools.
func DefaultGenesis() *Genesis {
	return &Genesis{}
}

// Validate validates the genesis configuration.
func (g *Genesis) Validate() error {
	accounts := make(map[string]bool, len(g.Accounts))

	for i, acc := range g.Accounts {
		if acc.Account == "" {
			return fmt.Errorf("account %d: name cannot be empty", i)
		}
		if accounts[acc.Account] {
			return fmt.Errorf("account %d: duplicate account %s", i, acc.Account)
		}
		accounts[acc.Account] = true

		for code, balance := range acc.Balances {
			if err := asset.Asset(code).Validate(); err != nil {
				return fmt.Errorf("account %s: invalid asset %q: %w", acc.Account, code, err)
			}
			if _, err := amount.Parse(balance); err != nil {
				return fmt.Errorf("account %s: invalid balance for %s: %w", acc.Account, code, err)
			}
		}
	}

	for i, pool := range g.Pools {
		if _, err := asset.NewPair(asset.Asset(pool.AssetA), asset.Asset(pool.AssetB)); err != nil {
			return fmt.Errorf("pool %d: %w", i, err)
		}
		if pool.Provider == "" {
			return fmt.Errorf("pool %d: provider cannot be empty", i)
		}
		if !accounts[pool.Provider] {
			return fmt.Errorf("pool %d: provider %s has no genesis account", i, pool.Provider)
		}

		for _, field := range []struct {
			name  string
			value string
		}{
			{"amount_a", pool.AmountA},
			{"amount_b", pool.AmountB},
		} {
			amt, err := amount.Parse(field.value)
			if err != nil {
				return fmt.Errorf("pool %d: invalid %s: %w", i, field.name, err)
			}
			if amt.IsZero() {
				return fmt.Errorf("pool %d: %s must be positive", i, field.name)
			}
		}
	}

	return nil
}

// SaveExampleGenesis writes an example genesis file with two funded
// accounts and one pre-created pool.
func SaveExampleGenesis(path string) error {
	example := &Genesis{
		Accounts: []GenesisAccount{
			{
				Account: "alice",
				Balances: map[string]string{
					"BTC": "1000000000000000000000",
					"USD": "2000000000000000000000",
				},
			},
			{
				Account: "bob",
				Balances: map[string]string{
					"BTC": "500000000000000000000",
					"USD": "1000000000000000000000",
				},
			},
		},
		Pools: []GenesisPool{
			{
				AssetA:   "BTC",
				AssetB:   "USD",
				Provider: "alice",
				AmountA:  "100000000000000000000",
				AmountB:  "200000000000000000000",
			},
		},
	}

	data, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal example genesis: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write example genesis: %w", err)
	}

	return nil
}
