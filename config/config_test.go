// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		LogLevel:        "info",
		MetricsPort:     9090,
		ChallengePeriod: 24 * time.Hour,
		Chains: []*ChainConfig{
			{
				ChainID: ids.GenerateTestID().String(),
				Adapters: []string{
					ids.GenerateTestNodeID().String(),
					ids.GenerateTestNodeID().String(),
				},
			},
		},
		Guardians: []string{ids.GenerateTestNodeID().String()},
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	chain := cfg.Chains[0]
	require.Equal(t, chain.ChainID, chain.GetChainID().String())

	adapterIDs := chain.GetAdapterIDs()
	require.Len(t, adapterIDs, 2)
	for i, adapter := range chain.Adapters {
		require.Equal(t, adapter, adapterIDs[i].String())
	}

	guardians := cfg.GetGuardianIDs()
	require.Equal(t, 1, guardians.Len())
}

func TestConfigValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "no chains",
			mutate:  func(c *Config) { c.Chains = nil },
			wantErr: ErrNoChains,
		},
		{
			name:    "non-positive challenge period",
			mutate:  func(c *Config) { c.ChallengePeriod = 0 },
			wantErr: ErrNonPositivePeriod,
		},
		{
			name:    "invalid chain id",
			mutate:  func(c *Config) { c.Chains[0].ChainID = "not-an-id" },
			wantErr: ErrInvalidID,
		},
		{
			name:    "no adapters",
			mutate:  func(c *Config) { c.Chains[0].Adapters = nil },
			wantErr: ErrNoAdapters,
		},
		{
			name:    "invalid adapter id",
			mutate:  func(c *Config) { c.Chains[0].Adapters[0] = "not-a-node-id" },
			wantErr: ErrInvalidID,
		},
		{
			name: "duplicate adapter",
			mutate: func(c *Config) {
				c.Chains[0].Adapters[1] = c.Chains[0].Adapters[0]
			},
			wantErr: ErrDuplicateAdapter,
		},
		{
			name: "duplicate chain",
			mutate: func(c *Config) {
				c.Chains = append(c.Chains, &ChainConfig{
					ChainID:  c.Chains[0].ChainID,
					Adapters: []string{ids.GenerateTestNodeID().String()},
				})
			},
			wantErr: ErrDuplicateChain,
		},
		{
			name:    "invalid guardian id",
			mutate:  func(c *Config) { c.Guardians = []string{"not-a-node-id"} },
			wantErr: ErrInvalidID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}
