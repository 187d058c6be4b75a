// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads and validates the gateway configuration from a JSON
// config file, environment variables, and command line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"
)

const (
	defaultLogLevel        = "info"
	defaultMetricsPort     = 9090
	defaultChallengePeriod = 7 * 24 * time.Hour

	usageText = `
Usage:
gateway --config-file path-to-config            Specifies the config file and start the gateway.
gateway --version                               Display gateway version and exit.
gateway --help                                  Display gateway usage and exit.
`
)

var (
	ErrNoChains          = errors.New("no chains configured")
	ErrNoAdapters        = errors.New("chain has no adapters configured")
	ErrDuplicateChain    = errors.New("duplicate chain configured")
	ErrDuplicateAdapter  = errors.New("duplicate adapter configured for chain")
	ErrInvalidID         = errors.New("invalid identifier")
	ErrNonPositivePeriod = errors.New("challenge period must be positive")
)

// ChainConfig describes one remote chain: its identifier and the ordered
// adapter identities relaying to and from it. The first adapter is the
// primary.
type ChainConfig struct {
	ChainID  string   `mapstructure:"chain-id" json:"chain-id"`
	Adapters []string `mapstructure:"adapters" json:"adapters"`

	// convenience fields populated by Validate
	chainID    ids.ID
	adapterIDs []ids.NodeID
}

// GetChainID returns the parsed chain ID. Only valid after Validate.
func (c *ChainConfig) GetChainID() ids.ID {
	return c.chainID
}

// GetAdapterIDs returns the parsed, ordered adapter identities. Only valid
// after Validate.
func (c *ChainConfig) GetAdapterIDs() []ids.NodeID {
	return c.adapterIDs
}

// Config is the gateway configuration
type Config struct {
	LogLevel        string         `mapstructure:"log-level" json:"log-level"`
	MetricsPort     uint16         `mapstructure:"metrics-port" json:"metrics-port"`
	ChallengePeriod time.Duration  `mapstructure:"challenge-period" json:"challenge-period"`
	Chains          []*ChainConfig `mapstructure:"chains" json:"chains"`
	Guardians       []string       `mapstructure:"guardians" json:"guardians"`

	guardianIDs set.Set[ids.NodeID]
}

// Validate the configuration, populating the parsed convenience fields
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return ErrNoChains
	}
	if c.ChallengePeriod <= 0 {
		return ErrNonPositivePeriod
	}

	chainIDs := set.NewSet[ids.ID](len(c.Chains))
	for _, chain := range c.Chains {
		if err := chain.Validate(); err != nil {
			return err
		}
		if chainIDs.Contains(chain.chainID) {
			return fmt.Errorf("%w: %s", ErrDuplicateChain, chain.ChainID)
		}
		chainIDs.Add(chain.chainID)
	}

	c.guardianIDs = set.NewSet[ids.NodeID](len(c.Guardians))
	for _, guardian := range c.Guardians {
		nodeID, err := ids.NodeIDFromString(guardian)
		if err != nil {
			return fmt.Errorf("%w: guardian %q: %s", ErrInvalidID, guardian, err)
		}
		c.guardianIDs.Add(nodeID)
	}
	return nil
}

// GetGuardianIDs returns the parsed guardian identities. Only valid after
// Validate.
func (c *Config) GetGuardianIDs() set.Set[ids.NodeID] {
	return c.guardianIDs
}

// Validate the chain configuration, populating the parsed convenience fields
func (c *ChainConfig) Validate() error {
	chainID, err := ids.FromString(c.ChainID)
	if err != nil {
		return fmt.Errorf("%w: chain %q: %s", ErrInvalidID, c.ChainID, err)
	}
	c.chainID = chainID

	if len(c.Adapters) == 0 {
		return fmt.Errorf("%w: %s", ErrNoAdapters, c.ChainID)
	}

	seen := set.NewSet[ids.NodeID](len(c.Adapters))
	c.adapterIDs = make([]ids.NodeID, len(c.Adapters))
	for i, adapter := range c.Adapters {
		nodeID, err := ids.NodeIDFromString(adapter)
		if err != nil {
			return fmt.Errorf("%w: adapter %q: %s", ErrInvalidID, adapter, err)
		}
		if seen.Contains(nodeID) {
			return fmt.Errorf("%w: %s", ErrDuplicateAdapter, adapter)
		}
		seen.Add(nodeID)
		c.adapterIDs[i] = nodeID
	}
	return nil
}

// DisplayUsageText prints the command line usage
func DisplayUsageText() {
	fmt.Print(usageText)
}
