// Copyright (c) 2024 The Mluck developers
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strings"

	"github.com/farhad-zada/mluck-contracts/asset"
	"github.com/farhad-zada/mluck-contracts/wallet"
	"github.com/holiman/uint256"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if _, err := ResolveNetwork(cfg); err != nil {
		return err
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.Accounts < 1 {
		return ErrInvalidAccounts
	}

	if cfg.MaxSupply < 1 {
		return ErrInvalidMaxSupply
	}

	if _, err := SlotPriceUnits(cfg); err != nil {
		return err
	}

	return nil
}

// ResolveNetwork returns the network cfg points at: the definition in
// NetworkFile when set, otherwise the predefined network named Network.
func ResolveNetwork(cfg Config) (*wallet.NetworkConfig, error) {
	if cfg.NetworkFile == "" {
		net, err := wallet.GetNetwork(cfg.Network)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, cfg.Network)
		}
		return net, nil
	}
	net, err := wallet.LoadCustomNetwork(cfg.NetworkFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidNetwork, err)
	}
	if cfg.Network != "" && cfg.Network != net.Name {
		return nil, fmt.Errorf("%w: %q does not match %q in %s", ErrInvalidNetwork, cfg.Network, net.Name, cfg.NetworkFile)
	}
	return net, nil
}

// SlotPriceUnits returns cfg.SlotPrice in 18-decimal base units.
func SlotPriceUnits(cfg Config) (*uint256.Int, error) {
	v, err := asset.ParseUnits(cfg.SlotPrice, asset.DefaultDecimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSlotPrice, err)
	}
	return v, nil
}
