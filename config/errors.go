// Copyright (c) 2024 The Mluck developers
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"hardhat\", \"tbsc\", \"bsc\", \"pol\", or defined in a network file)")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidAccounts indicates fewer than one account was requested.
	ErrInvalidAccounts = errors.New("config: accounts must be at least 1")

	// ErrInvalidMaxSupply indicates a zero slot supply.
	ErrInvalidMaxSupply = errors.New("config: max supply must be at least 1")

	// ErrInvalidSlotPrice indicates the slot price is not a non-negative decimal.
	ErrInvalidSlotPrice = errors.New("config: invalid slot price")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
