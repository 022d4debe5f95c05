// Copyright (c) 2024 The Mluck developers
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package config loads and saves the mluck tool configuration. The file is a
// plain "key = value" list stored at <datadir>/config; every key can be
// overridden from the environment as MLUCK_<KEY>.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the name of the config file inside the data directory.
	ConfigFileName = "config"

	// EnvPrefix prefixes environment overrides, e.g. MLUCK_NETWORK.
	EnvPrefix = "MLUCK"

	configHeader = "# Mluck Configuration"
)

// Config keys as they appear in the file.
const (
	KeyDataDir   = "datadir"
	KeyNetwork   = "network"
	KeyNetFile   = "networkfile"
	KeyLogLevel  = "loglevel"
	KeyLogFile   = "logfile"
	KeyAccounts  = "accounts"
	KeyMaxSupply = "maxsupply"
	KeySlotPrice = "slotprice"
)

// Config holds the settings of a local deployment.
type Config struct {
	DataDir  string // data directory for keystore, address book and ledger snapshots
	Network  string // hardhat, tbsc, bsc or pol
	LogLevel string // debug, info, warn, error
	LogFile  string // empty means stderr

	// NetworkFile names a JSON network definition used instead of a
	// predefined network. Network must then be empty or match its name.
	NetworkFile string

	Accounts  int    // number of funded accounts derived from the mnemonic
	MaxSupply uint64 // units per slot ledger
	SlotPrice string // price per unit in whole stable-token units, e.g. "100" or "12.5"
}

// DefaultDataDir returns ~/.mluck, or .mluck when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mluck"
	}
	return filepath.Join(home, ".mluck")
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		DataDir:   DefaultDataDir(),
		Network:   "hardhat",
		LogLevel:  "info",
		LogFile:   "",
		Accounts:  10,
		MaxSupply: 10000,
		SlotPrice: "100",
	}
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// LoadConfig reads the config file at path. Keys missing from the file keep
// their defaults and unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := checkLines(data); err != nil {
		return Config{}, err
	}

	v := newViper()
	v.SetConfigType("properties")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfigLine, err)
	}
	return fromViper(v), nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString(configHeader + "\n\n")
	fmt.Fprintf(&b, "%s = %s\n", KeyDataDir, cfg.DataDir)
	fmt.Fprintf(&b, "%s = %s\n", KeyNetwork, cfg.Network)
	fmt.Fprintf(&b, "%s = %s\n", KeyNetFile, cfg.NetworkFile)
	fmt.Fprintf(&b, "%s = %s\n", KeyLogLevel, cfg.LogLevel)
	fmt.Fprintf(&b, "%s = %s\n", KeyLogFile, cfg.LogFile)
	fmt.Fprintf(&b, "%s = %d\n", KeyAccounts, cfg.Accounts)
	fmt.Fprintf(&b, "%s = %d\n", KeyMaxSupply, cfg.MaxSupply)
	fmt.Fprintf(&b, "%s = %s\n", KeySlotPrice, cfg.SlotPrice)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault(KeyDataDir, def.DataDir)
	v.SetDefault(KeyNetwork, def.Network)
	v.SetDefault(KeyNetFile, def.NetworkFile)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyLogFile, def.LogFile)
	v.SetDefault(KeyAccounts, def.Accounts)
	v.SetDefault(KeyMaxSupply, def.MaxSupply)
	v.SetDefault(KeySlotPrice, def.SlotPrice)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) Config {
	get := func(key string) string { return strings.TrimSpace(v.GetString(key)) }
	return Config{
		DataDir:     get(KeyDataDir),
		Network:     get(KeyNetwork),
		LogLevel:    get(KeyLogLevel),
		LogFile:     get(KeyLogFile),
		NetworkFile: get(KeyNetFile),
		Accounts:    v.GetInt(KeyAccounts),
		MaxSupply:   v.GetUint64(KeyMaxSupply),
		SlotPrice:   get(KeySlotPrice),
	}
}

// checkLines rejects lines that are not blank, a comment, or key = value.
func checkLines(data []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, _, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, n, line)
		}
	}
	return sc.Err()
}
