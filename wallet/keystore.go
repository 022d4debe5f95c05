package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// KeystoreFile is the keystore file name inside a data directory.
const KeystoreFile = "wallet.enc"

// KeystorePath returns the keystore path inside dataDir.
func KeystorePath(dataDir string) string {
	return filepath.Join(dataDir, KeystoreFile)
}

// SaveKeystore encrypts seed under password and writes it to path with 0600
// permissions. An existing keystore is never overwritten.
func SaveKeystore(path string, seed []byte, password string) error {
	enc, err := EncryptSeed(seed, password)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("wallet: create keystore directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrKeystoreExists, path)
	}
	if err != nil {
		return fmt.Errorf("wallet: create keystore: %w", err)
	}
	if _, err := f.Write(enc); err != nil {
		_ = f.Close()
		return fmt.Errorf("wallet: write keystore: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("wallet: close keystore: %w", err)
	}
	return nil
}

// LoadKeystore reads and decrypts the seed stored at path.
func LoadKeystore(path, password string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeystoreNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: read keystore: %w", err)
	}
	return DecryptSeed(data, password)
}
