package wallet

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("wallet: entropy bits must be 128 or 256")

	// ErrInvalidPath indicates a malformed BIP32 derivation path.
	ErrInvalidPath = errors.New("wallet: invalid derivation path")

	// ErrIndexOutOfRange indicates an account index at or above the hardened offset.
	ErrIndexOutOfRange = errors.New("wallet: account index exceeds maximum (2^31-1)")

	// ErrDecryptionFailed indicates wrong password or corrupted keystore data.
	ErrDecryptionFailed = errors.New("wallet: seed decryption failed (wrong password or corrupted data)")

	// ErrChecksumMismatch indicates seed checksum verification failed after decryption.
	ErrChecksumMismatch = errors.New("wallet: seed checksum mismatch")

	// ErrKeystoreNotFound indicates no keystore file exists at the path.
	ErrKeystoreNotFound = errors.New("wallet: keystore not found")

	// ErrKeystoreExists indicates a keystore file already exists at the path.
	ErrKeystoreExists = errors.New("wallet: keystore already exists")

	// ErrInvalidNetwork indicates unknown network name with no custom config.
	ErrInvalidNetwork = errors.New("wallet: invalid network name")

	// ErrInvalidSeed indicates the seed is empty or invalid.
	ErrInvalidSeed = errors.New("wallet: invalid seed")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")
)
