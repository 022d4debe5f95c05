package devnet

import "errors"

var (
	// ErrUnknownContract indicates no contract is recorded under a name.
	ErrUnknownContract = errors.New("devnet: unknown contract")

	// ErrContractExists indicates a name is already taken by a contract deployed in this session.
	ErrContractExists = errors.New("devnet: contract name already in use")

	// ErrAddressInUse indicates an address is already recorded under another name.
	ErrAddressInUse = errors.New("devnet: address already recorded under another name")

	// ErrSnapshotMismatch indicates a stored ledger does not belong to the requested name.
	ErrSnapshotMismatch = errors.New("devnet: snapshot does not match contract name")

	// ErrEmptyName indicates a contract was given an empty name.
	ErrEmptyName = errors.New("devnet: contract name must not be empty")
)
