package slot

import "errors"

var (
	// ErrOutOfRange indicates a unit id outside [1, maxSupply] was minted.
	ErrOutOfRange = errors.New("slot: unit id out of range")

	// ErrAlreadyMinted indicates the unit id has already been minted.
	ErrAlreadyMinted = errors.New("slot: unit already minted")

	// ErrNotOwner indicates the caller does not own the unit.
	ErrNotOwner = errors.New("slot: caller is not the unit owner")

	// ErrInsufficientAuthorization indicates the caller has not approved the
	// ledger to pull the required amount of the asset.
	ErrInsufficientAuthorization = errors.New("slot: insufficient asset authorization")

	// ErrInsufficientLedgerFunds indicates the ledger's asset custody cannot cover a payout.
	ErrInsufficientLedgerFunds = errors.New("slot: insufficient ledger funds")

	// ErrUnknownUnit indicates the unit id is out of range or was never minted.
	ErrUnknownUnit = errors.New("slot: unknown unit")

	// ErrZeroAmount indicates a deposit or withdrawal of zero.
	ErrZeroAmount = errors.New("slot: zero amount")

	// ErrDuplicateUnit indicates a unit id appears twice in one batch.
	ErrDuplicateUnit = errors.New("slot: duplicate unit in batch")

	// ErrLengthMismatch indicates the recipients and units of a batch transfer differ in length.
	ErrLengthMismatch = errors.New("slot: recipients and units length mismatch")

	// ErrInvalidRecipient indicates the zero address was given as a new owner.
	ErrInvalidRecipient = errors.New("slot: invalid recipient")

	// ErrNotContractOwner indicates an owner-only operation was called by someone else.
	ErrNotContractOwner = errors.New("slot: caller is not the contract owner")

	// ErrWithdrawExceedsFree indicates a withdrawal would eat into unclaimed returns.
	ErrWithdrawExceedsFree = errors.New("slot: withdrawal exceeds free funds")

	// ErrInvalidSupply indicates a max supply of zero.
	ErrInvalidSupply = errors.New("slot: max supply must be positive")

	// ErrAmountOverflow indicates an accounting value would overflow 256 bits.
	ErrAmountOverflow = errors.New("slot: amount overflows uint256")

	// ErrInvalidStateData indicates a snapshot is malformed or violates ledger invariants.
	ErrInvalidStateData = errors.New("slot: invalid state data")

	// ErrStateNotFound indicates no snapshot is stored for the ledger address.
	ErrStateNotFound = errors.New("slot: state not found")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("slot: required parameter is nil")
)
