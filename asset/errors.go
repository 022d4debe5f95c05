package asset

import "errors"

var (
	// ErrInsufficientBalance indicates the sender holds less than the transfer amount.
	ErrInsufficientBalance = errors.New("asset: insufficient balance")

	// ErrInsufficientAllowance indicates the spender was not approved for the amount.
	ErrInsufficientAllowance = errors.New("asset: insufficient allowance")

	// ErrZeroAddress indicates a transfer, approval or mint involving the zero address.
	ErrZeroAddress = errors.New("asset: zero address")

	// ErrOverflow indicates an amount does not fit in 256 bits.
	ErrOverflow = errors.New("asset: amount overflows uint256")

	// ErrInvalidAmount indicates a decimal amount string could not be parsed.
	ErrInvalidAmount = errors.New("asset: invalid amount")

	// ErrNilAmount indicates a nil amount was passed.
	ErrNilAmount = errors.New("asset: nil amount")

	// ErrInvalidTokenState indicates a token snapshot is malformed or inconsistent.
	ErrInvalidTokenState = errors.New("asset: invalid token state")
)
