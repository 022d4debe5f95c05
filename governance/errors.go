package governance

import "errors"

var (
	// ErrNotGovernor indicates the caller is not a current governor.
	ErrNotGovernor = errors.New("governance: not a governor")

	// ErrInvalidRequestID indicates no request exists with the given id.
	ErrInvalidRequestID = errors.New("governance: invalid request id")

	// ErrAlreadyVoted indicates the governor already approved the request.
	ErrAlreadyVoted = errors.New("governance: already voted")

	// ErrRequestExecuted indicates the request has already been executed.
	ErrRequestExecuted = errors.New("governance: request already executed")

	// ErrUnknownKind indicates a request kind outside the known set.
	ErrUnknownKind = errors.New("governance: unknown request kind")

	// ErrInvalidPayload indicates request data that does not decode for its kind.
	ErrInvalidPayload = errors.New("governance: invalid request payload")

	// ErrUnknownToken indicates a withdrawal of a token the contract does not track.
	ErrUnknownToken = errors.New("governance: unknown token")

	// ErrInvalidThreshold indicates an approval threshold outside [1, 100].
	ErrInvalidThreshold = errors.New("governance: threshold must be in [1, 100]")

	// ErrGovernorExists indicates the address is already a governor.
	ErrGovernorExists = errors.New("governance: governor already exists")

	// ErrUnknownGovernor indicates removal of an address that is not a governor.
	ErrUnknownGovernor = errors.New("governance: unknown governor")

	// ErrLastGovernor indicates removal of the only remaining governor.
	ErrLastGovernor = errors.New("governance: cannot remove last governor")

	// ErrRemnantViolation indicates a withdrawal would leave less than the remnant.
	ErrRemnantViolation = errors.New("governance: withdrawal breaks remnant")

	// ErrZeroAddress indicates the zero address where an account is required.
	ErrZeroAddress = errors.New("governance: zero address")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("governance: required parameter is nil")
)
