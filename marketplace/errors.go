package marketplace

import "errors"

var (
	// ErrNotOwner indicates an owner-only operation was called by someone else.
	ErrNotOwner = errors.New("marketplace: caller is not the owner")

	// ErrZeroAddress indicates the zero address where an account is required.
	ErrZeroAddress = errors.New("marketplace: zero address")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("marketplace: required parameter is nil")

	// ErrMarketplaceDisabled indicates the caller is not an enabled marketplace of the locker.
	ErrMarketplaceDisabled = errors.New("marketplace: marketplace not enabled in locker")

	// ErrNotLocked indicates the locker does not hold the slot.
	ErrNotLocked = errors.New("marketplace: slot not held by locker")

	// ErrNotDepositor indicates the caller did not lock the slot.
	ErrNotDepositor = errors.New("marketplace: caller is not the depositor")

	// ErrDuplicateSlot indicates a slot appears twice in one request.
	ErrDuplicateSlot = errors.New("marketplace: duplicate slot")

	// ErrEmptyOrder indicates a purchase of zero slots.
	ErrEmptyOrder = errors.New("marketplace: no slots requested")

	// ErrUnknownProperty indicates the property was never added.
	ErrUnknownProperty = errors.New("marketplace: unknown property")

	// ErrPropertyExists indicates the property was already added.
	ErrPropertyExists = errors.New("marketplace: property already exists")

	// ErrPropertyNotOpen indicates the property is not open for sale.
	ErrPropertyNotOpen = errors.New("marketplace: property not open")

	// ErrInvalidStatus indicates a status outside undefined, open and close.
	ErrInvalidStatus = errors.New("marketplace: invalid status")

	// ErrInvalidDiscount indicates a discount above 10000 basis points.
	ErrInvalidDiscount = errors.New("marketplace: discount above 10000 bps")

	// ErrUnknownPromo indicates the promo code hash is not registered.
	ErrUnknownPromo = errors.New("marketplace: unknown promo code")

	// ErrPromoExpired indicates the promo code is past its expiry.
	ErrPromoExpired = errors.New("marketplace: promo code expired")

	// ErrPromoExhausted indicates the promo code reached its redemption limit.
	ErrPromoExhausted = errors.New("marketplace: promo code exhausted")

	// ErrInvalidSignature indicates a malformed promo signature.
	ErrInvalidSignature = errors.New("marketplace: invalid signature")

	// ErrUnauthorizedSigner indicates the promo signature is not from an enabled signer.
	ErrUnauthorizedSigner = errors.New("marketplace: unauthorized signer")

	// ErrAmountOverflow indicates a price computation overflows 256 bits.
	ErrAmountOverflow = errors.New("marketplace: amount overflows uint256")
)
