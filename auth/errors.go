package auth

import "errors"

// Variables

var (
	// ErrAccountNotFound means no password record exists
	// for the address, or it may not be provisioned.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned by the atomic create
	// primitives when another writer created the account first.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidAddress is returned for addresses that
	// cannot be mapped to a storage location safely.
	ErrInvalidAddress = errors.New("invalid address")
)

// Reasons for refusing to provision an account.
var (
	ErrCreationDisabled  = errors.New("account creation disabled")
	ErrPasswordTooShort  = errors.New("password too short")
	ErrMalformedAddress  = errors.New("not a proper e-mail address")
	ErrReservedLocalpart = errors.New("localpart is reserved")
	ErrUsernameLength    = errors.New("localpart length out of bounds")
)
