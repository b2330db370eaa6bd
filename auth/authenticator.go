package auth

import (
	"context"
)

// Structs

// Account is an established address together with
// its stored password hash and the attributes
// Dovecot needs to deliver to and log in the user.
// Home, UID and GID are derived from the configuration.
type Account struct {
	Addr     string
	Password string
	Home     string
	UID      string
	GID      string
}

// Interfaces

// Store defines the methods an account backend
// provides to the lookup engine.
type Store interface {

	// ReadAccount returns the established account for
	// addr or ErrAccountNotFound.
	ReadAccount(ctx context.Context, addr string) (*Account, error)

	// CreateAccount stores passwordHash for addr unless an
	// account already exists. If another writer won the
	// race, the existing account is returned and created
	// is false. A stored hash is never replaced.
	CreateAccount(ctx context.Context, addr string, passwordHash string) (acc *Account, created bool, err error)

	// ListAddresses enumerates all established accounts
	// in no particular order.
	ListAddresses(ctx context.Context) ([]string, error)
}

// Hasher turns a cleartext password into the
// scheme-tagged form stored for an account.
type Hasher interface {

	// Scheme is the tag without braces, e.g. BLF-CRYPT.
	Scheme() string

	// Hash returns "{SCHEME}" followed by the encoded digest.
	Hash(password string) (string, error)
}
