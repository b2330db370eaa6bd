package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
)

// Structs

// Metrics counts provisioning outcomes.
type Metrics struct {
	Created  metrics.Counter
	Rejected metrics.Counter
}

// Authenticator supplies Dovecot with the canonical
// password record of an address and provisions
// accounts on first login. It never compares
// passwords itself: Dovecot verifies the supplied
// password against the returned hash.
type Authenticator struct {
	logger  log.Logger
	store   Store
	policy  *Policy
	hasher  Hasher
	metrics *Metrics
}

// Functions

// NewAuthenticator wires the lookup engine. A nil
// m discards all provisioning metrics.
func NewAuthenticator(logger log.Logger, store Store, policy *Policy, hasher Hasher, m *Metrics) *Authenticator {

	if m == nil {
		m = &Metrics{
			Created:  discard.NewCounter(),
			Rejected: discard.NewCounter(),
		}
	}

	return &Authenticator{
		logger:  logger,
		store:   store,
		policy:  policy,
		hasher:  hasher,
		metrics: m,
	}
}

// LookupUser returns the established account of
// addr or ErrAccountNotFound. It never provisions.
func (a *Authenticator) LookupUser(ctx context.Context, addr string) (*Account, error) {
	return a.store.ReadAccount(ctx, addr)
}

// LookupOrCreate returns the established account of
// addr. An absent account is created with a hash of
// password if the provisioning policy allows it,
// otherwise ErrAccountNotFound is returned. For an
// existing account password is ignored.
func (a *Authenticator) LookupOrCreate(ctx context.Context, addr string, password string) (*Account, error) {

	acc, err := a.store.ReadAccount(ctx, addr)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	if !a.policy.MayCreate(addr, password) {
		a.metrics.Rejected.Add(1)
		return nil, ErrAccountNotFound
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password of %s: %w", addr, err)
	}

	acc, created, err := a.store.CreateAccount(ctx, addr, hash)
	if err != nil {
		return nil, err
	}

	if created {
		a.metrics.Created.Add(1)
		level.Info(a.logger).Log(
			"msg", "created account",
			"addr", addr,
			"scheme", a.hasher.Scheme(),
		)
	} else {
		level.Debug(a.logger).Log(
			"msg", "account was created concurrently, using stored record",
			"addr", addr,
		)
	}

	return acc, nil
}

// ListAddresses returns all established addresses.
func (a *Authenticator) ListAddresses(ctx context.Context) ([]string, error) {
	return a.store.ListAddresses(ctx)
}
