package proxy

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArcaneChat/chatmail/auth"
	"github.com/ArcaneChat/chatmail/config"
	"github.com/ArcaneChat/chatmail/dict"
)

// Variables

// ErrNotServed is returned by Iterate for paths
// other than the shared userdb. Such requests get
// no reply at all.
var ErrNotServed = errors.New("iteration path not served")

// Structs

type service struct {
	conf          *config.Config
	authenticator Authenticator
}

// Interfaces

// Authenticator defines the methods required
// to answer userdb and passdb lookups.
type Authenticator interface {

	// LookupUser returns the established account of addr.
	LookupUser(ctx context.Context, addr string) (*auth.Account, error)

	// LookupOrCreate returns the established account of
	// addr, provisioning it first if policy allows.
	LookupOrCreate(ctx context.Context, addr string, password string) (*auth.Account, error)

	// ListAddresses returns all established addresses.
	ListAddresses(ctx context.Context) ([]string, error)
}

// Service defines the interface the dict proxy
// offers to connected Dovecot processes.
type Service interface {

	// Lookup answers an L request. The reply is always
	// valid; err explains an F reply.
	Lookup(ctx context.Context, req *dict.Request) (dict.Reply, error)

	// Iterate answers an I request.
	Iterate(ctx context.Context, req *dict.Request) (*dict.Iteration, error)
}

// Functions

// NewService returns the dict proxy service answering
// from authenticator for the mail domain of conf.
func NewService(conf *config.Config, authenticator Authenticator) Service {

	return &service{
		conf:          conf,
		authenticator: authenticator,
	}
}

// Lookup routes shared/userdb and shared/passdb
// requests. Addresses outside the mail domain are
// not found without touching the store.
func (s *service) Lookup(ctx context.Context, req *dict.Request) (dict.Reply, error) {

	if req.Namespace != dict.NamespaceShared {
		return dict.Failed(), fmt.Errorf("%w: unsupported namespace %q", dict.ErrMalformedRequest, req.Namespace)
	}

	switch req.Kind {

	case dict.KindUserDB:
		addr := req.Args[0]
		if !s.conf.IsLocalAddress(addr) {
			return dict.NotFound(), nil
		}

		return s.reply(s.authenticator.LookupUser(ctx, addr))

	case dict.KindPassDB:
		if len(req.Args) < 2 {
			return dict.Failed(), fmt.Errorf("%w: passdb lookup needs password and address", dict.ErrMalformedRequest)
		}

		password, addr := req.Args[0], req.Args[1]
		if !s.conf.IsLocalAddress(addr) {
			return dict.NotFound(), nil
		}

		return s.reply(s.authenticator.LookupOrCreate(ctx, addr, password))
	}

	return dict.Failed(), fmt.Errorf("%w: unsupported lookup kind %q", dict.ErrMalformedRequest, req.Kind)
}

// reply converts a lookup result into the wire reply.
func (s *service) reply(acc *auth.Account, err error) (dict.Reply, error) {

	if errors.Is(err, auth.ErrAccountNotFound) || errors.Is(err, auth.ErrInvalidAddress) {
		return dict.NotFound(), nil
	}
	if err != nil {
		return dict.Failed(), err
	}

	return dict.Found(&dict.UserRecord{
		Addr:     acc.Addr,
		Password: acc.Password,
		Home:     acc.Home,
		UID:      acc.UID,
		GID:      acc.GID,
	})
}

// Iterate lists all established addresses below
// the shared userdb path.
func (s *service) Iterate(ctx context.Context, req *dict.Request) (*dict.Iteration, error) {

	if req.Path != dict.UserDBPrefix {
		return nil, ErrNotServed
	}

	addrs, err := s.authenticator.ListAddresses(ctx)
	if err != nil {
		return nil, err
	}

	return &dict.Iteration{
		Prefix: dict.UserDBPrefix,
		Keys:   addrs,
	}, nil
}
