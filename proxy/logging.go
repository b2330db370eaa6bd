package proxy

import (
	"context"
	"errors"

	"github.com/ArcaneChat/chatmail/dict"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

type loggingService struct {
	logger  log.Logger
	service Service
}

// NewLoggingService wraps a provided existing
// service with the provided logger.
func NewLoggingService(s Service, logger log.Logger) Service {
	return &loggingService{logger, s}
}

// lookupAddr extracts the address a lookup is
// about. Passwords are never returned.
func lookupAddr(req *dict.Request) string {

	switch req.Kind {
	case dict.KindUserDB:
		return req.Args[0]
	case dict.KindPassDB:
		if len(req.Args) > 1 {
			return req.Args[1]
		}
	}

	return ""
}

// Lookup wraps this service's Lookup method
// with added logging capabilities.
func (s *loggingService) Lookup(ctx context.Context, req *dict.Request) (dict.Reply, error) {

	reply, err := s.service.Lookup(ctx, req)

	logger := log.With(s.logger,
		"method", "LOOKUP",
		"namespace", req.Namespace,
		"kind", req.Kind,
		"addr", lookupAddr(req),
		"status", string(reply.Status),
	)

	if errors.Is(err, dict.ErrMalformedRequest) {
		level.Warn(logger).Log("msg", "rejected malformed lookup", "err", err)
	} else if err != nil {
		level.Error(logger).Log("msg", "failed to perform lookup", "err", err)
	} else {
		level.Debug(logger).Log()
	}

	return reply, err
}

// Iterate wraps this service's Iterate method
// with added logging capabilities.
func (s *loggingService) Iterate(ctx context.Context, req *dict.Request) (*dict.Iteration, error) {

	it, err := s.service.Iterate(ctx, req)

	logger := log.With(s.logger,
		"method", "ITERATE",
		"path", req.Path,
	)

	if errors.Is(err, ErrNotServed) {
		level.Info(logger).Log("msg", "ignoring iteration of unknown path")
	} else if err != nil {
		level.Error(logger).Log("msg", "failed to list addresses", "err", err)
	} else {
		level.Debug(logger).Log("keys", len(it.Keys))
	}

	return it, err
}
