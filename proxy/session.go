package proxy

import (
	"context"
	"errors"

	"github.com/ArcaneChat/chatmail/dict"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Structs

// Session dispatches the request lines of one
// connection to the service and encodes replies.
type Session struct {
	logger  log.Logger
	service Service
}

// Functions

// NewSession returns a dispatcher for one connection.
func NewSession(logger log.Logger, service Service) *Session {

	return &Session{
		logger:  logger,
		service: service,
	}
}

// Handle answers a single request line given without
// its terminator. The returned text is written to the
// client as is. It is empty for lines that get no reply.
func (s *Session) Handle(ctx context.Context, line string) string {

	req, err := dict.ParseRequest(line)
	if err != nil {

		// Never log the line itself, it may carry a password.
		level.Warn(s.logger).Log(
			"msg", "failed to parse request",
			"err", err,
			"command", commandTag(line),
		)

		return dict.Failed().String()
	}

	switch req.Command {

	case dict.CommandHello:
		// Handshakes carry nothing we act on.
		return ""

	case dict.CommandLookup:
		reply, _ := s.service.Lookup(ctx, req)
		return reply.String()

	case dict.CommandIterate:
		it, err := s.service.Iterate(ctx, req)
		if errors.Is(err, ErrNotServed) {
			return ""
		}
		if err != nil {
			return dict.Failed().String()
		}

		return it.String()
	}

	return dict.Failed().String()
}

// commandTag returns the first byte of line for logging.
func commandTag(line string) string {

	if line == "" {
		return ""
	}

	return line[:1]
}
