package proxy

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
)

// Structs

// Handler serves dict proxy connections
// from the wrapped service.
type Handler struct {
	logger  log.Logger
	service Service
}

// Functions

// NewHandler returns a connection handler answering
// requests from service.
func NewHandler(logger log.Logger, service Service) *Handler {

	return &Handler{
		logger:  logger,
		service: service,
	}
}

// HandleConnection reads request lines from conn and
// writes back replies until the peer disconnects or a
// read or write fails.
func (h *Handler) HandleConnection(ctx context.Context, conn net.Conn) {

	c := NewConnection(conn, uuid.NewString())
	defer c.Close()

	logger := log.With(h.logger, "client", c.ClientID)
	session := NewSession(logger, h.service)

	level.Debug(logger).Log("msg", "accepted connection")

	for {

		line, err := c.Receive()
		if err != nil && line == "" {

			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				level.Warn(logger).Log("msg", "failed to read request", "err", err)
			} else {
				level.Debug(logger).Log("msg", "client disconnected")
			}

			return
		}

		out := session.Handle(ctx, line)
		if out != "" {

			sendErr := c.Send(out)
			if sendErr != nil {
				level.Warn(logger).Log("msg", "failed to send reply", "err", sendErr)
				return
			}
		}

		// Last line arrived without terminator.
		if err != nil {
			return
		}
	}
}
