package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Structs

// Server struct bundles information of one
// listening unix socket.
type Server struct {
	Path   string
	Socket net.Listener
	logger log.Logger
}

// Interfaces

// Handler serves one accepted connection until the
// peer disconnects or ctx is cancelled.
type Handler interface {
	HandleConnection(ctx context.Context, conn net.Conn)
}

// Functions

// InitServer listens on a unix socket at path. A stale
// socket left behind by a previous run is removed first.
func InitServer(logger log.Logger, path string) (*Server, error) {

	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale socket: %w", err)
	}

	socket, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on unix socket failed: %w", err)
	}

	level.Info(logger).Log("msg", "listening for dict requests", "socket", path)

	return &Server{
		Path:   path,
		Socket: socket,
		logger: logger,
	}, nil
}

// RunServer loops over incoming connections and
// dispatches each one to its own goroutine. It returns
// nil once ctx is cancelled and all connections ended.
func (server *Server) RunServer(ctx context.Context, handler Handler) error {

	var wg sync.WaitGroup

	// Unblock Accept on shutdown.
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			server.Socket.Close()
		case <-stop:
		}
	}()

	for {

		conn, err := server.Socket.Accept()
		if err != nil {

			if ctx.Err() != nil {
				wg.Wait()
				return nil
			}

			return fmt.Errorf("accepting incoming connection failed: %w", err)
		}

		wg.Add(1)
		go func() {

			defer wg.Done()

			connCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			// Close the connection when shutting down
			// so blocked reads return.
			go func() {
				<-connCtx.Done()
				conn.Close()
			}()

			handler.HandleConnection(connCtx, conn)
		}()
	}
}

// Close stops listening and removes the socket file.
func (server *Server) Close() error {
	return server.Socket.Close()
}
