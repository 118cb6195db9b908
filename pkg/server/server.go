// Package server exposes the dispatcher and ledger over two surfaces:
// an MCP endpoint for the model loop and an HTTP/SSE endpoint for live
// clients.
package server

import (
	"context"
	"net/http"

	"github.com/liftwise/coach-agent/pkg/ledger"
	"github.com/liftwise/coach-agent/pkg/storage"
	"github.com/liftwise/coach-agent/pkg/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// IdentityResolver produces a stable user id for a request, or fails.
// Authentication itself lives outside this service; the default
// resolver trusts the X-User-Id header a fronting proxy injects.
type IdentityResolver func(r *http.Request) (string, error)

type Server struct {
	mcp.Server
	logger   zerolog.Logger
	storage  storage.Storage
	registry *tools.Registry
	ledger   *ledger.Ledger
	resolve  IdentityResolver
}

func NewServer(impl *mcp.Implementation, logger zerolog.Logger, store storage.Storage, registry *tools.Registry) *Server {
	return &Server{
		Server:   *mcp.NewServer(impl, nil),
		logger:   logger.With().Str("component", "server").Logger(),
		storage:  store,
		registry: registry,
		ledger:   ledger.New(logger, store),
		resolve:  headerIdentity,
	}
}

func (s *Server) Storage() storage.Storage {
	return s.storage
}

func (s *Server) Ledger() *ledger.Ledger {
	return s.ledger
}

// SetIdentityResolver overrides how requests map to user ids. Tests
// and alternative auth fronts use this.
func (s *Server) SetIdentityResolver(resolve IdentityResolver) {
	s.resolve = resolve
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
