// Package web provides the HTTP plumbing for mailbag's REST API.
package web

import (
	"context"
	"expvar"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/inbucket/mailbag/pkg/config"
	"github.com/inbucket/mailbag/pkg/mailbox"
	"github.com/inbucket/mailbag/pkg/msghub"
)

var (
	// Router is shared with the rest package; routes are registered against
	// it before the server starts.
	Router = mux.NewRouter()

	rootConfig     *config.Root
	registry       *mailbox.Registry
	msgHub         *msghub.Hub
	globalShutdown chan bool

	// ExpWebSocketConnectsCurrent tracks the number of open WebSockets
	ExpWebSocketConnectsCurrent = new(expvar.Int)
)

func init() {
	m := expvar.NewMap("http")
	m.Set("WebSocketConnectsCurrent", ExpWebSocketConnectsCurrent)
}

// Server serves the REST API over HTTP.
type Server struct {
	server   *http.Server
	listener net.Listener
}

// NewServer initializes handler context state and returns a Server ready to
// Start.
func NewServer(
	conf *config.Root,
	shutdownChan chan bool,
	reg *mailbox.Registry,
	hub *msghub.Hub) *Server {

	rootConfig = conf
	registry = reg
	msgHub = hub
	globalShutdown = shutdownChan
	Router.NotFoundHandler = noMatchHandler(http.StatusNotFound, "No route matches URI path")

	return &Server{
		server: &http.Server{
			Handler:      requestLoggingWrapper(Router),
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start(ctx context.Context) {
	addr := rootConfig.Web.Addr
	log.Info().Str("module", "web").Str("addr", addr).Msg("HTTP listening on TCP4")
	var err error
	s.listener, err = net.Listen("tcp", addr)
	if err != nil {
		log.Error().Str("module", "web").Err(err).Msg("HTTP failed to start TCP4 listener")
		emergencyShutdown()
		return
	}

	// Listener go routine
	go s.serve(ctx)

	// Wait for shutdown
	<-ctx.Done()
	log.Debug().Str("module", "web").Msg("HTTP server shutting down on request")

	// Closing the listener will cause the serve() go routine to exit
	if err := s.listener.Close(); err != nil {
		log.Error().Str("module", "web").Err(err).Msg("Failed to close HTTP listener")
	}
}

// serve begins serving HTTP requests
func (s *Server) serve(ctx context.Context) {
	// server.Serve blocks until we close the listener
	err := s.server.Serve(s.listener)

	select {
	case <-ctx.Done():
		// Nop
	default:
		log.Error().Str("module", "web").Err(err).Msg("HTTP server failed")
		emergencyShutdown()
	}
}

func emergencyShutdown() {
	// Shutdown mailbag
	select {
	case <-globalShutdown:
	default:
		close(globalShutdown)
	}
}
