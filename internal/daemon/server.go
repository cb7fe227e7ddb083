package daemon

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/sphinx-chat/sphinxd/internal/api"
	"github.com/sphinx-chat/sphinxd/internal/bus"
	"github.com/sphinx-chat/sphinxd/internal/session"
	"github.com/sphinx-chat/sphinxd/internal/status"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name the daemon reports under.
const ServiceName = "sphinxd.daemon"

// Services bundles the control API implementations the server exposes.
// Nil entries are skipped, so a bare health-only server is possible.
type Services struct {
	Session *api.SessionService
	Chat    *api.ChatService
	Message *api.MessageService
	Player  *api.PlayerService
}

// Server manages the gRPC server lifecycle for an account daemon. It exposes
// the standard health service over the account's Unix domain socket, tracking
// the daemon state machine: READY maps to SERVING, everything else to
// NOT_SERVING.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	socketPath string
	bus        *bus.Bus
	logger     *zap.Logger
	cancel     context.CancelFunc
}

// NewServer creates a gRPC server bound to the account's Unix domain socket.
func NewServer(p Params, b *bus.Bus, svcs Services, logger *zap.Logger) (*Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = session.SocketPath(p.AccountName)
	}

	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}

	// Set socket permissions to 0600.
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	srv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, healthSrv)

	if svcs.Session != nil {
		api.RegisterSessionServiceServer(srv, svcs.Session)
	}
	if svcs.Chat != nil {
		api.RegisterChatServiceServer(srv, svcs.Chat)
	}
	if svcs.Message != nil {
		api.RegisterMessageServiceServer(srv, svcs.Message)
	}
	if svcs.Player != nil {
		api.RegisterPlayerServiceServer(srv, svcs.Player)
	}

	return &Server{
		grpcServer: srv,
		health:     healthSrv,
		listener:   listener,
		socketPath: socketPath,
		bus:        b,
		logger:     logger,
	}, nil
}

// Start begins serving gRPC requests and tracking daemon state changes.
// Blocks until stopped.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	ch, unsub := s.bus.Subscribe("relay.", 64)
	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				change, ok := evt.Payload.(status.StatusChange)
				if !ok {
					continue
				}
				serving := healthpb.HealthCheckResponse_NOT_SERVING
				if change.To == status.Ready {
					serving = healthpb.HealthCheckResponse_SERVING
				}
				s.health.SetServingStatus(ServiceName, serving)
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Info("gRPC server starting", zap.String("socket", s.socketPath))
	return s.grpcServer.Serve(s.listener)
}

// Stop performs a graceful shutdown and removes the socket file.
func (s *Server) Stop(_ context.Context) {
	s.logger.Info("gRPC server stopping")
	if s.cancel != nil {
		s.cancel()
	}
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	_ = os.Remove(s.socketPath)
}
