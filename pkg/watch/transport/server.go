package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
)

// Config holds configuration for the watch stream's gRPC server, the same
// shape the cluster transport config uses.
type Config struct {
	Host string
	Port int

	TLSEnabled bool
	TLSConfig  *tls.Config
	CertFile   string
	KeyFile    string

	MaxConcurrentStreams uint32
	KeepAliveInterval    time.Duration
	KeepAliveTimeout     time.Duration
}

// DefaultConfig returns sane defaults for a watch stream server.
func DefaultConfig() *Config {
	return &Config{
		Host:                 "0.0.0.0",
		Port:                 27019,
		MaxConcurrentStreams: 1000,
		KeepAliveInterval:    30 * time.Second,
		KeepAliveTimeout:     10 * time.Second,
	}
}

// Feed is implemented by whatever produces watch stream messages for a
// subscriber — typically an adapter over a *replication.Oplog tail.
type Feed interface {
	// Messages sends each Message as it becomes available for target set
	// on the passed channel, and returns when the stream should end or done
	// is closed. A nil return means the stream ended cleanly.
	Messages(targets []int64, out chan<- *Message, done <-chan struct{}) error
}

// Server exposes a Feed over a single server-streaming gRPC method,
// registered by hand since this module has no compiled .proto stubs.
type Server struct {
	config     *Config
	feed       Feed
	grpcServer *grpc.Server
	listener   net.Listener

	mu      sync.Mutex
	started bool
}

// NewServer builds a Server around feed, applying config (or DefaultConfig
// if nil).
func NewServer(config *Config, feed Feed) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{config: config, feed: feed}
}

func (s *Server) buildServerOptions() []grpc.ServerOption {
	opts := []grpc.ServerOption{
		grpc.MaxConcurrentStreams(s.config.MaxConcurrentStreams),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    s.config.KeepAliveInterval,
			Timeout: s.config.KeepAliveTimeout,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             s.config.KeepAliveInterval / 2,
			PermitWithoutStream: true,
		}),
		grpc.ForceServerCodec(jsonCodec{}),
	}

	if s.config.TLSEnabled {
		var creds credentials.TransportCredentials
		switch {
		case s.config.TLSConfig != nil:
			creds = credentials.NewTLS(s.config.TLSConfig)
		case s.config.CertFile != "" && s.config.KeyFile != "":
			var err error
			creds, err = credentials.NewServerTLSFromFile(s.config.CertFile, s.config.KeyFile)
			if err != nil {
				creds = nil
			}
		}
		if creds != nil {
			opts = append(opts, grpc.Creds(creds))
		}
	}

	return opts
}

// watchStreamDesc is a hand-written grpc.ServiceDesc for the single
// server-streaming RPC this transport needs, standing in for what
// protoc-gen-go-grpc would otherwise generate from a .proto file.
func (s *Server) watchStreamDesc() grpc.ServiceDesc {
	return grpc.ServiceDesc{
		ServiceName: "watchagg.transport.WatchStream",
		HandlerType: (*any)(nil),
		Streams: []grpc.StreamDesc{
			{
				StreamName:    "Watch",
				ServerStreams: true,
				Handler: func(srv interface{}, stream grpc.ServerStream) error {
					var req streamRequest
					if err := stream.RecvMsg(&req); err != nil {
						return fmt.Errorf("transport: receiving watch request: %w", err)
					}

					out := make(chan *Message, 64)
					done := make(chan struct{})
					errCh := make(chan error, 1)
					go func() {
						errCh <- s.feed.Messages(req.TargetIDs, out, done)
					}()

					for {
						select {
						case msg, ok := <-out:
							if !ok {
								close(done)
								return <-errCh
							}
							if err := stream.SendMsg(msg); err != nil {
								close(done)
								return err
							}
						case err := <-errCh:
							close(done)
							return err
						}
					}
				},
			},
		},
	}
}

// streamRequest is the client's opening frame naming which targets it wants
// streamed.
type streamRequest struct {
	TargetIDs []int64 `json:"target_ids"`
}

// Start binds the listener and begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("transport: server already started")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.grpcServer = grpc.NewServer(s.buildServerOptions()...)
	desc := s.watchStreamDesc()
	s.grpcServer.RegisterService(&desc, nil)

	s.started = true
	go s.grpcServer.Serve(listener)

	return nil
}

// Stop gracefully drains in-flight streams and shuts the server down.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.grpcServer.GracefulStop()
	s.started = false
}
