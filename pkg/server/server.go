package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kaleido-sync/watchagg/pkg/auth"
	"github.com/kaleido-sync/watchagg/pkg/compression"
	gql "github.com/kaleido-sync/watchagg/pkg/graphql"
	"github.com/kaleido-sync/watchagg/pkg/server/handlers"
	"github.com/kaleido-sync/watchagg/pkg/watch"
)

// Server is the debug/control-plane HTTP surface around a watch.Aggregator:
// JSON target introspection, a GraphQL introspection endpoint, and a
// WebSocket feed of every RemoteEvent as it is emitted.
type Server struct {
	config    *Config
	agg       *watch.Aggregator
	authMgr   *auth.AuthManager
	router    *chi.Mux
	httpSrv   *http.Server
	startTime time.Time
	eventHub  *handlers.EventHub
}

// New creates a new Server around agg, backed by store for the handlers
// that need to read QueryData.
func New(config *Config, agg *watch.Aggregator, store handlers.ExistingKeysStore) (*Server, error) {
	if config.EnableTLS {
		if config.TLSCertFile == "" || config.TLSKeyFile == "" {
			return nil, fmt.Errorf("TLS enabled but certificate or key file not specified")
		}
		if _, err := os.Stat(config.TLSCertFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS certificate file not found: %s", config.TLSCertFile)
		}
		if _, err := os.Stat(config.TLSKeyFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS key file not found: %s", config.TLSKeyFile)
		}
	}

	var authMgr *auth.AuthManager
	if config.EnableAuth {
		authMgr = auth.NewAuthManager()
	}

	srv := &Server{
		config:    config,
		agg:       agg,
		authMgr:   authMgr,
		router:    chi.NewRouter(),
		startTime: time.Now(),
		eventHub:  handlers.NewEventHub(),
	}

	srv.setupMiddleware()
	srv.setupRoutes(store)

	if config.EnableGraphQL {
		if err := srv.setupGraphQLRoutes(); err != nil {
			return nil, fmt.Errorf("failed to setup GraphQL routes: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return srv, nil
}

// EventHub returns the hub new RemoteEvents should be broadcast through.
func (s *Server) EventHub() *handlers.EventHub {
	return s.eventHub
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableLogging {
		s.router.Use(middleware.Logger)
	}
	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}
	if s.config.EnableGzip {
		s.router.Use(gzipMiddleware)
	}

	s.router.Use(s.requestSizeLimitMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes(store handlers.ExistingKeysStore) {
	h := handlers.New(s.agg, store)

	s.router.Get("/_health", s.jsonContentType(s.handleHealth))
	s.router.Get("/debug/targets", s.jsonContentType(h.ListTargets()))
	s.router.Get("/debug/targets/{id}", s.jsonContentType(h.GetTarget()))

	ws := func(r chi.Router) {
		handlers.SetupWebSocketRoutes(r, h, s.eventHub)
	}
	if s.authMgr != nil {
		s.router.Group(func(r chi.Router) {
			r.Use(s.authMgr.Middleware(auth.PermissionRead))
			ws(r)
		})
	} else {
		s.router.Group(ws)
	}
}

func (s *Server) setupGraphQLRoutes() error {
	graphqlHandler, err := gql.NewHandler(s.agg)
	if err != nil {
		return fmt.Errorf("failed to create GraphQL handler: %w", err)
	}

	s.router.Post("/graphql", graphqlHandler.ServeHTTP)
	s.router.Get("/graphiql", gql.GraphiQLHandler())

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) jsonContentType(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.config.AllowedOrigins) > 0 {
			origin = s.config.AllowedOrigins[0]
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(s.config.AllowedMethods, ", "))
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(s.config.AllowedHeaders, ", "))
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

// gzipMiddleware gzip-compresses responses for clients that accept it, using
// pkg/compression's Compressor under GzipConfig (standard library gzip
// underneath). Responses
// here are always small debug/control JSON, so buffering the body before
// compressing it is cheap; the WebSocket upgrade path never sets
// Accept-Encoding to gzip so it passes through untouched.
func gzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		buf := &bufferedResponseWriter{ResponseWriter: w, body: &bytes.Buffer{}, status: http.StatusOK}
		next.ServeHTTP(buf, r)

		comp, err := compression.NewCompressor(compression.GzipConfig(6))
		if err != nil {
			w.WriteHeader(buf.status)
			w.Write(buf.body.Bytes())
			return
		}
		defer comp.Close()

		compressed, err := comp.Compress(buf.body.Bytes())
		if err != nil {
			w.WriteHeader(buf.status)
			w.Write(buf.body.Bytes())
			return
		}

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.WriteHeader(buf.status)
		w.Write(compressed)
	})
}

// bufferedResponseWriter captures a handler's response so it can be
// compressed as a whole once the handler is done writing.
type bufferedResponseWriter struct {
	http.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (w *bufferedResponseWriter) WriteHeader(status int) {
	w.status = status
}

func (w *bufferedResponseWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

// Start starts the HTTP server and blocks until it is shut down by a
// terminal signal or a fatal listen error.
func (s *Server) Start() error {
	protocol := "http"
	if s.config.EnableTLS {
		protocol = "https"
	}
	fmt.Printf("watchagg debug server starting on %s://%s:%d\n", protocol, s.config.Host, s.config.Port)

	errChan := make(chan error, 1)
	go func() {
		var err error
		if s.config.EnableTLS {
			err = s.httpSrv.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		fmt.Printf("received signal: %v\n", sig)
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("watchagg: error encoding JSON response: %v\n", err)
	}
}
