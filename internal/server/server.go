package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/lacquerai/blocksmith/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Config holds the server configuration
type Config struct {
	Host            string
	Port            int
	EnableMetrics   bool
	EnableCORS      bool
	WatchDir        string
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            8080,
		EnableMetrics:   true,
		EnableCORS:      true,
		MaxBodyBytes:    4 << 20,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server represents the blocksmith HTTP server
type Server struct {
	config   *Config
	library  *Library
	metrics  *Metrics
	gatherer prometheus.Gatherer
	server   *http.Server
	listener net.Listener
	watcher  *store.Watcher
	upgrader websocket.Upgrader
}

// New creates a server reporting metrics to the default registry
func New(config *Config, library *Library) (*Server, error) {
	return NewWithRegistry(config, library, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry creates a server with its own metrics registry
func NewWithRegistry(config *Config, library *Library, registerer prometheus.Registerer, gatherer prometheus.Gatherer) (*Server, error) {
	if library == nil {
		return nil, fmt.Errorf("server requires a block library")
	}
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		config:   config,
		library:  library,
		metrics:  NewMetricsWithRegistry(registerer),
		gatherer: gatherer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return config.EnableCORS // Allow all origins if CORS enabled
			},
		},
	}
	s.metrics.SetRegisteredTypes(library.Count())

	return s, nil
}

// Load reloads the library from its store
func (s *Server) Load(ctx context.Context) (LoadStats, error) {
	stats, err := s.library.Reload(ctx)
	if err != nil {
		return stats, err
	}
	s.metrics.SetRegisteredTypes(s.library.Count())
	return stats, nil
}

// Router builds the HTTP routes
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	if s.config.EnableCORS {
		router.Use(s.corsMiddleware)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.loggingMiddleware)

	api.HandleFunc("/blocks", s.listBlocks).Methods("GET")
	api.HandleFunc("/toolbox", s.getToolbox).Methods("GET")
	api.HandleFunc("/compile", s.compile).Methods("POST")
	api.HandleFunc("/document", s.document).Methods("POST")
	api.HandleFunc("/tutorials", s.listTutorials).Methods("GET")
	api.HandleFunc("/tutorials/{id}", s.getTutorial).Methods("GET")
	api.HandleFunc("/tutorials/{id}/steps/{index:[0-9]+}/validate", s.validateStep).Methods("POST")
	api.HandleFunc("/reload", s.reload).Methods("POST")
	api.HandleFunc("/preview", s.preview).Methods("GET")

	if s.config.EnableCORS {
		api.Methods("OPTIONS").HandlerFunc(s.handleOptions)
	}

	if s.config.EnableMetrics {
		router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	router.HandleFunc("/health", s.healthCheck)

	return router
}

// Start starts the HTTP server and, when configured, the library watcher
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	if s.config.WatchDir != "" {
		if err := s.watch(s.config.WatchDir); err != nil {
			listener.Close()
			return err
		}
	}

	log.Info().
		Str("addr", listener.Addr().String()).
		Int("blocks", s.library.Count()).
		Bool("metrics", s.config.EnableMetrics).
		Msg("Starting blocksmith server")

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Server failed")
		}
	}()

	return nil
}

func (s *Server) watch(dir string) error {
	w, err := store.NewWatcher(dir, func(path string) error {
		if fs, ok := s.library.Store().(*store.FileStore); ok {
			fs.InvalidateCache(path)
		}
		_, err := s.Load(context.Background())
		return err
	})
	if err != nil {
		return err
	}
	w.Start()
	s.watcher = w
	return nil
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.server == nil {
		return nil
	}

	log.Info().Msg("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// StartWithGracefulShutdown starts the server and blocks until SIGINT or
// SIGTERM, then shuts it down
func (s *Server) StartWithGracefulShutdown() error {
	if err := s.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	<-sigChan
	log.Info().Msg("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}

	log.Info().Msg("Server shutdown complete")
	return nil
}

// GetAddr returns the address the server listens on
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// handleOptions handles CORS preflight requests
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	// CORS headers are already set by middleware
	w.WriteHeader(http.StatusOK)
}
