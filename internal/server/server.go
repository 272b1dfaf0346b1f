package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"slotdrop/internal/config"
	"slotdrop/internal/files"
	"slotdrop/internal/logging"
)

// BuildInfo is reported by /health and /metrics.
type BuildInfo struct {
	Version string
	Commit  string
}

type Config struct {
	Addr      string // e.g. ":8080"
	Build     BuildInfo
	Limits    config.Limits
	ReadyWait time.Duration // how long a request waits for the store before 503
	RateLimit int           // writes per minute per client IP, 0 = unlimited
}

type Server struct {
	cfg        Config
	svc        *files.Service
	store      files.Store
	log        *logging.Logger
	metrics    *Metrics
	limiter    *rateLimiter
	started    time.Time
	handler    http.Handler
	httpServer *http.Server
}

// New builds the HTTP server around svc.
func New(cfg Config, svc *files.Service, log *logging.Logger) *Server {
	def := config.DefaultLimits()
	if cfg.Limits.MaxFileBytes <= 0 {
		cfg.Limits.MaxFileBytes = def.MaxFileBytes
	}
	if cfg.Limits.MaxFieldBytes <= 0 {
		cfg.Limits.MaxFieldBytes = def.MaxFieldBytes
	}
	if cfg.Limits.MaxMetaBytes <= 0 {
		cfg.Limits.MaxMetaBytes = def.MaxMetaBytes
	}
	if cfg.ReadyWait <= 0 {
		cfg.ReadyWait = 2 * time.Second
	}
	if log == nil {
		log = logging.Nop()
	}

	s := &Server{
		cfg:     cfg,
		svc:     svc,
		store:   svc.Store(),
		log:     log,
		metrics: NewMetrics(),
		started: time.Now(),
	}
	if cfg.RateLimit > 0 {
		s.limiter = newRateLimiter(cfg.RateLimit, time.Minute)
	}

	// Wrap middleware: requestID -> logging -> security headers -> mux
	var handler http.Handler = s.routes()
	handler = securityHeadersMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.HandleFunc("GET /ready", s.HandleReady)
	mux.HandleFunc("GET /live", s.HandleLive)
	mux.Handle("GET /metrics", s.PrometheusHandler())

	// The file API is served both at the root and under /api.
	for _, prefix := range []string{"", "/api"} {
		mux.Handle("POST "+prefix+"/file", s.limit(s.gate(http.HandlerFunc(s.handleCreateFile))))
		mux.Handle("GET "+prefix+"/file/{fileId}", s.gate(http.HandlerFunc(s.handleGetMetadata)))
		mux.Handle("GET "+prefix+"/file/{fileId}/data", s.gate(http.HandlerFunc(s.handleGetData)))
		mux.Handle("PUT "+prefix+"/file/{fileId}", s.limit(s.gate(http.HandlerFunc(s.handleUpload))))
	}

	return mux
}

// limit applies the write rate limiter when one is configured.
func (s *Server) limit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return s.limiter.middleware(next)
}

// Handler exposes the full middleware chain, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the server's counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	return s.httpServer.Shutdown(ctx)
}
