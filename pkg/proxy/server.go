// Package proxy is the trusted pinning proxy. It holds the pinning-service credential,
// forwards multipart uploads with it, and serves gateway downloads with an attachment
// disposition.
package proxy

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DeBrosOfficial/chainfiles/pkg/blobstore"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Legacy function paths served alongside the /api routes so an existing front end keeps working.
const (
	LegacyUploadPath   = "/.netlify/functions/pinata-upload"
	LegacyDownloadPath = "/.netlify/functions/ipfs-download"
)

// Server is the proxy HTTP server
type Server struct {
	cfg        Config
	logger     *logging.ColoredLogger
	httpClient *http.Client
	limiter    *RateLimiter
	router     chi.Router
}

// New creates a proxy server.
func New(cfg Config, logger *logging.ColoredLogger) *Server {
	cfg.applyDefaults()
	cfg.PinataAPIURL = strings.TrimSuffix(cfg.PinataAPIURL, "/")

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.UpstreamTimeout},
	}
	if cfg.RateLimitPerMinute > 0 && cfg.RateLimitBurst > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	}
	s.router = s.routes()
	return s
}

// Start begins background maintenance until ctx is done.
func (s *Server) Start(ctx context.Context) {
	if s.limiter != nil {
		s.limiter.StartCleanup(ctx, time.Minute, 10*time.Minute)
	}
}

// Routes returns the HTTP handler
func (s *Server) Routes() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.HandleFunc(blobstore.ProxyUploadPath, s.handleUpload)
		r.HandleFunc(blobstore.ProxyDownloadPath, s.handleDownload)
		r.HandleFunc(blobstore.ProxyStatusPath, s.handleStatus)
		r.HandleFunc(LegacyUploadPath, s.handleUpload)
		r.HandleFunc(LegacyDownloadPath, s.handleDownload)
	})
	return r
}

// loggingMiddleware logs basic request info and duration
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)
		s.logger.ComponentInfo(logging.ComponentProxy, "request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", srw.status),
			zap.Int("bytes", srw.bytes),
			zap.String("duration", time.Since(start).String()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// corsMiddleware lets any origin call the proxy
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(600))
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
