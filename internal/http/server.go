package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finances/internal/core"
	"finances/internal/log"
	"finances/internal/middleware/ratelimit"
	"finances/internal/middleware/security"
	"finances/internal/middleware/trace"
	"finances/internal/services"
)

type overviewReader interface {
	Overview(ctx context.Context) (services.Overview, error)
	GetBalance(ctx context.Context) (core.Balance, error)
}

type transactionCreator interface {
	Execute(ctx context.Context, req services.CreateTransactionRequest) (core.Transaction, error)
}

type transactionDeleter interface {
	Execute(ctx context.Context, id string) error
}

type transactionImporter interface {
	Execute(ctx context.Context, req services.ImportRequest) ([]core.Transaction, error)
	UploadDir() string
}

type categoryLister interface {
	List(ctx context.Context) ([]core.Category, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ImportPublisher queues an uploaded file for the worker instead of importing inline.
type ImportPublisher interface {
	PublishImportRequest(ctx context.Context, filename, requestID string) error
}

// Dependencies are the services the handlers call. ImportQueue is optional;
// when nil, uploads are imported during the request.
type Dependencies struct {
	Balance     overviewReader
	Creator     transactionCreator
	Deleter     transactionDeleter
	Importer    transactionImporter
	Categories  categoryLister
	Store       pinger
	ImportQueue ImportPublisher
	Logger      *log.Logger

	MaxUploadBytes int64
	RateLimit      ratelimit.Config
}

type Server struct {
	http.Server
	deps     Dependencies
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}

	s := &Server{
		deps:     deps,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(deps.RateLimit),
		detector: security.NewDetector(),
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /transactions/import", s.handleImport)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /balance", s.handleBalance)
	mux.HandleFunc("GET /categories", s.handleCategories)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// chain wraps h so that tracing runs outermost and handlers see a request-scoped logger.
func (s *Server) chain(h http.Handler) http.Handler {
	h = log.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = log.Middleware(s.logger)(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// RateLimiter is exposed so the caller can register it for periodic cleanup.
func (s *Server) RateLimiter() *ratelimit.Limiter {
	return s.limiter
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}
