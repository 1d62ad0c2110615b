// Package http serves the transaction API as JSON over net/http.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"txcat/internal/core"
	"txcat/internal/log"
	"txcat/internal/middleware/ratelimit"
	"txcat/internal/middleware/security"
	"txcat/internal/middleware/trace"
)

// TransactionAPI is the service behind the HTTP handlers.
type TransactionAPI interface {
	Create(ctx context.Context, in core.NewTransaction) (core.Transaction, error)
	List(ctx context.Context, f core.Filter) ([]core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	Summary(ctx context.Context, month core.Month) (core.MonthlySummary, error)
	Categories() []string
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values select the defaults.
type Options struct {
	Logger *log.Logger

	// RateLimit applies to POST requests.
	RateLimit ratelimit.Config

	ReadinessTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.Discard()
	}
	if o.RateLimit.RequestsPerWindow == 0 {
		o.RateLimit = ratelimit.DefaultConfig()
	}
	if o.ReadinessTimeout <= 0 {
		o.ReadinessTimeout = 2 * time.Second
	}
	return o
}

type Server struct {
	http.Server

	svc       TransactionAPI
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	readyWait time.Duration
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Shutdown releases the background goroutines it starts.
func NewServer(addr string, svc TransactionAPI, opts Options) *Server {
	opts = opts.withDefaults()
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:       svc,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		detector:  security.NewDetector(),
		readyWait: opts.ReadinessTimeout,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/categories", s.handleCategories)
	mux.HandleFunc("/transactions", s.handleTransactions)
	mux.HandleFunc("/transactions/", s.handleTransactions)
	mux.HandleFunc("/transactions/summary", s.handleSummary)
	mux.HandleFunc("/transactions/{id}", s.handleTransactionByID)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.recoverMiddleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError(ratelimit.RetryAfterSeconds(retryAfter)).Write(w)
}

// recoverMiddleware turns a handler panic into a logged 500.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
					"panic", rec,
					log.FieldMethod, r.Method,
					log.FieldPath, r.URL.Path)
				InternalServerError().Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and the rate limiter
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	err := s.Server.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
