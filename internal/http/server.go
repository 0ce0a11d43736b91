package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "cobros/internal/log"
	"cobros/internal/middleware/ratelimit"
	"cobros/internal/middleware/security"
	"cobros/internal/middleware/trace"
)

// Server is the public JSON API.
type Server struct {
	http.Server
	limiter  *ratelimit.Limiter
	detector *security.Detector
	logger   *applog.Logger
}

// Options tunes the server. Zero values take defaults.
type Options struct {
	RateLimitPerMinute int
	TrustedProxies     []string
	Ready              func(context.Context) error
	Logger             *applog.Logger
}

// NewServer builds the router and wraps it in an http.Server listening on addr.
func NewServer(addr string, collections Collections, dashboard Dashboard, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, applog.FieldError, err.Error())
		}
	}

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}
	limiter := ratelimit.NewLimiter(limitCfg)

	s := &Server{limiter: limiter, detector: detector, logger: logger}

	r := chi.NewRouter()
	r.Use(trace.NewMiddleware(logger, detector.ExtractClientIP).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.rejectSuspicious)

	h := &handlers{collections: collections, dashboard: dashboard, ready: opts.Ready}
	h.routes(r, limiter.Middleware(detector.ExtractClientIP, s.tooManyRequests))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) rejectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request blocked",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldPath, r.URL.Path)
			BadRequestError("bad request").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r))
	ErrorResponse(http.StatusTooManyRequests, "too many requests").Write(w)
}

// Shutdown drains in-flight requests and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Stop()
	s.logger.InfoContext(ctx, "Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
	return s.Server.Shutdown(ctx)
}
