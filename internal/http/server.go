package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
)

const (
	defaultChartTimeout   = 7 * time.Second
	readinessTimeout      = 2 * time.Second
	cacheCleanupInterval  = 10 * time.Minute
	defaultChartCacheSize = 256
	defaultChartCacheTTL  = time.Minute
)

// UserService is the part of the registry exposed over HTTP.
type UserService interface {
	SignUp(ctx context.Context, candidate core.User) (core.User, error)
	SignIn(ctx context.Context, creds core.Credentials) (bool, error)
	UpdateProfile(ctx context.Context, id int64, candidate core.User) (core.User, error)
}

// OperationService is the part of the ledger exposed over HTTP.
type OperationService interface {
	Add(ctx context.Context, candidate core.Operation) (core.Operation, error)
	Get(ctx context.Context, id int64) (core.Operation, bool, error)
	ListForUser(ctx context.Context, userID int64) ([]core.Operation, error)
	ListForUserInRange(ctx context.Context, userID int64, start, end string) ([]core.Operation, error)
	Update(ctx context.Context, id int64, candidate core.Operation) (core.Operation, error)
	Delete(ctx context.Context, id int64) error
}

// ChartService builds chart data.
type ChartService interface {
	Chart(ctx context.Context, req ledger.ChartRequest) (ledger.Chart, error)
}

// Dependencies are the services behind the routes. Ready is optional.
type Dependencies struct {
	Users      UserService
	Operations OperationService
	Charts     ChartService
	Ready      func(ctx context.Context) error
	Logger     *log.Logger
}

// Options tune the middleware and the chart cache. Zero values take
// defaults.
type Options struct {
	RateLimitPerMinute int
	ChartCacheTTL      time.Duration
	ChartCacheSize     int
	ChartTimeout       time.Duration
}

type appMetrics struct {
	uptime          time.Time
	operationWrites int64
	cacheHits       int64
	cacheMisses     int64
}

type Server struct {
	http.Server
	logger *log.Logger

	users      UserService
	operations OperationService
	charts     ChartService
	ready      func(ctx context.Context) error

	chartCache   *cache.LRUCache[ledger.Chart]
	cacheManager *cache.Manager
	chartFill    singleflight.Group
	chartTimeout time.Duration

	// per-user generation; bumped on every write so in-flight fills
	// started before the write do not repopulate the cache
	genMu       sync.Mutex
	generations map[int64]uint64

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.ChartCacheSize <= 0 {
		opts.ChartCacheSize = defaultChartCacheSize
	}
	if opts.ChartCacheTTL <= 0 {
		opts.ChartCacheTTL = defaultChartCacheTTL
	}
	if opts.ChartTimeout <= 0 {
		opts.ChartTimeout = defaultChartTimeout
	}

	s := &Server{
		logger:       logger.WithComponent(log.ComponentHTTP),
		users:        deps.Users,
		operations:   deps.Operations,
		charts:       deps.Charts,
		ready:        deps.Ready,
		chartCache:   cache.NewLRUCache[ledger.Chart](opts.ChartCacheSize, opts.ChartCacheTTL),
		cacheManager: cache.NewManager(logger),
		chartTimeout: opts.ChartTimeout,
		generations:  make(map[int64]uint64),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.cacheManager.Register(s.chartCache)
	s.cacheManager.StartCleanup(cacheCleanupInterval)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /users/sign_up", s.handleSignUp)
	mux.HandleFunc("POST /users/sign_in", s.handleSignIn)
	mux.HandleFunc("PUT /users/{id}", s.handleUpdateProfile)

	mux.HandleFunc("GET /operations/user/{userID}", s.handleListOperations)
	mux.HandleFunc("GET /operations/{userID}/{start}/{end}", s.handleListOperationsInRange)
	mux.HandleFunc("GET /operations/{id}", s.handleGetOperation)
	mux.HandleFunc("POST /operations", s.handleAddOperation)
	mux.HandleFunc("PUT /operations/{id}", s.handleUpdateOperation)
	mux.HandleFunc("DELETE /operations/{id}", s.handleDeleteOperation)

	mux.HandleFunc("GET /visualization/{kind}/{userID}", s.handleChart)
	mux.HandleFunc("GET /visualization/monthlyBudget/{userID}/{month}", s.handleMonthlyBudget)
	mux.HandleFunc("GET /visualization/yearDivideByMonthsBudget/{userID}", s.chartAlias(ledger.KindBar, ledger.MeasureBudget))
	mux.HandleFunc("GET /visualization/yearlyGraph/{userID}", s.chartAlias(ledger.KindGraph, ledger.MeasureBudget))
	mux.HandleFunc("GET /visualization/balanceGraph/{userID}", s.chartAlias(ledger.KindGraph, ledger.MeasureBalance))
	mux.HandleFunc("GET /visualization/balanceBar/{userID}", s.chartAlias(ledger.KindBar, ledger.MeasureBalance))
}

// middleware wraps h as trace -> headers -> detection -> rate limit.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, ratelimit.WritesOnly,
		func(w http.ResponseWriter, r *http.Request) {
			s.requestLogger(r).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
		})(h)
	h = s.securityDetector.Middleware(s.logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.traceMiddleware.Middleware(h)
}

// requestLogger returns the request-scoped logger set by the trace
// middleware, falling back to the server logger.
func (s *Server) requestLogger(r *http.Request) *log.Logger {
	if l, ok := r.Context().Value(log.LoggerContextKey).(*log.Logger); ok {
		return l.WithComponent(log.ComponentHTTP)
	}
	return s.logger
}

// Shutdown stops background loops and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
