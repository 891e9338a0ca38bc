package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/roach88/marketplace/internal/ir"
	"github.com/roach88/marketplace/internal/market"
)

// RequesterHeader carries the caller identity on mutating requests.
const RequesterHeader = "X-Requester"

// DefaultPollTimeout bounds GET /entries/next.
const DefaultPollTimeout = 30 * time.Second

type requesterKey struct{}

// Server serves one marketplace.
type Server struct {
	market      *market.Marketplace
	logger      *slog.Logger
	pollTimeout time.Duration
	origins     []string
	router      chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithPollTimeout sets the long-poll window of GET /entries/next.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Server) { s.pollTimeout = d }
}

// WithAllowedOrigins sets the CORS origins. Default: none, so browsers on
// other origins are refused.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New builds the router for m.
func New(m *market.Marketplace, opts ...Option) *Server {
	s := &Server{
		market:      m,
		logger:      slog.Default(),
		pollTimeout: DefaultPollTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", RequesterHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/market", s.handleMarket)
	r.Get("/roles/{addr}", s.handleRole)
	r.Get("/stores", s.handleStores)
	r.Get("/stores/{addr}", s.handleStore)
	r.Get("/entries", s.handleEntries)
	r.Get("/entries/next", s.handleNextEntry)

	r.Group(func(r chi.Router) {
		r.Use(requireRequester)

		r.Post("/admins", s.handleAddAdmin)
		r.Delete("/admins/{addr}", s.handleDeleteAdmin)
		r.Post("/owners", s.handleAddOwner)
		r.Delete("/owners/{addr}", s.handleDeleteOwner)
		r.Post("/stores", s.handleCreateStore)
	})

	return r
}

// requireRequester resolves X-Requester into the request context.
func requireRequester(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get(RequesterHeader)
		if h == "" {
			respondError(w, r, http.StatusUnauthorized, "MISSING_REQUESTER", RequesterHeader+" header is required")
			return
		}
		id, err := ir.ParseIdentity(h)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, string(ir.ErrCodeInvalidArgument), err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requesterKey{}, id)))
	})
}

func requester(r *http.Request) ir.Identity {
	id, _ := r.Context().Value(requesterKey{}).(ir.Identity)
	return id
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
