package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/auth"
	"github.com/BradenHooton/ticketdesk/internal/handlers"
	"github.com/BradenHooton/ticketdesk/internal/metrics"
	"github.com/BradenHooton/ticketdesk/internal/middleware"
	"github.com/BradenHooton/ticketdesk/internal/models"
	pkghttp "github.com/BradenHooton/ticketdesk/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies are the collaborators the router is assembled from
type Dependencies struct {
	AuthHandler      *handlers.AuthHandler
	ComplaintHandler *handlers.ComplaintHandler
	AdminHandler     *handlers.AdminHandler
	Tokens           auth.TokenValidator
	Health           HealthChecker
	Metrics          *metrics.Metrics
	Logger           *slog.Logger

	Env            string
	AllowedOrigins []string
	IPConfig       *pkghttp.IPConfig
	AuthRateLimit  int
	WriteRateLimit int
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP handler with the global middleware stack and every route
func NewRouter(deps Dependencies) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(deps.Metrics.Instrument)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: deps.Env}))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(deps.AllowedOrigins)))
	router.Use(middleware.SecureLogger(deps.Logger, deps.IPConfig))
	router.Use(chimiddleware.Recoverer)
	if deps.RequestTimeout > 0 {
		router.Use(chimiddleware.Timeout(deps.RequestTimeout))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	RegisterRoutes(router, deps)
	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	authLimit := middleware.DefaultAuthRateLimit(deps.IPConfig)
	if deps.AuthRateLimit > 0 {
		authLimit.Requests = deps.AuthRateLimit
	}
	writeLimit := middleware.RateLimitConfig{
		Requests: deps.WriteRateLimit,
		Window:   time.Minute,
		IPConfig: deps.IPConfig,
	}
	if writeLimit.Requests < 1 {
		writeLimit.Requests = 30
	}

	router.Get("/health", healthHandler(deps.Health))
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(authLimit))
		r.Post("/register", deps.AuthHandler.Register)
		r.Post("/login", deps.AuthHandler.Login)
		r.Post("/forgot-password", deps.AuthHandler.ForgotPassword)
		r.Post("/reset-password", deps.AuthHandler.ResetPassword)
		r.Post("/verify-reset-token", deps.AuthHandler.VerifyResetToken)
	})
	router.Get("/complaints/track/{reference}", deps.ComplaintHandler.Track)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(deps.Tokens))

		r.Post("/logout", deps.AuthHandler.Logout)
		r.Get("/complaints", deps.ComplaintHandler.List)
		r.With(middleware.RateLimitByUser(writeLimit)).Post("/complaints", deps.ComplaintHandler.Create)
		r.Get("/complaints/{id}", deps.ComplaintHandler.Get)

		// Staff-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Post("/complaints/{id}/status", deps.ComplaintHandler.UpdateStatus)
			r.Get("/admin/stats", deps.AdminHandler.GetStats)
			r.Post("/admin/export", deps.AdminHandler.ExportComplaints)
		})
	})
}

func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := checker.HealthCheck(ctx); err != nil {
				pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
				return
			}
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	}
}
