package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/coinkeep/coinkeep/internal/transport/httpapi/handler"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi/middleware"
	"github.com/coinkeep/coinkeep/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger          *logger.Logger
	AllowedOrigins  []string
	AuthHandler     *handler.AuthHandler
	AccountHandler  *handler.AccountHandler
	CategoryHandler *handler.CategoryHandler
	EntryHandler    *handler.EntryHandler
	ReportHandler   *handler.ReportHandler
	LoanHandler     *handler.LoanHandler
	EventHandler    *handler.EventHandler
	HealthHandler   *handler.HealthHandler
	JWTMiddleware   func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit()) // Rate limiting: 100 req/s with burst of 20

	// Health check endpoints (no authentication required)
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
		r.Get("/health/detailed", cfg.HealthHandler.GetHealthDetailed)
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public - no authentication required)
		if cfg.AuthHandler != nil {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		// Protected routes (require JWT authentication)
		if cfg.JWTMiddleware != nil {
			r.Group(func(r chi.Router) {
				r.Use(cfg.JWTMiddleware)

				// Profile routes
				if cfg.AuthHandler != nil {
					r.Get("/me", cfg.AuthHandler.GetProfile)
					r.Put("/me", cfg.AuthHandler.UpdateProfile)
				}

				// Account routes
				if cfg.AccountHandler != nil {
					r.Route("/accounts", func(r chi.Router) {
						r.Post("/", cfg.AccountHandler.CreateAccount)
						r.Get("/", cfg.AccountHandler.ListAccounts)
						r.Post("/reorder", cfg.AccountHandler.ReorderAccounts)
						r.Get("/{id}/balances", cfg.AccountHandler.GetBalances)
						r.Put("/{id}", cfg.AccountHandler.UpdateAccount)
						r.Post("/{id}/rename", cfg.AccountHandler.RenameAccount)
						r.Post("/{id}/archive", cfg.AccountHandler.ArchiveAccount)
						r.Delete("/{id}", cfg.AccountHandler.DeleteAccount)
						r.Post("/{id}/reconcile", cfg.AccountHandler.QuickReconcile)
						r.Post("/{id}/reconcile/manual", cfg.AccountHandler.ManualReconcile)
						r.Post("/{id}/unreconcile", cfg.AccountHandler.Unreconcile)
					})
				}

				// Category routes
				if cfg.CategoryHandler != nil {
					r.Route("/categories", func(r chi.Router) {
						r.Post("/", cfg.CategoryHandler.CreateCategory)
						r.Get("/", cfg.CategoryHandler.ListCategories)
						r.Put("/{id}", cfg.CategoryHandler.UpdateCategory)
						r.Post("/{id}/rename", cfg.CategoryHandler.RenameCategory)
						r.Delete("/{id}", cfg.CategoryHandler.DeleteCategory)
					})
				}

				// Entry routes
				if cfg.EntryHandler != nil {
					r.Route("/entries", func(r chi.Router) {
						r.Post("/", cfg.EntryHandler.CreateEntry)
						r.Get("/", cfg.EntryHandler.ListEntries)
						r.Post("/bulk-delete", cfg.EntryHandler.BulkDelete)
						r.Post("/bulk-duplicate", cfg.EntryHandler.BulkDuplicate)
						r.Get("/{id}", cfg.EntryHandler.GetEntry)
						r.Put("/{id}", cfg.EntryHandler.UpdateEntry)
						r.Delete("/{id}", cfg.EntryHandler.DeleteEntry)
						r.Post("/{id}/toggle-clear", cfg.EntryHandler.ToggleClear)
					})
				}

				// Report routes
				if cfg.ReportHandler != nil {
					r.Get("/reports/categories", cfg.ReportHandler.GetCategoryReport)
				}

				// Loan routes
				if cfg.LoanHandler != nil {
					r.Get("/loans", cfg.LoanHandler.ListLoans)
				}

				// Live change stream
				if cfg.EventHandler != nil {
					r.Get("/events", cfg.EventHandler.Stream)
				}
			})
		}
	})

	return r
}
