// Package router assembles the HTTP surface of the booking service.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quickbooking/qr-booking/internal/http/handlers"
	httpmiddleware "github.com/quickbooking/qr-booking/internal/http/middleware"
	"github.com/quickbooking/qr-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	WizardHandler      *handlers.WizardHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.WizardHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/booking/sessions", func(r chi.Router) {
		r.Post("/", cfg.WizardHandler.StartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", cfg.WizardHandler.GetSession)
			r.Post("/details", cfg.WizardHandler.SubmitDetails)
			r.Post("/navigate", cfg.WizardHandler.NavigateDate)
			r.Post("/select", cfg.WizardHandler.SelectSlot)
			r.Post("/back", cfg.WizardHandler.ReturnToDetails)
			r.Post("/confirm", cfg.WizardHandler.ConfirmBooking)
		})
	})

	return r
}
