// Package router wires the HTTP surface of the scheduling engine.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicore/scheduling-engine/internal/appointments"
	"github.com/clinicore/scheduling-engine/internal/availability"
	"github.com/clinicore/scheduling-engine/internal/booking"
	httpmiddleware "github.com/clinicore/scheduling-engine/internal/http/middleware"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/internal/stats"
	"github.com/clinicore/scheduling-engine/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ScheduleHandler     *schedule.Handler
	AvailabilityHandler *availability.Handler
	BookingHandler      *booking.Handler
	AppointmentsHandler *appointments.Handler
	StatsHandler        *stats.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
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

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.ScheduleHandler != nil {
			cfg.ScheduleHandler.RegisterRoutes(api)
		}
		if cfg.AvailabilityHandler != nil {
			cfg.AvailabilityHandler.RegisterRoutes(api)
		}
		if cfg.BookingHandler != nil {
			cfg.BookingHandler.RegisterRoutes(api)
		}
		if cfg.AppointmentsHandler != nil {
			cfg.AppointmentsHandler.RegisterRoutes(api)
		}
		if cfg.StatsHandler != nil {
			cfg.StatsHandler.RegisterRoutes(api)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
