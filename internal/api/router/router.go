package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/repairit-app/repairit-platform/internal/bookings"
	"github.com/repairit-app/repairit-platform/internal/diagnostic"
	httpmiddleware "github.com/repairit-app/repairit-platform/internal/http/middleware"
	"github.com/repairit-app/repairit-platform/internal/rewards"
	"github.com/repairit-app/repairit-platform/internal/webchat"
	"github.com/repairit-app/repairit-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	DiagnosticHandler  *diagnostic.Handler
	BookingsHandler    *bookings.Handler
	RewardsHandler     *rewards.Handler
	WebchatHandler     *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
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

	r.Route("/api", func(api chi.Router) {
		if cfg.DiagnosticHandler != nil {
			api.Post("/visual-search", cfg.DiagnosticHandler.VisualSearch)
			api.Route("/chats", func(chats chi.Router) {
				chats.Get("/", cfg.DiagnosticHandler.ListExperts)
				chats.Route("/{expert}", func(expert chi.Router) {
					expert.Get("/messages", cfg.DiagnosticHandler.GetMessages)
					expert.Post("/messages", cfg.DiagnosticHandler.PostMessage)
					expert.Post("/confirm", cfg.DiagnosticHandler.ConfirmBooking)
				})
			})
		}
		if cfg.BookingsHandler != nil {
			api.Get("/bookings", cfg.BookingsHandler.List)
		}
		if cfg.RewardsHandler != nil {
			api.Get("/rewards", cfg.RewardsHandler.Balance)
		}
	})

	if cfg.WebchatHandler != nil {
		r.Route("/webchat", func(wc chi.Router) {
			wc.Get("/ws", cfg.WebchatHandler.HandleWebSocket)
			wc.Post("/message", cfg.WebchatHandler.HandleMessage)
			wc.Get("/history", cfg.WebchatHandler.HandleHistory)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
