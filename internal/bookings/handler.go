package bookings

import (
	"encoding/json"
	"net/http"

	"github.com/repairit-app/repairit-platform/pkg/logging"
)

// Handler exposes order history over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("bookings: service cannot be nil")
	}
	return &Handler{service: service, logger: logger.With("component", "bookings")}
}

// List handles GET /api/bookings.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		userID = "guest"
	}
	items, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list bookings failed", "error", err, "user_id", userID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []Booking{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"bookings": items})
}
