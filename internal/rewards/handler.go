package rewards

import (
	"encoding/json"
	"net/http"

	"github.com/repairit-app/repairit-platform/pkg/logging"
)

// Handler exposes the coin balance over HTTP.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	return &Handler{store: store, logger: logger.With("component", "rewards")}
}

// Balance handles GET /api/rewards.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		userID = "guest"
	}

	var coins int64
	if h.store != nil {
		var err error
		coins, err = h.store.Balance(r.Context(), userID)
		if err != nil {
			h.logger.Error("read coin balance failed", "error", err, "user_id", userID)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"coins": coins})
}
