package diagnostic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/repairit-app/repairit-platform/pkg/logging"
)

// Handler exposes the diagnostic engine over HTTP. User identity comes from
// the X-User-Id header; authentication itself is an upstream concern.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("diagnostic: engine cannot be nil")
	}
	return &Handler{engine: engine, logger: logger.With("component", "diagnostic")}
}

type turnPayload struct {
	Text        string `json:"text"`
	Image       string `json:"image,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
}

type confirmPayload struct {
	MessageText string `json:"message_text"`
	ServiceName string `json:"service_name,omitempty"`
}

// ListExperts handles GET /api/chats.
func (h *Handler) ListExperts(w http.ResponseWriter, r *http.Request) {
	experts, err := h.engine.Experts(r.Context(), userID(r))
	if err != nil {
		h.serverError(w, r, "list experts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"experts": experts})
}

// GetMessages handles GET /api/chats/{expert}/messages. A new session
// yields the synthesized welcome.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	expert := expertParam(r)
	msgs, err := h.engine.OpenSession(r.Context(), userID(r), expert, r.URL.Query().Get("service"))
	if err != nil {
		h.serverError(w, r, "open session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// PostMessage handles POST /api/chats/{expert}/messages: one turn of the
// intake dialog.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var payload turnPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.engine.ProcessTurn(r.Context(), TurnRequest{
		UserID:      userID(r),
		ExpertName:  expertParam(r),
		ServiceName: payload.ServiceName,
		Text:        payload.Text,
		ImageBase64: payload.Image,
	})
	switch {
	case errors.Is(err, ErrEmptyTurn):
		http.Error(w, "text or image is required", http.StatusBadRequest)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away; nothing left to write.
		return
	case err != nil:
		h.serverError(w, r, "process turn", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ConfirmBooking handles POST /api/chats/{expert}/confirm: the user accepted
// a billing directive.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	var payload confirmPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if payload.MessageText == "" {
		http.Error(w, "message_text is required", http.StatusBadRequest)
		return
	}

	booking, err := h.engine.ConfirmBooking(r.Context(), ConfirmRequest{
		UserID:      userID(r),
		ExpertName:  expertParam(r),
		ServiceName: payload.ServiceName,
		MessageText: payload.MessageText,
	})
	if err != nil {
		h.serverError(w, r, "confirm booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// VisualSearch handles POST /api/visual-search: hardware identification
// from a standalone photo.
func (h *Handler) VisualSearch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	summary, err := h.engine.VisualSearch(r.Context(), payload.Image)
	switch {
	case errors.Is(err, ErrImageRequired):
		http.Error(w, "image is required", http.StatusBadRequest)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	case err != nil:
		h.serverError(w, r, "visual search", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error("diagnostic handler error", "op", op, "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// expertParam decodes the expert route segment; expert names carry spaces.
func expertParam(r *http.Request) string {
	raw := chi.URLParam(r, "expert")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-Id"); id != "" {
		return id
	}
	return "guest"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
