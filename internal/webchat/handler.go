// Package webchat exposes the diagnostic dialog over WebSocket for the
// embedded storefront widget, with an HTTP fallback for clients that
// cannot hold a socket open.
package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/repairit-app/repairit-platform/internal/diagnostic"
	"github.com/repairit-app/repairit-platform/pkg/logging"
)

// Engine runs diagnostic turns. Satisfied by *diagnostic.Engine.
type Engine interface {
	OpenSession(ctx context.Context, userID, expertName, serviceName string) ([]diagnostic.Message, error)
	ProcessTurn(ctx context.Context, req diagnostic.TurnRequest) (*diagnostic.TurnResult, error)
}

// Handler manages widget connections and relays turns to the engine.
type Handler struct {
	engine Engine
	logger *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // sessionKey -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type  string `json:"type"` // "message", "ping"
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "error", "pong"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	Stage     string           `json:"stage,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history frames.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a webchat handler.
func NewHandler(engine Engine, logger *logging.Logger) *Handler {
	return &Handler{
		engine:   engine,
		logger:   logger.With("component", "webchat"),
		sessions: make(map[string]*wsConn),
	}
}

func sessionKey(userID, expertName string) string {
	return userID + ":" + expertName
}

// generateUserID creates a random visitor identifier for widgets that
// have no account.
func generateUserID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	expertName := r.URL.Query().Get("expert")
	if expertName == "" {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "missing expert parameter"})
		return
	}
	serviceName := r.URL.Query().Get("service")

	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = generateUserID()
	}

	// Send session info so the widget can persist its identity.
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", UserID: userID})

	// Opening the session also yields the welcome message on a fresh stream.
	if msgs, err := h.engine.OpenSession(r.Context(), userID, expertName, serviceName); err == nil && len(msgs) > 0 {
		history := make([]HistoryMessage, 0, len(msgs))
		for _, m := range msgs {
			history = append(history, HistoryMessage{
				Role:      m.Role,
				Text:      m.Text,
				Timestamp: m.CreatedAt.Format(time.RFC3339),
			})
		}
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
	}

	key := sessionKey(userID, expertName)
	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.sessions[key] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[key] == wsc {
			delete(h.sessions, key)
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	h.logger.Info("webchat: connection opened", "user_id", userID, "expert", expertName)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "user_id", userID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || (strings.TrimSpace(msg.Text) == "" && msg.Image == "") {
			continue
		}

		h.processTurn(r.Context(), userID, expertName, serviceName, msg.Text, msg.Image)
	}
}

func (h *Handler) processTurn(ctx context.Context, userID, expertName, serviceName, text, image string) {
	key := sessionKey(userID, expertName)

	h.SendToSession(key, OutboundMessage{Type: "typing"})

	result, err := h.engine.ProcessTurn(ctx, diagnostic.TurnRequest{
		UserID:      userID,
		ExpertName:  expertName,
		ServiceName: serviceName,
		Text:        text,
		ImageBase64: image,
	})
	if err != nil {
		h.logger.Error("webchat: turn failed", "error", err, "user_id", userID, "expert", expertName)
		h.SendToSession(key, OutboundMessage{
			Type: "error",
			Text: "Sorry, something went wrong. Please try again.",
		})
		return
	}

	h.SendToSession(key, OutboundMessage{
		Type:      "message",
		Role:      result.Reply.Role,
		Text:      result.Reply.Text,
		Stage:     string(result.Stage),
		Timestamp: result.Reply.CreatedAt.Format(time.RFC3339),
	})
}

// SendToSession sends a frame to an active WebSocket session.
func (h *Handler) SendToSession(key string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.sessions[key]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = websocket.JSON.Send(wsc.conn, msg)
}

// HandleMessage is the HTTP fallback for sending a turn.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"user_id"`
		Expert  string `json:"expert"`
		Service string `json:"service"`
		Text    string `json:"text"`
		Image   string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Expert == "" || (strings.TrimSpace(req.Text) == "" && req.Image == "") {
		http.Error(w, "expert and text are required", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		req.UserID = generateUserID()
	}

	result, err := h.engine.ProcessTurn(r.Context(), diagnostic.TurnRequest{
		UserID:      req.UserID,
		ExpertName:  req.Expert,
		ServiceName: req.Service,
		Text:        req.Text,
		ImageBase64: req.Image,
	})
	if err != nil {
		if errors.Is(err, diagnostic.ErrEmptyTurn) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("webchat: turn failed", "error", err, "user_id", req.UserID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"user_id": req.UserID,
		"reply":   result.Reply,
		"stage":   result.Stage,
	})
}

// HandleHistory returns the stream for a session, welcome included when
// the stream is new.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	expertName := r.URL.Query().Get("expert")
	if userID == "" || expertName == "" {
		http.Error(w, "user and expert parameters required", http.StatusBadRequest)
		return
	}

	msgs, err := h.engine.OpenSession(r.Context(), userID, expertName, r.URL.Query().Get("service"))
	if err != nil {
		h.logger.Error("webchat: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Text:      m.Text,
			Timestamp: m.CreatedAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
}
