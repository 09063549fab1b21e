package diagnostic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestHandler(t *testing.T, client ExpertClient) (*Handler, *Engine) {
	t.Helper()
	engine := newTestEngine(t, client)
	return NewHandler(engine, nil), engine
}

func routeFor(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/chats", h.ListExperts)
	r.Get("/api/chats/{expert}/messages", h.GetMessages)
	r.Post("/api/chats/{expert}/messages", h.PostMessage)
	r.Post("/api/chats/{expert}/confirm", h.ConfirmBooking)
	r.Post("/api/visual-search", h.VisualSearch)
	return r
}

func TestHandlerGetMessagesNewSession(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedExpertClient{})
	srv := routeFor(h)

	req := httptest.NewRequest(http.MethodGet, "/api/chats/Technical%20Lead/messages?service=AC+Repair", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Messages []Message `json:"messages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Messages) != 1 || !strings.Contains(body.Messages[0].Text, "Protocol initiated for: AC Repair") {
		t.Fatalf("unexpected messages: %+v", body.Messages)
	}
}

func TestHandlerPostMessageGreeting(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedExpertClient{})
	srv := routeFor(h)

	req := httptest.NewRequest(http.MethodPost, "/api/chats/Technical%20Lead/messages", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("X-User-Id", "user-42")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result TurnResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Stage != StageDevice {
		t.Errorf("stage = %s", result.Stage)
	}
	if result.Reply.Text != devicePrompt {
		t.Errorf("reply = %q", result.Reply.Text)
	}
}

func TestHandlerPostMessageValidation(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedExpertClient{})
	srv := routeFor(h)

	req := httptest.NewRequest(http.MethodPost, "/api/chats/Technical%20Lead/messages", strings.NewReader(`{"text":"  "}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty turn status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/chats/Technical%20Lead/messages", strings.NewReader(`{bad json`))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d", rec.Code)
	}
}

func TestHandlerConfirmBooking(t *testing.T) {
	h, engine := newTestHandler(t, &scriptedExpertClient{})
	booker := &fakeBookingCreator{}
	engine.WithBookings(booker)
	srv := routeFor(h)

	body := `{"message_text":"BILL_BREAKDOWN: Labor: ₹700, Delivery: ₹50, Distance: 2km, Total: ₹750","service_name":"Laptop Repair"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chats/Technical%20Lead/confirm", strings.NewReader(body))
	req.Header.Set("X-User-Id", "user-42")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var booking BookingRequest
	if err := json.NewDecoder(rec.Body).Decode(&booking); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if booking.TotalAmount != "₹750" || booking.ServiceName != "Laptop Repair" {
		t.Errorf("unexpected booking: %+v", booking)
	}
	if booking.Breakdown.Labor != "700" || booking.Breakdown.Delivery != "50" || booking.Breakdown.Distance != "2" {
		t.Errorf("breakdown missing from confirm response: %+v", booking.Breakdown)
	}
	if len(booker.created) != 1 {
		t.Fatalf("expected booking collaborator call, got %d", len(booker.created))
	}
	if time.Until(booking.ArrivalTime) <= 0 {
		t.Errorf("ETA should be in the future: %s", booking.ArrivalTime)
	}
}

func TestHandlerConfirmBookingRequiresMessage(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedExpertClient{})
	srv := routeFor(h)

	req := httptest.NewRequest(http.MethodPost, "/api/chats/Technical%20Lead/confirm", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandlerListExperts(t *testing.T) {
	h, engine := newTestHandler(t, &scriptedExpertClient{})
	srv := routeFor(h)

	if _, err := engine.ProcessTurn(context.Background(), TurnRequest{UserID: "user-42", ExpertName: "AC Repair Support", Text: "hi"}); err != nil {
		t.Fatalf("seed turn: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("X-User-Id", "user-42")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Experts []string `json:"experts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Experts) != 1 || body.Experts[0] != "AC Repair Support" {
		t.Errorf("unexpected experts: %v", body.Experts)
	}
}

func TestHandlerDefaultsToGuestUser(t *testing.T) {
	h, engine := newTestHandler(t, &scriptedExpertClient{})
	srv := routeFor(h)

	req := httptest.NewRequest(http.MethodPost, "/api/chats/Technical%20Lead/messages", strings.NewReader(`{"text":"hi"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	msgs, err := engine.store.List(context.Background(), "guest", "Technical Lead")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("expected guest stream populated, got %d messages", len(msgs))
	}
}
