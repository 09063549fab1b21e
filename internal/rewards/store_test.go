package rewards

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestAwardAccumulates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	balance, err := store.Award(ctx, "user-1", 50)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if balance != 50 {
		t.Fatalf("expected balance 50, got %d", balance)
	}

	balance, err = store.Award(ctx, "user-1", 50)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if balance != 100 {
		t.Fatalf("expected balance 100, got %d", balance)
	}
}

func TestBalanceZeroForNewUser(t *testing.T) {
	store := newTestStore(t)

	balance, err := store.Balance(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected zero balance, got %d", balance)
	}
}

func TestBalancesAreIsolatedPerUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Award(ctx, "user-1", 75); err != nil {
		t.Fatalf("award: %v", err)
	}
	balance, err := store.Balance(ctx, "user-2")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected user-2 untouched, got %d", balance)
	}
}

func TestNewStoreNilClient(t *testing.T) {
	if NewStore(nil) != nil {
		t.Error("expected nil store for nil client")
	}
}

func TestHandlerBalance(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Award(context.Background(), "user-1", 150); err != nil {
		t.Fatalf("award: %v", err)
	}
	h := NewHandler(store, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rewards", nil)
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	h.Balance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"coins":150`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandlerBalanceDefaultsToGuest(t *testing.T) {
	h := NewHandler(newTestStore(t), nil)

	rec := httptest.NewRecorder()
	h.Balance(rec, httptest.NewRequest(http.MethodGet, "/api/rewards", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"coins":0`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandlerWithoutStore(t *testing.T) {
	h := NewHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.Balance(rec, httptest.NewRequest(http.MethodGet, "/api/rewards", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"coins":0`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
