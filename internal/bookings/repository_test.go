package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestRepositoryInsertAssignsIDAndTimestamp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(pgxmock.AnyArg(), "user-1", "Laptop Repair", "Technical Lead", "In Progress", pgxmock.AnyArg(), "₹750", "700", "50", "2", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewRepository(mock)
	booking, err := repo.Insert(context.Background(), Booking{
		UserID:         "user-1",
		ServiceName:    "Laptop Repair",
		ExpertName:     "Technical Lead",
		Status:         "In Progress",
		ArrivalTime:    time.Now().Add(20 * time.Minute).UTC(),
		TotalAmount:    "₹750",
		LaborAmount:    "700",
		DeliveryAmount: "50",
		DistanceKM:     "2",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if booking.ID == uuid.Nil {
		t.Error("expected id assigned")
	}
	if booking.CreatedAt.IsZero() {
		t.Error("expected created_at assigned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestRepositoryListForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	id1, id2 := uuid.New(), uuid.New()
	rows := pgxmock.NewRows([]string{"id", "user_id", "service_name", "expert_name", "status", "arrival_time", "total_amount", "labor_amount", "delivery_amount", "distance_km", "created_at"}).
		AddRow(id2, "user-1", "AC Repair", "AC Repair Support", "In Progress", now.Add(20*time.Minute), "₹2,045", "2,000", "45", "3", now).
		AddRow(id1, "user-1", "Laptop Repair", "Technical Lead", "Completed", now.Add(-time.Hour), "₹750", "", "", "", now.Add(-2*time.Hour))
	mock.ExpectQuery("SELECT id, user_id, service_name").
		WithArgs("user-1").
		WillReturnRows(rows)

	repo := NewRepository(mock)
	items, err := repo.ListForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(items))
	}
	if items[0].ID != id2 || items[1].ID != id1 {
		t.Errorf("unexpected order: %v then %v", items[0].ID, items[1].ID)
	}
	if items[0].LaborAmount != "2,000" || items[0].DeliveryAmount != "45" || items[0].DistanceKM != "3" {
		t.Errorf("breakdown not scanned: %+v", items[0])
	}
	if items[1].LaborAmount != "" {
		t.Errorf("expected empty breakdown on total-only booking, got %+v", items[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestRepositoryNilPool(t *testing.T) {
	if NewRepository(nil) != nil {
		t.Error("expected nil repository for nil pool")
	}
}
