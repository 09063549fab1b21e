package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pgx surface the repository needs; pgxmock satisfies it in
// tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists bookings in Postgres. See schema.sql.
type Repository struct {
	pool PgxPool
}

func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		return nil
	}
	return &Repository{pool: pool}
}

// Insert writes one booking row. Missing ids and timestamps are assigned.
func (r *Repository) Insert(ctx context.Context, b Booking) (Booking, error) {
	if r == nil || r.pool == nil {
		return Booking{}, fmt.Errorf("bookings: repository not configured")
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO bookings (id, user_id, service_name, expert_name, status, arrival_time, total_amount, labor_amount, delivery_amount, distance_km, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query, b.ID, b.UserID, b.ServiceName, b.ExpertName, b.Status, b.ArrivalTime, b.TotalAmount, b.LaborAmount, b.DeliveryAmount, b.DistanceKM, b.CreatedAt)
	if err != nil {
		return Booking{}, fmt.Errorf("bookings: insert booking: %w", err)
	}
	return b, nil
}

// ListForUser returns the user's bookings, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]Booking, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("bookings: repository not configured")
	}
	query := `
		SELECT id, user_id, service_name, expert_name, status, arrival_time, total_amount, labor_amount, delivery_amount, distance_km, created_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("bookings: list bookings: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.ServiceName, &b.ExpertName, &b.Status, &b.ArrivalTime, &b.TotalAmount, &b.LaborAmount, &b.DeliveryAmount, &b.DistanceKM, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("bookings: scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate bookings: %w", err)
	}
	return out, nil
}
