package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Booking is one confirmed doorstep repair order. The labor, delivery and
// distance fields carry the quoted breakdown verbatim and may be empty when
// the quote only named a total.
type Booking struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	ServiceName    string    `json:"service_name"`
	ExpertName     string    `json:"expert_name"`
	Status         string    `json:"status"`
	ArrivalTime    time.Time `json:"arrival_time"`
	TotalAmount    string    `json:"total_amount"`
	LaborAmount    string    `json:"labor_amount,omitempty"`
	DeliveryAmount string    `json:"delivery_amount,omitempty"`
	DistanceKM     string    `json:"distance_km,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
