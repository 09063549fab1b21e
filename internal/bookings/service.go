package bookings

import (
	"context"

	"github.com/repairit-app/repairit-platform/internal/diagnostic"
	"github.com/repairit-app/repairit-platform/pkg/logging"
)

// repo narrows Repository for tests.
type repo interface {
	Insert(ctx context.Context, b Booking) (Booking, error)
	ListForUser(ctx context.Context, userID string) ([]Booking, error)
}

// Rewarder credits coins for confirmed bookings.
type Rewarder interface {
	Award(ctx context.Context, userID string, amount int64) (int64, error)
}

// Service creates booking records from confirmed billing directives and
// lists order history. It implements diagnostic.BookingCreator.
type Service struct {
	repo      repo
	rewards   Rewarder
	coinBonus int64
	logger    *logging.Logger
}

var _ diagnostic.BookingCreator = (*Service)(nil)

func NewService(repository *Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{logger: logger, coinBonus: 50}
	if repository != nil {
		s.repo = repository
	}
	return s
}

func (s *Service) WithRewards(r Rewarder, coinBonus int64) *Service {
	s.rewards = r
	if coinBonus > 0 {
		s.coinBonus = coinBonus
	}
	return s
}

// newServiceWithRepo injects a fake repository in tests.
func newServiceWithRepo(r repo, logger *logging.Logger) *Service {
	s := NewService(nil, logger)
	s.repo = r
	return s
}

// CreateFromDiagnostic records a booking confirmed in the diagnostic dialog.
// The coin award is best-effort: the ledger and the booking archive are not
// transactional with each other.
func (s *Service) CreateFromDiagnostic(ctx context.Context, req diagnostic.BookingRequest) error {
	if s.repo == nil {
		s.logger.Warn("booking archive disabled, dropping booking", "user_id", req.UserID)
		return nil
	}
	booking, err := s.repo.Insert(ctx, Booking{
		UserID:         req.UserID,
		ServiceName:    req.ServiceName,
		ExpertName:     req.ExpertName,
		Status:         req.Status,
		ArrivalTime:    req.ArrivalTime,
		TotalAmount:    req.TotalAmount,
		LaborAmount:    req.Breakdown.Labor,
		DeliveryAmount: req.Breakdown.Delivery,
		DistanceKM:     req.Breakdown.Distance,
	})
	if err != nil {
		return err
	}
	s.logger.Info("booking created",
		"booking_id", booking.ID,
		"user_id", booking.UserID,
		"service", booking.ServiceName,
		"total", booking.TotalAmount,
	)

	if s.rewards != nil {
		if balance, err := s.rewards.Award(ctx, req.UserID, s.coinBonus); err != nil {
			s.logger.Error("coin award failed", "error", err, "user_id", req.UserID)
		} else {
			s.logger.Info("coins awarded", "user_id", req.UserID, "bonus", s.coinBonus, "balance", balance)
		}
	}
	return nil
}

// ListForUser returns the user's order history, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Booking, error) {
	if s.repo == nil {
		return []Booking{}, nil
	}
	return s.repo.ListForUser(ctx, userID)
}
