// Package rewards keeps the per-user coin ledger backed by Redis.
package rewards

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("repairit.internal.rewards")

// Store is the coin ledger. Balances live under coins:{user} and only
// ever move through atomic increments, so concurrent awards cannot lose
// updates.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	if client == nil {
		return nil
	}
	return &Store{client: client}
}

func balanceKey(userID string) string {
	return fmt.Sprintf("coins:%s", userID)
}

// Award credits amount coins to the user and returns the new balance.
func (s *Store) Award(ctx context.Context, userID string, amount int64) (int64, error) {
	ctx, span := tracer.Start(ctx, "rewards.Award")
	defer span.End()
	span.SetAttributes(attribute.Int64("rewards.amount", amount))

	balance, err := s.client.IncrBy(ctx, balanceKey(userID), amount).Result()
	if err != nil {
		return 0, fmt.Errorf("rewards: award coins: %w", err)
	}
	return balance, nil
}

// Balance returns the user's coin balance, zero when the user has never
// earned coins.
func (s *Store) Balance(ctx context.Context, userID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "rewards.Balance")
	defer span.End()

	balance, err := s.client.Get(ctx, balanceKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rewards: read balance: %w", err)
	}
	return balance, nil
}
