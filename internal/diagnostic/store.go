package diagnostic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	messageLogKeyPrefix  = "chat_log:"
	expertIndexKeyPrefix = "chat_index:"
)

// MessageStore is the durable, ordered, append-only record of messages per
// (user, expert) key, backed by a Redis list. Writes for one key must come
// from a single caller at a time; the engine serializes them.
type MessageStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewMessageStore(redisClient *redis.Client) *MessageStore {
	if redisClient == nil {
		return nil
	}
	return &MessageStore{
		redis:  redisClient,
		tracer: otel.Tracer("repairit.internal.diagnostic.messages"),
	}
}

// Append assigns an id and timestamp when absent and pushes the message onto
// the end of the (user, expertName) stream. Prior entries are never touched.
func (s *MessageStore) Append(ctx context.Context, userID string, msg Message) error {
	if s == nil || s.redis == nil {
		return errors.New("diagnostic: message store not configured")
	}
	if userID == "" {
		return errors.New("diagnostic: message store userID required")
	}
	if msg.ExpertName == "" {
		return errors.New("diagnostic: message expert name required")
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("diagnostic: marshal message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "diagnostic.messages.append")
	defer span.End()

	if err := s.redis.RPush(ctx, messageLogKey(userID, msg.ExpertName), data).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("diagnostic: append message: %w", err)
	}
	return nil
}

// List returns the full ordered stream for (user, expert), oldest first. A
// missing stream yields an empty slice.
func (s *MessageStore) List(ctx context.Context, userID, expertName string) ([]Message, error) {
	if s == nil || s.redis == nil {
		return nil, errors.New("diagnostic: message store not configured")
	}
	if userID == "" || expertName == "" {
		return nil, errors.New("diagnostic: message store userID and expertName required")
	}

	ctx, span := s.tracer.Start(ctx, "diagnostic.messages.list")
	defer span.End()

	raw, err := s.redis.LRange(ctx, messageLogKey(userID, expertName), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		if err == redis.Nil {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("diagnostic: list messages: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func messageLogKey(userID, expertName string) string {
	return messageLogKeyPrefix + userID + ":" + expertName
}

// ExpertIndex tracks, per user, the set of experts ever messaged. Backed by
// a Redis set, so insertion is naturally idempotent.
type ExpertIndex struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewExpertIndex(redisClient *redis.Client) *ExpertIndex {
	if redisClient == nil {
		return nil
	}
	return &ExpertIndex{
		redis:  redisClient,
		tracer: otel.Tracer("repairit.internal.diagnostic.experts"),
	}
}

// Ensure records that the user has contacted the expert. Repeated calls with
// the same pair have no observable effect beyond the first.
func (s *ExpertIndex) Ensure(ctx context.Context, userID, expertName string) error {
	if s == nil || s.redis == nil {
		return errors.New("diagnostic: expert index not configured")
	}
	if userID == "" || expertName == "" {
		return errors.New("diagnostic: expert index userID and expertName required")
	}

	ctx, span := s.tracer.Start(ctx, "diagnostic.experts.ensure")
	defer span.End()

	if err := s.redis.SAdd(ctx, expertIndexKey(userID), expertName).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("diagnostic: ensure expert: %w", err)
	}
	return nil
}

// List returns the experts the user has contacted, sorted for stable
// display. Order carries no semantic meaning.
func (s *ExpertIndex) List(ctx context.Context, userID string) ([]string, error) {
	if s == nil || s.redis == nil {
		return nil, errors.New("diagnostic: expert index not configured")
	}
	if userID == "" {
		return nil, errors.New("diagnostic: expert index userID required")
	}

	ctx, span := s.tracer.Start(ctx, "diagnostic.experts.list")
	defer span.End()

	experts, err := s.redis.SMembers(ctx, expertIndexKey(userID)).Result()
	if err != nil {
		span.RecordError(err)
		if err == redis.Nil {
			return []string{}, nil
		}
		return nil, fmt.Errorf("diagnostic: list experts: %w", err)
	}
	sort.Strings(experts)
	return experts, nil
}

func expertIndexKey(userID string) string {
	return expertIndexKeyPrefix + userID
}
