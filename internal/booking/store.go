package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/quickbooking/qr-booking/pkg/logging"
)

const sessionKeyPrefix = "booking_session:"

var tracer = otel.Tracer("internal/booking")

// RedisStore keeps sessions in Redis under booking_session:<id> with a
// per-save TTL, so abandoned sessions expire on their own.
type RedisStore struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisStore creates a store on an existing Redis client.
func NewRedisStore(client *redis.Client, logger *logging.Logger) *RedisStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Save serializes the session and writes it with the given TTL. Every
// save refreshes the TTL, so an active session never expires mid-visit.
func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "booking.save_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sess.ID),
		attribute.String("session.screen", string(sess.Screen)),
	)

	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal failed")
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(sess.ID), data, ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "redis set failed")
		s.logger.Error("failed to save session", "session_id", sess.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load fetches and deserializes a session. Unknown or expired ids map
// to ErrSessionNotFound.
func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "booking.load_session")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "redis get failed")
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unmarshal failed")
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "booking.delete_session")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "redis del failed")
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
