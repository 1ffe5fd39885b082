package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hongminglow/flous-cash-be/internal/models"
)

// Event is the envelope appended to the Redis stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Stream appends service.created events to a Redis stream.
type Stream struct {
	client *redis.Client
	stream string
	log    *zap.Logger
}

func NewStream(client *redis.Client, stream string, log *zap.Logger) *Stream {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stream{client: client, stream: stream, log: log.Named("stream")}
}

func (s *Stream) Notify(ctx context.Context, svc models.Service, user models.User) {
	if err := s.publish(ctx, RoutingKey, newServiceCreated(svc, user)); err != nil {
		s.log.Warn("stream publish failed", zap.Int64("service_id", svc.ID), zap.Error(err))
	}
}

func (s *Stream) publish(ctx context.Context, eventType string, data any) error {
	payload, err := json.Marshal(Event{Type: eventType, Timestamp: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{"event": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}
