package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/noel-en-famille/internal/logging"
	"go.uber.org/zap"
)

// RelayChannel is the Redis Pub/Sub channel shared by all instances.
const RelayChannel = "noel:realtime"

// relayMessage wraps a frame with the instance that produced it.
type relayMessage struct {
	Origin  string          `json:"origin"`
	EventID uint64          `json:"eventId"`
	Frame   json.RawMessage `json:"frame"`
}

// RedisRelay mirrors broadcasts between instances through Redis Pub/Sub.
type RedisRelay struct {
	rdb    *redis.Client
	hub    *Hub
	origin string
}

// NewRedisClient creates a go-redis client from a URL (e.g. "redis://localhost:6379").
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewRedisRelay creates a relay and registers it as the hub publisher.
func NewRedisRelay(rdb *redis.Client, hub *Hub) *RedisRelay {
	r := &RedisRelay{rdb: rdb, hub: hub, origin: uuid.NewString()}
	hub.SetPublisher(r)
	return r
}

// Publish sends a locally broadcast frame to the other instances.
func (r *RedisRelay) Publish(ctx context.Context, eventID uint64, frame []byte) error {
	data, err := json.Marshal(relayMessage{Origin: r.origin, EventID: eventID, Frame: frame})
	if err != nil {
		return fmt.Errorf("failed to marshal relay message: %w", err)
	}
	return r.rdb.Publish(ctx, RelayChannel, data).Err()
}

// Run subscribes to the relay channel and re-broadcasts frames from other
// instances until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, RelayChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", RelayChannel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver([]byte(msg.Payload))
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *RedisRelay) deliver(payload []byte) {
	var msg relayMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		logging.L().Warn("failed to unmarshal relay message", zap.Error(err))
		return
	}
	if msg.Origin == r.origin || msg.EventID == 0 {
		return
	}
	r.hub.Broadcast(msg.EventID, msg.Frame)
}
