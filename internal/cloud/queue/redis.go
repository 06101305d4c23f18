package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"mine-safety-bridge/internal/cloud/config"
)

// DispatchQueueName is the responder-notification queue
const DispatchQueueName = "emergency_dispatch"

// RedisQueue implements the responder dispatch queue using Redis
type RedisQueue struct {
	client *redis.Client
	ctx    context.Context
}

// DispatchMessage is one responder-notification job
type DispatchMessage struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Retries   int                    `json:"retries"`
}

// NewRedisQueue creates a new Redis-based dispatch queue
func NewRedisQueue(cfg config.RedisConfig) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.Database,
		PoolSize: cfg.PoolSize,
	})

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQueue{
		client: client,
		ctx:    ctx,
	}, nil
}

// Close closes the Redis connection
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Publish pushes a dispatch message onto a queue
func (q *RedisQueue) Publish(queueName string, message *DispatchMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	message.Timestamp = time.Now().UTC()

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch message: %w", err)
	}

	return q.client.LPush(q.ctx, queueName, data).Err()
}

// Subscribe blocks on a queue and hands each message to the handler.
// Failed messages are retried up to three times before being dropped to
// the dead-letter queue.
func (q *RedisQueue) Subscribe(queueName string, handler func(*DispatchMessage) error) error {
	for {
		result, err := q.client.BRPop(q.ctx, 0, queueName).Result()
		if err != nil {
			return fmt.Errorf("failed to receive dispatch message: %w", err)
		}

		if len(result) < 2 {
			continue
		}

		var message DispatchMessage
		if err := json.Unmarshal([]byte(result[1]), &message); err != nil {
			continue
		}

		if err := handler(&message); err != nil {
			message.Retries++
			if message.Retries <= 3 {
				if requeueErr := q.Publish(queueName, &message); requeueErr != nil {
					return fmt.Errorf("failed to requeue dispatch message: %w", requeueErr)
				}
			} else {
				if dlqErr := q.Publish(queueName+"_dead", &message); dlqErr != nil {
					return fmt.Errorf("failed to dead-letter dispatch message: %w", dlqErr)
				}
			}
		}
	}
}

// Depth returns the number of messages waiting on a queue
func (q *RedisQueue) Depth(queueName string) (int64, error) {
	return q.client.LLen(q.ctx, queueName).Result()
}
