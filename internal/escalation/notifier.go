// Package escalation pushes crisis turns onto a Redis queue so moderator
// tooling can pick them up out of band. Delivery is best effort: a queue
// failure never fails the chat turn that triggered it.
package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const crisisQueue = "moderation:crisis"

// Job is the payload consumed by moderator tooling.
type Job struct {
	UserID     string    `json:"user_id"`
	MessageID  string    `json:"message_id"`
	DetectedAt time.Time `json:"detected_at"`
}

// Notifier publishes crisis jobs. A nil Notifier (Redis not configured) is
// valid and drops every job.
type Notifier struct {
	client *redis.Client
}

// NewNotifier connects to Redis using a redis:// URL. An empty URL yields a
// nil notifier so deployments without Redis still boot.
func NewNotifier(redisURL string) (*Notifier, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &Notifier{client: redis.NewClient(opts)}, nil
}

// NotifyModerators enqueues a crisis job.
func (n *Notifier) NotifyModerators(ctx context.Context, job Job) error {
	if n == nil || n.client == nil {
		return nil
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal crisis job: %w", err)
	}
	if err := n.client.LPush(ctx, crisisQueue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue crisis job: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (n *Notifier) Close() error {
	if n == nil || n.client == nil {
		return nil
	}
	return n.client.Close()
}
