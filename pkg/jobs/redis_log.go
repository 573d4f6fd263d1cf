package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"marketmind/pkg/domain"
)

const (
	defaultKeyPrefix = "marketmind:jobs:"
	defaultMaxPerKey = 20
	defaultTTL       = 24 * time.Hour
)

// RedisJobLog records recently submitted video jobs per conversation. It is
// purely informational: jobs are never polled or updated after submission.
type RedisJobLog struct {
	client    *redis.Client
	keyPrefix string
	maxPerKey int64
	ttl       time.Duration
}

// RedisJobLogConfig configures the log.
type RedisJobLogConfig struct {
	Addr      string
	Password  string
	KeyPrefix string
	MaxPerKey int64
	TTL       time.Duration
}

// NewRedisJobLog connects to Redis and verifies the connection.
func NewRedisJobLog(cfg RedisJobLogConfig) (*RedisJobLog, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	maxPerKey := cfg.MaxPerKey
	if maxPerKey <= 0 {
		maxPerKey = defaultMaxPerKey
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisJobLog{
		client:    client,
		keyPrefix: keyPrefix,
		maxPerKey: maxPerKey,
		ttl:       ttl,
	}, nil
}

// Record prepends the job to its conversation's list, trims the list, and
// refreshes the TTL.
func (l *RedisJobLog) Record(ctx context.Context, job domain.GenerationJob) error {
	if strings.TrimSpace(job.ConversationID) == "" {
		return errors.New("job conversation id required")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	key := l.key(job.ConversationID)
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, l.maxPerKey-1)
	pipe.Expire(ctx, key, l.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record job: %w", err)
	}
	return nil
}

// Recent returns the conversation's jobs, newest first.
func (l *RedisJobLog) Recent(ctx context.Context, conversationID string, limit int64) ([]domain.GenerationJob, error) {
	if limit <= 0 || limit > l.maxPerKey {
		limit = l.maxPerKey
	}
	raw, err := l.client.LRange(ctx, l.key(conversationID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	res := make([]domain.GenerationJob, 0, len(raw))
	for _, item := range raw {
		var job domain.GenerationJob
		if err := json.Unmarshal([]byte(item), &job); err != nil {
			continue
		}
		res = append(res, job)
	}
	return res, nil
}

func (l *RedisJobLog) key(conversationID string) string {
	return l.keyPrefix + conversationID
}
