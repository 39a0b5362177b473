package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/aleostudio/ai-agent/internal/agent/model"
	errx "github.com/aleostudio/ai-agent/internal/core/error"
	logx "github.com/aleostudio/ai-agent/pkg/logger"
)

const (
	metaCreatedAt  = "created_at"
	metaLastActive = "last_active_at"
)

// RedisRepository stores conversation history in Redis: one list of
// JSON-encoded messages plus one metadata hash per user. Optional backend
// for deployments that want history to survive a process restart.
type RedisRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewRedisRepository(rdb redis.Cmdable, ttl time.Duration) *RedisRepository {
	return &RedisRepository{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *RedisRepository) messagesKey(userID string) string {
	return fmt.Sprintf("conversation:%s:messages", userID)
}

func (r *RedisRepository) metaKey(userID string) string {
	return fmt.Sprintf("conversation:%s:meta", userID)
}

func (r *RedisRepository) AddMessage(ctx context.Context, userID string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to marshal message")
		return fmt.Errorf("marshal message: %w", err)
	}

	msgKey := r.messagesKey(userID)
	metaKey := r.metaKey(userID)
	now := r.now().UTC().Format(time.RFC3339Nano)

	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, msgKey, b)
	pipe.HSetNX(ctx, metaKey, metaCreatedAt, now)
	pipe.HSet(ctx, metaKey, metaLastActive, now)
	if r.ttl > 0 {
		pipe.Expire(ctx, msgKey, r.ttl)
		pipe.Expire(ctx, metaKey, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("key", msgKey).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisRepository) LoadHistory(ctx context.Context, userID string) (*model.ConversationHistory, error) {
	exists, err := r.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	key := r.messagesKey(userID)
	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && err != redis.Nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("user_id", userID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &model.ConversationHistory{UserID: userID, Messages: msgs}, nil
}

func (r *RedisRepository) ClearHistory(ctx context.Context, userID string) (bool, error) {
	n, err := r.rdb.Del(ctx, r.messagesKey(userID), r.metaKey(userID)).Result()
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to delete conversation history from redis")
		return false, errx.WrapRedis(err)
	}
	return n > 0, nil
}

func (r *RedisRepository) Exists(ctx context.Context, userID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.metaKey(userID)).Result()
	if err != nil {
		return false, errx.WrapRedis(err)
	}
	return n > 0, nil
}

func (r *RedisRepository) MessageCount(ctx context.Context, userID string) (int, error) {
	n, err := r.rdb.LLen(ctx, r.messagesKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to get message count from redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

func (r *RedisRepository) Summary(ctx context.Context, userID string) (*model.SessionSummary, error) {
	meta, err := r.rdb.HGetAll(ctx, r.metaKey(userID)).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	if len(meta) == 0 {
		return nil, nil
	}

	count, err := r.MessageCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	s := &model.SessionSummary{UserID: userID, MessageCount: count}
	if t, err := time.Parse(time.RFC3339Nano, meta[metaCreatedAt]); err == nil {
		s.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, meta[metaLastActive]); err == nil {
		s.LastActiveAt = t
	}
	return s, nil
}

func (r *RedisRepository) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	var (
		out    []model.SessionSummary
		cursor uint64
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, "conversation:*:meta", 100).Result()
		if err != nil {
			return nil, errx.WrapRedis(err)
		}
		for _, key := range keys {
			userID := key[len("conversation:") : len(key)-len(":meta")]
			s, err := r.Summary(ctx, userID)
			if err != nil {
				return nil, err
			}
			if s != nil {
				out = append(out, *s)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActiveAt.After(out[j].LastActiveAt)
	})
	return out, nil
}

var _ model.ConversationRepository = (*RedisRepository)(nil)
