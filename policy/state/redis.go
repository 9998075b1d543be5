// api/policy/state/redis.go

package state

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/warden-labs/warden/api/logging"
	"github.com/warden-labs/warden/api/model"
)

// RedisStore is the shared Store for multi-node deployments. Execution
// timestamps live in sorted sets scored by unix ms; weighted entries carry
// the amount inside the member. CheckAndRecord serializes per key with a
// short-lived SETNX lock so the read-compare-increment sequence stays atomic
// across nodes.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func execKey(key string) string { return "exec:" + key }
func sumKey(key string) string  { return "sum:" + key }
func lastKey(key string) string { return "last:" + key }

func spentKey(sender, date string) string {
	return fmt.Sprintf("spent:%s:%s", strings.ToLower(sender), date)
}

func (s *RedisStore) GetExecutionCount(ctx context.Context, key string, windowMs, now int64) (int64, error) {
	pipe := s.client.Pipeline()
	rkey := execKey(key)
	pipe.ZRemRangeByScore(ctx, rkey, "0", strconv.FormatInt(now-windowMs, 10))
	card := pipe.ZCard(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}
	return card.Val(), nil
}

func (s *RedisStore) GetWindowSum(ctx context.Context, key string, windowMs, now int64) (*model.Amount, error) {
	rkey := sumKey(key)
	if err := s.client.ZRemRangeByScore(ctx, rkey, "0", strconv.FormatInt(now-windowMs, 10)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune window sums: %w", err)
	}
	members, err := s.client.ZRangeByScore(ctx, rkey, &redis.ZRangeBy{Min: "-inf", Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read window sums: %w", err)
	}

	total := model.MustAmount("0")
	for _, member := range members {
		// member layout: "<ts>:<uuid>:<amount>"
		parts := strings.SplitN(member, ":", 3)
		if len(parts) != 3 {
			logger.Warn("Skipping malformed window sum member", zap.String("member", member))
			continue
		}
		amount, err := model.NewAmount(parts[2])
		if err != nil {
			logger.Warn("Skipping malformed window sum amount", zap.String("member", member), zap.Error(err))
			continue
		}
		total = total.Add(amount)
	}
	return total, nil
}

func (s *RedisStore) GetLastExecution(ctx context.Context, key string) (int64, bool, error) {
	val, err := s.client.Get(ctx, lastKey(key)).Result()
	if err == redis.Nil {
		return 0, false, nil
	} else if err != nil {
		return 0, false, fmt.Errorf("failed to read last execution: %w", err)
	}
	at, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed last execution timestamp %q: %w", val, err)
	}
	return at, true, nil
}

func (s *RedisStore) RecordExecution(ctx context.Context, key string, at int64) error {
	member := fmt.Sprintf("%d:%s", at, uuid.NewString())
	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, execKey(key), redis.Z{Score: float64(at), Member: member})
	pipe.Set(ctx, lastKey(key), strconv.FormatInt(at, 10), 0)
	pipe.Expire(ctx, execKey(key), 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

func (s *RedisStore) RecordSum(ctx context.Context, key string, at int64, amount *model.Amount) error {
	member := fmt.Sprintf("%d:%s:%s", at, uuid.NewString(), amount.String())
	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, sumKey(key), redis.Z{Score: float64(at), Member: member})
	pipe.Expire(ctx, sumKey(key), 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record window sum: %w", err)
	}
	return nil
}

func (s *RedisStore) GetDailySpent(ctx context.Context, sender, date string) (*model.Amount, error) {
	val, err := s.client.Get(ctx, spentKey(sender, date)).Result()
	if err == redis.Nil {
		return model.MustAmount("0"), nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read daily spend: %w", err)
	}
	amount, err := model.NewAmount(val)
	if err != nil {
		return nil, fmt.Errorf("malformed daily spend %q: %w", val, err)
	}
	return amount, nil
}

func (s *RedisStore) RecordSpent(ctx context.Context, sender, date string, amount *model.Amount) error {
	key := spentKey(sender, date)
	unlock, err := s.lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.GetDailySpent(ctx, sender, date)
	if err != nil {
		return err
	}
	// Spend totals expire two days after the UTC date they belong to.
	if err := s.client.Set(ctx, key, current.Add(amount).String(), 48*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to record daily spend: %w", err)
	}
	return nil
}

func (s *RedisStore) CheckAndRecord(ctx context.Context, key string, windowMs, now, limit int64) (bool, int64, error) {
	unlock, err := s.lock(ctx, execKey(key))
	if err != nil {
		return false, 0, err
	}
	defer unlock()

	count, err := s.GetExecutionCount(ctx, key, windowMs, now)
	if err != nil {
		return false, 0, err
	}
	if count >= limit {
		logger.Debug("Rate limit slot denied",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int64("limit", limit))
		return false, count, nil
	}
	if err := s.RecordExecution(ctx, key, now); err != nil {
		return false, count, err
	}
	return true, count + 1, nil
}

func (s *RedisStore) CheckAndRecordSum(ctx context.Context, key string, windowMs, now int64, amount, max *model.Amount) (bool, *model.Amount, error) {
	unlock, err := s.lock(ctx, sumKey(key))
	if err != nil {
		return false, nil, err
	}
	defer unlock()

	sum, err := s.GetWindowSum(ctx, key, windowMs, now)
	if err != nil {
		return false, nil, err
	}
	if sum.Add(amount).Cmp(max) > 0 {
		return false, sum, nil
	}
	if err := s.RecordSum(ctx, key, now, amount); err != nil {
		return false, sum, err
	}
	return true, sum, nil
}

func (s *RedisStore) CheckAndRecordSpent(ctx context.Context, sender, date string, amount, max *model.Amount) (bool, *model.Amount, error) {
	key := spentKey(sender, date)
	unlock, err := s.lock(ctx, key)
	if err != nil {
		return false, nil, err
	}
	defer unlock()

	total, err := s.GetDailySpent(ctx, sender, date)
	if err != nil {
		return false, nil, err
	}
	if total.Add(amount).Cmp(max) > 0 {
		return false, total, nil
	}
	if err := s.client.Set(ctx, key, total.Add(amount).String(), 48*time.Hour).Err(); err != nil {
		return false, total, fmt.Errorf("failed to record daily spend: %w", err)
	}
	return true, total, nil
}

func (s *RedisStore) ReleaseExecution(ctx context.Context, key string, at int64) error {
	unlock, err := s.lock(ctx, execKey(key))
	if err != nil {
		return err
	}
	defer unlock()

	rkey := execKey(key)
	score := strconv.FormatInt(at, 10)
	members, err := s.client.ZRangeByScore(ctx, rkey, &redis.ZRangeBy{Min: score, Max: score, Count: 1}).Result()
	if err != nil {
		return fmt.Errorf("failed to find execution to release: %w", err)
	}
	if len(members) == 0 {
		return nil
	}
	if err := s.client.ZRem(ctx, rkey, members[0]).Err(); err != nil {
		return fmt.Errorf("failed to release execution: %w", err)
	}
	return s.resetLastExecution(ctx, key)
}

// resetLastExecution rewrites the last-execution marker from the surviving
// sorted-set entries so cooldown reads stay consistent after a release.
func (s *RedisStore) resetLastExecution(ctx context.Context, key string) error {
	remaining, err := s.client.ZRevRangeWithScores(ctx, execKey(key), 0, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to read surviving executions: %w", err)
	}
	if len(remaining) == 0 {
		if err := s.client.Del(ctx, lastKey(key)).Err(); err != nil {
			return fmt.Errorf("failed to clear last execution: %w", err)
		}
		return nil
	}
	at := strconv.FormatInt(int64(remaining[0].Score), 10)
	if err := s.client.Set(ctx, lastKey(key), at, 0).Err(); err != nil {
		return fmt.Errorf("failed to rewrite last execution: %w", err)
	}
	return nil
}

func (s *RedisStore) ReleaseSum(ctx context.Context, key string, at int64, amount *model.Amount) error {
	unlock, err := s.lock(ctx, sumKey(key))
	if err != nil {
		return err
	}
	defer unlock()

	rkey := sumKey(key)
	score := strconv.FormatInt(at, 10)
	members, err := s.client.ZRangeByScore(ctx, rkey, &redis.ZRangeBy{Min: score, Max: score}).Result()
	if err != nil {
		return fmt.Errorf("failed to find window sum to release: %w", err)
	}
	suffix := ":" + amount.String()
	for _, member := range members {
		if !strings.HasSuffix(member, suffix) {
			continue
		}
		if err := s.client.ZRem(ctx, rkey, member).Err(); err != nil {
			return fmt.Errorf("failed to release window sum: %w", err)
		}
		return nil
	}
	return nil
}

func (s *RedisStore) ReleaseSpent(ctx context.Context, sender, date string, amount *model.Amount) error {
	key := spentKey(sender, date)
	unlock, err := s.lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	total, err := s.GetDailySpent(ctx, sender, date)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, total.Sub(amount).String(), 48*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to release daily spend: %w", err)
	}
	return nil
}

// lock serializes writers for one key. The TTL bounds the damage of a
// crashed holder; contention is retried briefly rather than failing fast.
func (s *RedisStore) lock(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:" + key
	for attempt := 0; attempt < 50; attempt++ {
		ok, err := s.client.SetNX(ctx, lockKey, "locked", 5*time.Second).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			return func() {
				if err := s.client.Del(ctx, lockKey).Err(); err != nil {
					logger.Error("Failed to release lock", zap.String("key", lockKey), zap.Error(err))
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("timed out acquiring lock for %s", key)
}
