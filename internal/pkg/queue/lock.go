package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const lockKeyPrefix = "metrics:backfill_lock:"

// 值等于 owner 时才删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker 每个公司同一时间只允许一个回填
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

func lockKey(companyID string) string {
	return lockKeyPrefix + companyID
}

// Claim 抢占锁，已被占用时返回 false
func (l *Locker) Claim(ctx context.Context, companyID, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(companyID), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim backfill lock: %w", err)
	}
	return ok, nil
}

// Held 锁是否存在
func (l *Locker) Held(ctx context.Context, companyID string) (bool, error) {
	n, err := l.client.Exists(ctx, lockKey(companyID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Release 只释放自己持有的锁
func (l *Locker) Release(ctx context.Context, companyID, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKey(companyID)}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release backfill lock: %w", err)
	}
	return nil
}

// ForceRelease 管理操作
func (l *Locker) ForceRelease(ctx context.Context, companyID string) error {
	return l.client.Del(ctx, lockKey(companyID)).Err()
}
