package redis_lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrLockTimeout 等待锁超时
var ErrLockTimeout = errors.New("获取锁超时")

// releaseScript 仅当值仍为本次持有的令牌时才删除
var releaseScript = redis.NewScript(
	`if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0`,
)

// RedisLock 基于Redis的分布式互斥锁
type RedisLock struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	retry     time.Duration
	maxWait   time.Duration
	logger    logrus.FieldLogger
}

// NewRedisLock 创建基于Redis的分布式锁
func NewRedisLock(client *redis.Client, keyPrefix string, ttl time.Duration, logger logrus.FieldLogger) *RedisLock {
	return &RedisLock{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		retry:     50 * time.Millisecond,
		maxWait:   ttl,
		logger:    logger,
	}
}

// Lock 获取锁，返回释放函数
func (rl *RedisLock) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := rl.keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(rl.maxWait)

	for {
		ok, err := rl.client.SetNX(ctx, redisKey, token, rl.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("获取Redis锁失败: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(rl.retry):
		}
	}

	return func() {
		// 调用方的 ctx 可能已取消，释放使用独立的上下文
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, rl.client, []string{redisKey}, token).Err(); err != nil {
			rl.logger.WithError(err).WithField("key", redisKey).Warn("释放Redis锁失败")
		}
	}, nil
}
