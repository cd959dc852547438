package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	availableQuizzesKey = "quiz:available:v2:"
	generationKey       = "quiz:available:gen"
)

// QuizListCache 缓存学生可见的（已脱敏）测验列表；Redis 未配置时所有方法为空操作。
// 列表按版本号分键存放，Invalidate 递增版本号，失效前读到的旧列表只会写进旧版本的键
type QuizListCache struct {
	Redis *redis.Client
	ttl   atomic.Int64
}

func NewQuizListCache(rdb *redis.Client, ttl time.Duration) *QuizListCache {
	c := &QuizListCache{Redis: rdb}
	c.ttl.Store(int64(ttl))
	return c
}

// SetTTL 配置热更新时调整缓存时长，0 表示关闭缓存
func (c *QuizListCache) SetTTL(ttl time.Duration) {
	if c == nil {
		return
	}
	c.ttl.Store(int64(ttl))
}

func (c *QuizListCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return time.Duration(c.ttl.Load())
}

func (c *QuizListCache) enabled() bool {
	return c != nil && c.Redis != nil && c.TTL() > 0
}

func listKey(generation int64) string {
	return availableQuizzesKey + strconv.FormatInt(generation, 10)
}

func (c *QuizListCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.Redis.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get 返回缓存的列表与读取时的版本号；未命中时调用方查库后用同一版本号 Set。
// 版本号为 -1 表示缓存不可用，Set 会忽略
func (c *QuizListCache) Get(ctx context.Context) ([]model.StudentQuiz, int64, bool) {
	if !c.enabled() {
		return nil, -1, false
	}
	gen, err := c.generation(ctx)
	if err != nil {
		logger.Log.Warn("quiz list cache generation read failed", zap.Error(err))
		return nil, -1, false
	}

	raw, err := c.Redis.Get(ctx, listKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false
	}
	if err != nil {
		logger.Log.Warn("quiz list cache read failed", zap.Error(err))
		return nil, -1, false
	}

	var quizzes []model.StudentQuiz
	if err := json.Unmarshal(raw, &quizzes); err != nil {
		logger.Log.Warn("quiz list cache corrupted", zap.Error(err))
		c.Redis.Del(ctx, listKey(gen))
		return nil, gen, false
	}
	return quizzes, gen, true
}

func (c *QuizListCache) Set(ctx context.Context, generation int64, quizzes []model.StudentQuiz) {
	if !c.enabled() || generation < 0 {
		return
	}
	raw, err := json.Marshal(quizzes)
	if err != nil {
		logger.Log.Warn("quiz list cache encode failed", zap.Error(err))
		return
	}
	if err := c.Redis.Set(ctx, listKey(generation), raw, c.TTL()).Err(); err != nil {
		logger.Log.Warn("quiz list cache write failed", zap.Error(err))
	}
}

// Invalidate 任何测验或题目的写操作之后调用；缓存时长为 0 时也递增版本，重新开启后不会读到旧列表
func (c *QuizListCache) Invalidate(ctx context.Context) {
	if c == nil || c.Redis == nil {
		return
	}
	if err := c.Redis.Incr(ctx, generationKey).Err(); err != nil {
		logger.Log.Warn("quiz list cache invalidate failed", zap.Error(err))
	}
}
