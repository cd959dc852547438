package repository

import (
	"context"
	"testing"
	"time"

	"learnhub_backend/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*QuizListCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewQuizListCache(rdb, ttl), mr
}

func TestQuizListCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisCache(t, time.Minute)

	_, gen, ok := c.Get(ctx)
	if ok || gen != 0 {
		t.Fatalf("empty cache: ok=%v gen=%d", ok, gen)
	}
	c.Set(ctx, gen, []model.StudentQuiz{{ID: "q1", Title: "Basics"}})

	got, gen2, ok := c.Get(ctx)
	if !ok || gen2 != gen || len(got) != 1 || got[0].Title != "Basics" {
		t.Fatalf("got %+v gen=%d ok=%v", got, gen2, ok)
	}
}

func TestQuizListCacheIgnoresWritesFromBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisCache(t, time.Minute)

	// 读者拿到版本号后去查库，期间作者修改了测验
	_, readerGen, _ := c.Get(ctx)
	c.Invalidate(ctx)
	c.Set(ctx, readerGen, []model.StudentQuiz{{ID: "stale", IsActive: true}})

	if got, gen, ok := c.Get(ctx); ok {
		t.Fatalf("stale list served after invalidate: %+v (gen %d)", got, gen)
	}

	_, gen, _ := c.Get(ctx)
	if gen != readerGen+1 {
		t.Fatalf("generation = %d, want %d", gen, readerGen+1)
	}
	c.Set(ctx, gen, []model.StudentQuiz{})
	if got, _, ok := c.Get(ctx); !ok || len(got) != 0 {
		t.Fatalf("fresh list not cached: %+v ok=%v", got, ok)
	}
}

func TestQuizListCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t, 30*time.Second)

	_, gen, _ := c.Get(ctx)
	c.Set(ctx, gen, []model.StudentQuiz{{ID: "q1"}})
	mr.FastForward(31 * time.Second)
	if _, _, ok := c.Get(ctx); ok {
		t.Fatal("entry should expire after ttl")
	}

	c.SetTTL(0)
	c.Set(ctx, gen, []model.StudentQuiz{{ID: "q1"}})
	if _, _, ok := c.Get(ctx); ok {
		t.Fatal("ttl 0 disables the cache")
	}

	// 关闭期间的写操作仍然递增版本号
	c.Invalidate(ctx)
	c.SetTTL(time.Minute)
	if _, gen2, _ := c.Get(ctx); gen2 != gen+1 {
		t.Fatalf("generation = %d, want %d", gen2, gen+1)
	}
}
