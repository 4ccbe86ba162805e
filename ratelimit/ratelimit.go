package ratelimit

import (
	"context"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Preset bounds one class of endpoints; the key identifies the caller.
type Preset struct {
	Prefix string
	Limit  int
	Window time.Duration
}

var (
	PresetPublicForm = Preset{Prefix: "public_form", Limit: 5, Window: time.Minute}
	PresetAPIRead    = Preset{Prefix: "api_read", Limit: 120, Window: time.Minute}
	PresetAPIWrite   = Preset{Prefix: "api_write", Limit: 30, Window: time.Minute}
)

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

var (
	AllowFunc = Allow

	redisClient *redis.Client
	limiters    = cache.New(10*time.Minute, time.Minute)
)

// Bootstrap switches to the redis backend when REDIS_URL is set; without
// it every instance keeps its own in-process token buckets.
func Bootstrap() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(err)
	}
	redisClient = redis.NewClient(opts)
}

func Allow(ctx context.Context, key string, p Preset) Result {
	if redisClient != nil {
		r, err := allowRedis(ctx, key, p)
		if err == nil {
			return r
		}
		// fall back rather than reject callers on a limiter outage
		logrus.Warnf("redis rate limit failed, falling back to memory: %v", err)
	}
	return allowMemory(key, p)
}

func allowMemory(key string, p Preset) Result {
	cacheKey := p.Prefix + ":" + key

	var limiter *rate.Limiter
	if v, found := limiters.Get(cacheKey); found {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(rate.Every(p.Window/time.Duration(p.Limit)), p.Limit)
		limiters.Set(cacheKey, limiter, cache.DefaultExpiration)
	}

	allowed := limiter.Allow()
	remaining := int(limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   allowed,
		Limit:     p.Limit,
		Remaining: remaining,
		Reset:     time.Now().Add(p.Window / time.Duration(p.Limit)),
	}
}

func allowRedis(ctx context.Context, key string, p Preset) (Result, error) {
	cacheKey := "ratelimit:" + p.Prefix + ":" + key

	count, err := redisClient.Incr(ctx, cacheKey).Result()
	if err != nil {
		return Result{}, err
	}
	if count == 1 {
		if err := redisClient.Expire(ctx, cacheKey, p.Window).Err(); err != nil {
			return Result{}, err
		}
	}
	ttl, err := redisClient.TTL(ctx, cacheKey).Result()
	if err != nil || ttl < 0 {
		ttl = p.Window
	}

	remaining := p.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   int(count) <= p.Limit,
		Limit:     p.Limit,
		Remaining: remaining,
		Reset:     time.Now().Add(ttl),
	}, nil
}
