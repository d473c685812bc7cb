package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"chargedesk/internal/config"
	"chargedesk/internal/logger"
	"chargedesk/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	scheduleKeyPrefix   = "charge_schedule:"
	generationKeyPrefix = "charge_schedule_gen:"
)

// setIfGeneration stores ARGV[2] under KEYS[2] only while KEYS[1] still holds
// the generation ARGV[1] the caller read before loading.
var setIfGeneration = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false then current = "0" end
if current ~= ARGV[1] then return 0 end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// Schedule is the eligible charge schedule of one transaction type as read in
// a single query.
type Schedule struct {
	TransactionType model.TransactionType `json:"transaction_type"`
	Ranges          []model.ChargeRange   `json:"ranges"`
}

// ScheduleCache stores schedules by type code. Get returns nil, nil on a miss.
//
// Every code has a generation that Invalidate bumps. A reader takes the
// generation before loading from the store and passes it to Set, which
// discards the schedule when a writer invalidated in between.
type ScheduleCache interface {
	Get(ctx context.Context, code string) (*Schedule, error)
	Generation(ctx context.Context, code string) (int64, error)
	Set(ctx context.Context, code string, generation int64, schedule *Schedule) (bool, error)
	Invalidate(ctx context.Context, code string) error
}

// NewRedisClient connects to Redis. It returns nil when no address is
// configured or the server does not answer, and the caller runs uncached.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		logger.Warn("redis.addr not set, charge schedule caching disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Failed to connect to Redis, charge schedule caching disabled", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return nil
	}

	logger.Info("Connected to Redis", "addr", cfg.Addr)
	return client
}

// NewScheduleCache returns a Redis-backed cache, or a no-op cache when client is nil.
func NewScheduleCache(client *redis.Client, ttl time.Duration) ScheduleCache {
	if client == nil {
		return noopScheduleCache{}
	}
	return &redisScheduleCache{client: client, ttl: ttl}
}

func ScheduleKey(code string) string {
	return scheduleKeyPrefix + code
}

func GenerationKey(code string) string {
	return generationKeyPrefix + code
}

type redisScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (c *redisScheduleCache) Get(ctx context.Context, code string) (*Schedule, error) {
	logger.ExternalServiceCall("redis", "get", "key", ScheduleKey(code))
	raw, err := c.client.Get(ctx, ScheduleKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		logger.ExternalServiceResult("redis", "get", err)
		return nil, fmt.Errorf("failed to read cached schedule: %w", err)
	}

	var schedule Schedule
	if err := json.Unmarshal(raw, &schedule); err != nil {
		return nil, fmt.Errorf("failed to decode cached schedule: %w", err)
	}
	return &schedule, nil
}

func (c *redisScheduleCache) Generation(ctx context.Context, code string) (int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey(code)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		logger.ExternalServiceResult("redis", "get", err, "key", GenerationKey(code))
		return 0, fmt.Errorf("failed to read schedule generation: %w", err)
	}
	return gen, nil
}

func (c *redisScheduleCache) Set(ctx context.Context, code string, generation int64, schedule *Schedule) (bool, error) {
	raw, err := json.Marshal(schedule)
	if err != nil {
		return false, fmt.Errorf("failed to encode schedule: %w", err)
	}
	stored, err := setIfGeneration.Run(ctx, c.client,
		[]string{GenerationKey(code), ScheduleKey(code)},
		strconv.FormatInt(generation, 10), raw, c.ttl.Milliseconds()).Int()
	logger.ExternalServiceResult("redis", "set", err, "key", ScheduleKey(code), "stored", stored == 1)
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Invalidate bumps the generation before dropping the entry, so a reader that
// loaded before the write can no longer store its snapshot.
func (c *redisScheduleCache) Invalidate(ctx context.Context, code string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey(code))
		pipe.Del(ctx, ScheduleKey(code))
		return nil
	})
	logger.ExternalServiceResult("redis", "invalidate", err, "key", ScheduleKey(code))
	return err
}

type noopScheduleCache struct{}

func (noopScheduleCache) Get(context.Context, string) (*Schedule, error) {
	return nil, nil
}

func (noopScheduleCache) Generation(context.Context, string) (int64, error) {
	return 0, nil
}

func (noopScheduleCache) Set(context.Context, string, int64, *Schedule) (bool, error) {
	return false, nil
}

func (noopScheduleCache) Invalidate(context.Context, string) error {
	return nil
}
