package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gigfinder-ticketing/internal/model"

	"github.com/redis/go-redis/v9"
)

// AvailabilityCache 只服務展示用的剩餘票數；訂票永遠以資料庫為準
type AvailabilityCache interface {
	Get(ctx context.Context, eventID int) (*model.AvailabilityResponse, bool, error)
	Set(ctx context.Context, availability *model.AvailabilityResponse, ttl time.Duration) error
	Invalidate(ctx context.Context, eventID int) error
}

type RedisAvailabilityCacheImpl struct {
	client *redis.Client
}

func NewRedisAvailabilityCache(client *redis.Client) AvailabilityCache {
	return &RedisAvailabilityCacheImpl{
		client: client,
	}
}

func (c *RedisAvailabilityCacheImpl) key(eventID int) string {
	return fmt.Sprintf("event:%d:availability", eventID)
}

// HSET 與 PEXPIRE 在同一個 Lua 腳本中執行，不會留下沒有 TTL 的 key
var setAvailabilityScript = redis.NewScript(`
	local key = KEYS[1]
	redis.call('HSET', key,
		'capacity', ARGV[1],
		'sold', ARGV[2],
		'price', ARGV[3],
		'currency', ARGV[4])
	redis.call('PEXPIRE', key, ARGV[5])
	return 1
`)

func (c *RedisAvailabilityCacheImpl) Set(ctx context.Context, a *model.AvailabilityResponse, ttl time.Duration) error {
	return setAvailabilityScript.Run(ctx, c.client, []string{c.key(a.EventID)},
		a.Capacity, a.Sold, a.Price, a.Currency, ttl.Milliseconds(),
	).Err()
}

func (c *RedisAvailabilityCacheImpl) Get(ctx context.Context, eventID int) (*model.AvailabilityResponse, bool, error) {
	result, err := c.client.HGetAll(ctx, c.key(eventID)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(result) == 0 {
		return nil, false, nil
	}

	capacity, err := strconv.Atoi(result["capacity"])
	if err != nil {
		return nil, false, fmt.Errorf("invalid capacity: %w", err)
	}
	sold, err := strconv.Atoi(result["sold"])
	if err != nil {
		return nil, false, fmt.Errorf("invalid sold: %w", err)
	}
	price, err := strconv.ParseInt(result["price"], 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("invalid price: %w", err)
	}

	return model.NewAvailability(eventID, capacity, sold, price, result["currency"]), true, nil
}

func (c *RedisAvailabilityCacheImpl) Invalidate(ctx context.Context, eventID int) error {
	return c.client.Del(ctx, c.key(eventID)).Err()
}
