package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pawn-ledger/internal/domain/pricing"

	"github.com/redis/go-redis/v9"
)

const priceKeyPrefix = "price:"

type RedisPriceCache struct {
	client redis.Cmdable
	logger *slog.Logger
}

var _ pricing.Cache = (*RedisPriceCache)(nil)

func NewRedisPriceCache(client redis.Cmdable, logger *slog.Logger) *RedisPriceCache {
	return &RedisPriceCache{client: client, logger: logger.With("component", "RedisPriceCache")}
}

func PriceKey(metal pricing.Metal) string {
	return priceKeyPrefix + strings.ToLower(string(metal))
}

func (c *RedisPriceCache) GetPrice(ctx context.Context, metal pricing.Metal) (*pricing.MetalPrice, error) {
	raw, err := c.client.Get(ctx, PriceKey(metal)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pricing.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", PriceKey(metal), err)
	}

	var price pricing.MetalPrice
	if err := json.Unmarshal(raw, &price); err != nil {
		c.logger.WarnContext(ctx, "Discarding unreadable cached price", slog.String("key", PriceKey(metal)), slog.Any("error", err))
		return nil, pricing.ErrCacheMiss
	}
	return &price, nil
}

func (c *RedisPriceCache) SetPrice(ctx context.Context, price *pricing.MetalPrice, ttl time.Duration) error {
	body, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("marshal cached price: %w", err)
	}
	if err := c.client.Set(ctx, PriceKey(price.Metal), body, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", PriceKey(price.Metal), err)
	}
	return nil
}
