package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type cachedClient struct {
	next        Client
	redisClient *redis.Client
	cacheTTL    time.Duration
}

// NewCachedClient decorates a catalog client with a redis read-through
// cache. Fallback results are never cached, so a catalog outage does not
// poison the cache.
func NewCachedClient(next Client, redisClient *redis.Client, cacheTTL time.Duration) Client {
	return &cachedClient{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

func (c *cachedClient) GetProductDetails(ctx context.Context, productID int64) (ProductDetails, error) {
	key := fmt.Sprintf("product:%d", productID)

	if val, err := c.redisClient.Get(ctx, key).Result(); err == nil {
		var details ProductDetails
		if err := json.Unmarshal([]byte(val), &details); err == nil {
			return details, nil
		}
	}

	details, err := c.next.GetProductDetails(ctx, productID)
	if err != nil {
		return details, err
	}

	if !details.FallbackUsed {
		if data, err := json.Marshal(details); err == nil {
			c.redisClient.Set(ctx, key, data, c.cacheTTL)
		}
	}

	return details, nil
}
