// Package catalog talks to the external product-catalog service. Lookups go
// through a circuit breaker; when the catalog is down or the circuit is open
// the caller gets a fallback result instead of an error, and order creation
// proceeds with the snapshot data it already has.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type ProductDetails struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	FallbackUsed bool   `json:"-"`
}

type Client interface {
	GetProductDetails(ctx context.Context, productID int64) (ProductDetails, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) Client {
	settings := gobreaker.Settings{
		Name:        "ProductCatalogService",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cb:      gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// GetProductDetails never fails the caller: any transport error, non-200
// response or open circuit degrades to a fallback result with
// FallbackUsed set.
func (c *httpClient) GetProductDetails(ctx context.Context, productID int64) (ProductDetails, error) {
	result, err := c.cb.Execute(func() (any, error) {
		return c.fetch(ctx, productID)
	})
	if err != nil {
		c.logger.Warn(
			"Catalog lookup failed, using fallback",
			zap.Int64("product_id", productID),
			zap.Error(err),
		)

		return ProductDetails{ProductID: productID, FallbackUsed: true}, nil
	}

	return result.(ProductDetails), nil
}

func (c *httpClient) fetch(ctx context.Context, productID int64) (ProductDetails, error) {
	url := fmt.Sprintf("%s/api/products/%d", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ProductDetails{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return ProductDetails{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ProductDetails{}, fmt.Errorf("catalog returned status %d for product %d", resp.StatusCode, productID)
	}

	var details ProductDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return ProductDetails{}, fmt.Errorf("decode catalog response: %w", err)
	}

	return details, nil
}
