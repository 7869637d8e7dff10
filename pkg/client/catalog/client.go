// Package catalog provides the HTTP client used to reserve and release
// product stock on the catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/abelikov/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrInsufficientStock is returned when the catalog rejects a
	// reservation because not enough stock is available.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrProductNotFound is returned when the catalog does not know the product.
	ErrProductNotFound = errors.New("product not found")
	// ErrUnavailable is returned when the catalog service cannot be
	// reached, times out, or the circuit breaker is open.
	ErrUnavailable = errors.New("catalog service unavailable")
)

// StockClient reserves and releases product stock. Release compensates a
// previously successful reservation.
type StockClient interface {
	// Reserve atomically decrements stock for the product and returns the
	// remaining stock level.
	Reserve(ctx context.Context, productID, quantity int64) (int64, error)
	// Release restores previously reserved stock and returns the current
	// stock level.
	Release(ctx context.Context, productID, quantity int64) (int64, error)
}

// Client is an HTTP implementation of StockClient guarded by a circuit
// breaker. Business rejections (insufficient stock, unknown product) do
// not trip the breaker; only transport-level failures do.
type Client struct {
	baseURL   string
	serviceID string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[int64]
	logger    *slog.Logger
}

// NewClient creates a catalog client for the given base URL. The
// serviceID is sent as the X-Service-Id header on every call.
func NewClient(cfg config.HTTPClientConfig, breakerCfg config.CircuitBreakerConfig, serviceID string, logger *slog.Logger) *Client {
	st := gobreaker.Settings{
		Name:        "catalog-stock",
		MaxRequests: 3,
		Timeout:     breakerCfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > breakerCfg.ConsecutiveFailures ||
				(counts.TotalSuccesses+counts.TotalFailures > breakerCfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(counts.TotalSuccesses+counts.TotalFailures)*100 > float64(breakerCfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Business rejections are valid answers from a healthy service.
			return errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrProductNotFound)
		},
	}
	return &Client{
		baseURL:   cfg.URL,
		serviceID: serviceID,
		client:    &http.Client{Timeout: cfg.Timeout},
		breaker:   gobreaker.NewCircuitBreaker[int64](st),
		logger:    logger.With("component", "catalog_client"),
	}
}

type reserveResponse struct {
	Success        bool  `json:"success"`
	ProductID      int64 `json:"product_id"`
	RemainingStock int64 `json:"remaining_stock"`
}

type releaseResponse struct {
	Success      bool  `json:"success"`
	ProductID    int64 `json:"product_id"`
	CurrentStock int64 `json:"current_stock"`
}

// Reserve decrements stock for the product on the catalog service.
func (c *Client) Reserve(ctx context.Context, productID, quantity int64) (int64, error) {
	stock, err := c.breaker.Execute(func() (int64, error) {
		var resp reserveResponse
		if err := c.post(ctx, fmt.Sprintf("/products/%d/reserve", productID), quantity, &resp); err != nil {
			return 0, err
		}
		return resp.RemainingStock, nil
	})
	return stock, mapBreakerErr(err)
}

// Release restores previously reserved stock on the catalog service.
func (c *Client) Release(ctx context.Context, productID, quantity int64) (int64, error) {
	stock, err := c.breaker.Execute(func() (int64, error) {
		var resp releaseResponse
		if err := c.post(ctx, fmt.Sprintf("/products/%d/release", productID), quantity, &resp); err != nil {
			return 0, err
		}
		return resp.CurrentStock, nil
	})
	return stock, mapBreakerErr(err)
}

// mapBreakerErr translates breaker short-circuits into ErrUnavailable so
// callers see a single "peer is down" sentinel.
func mapBreakerErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (c *Client) post(ctx context.Context, path string, quantity int64, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid catalog URL: %w", err)
	}
	q := u.Query()
	q.Set("quantity", strconv.FormatInt(quantity, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("X-Service-Id", c.serviceID)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Catalog request failed", "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode catalog response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		return ErrInsufficientStock
	case resp.StatusCode == http.StatusNotFound:
		return ErrProductNotFound
	default:
		c.logger.ErrorContext(ctx, "Unexpected catalog response", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
}
