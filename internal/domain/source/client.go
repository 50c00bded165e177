package source

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/microfront/internal/infrastructure/config"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/resilience"
)

// Client wraps resty with retries, rate limiting, and a circuit breaker
// for fetching micro-app bundles from their deploy hosts.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewClient creates the loader's HTTP client.
func NewClient(cfg config.LoaderConfig) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil

	restyClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "microfront-loader/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), int(cfg.RateRPS)+1)
	}

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: resilience.NewSourceBreaker("source-loader"),
	}
}

// Fetch retrieves one resource body with full protection applied.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if c.breaker.State() == resilience.StateOpen {
		return nil, "", resilience.ErrCircuitOpen
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limit error: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.resty.R().SetContext(ctx).Get(url)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		if code := resp.StatusCode(); code < 200 || code >= 400 {
			return nil, fmt.Errorf("HTTP %d fetching %s", code, url)
		}
		return resp, nil
	})
	if err != nil {
		return nil, "", err
	}

	resp := result.(*resty.Response)
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}

// BreakerState exposes the breaker state for health reporting.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// SetTimeout overrides the request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.resty.SetTimeout(d)
}
