package bittrex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures a RESTClient.
type Options struct {
	BaseURL        string
	APIKey         string
	APISecret      string
	Timeout        time.Duration
	RequestsPerSec int // 0 disables rate limiting
	MaxRetries     int // retries on transport errors and 5xx; 0 disables

	// RetryInitialInterval overrides the first backoff delay; 0 keeps the library default.
	RetryInitialInterval time.Duration

	Logger *zap.Logger
}

// RESTClient issues signed read-only requests against the Bittrex v3 market endpoints.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	signer     signer
	logger     *zap.Logger

	maxRetries      int
	initialInterval time.Duration
}

func NewRESTClient(opts Options) *RESTClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec)
	}

	return &RESTClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
		signer: signer{
			apiKey: opts.APIKey,
			secret: opts.APISecret,
			now:    time.Now,
		},
		logger:          opts.Logger,
		maxRetries:      opts.MaxRetries,
		initialInterval: opts.RetryInitialInterval,
	}
}

// GetLatestPrice returns the rate of the most recent trade on symbol.
// A non-200 response yields the status and a nil price with no error.
func (c *RESTClient) GetLatestPrice(ctx context.Context, symbol string) (int, *float64, error) {
	status, trade, err := c.GetLatestTrade(ctx, symbol)
	if err != nil || trade == nil {
		return status, nil, err
	}
	price := trade.Rate.Float64()
	return status, &price, nil
}

// GetLatestTrade returns the first element of the trades endpoint, which the
// exchange orders most recent first.
func (c *RESTClient) GetLatestTrade(ctx context.Context, symbol string) (int, *Trade, error) {
	endpoint := fmt.Sprintf("%s/v3/markets/%s/trades", c.baseURL, url.PathEscape(symbol))

	status, body, err := c.get(ctx, endpoint)
	if err != nil {
		return status, nil, err
	}
	if status != http.StatusOK {
		c.warnStatus(symbol, status, body)
		return status, nil, nil
	}

	var trades []Trade
	if err := json.Unmarshal(body, &trades); err != nil {
		return status, nil, fmt.Errorf("decode trades: %w", err)
	}
	if len(trades) == 0 {
		return status, nil, fmt.Errorf("no trades returned for %s", symbol)
	}
	return status, &trades[0], nil
}

// GetRecentCandles returns the recent candles of symbol for the given bucket size.
// A non-200 response yields the status and nil candles with no error.
func (c *RESTClient) GetRecentCandles(ctx context.Context, symbol string, interval CandleInterval) (int, []Candle, error) {
	if !interval.IsValid() {
		return 0, nil, fmt.Errorf("invalid candle interval: %s", interval)
	}
	endpoint := fmt.Sprintf("%s/v3/markets/%s/candles/%s/recent", c.baseURL, url.PathEscape(symbol), interval)

	status, body, err := c.get(ctx, endpoint)
	if err != nil {
		return status, nil, err
	}
	if status != http.StatusOK {
		c.warnStatus(symbol, status, body)
		return status, nil, nil
	}

	var candles []Candle
	if err := json.Unmarshal(body, &candles); err != nil {
		return status, nil, fmt.Errorf("decode candles: %w", err)
	}
	return status, candles, nil
}

// warnStatus logs the exchange's error code for a non-200 response, when the body carries one.
func (c *RESTClient) warnStatus(symbol string, status int, body []byte) {
	fields := []zap.Field{zap.String("symbol", symbol), zap.Int("status", status)}
	if er := decodeErrorResponse(body); er != nil {
		fields = append(fields, zap.String("code", er.Code))
		if er.Detail != "" {
			fields = append(fields, zap.String("detail", er.Detail))
		}
	}
	c.logger.Warn("bittrex request rejected", fields...)
}

func decodeErrorResponse(body []byte) *ErrorResponse {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Code == "" {
		return nil
	}
	return &er
}

// retryableStatus marks a 5xx response so backoff tries again.
type retryableStatus struct {
	code int
}

func (e *retryableStatus) Error() string {
	return fmt.Sprintf("bittrex server error: %d %s", e.code, http.StatusText(e.code))
}

// get performs a signed GET and returns the final status and body. Transport
// errors come back as err; any HTTP status, including an exhausted 5xx, does not.
func (c *RESTClient) get(ctx context.Context, endpoint string) (int, []byte, error) {
	var (
		status int
		body   []byte
	)

	operation := func() error {
		status, body = 0, nil

		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		// A fresh request per attempt so every try carries a current timestamp
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		c.signer.sign(req, endpoint)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		status, body = resp.StatusCode, data

		if status >= http.StatusInternalServerError {
			return &retryableStatus{code: status}
		}
		return nil
	}

	err := backoff.Retry(operation, c.backoff(ctx))

	var rs *retryableStatus
	if errors.As(err, &rs) {
		return status, body, nil
	}
	if err != nil {
		return 0, nil, err
	}
	return status, body, nil
}

func (c *RESTClient) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.initialInterval > 0 {
		b.InitialInterval = c.initialInterval
	}
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(c.maxRetries, 0))), ctx)
}
