// Package datos fetches the traffic-accident dataset from the datos.gov.co Socrata endpoint.
package datos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/accidentes/internal/common"
	"github.com/Veraticus/accidentes/internal/model"
	"github.com/Veraticus/accidentes/internal/service"
)

// DefaultURL is the Bucaramanga traffic-accident resource.
const DefaultURL = "https://www.datos.gov.co/resource/7cci-nqqb.json"

// maxErrorBody bounds how much of a failed response is echoed into the error.
const maxErrorBody = 512

// Config holds the fetcher settings.
type Config struct {
	Progress   io.Writer
	URL        string
	Timeout    time.Duration
	RetryDelay time.Duration
	Retries    int
	// PageSize enables $limit/$offset paging when positive. Zero issues a single
	// request for the URL as configured.
	PageSize int
}

// DefaultConfig returns a Config that issues one unbounded request to DefaultURL.
func DefaultConfig() Config {
	return Config{
		URL:        DefaultURL,
		RetryDelay: time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: source url %q", common.ErrInvalidConfig, c.URL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout cannot be negative", common.ErrInvalidConfig)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: retries cannot be negative", common.ErrInvalidConfig)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("%w: page size cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// Client implements service.Fetcher against a Socrata JSON resource.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     Config
}

// NewClient creates a dataset client.
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// FetchAccidents downloads every record of the resource.
func (c *Client) FetchAccidents(ctx context.Context) ([]model.RawAccident, error) {
	if c.config.PageSize == 0 {
		return c.fetchPage(ctx, c.config.URL)
	}

	var all []model.RawAccident
	for offset := 0; ; offset += c.config.PageSize {
		pageURL, err := pagedURL(c.config.URL, c.config.PageSize, offset)
		if err != nil {
			return nil, err
		}

		page, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		c.logger.Debug("Fetched dataset page", "offset", offset, "records", len(page))

		if len(page) < c.config.PageSize {
			return all, nil
		}
	}
}

// fetchPage performs one GET with the configured retry policy.
func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]model.RawAccident, error) {
	retryOpts := service.RetryOptions{
		MaxAttempts:  c.config.Retries + 1,
		InitialDelay: c.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var records []model.RawAccident
	err := common.WithRetry(ctx, func() error {
		var fetchErr error
		records, fetchErr = c.get(ctx, pageURL)
		return fetchErr
	}, retryOpts)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, pageURL string) ([]model.RawAccident, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Requesting dataset", "url", pageURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", common.ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := fmt.Errorf("%w: %d - %s", common.ErrSourceUnavailable, resp.StatusCode, string(body))
		return nil, &common.RetryableError{
			Err:       statusErr,
			Retryable: resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	var body io.Reader = resp.Body
	if c.config.Progress != nil {
		bar := newDownloadBar(c.config.Progress, resp.ContentLength)
		defer func() { _ = bar.Finish() }()
		body = io.TeeReader(resp.Body, bar)
	}

	var records []model.RawAccident
	if err := json.NewDecoder(body).Decode(&records); err != nil {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%w: %w", common.ErrMalformedPayload, err),
			Retryable: false,
		}
	}

	return records, nil
}

func newDownloadBar(w io.Writer, size int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Downloading accidents"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// pagedURL adds Socrata paging parameters, ordering by row id so pages are stable.
func pagedURL(base string, limit, offset int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("$limit", strconv.Itoa(limit))
	q.Set("$offset", strconv.Itoa(offset))
	if q.Get("$order") == "" {
		q.Set("$order", ":id")
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// StderrProgress returns os.Stderr when enabled, for Config.Progress.
func StderrProgress(enabled bool) io.Writer {
	if enabled {
		return os.Stderr
	}
	return nil
}
