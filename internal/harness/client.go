package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/maraichr/pipescope/internal/config"
	"github.com/maraichr/pipescope/internal/inventory"
)

const (
	defaultBaseURL       = "https://app.harness.io/gateway"
	defaultPageSize      = 500
	defaultExecutionPage = 20
	maxRetries           = 3
	defaultRetryDelay    = time.Second
	maxErrorBody         = 512
)

var (
	_ inventory.Fetcher          = (*Client)(nil)
	_ inventory.ExecutionFetcher = (*Client)(nil)
)

// Client talks to the Harness NextGen REST API for a single account.
type Client struct {
	baseURL       string
	apiKey        string
	accountID     string
	pageSize      int
	executionPage int
	retryDelay    time.Duration
	http          *http.Client
	templates     *expirable.LRU[inventory.TemplateKey, *inventory.TemplateBody]
	logger        *slog.Logger
}

// NewClient creates a client. Template bodies are kept in a bounded LRU shared
// by every run made through this client.
func NewClient(cfg config.HarnessConfig, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	execPage := cfg.ExecutionPageSize
	if execPage <= 0 {
		execPage = defaultExecutionPage
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:       baseURL,
		apiKey:        cfg.APIKey,
		accountID:     cfg.AccountID,
		pageSize:      pageSize,
		executionPage: execPage,
		retryDelay:    defaultRetryDelay,
		http:          &http.Client{Timeout: timeout},
		templates:     expirable.NewLRU[inventory.TemplateKey, *inventory.TemplateBody](cfg.TemplateCacheSize, nil, cfg.TemplateCacheTTL),
		logger:        logger,
	}, nil
}

type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type page[T any] struct {
	Content    []T `json:"content"`
	PageIndex  int `json:"pageIndex"`
	TotalPages int `json:"totalPages"`
}

// done reports whether p is the last page given the requested size.
func (p page[T]) done(size int) bool {
	if p.TotalPages > 0 {
		return p.PageIndex+1 >= p.TotalPages
	}
	return len(p.Content) < size
}

func (c *Client) query(extra map[string]string) url.Values {
	q := url.Values{}
	q.Set("accountIdentifier", c.accountID)
	for k, v := range extra {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// do sends one request and decodes the JSON response into out. Transient
// statuses are retried with linear backoff.
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
	}
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &inventory.FetchError{Op: op, Err: ctx.Err()}
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		raw, err := c.send(ctx, op, method, endpoint, payload)
		if err == nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return &inventory.ParseError{What: op + " response", Err: err}
			}
			return nil
		}
		lastErr = err

		var fe *inventory.FetchError
		if !errors.As(err, &fe) || !retryable(fe.Status) {
			return err
		}
		c.logger.Debug("harness request retry",
			slog.String("op", op),
			slog.Int("status", fe.Status),
			slog.Int("attempt", attempt+1))
	}
	return lastErr
}

func (c *Client) send(ctx context.Context, op, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &inventory.FetchError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &inventory.FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &inventory.FetchError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &inventory.FetchError{Op: op, Status: resp.StatusCode, Err: errors.New(msg)}
	}
	return raw, nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
