// Package posclient talks to the POS API on behalf of the register.
package posclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-pos/internal/posapi"
	"github.com/noah-isme/toko-pos/internal/resilience"
)

// ErrNotFound is returned when the API answers 404 for an item.
var ErrNotFound = errors.New("posclient: not found")

// APIError carries a non-success answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("posclient: api responded %d", e.Status)
	}
	return fmt.Sprintf("posclient: %s (status %d)", e.Message, e.Status)
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Breaker   *resilience.Breaker
	Transport http.RoundTripper
	Logger    zerolog.Logger
}

// Client calls the catalog and invoice endpoints. No call is retried.
type Client struct {
	base   *url.URL
	http   resilience.HTTPClient
	logger zerolog.Logger
}

// New constructs a Client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("posclient: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("posclient: parse base url: %w", err)
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.NewBreaker(5, 0.5, 15*time.Second).WithTarget("pos-api").WithLogger(cfg.Logger)
	}
	return &Client{
		base: base,
		http: resilience.HTTPClient{
			Client:  &http.Client{Transport: otelhttp.NewTransport(transport)},
			Breaker: breaker,
			Timeout: timeout,
		},
		logger: cfg.Logger,
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Search looks up items by name or barcode fragment.
func (c *Client) Search(ctx context.Context, q string) ([]posapi.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/search", url.Values{"q": {q}}), nil)
	if err != nil {
		return nil, err
	}
	var items []posapi.Item
	if err := c.do(ctx, req, &items); err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	return items, nil
}

// Item fetches the full catalog entry for id.
func (c *Client) Item(ctx context.Context, id string) (posapi.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/items/"+url.PathEscape(id), nil), nil)
	if err != nil {
		return posapi.Item{}, err
	}
	var item posapi.Item
	if err := c.do(ctx, req, &item); err != nil {
		return posapi.Item{}, fmt.Errorf("item %s: %w", id, err)
	}
	return item, nil
}

// SaveInvoice persists a checkout. A {success:false} answer is returned as
// an *APIError carrying the server message.
func (c *Client) SaveInvoice(ctx context.Context, in posapi.SaveInvoiceRequest, idempotencyKey string) (posapi.SaveInvoiceResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return posapi.SaveInvoiceResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/invoice", nil), bytes.NewReader(body))
	if err != nil {
		return posapi.SaveInvoiceResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	var out posapi.SaveInvoiceResponse
	if err := c.do(ctx, req, &out); err != nil {
		return out, fmt.Errorf("save invoice: %w", err)
	}
	if !out.Success {
		return out, fmt.Errorf("save invoice: %w", &APIError{Status: http.StatusOK, Message: out.Message})
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("pos api call failed")
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("pos api call")

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(data []byte) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	if body.Message != "" {
		return body.Message
	}
	var plain string
	if err := json.Unmarshal(body.Error, &plain); err == nil {
		return plain
	}
	var structured struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body.Error, &structured); err == nil {
		return structured.Message
	}
	return ""
}
