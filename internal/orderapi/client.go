package orderapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 15 * time.Second
	userAgent      = "ordersync/1.0"

	// HeaderSigner carries the address that signed an action request.
	HeaderSigner = "X-Signer"
	// HeaderSignature carries the personal-sign signature of the order id.
	HeaderSignature = "X-Signature"
)

var (
	// ErrNoSigner is returned when an action is attempted without a signing key.
	ErrNoSigner = errors.New("no signer configured")
	// ErrTokenNotFound is returned by discovery when the service does not know a token.
	ErrTokenNotFound = errors.New("token not found")
)

// Signer signs action payloads on behalf of the order owner.
type Signer interface {
	Address() string
	Sign(payload string) (string, error)
}

// Client talks to the order listing, action, metadata and price services.
type Client struct {
	http   *resty.Client
	signer Signer
	logger *zap.Logger
}

// Config holds Client settings. Signer may be nil for read-only use.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Signer  Signer
	Logger  *zap.Logger
}

// NewClient creates a client. Requests are never retried.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	return &Client{
		http:   httpClient,
		signer: cfg.Signer,
		logger: logger,
	}
}

// FetchOrders returns one page of orders matching q.
func (c *Client) FetchOrders(ctx context.Context, q types.OrderQuery) (*types.OrdersPage, error) {
	params := map[string]string{
		"owner": q.Owner,
		"page":  strconv.Itoa(q.Page),
		"limit": strconv.Itoa(q.Limit),
	}
	if q.SortBy != "" {
		params["sortBy"] = q.SortBy
	}
	if q.SortDir != "" {
		params["sortDir"] = q.SortDir
	}
	if q.Status != "" {
		params["status"] = string(q.Status)
	}
	if q.Search != "" {
		params["search"] = q.Search
	}

	var page types.OrdersPage
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&page).
		Get("/orders")
	observe("fetch_orders", start, resp, err)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch orders: %w", statusError(resp))
	}

	c.logger.Debug("orders-fetched",
		zap.String("owner", q.Owner),
		zap.Int("page", q.Page),
		zap.Int("count", len(page.Data)),
		zap.Int("total", page.Pagination.Total))

	return &page, nil
}

// CancelOrder asks the action service to cancel an order. A rejected action is
// returned as a result with OK=false, not as an error.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*types.ActionResult, error) {
	return c.action(ctx, http.MethodPatch, types.ActionCancel, orderID)
}

// ExecuteOrder asks the action service to execute an order now.
func (c *Client) ExecuteOrder(ctx context.Context, orderID string) (*types.ActionResult, error) {
	return c.action(ctx, http.MethodPost, types.ActionExecute, orderID)
}

func (c *Client) action(ctx context.Context, method string, kind types.ActionKind, orderID string) (*types.ActionResult, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}

	signature, err := c.signer.Sign(orderID)
	if err != nil {
		return nil, fmt.Errorf("sign %s request: %w", kind, err)
	}

	path := fmt.Sprintf("/orders/%s/%s", url.PathEscape(orderID), kind)
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(HeaderSigner, c.signer.Address()).
		SetHeader(HeaderSignature, signature).
		Execute(method, path)
	observe(string(kind)+"_order", start, resp, err)
	if err != nil {
		return nil, fmt.Errorf("%s order: %w", kind, err)
	}

	var result types.ActionResult
	if decodeErr := json.Unmarshal(resp.Body(), &result); decodeErr != nil {
		if resp.IsError() {
			return nil, fmt.Errorf("%s order: %w", kind, statusError(resp))
		}
		return nil, fmt.Errorf("decode %s response: %w", kind, decodeErr)
	}
	if resp.IsError() && result.OK {
		// Never trust ok=true on an error status.
		return nil, fmt.Errorf("%s order: %w", kind, statusError(resp))
	}

	c.logger.Debug("action-response",
		zap.String("action", string(kind)),
		zap.String("order-id", orderID),
		zap.Bool("ok", result.OK),
		zap.Int("status", resp.StatusCode()))

	return &result, nil
}

// ListTokens returns every token known to the metadata service.
func (c *Client) ListTokens(ctx context.Context) ([]types.TokenDescriptor, error) {
	var tokens []types.TokenDescriptor
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&tokens).
		Get("/tokens")
	observe("list_tokens", start, resp, err)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list tokens: %w", statusError(resp))
	}

	return tokens, nil
}

// DiscoverToken resolves a single token by identifier.
func (c *Client) DiscoverToken(ctx context.Context, id string) (*types.TokenDescriptor, error) {
	var token types.TokenDescriptor
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&token).
		Get("/tokens/{id}")
	observe("discover_token", start, resp, err)
	if err != nil {
		return nil, fmt.Errorf("discover token %s: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("discover token %s: %w", id, ErrTokenNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("discover token %s: %w", id, statusError(resp))
	}
	if token.ID == "" {
		token.ID = id
	}
	token.ResolvedAt = time.Now()

	return &token, nil
}

// FetchPrice returns the USD price of a token, or nil if the service has none.
func (c *Client) FetchPrice(ctx context.Context, id string) (*float64, error) {
	var body struct {
		Price *float64 `json:"price"`
	}
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&body).
		Get("/prices/{id}")
	observe("fetch_price", start, resp, err)
	if err != nil {
		return nil, fmt.Errorf("fetch price %s: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch price %s: %w", id, statusError(resp))
	}

	return body.Price, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func statusError(resp *resty.Response) error {
	body := strings.TrimSpace(string(resp.Body()))
	if len(body) > 256 {
		body = body[:256]
	}
	return &StatusError{StatusCode: resp.StatusCode(), Body: body}
}

func observe(endpoint string, start time.Time, resp *resty.Response, err error) {
	RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode())
	}
	RequestsTotal.WithLabelValues(endpoint, status).Inc()
}
