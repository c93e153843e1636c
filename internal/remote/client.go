// Package remote is the client of the authoritative catalog and transaction
// service the terminal syncs with.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/config"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrUnavailable marks failures where the remote service could not give an
// answer: transport errors, timeouts, 408, 429 and 5xx responses. Callers
// fall back to the local cache or queue on it.
var ErrUnavailable = errors.New("remote service unavailable")

// ErrMalformedResponse marks a 2xx answer whose body could not be decoded.
// The remote service accepted the request; only its reply is lost.
var ErrMalformedResponse = errors.New("remote accepted the request but its response could not be decoded")

// RejectionError is a definitive answer from the remote service refusing the
// request for a business reason. It must not be retried or queued.
type RejectionError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RejectionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote rejected request (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote rejected request (%d): %s", e.StatusCode, e.Message)
}

// IsNetworkError reports whether err means the remote service was not
// reached, as opposed to a rejection or a local bug.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsAcceptedUnreadable reports whether the remote service accepted the
// request but its reply could not be decoded.
func IsAcceptedUnreadable(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsRejection reports whether err is a business rejection.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewClient(cfg config.RemoteConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

// FetchProducts returns the full catalog of outletID.
func (c *Client) FetchProducts(ctx context.Context, outletID string) ([]models.Product, error) {
	var products []models.Product
	endpoint := "/outlets/" + url.PathEscape(outletID) + "/products"
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, nil, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// CreateTransaction records a sale. idempotencyKey is sent as the
// Idempotency-Key header; replaying the same key must not create a second sale.
func (c *Client) CreateTransaction(ctx context.Context, req models.TransactionRequest, idempotencyKey string) (models.Transaction, error) {
	var tx models.Transaction
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	if err := c.doRequest(ctx, http.MethodPost, "/transactions", headers, req, &tx); err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

// SendOperation delivers one generic queued operation.
func (c *Client) SendOperation(ctx context.Context, opType string, payload json.RawMessage) error {
	return c.doRequest(ctx, http.MethodPost, "/sync/operations/"+url.PathEscape(opType), nil, payload, nil)
}

// Ping checks the remote service answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, headers map[string]string, requestBody, response any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var body io.Reader
	if requestBody != nil {
		raw, ok := requestBody.(json.RawMessage)
		if !ok {
			var err error
			if raw, err = json.Marshal(requestBody); err != nil {
				return fmt.Errorf("failed to marshal request body: %w", err)
			}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("remote request failed", zap.String("method", method), zap.String("endpoint", endpoint), zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrUnavailable, err)
	}
	c.log.Debug("remote request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if err := classifyStatus(resp.StatusCode, payload); err != nil {
		return err
	}
	if response == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	return decodeData(payload, response)
}

func classifyStatus(status int, payload []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	default:
		return rejection(status, payload)
	}
}

// rejection reads {"error":"msg"}, {"error":{"code","message"}} or
// {"code","message"} bodies.
func rejection(status int, payload []byte) *RejectionError {
	rej := &RejectionError{StatusCode: status, Message: http.StatusText(status)}
	var body errorBody
	if err := json.Unmarshal(payload, &body); err != nil {
		if msg := strings.TrimSpace(string(payload)); msg != "" {
			rej.Message = msg
		}
		return rej
	}
	if body.Code != "" {
		rej.Code = body.Code
	}
	if body.Message != "" {
		rej.Message = body.Message
	}
	if len(body.Error) > 0 {
		var msg string
		if json.Unmarshal(body.Error, &msg) == nil {
			rej.Message = msg
		} else {
			var nested struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			if json.Unmarshal(body.Error, &nested) == nil {
				if nested.Code != "" {
					rej.Code = nested.Code
				}
				if nested.Message != "" {
					rej.Message = nested.Message
				}
			}
		}
	}
	return rej
}

// decodeData accepts both {"data": ...} envelopes and bare bodies.
func decodeData(payload []byte, response any) error {
	var env envelope
	if json.Unmarshal(payload, &env) == nil && len(env.Data) > 0 {
		payload = env.Data
	}
	if err := json.Unmarshal(payload, response); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}
