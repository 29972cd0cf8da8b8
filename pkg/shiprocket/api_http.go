package shiprocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
// It injects the managed bearer token into every call, tags each call with
// a correlation id, and performs a single bounded retry after a forced
// re-authentication when the carrier rejects the token.
type HTTPAPIClient struct {
	baseURL     string
	email       string
	password    string
	httpClient  *http.Client
	authTimeout time.Duration
	opTimeout   time.Duration
	tokens      *TokenManager
	logger      *otelzap.Logger
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL     string
	Email       string
	Password    string
	AuthTimeout time.Duration // credential exchange, kept short
	Timeout     time.Duration // business operations
	Token       TokenManagerConfig
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig, logger *otelzap.Logger) *HTTPAPIClient {
	authTimeout := cfg.AuthTimeout
	if authTimeout == 0 {
		authTimeout = 15 * time.Second
	}
	opTimeout := cfg.Timeout
	if opTimeout == 0 {
		opTimeout = 30 * time.Second
	}

	c := &HTTPAPIClient{
		baseURL:     cfg.BaseURL,
		email:       cfg.Email,
		password:    cfg.Password,
		httpClient:  &http.Client{},
		authTimeout: authTimeout,
		opTimeout:   opTimeout,
		logger:      logger,
	}
	c.tokens = NewTokenManager(func(ctx context.Context) (*LoginResponse, error) {
		return c.Login(ctx, c.email, c.password)
	}, cfg.Token, logger)
	return c
}

// Tokens exposes the token manager, mainly so startup wiring can warm the
// session and surface credential problems early.
func (c *HTTPAPIClient) Tokens() *TokenManager { return c.tokens }

// Login exchanges credentials for a bearer token.
// POST /auth/login - the only call issued without a token.
func (c *HTTPAPIClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, c.authTimeout)
	defer cancel()

	corrID := newCorrelationID()
	c.logger.Info("carrier request",
		zap.String("correlation_id", corrID),
		zap.String("method", http.MethodPost),
		zap.String("path", "/auth/login"),
		zap.String("email", maskSecret(email)),
	)

	status, body, err := c.send(ctx, http.MethodPost, "/auth/login", LoginRequest{
		Email:    email,
		Password: password,
	}, "")
	if err != nil {
		c.logger.Error("carrier transport error",
			zap.String("correlation_id", corrID), zap.Error(err))
		return nil, err
	}
	if status != http.StatusOK {
		err := c.asError(status, body)
		c.logger.Error("carrier error",
			zap.String("correlation_id", corrID),
			zap.Int("status", status), zap.Error(err))
		return nil, err
	}

	var grant LoginResponse
	if err := remarshal(body, &grant); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("malformed login response: %v", err), Body: body}
	}
	if grant.Token == "" {
		return nil, &APIError{StatusCode: status, Message: "login response carried no token", Body: body}
	}

	c.logger.Info("carrier response",
		zap.String("correlation_id", corrID),
		zap.Int("status", status),
		zap.String("token", maskSecret(grant.Token)),
	)
	return &grant, nil
}

// CheckServiceability queries courier availability for a lane.
// GET /courier/serviceability/
func (c *HTTPAPIClient) CheckServiceability(ctx context.Context, q ServiceabilityQuery) (Body, error) {
	params := url.Values{}
	params.Set("pickup_postcode", q.PickupPostcode)
	params.Set("delivery_postcode", q.DeliveryPostcode)
	params.Set("weight", strconv.FormatFloat(q.Weight, 'f', -1, 64))
	cod := "0"
	if q.COD {
		cod = "1"
	}
	params.Set("cod", cod)
	if q.DeclaredValue > 0 {
		params.Set("declared_value", strconv.FormatFloat(q.DeclaredValue, 'f', 2, 64))
	}
	if q.Mode != "" {
		params.Set("mode", q.Mode)
	}

	return c.do(ctx, http.MethodGet, "/courier/serviceability/?"+params.Encode(), nil)
}

// CreateOrder creates an adhoc shipment order.
// POST /orders/create/adhoc
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (Body, error) {
	return c.do(ctx, http.MethodPost, "/orders/create/adhoc", req)
}

// AssignAWB requests an AWB for a shipment.
// POST /courier/assign/awb
func (c *HTTPAPIClient) AssignAWB(ctx context.Context, shipmentID string) (Body, error) {
	return c.do(ctx, http.MethodPost, "/courier/assign/awb", map[string]any{
		"shipment_id": shipmentID,
	})
}

// GeneratePickup schedules a pickup for a shipment.
// POST /courier/generate/pickup
func (c *HTTPAPIClient) GeneratePickup(ctx context.Context, shipmentID string) (Body, error) {
	return c.do(ctx, http.MethodPost, "/courier/generate/pickup", map[string]any{
		"shipment_id": []string{shipmentID},
	})
}

// GenerateLabel generates the shipping label document.
// POST /courier/generate/label
func (c *HTTPAPIClient) GenerateLabel(ctx context.Context, shipmentID string) (Body, error) {
	return c.do(ctx, http.MethodPost, "/courier/generate/label", map[string]any{
		"shipment_id": []string{shipmentID},
	})
}

// PrintInvoice generates the invoice document for a shipment's order.
// POST /orders/print/invoice
func (c *HTTPAPIClient) PrintInvoice(ctx context.Context, shipmentID string) (Body, error) {
	return c.do(ctx, http.MethodPost, "/orders/print/invoice", map[string]any{
		"ids": []string{shipmentID},
	})
}

// GenerateManifest generates the pickup manifest document.
// POST /manifests/generate
func (c *HTTPAPIClient) GenerateManifest(ctx context.Context, shipmentID string) (Body, error) {
	return c.do(ctx, http.MethodPost, "/manifests/generate", map[string]any{
		"shipment_id": []string{shipmentID},
	})
}

// TrackAWB retrieves tracking events for an AWB.
// GET /courier/track/awb/{awb}
func (c *HTTPAPIClient) TrackAWB(ctx context.Context, awb string) (Body, error) {
	return c.do(ctx, http.MethodGet, "/courier/track/awb/"+url.PathEscape(awb), nil)
}

// do issues one authenticated carrier call. On a 401/403 it forces exactly
// one re-authentication and retries the original call exactly once; a
// second rejection surfaces, never loops.
func (c *HTTPAPIClient) do(ctx context.Context, method, path string, reqBody any) (Body, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	corrID := newCorrelationID()
	c.logger.Info("carrier request",
		zap.String("correlation_id", corrID),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("token", maskSecret(token)),
	)

	status, body, err := c.send(ctx, method, path, reqBody, token)
	if err != nil {
		c.logger.Error("carrier transport error",
			zap.String("correlation_id", corrID), zap.Error(err))
		return nil, err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.tokens.Invalidate(token)
		fresh, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		c.logger.Warn("carrier rejected token, retrying once after re-authentication",
			zap.String("correlation_id", corrID),
			zap.Int("status", status),
		)
		status, body, err = c.send(ctx, method, path, reqBody, fresh)
		if err != nil {
			c.logger.Error("carrier transport error",
				zap.String("correlation_id", corrID), zap.Error(err))
			return nil, err
		}
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			err := &AuthError{Message: "token rejected twice", Cause: ErrTokenRejected}
			c.logger.Error("carrier error",
				zap.String("correlation_id", corrID),
				zap.Int("status", status), zap.Error(err))
			return nil, err
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		err := c.asError(status, body)
		c.logger.Error("carrier error",
			zap.String("correlation_id", corrID),
			zap.Int("status", status), zap.Error(err))
		return nil, err
	}

	c.logger.Info("carrier response",
		zap.String("correlation_id", corrID),
		zap.Int("status", status),
	)
	return body, nil
}

// send performs one HTTP round-trip and decodes the JSON body.
func (c *HTTPAPIClient) send(ctx context.Context, method, path string, reqBody any, token string) (int, Body, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "trovemart-commerce/1.0")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: method + " " + path, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Op: method + " " + path, Cause: err}
	}

	body := Body{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			// Non-JSON bodies still need an error message to surface.
			body = Body{"message": string(raw)}
		}
	}
	return resp.StatusCode, body, nil
}

// asError normalizes a carrier 4xx/5xx into the error taxonomy. A 400
// carrying the login-lockout message is rewrapped into the lockout
// condition no matter which call tripped it.
func (c *HTTPAPIClient) asError(status int, body Body) error {
	msg := body.mineMessage()
	if msg == "" {
		msg = http.StatusText(status)
	}
	if status == http.StatusBadRequest && isLockoutMessage(msg) {
		return newLockoutError(msg)
	}
	return &APIError{StatusCode: status, Message: msg, Body: body}
}

// remarshal converts a raw body into a typed struct.
func remarshal(body Body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// newCorrelationID returns a short per-call identifier used to tie the
// request, response and error log lines of one carrier call together.
func newCorrelationID() string {
	return uuid.New().String()[:8]
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
