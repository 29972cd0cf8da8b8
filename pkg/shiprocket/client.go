// Package shiprocket provides integration with the Shiprocket logistics API.
package shiprocket

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "shiprocket"

// Config holds Shiprocket configuration.
type Config struct {
	Email       string
	Password    string
	BaseURL     string
	AuthTimeout time.Duration
	Timeout     time.Duration
	Token       TokenManagerConfig
	UseMock     bool // When true, uses mock API client
}

// Client is the Shiprocket carrier client.
// It implements the fulfillment operations and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Shiprocket client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:     cfg.BaseURL,
			Email:       cfg.Email,
			Password:    cfg.Password,
			AuthTimeout: cfg.AuthTimeout,
			Timeout:     cfg.Timeout,
			Token:       cfg.Token,
		}, logger)
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new Shiprocket client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

func (c *Client) span(ctx context.Context, op string) (context.Context, trace.Span) {
	if c.tracer == nil {
		return ctx, nil
	}
	return c.tracer.Start(ctx, "shiprocket."+op)
}

func endSpan(span trace.Span) {
	if span != nil {
		span.End()
	}
}

// CheckServiceability proxies the courier serviceability check. The
// carrier's courier list is passed through untyped to the platform layer.
func (c *Client) CheckServiceability(ctx context.Context, q ServiceabilityQuery) (Body, error) {
	ctx, span := c.span(ctx, "serviceability")
	defer endSpan(span)

	c.logger.Info("Checking Shiprocket serviceability",
		zap.String("pickup_postcode", q.PickupPostcode),
		zap.String("delivery_postcode", q.DeliveryPostcode),
		zap.Float64("weight", q.Weight),
		zap.Bool("cod", q.COD),
	)

	body, err := c.apiClient.CheckServiceability(ctx, q)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}
	return body, nil
}

// CreateOrder creates an adhoc shipment order with Shiprocket.
func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*CreateOrderResult, error) {
	ctx, span := c.span(ctx, "create_order")
	defer endSpan(span)

	c.logger.Info("Creating Shiprocket order",
		zap.String("order_id", req.OrderID),
		zap.String("payment_method", req.PaymentMethod),
		zap.Int("item_count", len(req.Items)),
	)

	body, err := c.apiClient.CreateOrder(ctx, req)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}
	return parseCreateOrder(body)
}

// AssignAWB requests an AWB for a shipment.
func (c *Client) AssignAWB(ctx context.Context, shipmentID string) (*AWBResult, error) {
	ctx, span := c.span(ctx, "assign_awb")
	defer endSpan(span)

	c.logger.Info("Assigning Shiprocket AWB", zap.String("shipment_id", shipmentID))

	body, err := c.apiClient.AssignAWB(ctx, shipmentID)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}
	return parseAWB(body)
}

// GeneratePickup schedules a pickup for a shipment.
func (c *Client) GeneratePickup(ctx context.Context, shipmentID string) (*PickupResult, error) {
	ctx, span := c.span(ctx, "generate_pickup")
	defer endSpan(span)

	c.logger.Info("Requesting Shiprocket pickup", zap.String("shipment_id", shipmentID))

	body, err := c.apiClient.GeneratePickup(ctx, shipmentID)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}
	return parsePickup(body)
}

// GenerateLabel generates the shipping label document.
func (c *Client) GenerateLabel(ctx context.Context, shipmentID string) (*DocumentResult, error) {
	ctx, span := c.span(ctx, "generate_label")
	defer endSpan(span)

	c.logger.Info("Generating Shiprocket label", zap.String("shipment_id", shipmentID))

	body, err := c.apiClient.GenerateLabel(ctx, shipmentID)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}
	return parseDocument(body, "label_created", "label_url")
}

// PrintInvoice generates the invoice document for a shipment's order.
func (c *Client) PrintInvoice(ctx context.Context, shipmentID string) (*DocumentResult, error) {
	ctx, span := c.span(ctx, "print_invoice")
	defer endSpan(span)

	c.logger.Info("Generating Shiprocket invoice", zap.String("shipment_id", shipmentID))

	body, err := c.apiClient.PrintInvoice(ctx, shipmentID)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}
	return parseDocument(body, "is_invoice_created", "invoice_url")
}

// GenerateManifest generates the pickup manifest document.
func (c *Client) GenerateManifest(ctx context.Context, shipmentID string) (*DocumentResult, error) {
	ctx, span := c.span(ctx, "generate_manifest")
	defer endSpan(span)

	c.logger.Info("Generating Shiprocket manifest", zap.String("shipment_id", shipmentID))

	body, err := c.apiClient.GenerateManifest(ctx, shipmentID)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}
	return parseDocument(body, "status", "manifest_url")
}

// Track retrieves tracking events for an AWB. The carrier's tracking
// payload is passed through untyped to the platform layer.
func (c *Client) Track(ctx context.Context, awb string) (Body, error) {
	ctx, span := c.span(ctx, "track")
	defer endSpan(span)

	c.logger.Info("Tracking Shiprocket AWB", zap.String("awb", awb))

	body, err := c.apiClient.TrackAWB(ctx, awb)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}
	return body, nil
}
