package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trovemart/commerce/internal/order"
	"github.com/trovemart/commerce/internal/telemetry"
	"github.com/trovemart/commerce/pkg/shiprocket"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PreconditionError reports a fulfillment step attempted before its
// prerequisite tracking field exists on the order. The step is rejected
// before any network call.
type PreconditionError struct {
	Step    string
	Missing string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s requires %s to be set on the order first", e.Step, e.Missing)
}

// ErrOrderCancelled indicates the order was cancelled upstream; every
// fulfillment step short-circuits on it before reaching the carrier.
var ErrOrderCancelled = errors.New("order is cancelled")

// Service drives the ordered fulfillment steps for confirmed orders.
// Each step is independently retryable: a failed step leaves previously
// written tracking fields in place and only itself needs retrying. There
// are no compensating rollbacks; idempotency comes from precondition
// gating plus already-done short-circuits.
type Service struct {
	orders         order.Store
	carrier        *shiprocket.Client
	pickupLocation string
	logger         *otelzap.Logger
	metrics        *telemetry.Metrics
}

// NewService creates the fulfillment service.
func NewService(orders order.Store, carrier *shiprocket.Client, pickupLocation string, logger *otelzap.Logger, metrics *telemetry.Metrics) *Service {
	return &Service{
		orders:         orders,
		carrier:        carrier,
		pickupLocation: pickupLocation,
		logger:         logger,
		metrics:        metrics,
	}
}

// load fetches the order and applies the gates shared by every step:
// cancelled orders short-circuit, and steps past creation require the
// shipment to exist already.
func (s *Service) load(ctx context.Context, number, step string, needShipment bool) (*order.Record, error) {
	o, err := s.orders.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	if o.IsCancelled() {
		return nil, fmt.Errorf("%w: %s", ErrOrderCancelled, number)
	}
	if needShipment && o.Tracking.ShipmentID == "" {
		return nil, &PreconditionError{Step: step, Missing: "shipmentId"}
	}
	return o, nil
}

func (s *Service) observe(step string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		s.metrics.RecordError(errorClass(err))
	}
	s.metrics.RecordStep(step, status, time.Since(start).Seconds())
}

// errorClass buckets a step failure for the error counter.
func errorClass(err error) string {
	var (
		valErr  *ValidationError
		preErr  *PreconditionError
		apiErr  *shiprocket.APIError
		backoff *shiprocket.BackoffError
	)
	switch {
	case errors.Is(err, order.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrOrderCancelled):
		return "cancelled"
	case errors.As(err, &valErr):
		return "validation"
	case errors.As(err, &preErr):
		return "precondition"
	case errors.As(err, &backoff):
		return "backoff"
	case shiprocket.IsLockout(err):
		return "lockout"
	case shiprocket.IsAuth(err):
		return "auth"
	case shiprocket.IsTransport(err):
		return "transport"
	case errors.As(err, &apiErr):
		return "carrier"
	default:
		return "other"
	}
}

// CreateShipment maps, validates and registers the order with the carrier,
// then records the shipment id. Calling it again once the shipment exists
// is a no-op returning the recorded id.
func (s *Service) CreateShipment(ctx context.Context, number string) (tracking *order.Tracking, err error) {
	defer func(start time.Time) { s.observe("create_shipment", start, err) }(time.Now())

	o, err := s.load(ctx, number, "create shipment", false)
	if err != nil {
		return nil, err
	}
	if o.Tracking.ShipmentID != "" {
		return &o.Tracking, nil
	}

	payload := MapOrder(o, s.pickupLocation)
	if violations := ValidatePayload(payload); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	result, err := s.carrier.CreateOrder(ctx, payload)
	if err != nil {
		return nil, err
	}

	patch := order.TrackingPatch{ShipmentID: &result.ShipmentID}
	if err := s.orders.ApplyTracking(ctx, number, patch); err != nil {
		return nil, err
	}

	s.logger.Info("shipment created",
		zap.String("order", number),
		zap.String("shipment_id", result.ShipmentID),
	)
	o.Tracking.ShipmentID = result.ShipmentID
	return &o.Tracking, nil
}

// AssignAWB requests an AWB for the order's shipment and records the AWB
// code together with the courier that owns it.
func (s *Service) AssignAWB(ctx context.Context, number string) (tracking *order.Tracking, err error) {
	defer func(start time.Time) { s.observe("assign_awb", start, err) }(time.Now())

	o, err := s.load(ctx, number, "AWB assignment", true)
	if err != nil {
		return nil, err
	}
	if o.Tracking.AWBCode != "" {
		return &o.Tracking, nil
	}

	result, err := s.carrier.AssignAWB(ctx, o.Tracking.ShipmentID)
	if err != nil {
		return nil, err
	}

	patch := order.TrackingPatch{
		AWBCode:     &result.AWBCode,
		CourierName: &result.CourierName,
	}
	if err := s.orders.ApplyTracking(ctx, number, patch); err != nil {
		return nil, err
	}

	s.logger.Info("awb assigned",
		zap.String("order", number),
		zap.String("awb", result.AWBCode),
		zap.String("courier", result.CourierName),
	)
	o.Tracking.AWBCode = result.AWBCode
	o.Tracking.CourierName = result.CourierName
	return &o.Tracking, nil
}

// RequestPickup schedules the carrier pickup and stamps the order with the
// scheduled time (the carrier's when returned, the local clock otherwise).
func (s *Service) RequestPickup(ctx context.Context, number string) (tracking *order.Tracking, err error) {
	defer func(start time.Time) { s.observe("request_pickup", start, err) }(time.Now())

	o, err := s.load(ctx, number, "pickup request", true)
	if err != nil {
		return nil, err
	}
	if o.Tracking.PickupRequestedAt != nil {
		return &o.Tracking, nil
	}

	result, err := s.carrier.GeneratePickup(ctx, o.Tracking.ShipmentID)
	if err != nil {
		return nil, err
	}

	requestedAt := time.Now()
	if result.ScheduledDate != "" {
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", result.ScheduledDate, carrierTZ); err == nil {
			requestedAt = t
		}
	}

	patch := order.TrackingPatch{PickupRequestedAt: &requestedAt}
	if err := s.orders.ApplyTracking(ctx, number, patch); err != nil {
		return nil, err
	}

	s.logger.Info("pickup requested",
		zap.String("order", number),
		zap.Time("pickup_requested_at", requestedAt),
	)
	o.Tracking.PickupRequestedAt = &requestedAt
	return &o.Tracking, nil
}

// GenerateLabel generates the shipping label and records its URL. A soft
// partial success (label acknowledged, URL absent) still succeeds and
// leaves the URL empty.
func (s *Service) GenerateLabel(ctx context.Context, number string) (tracking *order.Tracking, err error) {
	defer func(start time.Time) { s.observe("generate_label", start, err) }(time.Now())
	return s.document(ctx, number, "label generation",
		func(ctx context.Context, shipmentID string) (*shiprocket.DocumentResult, error) {
			return s.carrier.GenerateLabel(ctx, shipmentID)
		},
		func(t *order.Tracking) *string { return &t.LabelURL },
		func(url string) order.TrackingPatch { return order.TrackingPatch{LabelURL: &url} },
	)
}

// GenerateInvoice generates the invoice document and records its URL.
func (s *Service) GenerateInvoice(ctx context.Context, number string) (tracking *order.Tracking, err error) {
	defer func(start time.Time) { s.observe("generate_invoice", start, err) }(time.Now())
	return s.document(ctx, number, "invoice generation",
		func(ctx context.Context, shipmentID string) (*shiprocket.DocumentResult, error) {
			return s.carrier.PrintInvoice(ctx, shipmentID)
		},
		func(t *order.Tracking) *string { return &t.InvoiceURL },
		func(url string) order.TrackingPatch { return order.TrackingPatch{InvoiceURL: &url} },
	)
}

// GenerateManifest generates the pickup manifest and records its URL.
func (s *Service) GenerateManifest(ctx context.Context, number string) (tracking *order.Tracking, err error) {
	defer func(start time.Time) { s.observe("generate_manifest", start, err) }(time.Now())
	return s.document(ctx, number, "manifest generation",
		func(ctx context.Context, shipmentID string) (*shiprocket.DocumentResult, error) {
			return s.carrier.GenerateManifest(ctx, shipmentID)
		},
		func(t *order.Tracking) *string { return &t.ManifestURL },
		func(url string) order.TrackingPatch { return order.TrackingPatch{ManifestURL: &url} },
	)
}

// document is the shared shape of the three document steps: gated on the
// shipment existing, already-done short-circuit, one field written.
func (s *Service) document(
	ctx context.Context,
	number, step string,
	call func(context.Context, string) (*shiprocket.DocumentResult, error),
	field func(*order.Tracking) *string,
	patch func(string) order.TrackingPatch,
) (*order.Tracking, error) {
	o, err := s.load(ctx, number, step, true)
	if err != nil {
		return nil, err
	}
	if *field(&o.Tracking) != "" {
		return &o.Tracking, nil
	}

	result, err := call(ctx, o.Tracking.ShipmentID)
	if err != nil {
		return nil, err
	}

	if err := s.orders.ApplyTracking(ctx, number, patch(result.URL)); err != nil {
		return nil, err
	}

	s.logger.Info("document generated",
		zap.String("order", number),
		zap.String("step", step),
		zap.String("url", result.URL),
	)
	*field(&o.Tracking) = result.URL
	return &o.Tracking, nil
}

// GenerateDocuments runs label, invoice and manifest generation
// concurrently. Each step stays independently gated and idempotent, so a
// single failing document does not undo the others.
func (s *Service) GenerateDocuments(ctx context.Context, number string) (*order.Tracking, error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := s.GenerateLabel(gctx, number)
		return err
	})
	g.Go(func() error {
		_, err := s.GenerateInvoice(gctx, number)
		return err
	})
	g.Go(func() error {
		_, err := s.GenerateManifest(gctx, number)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	o, err := s.orders.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	return &o.Tracking, nil
}

// Track proxies the carrier tracking lookup for an AWB.
func (s *Service) Track(ctx context.Context, awb string) (body shiprocket.Body, err error) {
	defer func(start time.Time) { s.observe("track", start, err) }(time.Now())
	return s.carrier.Track(ctx, awb)
}

// Serviceability proxies the carrier serviceability check.
func (s *Service) Serviceability(ctx context.Context, q shiprocket.ServiceabilityQuery) (body shiprocket.Body, err error) {
	defer func(start time.Time) { s.observe("serviceability", start, err) }(time.Now())
	return s.carrier.CheckServiceability(ctx, q)
}
