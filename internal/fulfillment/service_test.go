package fulfillment_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trovemart/commerce/internal/fulfillment"
	"github.com/trovemart/commerce/internal/order"
	"github.com/trovemart/commerce/internal/telemetry"
	"github.com/trovemart/commerce/pkg/shiprocket"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Prometheus collectors register globally, so all service tests share one
// Metrics instance.
var (
	metricsOnce sync.Once
	testMetrics *telemetry.Metrics
)

type fixture struct {
	store   *order.MemoryStore
	mock    *shiprocket.MockAPIClient
	service *fulfillment.Service

	carrierCalls int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	metricsOnce.Do(func() { testMetrics = telemetry.NewMetrics() })

	f := &fixture{
		store: order.NewMemoryStore(),
		mock:  shiprocket.NewMockAPIClient(),
	}

	// Count carrier round-trips while keeping the mock's default bodies.
	counting := &shiprocket.MockAPIClient{
		OnCreateOrder: func(ctx context.Context, req *shiprocket.OrderRequest) (shiprocket.Body, error) {
			atomic.AddInt64(&f.carrierCalls, 1)
			return f.mock.CreateOrder(ctx, req)
		},
		OnAssignAWB: func(ctx context.Context, shipmentID string) (shiprocket.Body, error) {
			atomic.AddInt64(&f.carrierCalls, 1)
			return f.mock.AssignAWB(ctx, shipmentID)
		},
		OnGeneratePickup: func(ctx context.Context, shipmentID string) (shiprocket.Body, error) {
			atomic.AddInt64(&f.carrierCalls, 1)
			return f.mock.GeneratePickup(ctx, shipmentID)
		},
		OnGenerateLabel: func(ctx context.Context, shipmentID string) (shiprocket.Body, error) {
			atomic.AddInt64(&f.carrierCalls, 1)
			return f.mock.GenerateLabel(ctx, shipmentID)
		},
		OnPrintInvoice: func(ctx context.Context, shipmentID string) (shiprocket.Body, error) {
			atomic.AddInt64(&f.carrierCalls, 1)
			return f.mock.PrintInvoice(ctx, shipmentID)
		},
		OnGenerateManifest: func(ctx context.Context, shipmentID string) (shiprocket.Body, error) {
			atomic.AddInt64(&f.carrierCalls, 1)
			return f.mock.GenerateManifest(ctx, shipmentID)
		},
	}

	logger := otelzap.New(zap.NewNop())
	carrier := shiprocket.NewWithAPIClient(shiprocket.Config{UseMock: true}, counting, logger, nil)
	f.service = fulfillment.NewService(f.store, carrier, "Primary", logger, testMetrics)
	return f
}

func (f *fixture) calls() int64 { return atomic.LoadInt64(&f.carrierCalls) }

func TestService_CreateShipment(t *testing.T) {
	f := newFixture(t)
	f.store.Put(sampleOrder())

	tracking, err := f.service.CreateShipment(context.Background(), "TM-1001")
	require.NoError(t, err)
	assert.NotEmpty(t, tracking.ShipmentID)

	stored, err := f.store.Get(context.Background(), "TM-1001")
	require.NoError(t, err)
	assert.Equal(t, tracking.ShipmentID, stored.Tracking.ShipmentID)
	assert.Empty(t, stored.Tracking.AWBCode, "creation writes the shipment id and nothing else")
}

func TestService_CreateShipment_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.store.Put(sampleOrder())

	first, err := f.service.CreateShipment(context.Background(), "TM-1001")
	require.NoError(t, err)
	again, err := f.service.CreateShipment(context.Background(), "TM-1001")
	require.NoError(t, err)

	assert.Equal(t, first.ShipmentID, again.ShipmentID)
	assert.Equal(t, int64(1), f.calls(), "an existing shipment short-circuits before the carrier")
}

func TestService_CreateShipment_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateShipment(context.Background(), "TM-MISSING")
	assert.ErrorIs(t, err, order.ErrNotFound)
	assert.Zero(t, f.calls())
}

func TestService_CreateShipment_CancelledOrder(t *testing.T) {
	f := newFixture(t)
	o := sampleOrder()
	o.Status = order.StatusCancelled
	f.store.Put(o)

	_, err := f.service.CreateShipment(context.Background(), "TM-1001")
	assert.ErrorIs(t, err, fulfillment.ErrOrderCancelled)
	assert.Zero(t, f.calls(), "cancelled orders never reach the carrier")
}

func TestService_CreateShipment_InvalidPayloadNeverSent(t *testing.T) {
	f := newFixture(t)
	o := sampleOrder()
	o.Address.Pincode = "40001" // five digits
	f.store.Put(o)

	_, err := f.service.CreateShipment(context.Background(), "TM-1001")
	require.Error(t, err)

	var verr *fulfillment.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Violations)
	assert.Zero(t, f.calls(), "invalid payloads are rejected before the carrier")
}

func TestService_AssignAWB_RequiresShipment(t *testing.T) {
	f := newFixture(t)
	f.store.Put(sampleOrder())

	_, err := f.service.AssignAWB(context.Background(), "TM-1001")
	require.Error(t, err)

	var perr *fulfillment.PreconditionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "shipmentId", perr.Missing)
	assert.Zero(t, f.calls())
}

func TestService_AssignAWB(t *testing.T) {
	f := newFixture(t)
	f.store.Put(sampleOrder())

	_, err := f.service.CreateShipment(context.Background(), "TM-1001")
	require.NoError(t, err)

	tracking, err := f.service.AssignAWB(context.Background(), "TM-1001")
	require.NoError(t, err)
	assert.NotEmpty(t, tracking.AWBCode)
	assert.NotEmpty(t, tracking.CourierName)

	// Re-running is a no-op once the AWB exists.
	before := f.calls()
	again, err := f.service.AssignAWB(context.Background(), "TM-1001")
	require.NoError(t, err)
	assert.Equal(t, tracking.AWBCode, again.AWBCode)
	assert.Equal(t, before, f.calls())
}

func TestService_RequestPickup(t *testing.T) {
	f := newFixture(t)
	f.store.Put(sampleOrder())

	_, err := f.service.CreateShipment(context.Background(), "TM-1001")
	require.NoError(t, err)

	tracking, err := f.service.RequestPickup(context.Background(), "TM-1001")
	require.NoError(t, err)
	require.NotNil(t, tracking.PickupRequestedAt)

	before := f.calls()
	again, err := f.service.RequestPickup(context.Background(), "TM-1001")
	require.NoError(t, err)
	assert.Equal(t, tracking.PickupRequestedAt, again.PickupRequestedAt)
	assert.Equal(t, before, f.calls())
}

func TestService_GenerateLabel_FailureLeavesEarlierFields(t *testing.T) {
	f := newFixture(t)
	f.store.Put(sampleOrder())

	_, err := f.service.CreateShipment(context.Background(), "TM-1001")
	require.NoError(t, err)
	_, err = f.service.AssignAWB(context.Background(), "TM-1001")
	require.NoError(t, err)

	f.mock.SimulateErrors = true
	_, err = f.service.GenerateLabel(context.Background(), "TM-1001")
	require.Error(t, err)

	stored, err := f.store.Get(context.Background(), "TM-1001")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Tracking.ShipmentID, "a failed step never rolls back earlier writes")
	assert.NotEmpty(t, stored.Tracking.AWBCode)
	assert.Empty(t, stored.Tracking.LabelURL)

	// The failed step itself stays retryable.
	f.mock.SimulateErrors = false
	tracking, err := f.service.GenerateLabel(context.Background(), "TM-1001")
	require.NoError(t, err)
	assert.NotEmpty(t, tracking.LabelURL)
}

func TestService_GenerateInvoice_SoftSuccessKeepsStepRetryable(t *testing.T) {
	f := newFixture(t)
	f.store.Put(sampleOrder())

	_, err := f.service.CreateShipment(context.Background(), "TM-1001")
	require.NoError(t, err)

	// Carrier acknowledged the invoice but returned no link.
	f.mock.OnPrintInvoice = func(ctx context.Context, shipmentID string) (shiprocket.Body, error) {
		return shiprocket.Body{"is_invoice_created": true}, nil
	}
	tracking, err := f.service.GenerateInvoice(context.Background(), "TM-1001")
	require.NoError(t, err)
	assert.Empty(t, tracking.InvoiceURL)

	// The empty URL means the step is not done; a retry may pick the
	// link up once the carrier returns it.
	f.mock.OnPrintInvoice = nil
	tracking, err = f.service.GenerateInvoice(context.Background(), "TM-1001")
	require.NoError(t, err)
	assert.NotEmpty(t, tracking.InvoiceURL)
}

func TestService_GenerateDocuments(t *testing.T) {
	f := newFixture(t)
	f.store.Put(sampleOrder())

	_, err := f.service.CreateShipment(context.Background(), "TM-1001")
	require.NoError(t, err)

	tracking, err := f.service.GenerateDocuments(context.Background(), "TM-1001")
	require.NoError(t, err)
	assert.NotEmpty(t, tracking.LabelURL)
	assert.NotEmpty(t, tracking.InvoiceURL)
	assert.NotEmpty(t, tracking.ManifestURL)
}

func TestService_Track(t *testing.T) {
	f := newFixture(t)

	body, err := f.service.Track(context.Background(), "141123221084922")
	require.NoError(t, err)
	assert.NotNil(t, body["tracking_data"])
}
