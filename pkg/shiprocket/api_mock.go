package shiprocket

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
// Default responses mirror the nesting variants the real carrier produces,
// so code exercised against the mock also exercises the response adapter.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnLogin               func(ctx context.Context, email, password string) (*LoginResponse, error)
	OnCheckServiceability func(ctx context.Context, q ServiceabilityQuery) (Body, error)
	OnCreateOrder         func(ctx context.Context, req *OrderRequest) (Body, error)
	OnAssignAWB           func(ctx context.Context, shipmentID string) (Body, error)
	OnGeneratePickup      func(ctx context.Context, shipmentID string) (Body, error)
	OnGenerateLabel       func(ctx context.Context, shipmentID string) (Body, error)
	OnPrintInvoice        func(ctx context.Context, shipmentID string) (Body, error)
	OnGenerateManifest    func(ctx context.Context, shipmentID string) (Body, error)
	OnTrackAWB            func(ctx context.Context, awb string) (Body, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return &APIError{StatusCode: 500, Message: "Simulated API error"}
	}
	return nil
}

// Login returns a mock token grant.
func (m *MockAPIClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnLogin != nil {
		return m.OnLogin(ctx, email, password)
	}
	return &LoginResponse{
		ID:    7391,
		Email: email,
		Token: "mock-token-" + uuid.New().String(),
	}, nil
}

// CheckServiceability returns a mock courier list.
func (m *MockAPIClient) CheckServiceability(ctx context.Context, q ServiceabilityQuery) (Body, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCheckServiceability != nil {
		return m.OnCheckServiceability(ctx, q)
	}
	return Body{
		"status": float64(200),
		"data": map[string]any{
			"available_courier_companies": []any{
				map[string]any{
					"courier_company_id": float64(24),
					"courier_name":       "Bluedart Surface",
					"rate":               float64(78.5),
					"etd":                "3-5 days",
					"cod":                float64(1),
				},
				map[string]any{
					"courier_company_id": float64(51),
					"courier_name":       "Delhivery Air",
					"rate":               float64(112),
					"etd":                "1-2 days",
					"cod":                float64(1),
				},
			},
			"recommended_courier_company_id": float64(24),
		},
	}, nil
}

// CreateOrder returns a mock order creation, top-level variant.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (Body, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}
	return Body{
		"order_id":    float64(100000 + rand.Intn(899999)),
		"shipment_id": float64(200000 + rand.Intn(899999)),
		"status":      "NEW",
		"status_code": float64(1),
	}, nil
}

// AssignAWB returns a mock AWB grant, response.data variant.
func (m *MockAPIClient) AssignAWB(ctx context.Context, shipmentID string) (Body, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnAssignAWB != nil {
		return m.OnAssignAWB(ctx, shipmentID)
	}
	return Body{
		"awb_assign_status": float64(1),
		"response": map[string]any{
			"data": map[string]any{
				"awb_code":           fmt.Sprintf("7789%09d", rand.Intn(999999999)),
				"courier_company_id": float64(24),
				"courier_name":       "Bluedart Surface",
				"shipment_id":        shipmentID,
			},
		},
	}, nil
}

// GeneratePickup returns a mock pickup confirmation, response variant.
func (m *MockAPIClient) GeneratePickup(ctx context.Context, shipmentID string) (Body, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGeneratePickup != nil {
		return m.OnGeneratePickup(ctx, shipmentID)
	}
	return Body{
		"pickup_status": float64(1),
		"response": map[string]any{
			"pickup_scheduled_date": time.Now().AddDate(0, 0, 1).Format("2006-01-02 15:04:05"),
			"pickup_token_number":   "Reference No: " + uuid.New().String()[:13],
			"status":                float64(1),
		},
	}, nil
}

// GenerateLabel returns a mock label, top-level variant.
func (m *MockAPIClient) GenerateLabel(ctx context.Context, shipmentID string) (Body, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGenerateLabel != nil {
		return m.OnGenerateLabel(ctx, shipmentID)
	}
	return Body{
		"label_created": float64(1),
		"label_url":     "https://cdn.mock-carrier.test/labels/" + shipmentID + ".pdf",
		"response":      "Label generated successfully",
	}, nil
}

// PrintInvoice returns a mock invoice, top-level variant.
func (m *MockAPIClient) PrintInvoice(ctx context.Context, shipmentID string) (Body, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnPrintInvoice != nil {
		return m.OnPrintInvoice(ctx, shipmentID)
	}
	return Body{
		"is_invoice_created": true,
		"invoice_url":        "https://cdn.mock-carrier.test/invoices/" + shipmentID + ".pdf",
	}, nil
}

// GenerateManifest returns a mock manifest, nested data variant.
func (m *MockAPIClient) GenerateManifest(ctx context.Context, shipmentID string) (Body, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGenerateManifest != nil {
		return m.OnGenerateManifest(ctx, shipmentID)
	}
	return Body{
		"status": float64(1),
		"data": map[string]any{
			"manifest_url": "https://cdn.mock-carrier.test/manifests/" + shipmentID + ".pdf",
		},
	}, nil
}

// TrackAWB returns mock tracking data.
func (m *MockAPIClient) TrackAWB(ctx context.Context, awb string) (Body, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnTrackAWB != nil {
		return m.OnTrackAWB(ctx, awb)
	}
	return Body{
		"tracking_data": map[string]any{
			"track_status":    float64(1),
			"shipment_status": float64(7),
			"shipment_track": []any{
				map[string]any{
					"awb_code":       awb,
					"current_status": "In Transit",
					"origin":         "Mumbai",
					"destination":    "Bengaluru",
				},
			},
		},
	}, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
