package shiprocket

import (
	"context"
)

// APIClient defines the interface for Shiprocket API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// Login exchanges credentials for a bearer token
	Login(ctx context.Context, email, password string) (*LoginResponse, error)

	// CheckServiceability queries courier availability for a lane
	CheckServiceability(ctx context.Context, q ServiceabilityQuery) (Body, error)

	// CreateOrder creates an adhoc shipment order
	CreateOrder(ctx context.Context, req *OrderRequest) (Body, error)

	// AssignAWB requests an AWB for a shipment
	AssignAWB(ctx context.Context, shipmentID string) (Body, error)

	// GeneratePickup schedules a pickup for a shipment
	GeneratePickup(ctx context.Context, shipmentID string) (Body, error)

	// GenerateLabel generates the shipping label document
	GenerateLabel(ctx context.Context, shipmentID string) (Body, error)

	// PrintInvoice generates the invoice document for a shipment's order
	PrintInvoice(ctx context.Context, shipmentID string) (Body, error)

	// GenerateManifest generates the pickup manifest document
	GenerateManifest(ctx context.Context, shipmentID string) (Body, error)

	// TrackAWB retrieves tracking events for an AWB
	TrackAWB(ctx context.Context, awb string) (Body, error)
}

// Body is a raw decoded carrier response. The carrier is not consistent
// about where it nests result fields, so responses stay untyped until the
// adapter in response.go mines them.
type Body map[string]any

// ============================================================================
// API Request/Response Types (match Shiprocket external API v1 structure)
// ============================================================================

// LoginRequest is the credential payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the token grant returned by POST /auth/login.
type LoginResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Token     string `json:"token"`
}

// ServiceabilityQuery holds the parameters for the courier
// serviceability check on a pickup/delivery postcode lane.
type ServiceabilityQuery struct {
	PickupPostcode   string
	DeliveryPostcode string
	Weight           float64 // kg
	COD              bool
	DeclaredValue    float64
	Mode             string // "Surface" or "Air", optional
}

// OrderRequest is the adhoc order creation payload.
// POST /orders/create/adhoc
type OrderRequest struct {
	OrderID         string  `json:"order_id" validate:"required"`
	OrderDate       string  `json:"order_date" validate:"required"`
	PickupLocation  string  `json:"pickup_location" validate:"required"`
	ChannelID       string  `json:"channel_id,omitempty"`
	Comment         string  `json:"comment,omitempty"`
	BillingName     string  `json:"billing_customer_name" validate:"required"`
	BillingLastName string  `json:"billing_last_name"`
	BillingAddress  string  `json:"billing_address" validate:"required"`
	BillingAddress2 string  `json:"billing_address_2,omitempty"`
	BillingCity     string  `json:"billing_city" validate:"required"`
	BillingPincode  string  `json:"billing_pincode" validate:"required,len=6,number"`
	BillingState    string  `json:"billing_state" validate:"required"`
	BillingCountry  string  `json:"billing_country" validate:"required"`
	BillingEmail    string  `json:"billing_email,omitempty"`
	BillingPhone    string  `json:"billing_phone" validate:"required,len=10,number"`
	ShippingIsBill  bool    `json:"shipping_is_billing"`
	PaymentMethod   string  `json:"payment_method" validate:"required,oneof=COD Prepaid"`
	ShippingCharges float64 `json:"shipping_charges" validate:"gte=0"`
	GiftwrapCharges float64 `json:"giftwrap_charges" validate:"gte=0"`
	TransactionFee  float64 `json:"transaction_charges" validate:"gte=0"`
	TotalDiscount   float64 `json:"total_discount" validate:"gte=0"`
	SubTotal        float64 `json:"sub_total" validate:"gte=0"`
	DeclaredValue   float64 `json:"declared_value" validate:"gte=0"`
	Collectable     float64 `json:"collectable_amount" validate:"gte=0"`
	Length          float64 `json:"length" validate:"gt=0"`
	Breadth         float64 `json:"breadth" validate:"gt=0"`
	Height          float64 `json:"height" validate:"gt=0"`
	Weight          float64 `json:"weight" validate:"gt=0"`

	Items []OrderItem `json:"order_items" validate:"required,min=1,dive"`
}

// OrderItem is a single order line in the adhoc order payload.
type OrderItem struct {
	Name         string  `json:"name" validate:"required"`
	SKU          string  `json:"sku" validate:"required"`
	Units        int     `json:"units" validate:"gt=0"`
	SellingPrice float64 `json:"selling_price" validate:"gt=0"`
	Discount     float64 `json:"discount,omitempty"`
	Tax          float64 `json:"tax,omitempty"`
	HSN          string  `json:"hsn,omitempty"`
}

// ============================================================================
// Typed results mined from carrier responses (see response.go)
// ============================================================================

// CreateOrderResult is the mined outcome of an adhoc order creation.
type CreateOrderResult struct {
	OrderID    string
	ShipmentID string
	Status     string
}

// AWBResult is the mined outcome of an AWB assignment.
type AWBResult struct {
	AWBCode     string
	CourierName string
}

// PickupResult is the mined outcome of a pickup generation.
type PickupResult struct {
	Status        string
	ScheduledDate string
	TokenNumber   string
}

// DocumentResult is the mined outcome of a label, invoice or manifest
// generation. URL may be empty on a soft partial success where the carrier
// acknowledged the document but omitted the link.
type DocumentResult struct {
	Created bool
	URL     string
}
