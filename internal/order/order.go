// Package order holds the order record the shipping core reads from and
// the store port it writes tracking fields through. Order lifecycle beyond
// shipping is owned by upstream collaborators; the shipping core never
// transitions an order's status.
package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Status is the collaborator-owned order state.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Item is a single purchased line.
type Item struct {
	ProductID string
	Name      string
	SKU       string
	Price     float64
	Quantity  int
}

// Address is the shipping destination.
type Address struct {
	Name    string
	Phone   string
	Email   string
	Line1   string
	Line2   string
	City    string
	State   string
	Country string
	Pincode string
}

// Tracking holds the carrier fields the shipping core accretes one step at
// a time. Once set, a field is never cleared by the core.
type Tracking struct {
	ShipmentID        string
	AWBCode           string
	CourierName       string
	LabelURL          string
	InvoiceURL        string
	ManifestURL       string
	PickupRequestedAt *time.Time
}

// Record is a confirmed order as produced by the upstream checkout flow.
type Record struct {
	Number        string
	Status        Status
	PaymentMethod string // "cod" or a prepaid method name
	Tax           float64
	Shipping      float64
	Total         float64
	PlacedAt      time.Time
	Address       Address
	Items         []Item
	Tracking      Tracking
}

// IsCancelled reports whether the order was cancelled upstream.
func (r *Record) IsCancelled() bool {
	return r.Status == StatusCancelled
}

// IsCOD reports whether payment is collected on delivery.
func (r *Record) IsCOD() bool {
	return strings.EqualFold(r.PaymentMethod, "cod")
}

// TrackingPatch names the single tracking write of one fulfillment step.
// Nil fields are left untouched.
type TrackingPatch struct {
	ShipmentID        *string
	AWBCode           *string
	CourierName       *string
	LabelURL          *string
	InvoiceURL        *string
	ManifestURL       *string
	PickupRequestedAt *time.Time
}

// ErrNotFound indicates the order number is unknown.
var ErrNotFound = errors.New("order not found")

// Store is the collaborator port the shipping core reads orders through
// and writes tracking fields back through.
type Store interface {
	// Get returns the order by its number.
	Get(ctx context.Context, number string) (*Record, error)

	// ApplyTracking applies one tracking patch to the order. Set fields
	// overwrite, nil fields are ignored; nothing is ever cleared.
	ApplyTracking(ctx context.Context, number string, patch TrackingPatch) error
}

// MemoryStore is a map-backed Store for tests and default wiring. The real
// platform plugs its own persistence in behind the Store port.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Put inserts or replaces an order.
func (s *MemoryStore) Put(r *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[r.Number] = &cp
}

// Get returns a copy of the order by its number.
func (s *MemoryStore) Get(_ context.Context, number string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[number]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	cp.Items = append([]Item(nil), r.Items...)
	return &cp, nil
}

// ApplyTracking applies one tracking patch to the stored order.
func (s *MemoryStore) ApplyTracking(_ context.Context, number string, patch TrackingPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[number]
	if !ok {
		return ErrNotFound
	}
	t := &r.Tracking
	if patch.ShipmentID != nil {
		t.ShipmentID = *patch.ShipmentID
	}
	if patch.AWBCode != nil {
		t.AWBCode = *patch.AWBCode
	}
	if patch.CourierName != nil {
		t.CourierName = *patch.CourierName
	}
	if patch.LabelURL != nil {
		t.LabelURL = *patch.LabelURL
	}
	if patch.InvoiceURL != nil {
		t.InvoiceURL = *patch.InvoiceURL
	}
	if patch.ManifestURL != nil {
		t.ManifestURL = *patch.ManifestURL
	}
	if patch.PickupRequestedAt != nil {
		t.PickupRequestedAt = patch.PickupRequestedAt
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
