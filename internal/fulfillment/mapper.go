// Package fulfillment drives a confirmed order through the carrier's
// fulfillment steps: payload mapping and validation, shipment creation,
// AWB assignment, pickup, documents and tracking.
package fulfillment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trovemart/commerce/internal/order"
	"github.com/trovemart/commerce/pkg/shiprocket"
)

const (
	// carrierDateLayout is the carrier's required local-timezone order
	// date form.
	carrierDateLayout = "2006-01-02 15:04"

	// baseUnitWeightKg is the per-unit weight assumption. Per-item physical
	// dimensions are not tracked in the catalog, so weight and dimensions
	// are estimates; a known limitation, not a bug.
	baseUnitWeightKg = 0.25

	defaultLengthCm  = 10
	defaultBreadthCm = 10
	defaultHeightCm  = 5
)

// carrierTZ is the carrier's local timezone for order dates.
var carrierTZ = func() *time.Location {
	if loc, err := time.LoadLocation("Asia/Kolkata"); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*3600+1800)
}()

// MapOrder projects an order record into the carrier's shipment-creation
// schema, deriving the monetary and package fields.
func MapOrder(o *order.Record, pickupLocation string) *shiprocket.OrderRequest {
	// Subtotal is always recomputed from the current line items; a stored
	// subtotal may be stale after partial cancellations or price edits.
	subTotal := decimal.Zero
	totalUnits := 0
	items := make([]shiprocket.OrderItem, len(o.Items))
	for i, it := range o.Items {
		price := decimal.NewFromFloat(it.Price)
		subTotal = subTotal.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		totalUnits += it.Quantity

		sku := strings.TrimSpace(it.SKU)
		if sku == "" {
			sku = "SKU-" + it.ProductID
		}

		// The carrier rejects zero-price lines; the subtotal itself is not
		// floored so it keeps reflecting true value.
		selling := it.Price
		if selling < 1 {
			selling = 1
		}

		items[i] = shiprocket.OrderItem{
			Name:         it.Name,
			SKU:          sku,
			Units:        it.Quantity,
			SellingPrice: selling,
		}
	}
	subTotal = subTotal.Round(2)

	total := decimal.NewFromFloat(o.Total)
	if total.LessThanOrEqual(decimal.Zero) {
		total = subTotal.
			Add(decimal.NewFromFloat(o.Tax)).
			Add(decimal.NewFromFloat(o.Shipping))
	}
	total = total.Round(2)

	paymentMethod := "Prepaid"
	collectable := decimal.Zero
	if o.IsCOD() {
		paymentMethod = "COD"
		collectable = total
	}

	weight := baseUnitWeightKg * float64(totalUnits)
	if weight < baseUnitWeightKg {
		weight = baseUnitWeightKg
	}

	first, last := splitName(o.Address.Name)

	orderDate := o.PlacedAt
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	return &shiprocket.OrderRequest{
		OrderID:         o.Number,
		OrderDate:       orderDate.In(carrierTZ).Format(carrierDateLayout),
		PickupLocation:  pickupLocation,
		BillingName:     first,
		BillingLastName: last,
		BillingAddress:  o.Address.Line1,
		BillingAddress2: o.Address.Line2,
		BillingCity:     o.Address.City,
		BillingPincode:  normalizePincode(o.Address.Pincode),
		BillingState:    o.Address.State,
		BillingCountry:  defaultIfBlank(o.Address.Country, "India"),
		BillingEmail:    o.Address.Email,
		BillingPhone:    normalizePhone(o.Address.Phone),
		ShippingIsBill:  true,
		PaymentMethod:   paymentMethod,
		ShippingCharges: o.Shipping,
		SubTotal:        subTotal.InexactFloat64(),
		DeclaredValue:   total.InexactFloat64(), // full insured value
		Collectable:     collectable.InexactFloat64(),
		Length:          defaultLengthCm,
		Breadth:         defaultBreadthCm,
		Height:          defaultHeightCm,
		Weight:          weight,
		Items:           items,
	}
}

// normalizePhone reduces a phone number to its last 10 digits, stripping a
// leading country-code prefix when the length indicates its presence.
func normalizePhone(raw string) string {
	digits := digitsOnly(raw)
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

// normalizePincode reduces a pincode to digits only.
func normalizePincode(raw string) string {
	return digitsOnly(raw)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitName splits a full name into first/last on the first whitespace
// boundary, defaulting to "Customer" when blank.
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "Customer", ""
	}
	if i := strings.IndexFunc(full, func(r rune) bool { return r == ' ' || r == '\t' }); i > 0 {
		return full[:i], strings.TrimSpace(full[i+1:])
	}
	return full, ""
}

func defaultIfBlank(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
