package fulfillment_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trovemart/commerce/internal/fulfillment"
)

func TestValidatePayload_MappedOrderPasses(t *testing.T) {
	p := fulfillment.MapOrder(sampleOrder(), "Primary")
	assert.Empty(t, fulfillment.ValidatePayload(p), "a freshly mapped order must validate clean")
}

func TestValidatePayload_CollectsEveryViolation(t *testing.T) {
	p := fulfillment.MapOrder(sampleOrder(), "Primary")
	p.BillingPincode = "40001"       // five digits
	p.BillingPhone = "98765xx43210"  // non-numeric
	p.PaymentMethod = "CASH"         // unknown method
	p.Items[0].SellingPrice = 0

	violations := fulfillment.ValidatePayload(p)
	require.GreaterOrEqual(t, len(violations), 4, "all violations are reported, not just the first: %v", violations)

	joined := ""
	for _, v := range violations {
		joined += v + "\n"
	}
	assert.Contains(t, joined, "billing_pincode")
	assert.Contains(t, joined, "billing_phone")
	assert.Contains(t, joined, "payment_method")
	assert.Contains(t, joined, "order_items[0]")
}

func TestValidatePayload_RejectsSignedAndDecimalDigits(t *testing.T) {
	// Six characters is not six digits: signs and decimal points must not
	// slip through the length check.
	p := fulfillment.MapOrder(sampleOrder(), "Primary")
	p.BillingPincode = "-12345"
	p.BillingPhone = "1234.56789"

	violations := fulfillment.ValidatePayload(p)
	require.Len(t, violations, 2)
	joined := violations[0] + "\n" + violations[1]
	assert.Contains(t, joined, "billing_pincode must contain digits only")
	assert.Contains(t, joined, "billing_phone must contain digits only")
}

func TestValidatePayload_CODNeedsCollectable(t *testing.T) {
	p := fulfillment.MapOrder(sampleOrder(), "Primary")
	p.Collectable = 0

	violations := fulfillment.ValidatePayload(p)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "collectable_amount")
}

func TestValidatePayload_PrepaidRejectsCollectable(t *testing.T) {
	o := sampleOrder()
	o.PaymentMethod = "card"
	p := fulfillment.MapOrder(o, "Primary")
	p.Collectable = 50

	violations := fulfillment.ValidatePayload(p)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "collectable_amount")
}

func TestValidatePayload_RejectsNonFiniteNumbers(t *testing.T) {
	p := fulfillment.MapOrder(sampleOrder(), "Primary")
	p.Weight = math.NaN()
	p.SubTotal = math.Inf(1)
	p.DeclaredValue = math.Inf(1)
	p.Collectable = math.Inf(1)

	violations := fulfillment.ValidatePayload(p)
	assert.GreaterOrEqual(t, len(violations), 2)
	joined := ""
	for _, v := range violations {
		joined += v + "\n"
	}
	assert.Contains(t, joined, "weight must be a finite number")
	assert.Contains(t, joined, "sub_total must be a finite number")
}

func TestValidatePayload_RequiresItems(t *testing.T) {
	p := fulfillment.MapOrder(sampleOrder(), "Primary")
	p.Items = nil

	violations := fulfillment.ValidatePayload(p)
	require.NotEmpty(t, violations)
	joined := ""
	for _, v := range violations {
		joined += v + "\n"
	}
	assert.Contains(t, joined, "order_items")
}
