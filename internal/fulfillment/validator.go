package fulfillment

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/trovemart/commerce/pkg/shiprocket"
)

// ValidationError reports every payload invariant violated, not just the
// first, so callers can surface all of them in one pass. A payload that
// fails validation is never sent to the carrier.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("shipment payload invalid: %s", strings.Join(e.Violations, "; "))
}

// payloadValidator collects all struct-tag violations instead of stopping
// at the first, which is exactly the reporting contract we need.
var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New()
	// Report violations under the carrier's wire field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidatePayload checks a mapped payload against the structural, format,
// numeric and business-rule invariants. An empty result means the payload
// is accepted.
func ValidatePayload(p *shiprocket.OrderRequest) []string {
	var violations []string

	if err := payloadValidator.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				violations = append(violations, describeViolation(fe))
			}
		} else {
			violations = append(violations, err.Error())
		}
	}

	// Struct tags cannot express finiteness; NaN and infinities would
	// otherwise survive into the JSON encoder.
	for name, val := range map[string]float64{
		"sub_total":          p.SubTotal,
		"declared_value":     p.DeclaredValue,
		"collectable_amount": p.Collectable,
		"length":             p.Length,
		"breadth":            p.Breadth,
		"height":             p.Height,
		"weight":             p.Weight,
	} {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			violations = append(violations, fmt.Sprintf("%s must be a finite number", name))
		}
	}

	// collectable_amount > 0 must hold exactly for COD payloads.
	switch p.PaymentMethod {
	case "COD":
		if p.Collectable <= 0 {
			violations = append(violations, "collectable_amount must be greater than zero for COD orders")
		}
	case "Prepaid":
		if p.Collectable > 0 {
			violations = append(violations, "collectable_amount must be zero for Prepaid orders")
		}
	}

	return violations
}

// describeViolation renders one field error as a human-readable violation.
func describeViolation(fe validator.FieldError) string {
	field := trimNamespace(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "number", "numeric":
		return fmt.Sprintf("%s must contain digits only", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entry", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// trimNamespace drops the root struct name from a violation namespace, so
// "OrderRequest.order_items[0].sku" reads "order_items[0].sku".
func trimNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
