package shiprocket

import (
	"fmt"
	"strconv"
)

// The carrier does not return result fields in one stable place: depending
// on the endpoint (and sometimes the account), the same field shows up at
// the top level, under a "response" wrapper, under a "data" wrapper, or
// under both. All known nesting variants are encoded here, once, instead of
// being re-probed at every call site.

// mine looks a key up across the known response-shape variants.
// Lookup order: top-level, "response", "data", "response.data".
func (b Body) mine(key string) (any, bool) {
	if v, ok := b[key]; ok && v != nil {
		return v, true
	}
	for _, wrapper := range []string{"response", "data"} {
		if inner, ok := b[wrapper].(map[string]any); ok {
			if v, ok := inner[key]; ok && v != nil {
				return v, true
			}
			if deep, ok := inner["data"].(map[string]any); ok {
				if v, ok := deep[key]; ok && v != nil {
					return v, true
				}
			}
		}
	}
	return nil, false
}

// mineString mines a key and renders it as a string. Numeric identifiers
// (the carrier flips between numbers and strings for ids) are formatted
// without an exponent or trailing zeros.
func (b Body) mineString(key string) (string, bool) {
	v, ok := b.mine(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// mineFlag mines a key and interprets it as a success flag. The carrier
// uses booleans, 0/1 numerics and "0"/"1" strings interchangeably.
func (b Body) mineFlag(key string) (bool, bool) {
	v, ok := b.mine(key)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case int:
		return t != 0, true
	case string:
		return t != "" && t != "0" && t != "false", true
	default:
		return false, false
	}
}

// mineMessage extracts a human-readable error message from a carrier body.
func (b Body) mineMessage() string {
	for _, key := range []string{"message", "error", "errors"} {
		if s, ok := b.mineString(key); ok {
			return s
		}
	}
	return ""
}

// parseCreateOrder mines the outcome of an adhoc order creation.
func parseCreateOrder(b Body) (*CreateOrderResult, error) {
	shipmentID, ok := b.mineString("shipment_id")
	if !ok {
		return nil, &APIError{Message: "carrier did not return a shipment_id", Body: b}
	}
	orderID, _ := b.mineString("order_id")
	status, _ := b.mineString("status")
	return &CreateOrderResult{
		OrderID:    orderID,
		ShipmentID: shipmentID,
		Status:     status,
	}, nil
}

// parseAWB mines the outcome of an AWB assignment.
func parseAWB(b Body) (*AWBResult, error) {
	awb, ok := b.mineString("awb_code")
	if !ok {
		return nil, &APIError{Message: "carrier did not return an awb_code", Body: b}
	}
	courier, _ := b.mineString("courier_name")
	return &AWBResult{AWBCode: awb, CourierName: courier}, nil
}

// parsePickup mines the outcome of a pickup generation.
func parsePickup(b Body) (*PickupResult, error) {
	status, okStatus := b.mineString("pickup_status")
	scheduled, okDate := b.mineString("pickup_scheduled_date")
	if !okStatus && !okDate {
		return nil, &APIError{Message: "carrier did not acknowledge the pickup request", Body: b}
	}
	token, _ := b.mineString("pickup_token_number")
	return &PickupResult{
		Status:        status,
		ScheduledDate: scheduled,
		TokenNumber:   token,
	}, nil
}

// parseDocument mines a label/invoice/manifest generation outcome.
// A set created flag with a missing URL is a soft partial success: the
// document exists carrier-side, the link just was not returned.
func parseDocument(b Body, createdKey, urlKey string) (*DocumentResult, error) {
	created, okCreated := b.mineFlag(createdKey)
	url, okURL := b.mineString(urlKey)
	if !okCreated && !okURL {
		return nil, &APIError{Message: "carrier did not acknowledge the document request", Body: b}
	}
	return &DocumentResult{
		Created: created || okURL,
		URL:     url,
	}, nil
}
