package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/trovemart/commerce/internal/fulfillment"
	"github.com/trovemart/commerce/internal/order"
	"github.com/trovemart/commerce/pkg/shiprocket"
)

// envelope is the uniform platform response shape.
type envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{OK: false, Error: msg})
}

// writeFailure maps the error taxonomy onto HTTP statuses. Nothing here is
// allowed to crash the process; every failure becomes an {ok:false} body.
func writeFailure(w http.ResponseWriter, err error) {
	var (
		valErr  *fulfillment.ValidationError
		preErr  *fulfillment.PreconditionError
		backoff *shiprocket.BackoffError
	)
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, fulfillment.ErrOrderCancelled):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &valErr), errors.As(err, &preErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &backoff):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, shiprocket.ErrMissingCredentials):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		// AuthError, APIError and transport failures are all carrier-side
		// from the storefront's point of view.
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// trackingDTO is the platform-facing projection of the tracking fields.
type trackingDTO struct {
	ShipmentID        string     `json:"shipmentId"`
	AWBCode           string     `json:"awbCode,omitempty"`
	CourierName       string     `json:"courierName,omitempty"`
	LabelURL          string     `json:"labelUrl,omitempty"`
	InvoiceURL        string     `json:"invoiceUrl,omitempty"`
	ManifestURL       string     `json:"manifestUrl,omitempty"`
	PickupRequestedAt *time.Time `json:"pickupRequestedAt,omitempty"`
}

func toTrackingDTO(t *order.Tracking) trackingDTO {
	return trackingDTO{
		ShipmentID:        t.ShipmentID,
		AWBCode:           t.AWBCode,
		CourierName:       t.CourierName,
		LabelURL:          t.LabelURL,
		InvoiceURL:        t.InvoiceURL,
		ManifestURL:       t.ManifestURL,
		PickupRequestedAt: t.PickupRequestedAt,
	}
}

// GET /api/v1/shipping/serviceability
func (s *Server) handleServiceability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	weight, _ := strconv.ParseFloat(q.Get("weight"), 64)
	declared, _ := strconv.ParseFloat(q.Get("declared_value"), 64)
	query := shiprocket.ServiceabilityQuery{
		PickupPostcode:   q.Get("pickup_postcode"),
		DeliveryPostcode: q.Get("delivery_postcode"),
		Weight:           weight,
		COD:              q.Get("cod") == "1" || q.Get("cod") == "true",
		DeclaredValue:    declared,
		Mode:             q.Get("mode"),
	}
	if query.PickupPostcode == "" || query.DeliveryPostcode == "" {
		writeError(w, http.StatusBadRequest, "pickup_postcode and delivery_postcode are required")
		return
	}

	body, err := s.fulfillment.Serviceability(r.Context(), query)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, body)
}

type stepFunc func(r *http.Request, orderID string) (*order.Tracking, error)

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, step stepFunc) {
	orderID := chi.URLParam(r, "id")
	tracking, err := step(r, orderID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, toTrackingDTO(tracking))
}

// POST /api/v1/order/{id}/shipment/create
func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	s.handleStep(w, r, func(r *http.Request, id string) (*order.Tracking, error) {
		return s.fulfillment.CreateShipment(r.Context(), id)
	})
}

// POST /api/v1/order/{id}/shipment/assign-awb
func (s *Server) handleAssignAWB(w http.ResponseWriter, r *http.Request) {
	s.handleStep(w, r, func(r *http.Request, id string) (*order.Tracking, error) {
		return s.fulfillment.AssignAWB(r.Context(), id)
	})
}

// POST /api/v1/order/{id}/shipment/pickup
func (s *Server) handlePickup(w http.ResponseWriter, r *http.Request) {
	s.handleStep(w, r, func(r *http.Request, id string) (*order.Tracking, error) {
		return s.fulfillment.RequestPickup(r.Context(), id)
	})
}

// POST /api/v1/order/{id}/shipment/label
func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	s.handleStep(w, r, func(r *http.Request, id string) (*order.Tracking, error) {
		return s.fulfillment.GenerateLabel(r.Context(), id)
	})
}

// POST /api/v1/order/{id}/shipment/invoice
func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	s.handleStep(w, r, func(r *http.Request, id string) (*order.Tracking, error) {
		return s.fulfillment.GenerateInvoice(r.Context(), id)
	})
}

// POST /api/v1/order/{id}/shipment/manifest
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	s.handleStep(w, r, func(r *http.Request, id string) (*order.Tracking, error) {
		return s.fulfillment.GenerateManifest(r.Context(), id)
	})
}

// POST /api/v1/order/{id}/shipment/documents
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	s.handleStep(w, r, func(r *http.Request, id string) (*order.Tracking, error) {
		return s.fulfillment.GenerateDocuments(r.Context(), id)
	})
}

// GET /api/v1/shipment/track/{awb}
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	awb := chi.URLParam(r, "awb")
	body, err := s.fulfillment.Track(r.Context(), awb)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, body)
}
