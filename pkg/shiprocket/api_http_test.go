package shiprocket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trovemart/commerce/pkg/shiprocket"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type carrierStub struct {
	t *testing.T

	logins     int64
	orderCalls int64

	// rejectFirst counts how many business calls to answer with a 401
	// before switching to success.
	rejectFirst int64
}

func (s *carrierStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&s.logins, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-issue-" + string(rune('0'+n)) + "-abcdef",
		})
	})
	mux.HandleFunc("/orders/create/adhoc", func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(s.t, r.Header.Get("Authorization"), "business calls must carry a token")
		n := atomic.AddInt64(&s.orderCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		if n <= atomic.LoadInt64(&s.rejectFirst) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"message": "Token expired"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"order_id":    778899,
			"shipment_id": 401234567,
			"status":      "NEW",
		})
	})
	return mux
}

func newTestHTTPClient(t *testing.T, baseURL string) *shiprocket.HTTPAPIClient {
	t.Helper()
	return shiprocket.NewHTTPAPIClient(shiprocket.HTTPAPIClientConfig{
		BaseURL:  baseURL,
		Email:    "ops@trovemart.example",
		Password: "secret-password",
	}, otelzap.New(zap.NewNop()))
}

func TestHTTPAPIClient_Login(t *testing.T) {
	stub := &carrierStub{t: t}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := newTestHTTPClient(t, srv.URL)
	grant, err := client.Login(context.Background(), "ops@trovemart.example", "secret-password")
	require.NoError(t, err)
	assert.NotEmpty(t, grant.Token)
}

func TestHTTPAPIClient_Login_MissingCredentials(t *testing.T) {
	client := newTestHTTPClient(t, "http://127.0.0.1:0")
	_, err := client.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, shiprocket.ErrMissingCredentials)
}

func TestHTTPAPIClient_RetriesOnceAfterTokenRejection(t *testing.T) {
	stub := &carrierStub{t: t, rejectFirst: 1}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := newTestHTTPClient(t, srv.URL)
	body, err := client.CreateOrder(context.Background(), &shiprocket.OrderRequest{})
	require.NoError(t, err)
	assert.NotNil(t, body["shipment_id"])

	assert.Equal(t, int64(2), atomic.LoadInt64(&stub.orderCalls), "rejected call retried exactly once")
	assert.Equal(t, int64(2), atomic.LoadInt64(&stub.logins), "initial login plus one forced re-auth")
}

func TestHTTPAPIClient_SecondRejectionSurfaces(t *testing.T) {
	stub := &carrierStub{t: t, rejectFirst: 100}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := newTestHTTPClient(t, srv.URL)
	_, err := client.CreateOrder(context.Background(), &shiprocket.OrderRequest{})
	require.Error(t, err)
	assert.True(t, shiprocket.IsAuth(err))
	assert.ErrorIs(t, err, shiprocket.ErrTokenRejected)

	// Bounded: never a third business attempt.
	assert.Equal(t, int64(2), atomic.LoadInt64(&stub.orderCalls))
}

func TestHTTPAPIClient_LockoutDuringLoginSurfacesFromBusinessCall(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "Too many failed login attempts. Please try again after 30 minutes.",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// The lockout must stay detectable through the client's own token
	// refresh, not only when Login is called directly.
	client := newTestHTTPClient(t, srv.URL)
	_, err := client.CreateOrder(context.Background(), &shiprocket.OrderRequest{})
	require.Error(t, err)
	assert.True(t, shiprocket.IsLockout(err))
}

func TestHTTPAPIClient_LockoutMessageOnBusinessCall(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "tok-abcdef123456"})
	})
	mux.HandleFunc("/courier/assign/awb", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "Too many failed login attempts. Please try again after 30 minutes.",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestHTTPClient(t, srv.URL)
	_, err := client.AssignAWB(context.Background(), "401234567")
	require.Error(t, err)
	assert.True(t, shiprocket.IsLockout(err), "lockout text on a 400 must map to the lockout condition")
}

func TestHTTPAPIClient_CarrierErrorCarriesStatusAndMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "tok-abcdef123456"})
	})
	mux.HandleFunc("/orders/create/adhoc", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"message": "Invalid pickup location"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestHTTPClient(t, srv.URL)
	_, err := client.CreateOrder(context.Background(), &shiprocket.OrderRequest{})
	require.Error(t, err)

	var apiErr *shiprocket.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "Invalid pickup location", apiErr.Message)
}

func TestHTTPAPIClient_TransportErrorIsDistinct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "tok-abcdef123456"})
	}))
	srv.Close() // unreachable from here on

	client := newTestHTTPClient(t, srv.URL)
	_, err := client.TrackAWB(context.Background(), "141123221084922")
	require.Error(t, err)
	assert.True(t, shiprocket.IsTransport(err))
	assert.False(t, shiprocket.IsAuth(err))
}

func TestHTTPAPIClient_NonJSONErrorBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "tok-abcdef123456"})
	})
	mux.HandleFunc("/manifests/generate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream timeout"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestHTTPClient(t, srv.URL)
	_, err := client.GenerateManifest(context.Background(), "401234567")
	require.Error(t, err)

	var apiErr *shiprocket.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream timeout", apiErr.Message)
}
