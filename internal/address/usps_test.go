package address

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uspsFixture struct {
	tokenRequests  atomic.Int32
	tokenStatus    int
	addressStatus  int
	addressPayload map[string]any
	lastAuthHeader string
	mu             sync.Mutex
}

func newUSPSServer(t *testing.T, fx *uspsFixture) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/v3/token", func(w http.ResponseWriter, r *http.Request) {
		fx.tokenRequests.Add(1)
		status := fx.tokenStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/addresses/v3/address", func(w http.ResponseWriter, r *http.Request) {
		fx.mu.Lock()
		fx.lastAuthHeader = r.Header.Get("Authorization")
		fx.mu.Unlock()
		status := fx.addressStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(fx.addressPayload)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *USPSClient {
	t.Helper()
	return NewUSPSClient(USPSConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      srv.URL,
	}, nil)
}

func dpvPayload(dpv string, addr map[string]any) map[string]any {
	return map[string]any{
		"address":               addr,
		"addressAdditionalInfo": map[string]any{"DPVConfirmation": dpv},
	}
}

var sampleRequest = Request{Street1: "123 Main Street", City: "New York", State: "NY", Zip5: "10001"}

func TestValidateDPVConfirmedUnchanged(t *testing.T) {
	fx := &uspsFixture{addressPayload: dpvPayload("Y", map[string]any{
		"streetAddress": "123 Main Street", "city": "New York", "state": "NY", "ZIPCode": "10001",
	})}
	client := newTestClient(t, newUSPSServer(t, fx))

	out := client.Validate(context.Background(), sampleRequest)

	require.Equal(t, StatusValid, out.Status)
	require.NotNil(t, out.Normalized)
	assert.Equal(t, "123 Main Street", out.Normalized.Street1)
	assert.True(t, out.Status.Deliverable())
}

func TestValidateIdempotentOnNormalizedAddress(t *testing.T) {
	normalized := map[string]any{
		"streetAddress": "123 MAIN ST", "city": "NEW YORK", "state": "NY", "ZIPCode": "10001",
	}
	fx := &uspsFixture{addressPayload: dpvPayload("Y", normalized)}
	client := newTestClient(t, newUSPSServer(t, fx))

	first := client.Validate(context.Background(), sampleRequest)
	require.Equal(t, StatusValidWithChanges, first.Status)

	// Re-validating the service's own normalization comes back VALID and unchanged.
	second := client.Validate(context.Background(), Request{
		Street1: first.Normalized.Street1,
		City:    first.Normalized.City,
		State:   first.Normalized.State,
		Zip5:    first.Normalized.Zip5,
	})
	require.Equal(t, StatusValid, second.Status)
	assert.Equal(t, first.Normalized, second.Normalized)
}

func TestValidateDPVStatuses(t *testing.T) {
	tests := []struct {
		dpv  string
		want Status
	}{
		{"S", StatusValidWithIssues},
		{"D", StatusValidWithIssues},
		{"N", StatusInvalid},
		{"X", StatusAmbiguous},
	}
	for _, tt := range tests {
		t.Run(tt.dpv, func(t *testing.T) {
			fx := &uspsFixture{addressPayload: dpvPayload(tt.dpv, map[string]any{
				"streetAddress": "123 Main Street", "city": "New York", "state": "NY", "ZIPCode": "10001",
			})}
			client := newTestClient(t, newUSPSServer(t, fx))

			out := client.Validate(context.Background(), sampleRequest)
			assert.Equal(t, tt.want, out.Status)
			assert.False(t, out.Status.Deliverable())
		})
	}
}

func TestValidateBadRequestMapsToInvalid(t *testing.T) {
	fx := &uspsFixture{addressStatus: http.StatusBadRequest, addressPayload: map[string]any{
		"errors": []map[string]any{{"message": "Address Not Found"}},
	}}
	client := newTestClient(t, newUSPSServer(t, fx))

	out := client.Validate(context.Background(), sampleRequest)
	require.Equal(t, StatusInvalid, out.Status)
	assert.Contains(t, out.Reason, "Address Not Found")
}

func TestValidateUnauthorizedDropsToken(t *testing.T) {
	fx := &uspsFixture{addressStatus: http.StatusUnauthorized, addressPayload: map[string]any{}}
	client := newTestClient(t, newUSPSServer(t, fx))

	out := client.Validate(context.Background(), sampleRequest)
	require.Equal(t, StatusAPIError, out.Status)
	require.Equal(t, int32(1), fx.tokenRequests.Load())

	// The cached token was dropped, so the next attempt re-authenticates.
	fx.addressStatus = http.StatusOK
	fx.addressPayload = dpvPayload("Y", map[string]any{"streetAddress": "123 Main Street"})
	_ = client.Validate(context.Background(), sampleRequest)
	assert.Equal(t, int32(2), fx.tokenRequests.Load())
}

func TestTokenCachedAcrossCalls(t *testing.T) {
	fx := &uspsFixture{addressPayload: dpvPayload("Y", map[string]any{"streetAddress": "123 Main Street"})}
	client := newTestClient(t, newUSPSServer(t, fx))

	for i := 0; i < 3; i++ {
		client.Validate(context.Background(), sampleRequest)
	}
	assert.Equal(t, int32(1), fx.tokenRequests.Load())
	fx.mu.Lock()
	defer fx.mu.Unlock()
	assert.Equal(t, "Bearer tok-1", fx.lastAuthHeader)
}

func TestConcurrentFirstUseSingleRefresh(t *testing.T) {
	fx := &uspsFixture{addressPayload: dpvPayload("Y", map[string]any{"streetAddress": "123 Main Street"})}
	client := newTestClient(t, newUSPSServer(t, fx))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.Validate(context.Background(), sampleRequest)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), fx.tokenRequests.Load())
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewUSPSClient(USPSConfig{}, nil).Configured())
	assert.True(t, NewUSPSClient(USPSConfig{ClientID: "a", ClientSecret: "b"}, nil).Configured())
}
