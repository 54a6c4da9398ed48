package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mpesaTestConfig() MpesaConfig {
	return MpesaConfig{
		ConsumerKey:       "key",
		ConsumerSecret:    "secret",
		BusinessShortCode: "174379",
		Passkey:           "passkey",
		CallbackURL:       "https://example.com/api/mpesa/callback",
		TokenMargin:       time.Minute,
	}
}

func fakeDaraja(t *testing.T, tokenCalls *int, pushHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/oauth/v1/generate"):
			if tokenCalls != nil {
				*tokenCalls++
			}
			expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
			require.Equal(t, expected, r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok_1", "expires_in": "3599"})
		case r.URL.Path == "/mpesa/stkpush/v1/processrequest":
			pushHandler(w, r)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestMpesaInitiatePush(t *testing.T) {
	var gotPush stkPushRequest
	tokenCalls := 0
	server := fakeDaraja(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok_1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPush))
		json.NewEncoder(w).Encode(map[string]string{
			"MerchantRequestID": "mr_1",
			"CheckoutRequestID": "ws_CO_1",
			"ResponseCode":      "0",
		})
	})
	defer server.Close()

	repo := newFakePaymentsRepo()
	g := NewMpesaGateway(mpesaTestConfig(), repo, nil).WithBaseURL(server.URL)

	push, err := g.InitiatePush(context.Background(), 9, 4, "254712345678", 2500.50, "APT-9", "Appointment with Dr. Achieng - Cardiology")
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_1", push.CheckoutRequestID)
	assert.Equal(t, "mr_1", push.MerchantRequestID)

	// fractional shillings round up
	assert.Equal(t, int64(2501), gotPush.Amount)
	assert.Equal(t, "254712345678", gotPush.PhoneNumber)
	assert.Equal(t, "174379", gotPush.BusinessShortCode)
	assert.Equal(t, "CustomerPayBillOnline", gotPush.TransactionType)
	assert.Equal(t, "APT-9", gotPush.AccountReference)

	// password is base64(shortcode + passkey + timestamp)
	decoded, err := base64.StdEncoding.DecodeString(gotPush.Password)
	require.NoError(t, err)
	assert.Equal(t, "174379passkey"+gotPush.Timestamp, string(decoded))
	assert.Len(t, gotPush.Timestamp, 14)

	require.Len(t, repo.mpesaCreated, 1)
	assert.Equal(t, "ws_CO_1", repo.mpesaCreated[0].CheckoutRequestID)
	assert.Equal(t, 2500.50, repo.mpesaCreated[0].Amount)
}

func TestMpesaTokenCachedAcrossCalls(t *testing.T) {
	tokenCalls := 0
	server := fakeDaraja(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"CheckoutRequestID": "ws_CO_1",
			"ResponseCode":      "0",
		})
	})
	defer server.Close()

	g := NewMpesaGateway(mpesaTestConfig(), newFakePaymentsRepo(), nil).WithBaseURL(server.URL)

	for i := 0; i < 3; i++ {
		_, err := g.InitiatePush(context.Background(), 9, 4, "254712345678", 100, "APT-9", "d")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, tokenCalls)
}

func TestMpesaInitiatePushRejected(t *testing.T) {
	server := fakeDaraja(t, nil, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"ResponseCode":        "1",
			"ResponseDescription": "invalid shortcode",
		})
	})
	defer server.Close()

	g := NewMpesaGateway(mpesaTestConfig(), newFakePaymentsRepo(), nil).WithBaseURL(server.URL)
	_, err := g.InitiatePush(context.Background(), 9, 4, "254712345678", 100, "APT-9", "d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid shortcode")
}

func TestMpesaNotConfigured(t *testing.T) {
	g := NewMpesaGateway(MpesaConfig{}, newFakePaymentsRepo(), nil)
	_, err := g.InitiatePush(context.Background(), 9, 4, "254712345678", 100, "APT-9", "d")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = g.QueryStatus(context.Background(), "ws_CO_1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMpesaQueryStatus(t *testing.T) {
	resultCode := "0"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/oauth/v1/generate") {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok_1", "expires_in": "3599"})
			return
		}
		require.Equal(t, "/mpesa/stkpushquery/v1/query", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"ResponseCode": "0",
			"ResultCode":   resultCode,
			"ResultDesc":   "The service request is processed successfully.",
		})
	}))
	defer server.Close()

	g := NewMpesaGateway(mpesaTestConfig(), newFakePaymentsRepo(), nil).WithBaseURL(server.URL)

	res, err := g.QueryStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.True(t, res.Settled)
	assert.False(t, res.Failed)

	resultCode = "1032"
	res, err = g.QueryStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.False(t, res.Settled)
	assert.True(t, res.Failed)
}
