package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "key_secret", pass)

		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(2500000), req.Amount)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Order{ID: "order_1", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"})
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "key_id", "key_secret")
	order, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 2500000, Currency: "INR", Receipt: "RCPT-1"})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, "created", order.Status)
}

func TestCreateOrderGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "k", "s").CreateOrder(context.Background(), OrderRequest{Amount: 1})
	var apiErr *ErrorResponse
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Err.Code)
}

func TestVerifyPayment(t *testing.T) {
	client := NewClient("https://gateway.example", "k", "secret")
	signature := Sign("secret", "order_1", "pay_1")

	assert.NoError(t, client.VerifyPayment(Confirmation{OrderID: "order_1", PaymentID: "pay_1", Signature: signature}))
	assert.ErrorIs(t, client.VerifyPayment(Confirmation{OrderID: "order_1", PaymentID: "pay_2", Signature: signature}), ErrSignatureMismatch)
}
