package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinor(t *testing.T) {
	assert.Equal(t, int64(20000), ToMinor(decimal.NewFromInt(200)))
	assert.Equal(t, int64(1999), ToMinor(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1), ToMinor(decimal.RequireFromString("0.005")))
	assert.True(t, FromMinor(20000).Equal(decimal.NewFromInt(200)))
}

func TestInitialize_SendsMinorUnitsAndReturnsURL(t *testing.T) {
	var got initPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.example/abc","access_code":"abc","reference":"o1"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test")
	res, err := c.Initialize(context.Background(), InitRequest{Email: "a@b.c", Amount: decimal.NewFromInt(200), Reference: "o1"})
	require.NoError(t, err)

	assert.Equal(t, int64(20000), got.Amount)
	assert.Equal(t, "o1", got.Reference)
	assert.Equal(t, "https://checkout.example/abc", res.AuthorizationURL)
	assert.JSONEq(t, `{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.example/abc","access_code":"abc","reference":"o1"}}`, string(res.Raw))
}

func TestInitialize_ProviderErrorPropagatesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Duplicate Transaction Reference"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk").Initialize(context.Background(), InitRequest{Email: "a@b.c", Amount: decimal.NewFromInt(1), Reference: "o1"})
	var gerr *GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusBadRequest, gerr.StatusCode)
	assert.Equal(t, "Duplicate Transaction Reference", gerr.Message)
	assert.Contains(t, string(gerr.Body), "Duplicate")
}

func TestInitialize_NetworkFailureAndValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "sk").Initialize(context.Background(), InitRequest{Email: "a@b.c", Amount: decimal.NewFromInt(1), Reference: "o1"})
	assert.ErrorIs(t, err, ErrGatewayUnreachable)

	_, err = NewClient(url, "sk").Initialize(context.Background(), InitRequest{Email: "a@b.c", Amount: decimal.Zero, Reference: "o1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestVerifySignature(t *testing.T) {
	secret := []byte("whsec")
	body := []byte(`{"event":"charge.success","data":{"reference":"o1","amount":20000}}`)
	sig := Sign(secret, body)

	require.NoError(t, VerifySignature(secret, body, sig))
	assert.ErrorIs(t, VerifySignature(secret, body, ""), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(secret, body, "zz"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(nil, body, sig), ErrInvalidSignature)

	for i := range body {
		tampered := append([]byte(nil), body...)
		tampered[i] ^= 0x01
		assert.ErrorIs(t, VerifySignature(secret, tampered, sig), ErrInvalidSignature, "byte %d", i)
	}
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"event":"charge.success","data":{"reference":"o1","amount":20000}}`))
	require.NoError(t, err)
	assert.Equal(t, ChargeSuccess{Reference: "o1", Amount: 20000}, ev)

	ev, err = ParseEvent([]byte(`{"event":"charge.failed","data":{"reference":"o1","amount":20000}}`))
	require.NoError(t, err)
	assert.Equal(t, ChargeFailed{Reference: "o1", Amount: 20000}, ev)

	ev, err = ParseEvent([]byte(`{"event":"transfer.success","data":{"whatever":true}}`))
	require.NoError(t, err)
	assert.Equal(t, UnrecognizedEvent{Type: "transfer.success"}, ev)

	for _, raw := range []string{
		`not json`,
		`{"data":{"reference":"o1"}}`,
		`{"event":"charge.success"}`,
		`{"event":"charge.success","data":{"amount":1}}`,
		`{"event":"charge.success","data":{"reference":"o1","amount":"lots"}}`,
		`{"event":"charge.failed","data":{"reference":"o1","amount":-5}}`,
	} {
		_, err := ParseEvent([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedPayload, raw)
	}
}
