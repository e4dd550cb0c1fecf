package order

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/mercado-ecom/internal/events"
	"github.com/MikeMC777/mercado-ecom/internal/payment"
)

const webhookSecret = "sk_test_secret"

func notification(event, ref string, amount int64) ([]byte, string) {
	body := []byte(fmt.Sprintf(`{"event":%q,"data":{"reference":%q,"amount":%d,"status":"x"}}`, event, ref, amount))
	return body, payment.Sign([]byte(webhookSecret), body)
}

func placed(t *testing.T, store *memStore) string {
	t.Helper()
	o, _, err := store.PlaceOrder(context.Background(), PlaceOrderInput{
		SupermarketID: "s1", UserID: "u1", Lines: []CartLine{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)
	return o.ID
}

func TestReconciler_ChargeSuccessMarksPaidOnce(t *testing.T) {
	store := newMemStore(rice(5))
	id := placed(t, store)
	pub := &recordingPublisher{}
	rec := NewReconciler(store, webhookSecret, pub)

	body, sig := notification(payment.EventChargeSuccess, id, 20000)
	ack, err := rec.HandleNotification(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, ack.Outcome)
	assert.Equal(t, id, ack.Reference)

	ack, err = rec.HandleNotification(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplayed, ack.Outcome)

	o, _, _ := store.GetByID(context.Background(), id)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, []string{events.TopicOrderPaid}, pub.topics)
}

func TestReconciler_ChargeFailedThenLateSuccess(t *testing.T) {
	store := newMemStore(rice(5))
	id := placed(t, store)
	pub := &recordingPublisher{}
	rec := NewReconciler(store, webhookSecret, pub)
	ctx := context.Background()

	body, sig := notification(payment.EventChargeFailed, id, 20000)
	ack, err := rec.HandleNotification(ctx, body, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, ack.Outcome)
	o, _, _ := store.GetByID(ctx, id)
	assert.Equal(t, StatusFailed, o.Status)

	body, sig = notification(payment.EventChargeSuccess, id, 20000)
	ack, err = rec.HandleNotification(ctx, body, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, ack.Outcome)

	body, sig = notification(payment.EventChargeFailed, id, 20000)
	ack, err = rec.HandleNotification(ctx, body, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefused, ack.Outcome)

	o, _, _ = store.GetByID(ctx, id)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, []string{events.TopicOrderFailed, events.TopicOrderPaid}, pub.topics)
}

func TestReconciler_RejectsTamperedBodies(t *testing.T) {
	store := newMemStore(rice(5))
	id := placed(t, store)
	rec := NewReconciler(store, webhookSecret, nil)

	body, sig := notification(payment.EventChargeSuccess, id, 20000)
	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-3] ^= 0x01

	_, err := rec.HandleNotification(context.Background(), tampered, sig)
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	_, err = rec.HandleNotification(context.Background(), body, "")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)

	o, _, _ := store.GetByID(context.Background(), id)
	assert.Equal(t, StatusPending, o.Status)
}

func TestReconciler_UnknownReferenceAndIgnoredEvents(t *testing.T) {
	rec := NewReconciler(newMemStore(rice(5)), webhookSecret, nil)

	body, sig := notification(payment.EventChargeSuccess, "does-not-exist", 100)
	ack, err := rec.HandleNotification(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownReference, ack.Outcome)

	body, sig = notification("transfer.success", "x", 100)
	ack, err = rec.HandleNotification(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, ack.Outcome)
	assert.Equal(t, "transfer.success", ack.Event)
}

func TestReconciler_MalformedSignedPayload(t *testing.T) {
	rec := NewReconciler(newMemStore(), webhookSecret, nil)
	body := []byte(`{"event":"charge.success","data":{}}`)
	_, err := rec.HandleNotification(context.Background(), body, payment.Sign([]byte(webhookSecret), body))
	assert.ErrorIs(t, err, payment.ErrMalformedPayload)
}

type brokenLedger struct{}

func (brokenLedger) TransitionStatus(context.Context, string, Status) (Transition, error) {
	return Transition{}, errors.New("db down")
}

func TestReconciler_LedgerFailureIsRetryable(t *testing.T) {
	rec := NewReconciler(brokenLedger{}, webhookSecret, nil)
	body, sig := notification(payment.EventChargeSuccess, "o1", 100)
	_, err := rec.HandleNotification(context.Background(), body, sig)
	assert.ErrorIs(t, err, ErrReconcileFailed)
}
