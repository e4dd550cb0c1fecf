package order

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/MikeMC777/mercado-ecom/internal/events"
	"github.com/MikeMC777/mercado-ecom/internal/payment"
)

// Outcomes reported in an Ack.
const (
	OutcomeApplied          = "applied"
	OutcomeReplayed         = "replayed"
	OutcomeUnknownReference = "unknown_reference"
	OutcomeRefused          = "refused"
	OutcomeIgnored          = "ignored"
)

var ErrReconcileFailed = errors.New("reconciliation failed")

type StatusWriter interface {
	TransitionStatus(ctx context.Context, id string, to Status) (Transition, error)
}

type Ack struct {
	Event     string
	Reference string
	Outcome   string
}

// Reconciler is the only writer of an order's terminal status.
type Reconciler struct {
	Ledger StatusWriter
	Secret []byte
	Events events.Publisher
}

func NewReconciler(ledger StatusWriter, secret string, pub events.Publisher) *Reconciler {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Reconciler{Ledger: ledger, Secret: []byte(secret), Events: pub}
}

// HandleNotification authenticates raw against signature before looking at it,
// then applies the payment outcome it carries. Errors wrap
// payment.ErrInvalidSignature, payment.ErrMalformedPayload or ErrReconcileFailed.
func (r *Reconciler) HandleNotification(ctx context.Context, raw []byte, signature string) (Ack, error) {
	if err := payment.VerifySignature(r.Secret, raw, signature); err != nil {
		return Ack{}, err
	}
	ev, err := payment.ParseEvent(raw)
	if err != nil {
		return Ack{}, err
	}

	var (
		ref    string
		amount int64
		to     Status
	)
	switch e := ev.(type) {
	case payment.ChargeSuccess:
		ref, amount, to = e.Reference, e.Amount, StatusPaid
	case payment.ChargeFailed:
		ref, amount, to = e.Reference, e.Amount, StatusFailed
	default:
		log.Printf("[webhook] event=%s ignored", ev.EventType())
		return Ack{Event: ev.EventType(), Outcome: OutcomeIgnored}, nil
	}
	ack := Ack{Event: ev.EventType(), Reference: ref}

	tr, err := r.Ledger.TransitionStatus(ctx, ref, to)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Printf("[webhook] event=%s ref=%s unknown reference, no-op", ack.Event, ref)
		ack.Outcome = OutcomeUnknownReference
		return ack, nil
	case errors.Is(err, ErrStatusConflict):
		log.Printf("[webhook] event=%s ref=%s refused: %v", ack.Event, ref, err)
		ack.Outcome = OutcomeRefused
		return ack, nil
	case err != nil:
		log.Printf("[webhook] event=%s ref=%s ledger error: %v", ack.Event, ref, err)
		return Ack{}, fmt.Errorf("%w: %v", ErrReconcileFailed, err)
	}

	if want := payment.ToMinor(tr.TotalAmount); amount != want {
		log.Printf("[webhook] event=%s ref=%s amount mismatch: got=%d want=%d", ack.Event, ref, amount, want)
	}
	if !tr.Applied {
		ack.Outcome = OutcomeReplayed
		return ack, nil
	}

	ack.Outcome = OutcomeApplied
	log.Printf("[webhook] event=%s ref=%s %s -> %s", ack.Event, ref, tr.From, tr.To)
	topic := events.TopicOrderPaid
	if to == StatusFailed {
		topic = events.TopicOrderFailed
	}
	if err := r.Events.Publish(ctx, topic, ref, events.OrderSettled{OrderID: ref, Status: string(to), AmountMinor: amount}); err != nil {
		log.Printf("[webhook] ref=%s publish %s: %v", ref, topic, err)
	}
	return ack, nil
}
