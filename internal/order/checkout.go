package order

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/mercado-ecom/internal/events"
	"github.com/MikeMC777/mercado-ecom/internal/idempotency"
	"github.com/MikeMC777/mercado-ecom/internal/payment"
)

type Buyer struct {
	ID    string
	Email string
}

// Identity resolves an authenticated user id into a buyer. It returns
// ErrAuthenticationRequired for ids the identity provider does not know.
type Identity interface {
	ResolveBuyer(ctx context.Context, userID string) (Buyer, error)
}

type Gateway interface {
	Initialize(ctx context.Context, in payment.InitRequest) (*payment.InitResult, error)
}

type Guard interface {
	Begin(ctx context.Context, key string) (string, error)
	Complete(ctx context.Context, key, orderID string) error
	Abort(ctx context.Context, key string) error
}

type CheckoutInput struct {
	SupermarketID  string
	UserID         string
	IdempotencyKey string
	Lines          []CartLine
}

type Receipt struct {
	Order       *Order
	Items       []Item
	RedirectURL string
	// ClearCart tells the client to drop its local cart: the order exists.
	ClearCart bool
}

type Service struct {
	Repo        Repository
	Identity    Identity
	Gateway     Gateway
	Guard       Guard
	Events      events.Publisher
	CallbackURL string
}

func NewService(repo Repository, id Identity, gw Gateway) *Service {
	return &Service{Repo: repo, Identity: id, Gateway: gw, Guard: idempotency.Off{}, Events: events.Discard{}}
}

// Checkout turns a client cart into a pending order and hands off to the payment
// gateway. Stock validation, order + items creation and stock decrement commit
// together; payment initiation happens after the commit and its failure leaves
// the order pending.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*Receipt, error) {
	if in.UserID == "" {
		return nil, ErrAuthenticationRequired
	}
	if in.SupermarketID == "" {
		return nil, fmt.Errorf("%w: supermarket id is required", ErrValidation)
	}
	if err := ValidateLines(in.Lines); err != nil {
		return nil, err
	}

	buyer, err := s.Identity.ResolveBuyer(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, ErrAuthenticationRequired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: resolve buyer: %v", ErrUpstream, err)
	}

	guardKey := ""
	if in.IdempotencyKey != "" {
		guardKey = idempotency.CheckoutKey(in.UserID, in.IdempotencyKey)
		prior, err := s.Guard.Begin(ctx, guardKey)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			return nil, ErrCheckoutInProgress
		case err != nil:
			log.Printf("[checkout] guard unavailable, continuing unguarded: %v", err)
			guardKey = ""
		case prior != "":
			return nil, &DuplicateCheckoutError{OrderID: prior}
		}
	}

	o, items, err := s.Repo.PlaceOrder(ctx, PlaceOrderInput{
		SupermarketID: in.SupermarketID,
		UserID:        buyer.ID,
		Lines:         in.Lines,
	})
	if err != nil {
		s.release(ctx, guardKey)
		switch {
		case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrProductNotFound), errors.Is(err, ErrValidation):
			return nil, err
		}
		log.Printf("[checkout] user=%s supermarket=%s persist error: %v", buyer.ID, in.SupermarketID, err)
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistenceFailed, err)
	}
	if guardKey != "" {
		if err := s.Guard.Complete(ctx, guardKey, o.ID); err != nil {
			log.Printf("[checkout] order=%s guard complete: %v", o.ID, err)
		}
	}
	s.publishCreated(ctx, o, items)

	receipt := &Receipt{Order: o, Items: items, ClearCart: true}

	res, err := s.Gateway.Initialize(ctx, payment.InitRequest{
		Email:       buyer.Email,
		Amount:      o.TotalAmount,
		Reference:   o.ID,
		CallbackURL: s.CallbackURL,
	})
	if err != nil {
		log.Printf("[checkout] order=%s left pending, payment init failed: %v", o.ID, err)
		return receipt, &GatewayUnavailableError{OrderID: o.ID, Err: err}
	}
	receipt.RedirectURL = res.AuthorizationURL
	log.Printf("[checkout] order=%s user=%s total=%s items=%d redirect ok", o.ID, buyer.ID, o.TotalAmount, len(items))
	return receipt, nil
}

func (s *Service) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Guard.Abort(ctx, key); err != nil {
		log.Printf("[checkout] guard abort key=%s: %v", key, err)
	}
}

func (s *Service) publishCreated(ctx context.Context, o *Order, items []Item) {
	lines := make([]events.OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, events.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price.String()})
	}
	ev := events.OrderCreated{
		OrderID:       o.ID,
		SupermarketID: o.SupermarketID,
		TotalAmount:   o.TotalAmount.String(),
		Items:         lines,
	}
	if o.UserID != nil {
		ev.UserID = *o.UserID
	}
	if err := s.Events.Publish(ctx, events.TopicOrderCreated, o.ID, ev); err != nil {
		log.Printf("[checkout] order=%s publish %s: %v", o.ID, events.TopicOrderCreated, err)
	}
}

// PaymentFor re-initiates payment for a pending order owned by userID. The
// amount the client echoes must match the stored total.
func (s *Service) PaymentFor(ctx context.Context, userID, email, reference string, amount decimal.Decimal) (*payment.InitResult, error) {
	o, _, err := s.Repo.GetByID(ctx, reference)
	if err != nil {
		return nil, err
	}
	if o.UserID == nil || *o.UserID != userID {
		return nil, ErrNotFound
	}
	if o.Status != StatusPending {
		return nil, fmt.Errorf("%w: order is %s", ErrValidation, o.Status)
	}
	if !o.TotalAmount.Equal(amount) {
		return nil, fmt.Errorf("%w: amount does not match order total", ErrValidation)
	}
	return s.Gateway.Initialize(ctx, payment.InitRequest{
		Email:       email,
		Amount:      o.TotalAmount,
		Reference:   o.ID,
		CallbackURL: s.CallbackURL,
	})
}
