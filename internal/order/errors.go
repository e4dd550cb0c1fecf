package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("order not found")
	ErrValidation             = errors.New("invalid checkout request")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrProductNotFound        = errors.New("product not found")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrOrderPersistenceFailed = errors.New("order persistence failed")
	ErrGatewayUnavailable     = errors.New("payment gateway unavailable")
	ErrUpstream               = errors.New("upstream failure")
	ErrCheckoutInProgress     = errors.New("checkout already in progress")
	ErrDuplicateCheckout      = errors.New("checkout already completed")
	ErrStatusConflict         = errors.New("status transition refused")
)

type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type ProductNotFoundError struct{ ProductID string }

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found in this supermarket", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrProductNotFound }

// DuplicateCheckoutError is returned when an idempotency key was already used for a committed order.
type DuplicateCheckoutError struct{ OrderID string }

func (e *DuplicateCheckoutError) Error() string {
	return fmt.Sprintf("checkout already completed as order %s", e.OrderID)
}

func (e *DuplicateCheckoutError) Is(target error) bool { return target == ErrDuplicateCheckout }

// GatewayUnavailableError means the order was committed but payment was not initiated.
// The order stays pending.
type GatewayUnavailableError struct {
	OrderID string
	Err     error
}

func (e *GatewayUnavailableError) Error() string {
	return fmt.Sprintf("order %s created but payment not initiated: %v", e.OrderID, e.Err)
}

func (e *GatewayUnavailableError) Unwrap() error { return e.Err }

func (e *GatewayUnavailableError) Is(target error) bool { return target == ErrGatewayUnavailable }
