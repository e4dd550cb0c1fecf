package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed:
		return true
	}
	return false
}

// A captured payment is never downgraded; a later capture may override an earlier failure.
var validNext = map[Status]map[Status]bool{
	StatusPending: {StatusPaid: true, StatusFailed: true},
	StatusFailed:  {StatusPaid: true},
	StatusPaid:    {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

type Order struct {
	ID            string          `json:"id"`
	SupermarketID string          `json:"supermarket_id"`
	UserID        *string         `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Item struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"` // unit price captured at purchase time
}

func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// CartLine is the only part of a client cart the server trusts: which product and how many.
type CartLine struct {
	ProductID string
	Quantity  int
}

// StockLevel is the live inventory row read at checkout.
type StockLevel struct {
	ProductID     string
	SupermarketID string
	Name          string
	Price         decimal.Decimal
	Stock         int
}

// Transition reports what a status write did.
type Transition struct {
	OrderID     string
	From        Status
	To          Status
	Applied     bool
	TotalAmount decimal.Decimal
}
