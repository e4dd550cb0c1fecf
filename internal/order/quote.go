package order

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity bounds one cart line; order_items.quantity is an INTEGER column.
const MaxLineQuantity = math.MaxInt32

// Quote is the validated, server-priced form of a cart.
type Quote struct {
	Total decimal.Decimal
	Items []Item
}

// ValidateLines rejects carts the store should never be asked about.
func ValidateLines(lines []CartLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	for i, l := range lines {
		if l.ProductID == "" {
			return fmt.Errorf("%w: items[%d].product_id is required", ErrValidation, i)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: items[%d].quantity must be positive", ErrValidation, i)
		}
		if l.Quantity > MaxLineQuantity {
			return fmt.Errorf("%w: items[%d].quantity is too large", ErrValidation, i)
		}
	}
	return nil
}

// PriceCart checks every line, in cart order, against the fresh stock levels and
// prices it with the fresh prices. It stops at the first failing line. Repeated
// lines for one product are checked against their combined quantity.
func PriceCart(supermarketID string, lines []CartLine, levels map[string]StockLevel) (Quote, error) {
	q := Quote{Total: decimal.Zero, Items: make([]Item, 0, len(lines))}
	requested := make(map[string]int, len(lines))
	for _, l := range lines {
		lvl, ok := levels[l.ProductID]
		if !ok || lvl.SupermarketID != supermarketID {
			return Quote{}, &ProductNotFoundError{ProductID: l.ProductID}
		}
		already := requested[l.ProductID]
		// compared as remaining stock so the running sum cannot wrap
		if l.Quantity > lvl.Stock-already {
			return Quote{}, &InsufficientStockError{
				ProductID:   lvl.ProductID,
				ProductName: lvl.Name,
				Requested:   saturatingAdd(already, l.Quantity),
				Available:   lvl.Stock,
			}
		}
		requested[l.ProductID] = already + l.Quantity
		it := Item{ProductID: l.ProductID, Quantity: l.Quantity, Price: lvl.Price}
		q.Items = append(q.Items, it)
		q.Total = q.Total.Add(it.Subtotal())
	}
	return q, nil
}

func saturatingAdd(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func productIDs(lines []CartLine) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			out = append(out, l.ProductID)
		}
	}
	return out
}
