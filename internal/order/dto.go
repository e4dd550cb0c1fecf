package order

import "strings"

// CheckoutItem is one cart line as sent by the client.
// swagger:model CartItem
type CheckoutItem struct {
	ProductID string `json:"product_id" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	Quantity  int    `json:"quantity"  example:"2"`
}

// CheckoutRequest is the checkout payload. Any price or name the client sends
// alongside is ignored.
// swagger:model CheckoutRequest
type CheckoutRequest struct {
	Items []CheckoutItem `json:"items"`
}

func (r CheckoutRequest) Lines() []CartLine {
	out := make([]CartLine, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, CartLine{ProductID: strings.TrimSpace(it.ProductID), Quantity: it.Quantity})
	}
	return out
}

// swagger:model CheckoutResponse
type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	TotalAmount string `json:"total_amount"`
	RedirectURL string `json:"redirect_url,omitempty"`
	ClearCart   bool   `json:"clear_cart"`
	Error       string `json:"error,omitempty"`
}

// swagger:model PayInitRequest
type PayInitRequest struct {
	Email     string `json:"email"`
	Amount    string `json:"amount" example:"200.00"`
	Reference string `json:"reference"`
}

// OrderView is an order with its items.
type OrderView struct {
	Order
	Items []Item `json:"items"`
}
