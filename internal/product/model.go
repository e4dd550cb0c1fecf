package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string          `json:"id"`
	SupermarketID string          `json:"supermarket_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InStock reports whether qty units can currently be added to a cart.
func (p Product) InStock(qty int) bool { return qty > 0 && qty <= p.Stock }

// ListResponse represents the paginated response of products.
// swagger:model
type ListResponse struct {
	Q        string    `json:"q,omitempty"`
	Category string    `json:"category,omitempty"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
	Items    []Product `json:"items"`
}

// CreateProductRequest payload of creation.
// swagger:model CreateProductRequest
type CreateProductRequest struct {
	Name        string `json:"name"        example:"Whole Milk 1L"`
	Description string `json:"description" example:"Pasteurised"`
	Category    string `json:"category"    example:"dairy"`
	ImageURL    string `json:"image_url"   example:"https://cdn.example.com/milk.png"`
	Price       string `json:"price"       example:"2.49"`
	Stock       int    `json:"stock"       example:"40"`
}

// UpdateProductRequest payload of partial update. Omitted fields stay unchanged.
// swagger:model UpdateProductRequest
type UpdateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Price       *string `json:"price"`
	Stock       *int    `json:"stock"`
}
