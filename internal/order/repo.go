package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/mercado-ecom/internal/postgres"
)

type PlaceOrderInput struct {
	SupermarketID string
	UserID        string
	Lines         []CartLine
}

type Repository interface {
	// PlaceOrder validates the cart against live stock, creates the pending order
	// with its items and decrements stock, all in one transaction.
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, []Item, error)
	GetByID(ctx context.Context, id string) (*Order, []Item, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	ListBySupermarket(ctx context.Context, supermarketID string, status Status, limit, offset int) ([]Order, error)
	TransitionStatus(ctx context.Context, id string, to Status) (Transition, error)
	ClearHistory(ctx context.Context, userID string) (int64, error)
}

type PGRepo struct{ db postgres.DB }

func NewPGRepo(db postgres.DB) *PGRepo { return &PGRepo{db: db} }

const orderColumns = `id, supermarket_id, user_id, total_amount::text, status, created_at, updated_at`

func parseMoney(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad %s %q: %w", field, s, err)
	}
	return d, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o             Order
		total, status string
	)
	if err := row.Scan(&o.ID, &o.SupermarketID, &o.UserID, &total, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	d, err := parseMoney("total_amount", total)
	if err != nil {
		return nil, err
	}
	o.TotalAmount = d
	return &o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (r *PGRepo) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, []Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := ValidateLines(in.Lines); err != nil {
		return nil, nil, err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1. one batched read, rows locked in id order
	levels, err := lockStock(ctx, tx, productIDs(in.Lines))
	if err != nil {
		return nil, nil, err
	}

	// 2-3. all-or-nothing validation, total from fresh prices
	quote, err := PriceCart(in.SupermarketID, in.Lines, levels)
	if err != nil {
		return nil, nil, err
	}

	// 4. pending order
	o := &Order{
		ID:            uuid.NewString(),
		SupermarketID: in.SupermarketID,
		UserID:        nullable(in.UserID),
		TotalAmount:   quote.Total,
		Status:        StatusPending,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO orders (id, supermarket_id, user_id, total_amount, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4::numeric,$5,NOW(),NOW())
		RETURNING created_at
	`, o.ID, o.SupermarketID, o.UserID, o.TotalAmount.String(), string(o.Status)).Scan(&o.CreatedAt); err != nil {
		return nil, nil, fmt.Errorf("insert order: %w", err)
	}
	o.UpdatedAt = o.CreatedAt

	// 5. items with captured unit price
	items := quote.Items
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].OrderID = o.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES ($1,$2,$3,$4,$5::numeric)
		`, items[i].ID, o.ID, items[i].ProductID, items[i].Quantity, items[i].Price.String()); err != nil {
			return nil, nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	// 6. conditional decrement; zero rows means stock moved under us
	for _, it := range items {
		tag, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = NOW()
			WHERE id = $1 AND stock >= $2
		`, it.ProductID, it.Quantity)
		if err != nil {
			return nil, nil, fmt.Errorf("decrement stock: %w", err)
		}
		if tag.RowsAffected() != 1 {
			lvl := levels[it.ProductID]
			return nil, nil, &InsufficientStockError{
				ProductID: it.ProductID, ProductName: lvl.Name, Requested: it.Quantity, Available: lvl.Stock,
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return o, items, nil
}

func lockStock(ctx context.Context, tx pgx.Tx, ids []string) (map[string]StockLevel, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, supermarket_id, name, price::text, stock
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("read stock: %w", err)
	}
	defer rows.Close()

	levels := make(map[string]StockLevel, len(ids))
	for rows.Next() {
		var (
			lvl   StockLevel
			price string
		)
		if err := rows.Scan(&lvl.ProductID, &lvl.SupermarketID, &lvl.Name, &price, &lvl.Stock); err != nil {
			return nil, fmt.Errorf("read stock: %w", err)
		}
		if lvl.Price, err = parseMoney("price", price); err != nil {
			return nil, err
		}
		levels[lvl.ProductID] = lvl
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read stock: %w", err)
	}
	return levels, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, []Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price::text
		FROM order_items WHERE order_id=$1
	`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, nil, err
		}
		if it.Price, err = parseMoney("price", price); err != nil {
			return nil, nil, err
		}
		items = append(items, it)
	}
	return o, items, rows.Err()
}

func (r *PGRepo) listOrders(ctx context.Context, sql string, args ...any) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	limit, offset = clampPage(limit, offset)
	return r.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE user_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
}

// ListBySupermarket lists a tenant's orders; an empty status means all statuses.
func (r *PGRepo) ListBySupermarket(ctx context.Context, supermarketID string, status Status, limit, offset int) ([]Order, error) {
	limit, offset = clampPage(limit, offset)
	return r.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE supermarket_id=$1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, supermarketID, string(status), limit, offset)
}

// TransitionStatus moves an order to a terminal status with the row locked.
// Replaying the current status is a no-op; transitions outside CanTransition
// return ErrStatusConflict and leave the row untouched.
func (r *PGRepo) TransitionStatus(ctx context.Context, id string, to Status) (Transition, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tr := Transition{OrderID: id, To: to}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return tr, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from, total string
	err = tx.QueryRow(ctx, `SELECT status, total_amount::text FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&from, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return tr, ErrNotFound
	}
	if err != nil {
		return tr, err
	}
	tr.From = Status(from)
	if tr.TotalAmount, err = parseMoney("total_amount", total); err != nil {
		return tr, err
	}

	if tr.From == to {
		return tr, nil
	}
	if !CanTransition(tr.From, to) {
		return tr, fmt.Errorf("%w: %s -> %s", ErrStatusConflict, tr.From, to)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(to)); err != nil {
		return tr, err
	}
	if err := tx.Commit(ctx); err != nil {
		return tr, err
	}
	tr.Applied = true
	return tr, nil
}

func (r *PGRepo) ClearHistory(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM order_items
		WHERE order_id IN (SELECT id FROM orders WHERE user_id=$1)
	`, userID); err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
