package product

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "supermarket_id", "name", "description", "category", "image_url", "price", "stock", "created_at", "updated_at"}

func TestGetByID_FoundAndNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPGRepo(mock)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id=$1`)).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow("p1", "s1", "Milk", "", "dairy", "", "2.50", 7, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id=$1`)).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, 7, p.Stock)

	_, err = repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_NormalizesPagingAndFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPGRepo(mock)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products`)).
		WithArgs("s1", "milk", "dairy", 20, 0).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("p1", "s1", "Milk", "", "dairy", "", "2.50", 7, now, now).
			AddRow("p2", "s1", "Oat milk", "", "dairy", "", "3.10", 0, now, now))

	out, err := repo.List(context.Background(), Query{SupermarketID: "s1", Q: "  milk ", Category: "dairy", Limit: 500, Offset: -4})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.False(t, out[1].InStock(1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPGRepo(mock)

	stock := 3
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE products`)).
		WithArgs("gone", "", "", "", "", (*string)(nil), &stock).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.Update(context.Background(), "gone", Patch{Stock: &stock})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_ReportsRowsAffected(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPGRepo(mock)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products WHERE id=$1`)).
		WithArgs("p1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products WHERE id=$1`)).
		WithArgs("p2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ok, err := repo.Delete(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(context.Background(), "p2")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_SoldProductIsInUse(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPGRepo(mock)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products WHERE id=$1`)).
		WithArgs("p1").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "order_items_product_id_fkey"})

	ok, err := repo.Delete(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrInUse)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
