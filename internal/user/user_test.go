package user

import (
	"context"
	"io"
	"log"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/mercado-ecom/internal/auth"
	"github.com/MikeMC777/mercado-ecom/internal/identity"
)

func init() {
	log.SetOutput(io.Discard)
}

type memRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func (m *memRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Email == u.Email {
			return ErrAlreadyExist
		}
	}
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == normalizeEmail(email) {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", h)
	assert.True(t, CheckPassword(h, "hunter22"))
	assert.False(t, CheckPassword(h, "hunter23"))
}

func TestService_AuthenticateIssuesVerifiableToken(t *testing.T) {
	svc := NewService(&memRepo{users: map[string]*User{}}, auth.NewIssuer("k", "users", time.Hour))
	ctx := context.Background()

	u, err := svc.Seed(ctx, " Admin@Shop.test ", "pw", auth.RoleAdmin, "s1")
	require.NoError(t, err)
	_, err = svc.Seed(ctx, "admin@shop.test", "other", "", "")
	assert.ErrorIs(t, err, ErrAlreadyExist)

	s, err := svc.Authenticate(ctx, "admin@shop.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.User.ID)

	claims, err := auth.NewValidator("k", "users").Validate(s.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.Equal(t, "s1", claims.SupermarketID)

	_, err = svc.Authenticate(ctx, "admin@shop.test", "nope")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "ghost@shop.test", "pw")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	got, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@shop.test", got.Email)
	_, err = svc.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestPGRepo_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPGRepo(mock)

	now := time.Now().UTC()
	cols := []string{"id", "email", "password_hash", "role", "supermarket_id", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email=$1`)).
		WithArgs("a@b.c").
		WillReturnRows(pgxmock.NewRows(cols).AddRow("u1", "a@b.c", "h", "customer", "", now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id=$1`)).
		WithArgs("u2").
		WillReturnError(pgx.ErrNoRows)

	u, err := repo.GetByEmail(context.Background(), " A@B.C")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = repo.GetByID(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepo_CreateDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("u1", "a@b.c", "h", "customer", "").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewPGRepo(mock).Create(context.Background(), &User{ID: "u1", Email: "a@b.c", PasswordHash: "h", Role: "customer"})
	assert.ErrorIs(t, err, ErrAlreadyExist)
	require.NoError(t, mock.ExpectationsWereMet())
}
